package models

// DataQualityWarning flags a record that contributed to an aggregate with a
// coerced value. It never aborts the aggregation it belongs to.
type DataQualityWarning struct {
	RecordID string `json:"record_id"`
	Kind     string `json:"kind"`
	Field    string `json:"field"`
	Value    string `json:"value"`
	Message  string `json:"message"`
}
