package models

import "time"

// CalendarEvent is either shared (IsShared, no owner) or personal
// (owned by OwnerID). Never both, never neither.
type CalendarEvent struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	OwnerID        *string   `json:"owner_id"`
	IsShared       bool      `json:"is_shared"`
	ClientID       *string   `json:"client_id,omitempty"`
	RecurrenceRule string    `json:"recurrence_rule,omitempty"`
	CreatedBy      string    `json:"created_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type CreateEventRequest struct {
	Title          string    `json:"title" binding:"required"`
	Description    string    `json:"description"`
	StartTime      time.Time `json:"start_time" binding:"required"`
	EndTime        time.Time `json:"end_time" binding:"required"`
	IsShared       bool      `json:"is_shared"`
	ClientID       *string   `json:"client_id"`
	RecurrenceRule string    `json:"recurrence_rule"`
}

// UpdateEventRequest carries only the fields to change.
type UpdateEventRequest struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	StartTime      *time.Time `json:"start_time"`
	EndTime        *time.Time `json:"end_time"`
	IsShared       *bool      `json:"is_shared"`
	ClientID       *string    `json:"client_id"`
	RecurrenceRule *string    `json:"recurrence_rule"`
}

// EventOccurrence is one concrete instance of a (possibly recurring) event.
type EventOccurrence struct {
	EventID  string    `json:"event_id"`
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	IsShared bool      `json:"is_shared"`
}
