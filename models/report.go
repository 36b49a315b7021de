package models

import (
	"encoding/json"
	"time"
)

type ReportType string

const (
	ReportFinancialSummary    ReportType = "financial-summary"
	ReportClientProfitability ReportType = "client-profitability"
	ReportBudgetPerformance   ReportType = "budget-performance"
	ReportPaymentTracking     ReportType = "payment-tracking"
	ReportClientOverview      ReportType = "client-overview"
	ReportVendorAnalysis      ReportType = "vendor-analysis"
)

var ReportTypes = []ReportType{
	ReportFinancialSummary,
	ReportClientProfitability,
	ReportBudgetPerformance,
	ReportPaymentTracking,
	ReportClientOverview,
	ReportVendorAnalysis,
}

func (t ReportType) Valid() bool {
	for _, known := range ReportTypes {
		if t == known {
			return true
		}
	}
	return false
}

type ReportFormat string

const (
	FormatJSON ReportFormat = "json"
	FormatCSV  ReportFormat = "csv"
	FormatPDF  ReportFormat = "pdf"
	FormatXLSX ReportFormat = "xlsx"
)

func (f ReportFormat) Valid() bool {
	return f == FormatJSON || f == FormatCSV || f == FormatPDF || f == FormatXLSX
}

// ReportData is the flat, export-ready payload of a report. It holds no
// generation timestamp so identical inputs give identical payloads.
type ReportData struct {
	Type      ReportType           `json:"type"`
	Title     string               `json:"title"`
	StartDate string               `json:"start_date,omitempty"`
	EndDate   string               `json:"end_date,omitempty"`
	Columns   []string             `json:"columns"`
	Rows      []map[string]string  `json:"rows"`
	Summary   map[string]string    `json:"summary,omitempty"`
	Warnings  []DataQualityWarning `json:"warnings,omitempty"`
}

// ReportJob is a persisted report generation.
type ReportJob struct {
	ID            string          `json:"id"`
	ReportType    ReportType      `json:"report_type"`
	Format        ReportFormat    `json:"format"`
	StartDate     string          `json:"start_date,omitempty"`
	EndDate       string          `json:"end_date,omitempty"`
	Data          json.RawMessage `json:"data"`
	DownloadCount int             `json:"download_count"`
	CreatedBy     string          `json:"created_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type GenerateReportRequest struct {
	StartDate string       `json:"startDate"`
	EndDate   string       `json:"endDate"`
	Format    ReportFormat `json:"format"`
}
