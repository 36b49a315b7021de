package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/LovationAdmin/crm-api/models"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	contentTypeJSON = "application/json"
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	topClientsInPDF = 10
)

// Render serializes a report payload. It never recomputes figures.
func Render(r *models.ReportData, format models.ReportFormat) ([]byte, string, error) {
	switch format {
	case models.FormatJSON:
		b, err := json.MarshalIndent(r, "", "  ")
		return b, contentTypeJSON, err
	case models.FormatCSV:
		b, err := RenderCSV(r)
		return b, contentTypeCSV, err
	case models.FormatXLSX:
		b, err := RenderXLSX(r)
		return b, contentTypeXLSX, err
	case models.FormatPDF:
		b, err := RenderPDF(r)
		return b, contentTypePDF, err
	}
	return nil, "", invalidArg("unknown format %q", string(format))
}

func rowValues(r *models.ReportData, row map[string]string) []string {
	out := make([]string, len(r.Columns))
	for i, col := range r.Columns {
		out[i] = row[col]
	}
	return out
}

// sheetSafe neutralises text a spreadsheet would evaluate as a formula.
// Plain numbers such as "-10.00" are left alone.
func sheetSafe(v string) string {
	if v == "" || !strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return v
	}
	if _, err := decimal.NewFromString(v); err == nil {
		return v
	}
	return "'" + v
}

func sheetRow(r *models.ReportData, row map[string]string) []string {
	values := rowValues(r, row)
	for i, v := range values {
		values[i] = sheetSafe(v)
	}
	return values
}

// RenderCSV writes a header line followed by one line per row.
func RenderCSV(r *models.ReportData) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(r.Columns); err != nil {
		return nil, err
	}
	for _, row := range r.Rows {
		if err := w.Write(sheetRow(r, row)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderXLSX writes the rows to a "Report" sheet and the summary to a
// "Summary" sheet.
func RenderXLSX(r *models.ReportData) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Report"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	header := make([]interface{}, len(r.Columns))
	for i, c := range r.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil && len(r.Columns) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(r.Columns), 1)
		_ = f.SetCellStyle(sheet, "A1", last, bold)
	}

	for i, row := range r.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := sheetRow(r, row)
		line := make([]interface{}, len(values))
		for j, v := range values {
			line[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &line); err != nil {
			return nil, err
		}
	}

	if len(r.Summary) > 0 {
		if _, err := f.NewSheet("Summary"); err != nil {
			return nil, err
		}
		for i, k := range sortedKeys(r.Summary) {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			line := []interface{}{k, r.Summary[k]}
			if err := f.SetSheetRow("Summary", cell, &line); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPDF lays out a landscape table. Client profitability reports get
// a "Top 10 clients" section first.
func RenderPDF(r *models.ReportData) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(r.Title, true)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(r.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	if r.StartDate != "" || r.EndDate != "" {
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("Period: %s - %s", orOpen(r.StartDate), orOpen(r.EndDate))), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	if r.Type == models.ReportClientProfitability && len(r.Rows) > 0 {
		top := r.Rows
		if len(top) > topClientsInPDF {
			top = top[:topClientsInPDF]
		}
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Top 10 clients by profit", "", 1, "L", false, 0, "")
		pdfTable(pdf, tr, []string{"clientName", "revenue", "profit", "roi"}, top)
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Details", "", 1, "L", false, 0, "")
	pdfTable(pdf, tr, r.Columns, r.Rows)

	if len(r.Summary) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Summary", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, k := range sortedKeys(r.Summary) {
			pdf.CellFormat(60, 6, tr(k), "1", 0, "L", false, 0, "")
			pdf.CellFormat(60, 6, tr(r.Summary[k]), "1", 1, "R", false, 0, "")
		}
	}
	if len(r.Warnings) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("%d record(s) had malformed values and were counted as 0.", len(r.Warnings)), "", 1, "L", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func pdfTable(pdf *fpdf.Fpdf, tr func(string) string, columns []string, rows []map[string]string) {
	if len(columns) == 0 {
		return
	}
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	width := (pageW - left - right) / float64(len(columns))

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range columns {
		pdf.CellFormat(width, 7, tr(c), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, row := range rows {
		for _, c := range columns {
			pdf.CellFormat(width, 6, fitText(pdf, tr(row[c]), width-2), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}

// fitText truncates s so it fits in width.
func fitText(pdf *fpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

func orOpen(s string) string {
	if s == "" {
		return "open"
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
