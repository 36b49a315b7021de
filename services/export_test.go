package services

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/LovationAdmin/crm-api/models"

	"github.com/xuri/excelize/v2"
)

func sampleReport() *models.ReportData {
	return &models.ReportData{
		Type:      models.ReportClientProfitability,
		Title:     "Client Profitability",
		StartDate: "2024-03-01T00:00:00Z",
		Columns:   []string{"clientId", "clientName", "revenue", "profit", "roi"},
		Rows: []map[string]string{
			{"clientId": clientB, "clientName": "Beta, Ltd", "revenue": "500.00", "profit": "400.00", "roi": "400.00"},
			{"clientId": clientA, "clientName": "Acme", "revenue": "100.00", "profit": "70.00", "roi": "233.33"},
		},
		Summary:  map[string]string{"clientCount": "2", "totalProfit": "470.00"},
		Warnings: []models.DataQualityWarning{{RecordID: "p9", Kind: "malformed_amount"}},
	}
}

func TestRenderCSV(t *testing.T) {
	b, err := RenderCSV(sampleReport())
	if err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d", len(records))
	}
	if records[0][1] != "clientName" || records[1][1] != "Beta, Ltd" || records[2][4] != "233.33" {
		t.Errorf("records = %v", records)
	}
}

func TestRenderXLSX(t *testing.T) {
	b, err := RenderXLSX(sampleReport())
	if err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := f.GetRows("Report")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[0][0] != "clientId" || rows[1][1] != "Beta, Ltd" {
		t.Errorf("rows = %v", rows)
	}
	v, err := f.GetCellValue("Summary", "B2")
	if err != nil || v != "470.00" {
		t.Errorf("summary B2 = %q, %v", v, err)
	}
}

func TestRenderPDF(t *testing.T) {
	b, err := RenderPDF(sampleReport())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Errorf("not a pdf: %q", b[:min(len(b), 8)])
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	if _, _, err := Render(sampleReport(), "docx"); err == nil {
		t.Error("expected error for unknown format")
	}
	body, ct, err := Render(sampleReport(), models.FormatJSON)
	if err != nil || ct != contentTypeJSON || !bytes.Contains(body, []byte(`"clientCount": "2"`)) {
		t.Errorf("json render = %s %q %v", body, ct, err)
	}
}

func TestSheetSafe(t *testing.T) {
	tests := map[string]string{
		"=HYPERLINK(\"http://x\")": "'=HYPERLINK(\"http://x\")",
		"+cmd":                     "'+cmd",
		"-2+3":                     "'-2+3",
		"@SUM(A1)":                 "'@SUM(A1)",
		"-10.00":                   "-10.00",
		"Acme":                     "Acme",
		"":                         "",
	}
	for in, want := range tests {
		if got := sheetSafe(in); got != want {
			t.Errorf("sheetSafe(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExportsEscapeFormulaNames(t *testing.T) {
	r := sampleReport()
	r.Rows[0]["clientName"] = "=cmd|' /C calc'!A0"
	r.Rows[1]["profit"] = "-10.00"

	b, err := RenderCSV(r)
	if err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if records[1][1] != "'=cmd|' /C calc'!A0" || records[2][3] != "-10.00" {
		t.Errorf("csv records = %v", records)
	}

	b, err = RenderXLSX(r)
	if err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue("Report", "B2"); v != "'=cmd|' /C calc'!A0" {
		t.Errorf("xlsx B2 = %q", v)
	}
	if formula, _ := f.GetCellFormula("Report", "B2"); formula != "" {
		t.Errorf("xlsx B2 formula = %q", formula)
	}
}
