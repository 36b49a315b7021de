package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LovationAdmin/crm-api/models"
)

// memSource is an in-memory ReportSource.
type memSource struct {
	clients  []models.Client
	vendors  []models.Vendor
	budgets  []models.Budget
	payments []LedgerEntry
	expenses []LedgerEntry
}

func (m *memSource) filter(entries []LedgerEntry, f LedgerFilter) []LedgerEntry {
	out := []LedgerEntry{}
	for _, e := range FilterEntries(entries, f.ClientID, f.Window) {
		if f.BudgetID != "" && e.BudgetID != f.BudgetID {
			continue
		}
		if f.VendorID != "" && e.VendorID != f.VendorID {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (m *memSource) Payments(_ context.Context, f LedgerFilter) ([]LedgerEntry, error) {
	return m.filter(m.payments, f), nil
}

func (m *memSource) Expenses(_ context.Context, f LedgerFilter) ([]LedgerEntry, error) {
	return m.filter(m.expenses, f), nil
}

func (m *memSource) Clients(context.Context) ([]models.Client, error) { return m.clients, nil }
func (m *memSource) Vendors(context.Context) ([]models.Vendor, error) { return m.vendors, nil }

func (m *memSource) Budgets(context.Context) ([]models.Budget, error) {
	return append([]models.Budget(nil), m.budgets...), nil
}

// memJobs is an in-memory JobStore.
type memJobs struct {
	mu   sync.Mutex
	jobs map[string]*models.ReportJob
}

func newMemJobs() *memJobs { return &memJobs{jobs: map[string]*models.ReportJob{}} }

func (m *memJobs) CreateJob(_ context.Context, job *models.ReportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *memJobs) GetJob(_ context.Context, id string) (*models.ReportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, notFound("report job")
	}
	cp := *j
	return &cp, nil
}

func (m *memJobs) ListJobs(_ context.Context, limit int) ([]models.ReportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ReportJob
	for _, j := range m.jobs {
		if len(out) == limit {
			break
		}
		out = append(out, *j)
	}
	return out, nil
}

func (m *memJobs) IncrementDownloads(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return notFound("report job")
	}
	j.DownloadCount++
	return nil
}

func (m *memJobs) PurgeJobsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, j := range m.jobs {
		if j.CreatedAt.Before(cutoff) {
			delete(m.jobs, id)
			n++
		}
	}
	return n, nil
}

const (
	clientA = "aaaaaaaa-0000-0000-0000-000000000001"
	clientB = "aaaaaaaa-0000-0000-0000-000000000002"
	clientC = "aaaaaaaa-0000-0000-0000-000000000003"
)

func march(day int) time.Time { return time.Date(2024, 3, day, 9, 0, 0, 0, time.UTC) }

func fixtureSource() *memSource {
	return &memSource{
		clients: []models.Client{
			{ID: clientA, Name: "Acme", Status: "active"},
			{ID: clientB, Name: "Beta", Status: "active"},
			{ID: clientC, Name: "Cobalt", Status: "lead"},
		},
		vendors: []models.Vendor{
			{ID: "v1", Name: "Print Co", Category: "print"},
			{ID: "v2", Name: "Ads Inc", Category: "ads"},
		},
		budgets: []models.Budget{
			{ID: "b1", ClientID: clientA, Name: "Launch", TotalAmount: dec("100")},
		},
		payments: []LedgerEntry{
			{ID: "p1", ClientID: clientA, Amount: "100", Currency: "USD", Status: "completed", Date: march(2)},
			{ID: "p2", ClientID: clientB, Amount: "500", Currency: "USD", Status: "completed", Date: march(3)},
			{ID: "p3", ClientID: clientA, Amount: "50", Currency: "USD", Status: "pending", Date: march(4)},
			{ID: "p4", ClientID: clientB, Amount: "999", Currency: "USD", Status: "completed", Date: march(20)},
		},
		expenses: []LedgerEntry{
			{ID: "e1", ClientID: clientA, BudgetID: "b1", VendorID: "v1", Amount: "30", Status: "approved", Date: march(2)},
			{ID: "e2", ClientID: clientB, VendorID: "v2", Amount: "100", Status: "approved", Date: march(3)},
			{ID: "e3", ClientID: clientB, VendorID: "v2", Amount: "7", Status: "pending", Date: march(3)},
		},
	}
}

func marchRequest(format models.ReportFormat) models.GenerateReportRequest {
	return models.GenerateReportRequest{StartDate: "2024-03-01", EndDate: "2024-03-10", Format: format}
}

func TestGenerateFinancialSummary(t *testing.T) {
	svc := NewReportService(fixtureSource(), newMemJobs())
	res, err := svc.Generate(context.Background(), u1, "financial-summary", marchRequest(""))
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"totalRevenue":  "600.00",
		"totalExpenses": "130.00",
		"netProfit":     "470.00",
		"profitMargin":  "78.33",
	}
	for _, row := range res.Report.Rows {
		if want[row["metric"]] != row["value"] {
			t.Errorf("%s = %s, want %s", row["metric"], row["value"], want[row["metric"]])
		}
	}
	if res.Job.Format != models.FormatJSON || res.DownloadURL != "" {
		t.Errorf("json job = %+v url=%q", res.Job, res.DownloadURL)
	}
}

func TestGenerateIsIdempotentInPayload(t *testing.T) {
	jobs := newMemJobs()
	svc := NewReportService(fixtureSource(), jobs)

	first, err := svc.Generate(context.Background(), u1, "client-profitability", marchRequest(models.FormatCSV))
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Generate(context.Background(), u1, "client-profitability", marchRequest(models.FormatCSV))
	if err != nil {
		t.Fatal(err)
	}
	if first.Job.ID == second.Job.ID {
		t.Error("each generation must create its own job")
	}
	if !bytes.Equal(first.Job.Data, second.Job.Data) {
		t.Errorf("payloads differ:\n%s\n%s", first.Job.Data, second.Job.Data)
	}
	if len(jobs.jobs) != 2 {
		t.Errorf("stored jobs = %d", len(jobs.jobs))
	}
	if !strings.HasSuffix(first.DownloadURL, first.Job.ID+"/csv") {
		t.Errorf("download url = %q", first.DownloadURL)
	}
}

func TestClientProfitabilitySortedByProfit(t *testing.T) {
	svc := NewReportService(fixtureSource(), newMemJobs())
	w, _ := ParseWindow("2024-03-01", "2024-03-10")
	r, err := svc.Assemble(context.Background(), models.ReportClientProfitability, w)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, row := range r.Rows {
		names = append(names, row["clientName"])
	}
	// Beta 400, Acme 70, Cobalt 0
	if strings.Join(names, ",") != "Beta,Acme,Cobalt" {
		t.Errorf("order = %v", names)
	}
	if r.Rows[1]["profit"] != "70.00" || r.Rows[1]["roi"] != "233.33" {
		t.Errorf("acme row = %v", r.Rows[1])
	}
	if r.Rows[2]["profitMargin"] != "0.00" {
		t.Errorf("cobalt margin = %s", r.Rows[2]["profitMargin"])
	}
	if r.Summary["totalProfit"] != "470.00" {
		t.Errorf("summary = %v", r.Summary)
	}
}

func TestBudgetPerformanceIgnoresWindow(t *testing.T) {
	src := fixtureSource()
	src.expenses = append(src.expenses, LedgerEntry{ID: "e9", BudgetID: "b1", Amount: "80", Status: "approved", Date: march(28)})
	svc := NewReportService(src, newMemJobs())
	w, _ := ParseWindow("2024-03-01", "2024-03-10")

	r, err := svc.Assemble(context.Background(), models.ReportBudgetPerformance, w)
	if err != nil {
		t.Fatal(err)
	}
	row := r.Rows[0]
	if row["spent"] != "110.00" || row["remaining"] != "-10.00" || row["utilization"] != "110.00" {
		t.Errorf("budget row = %v", row)
	}
	if r.Summary["overBudgetCount"] != "1" {
		t.Errorf("summary = %v", r.Summary)
	}
}

func TestPaymentTrackingCountsEveryStatus(t *testing.T) {
	svc := NewReportService(fixtureSource(), newMemJobs())
	w, _ := ParseWindow("2024-03-01", "2024-03-10")
	r, err := svc.Assemble(context.Background(), models.ReportPaymentTracking, w)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Rows) != 3 {
		t.Fatalf("rows = %d", len(r.Rows))
	}
	if r.Summary["completed"] != "600.00" || r.Summary["pending"] != "50.00" || r.Summary["failed"] != "0.00" {
		t.Errorf("summary = %v", r.Summary)
	}
	if r.Rows[0]["paymentId"] != "p1" || r.Rows[0]["clientName"] != "Acme" {
		t.Errorf("first row = %v", r.Rows[0])
	}
}

func TestVendorAnalysisRanksByApprovedSpend(t *testing.T) {
	svc := NewReportService(fixtureSource(), newMemJobs())
	r, err := svc.Assemble(context.Background(), models.ReportVendorAnalysis, Window{})
	if err != nil {
		t.Fatal(err)
	}
	if r.Rows[0]["vendorId"] != "v2" || r.Rows[0]["approvedTotal"] != "100.00" || r.Rows[0]["pendingTotal"] != "7.00" {
		t.Errorf("top vendor = %v", r.Rows[0])
	}
}

func TestClientOverviewOutstanding(t *testing.T) {
	svc := NewReportService(fixtureSource(), newMemJobs())
	r, err := svc.Assemble(context.Background(), models.ReportClientOverview, Window{})
	if err != nil {
		t.Fatal(err)
	}
	acme := r.Rows[0]
	if acme["revenue"] != "100.00" || acme["outstanding"] != "50.00" || acme["lastPayment"] != "2024-03-04" {
		t.Errorf("acme = %v", acme)
	}
	if r.Rows[2]["paymentCount"] != "0" || r.Rows[2]["lastPayment"] != "" {
		t.Errorf("cobalt = %v", r.Rows[2])
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	svc := NewReportService(fixtureSource(), newMemJobs())
	ctx := context.Background()

	if _, err := svc.Generate(ctx, u1, "profit-and-loss", marchRequest("")); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("unknown type: %v", err)
	}
	if _, err := svc.Generate(ctx, u1, "financial-summary", marchRequest("docx")); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("unknown format: %v", err)
	}
	bad := models.GenerateReportRequest{StartDate: "2024-03-10", EndDate: "2024-03-01"}
	if _, err := svc.Generate(ctx, u1, "financial-summary", bad); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("inverted window: %v", err)
	}
	if _, err := svc.Generate(ctx, "", "financial-summary", marchRequest("")); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("anonymous: %v", err)
	}
}

func TestMalformedAmountSurfacesInReport(t *testing.T) {
	src := fixtureSource()
	src.payments = append(src.payments, LedgerEntry{ID: "p-bad", ClientID: clientC, Amount: "abc", Status: "completed", Date: march(5)})
	svc := NewReportService(src, newMemJobs())

	res, err := svc.Generate(context.Background(), u1, "financial-summary", marchRequest(""))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Report.Warnings) != 1 || res.Report.Warnings[0].RecordID != "p-bad" {
		t.Errorf("warnings = %+v", res.Report.Warnings)
	}
}

func TestExportRendersStoredJobAndCountsDownloads(t *testing.T) {
	jobs := newMemJobs()
	svc := NewReportService(fixtureSource(), jobs)
	ctx := context.Background()

	res, err := svc.Generate(ctx, u1, "financial-summary", marchRequest(models.FormatCSV))
	if err != nil {
		t.Fatal(err)
	}

	out, err := svc.Export(ctx, u2, res.Job.ID, "csv")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(out.Body), "metric,value\n") {
		t.Errorf("csv body = %q", out.Body)
	}
	if !strings.HasSuffix(out.Filename, ".csv") || out.ContentType != contentTypeCSV {
		t.Errorf("export = %s %s", out.Filename, out.ContentType)
	}

	if _, err := svc.Export(ctx, u2, res.Job.ID, "pdf"); err != nil {
		t.Fatal(err)
	}
	job, _ := jobs.GetJob(ctx, res.Job.ID)
	if job.DownloadCount != 2 {
		t.Errorf("download count = %d", job.DownloadCount)
	}

	if _, err := svc.Export(ctx, u2, res.Job.ID, "docx"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bad format: %v", err)
	}
	if _, err := svc.Export(ctx, u2, "bbbbbbbb-0000-0000-0000-000000000000", "csv"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing job: %v", err)
	}
}

func TestListJobsClampsLimit(t *testing.T) {
	jobs := newMemJobs()
	svc := NewReportService(fixtureSource(), jobs)
	for i := 0; i < 3; i++ {
		if _, err := svc.Generate(context.Background(), u1, "vendor-analysis", models.GenerateReportRequest{}); err != nil {
			t.Fatal(err)
		}
	}
	got, err := svc.ListJobs(context.Background(), u1, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("jobs = %d", len(got))
	}
}
