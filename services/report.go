package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/LovationAdmin/crm-api/models"
	"github.com/LovationAdmin/crm-api/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JobStore persists generated reports so they can be exported again.
type JobStore interface {
	CreateJob(ctx context.Context, job *models.ReportJob) error
	GetJob(ctx context.Context, id string) (*models.ReportJob, error)
	ListJobs(ctx context.Context, limit int) ([]models.ReportJob, error)
	IncrementDownloads(ctx context.Context, id string) error
	PurgeJobsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type ReportService struct {
	source ReportSource
	jobs   JobStore
	now    func() time.Time
}

func NewReportService(source ReportSource, jobs JobStore) *ReportService {
	return &ReportService{source: source, jobs: jobs, now: time.Now}
}

// GenerateResult is returned by Generate. DownloadURL is set for non-JSON
// formats.
type GenerateResult struct {
	Job         *models.ReportJob  `json:"job"`
	Report      *models.ReportData `json:"report"`
	DownloadURL string             `json:"downloadUrl,omitempty"`
}

// ParseReportType accepts one of the known report types.
func ParseReportType(raw string) (models.ReportType, error) {
	t := models.ReportType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", invalidArg("unknown report type %q", raw)
	}
	return t, nil
}

// Generate assembles the report and records it as a new job. Identical
// inputs always create a new job with an identical payload.
func (s *ReportService) Generate(ctx context.Context, userID, reportType string, req models.GenerateReportRequest) (*GenerateResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	t, err := ParseReportType(reportType)
	if err != nil {
		return nil, err
	}
	format := models.ReportFormat(strings.ToLower(strings.TrimSpace(string(req.Format))))
	if format == "" {
		format = models.FormatJSON
	}
	if !format.Valid() {
		return nil, invalidArg("unknown format %q", string(req.Format))
	}
	w, err := ParseWindow(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	report, err := s.Assemble(ctx, t, w)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}

	job := &models.ReportJob{
		ID:         uuid.New().String(),
		ReportType: t,
		Format:     format,
		StartDate:  strings.TrimSpace(req.StartDate),
		EndDate:    strings.TrimSpace(req.EndDate),
		Data:       payload,
		CreatedBy:  userID,
		CreatedAt:  s.now(),
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	utils.LogReportAction("generated", string(t), job.ID, len(report.Rows))

	res := &GenerateResult{Job: job, Report: report}
	if format != models.FormatJSON {
		res.DownloadURL = fmt.Sprintf("/api/v1/reports/export/%s/%s", job.ID, format)
	}
	return res, nil
}

func (s *ReportService) ListJobs(ctx context.Context, userID string, limit int) ([]models.ReportJob, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.jobs.ListJobs(ctx, limit)
}

func (s *ReportService) GetJob(ctx context.Context, userID, jobID string) (*models.ReportJob, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	id, err := ParseID("jobId", jobID)
	if err != nil {
		return nil, err
	}
	return s.jobs.GetJob(ctx, id)
}

// Exported is a rendered report file.
type Exported struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Export renders a stored job without recomputing it and bumps its
// download counter.
func (s *ReportService) Export(ctx context.Context, userID, jobID, format string) (*Exported, error) {
	job, err := s.GetJob(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	f := models.ReportFormat(strings.ToLower(strings.TrimSpace(format)))
	if !f.Valid() {
		return nil, invalidArg("unknown format %q", format)
	}
	if !job.ReportType.Valid() {
		return nil, invalidArg("job %s has unknown report type %q", job.ID, job.ReportType)
	}

	var report models.ReportData
	if err := json.Unmarshal(job.Data, &report); err != nil {
		return nil, fmt.Errorf("decode report job %s: %w", job.ID, err)
	}

	body, contentType, err := Render(&report, f)
	if err != nil {
		return nil, err
	}
	if err := s.jobs.IncrementDownloads(ctx, job.ID); err != nil {
		return nil, err
	}
	utils.LogReportAction("exported "+string(f), string(job.ReportType), job.ID, len(report.Rows))

	return &Exported{
		Filename:    fmt.Sprintf("%s-%s.%s", job.ReportType, job.ID[:8], f),
		ContentType: contentType,
		Body:        body,
	}, nil
}

// ============================================================================
// ASSEMBLY
// ============================================================================

func money(d decimal.Decimal) string { return d.StringFixed(2) }

// Assemble builds the flat payload of a report type over a window.
func (s *ReportService) Assemble(ctx context.Context, t models.ReportType, w Window) (*models.ReportData, error) {
	start, end := w.Label()
	report := &models.ReportData{Type: t, StartDate: start, EndDate: end}

	var err error
	switch t {
	case models.ReportFinancialSummary:
		err = s.financialSummary(ctx, w, report)
	case models.ReportClientProfitability:
		err = s.clientProfitability(ctx, w, report)
	case models.ReportBudgetPerformance:
		err = s.budgetPerformance(ctx, report)
	case models.ReportPaymentTracking:
		err = s.paymentTracking(ctx, w, report)
	case models.ReportClientOverview:
		err = s.clientOverview(ctx, w, report)
	case models.ReportVendorAnalysis:
		err = s.vendorAnalysis(ctx, w, report)
	default:
		return nil, invalidArg("unknown report type %q", string(t))
	}
	if err != nil {
		return nil, err
	}
	if report.Rows == nil {
		report.Rows = []map[string]string{}
	}
	return report, nil
}

func (s *ReportService) ledger(ctx context.Context, w Window) ([]LedgerEntry, []LedgerEntry, error) {
	payments, err := s.source.Payments(ctx, LedgerFilter{Window: w})
	if err != nil {
		return nil, nil, err
	}
	expenses, err := s.source.Expenses(ctx, LedgerFilter{Window: w})
	if err != nil {
		return nil, nil, err
	}
	return payments, expenses, nil
}

func (s *ReportService) financialSummary(ctx context.Context, w Window, r *models.ReportData) error {
	payments, expenses, err := s.ledger(ctx, w)
	if err != nil {
		return err
	}
	m := Aggregate(payments, expenses)

	r.Title = "Financial Summary"
	r.Columns = []string{"metric", "value"}
	r.Rows = []map[string]string{
		{"metric": "totalRevenue", "value": money(m.TotalRevenue)},
		{"metric": "totalExpenses", "value": money(m.TotalExpenses)},
		{"metric": "netProfit", "value": money(m.NetProfit)},
		{"metric": "profitMargin", "value": money(m.ProfitMargin)},
	}
	r.Summary = map[string]string{
		"paymentCount": strconv.Itoa(len(payments)),
		"expenseCount": strconv.Itoa(len(expenses)),
	}
	r.Warnings = m.Warnings
	return nil
}

// clientProfitability ranks clients by profit, highest first.
func (s *ReportService) clientProfitability(ctx context.Context, w Window, r *models.ReportData) error {
	clients, err := s.source.Clients(ctx)
	if err != nil {
		return err
	}
	payments, expenses, err := s.ledger(ctx, w)
	if err != nil {
		return err
	}

	type ranked struct {
		client models.Client
		m      Metrics
	}
	all := make([]ranked, 0, len(clients))
	total := Metrics{}
	for _, c := range clients {
		m := Aggregate(FilterEntries(payments, c.ID, w), FilterEntries(expenses, c.ID, w))
		all = append(all, ranked{client: c, m: m})
		r.Warnings = append(r.Warnings, m.Warnings...)
		total.TotalRevenue = total.TotalRevenue.Add(m.TotalRevenue)
		total.NetProfit = total.NetProfit.Add(m.NetProfit)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if c := all[i].m.NetProfit.Cmp(all[j].m.NetProfit); c != 0 {
			return c > 0
		}
		if all[i].client.Name != all[j].client.Name {
			return all[i].client.Name < all[j].client.Name
		}
		return all[i].client.ID < all[j].client.ID
	})

	r.Title = "Client Profitability"
	r.Columns = []string{"clientId", "clientName", "revenue", "expenses", "profit", "profitMargin", "roi"}
	for _, x := range all {
		r.Rows = append(r.Rows, map[string]string{
			"clientId":     x.client.ID,
			"clientName":   x.client.Name,
			"revenue":      money(x.m.TotalRevenue),
			"expenses":     money(x.m.TotalExpenses),
			"profit":       money(x.m.NetProfit),
			"profitMargin": money(x.m.ProfitMargin),
			"roi":          money(ROI(x.m.NetProfit, x.m.TotalExpenses)),
		})
	}
	r.Summary = map[string]string{
		"clientCount":  strconv.Itoa(len(all)),
		"totalRevenue": money(total.TotalRevenue),
		"totalProfit":  money(total.NetProfit),
	}
	return nil
}

// budgetPerformance reports lifetime figures; a budget's spent amount is
// never windowed.
func (s *ReportService) budgetPerformance(ctx context.Context, r *models.ReportData) error {
	budgets, err := s.source.Budgets(ctx)
	if err != nil {
		return err
	}
	expenses, err := s.source.Expenses(ctx, LedgerFilter{})
	if err != nil {
		return err
	}

	r.Title = "Budget Performance"
	r.Columns = []string{"budgetId", "budgetName", "clientName", "total", "spent", "remaining", "utilization"}
	over := 0
	for i := range budgets {
		b := &budgets[i]
		r.Warnings = append(r.Warnings, ApplyBudgetFigures(b, expenses)...)
		utilization := decimal.Zero
		if b.TotalAmount.IsPositive() {
			utilization = b.SpentAmount.Div(b.TotalAmount).Mul(hundred).Round(2)
		}
		if b.RemainingAmount.IsNegative() {
			over++
		}
		r.Rows = append(r.Rows, map[string]string{
			"budgetId":    b.ID,
			"budgetName":  b.Name,
			"clientName":  b.ClientName,
			"total":       money(b.TotalAmount),
			"spent":       money(b.SpentAmount),
			"remaining":   money(b.RemainingAmount),
			"utilization": money(utilization),
		})
	}
	r.Summary = map[string]string{
		"budgetCount":     strconv.Itoa(len(budgets)),
		"overBudgetCount": strconv.Itoa(over),
	}
	return nil
}

// paymentTracking lists every payment in the window, whatever its status.
func (s *ReportService) paymentTracking(ctx context.Context, w Window, r *models.ReportData) error {
	clients, err := s.source.Clients(ctx)
	if err != nil {
		return err
	}
	names := clientNames(clients)
	payments, err := s.source.Payments(ctx, LedgerFilter{Window: w})
	if err != nil {
		return err
	}
	sort.SliceStable(payments, func(i, j int) bool {
		if !payments[i].Date.Equal(payments[j].Date) {
			return payments[i].Date.Before(payments[j].Date)
		}
		return payments[i].ID < payments[j].ID
	})

	byStatus := map[string]decimal.Decimal{}
	r.Title = "Payment Tracking"
	r.Columns = []string{"paymentId", "clientName", "amount", "currency", "status", "paymentDate"}
	for _, p := range payments {
		amount, warn := ParseAmount(p)
		if warn != nil {
			r.Warnings = append(r.Warnings, *warn)
		}
		byStatus[p.Status] = byStatus[p.Status].Add(amount)
		r.Rows = append(r.Rows, map[string]string{
			"paymentId":   p.ID,
			"clientName":  names[p.ClientID],
			"amount":      money(amount),
			"currency":    p.Currency,
			"status":      p.Status,
			"paymentDate": p.Date.UTC().Format(dateLayout),
		})
	}
	r.Summary = map[string]string{"paymentCount": strconv.Itoa(len(payments))}
	for _, st := range []models.PaymentStatus{models.PaymentPending, models.PaymentCompleted, models.PaymentFailed, models.PaymentCancelled} {
		r.Summary[string(st)] = money(byStatus[string(st)])
	}
	return nil
}

func (s *ReportService) clientOverview(ctx context.Context, w Window, r *models.ReportData) error {
	clients, err := s.source.Clients(ctx)
	if err != nil {
		return err
	}
	payments, err := s.source.Payments(ctx, LedgerFilter{Window: w})
	if err != nil {
		return err
	}

	r.Title = "Client Overview"
	r.Columns = []string{"clientId", "clientName", "company", "status", "paymentCount", "revenue", "outstanding", "lastPayment"}
	for _, c := range clients {
		own := FilterEntries(payments, c.ID, w)
		revenue, warns := SumRealized(own, string(models.PaymentCompleted))
		outstanding, _ := SumRealized(own, string(models.PaymentPending))
		r.Warnings = append(r.Warnings, warns...)

		var last time.Time
		for _, p := range own {
			if p.Date.After(last) {
				last = p.Date
			}
		}
		lastPayment := ""
		if !last.IsZero() {
			lastPayment = last.UTC().Format(dateLayout)
		}
		r.Rows = append(r.Rows, map[string]string{
			"clientId":     c.ID,
			"clientName":   c.Name,
			"company":      c.Company,
			"status":       c.Status,
			"paymentCount": strconv.Itoa(len(own)),
			"revenue":      money(revenue),
			"outstanding":  money(outstanding),
			"lastPayment":  lastPayment,
		})
	}
	r.Summary = map[string]string{"clientCount": strconv.Itoa(len(clients))}
	return nil
}

// vendorAnalysis ranks vendors by approved spend.
func (s *ReportService) vendorAnalysis(ctx context.Context, w Window, r *models.ReportData) error {
	vendors, err := s.source.Vendors(ctx)
	if err != nil {
		return err
	}
	expenses, err := s.source.Expenses(ctx, LedgerFilter{Window: w})
	if err != nil {
		return err
	}

	type row struct {
		v        models.Vendor
		count    int
		approved decimal.Decimal
		pending  decimal.Decimal
	}
	rows := make([]row, 0, len(vendors))
	for _, v := range vendors {
		var own []LedgerEntry
		for _, e := range expenses {
			if e.VendorID == v.ID {
				own = append(own, e)
			}
		}
		approved, warns := SumRealized(own, string(models.ExpenseApproved))
		pending, _ := SumRealized(own, string(models.ExpensePending))
		r.Warnings = append(r.Warnings, warns...)
		rows = append(rows, row{v: v, count: len(own), approved: approved, pending: pending})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if c := rows[i].approved.Cmp(rows[j].approved); c != 0 {
			return c > 0
		}
		return rows[i].v.ID < rows[j].v.ID
	})

	r.Title = "Vendor Analysis"
	r.Columns = []string{"vendorId", "vendorName", "category", "expenseCount", "approvedTotal", "pendingTotal"}
	for _, x := range rows {
		r.Rows = append(r.Rows, map[string]string{
			"vendorId":      x.v.ID,
			"vendorName":    x.v.Name,
			"category":      x.v.Category,
			"expenseCount":  strconv.Itoa(x.count),
			"approvedTotal": money(x.approved),
			"pendingTotal":  money(x.pending),
		})
	}
	r.Summary = map[string]string{"vendorCount": strconv.Itoa(len(vendors))}
	return nil
}

func clientNames(clients []models.Client) map[string]string {
	names := make(map[string]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}
	return names
}
