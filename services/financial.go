package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/LovationAdmin/crm-api/models"
	"github.com/LovationAdmin/crm-api/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerFilter narrows payment and expense reads. Empty fields match all.
type LedgerFilter struct {
	ClientID string
	BudgetID string
	VendorID string
	Window   Window
}

// LedgerSource is what the aggregator and report assembler read from.
type LedgerSource interface {
	Payments(ctx context.Context, f LedgerFilter) ([]LedgerEntry, error)
	Expenses(ctx context.Context, f LedgerFilter) ([]LedgerEntry, error)
}

// ReportSource adds the reference entities reports join against.
type ReportSource interface {
	LedgerSource
	Clients(ctx context.Context) ([]models.Client, error)
	Vendors(ctx context.Context) ([]models.Vendor, error)
	Budgets(ctx context.Context) ([]models.Budget, error)
}

type FinancialService struct {
	db *sql.DB
}

func NewFinancialService(db *sql.DB) *FinancialService {
	return &FinancialService{db: db}
}

// ClientProfitability is one client's metrics over a window.
type ClientProfitability struct {
	ClientID   string `json:"clientId"`
	ClientName string `json:"clientName"`
	Metrics
	ROI decimal.Decimal `json:"roi"`
}

// ============================================================================
// LEDGER READS
// ============================================================================

func (f LedgerFilter) predicate(alias, dateColumn string) Predicate {
	var preds []Predicate
	if f.ClientID != "" {
		preds = append(preds, where(alias+".client_id = ?", f.ClientID))
	}
	if f.BudgetID != "" {
		preds = append(preds, where(alias+".budget_id = ?", f.BudgetID))
	}
	if f.VendorID != "" {
		preds = append(preds, where(alias+".vendor_id = ?", f.VendorID))
	}
	preds = append(preds, f.Window.Predicate(alias+"."+dateColumn))
	return And(preds...)
}

func (s *FinancialService) Payments(ctx context.Context, f LedgerFilter) ([]LedgerEntry, error) {
	query, args := build(`
		SELECT p.id, p.client_id, COALESCE(p.budget_id::text, ''), '', p.amount::text,
		       p.currency, p.status, p.payment_date
		FROM payments p`,
		f.predicate("p", "payment_date"), "ORDER BY p.payment_date, p.id")
	return s.queryLedger(ctx, "list payments", query, args)
}

func (s *FinancialService) Expenses(ctx context.Context, f LedgerFilter) ([]LedgerEntry, error) {
	query, args := build(`
		SELECT e.id, COALESCE(e.client_id::text, ''), COALESCE(e.budget_id::text, ''),
		       COALESCE(e.vendor_id::text, ''), e.amount::text, '', e.status, e.expense_date
		FROM expenses e`,
		f.predicate("e", "expense_date"), "ORDER BY e.expense_date, e.id")
	return s.queryLedger(ctx, "list expenses", query, args)
}

func (s *FinancialService) queryLedger(ctx context.Context, op, query string, args []any) ([]LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.ClientID, &e.BudgetID, &e.VendorID, &e.Amount,
			&e.Currency, &e.Status, &e.Date); err != nil {
			return nil, storeErr(op, err)
		}
		entries = append(entries, e)
	}
	return entries, storeErr(op, rows.Err())
}

// ============================================================================
// AGGREGATES
// ============================================================================

// Overview aggregates every client's realized money in the window.
func (s *FinancialService) Overview(ctx context.Context, userID string, w Window) (*Metrics, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return overview(ctx, s, LedgerFilter{Window: w})
}

func overview(ctx context.Context, src LedgerSource, f LedgerFilter) (*Metrics, error) {
	payments, err := src.Payments(ctx, f)
	if err != nil {
		return nil, err
	}
	expenses, err := src.Expenses(ctx, f)
	if err != nil {
		return nil, err
	}
	m := Aggregate(payments, expenses)
	for _, w := range m.Warnings {
		utils.LogDataQuality(w.Kind, w.RecordID, w.Field)
	}
	return &m, nil
}

func (s *FinancialService) ClientProfitability(ctx context.Context, userID, clientID string, w Window) (*ClientProfitability, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	id, err := ParseID("clientId", clientID)
	if err != nil {
		return nil, err
	}
	client, err := s.GetClient(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	m, err := overview(ctx, s, LedgerFilter{ClientID: id, Window: w})
	if err != nil {
		return nil, err
	}
	return &ClientProfitability{
		ClientID:   client.ID,
		ClientName: client.Name,
		Metrics:    *m,
		ROI:        ROI(m.NetProfit, m.TotalExpenses),
	}, nil
}

// ============================================================================
// CLIENTS & VENDORS
// ============================================================================

func (s *FinancialService) CreateClient(ctx context.Context, userID string, req models.CreateClientRequest) (*models.Client, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalidArg("name is required")
	}
	status := req.Status
	if status == "" {
		status = "active"
	}
	now := time.Now()
	c := &models.Client{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(req.Name),
		Email:     req.Email,
		Company:   req.Company,
		Status:    status,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, name, email, company, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.Name, c.Email, c.Company, c.Status, c.CreatedBy, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return nil, storeErr("create client", err)
	}
	return c, nil
}

const clientColumns = `c.id, c.name, COALESCE(c.email, ''), COALESCE(c.company, ''),
	COALESCE(c.status, ''), COALESCE(c.created_by::text, ''), c.created_at, c.updated_at`

func scanClient(row interface{ Scan(...any) error }) (models.Client, error) {
	var c models.Client
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Company, &c.Status, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *FinancialService) GetClient(ctx context.Context, userID, id string) (*models.Client, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	c, err := scanClient(s.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients c WHERE c.id = $1`, id))
	if err != nil {
		return nil, storeErr("client", err)
	}
	return &c, nil
}

// Clients lists all clients by name.
func (s *FinancialService) Clients(ctx context.Context) ([]models.Client, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients c ORDER BY c.name, c.id`)
	if err != nil {
		return nil, storeErr("list clients", err)
	}
	defer rows.Close()

	clients := []models.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, storeErr("list clients", err)
		}
		clients = append(clients, c)
	}
	return clients, storeErr("list clients", rows.Err())
}

func (s *FinancialService) CreateVendor(ctx context.Context, userID string, req models.CreateVendorRequest) (*models.Vendor, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalidArg("name is required")
	}
	v := &models.Vendor{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(req.Name),
		Email:     req.Email,
		Category:  req.Category,
		CreatedAt: time.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO vendors (id, name, email, category, created_at) VALUES ($1, $2, $3, $4, $5)`,
		v.ID, v.Name, v.Email, v.Category, v.CreatedAt)
	if err != nil {
		return nil, storeErr("create vendor", err)
	}
	return v, nil
}

func (s *FinancialService) Vendors(ctx context.Context) ([]models.Vendor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(category, ''), created_at
		FROM vendors ORDER BY name, id`)
	if err != nil {
		return nil, storeErr("list vendors", err)
	}
	defer rows.Close()

	vendors := []models.Vendor{}
	for rows.Next() {
		var v models.Vendor
		if err := rows.Scan(&v.ID, &v.Name, &v.Email, &v.Category, &v.CreatedAt); err != nil {
			return nil, storeErr("list vendors", err)
		}
		vendors = append(vendors, v)
	}
	return vendors, storeErr("list vendors", rows.Err())
}

// ============================================================================
// BUDGETS
// ============================================================================

func (s *FinancialService) CreateBudget(ctx context.Context, userID string, req models.CreateBudgetRequest) (*models.Budget, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	clientID, err := ParseID("client_id", req.ClientID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalidArg("name is required")
	}
	if req.TotalAmount.IsNegative() {
		return nil, invalidArg("total_amount must not be negative")
	}
	now := time.Now()
	b := &models.Budget{
		ID:              uuid.New().String(),
		ClientID:        clientID,
		Name:            strings.TrimSpace(req.Name),
		TotalAmount:     req.TotalAmount,
		RemainingAmount: req.TotalAmount,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO budgets (id, client_id, name, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.ClientID, b.Name, b.TotalAmount, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return nil, storeErr("create budget", err)
	}
	return b, nil
}

const budgetSelect = `
	SELECT b.id, COALESCE(b.client_id::text, ''), COALESCE(c.name, ''), b.name,
	       b.total_amount, b.created_at, b.updated_at
	FROM budgets b
	LEFT JOIN clients c ON c.id = b.client_id`

// Budgets returns stored totals only; spent and remaining are left zero.
func (s *FinancialService) Budgets(ctx context.Context) ([]models.Budget, error) {
	rows, err := s.db.QueryContext(ctx, budgetSelect+` ORDER BY b.name, b.id`)
	if err != nil {
		return nil, storeErr("list budgets", err)
	}
	defer rows.Close()

	budgets := []models.Budget{}
	for rows.Next() {
		var b models.Budget
		if err := rows.Scan(&b.ID, &b.ClientID, &b.ClientName, &b.Name,
			&b.TotalAmount, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, storeErr("list budgets", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, storeErr("list budgets", rows.Err())
}

// ListBudgets returns budgets with spent and remaining derived from the
// approved expenses read in the same call.
func (s *FinancialService) ListBudgets(ctx context.Context, userID string) ([]models.Budget, []models.DataQualityWarning, error) {
	if err := requireUser(userID); err != nil {
		return nil, nil, err
	}
	budgets, err := s.Budgets(ctx)
	if err != nil {
		return nil, nil, err
	}
	expenses, err := s.Expenses(ctx, LedgerFilter{})
	if err != nil {
		return nil, nil, err
	}
	var warnings []models.DataQualityWarning
	for i := range budgets {
		warnings = append(warnings, ApplyBudgetFigures(&budgets[i], expenses)...)
	}
	return budgets, warnings, nil
}

func (s *FinancialService) GetBudget(ctx context.Context, userID, id string) (*models.Budget, []models.DataQualityWarning, error) {
	if err := requireUser(userID); err != nil {
		return nil, nil, err
	}
	budgetID, err := ParseID("budgetId", id)
	if err != nil {
		return nil, nil, err
	}
	var b models.Budget
	err = s.db.QueryRowContext(ctx, budgetSelect+` WHERE b.id = $1`, budgetID).Scan(
		&b.ID, &b.ClientID, &b.ClientName, &b.Name, &b.TotalAmount, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, nil, storeErr("budget", err)
	}
	expenses, err := s.Expenses(ctx, LedgerFilter{BudgetID: budgetID})
	if err != nil {
		return nil, nil, err
	}
	warnings := ApplyBudgetFigures(&b, expenses)
	return &b, warnings, nil
}

// ============================================================================
// PAYMENTS
// ============================================================================

func parseDateOrNow(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now().UTC(), nil
	}
	t, _, err := parseBound(raw)
	if err != nil {
		return time.Time{}, invalidArg("%s must be YYYY-MM-DD or RFC 3339", field)
	}
	return t, nil
}

func (s *FinancialService) CreatePayment(ctx context.Context, userID string, req models.CreatePaymentRequest) (*models.Payment, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	clientID, err := ParseID("client_id", req.ClientID)
	if err != nil {
		return nil, err
	}
	budgetID, err := parseOptionalID("budget_id", req.BudgetID)
	if err != nil {
		return nil, err
	}
	if req.Amount.IsNegative() {
		return nil, invalidArg("amount must not be negative")
	}
	status := req.Status
	if status == "" {
		status = models.PaymentPending
	}
	if !status.Valid() {
		return nil, invalidArg("unknown payment status %q", string(status))
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		return nil, invalidArg("currency must be a 3-letter code")
	}
	date, err := parseDateOrNow("payment_date", req.PaymentDate)
	if err != nil {
		return nil, err
	}

	p := &models.Payment{
		ID:          uuid.New().String(),
		ClientID:    clientID,
		BudgetID:    budgetID,
		Amount:      req.Amount,
		Currency:    currency,
		Status:      status,
		PaymentDate: date,
		Description: req.Description,
		CreatedAt:   time.Now(),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO payments (id, client_id, budget_id, amount, currency, status, payment_date, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.ClientID, p.BudgetID, p.Amount, p.Currency, p.Status, p.PaymentDate, p.Description, p.CreatedAt)
	if err != nil {
		return nil, storeErr("create payment", err)
	}
	utils.LogLedgerEntry("payment", p.ID, p.Amount, string(p.Status))
	return p, nil
}

func (s *FinancialService) ListPayments(ctx context.Context, userID string, f LedgerFilter) ([]models.Payment, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	query, args := build(`
		SELECT p.id, p.client_id, p.budget_id, p.amount, p.currency, p.status,
		       p.payment_date, COALESCE(p.description, ''), p.created_at
		FROM payments p`,
		f.predicate("p", "payment_date"), "ORDER BY p.payment_date DESC, p.id")
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list payments", err)
	}
	defer rows.Close()

	payments := []models.Payment{}
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.ClientID, &p.BudgetID, &p.Amount, &p.Currency, &p.Status,
			&p.PaymentDate, &p.Description, &p.CreatedAt); err != nil {
			return nil, storeErr("list payments", err)
		}
		payments = append(payments, p)
	}
	return payments, storeErr("list payments", rows.Err())
}

func (s *FinancialService) UpdatePaymentStatus(ctx context.Context, userID, id, status string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	paymentID, err := ParseID("paymentId", id)
	if err != nil {
		return err
	}
	if !models.PaymentStatus(status).Valid() {
		return invalidArg("unknown payment status %q", status)
	}
	return s.execOne(ctx, "payment", `UPDATE payments SET status = $1 WHERE id = $2`, status, paymentID)
}

// ============================================================================
// EXPENSES
// ============================================================================

func (s *FinancialService) CreateExpense(ctx context.Context, userID string, req models.CreateExpenseRequest) (*models.Expense, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	clientID, err := parseOptionalID("client_id", req.ClientID)
	if err != nil {
		return nil, err
	}
	budgetID, err := parseOptionalID("budget_id", req.BudgetID)
	if err != nil {
		return nil, err
	}
	vendorID, err := parseOptionalID("vendor_id", req.VendorID)
	if err != nil {
		return nil, err
	}
	if req.Amount.IsNegative() {
		return nil, invalidArg("amount must not be negative")
	}
	status := req.Status
	if status == "" {
		status = models.ExpensePending
	}
	if !status.Valid() {
		return nil, invalidArg("unknown expense status %q", string(status))
	}
	date, err := parseDateOrNow("expense_date", req.ExpenseDate)
	if err != nil {
		return nil, err
	}

	// A single insert; the budget's spent amount is derived on read so
	// concurrent inserts cannot lose an update.
	e := &models.Expense{
		ID:          uuid.New().String(),
		ClientID:    clientID,
		BudgetID:    budgetID,
		VendorID:    vendorID,
		Amount:      req.Amount,
		Status:      status,
		ExpenseDate: date,
		Description: req.Description,
		CreatedAt:   time.Now(),
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, client_id, budget_id, vendor_id, amount, status, expense_date, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.ClientID, e.BudgetID, e.VendorID, e.Amount, e.Status, e.ExpenseDate, e.Description, e.CreatedAt)
	if err != nil {
		return nil, storeErr("create expense", err)
	}
	utils.LogLedgerEntry("expense", e.ID, e.Amount, string(e.Status))
	return e, nil
}

func (s *FinancialService) ListExpenses(ctx context.Context, userID string, f LedgerFilter) ([]models.Expense, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	query, args := build(`
		SELECT e.id, e.client_id, e.budget_id, e.vendor_id, e.amount, e.status,
		       e.expense_date, COALESCE(e.description, ''), e.created_at
		FROM expenses e`,
		f.predicate("e", "expense_date"), "ORDER BY e.expense_date DESC, e.id")
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list expenses", err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		var e models.Expense
		if err := rows.Scan(&e.ID, &e.ClientID, &e.BudgetID, &e.VendorID, &e.Amount, &e.Status,
			&e.ExpenseDate, &e.Description, &e.CreatedAt); err != nil {
			return nil, storeErr("list expenses", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, storeErr("list expenses", rows.Err())
}

func (s *FinancialService) UpdateExpenseStatus(ctx context.Context, userID, id, status string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	expenseID, err := ParseID("expenseId", id)
	if err != nil {
		return err
	}
	if !models.ExpenseStatus(status).Valid() {
		return invalidArg("unknown expense status %q", status)
	}
	return s.execOne(ctx, "expense", `UPDATE expenses SET status = $1 WHERE id = $2`, status, expenseID)
}

func (s *FinancialService) DeleteExpense(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	expenseID, err := ParseID("expenseId", id)
	if err != nil {
		return err
	}
	return s.execOne(ctx, "expense", `DELETE FROM expenses WHERE id = $1`, expenseID)
}

// execOne runs a statement that must touch exactly one row.
func (s *FinancialService) execOne(ctx context.Context, what, query string, args ...any) error {
	return execOne(ctx, s.db, what, query, args...)
}

func execOne(ctx context.Context, db *sql.DB, what, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return storeErr("update "+what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("update "+what, err)
	}
	if n == 0 {
		return notFound(what)
	}
	return nil
}
