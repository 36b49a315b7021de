package services

import (
	"fmt"
	"time"

	"github.com/LovationAdmin/crm-api/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LedgerEntry is a payment or expense row as read from the store. Amount is
// kept raw so a malformed value can be reported instead of silently zeroed.
type LedgerEntry struct {
	ID       string
	ClientID string
	BudgetID string
	VendorID string
	Amount   string
	Currency string
	Status   string
	Date     time.Time
}

// Metrics is the canonical financial reduction. Only ProfitMargin is rounded.
type Metrics struct {
	TotalRevenue  decimal.Decimal             `json:"totalRevenue"`
	TotalExpenses decimal.Decimal             `json:"totalExpenses"`
	NetProfit     decimal.Decimal             `json:"netProfit"`
	ProfitMargin  decimal.Decimal             `json:"profitMargin"`
	Warnings      []models.DataQualityWarning `json:"warnings,omitempty"`
}

// ParseAmount parses a stored amount. The error names the offending record.
func ParseAmount(e LedgerEntry) (decimal.Decimal, *models.DataQualityWarning) {
	d, err := decimal.NewFromString(e.Amount)
	if err != nil {
		return decimal.Zero, &models.DataQualityWarning{
			RecordID: e.ID,
			Kind:     "malformed_amount",
			Field:    "amount",
			Value:    e.Amount,
			Message:  fmt.Sprintf("amount %q is not a number, counted as 0", e.Amount),
		}
	}
	return d, nil
}

// SumRealized adds the amounts of entries whose status equals realized.
// Other statuses never contribute, malformed amounts contribute 0.
func SumRealized(entries []LedgerEntry, realized string) (decimal.Decimal, []models.DataQualityWarning) {
	total := decimal.Zero
	var warnings []models.DataQualityWarning
	for _, e := range entries {
		if e.Status != realized {
			continue
		}
		amount, w := ParseAmount(e)
		if w != nil {
			warnings = append(warnings, *w)
			continue
		}
		total = total.Add(amount)
	}
	return total, warnings
}

// ProfitMargin is profit/revenue*100, or 0 when there is no revenue.
func ProfitMargin(profit, revenue decimal.Decimal) decimal.Decimal {
	if !revenue.IsPositive() {
		return decimal.Zero
	}
	return profit.Div(revenue).Mul(hundred).Round(2)
}

// ROI is profit/expenses*100, or 0 when nothing was spent.
func ROI(profit, expenses decimal.Decimal) decimal.Decimal {
	if !expenses.IsPositive() {
		return decimal.Zero
	}
	return profit.Div(expenses).Mul(hundred).Round(2)
}

// Aggregate reduces completed payments and approved expenses.
func Aggregate(payments, expenses []LedgerEntry) Metrics {
	revenue, pw := SumRealized(payments, string(models.PaymentCompleted))
	spent, ew := SumRealized(expenses, string(models.ExpenseApproved))
	profit := revenue.Sub(spent)
	return Metrics{
		TotalRevenue:  revenue,
		TotalExpenses: spent,
		NetProfit:     profit,
		ProfitMargin:  ProfitMargin(profit, revenue),
		Warnings:      append(pw, ew...),
	}
}

// FilterEntries keeps entries for clientID (any client when empty) whose
// date falls in w.
func FilterEntries(entries []LedgerEntry, clientID string, w Window) []LedgerEntry {
	out := make([]LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if clientID != "" && e.ClientID != clientID {
			continue
		}
		if !w.Contains(e.Date) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ApplyBudgetFigures derives spent and remaining from the approved expenses
// that reference b.
func ApplyBudgetFigures(b *models.Budget, expenses []LedgerEntry) []models.DataQualityWarning {
	own := make([]LedgerEntry, 0, len(expenses))
	for _, e := range expenses {
		if e.BudgetID == b.ID {
			own = append(own, e)
		}
	}
	spent, warnings := SumRealized(own, string(models.ExpenseApproved))
	b.SpentAmount = spent
	b.RemainingAmount = b.TotalAmount.Sub(spent)
	return warnings
}
