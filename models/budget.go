package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Budget carries the stored total only. SpentAmount and RemainingAmount are
// filled at read time from approved expenses.
type Budget struct {
	ID              string          `json:"id"`
	ClientID        string          `json:"client_id"`
	ClientName      string          `json:"client_name,omitempty"`
	Name            string          `json:"name"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	SpentAmount     decimal.Decimal `json:"spent_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type CreateBudgetRequest struct {
	ClientID    string          `json:"client_id" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}
