package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentCancelled:
		return true
	}
	return false
}

type ExpenseStatus string

const (
	ExpensePending  ExpenseStatus = "pending"
	ExpenseApproved ExpenseStatus = "approved"
	ExpenseRejected ExpenseStatus = "rejected"
)

func (s ExpenseStatus) Valid() bool {
	switch s {
	case ExpensePending, ExpenseApproved, ExpenseRejected:
		return true
	}
	return false
}

type Payment struct {
	ID          string          `json:"id"`
	ClientID    string          `json:"client_id"`
	BudgetID    *string         `json:"budget_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      PaymentStatus   `json:"status"`
	PaymentDate time.Time       `json:"payment_date"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type CreatePaymentRequest struct {
	ClientID    string          `json:"client_id" binding:"required"`
	BudgetID    *string         `json:"budget_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      PaymentStatus   `json:"status"`
	PaymentDate string          `json:"payment_date"`
	Description string          `json:"description"`
}

type Expense struct {
	ID          string          `json:"id"`
	ClientID    *string         `json:"client_id,omitempty"`
	BudgetID    *string         `json:"budget_id,omitempty"`
	VendorID    *string         `json:"vendor_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Status      ExpenseStatus   `json:"status"`
	ExpenseDate time.Time       `json:"expense_date"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type CreateExpenseRequest struct {
	ClientID    *string         `json:"client_id"`
	BudgetID    *string         `json:"budget_id"`
	VendorID    *string         `json:"vendor_id"`
	Amount      decimal.Decimal `json:"amount"`
	Status      ExpenseStatus   `json:"status"`
	ExpenseDate string          `json:"expense_date"`
	Description string          `json:"description"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}
