package migration

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestResolveOwnership(t *testing.T) {
	alice, bob := "alice", "bob"
	tests := []struct {
		name       string
		shared     bool
		owner      *string
		createdBy  *string
		wantShared bool
		wantOwner  *string
	}{
		{"shared keeps no owner", true, &alice, &bob, true, nil},
		{"personal keeps owner", false, &alice, &bob, false, &alice},
		{"ownerless goes to creator", false, nil, &bob, false, &bob},
		{"orphan becomes shared", false, nil, nil, true, nil},
	}
	for _, tt := range tests {
		shared, owner := ResolveOwnership(tt.shared, tt.owner, tt.createdBy)
		if shared != tt.wantShared {
			t.Errorf("%s: shared = %v", tt.name, shared)
		}
		if (owner == nil) != (tt.wantOwner == nil) || (owner != nil && *owner != *tt.wantOwner) {
			t.Errorf("%s: owner = %v", tt.name, owner)
		}
		if shared == (owner != nil) {
			t.Errorf("%s: result is not exactly one of shared or owned", tt.name)
		}
	}
}

func TestNormalizeEventOwnershipAddsConstraintOnce(t *testing.T) {
	for _, exists := range []bool{false, true} {
		db, mock, err := sqlmock.New()
		if err != nil {
			t.Fatal(err)
		}

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("SET owner_id = NULL")).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(regexp.QuoteMeta("SET owner_id = created_by")).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("SET is_shared = TRUE")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("FROM pg_constraint")).WithArgs(ownershipConstraint).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(exists))
		if !exists {
			mock.ExpectExec(regexp.QuoteMeta("ADD CONSTRAINT " + ownershipConstraint)).
				WillReturnResult(sqlmock.NewResult(0, 0))
		}
		mock.ExpectCommit()

		fixed, err := NormalizeEventOwnership(context.Background(), db)
		if err != nil {
			t.Fatalf("exists=%v: %v", exists, err)
		}
		if fixed != 3 {
			t.Errorf("exists=%v: fixed = %d", exists, fixed)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("exists=%v: %v", exists, err)
		}
		db.Close()
	}
}

func TestDropStoredBudgetSpend(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("DROP VIEW IF EXISTS budget_balances")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DROP COLUMN IF EXISTS spent_amount")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DROP COLUMN IF EXISTS remaining_amount")).WillReturnResult(sqlmock.NewResult(0, 0))
	if err := DropStoredBudgetSpend(context.Background(), db); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestPromoteLedgerDates(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM information_schema.columns").WithArgs("payments", "payment_date").
		WillReturnRows(sqlmock.NewRows([]string{"data_type"}).AddRow("timestamp without time zone"))
	mock.ExpectExec(regexp.QuoteMeta(
		"ALTER TABLE payments ALTER COLUMN payment_date TYPE TIMESTAMPTZ USING payment_date AT TIME ZONE 'UTC'")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM information_schema.columns").WithArgs("expenses", "expense_date").
		WillReturnRows(sqlmock.NewRows([]string{"data_type"}).AddRow("timestamp with time zone"))

	promoted, err := PromoteLedgerDates(context.Background(), db)
	if err != nil {
		t.Fatal(err)
	}
	if promoted != 1 {
		t.Errorf("promoted = %d, want 1", promoted)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
