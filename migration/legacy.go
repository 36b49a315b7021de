// migration/legacy.go
// Repairs rows written before the current schema rules existed.
//
// USAGE: RunAll(ctx, db) is called from main after config.RunMigrations.
// Every step is idempotent.

package migration

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/LovationAdmin/crm-api/utils"
)

const ownershipConstraint = "calendar_events_ownership"

// ResolveOwnership returns the (is_shared, owner) pair a legacy event should
// have. A shared event loses its owner; an ownerless personal event goes to
// its creator, or becomes shared when there is no creator either.
func ResolveOwnership(isShared bool, owner, createdBy *string) (bool, *string) {
	if isShared {
		return true, nil
	}
	if owner != nil {
		return false, owner
	}
	if createdBy != nil {
		return false, createdBy
	}
	return true, nil
}

// NormalizeEventOwnership fixes events violating "shared XOR owned" and then
// installs the CHECK constraint that keeps them fixed.
func NormalizeEventOwnership(ctx context.Context, db *sql.DB) (int64, error) {
	var fixed int64
	err := utils.WithTransaction(db, func(tx *sql.Tx) error {
		steps := []string{
			`UPDATE calendar_events SET owner_id = NULL
			 WHERE is_shared = TRUE AND owner_id IS NOT NULL`,
			`UPDATE calendar_events SET owner_id = created_by
			 WHERE is_shared = FALSE AND owner_id IS NULL AND created_by IS NOT NULL`,
			`UPDATE calendar_events SET is_shared = TRUE
			 WHERE is_shared = FALSE AND owner_id IS NULL`,
		}
		for _, q := range steps {
			res, err := tx.ExecContext(ctx, q)
			if err != nil {
				return err
			}
			n, _ := res.RowsAffected()
			fixed += n
		}

		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = $1)`, ownershipConstraint,
		).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return nil
		}
		_, err := tx.ExecContext(ctx, fmt.Sprintf(`
			ALTER TABLE calendar_events ADD CONSTRAINT %s
			CHECK ((is_shared AND owner_id IS NULL) OR (NOT is_shared AND owner_id IS NOT NULL))`,
			ownershipConstraint))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("normalize event ownership: %w", err)
	}
	return fixed, nil
}

// DropStoredBudgetSpend removes the stored spent/remaining columns of older
// schemas. Both figures are derived from approved expenses on read.
func DropStoredBudgetSpend(ctx context.Context, db *sql.DB) error {
	for _, q := range []string{
		`DROP VIEW IF EXISTS budget_balances`,
		`ALTER TABLE budgets DROP COLUMN IF EXISTS spent_amount`,
		`ALTER TABLE budgets DROP COLUMN IF EXISTS remaining_amount`,
	} {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("drop stored budget spend: %w", err)
		}
	}
	return nil
}

// ledgerDateColumns were created as TIMESTAMP by older schemas.
var ledgerDateColumns = []struct{ table, column string }{
	{"payments", "payment_date"},
	{"expenses", "expense_date"},
}

// PromoteLedgerDates converts ledger dates to TIMESTAMPTZ. Stored values
// are read as UTC wall clock. Columns already carrying a zone are skipped.
func PromoteLedgerDates(ctx context.Context, db *sql.DB) (int, error) {
	promoted := 0
	for _, c := range ledgerDateColumns {
		var dataType string
		err := db.QueryRowContext(ctx, `
			SELECT data_type FROM information_schema.columns
			WHERE table_name = $1 AND column_name = $2`, c.table, c.column).Scan(&dataType)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return promoted, fmt.Errorf("promote ledger dates: %w", err)
		}
		if dataType != "timestamp without time zone" {
			continue
		}
		if _, err := db.ExecContext(ctx, fmt.Sprintf(
			`ALTER TABLE %[1]s ALTER COLUMN %[2]s TYPE TIMESTAMPTZ USING %[2]s AT TIME ZONE 'UTC'`,
			c.table, c.column)); err != nil {
			return promoted, fmt.Errorf("promote %s.%s: %w", c.table, c.column, err)
		}
		promoted++
	}
	return promoted, nil
}

func RunAll(ctx context.Context, db *sql.DB) error {
	fixed, err := NormalizeEventOwnership(ctx, db)
	if err != nil {
		return err
	}
	if fixed > 0 {
		utils.SafeInfo("migration: normalized ownership of %d events", fixed)
	}
	if err := DropStoredBudgetSpend(ctx, db); err != nil {
		return err
	}
	promoted, err := PromoteLedgerDates(ctx, db)
	if err != nil {
		return err
	}
	if promoted > 0 {
		utils.SafeInfo("migration: %d ledger date columns now carry a time zone", promoted)
	}
	return nil
}
