package config

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

func InitDB(dbURL string) (*sql.DB, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`,

		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			totp_secret VARCHAR(255),
			totp_enabled BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			refresh_token VARCHAR(500) UNIQUE NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS clients (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255),
			company VARCHAR(255),
			status VARCHAR(50) DEFAULT 'active',
			created_by UUID REFERENCES users(id) ON DELETE SET NULL,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS vendors (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255),
			category VARCHAR(100),
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		// spent/remaining are derived at read time, never stored.
		`CREATE TABLE IF NOT EXISTS budgets (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			client_id UUID REFERENCES clients(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			total_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS payments (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			client_id UUID NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
			budget_id UUID REFERENCES budgets(id) ON DELETE SET NULL,
			amount NUMERIC(14,2) NOT NULL,
			currency VARCHAR(3) NOT NULL DEFAULT 'USD',
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			payment_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			description TEXT,
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS expenses (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			client_id UUID REFERENCES clients(id) ON DELETE SET NULL,
			budget_id UUID REFERENCES budgets(id) ON DELETE SET NULL,
			vendor_id UUID REFERENCES vendors(id) ON DELETE SET NULL,
			amount NUMERIC(14,2) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			expense_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			description TEXT,
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS calendar_events (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			title VARCHAR(255) NOT NULL,
			description TEXT,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			owner_id UUID REFERENCES users(id) ON DELETE CASCADE,
			is_shared BOOLEAN NOT NULL DEFAULT FALSE,
			client_id UUID REFERENCES clients(id) ON DELETE SET NULL,
			recurrence_rule TEXT,
			created_by UUID REFERENCES users(id) ON DELETE SET NULL,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS tasks (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			title VARCHAR(255) NOT NULL,
			description TEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			priority VARCHAR(10) NOT NULL DEFAULT 'medium',
			due_date TIMESTAMP,
			assignee_id UUID REFERENCES users(id) ON DELETE SET NULL,
			client_id UUID REFERENCES clients(id) ON DELETE SET NULL,
			is_shared BOOLEAN NOT NULL DEFAULT FALSE,
			created_by UUID REFERENCES users(id) ON DELETE SET NULL,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS shared_task_grants (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			task_id UUID NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			grantee_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			permission VARCHAR(10) NOT NULL DEFAULT 'view',
			granted_by UUID REFERENCES users(id) ON DELETE SET NULL,
			created_at TIMESTAMP DEFAULT NOW(),
			UNIQUE(task_id, grantee_id)
		)`,

		`CREATE TABLE IF NOT EXISTS report_jobs (
			id UUID PRIMARY KEY,
			report_type VARCHAR(50) NOT NULL,
			format VARCHAR(10) NOT NULL,
			start_date VARCHAR(40),
			end_date VARCHAR(40),
			data JSONB NOT NULL,
			download_count INTEGER NOT NULL DEFAULT 0,
			created_by UUID REFERENCES users(id) ON DELETE SET NULL,
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS chat_messages (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID REFERENCES users(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS journal_entries (
			id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title VARCHAR(255),
			content TEXT NOT NULL,
			client_id UUID REFERENCES clients(id) ON DELETE SET NULL,
			created_at TIMESTAMP DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_client_date ON payments(client_id, payment_date)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_client_date ON expenses(client_id, expense_date)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_budget_id ON expenses(budget_id)`,
		`CREATE INDEX IF NOT EXISTS idx_calendar_events_owner ON calendar_events(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_calendar_events_start ON calendar_events(start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee_id)`,
		`CREATE INDEX IF NOT EXISTS idx_shared_task_grants_grantee ON shared_task_grants(grantee_id)`,
		`CREATE INDEX IF NOT EXISTS idx_report_jobs_created_at ON report_jobs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_entries_user ON journal_entries(user_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}

	return nil
}
