package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bankrec-engine/internal/config"
	"bankrec-engine/pkg/logger"
)

// column types differ per driver; everything else in the schema is shared
var columnTypes = map[string]*strings.Replacer{
	config.DriverPostgres: strings.NewReplacer(
		"{money}", "NUMERIC(15,2)",
		"{float}", "DOUBLE PRECISION",
		"{timestamp}", "TIMESTAMPTZ",
	),
	config.DriverSQLite: strings.NewReplacer(
		"{money}", "TEXT",
		"{float}", "REAL",
		"{timestamp}", "TIMESTAMP",
	),
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS import_batches (
		id                 TEXT PRIMARY KEY,
		venue_id           TEXT NOT NULL,
		filename           TEXT NOT NULL,
		source             TEXT NOT NULL,
		record_count       INTEGER NOT NULL DEFAULT 0,
		duplicates_skipped INTEGER NOT NULL DEFAULT 0,
		errors_count       INTEGER NOT NULL DEFAULT 0,
		imported_by        TEXT NOT NULL DEFAULT '',
		created_at         {timestamp} NOT NULL,
		finalized_at       {timestamp}
	)`,
	`CREATE INDEX IF NOT EXISTS idx_import_batches_venue ON import_batches (venue_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS bank_transactions (
		id                   TEXT PRIMARY KEY,
		venue_id             TEXT NOT NULL,
		transaction_date     DATE NOT NULL,
		value_date           DATE,
		description          TEXT NOT NULL,
		description_hash     TEXT NOT NULL,
		amount               {money} NOT NULL,
		balance_after        {money},
		bank_reference       TEXT NOT NULL,
		import_batch_id      TEXT NOT NULL REFERENCES import_batches (id),
		import_source        TEXT NOT NULL,
		status               TEXT NOT NULL,
		matched_entry_id     TEXT,
		match_confidence     {float},
		suggested_account_id TEXT,
		matched_account_id   TEXT,
		created_at           {timestamp} NOT NULL,
		updated_at           {timestamp} NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_bank_transactions_dedup
		ON bank_transactions (venue_id, transaction_date, amount, description_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_bank_transactions_venue_status ON bank_transactions (venue_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_bank_transactions_venue_date ON bank_transactions (venue_id, transaction_date)`,
	`CREATE INDEX IF NOT EXISTS idx_bank_transactions_entry ON bank_transactions (matched_entry_id)`,

	`CREATE TABLE IF NOT EXISTS reconciliation_rules (
		id                 TEXT PRIMARY KEY,
		direction          TEXT NOT NULL,
		sort_order         INTEGER NOT NULL,
		account_code       TEXT NOT NULL DEFAULT '',
		document_type_code TEXT NOT NULL DEFAULT '',
		payment_type_code  TEXT NOT NULL DEFAULT '',
		target_account_id  TEXT NOT NULL DEFAULT '',
		action             TEXT NOT NULL,
		created_at         {timestamp} NOT NULL,
		updated_at         {timestamp} NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_reconciliation_rules_order
		ON reconciliation_rules (direction, sort_order)`,

	`CREATE TABLE IF NOT EXISTS suppliers (
		id                 TEXT PRIMARY KEY,
		venue_id           TEXT NOT NULL,
		name               TEXT NOT NULL,
		default_account_id TEXT NOT NULL,
		document_type_code TEXT NOT NULL DEFAULT '',
		payment_type_code  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_suppliers_venue ON suppliers (venue_id)`,

	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id          TEXT PRIMARY KEY,
		venue_id    TEXT NOT NULL,
		account_id  TEXT NOT NULL,
		amount      {money} NOT NULL,
		entry_date  DATE NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_lookup ON ledger_entries (venue_id, account_id, amount)`,
}

// Migrate creates the tables the engine owns or mirrors. It is idempotent.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	types, ok := columnTypes[driver]
	if !ok {
		return fmt.Errorf("unsupported database driver %q", driver)
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, types.Replace(stmt)); err != nil {
			logger.GetLogger().WithError(err).Error("Failed to apply schema")
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	logger.GetLogger().WithField("driver", driver).Info("Database schema is up to date")
	return nil
}
