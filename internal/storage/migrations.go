package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

// seedCurrencies are the global currencies every database starts with.
// Symbols and precision come from the ISO 4217 table.
var seedCurrencies = []struct {
	Code string
	Name string
}{
	{"AUD", "Australian Dollar"},
	{"BRL", "Brazilian Real"},
	{"CAD", "Canadian Dollar"},
	{"CHF", "Swiss Franc"},
	{"CNY", "Chinese Yuan"},
	{"CZK", "Czech Koruna"},
	{"DKK", "Danish Krone"},
	{"EUR", "Euro"},
	{"GBP", "British Pound"},
	{"HKD", "Hong Kong Dollar"},
	{"INR", "Indian Rupee"},
	{"JPY", "Japanese Yen"},
	{"KRW", "South Korean Won"},
	{"KWD", "Kuwaiti Dinar"},
	{"MXN", "Mexican Peso"},
	{"NOK", "Norwegian Krone"},
	{"NZD", "New Zealand Dollar"},
	{"PLN", "Polish Zloty"},
	{"SEK", "Swedish Krona"},
	{"SGD", "Singapore Dollar"},
	{"THB", "Thai Baht"},
	{"TWD", "New Taiwan Dollar"},
	{"USD", "US Dollar"},
	{"ZAR", "South African Rand"},
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial ledger schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS currencies (
					code TEXT NOT NULL,
					user_id TEXT NOT NULL DEFAULT '',
					name TEXT NOT NULL,
					symbol TEXT NOT NULL DEFAULT '',
					decimal_places INTEGER NOT NULL DEFAULT 2,
					PRIMARY KEY (code, user_id)
				)`,

				`CREATE TABLE IF NOT EXISTS user_settings (
					user_id TEXT PRIMARY KEY,
					base_currency TEXT NOT NULL,
					updated_at TEXT NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS categories (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					name TEXT NOT NULL,
					type TEXT NOT NULL DEFAULT '',
					parent_id TEXT REFERENCES categories(id),
					sort_order INTEGER,
					created_at TEXT NOT NULL
				)`,
				`CREATE INDEX idx_categories_user ON categories(user_id)`,

				`CREATE TABLE IF NOT EXISTS accounts (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					name TEXT NOT NULL,
					category_id TEXT NOT NULL REFERENCES categories(id),
					currency_code TEXT NOT NULL,
					color TEXT NOT NULL DEFAULT '',
					created_at TEXT NOT NULL,
					UNIQUE (user_id, name)
				)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					seq INTEGER PRIMARY KEY AUTOINCREMENT,
					id TEXT UNIQUE NOT NULL,
					user_id TEXT NOT NULL,
					account_id TEXT NOT NULL REFERENCES accounts(id),
					type TEXT NOT NULL,
					amount TEXT NOT NULL,
					currency_code TEXT NOT NULL DEFAULT '',
					date TEXT NOT NULL,
					description TEXT NOT NULL,
					notes TEXT NOT NULL DEFAULT '',
					created_at TEXT NOT NULL
				)`,
				`CREATE INDEX idx_transactions_user_date ON transactions(user_id, date)`,
				`CREATE INDEX idx_transactions_account ON transactions(account_id)`,

				`CREATE TABLE IF NOT EXISTS transaction_tags (
					transaction_id TEXT NOT NULL REFERENCES transactions(id) ON DELETE CASCADE,
					tag TEXT NOT NULL,
					PRIMARY KEY (transaction_id, tag)
				)`,

				`CREATE TABLE IF NOT EXISTS exchange_rates (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL DEFAULT '',
					from_currency TEXT NOT NULL,
					to_currency TEXT NOT NULL,
					rate TEXT NOT NULL,
					effective_date TEXT NOT NULL,
					source TEXT NOT NULL,
					created_at TEXT NOT NULL
				)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Seed global ISO currencies",
		Up: func(tx *sql.Tx) error {
			stmt, err := tx.Prepare(`
				INSERT OR IGNORE INTO currencies (code, user_id, name, symbol, decimal_places)
				VALUES (?, '', ?, ?, ?)`)
			if err != nil {
				return fmt.Errorf("failed to prepare statement: %w", err)
			}
			defer func() { _ = stmt.Close() }()

			for _, seed := range seedCurrencies {
				iso, ok := model.ISOCurrency(seed.Code)
				if !ok {
					return fmt.Errorf("currency %s missing from ISO table", seed.Code)
				}
				if _, err := stmt.Exec(iso.Code, seed.Name, iso.Symbol, iso.DecimalPlaces); err != nil {
					return fmt.Errorf("failed to seed currency %s: %w", seed.Code, err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Index exchange rates for as-of lookups",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE INDEX IF NOT EXISTS idx_exchange_rates_lookup
					ON exchange_rates(user_id, effective_date)`,
				`CREATE INDEX IF NOT EXISTS idx_exchange_rates_pair
					ON exchange_rates(from_currency, to_currency)`,
			})
		},
	},
}

// Migrate brings the schema up to ExpectedSchemaVersion, one transaction per
// migration.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			rollback(ctx, tx, migration.Version)
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			rollback(ctx, tx, migration.Version)
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		common.LogInfo(ctx, "Applied migration", common.Fields{
			"version":     migration.Version,
			"description": migration.Description,
		})
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

func rollback(ctx context.Context, tx *sql.Tx, version int) {
	if err := tx.Rollback(); err != nil {
		common.LogError(ctx, err, "Failed to roll back migration", common.Fields{"version": version})
	}
}

// SchemaVersion returns the version recorded in the database header.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
