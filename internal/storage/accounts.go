package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/google/uuid"
)

const accountQuery = `
	SELECT a.id, a.user_id, a.name, a.color, a.currency_code, a.created_at,
		c.id, c.user_id, c.name, c.type, c.parent_id, c.sort_order, c.created_at
	FROM accounts a
	JOIN categories c ON c.id = a.category_id`

// scanAccounts reads joined account rows and closes them. Currencies are
// attached separately by withCurrencies once the rows are released.
func scanAccounts(rows *sql.Rows) ([]model.Account, error) {
	defer func() { _ = rows.Close() }()

	var accounts []model.Account
	for rows.Next() {
		var (
			a       model.Account
			f       categoryFields
			code    string
			created string
		)
		dest := append([]any{&a.ID, &a.UserID, &a.Name, &a.Color, &code, &created}, f.dest()...)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		c, err := f.category()
		if err != nil {
			return nil, fmt.Errorf("failed to scan account category: %w", err)
		}
		a.Category = c
		a.Currency = model.Currency{Code: code}
		if a.CreatedAt, err = parseTimestamp(created); err != nil {
			return nil, fmt.Errorf("%w: account %s has invalid created_at %q: %w", common.ErrDatabaseCorrupted, a.ID, created, err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}
	return accounts, nil
}

// withCurrencies replaces each account's bare currency code with the
// currency definition the user sees. Unknown codes are left bare.
func (s *SQLiteStorage) withCurrencies(ctx context.Context, q queryable, userID string, accounts []model.Account) error {
	if len(accounts) == 0 {
		return nil
	}
	currencies, err := s.listCurrenciesTx(ctx, q, userID)
	if err != nil {
		return err
	}
	byCode := make(map[string]model.Currency, len(currencies))
	for _, c := range currencies {
		byCode[c.Code] = c
	}
	for i := range accounts {
		if c, ok := byCode[accounts[i].Currency.Code]; ok {
			accounts[i].Currency = c
		}
	}
	return nil
}

// ListAccounts returns the user's accounts with their category and currency.
func (s *SQLiteStorage) ListAccounts(ctx context.Context, userID string) ([]model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, accountQuery+`
		WHERE a.user_id = ?
		ORDER BY a.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	accounts, err := scanAccounts(rows)
	if err != nil {
		return nil, err
	}
	if err := s.withCurrencies(ctx, s.db, userID, accounts); err != nil {
		return nil, err
	}
	slog.Debug("retrieved accounts", "count", len(accounts))
	return accounts, nil
}

// GetAccount returns one account, or common.ErrNotFound.
func (s *SQLiteStorage) GetAccount(ctx context.Context, userID, accountID string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return nil, err
	}
	return s.getAccountTx(ctx, s.db, userID, accountID)
}

func (s *SQLiteStorage) getAccountTx(ctx context.Context, q queryable, userID, accountID string) (*model.Account, error) {
	rows, err := q.QueryContext(ctx, accountQuery+`
		WHERE a.user_id = ? AND a.id = ?`, userID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	accounts, err := scanAccounts(rows)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: account %s", common.ErrNotFound, accountID)
	}
	if err := s.withCurrencies(ctx, q, userID, accounts); err != nil {
		return nil, err
	}
	return &accounts[0], nil
}

// CreateAccount files a new account under categoryID, denominated in
// currency. The category and currency must be known to the user.
func (s *SQLiteStorage) CreateAccount(ctx context.Context, userID, name, categoryID, currency string) (*model.Account, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.ErrMissingAccountName
	}
	if err := validateString(categoryID, "categoryID"); err != nil {
		return nil, err
	}
	code := model.NormalizeCurrencyCode(currency)
	if err := validateString(code, "currency"); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getCategoryTx(ctx, tx, userID, categoryID); err != nil {
			return err
		}
		if _, err := s.getCurrencyTx(ctx, tx, userID, code); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (id, user_id, name, category_id, currency_code, color, created_at)
			VALUES (?, ?, ?, ?, ?, '', ?)`,
			id, userID, name, categoryID, code, formatTimestamp(s.now()))
		if err != nil {
			return fmt.Errorf("failed to create account: %w", translate(err, "account "+name))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("created account", "id", id, "name", name, "currency", code)
	return s.GetAccount(ctx, userID, id)
}

// RenameAccount changes an account's display name.
func (s *SQLiteStorage) RenameAccount(ctx context.Context, userID, accountID, name string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.ErrMissingAccountName
	}
	return s.updateAccount(ctx, userID, accountID, "name", name)
}

// RecolorAccount changes an account's display color.
func (s *SQLiteStorage) RecolorAccount(ctx context.Context, userID, accountID, color string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return s.updateAccount(ctx, userID, accountID, "color", strings.TrimSpace(color))
}

func (s *SQLiteStorage) updateAccount(ctx context.Context, userID, accountID, column, value string) error {
	if err := validateString(accountID, "accountID"); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET `+column+` = ? WHERE user_id = ? AND id = ?`,
		value, userID, accountID)
	if err != nil {
		return fmt.Errorf("failed to update account %s: %w", column, translate(err, "account "+value))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: account %s", common.ErrNotFound, accountID)
	}
	return nil
}

// DeleteAccount removes an account that no transaction references.
func (s *SQLiteStorage) DeleteAccount(ctx context.Context, userID, accountID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(accountID, "accountID"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM transactions WHERE account_id = ?`, accountID).Scan(&count); err != nil {
			return fmt.Errorf("failed to count account transactions: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("%w: %d transactions", common.ErrAccountInUse, count)
		}

		result, err := tx.ExecContext(ctx,
			`DELETE FROM accounts WHERE user_id = ? AND id = ?`, userID, accountID)
		if err != nil {
			return fmt.Errorf("failed to delete account: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check delete: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: account %s", common.ErrNotFound, accountID)
		}
		return nil
	})
}
