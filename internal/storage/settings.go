package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

// GetBaseCurrency returns the user's reporting currency, or common.ErrNotFound
// when none has been chosen.
func (s *SQLiteStorage) GetBaseCurrency(ctx context.Context, userID string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(userID, "userID"); err != nil {
		return "", err
	}

	var code string
	err := s.db.QueryRowContext(ctx,
		`SELECT base_currency FROM user_settings WHERE user_id = ?`, userID).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: base currency for user %s", common.ErrNotFound, userID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query base currency: %w", err)
	}
	return code, nil
}

// SetBaseCurrency chooses the user's reporting currency. The currency must
// be known to the user.
func (s *SQLiteStorage) SetBaseCurrency(ctx context.Context, userID, code string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}
	code = model.NormalizeCurrencyCode(code)
	if err := validateString(code, "currency"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.getCurrencyTx(ctx, tx, userID, code); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO user_settings (user_id, base_currency, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(user_id) DO UPDATE SET
				base_currency = excluded.base_currency,
				updated_at = excluded.updated_at`,
			userID, code, formatTimestamp(s.now()))
		if err != nil {
			return fmt.Errorf("failed to save base currency: %w", err)
		}
		return nil
	})
}
