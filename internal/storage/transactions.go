package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaveTransactions stores transactions in one database transaction. Missing
// IDs and creation times are filled in on the caller's slice. Every
// transaction must be valid and reference an existing account.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	now := s.now()
	for i := range transactions {
		if transactions[i].ID == "" {
			transactions[i].ID = uuid.NewString()
		}
		if transactions[i].CreatedAt.IsZero() {
			transactions[i].CreatedAt = now
		}
		transactions[i].Currency = model.NormalizeCurrencyCode(transactions[i].Currency)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.saveTransactionsTx(ctx, tx, transactions)
	})
}

func (s *SQLiteStorage) saveTransactionsTx(ctx context.Context, tx *sql.Tx, transactions []model.Transaction) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			id, user_id, account_id, type, amount, currency_code,
			date, description, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	tagStmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transaction_tags (transaction_id, tag) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare tag statement: %w", err)
	}
	defer func() { _ = tagStmt.Close() }()

	for i := range transactions {
		txn := &transactions[i]
		if err := accountExistsTx(ctx, tx, txn.UserID, txn.AccountID); err != nil {
			return fmt.Errorf("transaction %s: %w", txn.ID, err)
		}

		result, err := stmt.ExecContext(ctx,
			txn.ID,
			txn.UserID,
			txn.AccountID,
			string(txn.Type),
			txn.Amount.String(),
			txn.Currency,
			model.DateOnly(txn.Date).Format(model.DateLayout),
			txn.Description,
			txn.Notes,
			formatTimestamp(txn.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, translate(err, "transaction "+txn.ID))
		}
		if seq, err := result.LastInsertId(); err == nil {
			txn.Seq = seq
		}

		for _, tag := range txn.Tags {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			if _, err := tagStmt.ExecContext(ctx, txn.ID, tag); err != nil {
				return fmt.Errorf("failed to tag transaction %s: %w", txn.ID, err)
			}
		}
	}

	slog.Debug("saved transactions", "count", len(transactions))
	return nil
}

// accountExistsTx confirms the account exists for the user.
func accountExistsTx(ctx context.Context, q queryable, userID, accountID string) error {
	var id string
	err := q.QueryRowContext(ctx,
		`SELECT id FROM accounts WHERE user_id = ? AND id = ?`, userID, accountID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", common.ErrUnknownAccount, accountID)
	}
	if err != nil {
		return fmt.Errorf("failed to query account: %w", err)
	}
	return nil
}

// ListTransactions returns the user's transactions matching filter, oldest
// first in ledger order (date, creation time, insertion sequence).
func (s *SQLiteStorage) ListTransactions(ctx context.Context, userID string, filter service.TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if filter.StartDate != nil {
		where = append(where, "date >= ?")
		args = append(args, model.DateOnly(*filter.StartDate).Format(model.DateLayout))
	}
	if filter.EndDate != nil {
		where = append(where, "date <= ?")
		args = append(args, model.DateOnly(*filter.EndDate).Format(model.DateLayout))
	}
	if len(filter.AccountIDs) > 0 {
		where = append(where, "account_id IN (?"+strings.Repeat(", ?", len(filter.AccountIDs)-1)+")")
		for _, id := range filter.AccountIDs {
			args = append(args, id)
		}
	}

	query := `
		SELECT seq, id, user_id, account_id, type, amount, currency_code,
			date, description, notes, created_at
		FROM transactions
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY date, created_at, seq`
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	transactions, err := scanTransactions(rows)
	if err != nil {
		return nil, err
	}

	if err := s.attachTags(ctx, userID, transactions); err != nil {
		return nil, err
	}

	slog.Debug("retrieved transactions", "count", len(transactions))
	return transactions, nil
}

func scanTransactions(rows *sql.Rows) ([]model.Transaction, error) {
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		var (
			txn     model.Transaction
			typ     string
			amount  string
			date    string
			created string
		)
		if err := rows.Scan(&txn.Seq, &txn.ID, &txn.UserID, &txn.AccountID, &typ, &amount,
			&txn.Currency, &date, &txn.Description, &txn.Notes, &created); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txn.Type = model.TransactionType(typ)

		var err error
		if txn.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("%w: transaction %s has invalid amount %q: %w", common.ErrDatabaseCorrupted, txn.ID, amount, err)
		}
		if txn.Date, err = model.ParseDate(date); err != nil {
			return nil, fmt.Errorf("%w: transaction %s has invalid date %q: %w", common.ErrDatabaseCorrupted, txn.ID, date, err)
		}
		if txn.CreatedAt, err = parseTimestamp(created); err != nil {
			return nil, fmt.Errorf("%w: transaction %s has invalid created_at %q: %w", common.ErrDatabaseCorrupted, txn.ID, created, err)
		}
		transactions = append(transactions, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

func (s *SQLiteStorage) attachTags(ctx context.Context, userID string, transactions []model.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT tt.transaction_id, tt.tag
		FROM transaction_tags tt
		JOIN transactions t ON t.id = tt.transaction_id
		WHERE t.user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to query transaction tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tags := make(map[string][]string)
	for rows.Next() {
		var id, tag string
		if err := rows.Scan(&id, &tag); err != nil {
			return fmt.Errorf("failed to scan transaction tag: %w", err)
		}
		tags[id] = append(tags[id], tag)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating transaction tags: %w", err)
	}

	for i := range transactions {
		if t := tags[transactions[i].ID]; len(t) > 0 {
			sort.Strings(t)
			transactions[i].Tags = t
		}
	}
	return nil
}
