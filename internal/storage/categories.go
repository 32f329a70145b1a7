package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/google/uuid"
)

const categoryColumns = `id, user_id, name, type, parent_id, sort_order, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// categoryFields receives the category columns of a row, alone or as part
// of a join.
type categoryFields struct {
	parentID  sql.NullString
	sortOrder sql.NullInt64
	id        string
	userID    string
	name      string
	typ       string
	created   string
}

func (f *categoryFields) dest() []any {
	return []any{&f.id, &f.userID, &f.name, &f.typ, &f.parentID, &f.sortOrder, &f.created}
}

func (f *categoryFields) category() (model.Category, error) {
	c := model.Category{
		ID:     f.id,
		UserID: f.userID,
		Name:   f.name,
		Type:   model.AccountType(f.typ),
	}
	if f.parentID.Valid {
		parent := f.parentID.String
		c.ParentID = &parent
	}
	if f.sortOrder.Valid {
		order := int(f.sortOrder.Int64)
		c.Order = &order
	}
	createdAt, err := parseTimestamp(f.created)
	if err != nil {
		return model.Category{}, fmt.Errorf("%w: category %s has invalid created_at %q: %w", common.ErrDatabaseCorrupted, f.id, f.created, err)
	}
	c.CreatedAt = createdAt
	return c, nil
}

func scanCategory(row rowScanner) (model.Category, error) {
	var f categoryFields
	if err := row.Scan(f.dest()...); err != nil {
		return model.Category{}, err
	}
	return f.category()
}

// ListCategories returns the user's categories ordered for display.
func (s *SQLiteStorage) ListCategories(ctx context.Context, userID string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE user_id = ?
		ORDER BY sort_order IS NULL, sort_order, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

func (s *SQLiteStorage) getCategoryTx(ctx context.Context, q queryable, userID, id string) (*model.Category, error) {
	c, err := scanCategory(q.QueryRowContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE user_id = ? AND id = ?`, userID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", common.ErrUnknownCategory, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return &c, nil
}

// CreateCategory stores a category. ID and CreatedAt are filled in when
// empty. A parent must belong to the same user.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}

	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = s.now()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var parentID any
		if category.ParentID != nil && *category.ParentID != "" {
			if _, err := s.getCategoryTx(ctx, tx, category.UserID, *category.ParentID); err != nil {
				return err
			}
			parentID = *category.ParentID
		}
		var order any
		if category.Order != nil {
			order = *category.Order
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO categories (`+categoryColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			category.ID, category.UserID, category.Name, string(category.Type),
			parentID, order, formatTimestamp(category.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to create category: %w", translate(err, "category "+category.Name))
		}

		slog.Debug("created category", "id", category.ID, "name", category.Name, "type", category.Type)
		return nil
	})
}
