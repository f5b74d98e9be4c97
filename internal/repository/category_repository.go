package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/storefront-api/internal/model"
)

const categoryColumns = "id, name, parent_id, is_active"

// CategoryRepo encapsulates queries on the categories table.  The tree is
// stored as parent_id links and resolved one id at a time by callers.
type CategoryRepo struct{ db *sqlx.DB }

func NewCategoryRepo(db *sqlx.DB) *CategoryRepo { return &CategoryRepo{db: db} }

// activeCategories is the only place the categories soft-delete filter is spelled out.
func activeCategories(cond string) string {
	return "SELECT " + categoryColumns + " FROM categories WHERE is_active = TRUE AND " + cond
}

// ListActive returns every active category ordered by id.
func (r *CategoryRepo) ListActive(ctx context.Context) ([]model.Category, error) {
	out := []model.Category{}
	if err := sqlx.SelectContext(ctx, ext(ctx, r.db), &out, activeCategories("1=1 ORDER BY id")); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches a category by id whether or not it is active.
func (r *CategoryRepo) Get(ctx context.Context, id uint64) (*model.Category, error) {
	return r.get(ctx, "SELECT "+categoryColumns+" FROM categories WHERE id = ?", id)
}

// GetActive fetches an active category by id.
func (r *CategoryRepo) GetActive(ctx context.Context, id uint64) (*model.Category, error) {
	return r.get(ctx, activeCategories("id = ?"), id)
}

// Create inserts c and sets its ID.
func (r *CategoryRepo) Create(ctx context.Context, c *model.Category) error {
	res, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db),
		"INSERT INTO categories (name, parent_id, is_active) VALUES (:name, :parent_id, :is_active)", c)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}

// Update writes name and parent_id of an active category.
func (r *CategoryRepo) Update(ctx context.Context, c *model.Category) error {
	res, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db),
		"UPDATE categories SET name = :name, parent_id = :parent_id WHERE id = :id AND is_active = TRUE", c)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Deactivate soft-deletes an active category.  Children and products are
// left untouched.
func (r *CategoryRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := ext(ctx, r.db).ExecContext(ctx,
		"UPDATE categories SET is_active = FALSE WHERE id = ? AND is_active = TRUE", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *CategoryRepo) get(ctx context.Context, q string, args ...interface{}) (*model.Category, error) {
	var c model.Category
	if err := sqlx.GetContext(ctx, ext(ctx, r.db), &c, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
