package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/storefront-api/internal/model"
)

const productColumns = "id, name, description, price, image_url, stock, is_active, rating, category_id, seller_id"

// ProductRepo encapsulates queries on the products table.
type ProductRepo struct{ db *sqlx.DB }

func NewProductRepo(db *sqlx.DB) *ProductRepo { return &ProductRepo{db: db} }

// activeProducts is the only place the products soft-delete filter is spelled out.
func activeProducts(cond string) string {
	return "SELECT " + productColumns + " FROM products WHERE is_active = TRUE AND " + cond
}

// ListActive returns every active product ordered by id.
func (r *ProductRepo) ListActive(ctx context.Context) ([]model.Product, error) {
	return r.list(ctx, activeProducts("1=1 ORDER BY id"))
}

// ListActiveByCategory returns the active products of one category.
func (r *ProductRepo) ListActiveByCategory(ctx context.Context, categoryID uint64) ([]model.Product, error) {
	return r.list(ctx, activeProducts("category_id = ? ORDER BY id"), categoryID)
}

// GetActive fetches an active product by id.
func (r *ProductRepo) GetActive(ctx context.Context, id uint64) (*model.Product, error) {
	return r.get(ctx, activeProducts("id = ?"), id)
}

// GetForUpdate fetches a product by id regardless of is_active and, inside
// a transaction, locks its row until commit.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id uint64) (*model.Product, error) {
	q := "SELECT " + productColumns + " FROM products WHERE id = ?"
	if inTx(ctx) {
		q += " FOR UPDATE"
	}
	return r.get(ctx, q, id)
}

// Create inserts p and sets its ID.  Rating starts at zero.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	p.Rating = 0
	res, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db),
		`INSERT INTO products (name, description, price, image_url, stock, is_active, rating, category_id, seller_id)
		 VALUES (:name, :description, :price, :image_url, :stock, :is_active, :rating, :category_id, :seller_id)`, p)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// Update writes the seller-editable columns of an active product.  Rating,
// seller and is_active are never touched here.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	res, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db),
		`UPDATE products SET name = :name, description = :description, price = :price,
		 image_url = :image_url, stock = :stock, category_id = :category_id
		 WHERE id = :id AND is_active = TRUE`, p)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// Deactivate soft-deletes an active product.
func (r *ProductRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := ext(ctx, r.db).ExecContext(ctx,
		"UPDATE products SET is_active = FALSE WHERE id = ? AND is_active = TRUE", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// SetRating stores the derived rating.
func (r *ProductRepo) SetRating(ctx context.Context, id uint64, rating float64) error {
	res, err := ext(ctx, r.db).ExecContext(ctx, "UPDATE products SET rating = ? WHERE id = ?", rating, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *ProductRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Product, error) {
	out := []model.Product{}
	if err := sqlx.SelectContext(ctx, ext(ctx, r.db), &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ProductRepo) get(ctx context.Context, q string, args ...interface{}) (*model.Product, error) {
	var p model.Product
	if err := sqlx.GetContext(ctx, ext(ctx, r.db), &p, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
