package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/storefront-api/internal/model"
)

const reviewColumns = "id, user_id, product_id, comment, comment_date, grade, is_active"

// ReviewRepo encapsulates queries on the reviews table.  The schema holds a
// unique key on (user_id, product_id, active_marker) where active_marker is
// 1 for active rows and NULL otherwise, so only one active review per user
// and product can exist.
type ReviewRepo struct{ db *sqlx.DB }

func NewReviewRepo(db *sqlx.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// activeReviews is the only place the reviews soft-delete filter is spelled out.
func activeReviews(cond string) string {
	return "SELECT " + reviewColumns + " FROM reviews WHERE is_active = TRUE AND " + cond
}

// ListActive returns every active review ordered by id.
func (r *ReviewRepo) ListActive(ctx context.Context) ([]model.Review, error) {
	return r.list(ctx, activeReviews("1=1 ORDER BY id"))
}

// ListActiveByProduct returns the active reviews of one product.
func (r *ReviewRepo) ListActiveByProduct(ctx context.Context, productID uint64) ([]model.Review, error) {
	return r.list(ctx, activeReviews("product_id = ? ORDER BY id"), productID)
}

// GetActive fetches an active review by id.
func (r *ReviewRepo) GetActive(ctx context.Context, id uint64) (*model.Review, error) {
	var rv model.Review
	if err := sqlx.GetContext(ctx, ext(ctx, r.db), &rv, activeReviews("id = ?"), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rv, nil
}

// HasActive reports whether userID already has an active review of productID.
func (r *ReviewRepo) HasActive(ctx context.Context, userID, productID uint64) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &exists,
		"SELECT EXISTS (SELECT 1 FROM reviews WHERE is_active = TRUE AND user_id = ? AND product_id = ?)",
		userID, productID)
	return exists, err
}

// Create inserts rv and sets its ID.  A second active review for the same
// user and product yields ErrDuplicate.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	if rv.CommentDate.IsZero() {
		rv.CommentDate = time.Now().UTC()
	}
	res, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db),
		`INSERT INTO reviews (user_id, product_id, comment, comment_date, grade, is_active)
		 VALUES (:user_id, :product_id, :comment, :comment_date, :grade, :is_active)`, rv)
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = uint64(id)
	return nil
}

// Deactivate soft-deletes an active review.
func (r *ReviewRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := ext(ctx, r.db).ExecContext(ctx,
		"UPDATE reviews SET is_active = FALSE WHERE id = ? AND is_active = TRUE", id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ActiveGrades returns the grades of the product's active reviews.  Inside
// a transaction the rows are read with a shared lock so the result reflects
// the latest committed state.
func (r *ReviewRepo) ActiveGrades(ctx context.Context, productID uint64) ([]int, error) {
	q := "SELECT grade FROM reviews WHERE is_active = TRUE AND product_id = ?"
	if inTx(ctx) {
		q += " LOCK IN SHARE MODE"
	}
	grades := []int{}
	if err := sqlx.SelectContext(ctx, ext(ctx, r.db), &grades, q, productID); err != nil {
		return nil, err
	}
	return grades, nil
}

func (r *ReviewRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Review, error) {
	out := []model.Review{}
	if err := sqlx.SelectContext(ctx, ext(ctx, r.db), &out, q, args...); err != nil {
		return nil, err
	}
	return out, nil
}
