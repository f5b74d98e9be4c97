package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/storefront-api/internal/model"
)

const userColumns = "id, email, password_hash, role, is_active, created_at"

type UserRepo struct{ db *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// activeUsers is the only place the users soft-delete filter is spelled out.
func activeUsers(cond string) string {
	return "SELECT " + userColumns + " FROM users WHERE is_active = TRUE AND " + cond
}

// Create inserts u and sets its ID.  A duplicate email, active or not,
// yields ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	res, err := ext(ctx, r.db).ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, is_active, created_at) VALUES (?,?,?,?,?)",
		u.Email, u.PasswordHash, u.Role, u.IsActive, u.CreatedAt)
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
	u.ID = uint64(id)
	return nil
}

// GetByEmail fetches a user by normalized email regardless of is_active.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.get(ctx, "SELECT "+userColumns+" FROM users WHERE email = ? LIMIT 1", normEmail(email))
}

// GetActiveByEmail fetches an active user by normalized email.
func (r *UserRepo) GetActiveByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.get(ctx, activeUsers("email = ? LIMIT 1"), normEmail(email))
}

// UpdatePasswordHash replaces the stored hash, used when upgrading legacy hashes.
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id uint64, hash string) error {
	res, err := ext(ctx, r.db).ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", hash, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *UserRepo) get(ctx context.Context, q string, args ...interface{}) (*model.User, error) {
	var u model.User
	if err := sqlx.GetContext(ctx, ext(ctx, r.db), &u, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func normEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// requireAffected maps a zero rows-affected result to ErrNotFound.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
