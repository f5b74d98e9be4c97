package service

import (
	"context"

	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/queue"
)

// Store implementations return repository.ErrNotFound for missing rows and
// repository.ErrDuplicate for unique-key violations.

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetActiveByEmail(ctx context.Context, email string) (*model.User, error)
	UpdatePasswordHash(ctx context.Context, id uint64, hash string) error
}

type CategoryStore interface {
	ListActive(ctx context.Context) ([]model.Category, error)
	Get(ctx context.Context, id uint64) (*model.Category, error)
	GetActive(ctx context.Context, id uint64) (*model.Category, error)
	Create(ctx context.Context, c *model.Category) error
	Update(ctx context.Context, c *model.Category) error
	Deactivate(ctx context.Context, id uint64) error
}

type ProductStore interface {
	ListActive(ctx context.Context) ([]model.Product, error)
	ListActiveByCategory(ctx context.Context, categoryID uint64) ([]model.Product, error)
	GetActive(ctx context.Context, id uint64) (*model.Product, error)
	GetForUpdate(ctx context.Context, id uint64) (*model.Product, error)
	Create(ctx context.Context, p *model.Product) error
	Update(ctx context.Context, p *model.Product) error
	Deactivate(ctx context.Context, id uint64) error
	SetRating(ctx context.Context, id uint64, rating float64) error
}

type ReviewStore interface {
	ListActive(ctx context.Context) ([]model.Review, error)
	ListActiveByProduct(ctx context.Context, productID uint64) ([]model.Review, error)
	GetActive(ctx context.Context, id uint64) (*model.Review, error)
	HasActive(ctx context.Context, userID, productID uint64) (bool, error)
	Create(ctx context.Context, r *model.Review) error
	Deactivate(ctx context.Context, id uint64) error
	ActiveGrades(ctx context.Context, productID uint64) ([]int, error)
}

// TxManager runs fn atomically; stores called with the ctx passed to fn
// take part in the transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher announces committed changes.  Publishing is best effort;
// a failure never undoes the change.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, queue.Event) error { return nil }
