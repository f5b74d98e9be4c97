package repository_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-api/internal/database"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/repository"
	"github.com/iliyamo/storefront-api/internal/service"
)

// openTestDB connects to the MySQL named by TEST_DB_* and applies the
// migrations.  Without TEST_DB_HOST the test is skipped.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set")
	}
	port := os.Getenv("TEST_DB_PORT")
	if port == "" {
		port = "3306"
	}
	db, err := database.Open(os.Getenv("TEST_DB_USER"), os.Getenv("TEST_DB_PASS"), host, port, os.Getenv("TEST_DB_NAME"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db, zap.NewNop()))
	return db
}

type fixture struct {
	users      *repository.UserRepo
	categories *repository.CategoryRepo
	products   *repository.ProductRepo
	reviews    *repository.ReviewRepo
	tx         *repository.TxManager
}

func newFixture(db *sqlx.DB) fixture {
	return fixture{
		users:      repository.NewUserRepo(db),
		categories: repository.NewCategoryRepo(db),
		products:   repository.NewProductRepo(db),
		reviews:    repository.NewReviewRepo(db),
		tx:         repository.NewTxManager(db),
	}
}

func (f fixture) user(t *testing.T, role model.Role) *model.User {
	t.Helper()
	u := &model.User{Email: uuid.NewString() + "@test.local", PasswordHash: "x", Role: role, IsActive: true}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f fixture) product(t *testing.T) *model.Product {
	t.Helper()
	ctx := context.Background()
	c := &model.Category{Name: "it-" + uuid.NewString()[:8], IsActive: true}
	require.NoError(t, f.categories.Create(ctx, c))
	p := &model.Product{Name: "Kettle", Price: 10, Stock: 1, IsActive: true, CategoryID: c.ID, SellerID: f.user(t, model.RoleSeller).ID}
	require.NoError(t, f.products.Create(ctx, p))
	return p
}

func TestMySQLActiveReviewUniqueKey(t *testing.T) {
	f := newFixture(openTestDB(t))
	ctx := context.Background()
	p := f.product(t)
	buyer := f.user(t, model.RoleBuyer)

	first := &model.Review{UserID: buyer.ID, ProductID: p.ID, Grade: 5, IsActive: true}
	require.NoError(t, f.reviews.Create(ctx, first))
	err := f.reviews.Create(ctx, &model.Review{UserID: buyer.ID, ProductID: p.ID, Grade: 2, IsActive: true})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	require.NoError(t, f.reviews.Deactivate(ctx, first.ID))
	assert.ErrorIs(t, f.reviews.Deactivate(ctx, first.ID), repository.ErrNotFound)
	require.NoError(t, f.reviews.Create(ctx, &model.Review{UserID: buyer.ID, ProductID: p.ID, Grade: 2, IsActive: true}))

	// the same rating written twice still matches its row
	require.NoError(t, f.products.SetRating(ctx, p.ID, 2))
	require.NoError(t, f.products.SetRating(ctx, p.ID, 2))

	_, err = f.users.GetByEmail(ctx, buyer.Email)
	require.NoError(t, err)
	assert.ErrorIs(t, f.users.Create(ctx, &model.User{Email: buyer.Email, PasswordHash: "x", Role: model.RoleBuyer, IsActive: true}), repository.ErrDuplicate)
}

func TestMySQLConcurrentReviewsOfOneProduct(t *testing.T) {
	f := newFixture(openTestDB(t))
	ctx := context.Background()
	p := f.product(t)
	reviews := service.NewReviewService(f.reviews, f.products, f.tx, nil, zap.NewNop())

	const n = 8
	buyers := make([]*model.User, n)
	for i := range buyers {
		buyers[i] = f.user(t, model.RoleBuyer)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i, b := range buyers {
		wg.Add(1)
		go func(i int, b *model.User) {
			defer wg.Done()
			_, errs[i] = reviews.Create(ctx, b, service.ReviewInput{ProductID: p.ID, Grade: i%5 + 1})
		}(i, b)
	}
	wg.Wait()
	for i, err := range errs {
		assert.NoError(t, err, fmt.Sprintf("buyer %d", i))
	}

	grades, err := f.reviews.ActiveGrades(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, grades, n)
	got, err := f.products.GetForUpdate(ctx, p.ID)
	require.NoError(t, err)
	assert.InDelta(t, service.MeanGrade(grades), got.Rating, 1e-9)
}
