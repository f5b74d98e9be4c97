package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-api/internal/auth"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/queue"
	"github.com/iliyamo/storefront-api/internal/repository/memory"
	"github.com/iliyamo/storefront-api/internal/service"
)

var testParams = auth.Argon2Params{Memory: 1024, Time: 1, Threads: 1, SaltLen: 16, KeyLen: 32}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type recorder struct {
	mu     sync.Mutex
	events []queue.Event
	fail   bool
}

func (r *recorder) Publish(_ context.Context, ev queue.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("broker down")
	}
	r.events = append(r.events, ev)
	return nil
}

type env struct {
	store      *memory.Store
	clock      *clock
	hasher     *auth.PasswordHasher
	tokens     *auth.TokenManager
	events     *recorder
	auth       *service.AuthService
	categories *service.CategoryService
	products   *service.ProductService
	reviews    *service.ReviewService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := memory.New()
	clk := &clock{t: time.Date(2025, 10, 19, 12, 0, 0, 0, time.UTC)}
	tokens, err := auth.NewTokenManager(auth.TokenConfig{Secret: []byte("test-secret")}, auth.WithClock(clk.Now))
	require.NoError(t, err)
	hasher := auth.NewPasswordHasher(testParams)
	events := &recorder{}
	log := zap.NewNop()
	return &env{
		store:      st,
		clock:      clk,
		hasher:     hasher,
		tokens:     tokens,
		events:     events,
		auth:       service.NewAuthService(st.Users(), hasher, tokens, log),
		categories: service.NewCategoryService(st.Categories(), log),
		products:   service.NewProductService(st.Products(), st.Categories(), log),
		reviews:    service.NewReviewService(st.Reviews(), st.Products(), st, events, log),
	}
}

func (e *env) register(t *testing.T, email string, role model.Role) *model.User {
	t.Helper()
	u, err := e.auth.Register(context.Background(), service.RegisterInput{Email: email, Password: "secret-pw", Role: role})
	require.NoError(t, err)
	return u
}

func (e *env) admin(t *testing.T) *model.User {
	t.Helper()
	created, err := e.auth.EnsureAdmin(context.Background(), "admin@x.com", "admin-pw")
	require.NoError(t, err)
	require.True(t, created)
	u, err := e.store.Users().GetByEmail(context.Background(), "admin@x.com")
	require.NoError(t, err)
	return u
}

func (e *env) category(t *testing.T, name string, parent *uint64) *model.Category {
	t.Helper()
	c, err := e.categories.Create(context.Background(), service.CategoryInput{Name: name, ParentID: parent})
	require.NoError(t, err)
	return c
}

func (e *env) product(t *testing.T, seller *model.User, categoryID uint64) *model.Product {
	t.Helper()
	p, err := e.products.Create(context.Background(), seller, service.ProductInput{
		Name:       "Kettle",
		Price:      19.99,
		Stock:      5,
		CategoryID: categoryID,
	})
	require.NoError(t, err)
	return p
}

func (e *env) rating(t *testing.T, productID uint64) float64 {
	t.Helper()
	p, err := e.store.Products().GetForUpdate(context.Background(), productID)
	require.NoError(t, err)
	return p.Rating
}

func ptr[T any](v T) *T { return &v }
