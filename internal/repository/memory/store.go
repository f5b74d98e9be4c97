// Package memory is an in-process implementation of the storefront stores.
// It enforces the same uniqueness rules as the MySQL schema and supports
// transactions by snapshotting all tables.  Data is lost on restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/repository"
)

type txKey struct{}

type tables struct {
	users      map[uint64]model.User
	categories map[uint64]model.Category
	products   map[uint64]model.Product
	reviews    map[uint64]model.Review
}

func (t tables) clone() tables {
	c := tables{
		users:      make(map[uint64]model.User, len(t.users)),
		categories: make(map[uint64]model.Category, len(t.categories)),
		products:   make(map[uint64]model.Product, len(t.products)),
		reviews:    make(map[uint64]model.Review, len(t.reviews)),
	}
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.categories {
		c.categories[k] = v
	}
	for k, v := range t.products {
		c.products[k] = v
	}
	for k, v := range t.reviews {
		c.reviews[k] = v
	}
	return c
}

// Store holds every table.  txMu serialises writers: a transaction holds it
// from begin to commit, and a call outside a transaction holds it for the
// duration of the call.
type Store struct {
	txMu   sync.Mutex
	mu     sync.Mutex
	data   tables
	nextID uint64
	now    func() time.Time
}

func New() *Store {
	return &Store{
		data: tables{
			users:      map[uint64]model.User{},
			categories: map[uint64]model.Category{},
			products:   map[uint64]model.Product{},
			reviews:    map[uint64]model.Review{},
		},
		now: time.Now,
	}
}

func (s *Store) Users() *UserStore { return &UserStore{s} }
func (s *Store) Categories() *CategoryStore { return &CategoryStore{s} }
func (s *Store) Products() *ProductStore { return &ProductStore{s} }
func (s *Store) Reviews() *ReviewStore { return &ReviewStore{s} }

// WithinTx runs fn with all-or-nothing semantics.  On error or panic every
// table is restored to its state before fn.  Nested calls join the outer
// transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	rollback := func() {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
	}
	defer func() {
		if p := recover(); p != nil {
			rollback()
			panic(p)
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		rollback()
		return err
	}
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

// lock acquires the locks a single call needs and returns the release func.
func (s *Store) lock(ctx context.Context) func() {
	if inTx(ctx) {
		s.mu.Lock()
		return s.mu.Unlock
	}
	s.txMu.Lock()
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		s.txMu.Unlock()
	}
}

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

// sorted returns the values of m matching keep, ordered by id.
func sorted[T any](m map[uint64]T, keep func(T) bool) []T {
	ids := make([]uint64, 0, len(m))
	for id, v := range m {
		if keep(v) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

func normEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// UserStore is the users table.
type UserStore struct{ s *Store }

// activeUser is the users soft-delete filter.
func activeUser(u model.User) bool { return u.IsActive }

func (r *UserStore) Create(ctx context.Context, u *model.User) error {
	defer r.s.lock(ctx)()
	u.Email = normEmail(u.Email)
	for _, other := range r.s.data.users {
		if other.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.s.now().UTC()
	}
	u.ID = r.s.id()
	r.s.data.users[u.ID] = *u
	return nil
}

func (r *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.find(ctx, email, func(model.User) bool { return true })
}

func (r *UserStore) GetActiveByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.find(ctx, email, activeUser)
}

func (r *UserStore) find(ctx context.Context, email string, keep func(model.User) bool) (*model.User, error) {
	defer r.s.lock(ctx)()
	email = normEmail(email)
	for _, u := range r.s.data.users {
		if u.Email == email && keep(u) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserStore) UpdatePasswordHash(ctx context.Context, id uint64, hash string) error {
	defer r.s.lock(ctx)()
	u, ok := r.s.data.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	r.s.data.users[id] = u
	return nil
}

// SetActive flips a user's is_active flag.  There is no API for it; tests
// and operators use it directly.
func (r *UserStore) SetActive(ctx context.Context, id uint64, active bool) error {
	defer r.s.lock(ctx)()
	u, ok := r.s.data.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.IsActive = active
	r.s.data.users[id] = u
	return nil
}

// CategoryStore is the categories table.
type CategoryStore struct{ s *Store }

func activeCategory(c model.Category) bool { return c.IsActive }

func (r *CategoryStore) ListActive(ctx context.Context) ([]model.Category, error) {
	defer r.s.lock(ctx)()
	return sorted(r.s.data.categories, activeCategory), nil
}

func (r *CategoryStore) Get(ctx context.Context, id uint64) (*model.Category, error) {
	defer r.s.lock(ctx)()
	c, ok := r.s.data.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *CategoryStore) GetActive(ctx context.Context, id uint64) (*model.Category, error) {
	defer r.s.lock(ctx)()
	c, ok := r.s.data.categories[id]
	if !ok || !activeCategory(c) {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *CategoryStore) Create(ctx context.Context, c *model.Category) error {
	defer r.s.lock(ctx)()
	c.ID = r.s.id()
	r.s.data.categories[c.ID] = *c
	return nil
}

func (r *CategoryStore) Update(ctx context.Context, c *model.Category) error {
	defer r.s.lock(ctx)()
	cur, ok := r.s.data.categories[c.ID]
	if !ok || !activeCategory(cur) {
		return repository.ErrNotFound
	}
	cur.Name = c.Name
	cur.ParentID = c.ParentID
	r.s.data.categories[c.ID] = cur
	return nil
}

func (r *CategoryStore) Deactivate(ctx context.Context, id uint64) error {
	defer r.s.lock(ctx)()
	c, ok := r.s.data.categories[id]
	if !ok || !activeCategory(c) {
		return repository.ErrNotFound
	}
	c.IsActive = false
	r.s.data.categories[id] = c
	return nil
}

// ProductStore is the products table.
type ProductStore struct{ s *Store }

func activeProduct(p model.Product) bool { return p.IsActive }

func (r *ProductStore) ListActive(ctx context.Context) ([]model.Product, error) {
	defer r.s.lock(ctx)()
	return sorted(r.s.data.products, activeProduct), nil
}

func (r *ProductStore) ListActiveByCategory(ctx context.Context, categoryID uint64) ([]model.Product, error) {
	defer r.s.lock(ctx)()
	return sorted(r.s.data.products, func(p model.Product) bool {
		return activeProduct(p) && p.CategoryID == categoryID
	}), nil
}

func (r *ProductStore) GetActive(ctx context.Context, id uint64) (*model.Product, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.data.products[id]
	if !ok || !activeProduct(p) {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

// GetForUpdate returns the product whether or not it is active.  Inside a
// transaction the whole store is already held exclusively.
func (r *ProductStore) GetForUpdate(ctx context.Context, id uint64) (*model.Product, error) {
	defer r.s.lock(ctx)()
	p, ok := r.s.data.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *ProductStore) Create(ctx context.Context, p *model.Product) error {
	defer r.s.lock(ctx)()
	p.Rating = 0
	p.ID = r.s.id()
	r.s.data.products[p.ID] = *p
	return nil
}

func (r *ProductStore) Update(ctx context.Context, p *model.Product) error {
	defer r.s.lock(ctx)()
	cur, ok := r.s.data.products[p.ID]
	if !ok || !activeProduct(cur) {
		return repository.ErrNotFound
	}
	cur.Name = p.Name
	cur.Description = p.Description
	cur.Price = p.Price
	cur.ImageURL = p.ImageURL
	cur.Stock = p.Stock
	cur.CategoryID = p.CategoryID
	r.s.data.products[p.ID] = cur
	return nil
}

func (r *ProductStore) Deactivate(ctx context.Context, id uint64) error {
	defer r.s.lock(ctx)()
	p, ok := r.s.data.products[id]
	if !ok || !activeProduct(p) {
		return repository.ErrNotFound
	}
	p.IsActive = false
	r.s.data.products[id] = p
	return nil
}

func (r *ProductStore) SetRating(ctx context.Context, id uint64, rating float64) error {
	defer r.s.lock(ctx)()
	p, ok := r.s.data.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Rating = rating
	r.s.data.products[id] = p
	return nil
}

// ReviewStore is the reviews table.
type ReviewStore struct{ s *Store }

func activeReview(rv model.Review) bool { return rv.IsActive }

func (r *ReviewStore) ListActive(ctx context.Context) ([]model.Review, error) {
	defer r.s.lock(ctx)()
	return sorted(r.s.data.reviews, activeReview), nil
}

func (r *ReviewStore) ListActiveByProduct(ctx context.Context, productID uint64) ([]model.Review, error) {
	defer r.s.lock(ctx)()
	return sorted(r.s.data.reviews, func(rv model.Review) bool {
		return activeReview(rv) && rv.ProductID == productID
	}), nil
}

func (r *ReviewStore) GetActive(ctx context.Context, id uint64) (*model.Review, error) {
	defer r.s.lock(ctx)()
	rv, ok := r.s.data.reviews[id]
	if !ok || !activeReview(rv) {
		return nil, repository.ErrNotFound
	}
	return &rv, nil
}

func (r *ReviewStore) HasActive(ctx context.Context, userID, productID uint64) (bool, error) {
	defer r.s.lock(ctx)()
	return r.hasActive(userID, productID), nil
}

func (r *ReviewStore) hasActive(userID, productID uint64) bool {
	for _, rv := range r.s.data.reviews {
		if activeReview(rv) && rv.UserID == userID && rv.ProductID == productID {
			return true
		}
	}
	return false
}

// Create inserts rv.  A second active review by the same user for the same
// product yields ErrDuplicate.
func (r *ReviewStore) Create(ctx context.Context, rv *model.Review) error {
	defer r.s.lock(ctx)()
	if rv.IsActive && r.hasActive(rv.UserID, rv.ProductID) {
		return repository.ErrDuplicate
	}
	if rv.CommentDate.IsZero() {
		rv.CommentDate = r.s.now().UTC()
	}
	rv.ID = r.s.id()
	r.s.data.reviews[rv.ID] = *rv
	return nil
}

func (r *ReviewStore) Deactivate(ctx context.Context, id uint64) error {
	defer r.s.lock(ctx)()
	rv, ok := r.s.data.reviews[id]
	if !ok || !activeReview(rv) {
		return repository.ErrNotFound
	}
	rv.IsActive = false
	r.s.data.reviews[id] = rv
	return nil
}

func (r *ReviewStore) ActiveGrades(ctx context.Context, productID uint64) ([]int, error) {
	defer r.s.lock(ctx)()
	grades := []int{}
	for _, rv := range sorted(r.s.data.reviews, activeReview) {
		if rv.ProductID == productID {
			grades = append(grades, rv.Grade)
		}
	}
	return grades, nil
}
