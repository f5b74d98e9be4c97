package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/service"
)

func TestCategoryParentMustBeActive(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a := e.category(t, "A", nil)
	b := e.category(t, "B", &a.ID)
	assert.Equal(t, a.ID, *b.ParentID)

	require.NoError(t, e.categories.Delete(ctx, a.ID))

	_, err := e.categories.Create(ctx, service.CategoryInput{Name: "C", ParentID: &a.ID})
	assert.ErrorIs(t, err, service.ErrInvalidReference)

	// deactivation does not cascade
	got, err := e.store.Categories().GetActive(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, *got.ParentID)
}

func TestCategoryUpdateRejectsCycles(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.category(t, "A", nil)
	b := e.category(t, "B", &a.ID)
	c := e.category(t, "C", &b.ID)

	_, err := e.categories.Update(ctx, a.ID, service.CategoryInput{Name: "A", ParentID: &a.ID})
	assert.ErrorIs(t, err, service.ErrInvalidReference)
	_, err = e.categories.Update(ctx, a.ID, service.CategoryInput{Name: "A", ParentID: &c.ID})
	assert.ErrorIs(t, err, service.ErrInvalidReference)

	moved, err := e.categories.Update(ctx, c.ID, service.CategoryInput{Name: "C2", ParentID: &a.ID})
	require.NoError(t, err)
	assert.Equal(t, "C2", moved.Name)
	assert.Equal(t, a.ID, *moved.ParentID)

	root, err := e.categories.Update(ctx, c.ID, service.CategoryInput{Name: "C2"})
	require.NoError(t, err)
	assert.Nil(t, root.ParentID)
}

func TestCategoryNotFoundAndValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.categories.Update(ctx, 404, service.CategoryInput{Name: "x"})
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.ErrorIs(t, e.categories.Delete(ctx, 404), service.ErrNotFound)

	_, err = e.categories.Create(ctx, service.CategoryInput{Name: "  "})
	assert.ErrorIs(t, err, service.ErrValidation)
	_, err = e.categories.Create(ctx, service.CategoryInput{Name: strings.Repeat("x", 51)})
	assert.ErrorIs(t, err, service.ErrValidation)

	a := e.category(t, "A", nil)
	require.NoError(t, e.categories.Delete(ctx, a.ID))
	assert.ErrorIs(t, e.categories.Delete(ctx, a.ID), service.ErrNotFound)

	list, err := e.categories.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestProductCreateRequiresSellerAndActiveCategory(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seller := e.register(t, "seller@x.com", model.RoleSeller)
	buyer := e.register(t, "buyer@x.com", model.RoleBuyer)
	cat := e.category(t, "Kitchen", nil)

	in := service.ProductInput{Name: "Kettle", Price: 10, Stock: 1, CategoryID: cat.ID}
	_, err := e.products.Create(ctx, buyer, in)
	assert.ErrorIs(t, err, service.ErrForbidden)

	p, err := e.products.Create(ctx, seller, in)
	require.NoError(t, err)
	assert.Equal(t, seller.ID, p.SellerID)
	assert.Zero(t, p.Rating)
	assert.True(t, p.IsActive)

	require.NoError(t, e.categories.Delete(ctx, cat.ID))
	_, err = e.products.Create(ctx, seller, in)
	assert.ErrorIs(t, err, service.ErrInvalidReference)

	in.CategoryID = 999
	_, err = e.products.Create(ctx, seller, in)
	assert.ErrorIs(t, err, service.ErrInvalidReference)
}

func TestProductValidation(t *testing.T) {
	e := newEnv(t)
	seller := e.register(t, "seller@x.com", model.RoleSeller)
	cat := e.category(t, "Kitchen", nil)

	cases := map[string]service.ProductInput{
		"empty name":     {Name: "", Price: 1, CategoryID: cat.ID},
		"long name":      {Name: strings.Repeat("n", 101), Price: 1, CategoryID: cat.ID},
		"zero price":     {Name: "x", Price: 0, CategoryID: cat.ID},
		"negative stock": {Name: "x", Price: 1, Stock: -1, CategoryID: cat.ID},
		"long url":       {Name: "x", Price: 1, ImageURL: ptr(strings.Repeat("u", 201)), CategoryID: cat.ID},
		"no category":    {Name: "x", Price: 1},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.products.Create(context.Background(), seller, in)
			assert.ErrorIs(t, err, service.ErrValidation)
		})
	}
}

func TestProductOwnership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := e.register(t, "owner@x.com", model.RoleSeller)
	other := e.register(t, "other@x.com", model.RoleSeller)
	cat := e.category(t, "Kitchen", nil)
	p := e.product(t, owner, cat.ID)

	_, err := e.products.Update(ctx, other, p.ID, service.ProductPatch{Price: ptr(1.0)})
	assert.ErrorIs(t, err, service.ErrForbidden)
	assert.ErrorIs(t, e.products.Delete(ctx, other, p.ID), service.ErrForbidden)

	// existence is checked first
	_, err = e.products.Update(ctx, other, 999, service.ProductPatch{Price: ptr(1.0)})
	assert.ErrorIs(t, err, service.ErrNotFound)

	updated, err := e.products.Update(ctx, owner, p.ID, service.ProductPatch{Price: ptr(25.5), Stock: ptr(0)})
	require.NoError(t, err)
	assert.Equal(t, 25.5, updated.Price)
	assert.Equal(t, 0, updated.Stock)
	assert.Equal(t, "Kettle", updated.Name)

	require.NoError(t, e.products.Delete(ctx, owner, p.ID))
	_, err = e.products.Get(ctx, p.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.ErrorIs(t, e.products.Delete(ctx, owner, p.ID), service.ErrNotFound)
}

func TestProductReadsFollowCategoryState(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seller := e.register(t, "seller@x.com", model.RoleSeller)
	cat := e.category(t, "Kitchen", nil)
	p := e.product(t, seller, cat.ID)

	list, err := e.products.ListByCategory(ctx, cat.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)

	require.NoError(t, e.categories.Delete(ctx, cat.ID))

	_, err = e.products.Get(ctx, p.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
	_, err = e.products.ListByCategory(ctx, cat.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	all, err := e.products.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
