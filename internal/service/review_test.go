package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/queue"
	"github.com/iliyamo/storefront-api/internal/service"
)

func TestMeanGrade(t *testing.T) {
	assert.Equal(t, 0.0, service.MeanGrade(nil))
	assert.Equal(t, 5.0, service.MeanGrade([]int{5}))
	assert.Equal(t, 4.0, service.MeanGrade([]int{5, 3}))
	assert.InDelta(t, 3.6666666666, service.MeanGrade([]int{5, 5, 1}), 1e-9)
}

func TestRatingScenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seller := e.register(t, "seller@x.com", model.RoleSeller)
	cat := e.category(t, "Kitchen", nil)
	p := e.product(t, seller, cat.ID)
	admin := e.admin(t)

	b1 := e.register(t, "buyer@x.com", model.RoleBuyer)
	first, err := e.reviews.Create(ctx, b1, service.ReviewInput{ProductID: p.ID, Grade: 5})
	require.NoError(t, err)
	assert.Equal(t, 5.0, e.rating(t, p.ID))

	b2 := e.register(t, "buyer2@x.com", model.RoleBuyer)
	_, err = e.reviews.Create(ctx, b2, service.ReviewInput{ProductID: p.ID, Grade: 3, Comment: ptr("meh")})
	require.NoError(t, err)
	assert.Equal(t, 4.0, e.rating(t, p.ID))

	require.NoError(t, e.reviews.Delete(ctx, admin, first.ID))
	assert.Equal(t, 3.0, e.rating(t, p.ID))

	list, err := e.reviews.ListByProduct(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].Grade)

	require.Len(t, e.events.events, 3)
	assert.Equal(t, queue.EventReviewCreated, e.events.events[0].Type)
	assert.Equal(t, queue.EventReviewDeleted, e.events.events[2].Type)
	assert.Equal(t, first.ID, e.events.events[2].ReviewID)
	assert.Equal(t, 3.0, e.events.events[2].Rating)
}

func TestDeletingOnlyReviewResetsRating(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seller := e.register(t, "seller@x.com", model.RoleSeller)
	p := e.product(t, seller, e.category(t, "Kitchen", nil).ID)
	admin := e.admin(t)
	buyer := e.register(t, "buyer@x.com", model.RoleBuyer)

	rv, err := e.reviews.Create(ctx, buyer, service.ReviewInput{ProductID: p.ID, Grade: 2})
	require.NoError(t, err)
	require.NoError(t, e.reviews.Delete(ctx, admin, rv.ID))
	assert.Equal(t, 0.0, e.rating(t, p.ID))

	assert.ErrorIs(t, e.reviews.Delete(ctx, admin, rv.ID), service.ErrNotFound)
}

func TestDuplicateActiveReviewConflicts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seller := e.register(t, "seller@x.com", model.RoleSeller)
	p := e.product(t, seller, e.category(t, "Kitchen", nil).ID)
	admin := e.admin(t)
	buyer := e.register(t, "buyer@x.com", model.RoleBuyer)

	rv, err := e.reviews.Create(ctx, buyer, service.ReviewInput{ProductID: p.ID, Grade: 4})
	require.NoError(t, err)
	_, err = e.reviews.Create(ctx, buyer, service.ReviewInput{ProductID: p.ID, Grade: 1})
	assert.ErrorIs(t, err, service.ErrConflict)
	assert.Equal(t, 4.0, e.rating(t, p.ID))

	// once the first review is gone the buyer may review again
	require.NoError(t, e.reviews.Delete(ctx, admin, rv.ID))
	_, err = e.reviews.Create(ctx, buyer, service.ReviewInput{ProductID: p.ID, Grade: 1})
	require.NoError(t, err)
	assert.Equal(t, 1.0, e.rating(t, p.ID))
}

func TestReviewGradeCheckedFirst(t *testing.T) {
	e := newEnv(t)
	buyer := e.register(t, "buyer@x.com", model.RoleBuyer)

	for _, g := range []int{0, 6, -1} {
		// product 999 does not exist; the grade must still be reported
		_, err := e.reviews.Create(context.Background(), buyer, service.ReviewInput{ProductID: 999, Grade: g})
		assert.ErrorIs(t, err, service.ErrValidation, "grade %d", g)
	}
	_, err := e.reviews.Create(context.Background(), buyer, service.ReviewInput{ProductID: 999, Grade: 3})
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestReviewRoles(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seller := e.register(t, "seller@x.com", model.RoleSeller)
	p := e.product(t, seller, e.category(t, "Kitchen", nil).ID)
	buyer := e.register(t, "buyer@x.com", model.RoleBuyer)
	admin := e.admin(t)

	_, err := e.reviews.Create(ctx, seller, service.ReviewInput{ProductID: p.ID, Grade: 5})
	assert.ErrorIs(t, err, service.ErrForbidden)
	_, err = e.reviews.Create(ctx, admin, service.ReviewInput{ProductID: p.ID, Grade: 5})
	assert.ErrorIs(t, err, service.ErrForbidden)

	rv, err := e.reviews.Create(ctx, buyer, service.ReviewInput{ProductID: p.ID, Grade: 5})
	require.NoError(t, err)
	assert.ErrorIs(t, e.reviews.Delete(ctx, buyer, rv.ID), service.ErrForbidden)
	assert.ErrorIs(t, e.reviews.Delete(ctx, seller, rv.ID), service.ErrForbidden)
}

func TestReviewOfInactiveProduct(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	seller := e.register(t, "seller@x.com", model.RoleSeller)
	p := e.product(t, seller, e.category(t, "Kitchen", nil).ID)
	buyer := e.register(t, "buyer@x.com", model.RoleBuyer)
	admin := e.admin(t)

	rv, err := e.reviews.Create(ctx, buyer, service.ReviewInput{ProductID: p.ID, Grade: 4})
	require.NoError(t, err)
	require.NoError(t, e.products.Delete(ctx, seller, p.ID))

	_, err = e.reviews.ListByProduct(ctx, p.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
	other := e.register(t, "buyer2@x.com", model.RoleBuyer)
	_, err = e.reviews.Create(ctx, other, service.ReviewInput{ProductID: p.ID, Grade: 4})
	assert.ErrorIs(t, err, service.ErrNotFound)

	// the rating of an inactive product is still kept current
	require.NoError(t, e.reviews.Delete(ctx, admin, rv.ID))
	assert.Equal(t, 0.0, e.rating(t, p.ID))
}

func TestPublishFailureDoesNotUndoReview(t *testing.T) {
	e := newEnv(t)
	e.events.fail = true
	seller := e.register(t, "seller@x.com", model.RoleSeller)
	p := e.product(t, seller, e.category(t, "Kitchen", nil).ID)
	buyer := e.register(t, "buyer@x.com", model.RoleBuyer)

	_, err := e.reviews.Create(context.Background(), buyer, service.ReviewInput{ProductID: p.ID, Grade: 5})
	require.NoError(t, err)
	assert.Equal(t, 5.0, e.rating(t, p.ID))
}

func TestRecomputeMissingProduct(t *testing.T) {
	e := newEnv(t)
	agg := service.NewRatingAggregator(e.store.Products(), e.store.Reviews())
	_, err := agg.Recompute(context.Background(), 12345)
	assert.ErrorIs(t, err, service.ErrNotFound)
}
