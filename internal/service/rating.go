package service

import (
	"context"
	"errors"

	"github.com/iliyamo/storefront-api/internal/metrics"
	"github.com/iliyamo/storefront-api/internal/repository"
)

// RatingAggregator keeps products.rating equal to the mean grade of the
// product's active reviews.
type RatingAggregator struct {
	products ProductStore
	reviews  ReviewStore
}

func NewRatingAggregator(products ProductStore, reviews ReviewStore) *RatingAggregator {
	return &RatingAggregator{products: products, reviews: reviews}
}

// Recompute derives and stores the rating of productID.  The product may be
// inactive.  Called inside a transaction it locks the product row first so
// concurrent recomputes of the same product run one after another.
func (a *RatingAggregator) Recompute(ctx context.Context, productID uint64) (float64, error) {
	if _, err := a.products.GetForUpdate(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, notFound("product")
		}
		return 0, err
	}
	return a.recomputeLocked(ctx, productID)
}

// recomputeLocked is Recompute for a caller already holding the product
// row lock.
func (a *RatingAggregator) recomputeLocked(ctx context.Context, productID uint64) (float64, error) {
	grades, err := a.reviews.ActiveGrades(ctx, productID)
	if err != nil {
		return 0, err
	}
	rating := MeanGrade(grades)
	if err := a.products.SetRating(ctx, productID, rating); err != nil {
		return 0, err
	}
	metrics.RecordRatingRecompute()
	return rating, nil
}

// MeanGrade is the arithmetic mean of grades, or 0 for none.
func MeanGrade(grades []int) float64 {
	if len(grades) == 0 {
		return 0
	}
	sum := 0
	for _, g := range grades {
		sum += g
	}
	return float64(sum) / float64(len(grades))
}
