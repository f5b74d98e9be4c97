package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/storefront-api/internal/metrics"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/queue"
	"github.com/iliyamo/storefront-api/internal/repository"
)

// ReviewInput is the payload of review creation.
type ReviewInput struct {
	ProductID uint64
	Grade     int
	Comment   *string
}

// ReviewService creates and removes reviews and keeps the reviewed
// product's rating in step, in the same transaction as the review change.
type ReviewService struct {
	reviews  ReviewStore
	products ProductStore
	rating   *RatingAggregator
	tx       TxManager
	events   EventPublisher
	log      *zap.Logger
	now      func() time.Time
}

// NewReviewService wires the review rules.  events may be nil.
func NewReviewService(reviews ReviewStore, products ProductStore, tx TxManager, events EventPublisher, log *zap.Logger) *ReviewService {
	if events == nil {
		events = nopPublisher{}
	}
	return &ReviewService{
		reviews:  reviews,
		products: products,
		rating:   NewRatingAggregator(products, reviews),
		tx:       tx,
		events:   events,
		log:      log,
		now:      time.Now,
	}
}

// List returns every active review.
func (s *ReviewService) List(ctx context.Context) ([]model.Review, error) {
	return s.reviews.ListActive(ctx)
}

// ListByProduct returns the active reviews of an active product.
func (s *ReviewService) ListByProduct(ctx context.Context, productID uint64) ([]model.Review, error) {
	if _, err := s.products.GetActive(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("product")
		}
		return nil, err
	}
	return s.reviews.ListActiveByProduct(ctx, productID)
}

// Create records buyer's review of an active product and recomputes the
// product's rating.  The grade is checked before anything is loaded.
func (s *ReviewService) Create(ctx context.Context, buyer *model.User, in ReviewInput) (*model.Review, error) {
	if err := RequireRole(buyer, model.RoleBuyer); err != nil {
		return nil, err
	}
	if in.Grade < model.MinGrade || in.Grade > model.MaxGrade {
		return nil, validation("grade must be between %d and %d", model.MinGrade, model.MaxGrade)
	}

	rv := &model.Review{
		UserID:      buyer.ID,
		ProductID:   in.ProductID,
		Comment:     in.Comment,
		CommentDate: s.now().UTC(),
		Grade:       in.Grade,
		IsActive:    true,
	}
	var rating float64
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		// The product row is locked before the insert touches reviews, so
		// concurrent review changes of one product queue on the same lock.
		if _, err := s.lockProduct(ctx, in.ProductID, true); err != nil {
			return err
		}
		exists, err := s.reviews.HasActive(ctx, buyer.ID, in.ProductID)
		if err != nil {
			return err
		}
		if exists {
			return alreadyReviewed()
		}
		if err := s.reviews.Create(ctx, rv); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return alreadyReviewed()
			}
			return err
		}
		rating, err = s.rating.recomputeLocked(ctx, in.ProductID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("review created",
		zap.Uint64("review_id", rv.ID),
		zap.Uint64("product_id", rv.ProductID),
		zap.Float64("rating", rating),
	)
	s.publish(ctx, queue.EventReviewCreated, rv, rating)
	return rv, nil
}

// Delete soft-deletes an active review and recomputes the product's rating.
// Only admins may delete reviews.
func (s *ReviewService) Delete(ctx context.Context, admin *model.User, id uint64) error {
	if err := RequireRole(admin, model.RoleAdmin); err != nil {
		return err
	}
	var (
		rv     *model.Review
		rating float64
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		rv, err = s.reviews.GetActive(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("review")
			}
			return err
		}
		if _, err := s.lockProduct(ctx, rv.ProductID, false); err != nil {
			return err
		}
		// Deactivate matches active rows only, so a review removed while
		// waiting for the lock reports not found.
		if err := s.reviews.Deactivate(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("review")
			}
			return err
		}
		rv.IsActive = false
		rating, err = s.rating.recomputeLocked(ctx, rv.ProductID)
		return err
	})
	if err != nil {
		return err
	}

	s.log.Info("review deactivated",
		zap.Uint64("review_id", id),
		zap.Uint64("product_id", rv.ProductID),
		zap.Float64("rating", rating),
	)
	s.publish(ctx, queue.EventReviewDeleted, rv, rating)
	return nil
}

// publish runs after commit; a failure is logged and counted only.
func (s *ReviewService) publish(ctx context.Context, typ string, rv *model.Review, rating float64) {
	ev := queue.Event{
		Type:       typ,
		ReviewID:   rv.ID,
		ProductID:  rv.ProductID,
		UserID:     rv.UserID,
		Grade:      rv.Grade,
		Rating:     rating,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		metrics.RecordPublishFailure(typ)
		s.log.Warn("event publish failed", zap.String("type", typ), zap.Uint64("review_id", rv.ID), zap.Error(err))
	}
}

// lockProduct takes the product row lock for the rest of the transaction.
// With active set an inactive product is reported as not found.
func (s *ReviewService) lockProduct(ctx context.Context, id uint64, active bool) (*model.Product, error) {
	p, err := s.products.GetForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound("product")
		}
		return nil, err
	}
	if active && !p.IsActive {
		return nil, notFound("product")
	}
	return p, nil
}

func alreadyReviewed() *Error {
	return newError(ErrConflict, "you have already reviewed this product")
}
