// Package queue defines message payloads exchanged over the message broker
// and the RabbitMQ publisher that sends them.
package queue

import "time"

// Event types.
const (
	EventReviewCreated = "review.created"
	EventReviewDeleted = "review.deleted"
)

// Event is published after a review mutation has been committed.  Rating is
// the product's rating as recomputed in the same transaction, so consumers
// can update projections without querying the primary database.
type Event struct {
	Type       string    `json:"type"`
	ReviewID   uint64    `json:"review_id"`
	ProductID  uint64    `json:"product_id"`
	UserID     uint64    `json:"user_id"`
	Grade      int       `json:"grade"`
	Rating     float64   `json:"rating"`
	OccurredAt time.Time `json:"occurred_at"`
}
