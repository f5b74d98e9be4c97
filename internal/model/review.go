package model

import "time"

// Grade bounds for a review.
const (
    MinGrade = 1
    MaxGrade = 5
)

// Review represents a row in the `reviews` table.  A user has at most
// one active review per product; deleting a review only clears IsActive.
type Review struct {
    ID          uint64    `db:"id" json:"id"`                     // reviews.id
    UserID      uint64    `db:"user_id" json:"user_id"`           // reviews.user_id
    ProductID   uint64    `db:"product_id" json:"product_id"`     // reviews.product_id
    Comment     *string   `db:"comment" json:"comment"`           // reviews.comment (nullable)
    CommentDate time.Time `db:"comment_date" json:"comment_date"` // reviews.comment_date
    Grade       int       `db:"grade" json:"grade"`               // reviews.grade
    IsActive    bool      `db:"is_active" json:"is_active"`       // reviews.is_active
}
