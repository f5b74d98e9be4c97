package model

// Product represents a row in the `products` table.  Rating is derived:
// it always holds the mean grade of the product's active reviews, or 0
// when there are none, and is only written by the rating aggregator.
type Product struct {
    ID          uint64  `db:"id" json:"id"`                   // products.id
    Name        string  `db:"name" json:"name"`               // products.name
    Description *string `db:"description" json:"description"` // products.description (nullable)
    Price       float64 `db:"price" json:"price"`             // products.price
    ImageURL    *string `db:"image_url" json:"image_url"`     // products.image_url (nullable)
    Stock       int     `db:"stock" json:"stock"`             // products.stock
    IsActive    bool    `db:"is_active" json:"is_active"`     // products.is_active
    Rating      float64 `db:"rating" json:"rating"`           // products.rating
    CategoryID  uint64  `db:"category_id" json:"category_id"` // products.category_id
    SellerID    uint64  `db:"seller_id" json:"seller_id"`     // products.seller_id
}
