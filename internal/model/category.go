package model

// Category represents a row in the `categories` table.  Categories form
// a tree through ParentID; the tree is resolved by id lookups and never
// materialised as linked objects.
//
// Fields:
//  ID       – primary key identifier.
//  Name     – display name.
//  ParentID – id of the parent category (nil for a root).
//  IsActive – false once the category has been soft-deleted.
type Category struct {
    ID       uint64  `db:"id" json:"id"`               // categories.id
    Name     string  `db:"name" json:"name"`           // categories.name
    ParentID *uint64 `db:"parent_id" json:"parent_id"` // categories.parent_id (nullable)
    IsActive bool    `db:"is_active" json:"is_active"` // categories.is_active
}
