package model

import "time"

// Role is the closed set of account roles.  Roles are stored as their
// lower-case string form in the `users.role` column and carried verbatim
// in the token's "role" claim.
type Role string

const (
    RoleBuyer  Role = "buyer"
    RoleSeller Role = "seller"
    RoleAdmin  Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
    switch r {
    case RoleBuyer, RoleSeller, RoleAdmin:
        return true
    }
    return false
}

// User represents an application user record as stored in the
// `users` table.  Users are never hard-deleted; IsActive gates
// authentication.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – globally unique, lower-cased email address.
//  PasswordHash – Argon2id (or legacy bcrypt) password hash.
//  Role         – buyer, seller or admin.
//  IsActive     – whether the account may authenticate.
//  CreatedAt    – timestamp of creation.
type User struct {
    ID           uint64    `db:"id" json:"id"`                 // users.id
    Email        string    `db:"email" json:"email"`           // users.email
    PasswordHash string    `db:"password_hash" json:"-"`       // users.password_hash
    Role         Role      `db:"role" json:"role"`             // users.role
    IsActive     bool      `db:"is_active" json:"is_active"`   // users.is_active
    CreatedAt    time.Time `db:"created_at" json:"created_at"` // users.created_at
}

// HasRole reports whether u holds exactly the required role.  There is
// no hierarchy: an admin does not pass a seller or buyer check.
func HasRole(u *User, required Role) bool {
    return u != nil && u.Role == required
}
