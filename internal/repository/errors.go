// Package repository defines the MySQL persistence layer and the sentinel
// errors shared by every store implementation.  Higher layers translate
// these into domain errors: ErrNotFound becomes a 404-class failure and
// ErrDuplicate signals that a unique key rejected the write.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when no row matches, including rows that exist
// but are soft-deleted when the lookup is active-only.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert or update violates a unique key
// (duplicate email, second active review for the same user and product).
var ErrDuplicate = errors.New("duplicate record")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
