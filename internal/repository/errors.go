// Package repository defines error types that are reused across multiple
// repositories. Handlers translate them into status codes in one place.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup by id or email matches no live row.
var ErrNotFound = errors.New("not found")

// ErrNotFoundOrForbidden is returned when an ownership-scoped update or
// delete affects zero rows. The row may be missing, already deleted or owned
// by somebody else; callers cannot and must not tell which.
var ErrNotFoundOrForbidden = errors.New("not found or not owned")

// ErrEmailExists is returned when an insert or update collides with the
// unique email index.
var ErrEmailExists = errors.New("email already exists")

// ErrAlreadyFollowing is returned when an active follow already exists.
var ErrAlreadyFollowing = errors.New("already following")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
