package model

import (
	"time"

	"github.com/iliyamo/social-api/internal/auth"
)

// User represents a row of the `users` table.  DeletedAt is set by a soft
// delete; such rows are invisible to every lookup used for authentication.
type User struct {
	ID           uint64     // users.id, immutable
	Username     string     // users.username
	FirstName    string     // users.first_name
	LastName     string     // users.last_name
	Age          int        // users.age
	Email        string     // users.email, unique
	PasswordHash string     // users.password_hash (bcrypt)
	CreatedAt    time.Time  // users.created_at
	UpdatedAt    time.Time  // users.updated_at
	DeletedAt    *time.Time // users.deleted_at (nullable)
}

// Identity returns the token-safe subset of the user.
func (u User) Identity() auth.Identity {
	return auth.Identity{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Age:       u.Age,
	}
}

// UserPatch is a partial profile update.  A nil field is absent and keeps
// the stored value.
type UserPatch struct {
	Username  *string
	FirstName *string
	LastName  *string
	Age       *int
	Email     *string
}

// Empty reports whether no field is present.
func (p UserPatch) Empty() bool {
	return p.Username == nil && p.FirstName == nil && p.LastName == nil && p.Age == nil && p.Email == nil
}

// Apply merges the present fields over u.
func (p UserPatch) Apply(u User) User {
	u.Username = pick(p.Username, u.Username)
	u.FirstName = pick(p.FirstName, u.FirstName)
	u.LastName = pick(p.LastName, u.LastName)
	u.Age = pick(p.Age, u.Age)
	u.Email = pick(p.Email, u.Email)
	return u
}

func pick[T any](v *T, current T) T {
	if v != nil {
		return *v
	}
	return current
}
