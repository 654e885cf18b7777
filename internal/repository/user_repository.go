package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/social-api/internal/model"
)

const userColumns = "id, username, first_name, last_name, age, email, password_hash, created_at, updated_at, deleted_at"

// UserRepo is the credential store. Every lookup used for authentication
// filters out soft-deleted rows.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

func scanUser(row rowScanner) (model.User, error) {
	var (
		u       model.User
		deleted sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Age, &u.Email,
		&u.PasswordHash, &u.CreatedAt, &u.UpdatedAt, &deleted)
	u.DeletedAt = nullTimePtr(deleted)
	return u, err
}

// NormalizeEmail lower-cases and trims an address before it is stored or
// looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create inserts u (PasswordHash must already be set) and fills in the
// generated id and timestamps.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = NormalizeEmail(u.Email)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, first_name, last_name, age, email, password_hash) VALUES (?,?,?,?,?,?)",
		u.Username, u.FirstName, u.LastName, u.Age, u.Email, u.PasswordHash)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*u = created
	return nil
}

// GetByEmail fetches a live user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ? AND deleted_at IS NULL LIMIT 1",
		NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// GetByID fetches a live user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ? AND deleted_at IS NULL LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// List returns all live users ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE deleted_at IS NULL ORDER BY id")
	if err != nil {
		return nil, err
	}
	return collect(rows, scanUser)
}

// UpdateProfile merges patch into the live row with the given id inside one
// transaction. The id always comes from the acting identity.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, patch model.UserPatch) (model.User, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, err
	}
	defer func() { _ = tx.Rollback() }()

	current, err := scanUser(tx.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ? AND deleted_at IS NULL FOR UPDATE", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}

	next := patch.Apply(current)
	next.Email = NormalizeEmail(next.Email)
	if _, err := tx.ExecContext(ctx,
		`UPDATE users
		 SET username = ?, first_name = ?, last_name = ?, age = ?, email = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		next.Username, next.FirstName, next.LastName, next.Age, next.Email, id); err != nil {
		if isDuplicate(err) {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, fmt.Errorf("update user: %w", err)
	}

	updated, err := scanUser(tx.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if err != nil {
		return model.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.User{}, err
	}
	return updated, nil
}

// UpdatePassword replaces the digest of the live user with the given id.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL",
		hash, id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks the live user as deleted and returns the final row.
func (r *UserRepo) SoftDelete(ctx context.Context, id uint64) (model.User, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL", id)
	if err != nil {
		return model.User{}, fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.User{}, ErrNotFound
	}
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id))
}
