package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/social-api/internal/model"
)

const followColumns = "id, follower_id, following_id, created_at, deleted_at"

// FollowRepo encapsulates all queries on the `follows` table. The follower
// column is the owner of a follow row.
type FollowRepo struct {
	db *sql.DB
}

func NewFollowRepo(db *sql.DB) *FollowRepo {
	return &FollowRepo{db: db}
}

func scanFollow(row rowScanner) (model.Follow, error) {
	var (
		f       model.Follow
		deleted sql.NullTime
	)
	err := row.Scan(&f.ID, &f.FollowerID, &f.FollowingID, &f.CreatedAt, &deleted)
	f.DeletedAt = nullTimePtr(deleted)
	return f, err
}

// Create records that followerID follows followingID. The target must be a
// live user (ErrNotFound) and an active follow must not exist
// (ErrAlreadyFollowing).
func (r *FollowRepo) Create(ctx context.Context, followerID, followingID uint64) (model.Follow, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Follow{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT 1 FROM follows WHERE follower_id = ? AND following_id = ? AND deleted_at IS NULL LIMIT 1 FOR UPDATE",
		followerID, followingID).Scan(&exists)
	switch {
	case err == nil:
		return model.Follow{}, ErrAlreadyFollowing
	case !errors.Is(err, sql.ErrNoRows):
		return model.Follow{}, err
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO follows (follower_id, following_id)
		 SELECT ?, u.id FROM users u WHERE u.id = ? AND u.deleted_at IS NULL`,
		followerID, followingID)
	if err != nil {
		return model.Follow{}, fmt.Errorf("insert follow: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Follow{}, ErrNotFound
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Follow{}, err
	}
	f, err := scanFollow(tx.QueryRowContext(ctx,
		"SELECT "+followColumns+" FROM follows WHERE id = ?", id))
	if err != nil {
		return model.Follow{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Follow{}, err
	}
	return f, nil
}

// List returns all active follows.
func (r *FollowRepo) List(ctx context.Context) ([]model.Follow, error) {
	return r.list(ctx, "SELECT "+followColumns+" FROM follows WHERE deleted_at IS NULL ORDER BY id")
}

// ListFollowers returns the active follows pointing at userID.
func (r *FollowRepo) ListFollowers(ctx context.Context, userID uint64) ([]model.Follow, error) {
	return r.list(ctx, "SELECT "+followColumns+" FROM follows WHERE following_id = ? AND deleted_at IS NULL ORDER BY id", userID)
}

// ListFollowings returns the active follows made by userID.
func (r *FollowRepo) ListFollowings(ctx context.Context, userID uint64) ([]model.Follow, error) {
	return r.list(ctx, "SELECT "+followColumns+" FROM follows WHERE follower_id = ? AND deleted_at IS NULL ORDER BY id", userID)
}

func (r *FollowRepo) list(ctx context.Context, q string, args ...any) ([]model.Follow, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanFollow)
}

// DeleteByFollowerAndFollowing ends the active follow owned by followerID.
func (r *FollowRepo) DeleteByFollowerAndFollowing(ctx context.Context, followerID, followingID uint64) (model.Follow, error) {
	var id uint64
	err := r.db.QueryRowContext(ctx,
		"SELECT id FROM follows WHERE follower_id = ? AND following_id = ? AND deleted_at IS NULL LIMIT 1",
		followerID, followingID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Follow{}, ErrNotFoundOrForbidden
		}
		return model.Follow{}, err
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE follows SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND follower_id = ? AND deleted_at IS NULL",
		id, followerID)
	if err != nil {
		return model.Follow{}, fmt.Errorf("delete follow: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Follow{}, ErrNotFoundOrForbidden
	}
	return scanFollow(r.db.QueryRowContext(ctx,
		"SELECT "+followColumns+" FROM follows WHERE id = ?", id))
}
