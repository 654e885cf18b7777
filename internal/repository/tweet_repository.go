package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/social-api/internal/model"
)

const tweetColumns = "id, user_id, text, photo, created_at, updated_at, deleted_at"

// TweetRepo encapsulates all queries on the `tweets` table. Mutations take
// the owner id as a separate argument and include it in the WHERE clause.
type TweetRepo struct {
	db *sql.DB
}

func NewTweetRepo(db *sql.DB) *TweetRepo {
	return &TweetRepo{db: db}
}

func scanTweet(row rowScanner) (model.Tweet, error) {
	var (
		t       model.Tweet
		photo   sql.NullString
		deleted sql.NullTime
	)
	err := row.Scan(&t.ID, &t.UserID, &t.Text, &photo, &t.CreatedAt, &t.UpdatedAt, &deleted)
	t.Photo = nullStringPtr(photo)
	t.DeletedAt = nullTimePtr(deleted)
	return t, err
}

// Create inserts t owned by t.UserID and populates the generated fields.
func (r *TweetRepo) Create(ctx context.Context, t *model.Tweet) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO tweets (user_id, text, photo) VALUES (?, ?, ?)",
		t.UserID, t.Text, t.Photo)
	if err != nil {
		return fmt.Errorf("insert tweet: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*t = created
	return nil
}

// GetByID fetches a live tweet.
func (r *TweetRepo) GetByID(ctx context.Context, id uint64) (model.Tweet, error) {
	t, err := scanTweet(r.db.QueryRowContext(ctx,
		"SELECT "+tweetColumns+" FROM tweets WHERE id = ? AND deleted_at IS NULL", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Tweet{}, ErrNotFound
	}
	return t, err
}

// List returns all live tweets, newest first.
func (r *TweetRepo) List(ctx context.Context) ([]model.Tweet, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+tweetColumns+" FROM tweets WHERE deleted_at IS NULL ORDER BY id DESC")
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTweet)
}

// ListByUser returns the live tweets of one user, newest first.
func (r *TweetRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Tweet, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+tweetColumns+" FROM tweets WHERE user_id = ? AND deleted_at IS NULL ORDER BY id DESC", userID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanTweet)
}

// UpdateByIDAndOwner applies patch to tweet id if ownerID owns it. It returns
// ErrNotFoundOrForbidden when no live row matches both.
func (r *TweetRepo) UpdateByIDAndOwner(ctx context.Context, id, ownerID uint64, patch model.TweetPatch) (model.Tweet, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Tweet{}, err
	}
	defer func() { _ = tx.Rollback() }()

	current, err := scanTweet(tx.QueryRowContext(ctx,
		"SELECT "+tweetColumns+" FROM tweets WHERE id = ? AND user_id = ? AND deleted_at IS NULL FOR UPDATE",
		id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Tweet{}, ErrNotFoundOrForbidden
		}
		return model.Tweet{}, err
	}

	next := patch.Apply(current)
	res, err := tx.ExecContext(ctx,
		`UPDATE tweets SET text = ?, photo = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		next.Text, next.Photo, id, ownerID)
	if err != nil {
		return model.Tweet{}, fmt.Errorf("update tweet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Tweet{}, ErrNotFoundOrForbidden
	}

	updated, err := scanTweet(tx.QueryRowContext(ctx,
		"SELECT "+tweetColumns+" FROM tweets WHERE id = ?", id))
	if err != nil {
		return model.Tweet{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Tweet{}, err
	}
	return updated, nil
}

// DeleteByIDAndOwner soft deletes tweet id if ownerID owns it and returns the
// deleted row.
func (r *TweetRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) (model.Tweet, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE tweets SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ? AND deleted_at IS NULL",
		id, ownerID)
	if err != nil {
		return model.Tweet{}, fmt.Errorf("delete tweet: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Tweet{}, ErrNotFoundOrForbidden
	}
	return scanTweet(r.db.QueryRowContext(ctx,
		"SELECT "+tweetColumns+" FROM tweets WHERE id = ?", id))
}
