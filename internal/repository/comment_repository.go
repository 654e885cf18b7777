package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/social-api/internal/model"
)

const commentColumns = "id, user_id, tweet_id, text, created_at, updated_at, deleted_at"

// CommentRepo encapsulates all queries on the `comments` table.
type CommentRepo struct {
	db *sql.DB
}

func NewCommentRepo(db *sql.DB) *CommentRepo {
	return &CommentRepo{db: db}
}

func scanComment(row rowScanner) (model.Comment, error) {
	var (
		c       model.Comment
		deleted sql.NullTime
	)
	err := row.Scan(&c.ID, &c.UserID, &c.TweetID, &c.Text, &c.CreatedAt, &c.UpdatedAt, &deleted)
	c.DeletedAt = nullTimePtr(deleted)
	return c, err
}

// Create inserts a comment on c.TweetID owned by c.UserID. The tweet must be
// live; otherwise ErrNotFound is returned and nothing is written.
func (r *CommentRepo) Create(ctx context.Context, c *model.Comment) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO comments (user_id, tweet_id, text)
		 SELECT ?, t.id, ? FROM tweets t WHERE t.id = ? AND t.deleted_at IS NULL`,
		c.UserID, c.Text, c.TweetID)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*c = created
	return nil
}

// GetByID fetches a live comment.
func (r *CommentRepo) GetByID(ctx context.Context, id uint64) (model.Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx,
		"SELECT "+commentColumns+" FROM comments WHERE id = ? AND deleted_at IS NULL", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Comment{}, ErrNotFound
	}
	return c, err
}

// List returns all live comments.
func (r *CommentRepo) List(ctx context.Context) ([]model.Comment, error) {
	return r.list(ctx, "SELECT "+commentColumns+" FROM comments WHERE deleted_at IS NULL ORDER BY id")
}

// ListByTweet returns the live comments of one tweet.
func (r *CommentRepo) ListByTweet(ctx context.Context, tweetID uint64) ([]model.Comment, error) {
	return r.list(ctx, "SELECT "+commentColumns+" FROM comments WHERE tweet_id = ? AND deleted_at IS NULL ORDER BY id", tweetID)
}

// ListByUser returns the live comments written by one user.
func (r *CommentRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Comment, error) {
	return r.list(ctx, "SELECT "+commentColumns+" FROM comments WHERE user_id = ? AND deleted_at IS NULL ORDER BY id", userID)
}

func (r *CommentRepo) list(ctx context.Context, q string, args ...any) ([]model.Comment, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanComment)
}

// UpdateTextByIDAndOwner rewrites the text of comment id if ownerID owns it.
func (r *CommentRepo) UpdateTextByIDAndOwner(ctx context.Context, id, ownerID uint64, text string) (model.Comment, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE comments SET text = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		text, id, ownerID)
	if err != nil {
		return model.Comment{}, fmt.Errorf("update comment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Comment{}, ErrNotFoundOrForbidden
	}
	return r.GetByID(ctx, id)
}

// DeleteByIDAndOwner soft deletes comment id if ownerID owns it and returns
// the deleted row.
func (r *CommentRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) (model.Comment, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE comments SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND user_id = ? AND deleted_at IS NULL",
		id, ownerID)
	if err != nil {
		return model.Comment{}, fmt.Errorf("delete comment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Comment{}, ErrNotFoundOrForbidden
	}
	return scanComment(r.db.QueryRowContext(ctx,
		"SELECT "+commentColumns+" FROM comments WHERE id = ?", id))
}
