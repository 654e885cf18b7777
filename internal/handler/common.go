package handler // handler defines http handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/social-api/internal/auth"
	"github.com/iliyamo/social-api/internal/model"
	"github.com/iliyamo/social-api/internal/repository"
)

// UserStore is the credential store as seen by handlers.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	UpdateProfile(ctx context.Context, id uint64, patch model.UserPatch) (model.User, error)
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	SoftDelete(ctx context.Context, id uint64) (model.User, error)
}

// TweetStore is the tweet persistence used by TweetHandler.
type TweetStore interface {
	Create(ctx context.Context, t *model.Tweet) error
	GetByID(ctx context.Context, id uint64) (model.Tweet, error)
	List(ctx context.Context) ([]model.Tweet, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Tweet, error)
	UpdateByIDAndOwner(ctx context.Context, id, ownerID uint64, patch model.TweetPatch) (model.Tweet, error)
	DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) (model.Tweet, error)
}

// CommentStore is the comment persistence used by CommentHandler.
type CommentStore interface {
	Create(ctx context.Context, c *model.Comment) error
	GetByID(ctx context.Context, id uint64) (model.Comment, error)
	List(ctx context.Context) ([]model.Comment, error)
	ListByTweet(ctx context.Context, tweetID uint64) ([]model.Comment, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Comment, error)
	UpdateTextByIDAndOwner(ctx context.Context, id, ownerID uint64, text string) (model.Comment, error)
	DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) (model.Comment, error)
}

// FollowStore is the follow persistence used by FollowHandler.
type FollowStore interface {
	Create(ctx context.Context, followerID, followingID uint64) (model.Follow, error)
	List(ctx context.Context) ([]model.Follow, error)
	ListFollowers(ctx context.Context, userID uint64) ([]model.Follow, error)
	ListFollowings(ctx context.Context, userID uint64) ([]model.Follow, error)
	DeleteByFollowerAndFollowing(ctx context.Context, followerID, followingID uint64) (model.Follow, error)
}

// HandlerConfig carries the settings shared by the resource handlers.
type HandlerConfig struct {
	Timeout time.Duration // bound for the store calls of one request
	Logger  zerolog.Logger
}

func (cfg HandlerConfig) base() base {
	return base{timeout: cfg.Timeout, log: cfg.Logger}
}

// base carries what every handler needs: a store timeout and a logger.
type base struct {
	timeout time.Duration
	log     zerolog.Logger
}

// storeCtx bounds the store calls of one request.
func (b base) storeCtx(c echo.Context) (context.Context, context.CancelFunc) {
	t := b.timeout
	if t <= 0 {
		t = 5 * time.Second
	}
	return context.WithTimeout(c.Request().Context(), t)
}

// actingIdentity returns the identity the auth middleware verified for this
// request. It is the only source of a user id for any mutation.
func actingIdentity(c echo.Context) (auth.Identity, error) {
	id, ok := auth.IdentityFrom(c.Request().Context())
	if !ok {
		return auth.Identity{}, errUnauthenticated
	}
	return id, nil
}

// pathID parses the :id path parameter as a positive integer.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errBadID
	}
	return id, nil
}

// bind decodes the body into req and runs the registered validator.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errBadBody
	}
	return c.Validate(req)
}

var (
	errUnauthenticated = errors.New("unauthenticated")
	errBadID           = errors.New("invalid id")
	errBadBody         = errors.New("invalid body")
	errEmptyPatch      = errors.New("no fields to update")
)

// respondError maps every error a handler can meet to a status code.
func (b base) respondError(c echo.Context, err error) error {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": verr.Fields})
	case errors.Is(err, errBadID), errors.Is(err, errBadBody), errors.Is(err, errEmptyPatch), errors.Is(err, errSelfFollow):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, auth.ErrPasswordTooLong):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": echo.Map{"password": "must be at most 72 bytes"}})
	case errors.Is(err, errUnauthenticated):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrNotFoundOrForbidden):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, repository.ErrAlreadyFollowing):
		return c.JSON(http.StatusConflict, echo.Map{"error": "already following"})
	case errors.Is(err, context.DeadlineExceeded):
		b.log.Warn().Err(err).Str("path", c.Path()).Msg("store timeout")
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service unavailable"})
	default:
		b.log.Error().Err(err).Str("path", c.Path()).
			Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
			Msg("request failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
