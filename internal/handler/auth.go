package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/social-api/internal/auth"
	"github.com/iliyamo/social-api/internal/model"
	"github.com/iliyamo/social-api/internal/queue"
	"github.com/iliyamo/social-api/internal/repository"
)

// PasswordHasher is the subset of auth.Hasher used by the account handlers.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) (bool, error)
	DummyVerify(plain string)
	NeedsRehash(digest string) bool
}

// TokenIssuer signs identity claims.
type TokenIssuer interface {
	Issue(id auth.Identity, p auth.Purpose) (string, error)
}

// ResetNotifier delivers reset tokens out of band.
type ResetNotifier interface {
	PublishPasswordReset(ctx context.Context, ev queue.PasswordResetRequested) error
}

// AuthConfig wires AuthHandler.
type AuthConfig struct {
	Users    UserStore
	Hasher   PasswordHasher
	Tokens   TokenIssuer
	Notifier ResetNotifier // optional
	// ExposeResetToken echoes reset tokens in the forgetPassword response.
	// Development only.
	ExposeResetToken bool
	Timeout          time.Duration
	Logger           zerolog.Logger
}

// AuthHandler serves sign-up, login and the password lifecycle.
type AuthHandler struct {
	base
	users    UserStore
	hasher   PasswordHasher
	tokens   TokenIssuer
	notifier ResetNotifier
	expose   bool
	pending  sync.WaitGroup
}

func NewAuthHandler(cfg AuthConfig) *AuthHandler {
	if cfg.Users == nil || cfg.Hasher == nil || cfg.Tokens == nil {
		panic("handler: NewAuthHandler requires Users, Hasher and Tokens")
	}
	return &AuthHandler{
		base:     base{timeout: cfg.Timeout, log: cfg.Logger},
		users:    cfg.Users,
		hasher:   cfg.Hasher,
		tokens:   cfg.Tokens,
		notifier: cfg.Notifier,
		expose:   cfg.ExposeResetToken,
	}
}

// ----- DTOs -----

type signupReq struct {
	Username  string `json:"username" validate:"max=30"`
	FirstName string `json:"first_name" validate:"max=15"`
	LastName  string `json:"last_name" validate:"max=15"`
	Age       int    `json:"age" validate:"gte=0,lte=999"`
	Email     string `json:"email" validate:"required,email,max=60"`
	Password  string `json:"password" validate:"required,max=30,maxbytes=72"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email,max=60"`
	Password string `json:"password" validate:"required,max=30,maxbytes=72"`
}

type forgetReq struct {
	Email string `json:"email" validate:"required,email,max=60"`
}

type newPasswordReq struct {
	Password string `json:"new_password" validate:"required,max=30,maxbytes=72"`
}

type changePasswordReq struct {
	OldPassword string `json:"old_password" validate:"required,max=30,maxbytes=72"`
	NewPassword string `json:"new_password" validate:"required,max=30,maxbytes=72"`
}

// userResp is the public view of a user; the digest never leaves the server.
type userResp struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Age       int       `json:"age"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserResp(u model.User) userResp {
	return userResp{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Age:       u.Age,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

const (
	forgetMessage  = "if the account exists, a reset link has been sent"
	publishTimeout = 5 * time.Second
)

// Signup: create user, 201 with the public view.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	digest, err := h.hasher.Hash(req.Password)
	if err != nil {
		return h.respondError(c, err)
	}
	u := model.User{
		Username:     req.Username,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Age:          req.Age,
		Email:        req.Email,
		PasswordHash: digest,
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()
	if err := h.users.Create(ctx, &u); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toUserResp(u))
}

// Login: verify credentials and return a session token. Unknown, deleted and
// wrong-password attempts are indistinguishable.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	u, err := h.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.hasher.DummyVerify(req.Password)
			return h.respondError(c, auth.ErrInvalidCredentials)
		}
		return h.respondError(c, err)
	}
	ok, err := h.hasher.Verify(req.Password, u.PasswordHash)
	if err != nil {
		h.log.Error().Err(err).Uint64("user_id", u.ID).Msg("stored digest unreadable")
		return h.respondError(c, err)
	}
	if !ok {
		return h.respondError(c, auth.ErrInvalidCredentials)
	}

	if h.hasher.NeedsRehash(u.PasswordHash) {
		h.rehash(ctx, u.ID, req.Password)
	}

	token, err := h.tokens.Issue(u.Identity(), auth.PurposeSession)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"token": token, "user": toUserResp(u)})
}

// rehash upgrades a digest produced with an older cost. Failure is logged;
// the login already succeeded.
func (h *AuthHandler) rehash(ctx context.Context, id uint64, plain string) {
	digest, err := h.hasher.Hash(plain)
	if err == nil {
		err = h.users.UpdatePassword(ctx, id, digest)
	}
	if err != nil {
		h.log.Warn().Err(err).Uint64("user_id", id).Msg("password rehash failed")
	}
}

// ForgetPassword always answers 202 with the same message. For a live
// account it issues a reset token and hands it to the notifier.
func (h *AuthHandler) ForgetPassword(c echo.Context) error {
	var req forgetReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	resp := echo.Map{"message": forgetMessage}
	u, err := h.users.GetByEmail(ctx, req.Email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusAccepted, resp)
	case err != nil:
		return h.respondError(c, err)
	}

	token, err := h.tokens.Issue(u.Identity(), auth.PurposePasswordReset)
	if err != nil {
		return h.respondError(c, err)
	}
	if h.notifier != nil {
		h.publishReset(c.Request().Context(), queue.PasswordResetRequested{
			UserID:      u.ID,
			Email:       u.Email,
			Username:    u.Username,
			ResetToken:  token,
			RequestedAt: time.Now().UTC().Format(time.RFC3339),
		})
	}
	if h.expose {
		resp["reset_token"] = token
	}
	return c.JSON(http.StatusAccepted, resp)
}

// publishReset hands ev to the notifier off the request path; the broker
// round trip must not make a known email answer slower than an unknown one.
func (h *AuthHandler) publishReset(parent context.Context, ev queue.PasswordResetRequested) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), publishTimeout)
	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		defer cancel()
		if err := h.notifier.PublishPasswordReset(ctx, ev); err != nil {
			h.log.Warn().Err(err).Uint64("user_id", ev.UserID).Msg("publish password reset failed")
		}
	}()
}

// Wait blocks until background reset notifications have finished.
func (h *AuthHandler) Wait() { h.pending.Wait() }

// ForgetReset sets a new password for the holder of a verified reset token.
// The reset-purpose middleware has already placed the identity on the context.
func (h *AuthHandler) ForgetReset(c echo.Context) error {
	id, err := actingIdentity(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var req newPasswordReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}
	u, err := h.setPassword(c, id.ID, req.Password)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

// ChangePassword replaces the acting user's password after checking the old
// one. A wrong old password is reported as invalid credentials; an unreadable
// stored digest is a server error.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	id, err := actingIdentity(c)
	if err != nil {
		return h.respondError(c, err)
	}
	var req changePasswordReq
	if err := bind(c, &req); err != nil {
		return h.respondError(c, err)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()
	u, err := h.users.GetByID(ctx, id.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return h.respondError(c, auth.ErrInvalidCredentials)
		}
		return h.respondError(c, err)
	}
	ok, err := h.hasher.Verify(req.OldPassword, u.PasswordHash)
	if err != nil {
		h.log.Error().Err(err).Uint64("user_id", u.ID).Msg("stored digest unreadable")
		return h.respondError(c, err)
	}
	if !ok {
		return h.respondError(c, auth.ErrInvalidCredentials)
	}
	updated, err := h.setPassword(c, u.ID, req.NewPassword)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, toUserResp(updated))
}

// setPassword stores a fresh digest and returns the updated record.
func (h *AuthHandler) setPassword(c echo.Context, id uint64, plain string) (model.User, error) {
	digest, err := h.hasher.Hash(plain)
	if err != nil {
		return model.User{}, err
	}
	ctx, cancel := h.storeCtx(c)
	defer cancel()
	if err := h.users.UpdatePassword(ctx, id, digest); err != nil {
		return model.User{}, err
	}
	return h.users.GetByID(ctx, id)
}

// Me returns the acting identity as rebuilt by the auth middleware.
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := actingIdentity(c)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": id})
}
