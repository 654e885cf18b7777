package middleware // middleware holds the HTTP middleware shared by all route groups

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/social-api/internal/auth"
	"github.com/iliyamo/social-api/internal/model"
	"github.com/iliyamo/social-api/internal/repository"
)

// TokenVerifier is the part of auth.TokenService the middleware needs.
type TokenVerifier interface {
	Verify(raw string, p auth.Purpose) (auth.Claims, error)
}

// UserLookup loads the current record behind a verified token.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// JWTConfig configures JWTAuth.
type JWTConfig struct {
	Tokens  TokenVerifier
	Purpose auth.Purpose
	Users   UserLookup
	// RequireClaimEmail rejects tokens whose embedded email no longer matches
	// the stored one. Used for reset tokens so an email change voids them.
	RequireClaimEmail bool
	Timeout           time.Duration
	Logger            zerolog.Logger
}

// JWTAuth returns a middleware that requires "Authorization: Bearer <token>".
//
// A missing header, a wrong scheme, a token that fails verification and a
// token whose user is gone all produce the same 401 body. On success the
// identity is rebuilt from the current user record, stored in the request
// context together with the raw token, and the next handler runs.
func JWTAuth(cfg JWTConfig) echo.MiddlewareFunc {
	if cfg.Tokens == nil || cfg.Users == nil {
		panic("middleware: JWTAuth requires Tokens and Users")
	}
	if cfg.Purpose == "" {
		cfg.Purpose = auth.PurposeSession
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return unauthorized(c)
			}
			claims, err := cfg.Tokens.Verify(raw, cfg.Purpose)
			if err != nil {
				cfg.Logger.Debug().Str("path", c.Path()).Msg("token rejected")
				return unauthorized(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), cfg.Timeout)
			u, err := cfg.Users.GetByID(ctx, claims.User.ID)
			cancel()
			switch {
			case errors.Is(err, repository.ErrNotFound):
				return unauthorized(c)
			case errors.Is(err, context.DeadlineExceeded):
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "service unavailable"})
			case err != nil:
				cfg.Logger.Error().Err(err).Uint64("user_id", claims.User.ID).Msg("load token user")
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}
			if cfg.RequireClaimEmail && !strings.EqualFold(u.Email, claims.User.Email) {
				return unauthorized(c)
			}

			id := u.Identity()
			req := c.Request()
			c.SetRequest(req.WithContext(auth.WithToken(auth.WithIdentity(req.Context(), id), raw)))
			return next(c)
		}
	}
}

// bearerToken extracts the credential from an Authorization header value.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}
