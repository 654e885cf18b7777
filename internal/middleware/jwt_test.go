package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/social-api/internal/auth"
	"github.com/iliyamo/social-api/internal/model"
	"github.com/iliyamo/social-api/internal/repository"
)

type lookupFunc func(ctx context.Context, id uint64) (model.User, error)

func (f lookupFunc) GetByID(ctx context.Context, id uint64) (model.User, error) { return f(ctx, id) }

var bob = model.User{ID: 3, Username: "bob", Email: "bob@example.com", FirstName: "Bob", Age: 40}

func fixedUser(u model.User) lookupFunc {
	return func(_ context.Context, id uint64) (model.User, error) {
		if id != u.ID {
			return model.User{}, repository.ErrNotFound
		}
		return u, nil
	}
}

func newTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	s, err := auth.NewTokenService("mw-secret", "social-api", time.Hour, time.Minute)
	require.NoError(t, err)
	return s
}

// serve runs one request through JWTAuth and a handler that echoes the
// identity found on the context.
func serve(t *testing.T, cfg JWTConfig, header string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	cfg.Logger = zerolog.Nop()
	h := JWTAuth(cfg)(func(c echo.Context) error {
		id, ok := auth.IdentityFrom(c.Request().Context())
		if !ok {
			return c.NoContent(http.StatusTeapot)
		}
		raw, _ := auth.TokenFrom(c.Request().Context())
		return c.JSON(http.StatusOK, echo.Map{"user": id, "has_token": raw != "", "actor": ActorID(c)})
	})
	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func TestJWTAuth_Rejects(t *testing.T) {
	tokens := newTokens(t)
	session, err := tokens.Issue(bob.Identity(), auth.PurposeSession)
	require.NoError(t, err)
	reset, err := tokens.Issue(bob.Identity(), auth.PurposePasswordReset)
	require.NoError(t, err)
	ghost, err := tokens.Issue(auth.Identity{ID: 99, Email: "ghost@example.com"}, auth.PurposeSession)
	require.NoError(t, err)

	cfg := JWTConfig{Tokens: tokens, Users: fixedUser(bob)}
	cases := map[string]string{
		"no header":         "",
		"basic scheme":      "Basic " + session,
		"bearer only":       "Bearer ",
		"garbage":           "Bearer abc.def.ghi",
		"reset token":       "Bearer " + reset,
		"deleted user":      "Bearer " + ghost,
		"token without sep": "Bearer" + session,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			rec := serve(t, cfg, header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
			assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
		})
	}
}

func TestJWTAuth_IdentityComesFromStore(t *testing.T) {
	tokens := newTokens(t)
	raw, err := tokens.Issue(bob.Identity(), auth.PurposeSession)
	require.NoError(t, err)

	renamed := bob
	renamed.Username = "robert"
	rec := serve(t, JWTConfig{Tokens: tokens, Users: fixedUser(renamed)}, "bearer "+raw)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"robert"`)
	assert.Contains(t, rec.Body.String(), `"has_token":true`)
	assert.Contains(t, rec.Body.String(), `"actor":"3"`)
}

func TestJWTAuth_StoreFailures(t *testing.T) {
	tokens := newTokens(t)
	raw, err := tokens.Issue(bob.Identity(), auth.PurposeSession)
	require.NoError(t, err)

	slow := lookupFunc(func(ctx context.Context, _ uint64) (model.User, error) {
		<-ctx.Done()
		return model.User{}, ctx.Err()
	})
	rec := serve(t, JWTConfig{Tokens: tokens, Users: slow, Timeout: 10 * time.Millisecond}, "Bearer "+raw)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	broken := lookupFunc(func(context.Context, uint64) (model.User, error) {
		return model.User{}, errors.New("connection reset")
	})
	rec = serve(t, JWTConfig{Tokens: tokens, Users: broken}, "Bearer "+raw)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestJWTAuth_ResetPurposeRequiresCurrentEmail(t *testing.T) {
	tokens := newTokens(t)
	raw, err := tokens.Issue(bob.Identity(), auth.PurposePasswordReset)
	require.NoError(t, err)

	cfg := JWTConfig{Tokens: tokens, Purpose: auth.PurposePasswordReset, Users: fixedUser(bob), RequireClaimEmail: true}
	assert.Equal(t, http.StatusOK, serve(t, cfg, "Bearer "+raw).Code)

	moved := bob
	moved.Email = "new@example.com"
	cfg.Users = fixedUser(moved)
	assert.Equal(t, http.StatusUnauthorized, serve(t, cfg, "Bearer "+raw).Code)
}

func TestJWTAuth_PanicsWithoutDeps(t *testing.T) {
	assert.Panics(t, func() { JWTAuth(JWTConfig{}) })
}

func TestActorID_Guest(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, "guest", ActorID(c))
}
