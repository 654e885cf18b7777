package auth

import "context"

// Identity is the profile subset embedded in tokens and attached to the
// request context once a token is verified. It never carries the password.
type Identity struct {
	ID        uint64 `json:"id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       int    `json:"age"`
}

type contextKey struct {
	name string
}

var (
	identityCtxKey = &contextKey{"identity"}
	tokenCtxKey    = &contextKey{"token"}
)

// WithIdentity returns a copy of ctx carrying the acting identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, id)
}

// IdentityFrom returns the acting identity set by the auth middleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey).(Identity)
	return id, ok && id.ID != 0
}

// WithToken stores the verified raw token.
func WithToken(ctx context.Context, raw string) context.Context {
	return context.WithValue(ctx, tokenCtxKey, raw)
}

// TokenFrom returns the raw token stored by WithToken.
func TokenFrom(ctx context.Context) (string, bool) {
	raw, ok := ctx.Value(tokenCtxKey).(string)
	return raw, ok && raw != ""
}
