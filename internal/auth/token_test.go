package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = Identity{ID: 7, Email: "alice@example.com", Username: "alice", FirstName: "Alice", LastName: "Liddell", Age: 30}

func newTestTokens(t *testing.T, sessionTTL time.Duration) *TokenService {
	t.Helper()
	s, err := NewTokenService("test-secret", "social-api", sessionTTL, 30*time.Minute)
	require.NoError(t, err)
	return s
}

func TestNewTokenService_Validation(t *testing.T) {
	_, err := NewTokenService("", "iss", 0, time.Minute)
	assert.Error(t, err)
	_, err = NewTokenService("k", "iss", 0, 0)
	assert.Error(t, err)
}

func TestTokenService_RoundTrip(t *testing.T) {
	s := newTestTokens(t, 0)

	raw, err := s.Issue(alice, PurposeSession)
	require.NoError(t, err)

	claims, err := s.Verify(raw, PurposeSession)
	require.NoError(t, err)
	assert.Equal(t, alice, claims.User)
	assert.Equal(t, "7", claims.Subject)
	assert.Nil(t, claims.ExpiresAt, "zero session ttl issues no exp")
}

func TestTokenService_VerifyIsIdempotent(t *testing.T) {
	s := newTestTokens(t, time.Hour)
	raw, err := s.Issue(alice, PurposeSession)
	require.NoError(t, err)

	first, err := s.Verify(raw, PurposeSession)
	require.NoError(t, err)
	second, err := s.Verify(raw, PurposeSession)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTokenService_IssueRejects(t *testing.T) {
	s := newTestTokens(t, 0)
	_, err := s.Issue(Identity{Email: "x@example.com"}, PurposeSession)
	assert.Error(t, err)
	_, err = s.Issue(alice, Purpose("admin"))
	assert.Error(t, err)
}

func TestTokenService_VerifyFailures(t *testing.T) {
	s := newTestTokens(t, time.Hour)
	good, err := s.Issue(alice, PurposeSession)
	require.NoError(t, err)

	other, err := NewTokenService("another-secret", "social-api", time.Hour, time.Minute)
	require.NoError(t, err)
	foreign, err := other.Issue(alice, PurposeSession)
	require.NoError(t, err)

	otherIssuer, err := NewTokenService("test-secret", "someone-else", time.Hour, time.Minute)
	require.NoError(t, err)
	wrongIss, err := otherIssuer.Issue(alice, PurposeSession)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		User: alice,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   "social-api",
			Subject:  "7",
			Audience: jwt.ClaimStrings{string(PurposeSession)},
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	mismatchedSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		User: alice,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   "social-api",
			Subject:  "8",
			Audience: jwt.ClaimStrings{string(PurposeSession)},
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	sig := strings.Split(foreign, ".")[2]
	parts := strings.Split(good, ".")
	tampered := parts[0] + "." + parts[1] + "." + sig

	cases := map[string]string{
		"empty":           "",
		"garbage":         "not.a.jwt",
		"wrong secret":    foreign,
		"wrong issuer":    wrongIss,
		"alg none":        none,
		"subject differs": mismatchedSub,
		"tampered":        tampered,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Verify(raw, PurposeSession)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenService_Expired(t *testing.T) {
	s := newTestTokens(t, time.Hour)
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, err := s.Issue(alice, PurposeSession)
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.Verify(raw, PurposeSession)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_PurposesDoNotCross(t *testing.T) {
	s := newTestTokens(t, time.Hour)

	session, err := s.Issue(alice, PurposeSession)
	require.NoError(t, err)
	reset, err := s.Issue(alice, PurposePasswordReset)
	require.NoError(t, err)

	_, err = s.Verify(session, PurposePasswordReset)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = s.Verify(reset, PurposeSession)
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims, err := s.Verify(reset, PurposePasswordReset)
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestTokenService_DecodeSkipsSignature(t *testing.T) {
	other, err := NewTokenService("another-secret", "social-api", 0, time.Minute)
	require.NoError(t, err)
	raw, err := other.Issue(alice, PurposePasswordReset)
	require.NoError(t, err)

	s := newTestTokens(t, 0)
	claims, err := s.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, alice, claims.User)

	_, err = s.Decode("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFrom(context.Background())
	assert.False(t, ok)

	ctx := WithToken(WithIdentity(context.Background(), alice), "raw")
	got, ok := IdentityFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, alice, got)

	tok, ok := TokenFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "raw", tok)

	_, ok = IdentityFrom(WithIdentity(context.Background(), Identity{}))
	assert.False(t, ok, "zero id is not an identity")
}
