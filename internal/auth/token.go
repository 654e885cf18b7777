package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the only error Verify returns. Missing, malformed,
// foreign-signed, expired and wrong-purpose tokens are deliberately
// indistinguishable to callers.
var ErrInvalidToken = errors.New("invalid token")

// Purpose scopes a token to one use. It travels in the aud claim, so a
// password reset token is rejected by session routes and vice versa.
type Purpose string

const (
	PurposeSession       Purpose = "session"
	PurposePasswordReset Purpose = "password_reset"
)

// Claims is the signed payload: the identity under "user" plus the
// registered claims (iss, sub, aud, iat and optionally exp).
type Claims struct {
	User Identity `json:"user"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 tokens with a secret fixed at
// construction.
type TokenService struct {
	secret []byte
	issuer string
	ttl    map[Purpose]time.Duration
	now    func() time.Time
}

// NewTokenService builds a TokenService. A zero sessionTTL issues session
// tokens without an exp claim; resetTTL must be positive.
func NewTokenService(secret, issuer string, sessionTTL, resetTTL time.Duration) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	if resetTTL <= 0 {
		return nil, errors.New("reset token ttl must be positive")
	}
	return &TokenService{
		secret: []byte(secret),
		issuer: issuer,
		ttl: map[Purpose]time.Duration{
			PurposeSession:       sessionTTL,
			PurposePasswordReset: resetTTL,
		},
		now: time.Now,
	}, nil
}

// Issue signs a token carrying id for the given purpose.
func (s *TokenService) Issue(id Identity, p Purpose) (string, error) {
	ttl, ok := s.ttl[p]
	if !ok {
		return "", fmt.Errorf("unknown token purpose %q", p)
	}
	if id.ID == 0 {
		return "", errors.New("identity without id")
	}
	now := s.now().UTC()
	claims := Claims{
		User: id,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   s.issuer,
			Subject:  strconv.FormatUint(id.ID, 10),
			Audience: jwt.ClaimStrings{string(p)},
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer, purpose and expiry and returns
// the embedded claims.
func (s *TokenService) Verify(raw string, p Purpose) (Claims, error) {
	if raw == "" {
		return Claims{}, ErrInvalidToken
	}
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(string(p)),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.User.ID == 0 || claims.Subject != strconv.FormatUint(claims.User.ID, 10) {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// Decode parses raw without checking the signature. The result is not
// authenticated and must never decide who a request acts as; use Verify.
func (s *TokenService) Decode(raw string) (Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}
