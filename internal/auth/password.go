package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrMalformedDigest means a stored digest could not be parsed. It points
	// at store corruption, not at a wrong password.
	ErrMalformedDigest = errors.New("malformed password digest")

	// ErrInvalidCredentials is the single outcome for unknown email, deleted
	// account and wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrPasswordTooLong is returned for passwords bcrypt cannot digest.
	ErrPasswordTooLong = errors.New("password longer than 72 bytes")
)

// MaxPasswordBytes is the bcrypt input limit. It counts bytes, not runes.
const MaxPasswordBytes = 72

// Hasher hashes and verifies passwords with bcrypt. The digest embeds its own
// cost, so raising the configured cost leaves existing digests verifiable.
type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher returns a Hasher using the given bcrypt cost.
func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, err
	}
	return &Hasher{cost: cost, dummy: dummy}, nil
}

// Hash returns a salted digest of plain. Every call uses a fresh salt.
func (h *Hasher) Hash(plain string) (string, error) {
	if len(plain) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify reports whether plain matches digest. A mismatch is (false, nil);
// only an unparseable digest returns an error.
func (h *Hasher) Verify(plain, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrMalformedDigest, err)
	}
}

// DummyVerify spends the same work as Verify against a throwaway digest.
// Login calls it when no account matches so response time does not reveal
// whether an email is registered.
func (h *Hasher) DummyVerify(plain string) {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plain))
}

// NeedsRehash reports whether digest was produced with a lower cost than the
// one currently configured.
func (h *Hasher) NeedsRehash(digest string) bool {
	cost, err := bcrypt.Cost([]byte(digest))
	if err != nil {
		return false
	}
	return cost < h.cost
}
