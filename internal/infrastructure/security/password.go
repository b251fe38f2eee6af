package security

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/northwind/backoffice/internal/core/domain"
)

// maxPasswordBytes is bcrypt's input limit; longer input is rejected rather
// than silently truncated.
const maxPasswordBytes = 72

var ErrPasswordTooLong = domain.Fail(domain.KindValidation, "password must be at most 72 bytes")

// BcryptHasher hashes passwords with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost, or bcrypt.DefaultCost when
// cost is outside bcrypt's accepted range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify compares in constant time. A malformed or empty hash reports false.
func (h *BcryptHasher) Verify(hash, candidate string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}
