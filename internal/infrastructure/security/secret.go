package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

const secretBytes = 32

// SecretGenerator produces URL-safe random verification secrets and the
// SHA-256 hex digest under which they are stored.
type SecretGenerator struct{}

func NewSecretGenerator() SecretGenerator { return SecretGenerator{} }

func (SecretGenerator) NewSecret() (string, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (SecretGenerator) HashSecret(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
