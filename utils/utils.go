package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/crypto/bcrypt"
)

const BcryptCost = 12

const (
	apiKeyPrefix   = "sk-"
	apiKeyLength   = 32
	apiKeyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateAPIKey returns "sk-" followed by 32 random alphanumerics.
func GenerateAPIKey() (string, error) {
	id, err := gonanoid.Generate(apiKeyAlphabet, apiKeyLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return apiKeyPrefix + id, nil
}

// NewPublicKey returns a 21-character URL-safe random identifier.
func NewPublicKey() (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("failed to generate public key: %w", err)
	}
	return id, nil
}

// Fingerprint is a stable, non-reversible digest of a secret, for use as a
// cache key or log field.
func Fingerprint(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
