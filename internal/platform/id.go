package platform

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// APIKeyPrefix marks raw API keys so they are recognisable in logs and
// secret scanners.
const APIKeyPrefix = "ne_"

const apiKeyBytes = 32

// NewID returns a fresh resource id.
func NewID() string {
	return uuid.New().String()
}

// IsID reports whether s is a well-formed resource id.
func IsID(s string) bool {
	return uuid.Validate(s) == nil
}

// NewAPIKey returns a random raw API key: the prefix followed by 64 hex chars.
func NewAPIKey() (string, error) {
	b := make([]byte, apiKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return APIKeyPrefix + hex.EncodeToString(b), nil
}
