package random

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Hex generates a cryptographically secure random hex string.
// The output length is twice the input length (each byte = 2 hex chars).
func Hex(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// TokenBytes is the entropy of tokens produced by Token.
const TokenBytes = 32

// Token generates an unguessable opaque token of TokenBytes random bytes,
// hex encoded to 64 characters.
func Token() (string, error) {
	return Hex(TokenBytes)
}
