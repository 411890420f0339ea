package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Refresh tokens and session IDs are opaque random hex strings; nothing is
// encoded in them, the redis session is the source of truth.

func randomHex(byteLen int) (string, error) {
	if byteLen <= 0 {
		return "", fmt.Errorf("invalid token size")
	}

	b := make([]byte, byteLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}

func NewRefreshToken() (string, error) {
	return randomHex(32)
}

func NewSessionID() (string, error) {
	return randomHex(20)
}
