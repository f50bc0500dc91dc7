package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// GenerateCode returns an uppercase hex reference code of 2*n characters.
func GenerateCode(n int) (string, error) {
	byt := make([]byte, n)
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// NewSessionToken returns a fresh registration session token.
func NewSessionToken() string {
	byt := make([]byte, 20)
	if _, err := rand.Read(byt); err != nil {
		// crypto/rand only fails when the OS entropy source is broken
		panic(err)
	}
	return fmt.Sprintf("sess_%s", hex.EncodeToString(byt))
}

var sessionTokenPattern = regexp.MustCompile(`^sess_[a-f0-9]{40}$`)

// IsValidSessionToken reports whether the token has the expected shape.
// Tokens come back from clients, so they are validated before any Redis key
// is built from them.
func IsValidSessionToken(token string) bool {
	return sessionTokenPattern.MatchString(token)
}
