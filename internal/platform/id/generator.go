package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	defaultByteLength = 16
	maxExternalLength = 64
)

// Generator creates opaque IDs suitable for request correlation.
type Generator interface {
	NewID() (string, error)
}

type RandomGenerator struct {
	byteLength int
}

func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{byteLength: defaultByteLength}
}

// NewID returns byteLength random bytes, hex encoded.
func (g *RandomGenerator) NewID() (string, error) {
	size := g.byteLength
	if size <= 0 {
		size = defaultByteLength
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// ValidExternal reports whether an ID supplied by a caller is safe to echo
// into headers and logs.
func ValidExternal(raw string) bool {
	if raw == "" || len(raw) > maxExternalLength {
		return false
	}
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return true
}
