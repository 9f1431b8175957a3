package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// IdempotencyKeyHeader carries the key on every purchase request.
const IdempotencyKeyHeader = "Idempotency-Key"

const idempotencyKeyPrefix = "idk_"

// IdempotencyKey identifies one logical purchase attempt across retries.
// Format: "idk_" followed by 32 lowercase hex characters (128 random bits).
type IdempotencyKey string

func (k IdempotencyKey) String() string {
	return string(k)
}

// Valid reports whether the key has the expected header-safe format.
func (k IdempotencyKey) Valid() bool {
	s := string(k)
	if !strings.HasPrefix(s, idempotencyKeyPrefix) {
		return false
	}
	raw := s[len(idempotencyKeyPrefix):]
	if len(raw) != 32 {
		return false
	}
	_, err := hex.DecodeString(raw)
	return err == nil && strings.ToLower(raw) == raw
}

// NewIdempotencyKey draws 128 bits from r (crypto/rand when nil).
func NewIdempotencyKey(r io.Reader) (IdempotencyKey, error) {
	if r == nil {
		r = rand.Reader
	}
	var b [16]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return IdempotencyKey(idempotencyKeyPrefix + hex.EncodeToString(b[:])), nil
}
