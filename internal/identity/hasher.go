// Package identity derives opaque submitter identifiers from raw network
// addresses. The derivation is a keyed one-way hash: without the server-held
// salt the original address cannot be recovered, so no reversible identifier
// is ever stored.
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// addressSentinel is the placeholder some proxies emit when the real client
// address is unavailable. It must never be hashed into a shared identity.
const addressSentinel = "unknown"

// ErrMissingIdentity indicates the raw address was empty, whitespace-only,
// or the "unknown" placeholder. Callers must check this before opening any
// transaction or touching a store.
var ErrMissingIdentity = errors.New("missing submitter identity")

// Hasher computes salted HMAC-SHA256 submitter hashes.
type Hasher struct {
	salt []byte
}

// NewHasher creates a Hasher with the given secret salt.
// The salt must be at least 32 bytes (256 bits) for HMAC-SHA256.
func NewHasher(salt []byte) (*Hasher, error) {
	if len(salt) < 32 {
		return nil, fmt.Errorf("hash salt must be at least 32 bytes, got %d", len(salt))
	}
	return &Hasher{salt: salt}, nil
}

// Hash derives the submitter hash for a raw network address.
// It is a pure function of (salt, trimmed address); the same address always
// yields the same hash for a given salt. Returns ErrMissingIdentity when the
// trimmed input is empty or the placeholder sentinel.
func (h *Hasher) Hash(rawAddress string) (string, error) {
	addr := strings.TrimSpace(rawAddress)
	if addr == "" || addr == addressSentinel {
		return "", ErrMissingIdentity
	}

	mac := hmac.New(sha256.New, h.salt)
	mac.Write([]byte(addr))
	return hex.EncodeToString(mac.Sum(nil)), nil
}
