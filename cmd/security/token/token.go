package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"os"
	"strings"
)

const (
	// HMACEnvKey is the env var name for the token HMAC secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	HMACEnvKey = "SHOPAUTH_TOKEN_HMAC_KEY"

	// MinOpaqueBytes is the smallest entropy accepted by NewOpaque.
	MinOpaqueBytes = 16
)

// Hasher maps raw secrets to their stored digest.
// The zero value hashes with plain SHA-256.
type Hasher struct {
	key []byte
}

// NewHasher returns a Hasher. An empty key selects SHA-256 mode.
func NewHasher(key []byte) Hasher {
	if len(key) == 0 {
		return Hasher{}
	}
	k := make([]byte, len(key))
	copy(k, key)
	return Hasher{key: k}
}

// NewHasherFromEnv builds a Hasher from SHOPAUTH_TOKEN_HMAC_KEY.
// With require=true a missing key or one shorter than minBytes is an error.
func NewHasherFromEnv(require bool, minBytes int) (Hasher, error) {
	key, err := HMACKeyFromEnv(minBytes)
	if err == nil {
		return NewHasher(key), nil
	}
	if !require && err == ErrHMACKeyMissing {
		return Hasher{}, nil
	}
	return Hasher{}, err
}

// Keyed reports whether the Hasher uses HMAC.
func (h Hasher) Keyed() bool { return len(h.key) > 0 }

// Hash returns the 64-char hex digest of s.
func (h Hasher) Hash(s string) string {
	if len(h.key) == 0 {
		return HashSHA256Hex(s)
	}
	return HashHMACSHA256Hex(s, h.key)
}

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// HMACKeyFromEnv returns the configured HMAC key bytes (trimmed), enforcing a minimum byte length.
// If the env var is missing/blank -> ErrHMACKeyMissing.
// If too short -> ErrHMACKeyTooShort.
func HMACKeyFromEnv(minBytes int) ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv(HMACEnvKey))
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return b, nil
}

// NewOpaque returns nBytes of crypto/rand output encoded as unpadded base64url.
func NewOpaque(nBytes int) (string, error) {
	if nBytes < MinOpaqueBytes {
		return "", ErrEntropyTooLow
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
