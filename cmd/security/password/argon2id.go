package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

const argon2Version = argon2.Version

// Hash encodes password as an Argon2id PHC string.
// It is used to provision accounts (seed data, tests), not by the login path.
func (c Config) Hash(password string) (string, error) {
	if err := c.checkInput(password); err != nil {
		return "", err
	}

	salt := make([]byte, c.Params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, c.Params.Iterations, c.Params.MemoryKiB, c.Params.Parallelism, c.Params.KeyLength)

	return encode(c.Params, salt, key), nil
}

// Verify reports whether password matches encodedHash.
// A malformed or out-of-bounds hash yields (false, ErrInvalidHash).
func (c Config) Verify(encodedHash, password string) (bool, error) {
	if err := c.checkInput(password); err != nil {
		return false, nil
	}

	p, salt, want, err := decode(encodedHash)
	if err != nil {
		return false, err
	}
	if !withinBounds(p, c.Params) {
		return false, ErrInvalidHash
	}

	got := argon2.IDKey([]byte(password), salt, p.Iterations, p.MemoryKiB, p.Parallelism, p.KeyLength)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// VerifyUnknown burns one verification against a fixed hash and always
// returns false. Login calls it when the email has no account so both
// outcomes cost the same.
func (c Config) VerifyUnknown(password string) bool {
	dummyOnce.Do(func() {
		dummyHash, _ = c.Hash("shopauth-unknown-account")
	})
	if dummyHash != "" {
		_, _ = c.Verify(dummyHash, password)
	}
	return false
}

var (
	dummyOnce sync.Once
	dummyHash string
)

func (c Config) checkInput(password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	if c.MaxInputBytes > 0 && len(password) > c.MaxInputBytes {
		return ErrInputTooLong
	}
	return nil
}

func encode(p Argon2idParams, salt, key []byte) string {
	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Version, p.MemoryKiB, p.Iterations, p.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(key))
}

func decode(encoded string) (Argon2idParams, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2Version) {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	var mem, it, par uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &it, &par); err != nil {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	if mem == 0 || it == 0 || par == 0 || par > 255 {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return Argon2idParams{}, nil, nil, ErrInvalidHash
	}

	return Argon2idParams{
		MemoryKiB:   mem,
		Iterations:  it,
		Parallelism: uint8(par),        // #nosec G115 -- checked <= 255 above.
		SaltLength:  uint32(len(salt)), // #nosec G115 -- bounded by withinBounds.
		KeyLength:   uint32(len(key)),  // #nosec G115 -- bounded by withinBounds.
	}, salt, key, nil
}

// withinBounds accepts hashes made with older or cheaper settings and
// rejects anything more than twice the configured cost.
func withinBounds(got, limits Argon2idParams) bool {
	switch {
	case got.MemoryKiB > limits.MemoryKiB*2:
		return false
	case got.Iterations > limits.Iterations*2:
		return false
	case uint32(got.Parallelism) > uint32(limits.Parallelism)*2:
		return false
	case got.SaltLength < 8 || got.SaltLength > 64:
		return false
	case got.KeyLength < 16 || got.KeyLength > 128:
		return false
	}
	return true
}
