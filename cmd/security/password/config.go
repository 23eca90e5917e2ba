package password

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Argon2idParams controls Argon2id hashing cost.
// MemoryKiB is in KiB as required by argon2.IDKey.
type Argon2idParams struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Config is the single configuration surface for this package.
type Config struct {
	Params Argon2idParams

	// MaxInputBytes bounds the password presented at login.
	MaxInputBytes int
}

// DefaultConfig returns the interactive-login baseline.
func DefaultConfig() Config {
	threads := runtime.NumCPU()
	if threads <= 0 {
		threads = 1
	}
	if threads > 4 {
		threads = 4
	}

	return Config{
		Params: Argon2idParams{
			MemoryKiB:   64 * 1024,
			Iterations:  3,
			Parallelism: uint8(threads), // #nosec G115 -- clamped to [1..4] above.
			SaltLength:  16,
			KeyLength:   32,
		},
		MaxInputBytes: 1024,
	}
}

type u32Setting struct {
	env      string
	min, max uint32
	dst      *uint32
}

// FromEnv loads config from environment variables.
//
// Env surface:
// - SHOPAUTH_PASSWORD_MAX_BYTES
// - SHOPAUTH_ARGON2_MEMORY_KIB
// - SHOPAUTH_ARGON2_ITERATIONS
// - SHOPAUTH_ARGON2_PARALLELISM
// - SHOPAUTH_ARGON2_SALT_LEN
// - SHOPAUTH_ARGON2_KEY_LEN
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	par := uint32(cfg.Params.Parallelism)
	maxBytes := uint32(cfg.MaxInputBytes) // #nosec G115 -- small positive default.

	settings := []u32Setting{
		{"SHOPAUTH_PASSWORD_MAX_BYTES", 64, 4096, &maxBytes},
		{"SHOPAUTH_ARGON2_MEMORY_KIB", 8 * 1024, 1024 * 1024, &cfg.Params.MemoryKiB},
		{"SHOPAUTH_ARGON2_ITERATIONS", 1, 20, &cfg.Params.Iterations},
		{"SHOPAUTH_ARGON2_PARALLELISM", 1, 64, &par},
		{"SHOPAUTH_ARGON2_SALT_LEN", 8, 64, &cfg.Params.SaltLength},
		{"SHOPAUTH_ARGON2_KEY_LEN", 16, 64, &cfg.Params.KeyLength},
	}
	for _, s := range settings {
		raw, ok := os.LookupEnv(s.env)
		if !ok {
			continue
		}
		u, err := parseU32(raw, s.min, s.max)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", s.env, err)
		}
		*s.dst = u
	}

	cfg.Params.Parallelism = uint8(par) // #nosec G115 -- bounded to [1..64] above.
	cfg.MaxInputBytes = int(maxBytes)
	return cfg, nil
}

func parseU32(s string, minVal, maxVal uint32) (uint32, error) {
	u64, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: not an unsigned integer", ErrInvalidSetting)
	}
	u := uint32(u64)
	if u < minVal || u > maxVal {
		return 0, fmt.Errorf("%w: out of range [%d..%d]", ErrInvalidSetting, minVal, maxVal)
	}
	return u, nil
}
