package app

import (
	"errors"

	"shopauth/cmd/security/token"
)

// minHMACKeyBytes is the floor for the refresh-token HMAC key.
const minHMACKeyBytes = 32

// NewTokenHasher enforces the refresh-token hashing policy at startup and
// returns the hasher the session service uses.
//
// With RequireTokenHMAC a missing or short SHOPAUTH_TOKEN_HMAC_KEY is fatal.
// Without it, a valid key still selects HMAC and an absent one selects SHA-256.
func NewTokenHasher(cfg Config) (token.Hasher, error) {
	h, err := token.NewHasherFromEnv(cfg.RequireTokenHMAC, minHMACKeyBytes)
	switch {
	case err == nil:
	case errors.Is(err, token.ErrHMACKeyMissing):
		return token.Hasher{}, errors.New("security policy: SHOPAUTH_REQUIRE_TOKEN_HMAC=true but SHOPAUTH_TOKEN_HMAC_KEY is missing")
	case errors.Is(err, token.ErrHMACKeyTooShort):
		return token.Hasher{}, errors.New("security policy: SHOPAUTH_TOKEN_HMAC_KEY is too short (min 32 bytes)")
	default:
		return token.Hasher{}, err
	}

	if cfg.RequireTokenHMAC && !h.Keyed() {
		return token.Hasher{}, errors.New("security policy: SHOPAUTH_REQUIRE_TOKEN_HMAC=true but token hasher is not in HMAC mode")
	}
	return h, nil
}
