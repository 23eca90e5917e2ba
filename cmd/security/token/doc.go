// Package token provides the secret primitives behind shopauth sessions.
//
// It is the single source of truth for refresh-token hashing and for minting
// opaque random values (refresh tokens, CSRF tokens).
//
// Hashing modes:
// - SHA-256(token) when no HMAC key is configured (dev).
// - HMAC-SHA256(token, key) when SHOPAUTH_TOKEN_HMAC_KEY is set.
//
// Both produce a stable 64-char hex digest suitable for a unique index.
//
// Policy:
//   - If RequireTokenHMAC=true, callers MUST build the Hasher with
//     NewHasherFromEnv(true, 32) so a missing or short key fails startup.
package token
