// Package session implements shopauth's session lifecycle.
//
// A login yields a signed access token (24h) and an opaque refresh token
// (30 days). Refresh tokens are single-use: Rotate consumes the stored
// record and inserts its replacement in one transaction, so two concurrent
// rotations of the same token cannot both succeed.
//
// Only the one-way digest of a refresh token is persisted. Access tokens are
// JWT (HS256) by default or PASETO v4.public when configured.
//
// Transport (cookies, CSRF, HTTP status mapping) lives in the api package.
package session
