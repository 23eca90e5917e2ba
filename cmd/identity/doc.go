// Package identity owns the shopauth principal: who a user is and what role
// they hold.
//
// Authentication layers never trust claims carried in a token for
// authorization; they re-resolve the principal through a Directory on every
// request so role changes and deletions take effect immediately.
package identity
