package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopauth/cmd/identity"
	"shopauth/cmd/security/password"
)

// userStore is what the bootstrap step needs from the identity backend.
type userStore interface {
	identity.Directory
	identity.Provisioner
}

// seedAdmin creates an ADMIN principal for email unless an account with that
// email already exists. It does nothing when email is empty.
func seedAdmin(ctx context.Context, users userStore, pw password.Config, email, plain string, log Logger) error {
	if email == "" {
		return nil
	}
	if plain == "" {
		return errors.New("bootstrap: SHOPAUTH_BOOTSTRAP_ADMIN_PASSWORD is required with SHOPAUTH_BOOTSTRAP_ADMIN_EMAIL")
	}

	_, err := users.CredentialsByEmail(ctx, email)
	if err == nil {
		log.Info("bootstrap.admin.exists")
		return nil
	}
	if !identity.IsNotFound(err) {
		return fmt.Errorf("bootstrap: lookup: %w", err)
	}

	hash, err := pw.Hash(plain)
	if err != nil {
		return fmt.Errorf("bootstrap: hash: %w", err)
	}
	p, err := users.CreatePrincipal(ctx, identity.NewPrincipal{
		Email:        email,
		Role:         identity.RoleAdmin,
		PasswordHash: hash,
		Now:          time.Now().UTC(),
	})
	if identity.IsConflict(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("bootstrap: create: %w", err)
	}
	log.Info("bootstrap.admin.created", "principal_id", p.ID)
	return nil
}
