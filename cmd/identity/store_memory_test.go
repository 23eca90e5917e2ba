package identity

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStore_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	name := "  Ada  "
	p, err := s.CreatePrincipal(ctx, NewPrincipal{
		Name:         &name,
		Email:        "Ada@Example.com",
		PasswordHash: "$argon2id$stub",
	})
	if err != nil {
		t.Fatalf("CreatePrincipal: %v", err)
	}
	if p.Role != RoleUser {
		t.Fatalf("default role=%s want USER", p.Role)
	}
	if p.Name == nil || *p.Name != "Ada" {
		t.Fatalf("name not trimmed: %v", p.Name)
	}

	got, err := s.PrincipalByID(ctx, p.ID)
	if err != nil || got.Email != "Ada@Example.com" {
		t.Fatalf("PrincipalByID: %+v err=%v", got, err)
	}

	c, err := s.CredentialsByEmail(ctx, " ada@EXAMPLE.com ")
	if err != nil {
		t.Fatalf("CredentialsByEmail: %v", err)
	}
	if c.Principal.ID != p.ID || c.PasswordHash != "$argon2id$stub" {
		t.Fatalf("unexpected credentials: %+v", c)
	}
}

func TestMemoryStore_DuplicateEmailConflicts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if _, err := s.CreatePrincipal(ctx, NewPrincipal{Email: "a@b.c", PasswordHash: "h"}); err != nil {
		t.Fatalf("first: %v", err)
	}
	_, err := s.CreatePrincipal(ctx, NewPrincipal{Email: "A@B.C", PasswordHash: "h"})
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestMemoryStore_InvalidInput(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	cases := []NewPrincipal{
		{Email: "", PasswordHash: "h"},
		{Email: "no-at-sign", PasswordHash: "h"},
		{Email: "a@b.c", PasswordHash: ""},
		{Email: "a@b.c", PasswordHash: "h", Role: Role("ROOT")},
	}
	for _, in := range cases {
		if _, err := s.CreatePrincipal(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("input %+v: expected ErrInvalidInput, got %v", in, err)
		}
	}
}

func TestMemoryStore_DeleteMakesLookupsFail(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	p, err := s.CreatePrincipal(ctx, NewPrincipal{Email: "x@y.z", PasswordHash: "h"})
	if err != nil {
		t.Fatalf("CreatePrincipal: %v", err)
	}
	s.Delete(p.ID)

	if _, err := s.PrincipalByID(ctx, p.ID); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := s.CredentialsByEmail(ctx, "x@y.z"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRole_Satisfies(t *testing.T) {
	cases := []struct {
		have, need Role
		want       bool
	}{
		{RoleUser, RoleUser, true},
		{RoleUser, RoleAdmin, false},
		{RoleAdmin, RoleUser, true},
		{RoleAdmin, RoleAdmin, true},
	}
	for _, tc := range cases {
		if got := tc.have.Satisfies(tc.need); got != tc.want {
			t.Fatalf("%s satisfies %s = %v, want %v", tc.have, tc.need, got, tc.want)
		}
	}

	if r, ok := ParseRole(" admin "); !ok || r != RoleAdmin {
		t.Fatalf("ParseRole admin: %s %v", r, ok)
	}
	if _, ok := ParseRole("owner"); ok {
		t.Fatalf("expected unknown role")
	}
}
