// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/taibuivan/bcbbs/internal/platform/apperr"
	"github.com/taibuivan/bcbbs/internal/platform/sec"
)

// PasswordHasher is the contract for one-way password hashing.
type PasswordHasher interface {
	// Hash derives a storable hash from a plain-text password.
	Hash(plain string) (string, error)

	// Verify reports whether plain matches hash.
	Verify(plain, hash string) bool
}

// # Credential Verification

// absentPrincipalHash is verified against when a username is unknown, so the
// miss costs one bcrypt comparison like a wrong password does.
var absentPrincipalHash = sync.OnceValue(func() string {
	hash, err := sec.HashPassword("absent-principal")
	if err != nil {
		return ""
	}
	return hash
})

// CredentialVerifier confirms a username/password pair against the principal store.
type CredentialVerifier struct {
	principals PrincipalRepository
	hasher     PasswordHasher
}

// NewCredentialVerifier constructs a [CredentialVerifier].
func NewCredentialVerifier(principals PrincipalRepository, hasher PasswordHasher) *CredentialVerifier {
	return &CredentialVerifier{principals: principals, hasher: hasher}
}

/*
Authenticate returns the principal if the credentials are valid and the account is enabled.

Description: Unknown usernames, wrong passwords, and disabled accounts all
yield the same INVALID_CREDENTIALS error so a caller cannot enumerate accounts.
An unknown username still runs one password verification to keep the
response time in line with a wrong password.

Parameters:
  - context: context.Context
  - username: string (already canonicalized)
  - password: string

Returns:
  - *Principal: The authenticated principal
  - error: INVALID_CREDENTIALS (401) or storage failures
*/
func (verifier *CredentialVerifier) Authenticate(context context.Context, username, password string) (*Principal, error) {
	principal, err := verifier.principals.FindByUsername(context, username)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			verifier.hasher.Verify(password, absentPrincipalHash())
			return nil, errInvalidCredentials()
		}
		return nil, fmt.Errorf("credential_verifier_lookup_failed: %w", err)
	}

	if !verifier.hasher.Verify(password, principal.PasswordHash) {
		return nil, errInvalidCredentials()
	}

	if !principal.Enabled {
		return nil, errInvalidCredentials()
	}

	return principal, nil
}

// # Role Gate

// parseRequestedRole wraps [sec.ParseRole] in the INVALID_ROLE (400) error.
func parseRequestedRole(input string) (sec.UserRole, error) {
	role, err := sec.ParseRole(input)
	if err != nil {
		return "", errInvalidRole()
	}
	return role, nil
}

// RequireRoleMatch fails with ROLE_MISMATCH (403) if requested differs from actual.
func RequireRoleMatch(requested, actual sec.UserRole) error {
	if requested != actual {
		return errRoleMismatch()
	}
	return nil
}
