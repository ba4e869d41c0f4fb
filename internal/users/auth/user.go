// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements role-gated authentication and the password lifecycle.

It defines the core domain entities (Principal, CaptchaChallenge) and the rules
that govern them: single-use captcha consumption, the mandatory rotation of
provisioned passwords, and the token-less recovery flow that unlocks accounts
disabled under the retired auto-disable policy.

# Architecture

Entities defined here have no storage dependencies. Persistence, hashing, and
token signing are consumed through the contracts declared in store.go and
service.go.
*/
package auth

import (
	"time"

	"github.com/taibuivan/bcbbs/internal/platform/sec"
	"github.com/taibuivan/bcbbs/pkg/pointer"
)

// # Domain Entities

// Principal represents an account on the portal.
//
// PasswordChanged and LoginCountWithoutChange are nullable because rows
// created before the lifecycle policy existed carry NULL in both columns.
// Never branch on the raw pointers; use [Principal.PasswordRotated] and
// [Principal.LoginsWithoutRotation].
type Principal struct {
	ID                      string       `json:"id"`
	Username                string       `json:"username"`
	Email                   string       `json:"email"`
	PasswordHash            string       `json:"-"` // Explicitly omitted from JSON for security.
	Nickname                string       `json:"nickname"`
	Role                    sec.UserRole `json:"role"`
	Enabled                 bool         `json:"enabled"`
	PasswordChanged         *bool        `json:"-"`
	LoginCountWithoutChange *int         `json:"-"`
	CreatedAt               time.Time    `json:"created_at"`
	UpdatedAt               time.Time    `json:"updated_at"`
}

// PasswordRotated reports whether the initial password has been replaced.
// A NULL legacy value reads as false.
func (principal *Principal) PasswordRotated() bool {
	return pointer.Val(principal.PasswordChanged)
}

// LoginsWithoutRotation returns the number of logins since provisioning
// without a password change. A NULL legacy value reads as 0.
func (principal *Principal) LoginsWithoutRotation() int {
	return pointer.Val(principal.LoginCountWithoutChange)
}

// materialize replaces NULL lifecycle fields with their defaults so the row is
// written back fully populated.
func (principal *Principal) materialize() {
	principal.PasswordChanged = pointer.To(principal.PasswordRotated())
	principal.LoginCountWithoutChange = pointer.To(principal.LoginsWithoutRotation())
}

// CaptchaChallenge is a short-lived, single-use numeric code bound to an opaque token.
type CaptchaChallenge struct {
	Token     string    `json:"token"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
	Used      bool      `json:"-"`
}

// Expired reports whether the challenge can no longer be redeemed at now.
func (challenge *CaptchaChallenge) Expired(now time.Time) bool {
	return !now.Before(challenge.ExpiresAt)
}

// AuthResult is the transient payload returned by every successful authentication.
type AuthResult struct {
	Token                   string `json:"token,omitempty"`
	Username                string `json:"username"`
	Email                   string `json:"email"`
	Nickname                string `json:"nickname"`
	Role                    string `json:"role"`
	NeedPasswordChange      bool   `json:"needPasswordChange"`
	LoginCountWithoutChange int    `json:"loginCountWithoutChange"`
}

// newAuthResult projects a principal and its freshly minted token into an [AuthResult].
func newAuthResult(principal *Principal, token string, needPasswordChange bool) *AuthResult {
	return &AuthResult{
		Token:                   token,
		Username:                principal.Username,
		Email:                   principal.Email,
		Nickname:                principal.Nickname,
		Role:                    string(principal.Role),
		NeedPasswordChange:      needPasswordChange,
		LoginCountWithoutChange: principal.LoginsWithoutRotation(),
	}
}

// # Field Identifiers

// JSON field names for validation errors and request payloads.
const (
	FieldUsername     = "username"
	FieldEmail        = "email"
	FieldPassword     = "password"
	FieldNickname     = "nickname"
	FieldRole         = "role"
	FieldCaptchaToken = "captchaToken"
	FieldCaptchaCode  = "captchaCode"
	FieldOldPassword  = "oldPassword"
	FieldNewPassword  = "newPassword"
	FieldMessage      = "message"
)
