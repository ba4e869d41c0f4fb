// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"github.com/taibuivan/bcbbs/internal/platform/sec"
	"github.com/taibuivan/bcbbs/pkg/pointer"
)

// # Password Lifecycle Policy

// LifecyclePolicy decides whether a principal must replace its provisioned
// password.
//
// The login counter is observational only. It grows without bound and never
// disables the account: the retired rule that disabled accounts after a few
// unrotated logins left them with no way to reach the change-password page.
type LifecyclePolicy struct {
	rotationRoles map[sec.UserRole]struct{}
}

// DefaultRotationRoles are the roles provisioned with an initial password.
var DefaultRotationRoles = []sec.UserRole{sec.RoleMember, sec.RoleAgent}

// NewLifecyclePolicy builds a policy for the given rotation roles. With no
// roles it falls back to [DefaultRotationRoles].
func NewLifecyclePolicy(roles ...sec.UserRole) *LifecyclePolicy {
	if len(roles) == 0 {
		roles = DefaultRotationRoles
	}

	set := make(map[sec.UserRole]struct{}, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}

	return &LifecyclePolicy{rotationRoles: set}
}

// RequiresRotation reports whether role is subject to mandatory rotation.
func (policy *LifecyclePolicy) RequiresRotation(role sec.UserRole) bool {
	_, ok := policy.rotationRoles[role]
	return ok
}

// LockedOut reports whether the principal was disabled under the retired
// policy and can only be recovered through force-change-password.
func (policy *LifecyclePolicy) LockedOut(principal *Principal) bool {
	return !principal.Enabled &&
		policy.RequiresRotation(principal.Role) &&
		!principal.PasswordRotated()
}

// Evaluate applies the policy to a successful login.
//
// It returns whether the client must be sent to the change-password screen and
// whether principal was mutated (and so needs to be persisted). Principals
// outside the rotation roles, or already rotated, are left untouched.
func (policy *LifecyclePolicy) Evaluate(principal *Principal) (needPasswordChange bool, mutated bool) {
	if !policy.RequiresRotation(principal.Role) {
		return false, false
	}

	if principal.PasswordRotated() {
		return false, false
	}

	principal.materialize()
	principal.LoginCountWithoutChange = pointer.To(principal.LoginsWithoutRotation() + 1)

	return true, true
}

// Rotate installs a new password hash and marks the initial password as
// replaced. The counter resets exactly here.
func (policy *LifecyclePolicy) Rotate(principal *Principal, newHash string) {
	principal.PasswordHash = newHash
	principal.PasswordChanged = pointer.To(true)
	principal.LoginCountWithoutChange = pointer.To(0)
}
