// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"errors"
	"strings"
)

// # User Roles

// UserRole represents the segment of the platform an account belongs to.
type UserRole string

const (
	// Unrestricted system access, provisions member and agent accounts
	RoleAdmin UserRole = "ADMIN"

	// Channel partner accounts, provisioned with an initial password
	RoleAgent UserRole = "AGENT"

	// Provisioned member accounts, provisioned with an initial password
	RoleMember UserRole = "MEMBER"

	// Default role for self-registered users
	RoleUser UserRole = "USER"
)

// ErrUnknownRole is returned by [ParseRole] for input outside the known role set.
var ErrUnknownRole = errors.New("sec: unknown role")

// knownRoles is the closed set accepted by [ParseRole].
var knownRoles = []UserRole{RoleUser, RoleMember, RoleAgent, RoleAdmin}

// ParseRole matches input against the known role set, ignoring case and
// surrounding whitespace.
func ParseRole(input string) (UserRole, error) {
	candidate := strings.TrimSpace(input)
	for _, role := range knownRoles {
		if strings.EqualFold(candidate, string(role)) {
			return role, nil
		}
	}
	return "", ErrUnknownRole
}

// Valid reports whether r belongs to the known role set.
func (r UserRole) Valid() bool {
	return r.level() > 0
}

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r UserRole) AtLeast(target UserRole) bool {
	return r.level() >= target.level()
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r UserRole) level() int {

	// Linear scale (10-40) allows for future intermediate roles
	switch r {
	case RoleAdmin:
		return 40
	case RoleAgent:
		return 30
	case RoleMember:
		return 20
	case RoleUser:
		return 10
	default:
		return 0
	}
}
