// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package uuid mints the time-ordered (version 7) identifiers used for account
// primary keys and request correlation IDs. New rows therefore append to the
// end of the users.account primary key index.
package uuid

import "github.com/google/uuid"

// New returns a canonical UUIDv7 string, or a random v4 if the v7 generator
// cannot read entropy.
func New() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// Valid reports whether s is a canonical hyphenated UUID of any version.
// Client-supplied X-Request-ID values are only echoed when Valid.
func Valid(s string) bool {
	if len(s) != 36 {
		return false
	}
	return uuid.Validate(s) == nil
}
