// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ident canonicalizes user-supplied account identifiers.
//
// # Usage
//
// Usernames and emails are unique keys. Two strings that render identically
// (full-width digits, composed vs. decomposed accents) must resolve to the
// same account, so every identifier is normalized before it is stored or
// looked up.
package ident

import (
	"strings"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Username returns the canonical form of a username.
//
// # Transformation Pipeline
//
// 1. Trims surrounding whitespace.
// 2. Normalizes to NFKC (folds compatibility forms: "ｕｓｅｒ１" → "user1").
//
// Case is preserved; usernames are case-sensitive keys.
func Username(s string) string {
	return normalize(strings.TrimSpace(s))
}

// Email returns the canonical form of an email address (NFKC, lower-cased).
func Email(s string) string {
	return strings.ToLower(normalize(strings.TrimSpace(s)))
}

// normalize applies NFKC, returning the input untouched if the transform fails.
func normalize(s string) string {
	result, _, err := transform.String(norm.NFKC, s)
	if err != nil {
		return s
	}
	return result
}
