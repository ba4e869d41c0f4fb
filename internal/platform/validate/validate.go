// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate checks decoded request payloads before they reach a service.
//
// Rules are chained on a [Validator]; each field reports only its first failing
// rule, so an empty username yields "This field is required" and not a second
// "Minimum 3 characters" entry. [Validator.Err] returns every failed field in
// one 400 VALIDATION_ERROR.
package validate

import (
	"fmt"
	"net/mail"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/taibuivan/bcbbs/internal/platform/apperr"
)

// ErrInvalidJSON is returned for bodies that are not a single JSON object.
var ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")

// usernamePattern admits letters and digits of any script plus '_', '.' and '-'.
var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.-]+$`)

// Validator is single-use and not safe for concurrent use.
type Validator struct {
	errs []apperr.FieldError
}

// check records message for field unless cond holds or field already failed.
func (v *Validator) check(cond bool, field, message string) *Validator {
	if cond || v.failed(field) {
		return v
	}
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
	return v
}

func (v *Validator) failed(field string) bool {
	return slices.ContainsFunc(v.errs, func(e apperr.FieldError) bool { return e.Field == field })
}

// Required rejects empty and whitespace-only values.
func (v *Validator) Required(field, value string) *Validator {
	return v.check(strings.TrimSpace(value) != "", field, "This field is required")
}

// MinLen and MaxLen count runes, not bytes.
func (v *Validator) MinLen(field, value string, min int) *Validator {
	return v.check(utf8.RuneCountInString(value) >= min, field, fmt.Sprintf("Minimum %d characters", min))
}

func (v *Validator) MaxLen(field, value string, max int) *Validator {
	return v.check(utf8.RuneCountInString(value) <= max, field, fmt.Sprintf("Maximum %d characters", max))
}

// Email accepts a bare RFC 5322 address; display names are rejected.
func (v *Validator) Email(field, value string) *Validator {
	address, err := mail.ParseAddress(value)
	return v.check(err == nil && address.Address == value, field, "Must be a valid email address")
}

func (v *Validator) Username(field, value string) *Validator {
	return v.check(usernamePattern.MatchString(value), field, "Only letters, digits, '_', '.' and '-' are allowed")
}

func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	return v.check(slices.Contains(allowed, value), field, "Must be one of: "+strings.Join(allowed, ", "))
}

// HasErrors reports whether any rule has failed so far.
func (v *Validator) HasErrors() bool {
	return len(v.errs) > 0
}

// Err returns nil when every rule passed.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return apperr.ValidationError("Validation failed", v.errs...)
}
