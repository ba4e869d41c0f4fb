// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr is the error vocabulary shared by services and handlers.

An [AppError] carries the HTTP status, a stable machine code such as
CAPTCHA_INVALID or ROLE_DENIED, and a message that is safe to show a user.
Storage and hashing failures travel in Cause, which is logged but never sent.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Generic codes. Domain packages define their own (e.g. CAPTCHA_INVALID) via [New].
const (
	CodeNotFound     = "NOT_FOUND"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeValidation   = "VALIDATION_ERROR"
	CodeRateLimited  = "RATE_LIMITED"
	CodeInternal     = "INTERNAL_ERROR"
)

type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Cause      error
	Details    []FieldError
	// RetryAfter, in seconds, is sent as the Retry-After header when positive.
	RetryAfter int
}

// FieldError names one request field that failed validation.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error returns the client-safe message, never the cause.
func (e *AppError) Error() string { return e.Message }

func (e *AppError) Unwrap() error { return e.Cause }

// New builds an error with a domain-specific code, e.g. 400 CAPTCHA_INVALID.
func New(status int, code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, HTTPStatus: status}
}

// NotFound reads "<resource> not found".
func NotFound(resource string) *AppError {
	return New(http.StatusNotFound, CodeNotFound, resource+" not found")
}

func Unauthorized(msg string) *AppError {
	return New(http.StatusUnauthorized, CodeUnauthorized, msg)
}

func Forbidden(msg string) *AppError {
	return New(http.StatusForbidden, CodeForbidden, msg)
}

// Conflict reports a unique-constraint violation, such as a taken username.
func Conflict(msg string) *AppError {
	return New(http.StatusConflict, CodeConflict, msg)
}

func ValidationError(msg string, details ...FieldError) *AppError {
	err := New(http.StatusBadRequest, CodeValidation, msg)
	err.Details = details
	return err
}

func RateLimited(retryAfterSeconds int) *AppError {
	err := New(http.StatusTooManyRequests, CodeRateLimited,
		fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds))
	err.RetryAfter = retryAfterSeconds
	return err
}

// Internal hides cause behind a generic 500 message.
func Internal(cause error) *AppError {
	err := New(http.StatusInternalServerError, CodeInternal, "An unexpected error occurred")
	err.Cause = cause
	return err
}

// As returns the first [*AppError] in err's chain, or nil.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

func IsAppError(err error) bool { return As(err) != nil }

// HasCode reports whether err's chain holds an [*AppError] with code.
func HasCode(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}
