// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/taibuivan/bcbbs/internal/platform/apperr"
)

// # Domain Error Codes

const (
	CodeCaptchaInvalid     = "CAPTCHA_INVALID"
	CodeAccountDisabled    = "ACCOUNT_DISABLED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidRole        = "INVALID_ROLE"
	CodeRoleMismatch       = "ROLE_MISMATCH"
	CodeInvalidOldPassword = "INVALID_OLD_PASSWORD"
)

// Each constructor returns a fresh value so callers can never mutate a shared error.

func errCaptchaInvalid() *apperr.AppError {
	return apperr.New(http.StatusBadRequest, CodeCaptchaInvalid, "Invalid captcha")
}

func errAccountDisabled() *apperr.AppError {
	return apperr.New(http.StatusForbidden, CodeAccountDisabled,
		"Account disabled: the initial password was never changed. Use force-change-password to unlock it")
}

// errInvalidCredentials is shared by unknown usernames and wrong passwords so
// the two cannot be told apart.
func errInvalidCredentials() *apperr.AppError {
	return apperr.New(http.StatusUnauthorized, CodeInvalidCredentials, "Username or password is incorrect")
}

func errInvalidRole() *apperr.AppError {
	return apperr.New(http.StatusBadRequest, CodeInvalidRole, "Invalid role")
}

func errRoleMismatch() *apperr.AppError {
	return apperr.New(http.StatusForbidden, CodeRoleMismatch, "Role mismatch")
}

func errInvalidOldPassword() *apperr.AppError {
	return apperr.New(http.StatusBadRequest, CodeInvalidOldPassword, "Old password is incorrect")
}
