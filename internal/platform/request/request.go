// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package requestutil reads auth payloads and the verified caller from requests.
package requestutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/taibuivan/bcbbs/internal/platform/apperr"
	"github.com/taibuivan/bcbbs/internal/platform/ctxutil"
	"github.com/taibuivan/bcbbs/internal/platform/validate"
)

// maxBodyBytes caps request bodies; auth payloads are a few short strings.
const maxBodyBytes = 64 << 10

// DecodeJSON decodes exactly one JSON value from the body into target. Oversized,
// truncated or trailing-garbage bodies all yield [validate.ErrInvalidJSON].
func DecodeJSON(request *http.Request, target any) error {
	decoder := json.NewDecoder(io.LimitReader(request.Body, maxBodyBytes+1))
	if err := decoder.Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return validate.ErrInvalidJSON
	}
	return nil
}

// RequiredUserID returns the caller's account ID, or 401 for anonymous callers.
func RequiredUserID(request *http.Request) (string, error) {
	claims := ctxutil.GetAuthUser(request.Context())
	if claims == nil {
		return "", apperr.Unauthorized("Authentication required")
	}
	return claims.UserID, nil
}
