// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/taibuivan/bcbbs/internal/platform/apperr"
	"github.com/taibuivan/bcbbs/internal/platform/constants"
	"github.com/taibuivan/bcbbs/internal/platform/ctxutil"
	"github.com/taibuivan/bcbbs/internal/platform/respond"
	"github.com/taibuivan/bcbbs/internal/platform/sec"
)

// TokenVerifier is satisfied by [sec.TokenService].
type TokenVerifier interface {
	VerifyToken(tokenStr string) (*sec.AuthClaims, error)
}

// bearerToken returns the credential of an "Authorization: Bearer <token>"
// header. The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", false
	}
	return token, true
}

// Authenticate attaches the claims of a valid bearer token to the context.
//
// It never rejects: a missing, malformed or expired token leaves the caller
// anonymous, so a stale token in the browser cannot block role-login or the
// public routes. Protected routes enforce identity with [RequireAuth] or
// [RequireRole].
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			header := request.Header.Get(constants.HeaderAuthorization)
			if header == "" {
				next.ServeHTTP(writer, request)
				return
			}

			ctx := request.Context()
			logger := ctxutil.GetLogger(ctx)

			token, ok := bearerToken(header)
			if !ok {
				logger.DebugContext(ctx, "auth_header_malformed")
				next.ServeHTTP(writer, request)
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				logger.DebugContext(ctx, "auth_token_rejected", slog.String("error", err.Error()))
				next.ServeHTTP(writer, request)
				return
			}

			next.ServeHTTP(writer, request.WithContext(ctxutil.WithAuthUser(ctx, claims)))
		})
	}
}

// RequireAuth answers 401 for anonymous callers. Mount it after [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if ctxutil.GetAuthUser(request.Context()) == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// RequireRole answers 401 for anonymous callers and 403 when the caller's role
// ranks below role (see [sec.UserRole.AtLeast]). It implies [RequireAuth].
func RequireRole(role sec.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RequireAuth(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			claims := ctxutil.GetAuthUser(request.Context())
			if !sec.UserRole(claims.Role).AtLeast(role) {
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}
			next.ServeHTTP(writer, request)
		}))
	}
}
