// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package respond writes the JSON bodies of every endpoint.
//
// Successes are wrapped as {"data": ...} (plus "meta" for pages); failures as
// {"error", "code", "details"} with the HTTP status taken from [apperr.AppError].
// Anything that is not an AppError is logged and reported as INTERNAL_ERROR so
// storage and hashing failures never leak to the client.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/taibuivan/bcbbs/internal/platform/apperr"
	"github.com/taibuivan/bcbbs/internal/platform/ctxutil"
	"github.com/taibuivan/bcbbs/pkg/pagination"
)

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type PaginatedEnvelope struct {
	Data any             `json:"data"`
	Meta pagination.Meta `json:"meta"`
}

type ErrorEnvelope struct {
	Error   string              `json:"error"`
	Code    string              `json:"code"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

// JSON is the single write path; encoding errors after WriteHeader are dropped.
func JSON(writer http.ResponseWriter, statusCode int, payload any) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

func OK(writer http.ResponseWriter, data any) {
	Status(writer, http.StatusOK, data)
}

func Created(writer http.ResponseWriter, data any) {
	Status(writer, http.StatusCreated, data)
}

// Status is used where the code depends on runtime state, e.g. readiness.
func Status(writer http.ResponseWriter, statusCode int, data any) {
	JSON(writer, statusCode, SuccessEnvelope{Data: data})
}

func Paginated(writer http.ResponseWriter, data any, meta pagination.Meta) {
	JSON(writer, http.StatusOK, PaginatedEnvelope{Data: data, Meta: meta})
}

// Error maps err onto the error envelope. Server-side failures (5xx) are
// logged with their cause; the cause itself is never serialized.
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	ctx := request.Context()

	var appError *apperr.AppError
	if !errors.As(err, &appError) {
		appError = apperr.Internal(err)
	}

	if appError.HTTPStatus >= http.StatusInternalServerError {
		ctxutil.GetLogger(ctx).ErrorContext(ctx, "api_server_error",
			slog.String("code", appError.Code),
			slog.String("request_id", ctxutil.GetRequestID(ctx)),
			slog.Any("cause", appError.Cause),
		)
	}

	if appError.RetryAfter > 0 {
		writer.Header().Set("Retry-After", strconv.Itoa(appError.RetryAfter))
	}

	JSON(writer, appError.HTTPStatus, ErrorEnvelope{
		Error:   appError.Message,
		Code:    appError.Code,
		Details: appError.Details,
	})
}
