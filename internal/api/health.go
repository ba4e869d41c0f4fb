// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taibuivan/bcbbs/internal/platform/respond"
)

// HealthDependencies are the pings run by GET /ready. A nil check is skipped,
// e.g. CheckCache when captcha challenges live in Postgres.
type HealthDependencies struct {
	CheckDatabase func(context.Context) error
	CheckCache    func(context.Context) error
}

type dependencyStatus struct {
	Name string `json:"name"`
	OK   bool   `json:"ok"`
}

type readinessReport struct {
	Status string             `json:"status"`
	Checks []dependencyStatus `json:"checks"`
}

// NewHealthHandlers returns the GET /health and GET /ready handlers.
//
// /health answers 200 while the process serves HTTP. /ready answers 200
// "ready" when every configured dependency responds, otherwise 503 "degraded".
// Failure details go to the log only.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	liveness = func(writer http.ResponseWriter, _ *http.Request) {
		respond.OK(writer, readinessReport{Status: "ok", Checks: []dependencyStatus{}})
	}

	checks := []struct {
		name string
		ping func(context.Context) error
	}{
		{"postgres", deps.CheckDatabase},
		{"redis", deps.CheckCache},
	}

	readiness = func(writer http.ResponseWriter, request *http.Request) {
		ctx := request.Context()
		report := readinessReport{Status: "ready", Checks: []dependencyStatus{}}

		for _, check := range checks {
			if check.ping == nil {
				continue
			}
			err := check.ping(ctx)
			if err != nil {
				report.Status = "degraded"
				logger.ErrorContext(ctx, "readiness_check_failed",
					slog.String("dependency", check.name),
					slog.Any("error", err),
				)
			}
			report.Checks = append(report.Checks, dependencyStatus{Name: check.name, OK: err == nil})
		}

		status := http.StatusOK
		if report.Status != "ready" {
			status = http.StatusServiceUnavailable
		}
		respond.Status(writer, status, report)
	}

	return liveness, readiness
}
