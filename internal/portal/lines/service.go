// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package lines

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/taibuivan/bcbbs/internal/platform/ctxutil"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListActive returns the active lines for types, each type listed once.
func (service *Service) ListActive(context context.Context, types []LineType) ([]*Line, error) {
	unique := slices.Compact(slices.Sorted(slices.Values(types)))

	lines, err := service.repo.ListActive(context, unique)
	if err != nil {
		return nil, fmt.Errorf("lines_service_list_failed: %w", err)
	}

	ctxutil.GetLogger(context).DebugContext(context, "access_lines_listed",
		slog.Any("types", unique),
		slog.Int("count", len(lines)),
	)
	return lines, nil
}
