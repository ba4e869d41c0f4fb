// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/taibuivan/bcbbs/internal/platform/ctxutil"
	"github.com/taibuivan/bcbbs/pkg/pagination"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Search trims keyword and returns the requested page of matches.
func (service *Service) Search(context context.Context, keyword string, page pagination.Params) ([]*Item, int, error) {
	keyword = strings.TrimSpace(keyword)

	items, total, err := service.repo.Search(context, keyword, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("search_service_query_failed: %w", err)
	}

	ctxutil.GetLogger(context).DebugContext(context, "search_executed",
		slog.Int("page", page.Page),
		slog.Int("total", total),
	)
	return items, total, nil
}
