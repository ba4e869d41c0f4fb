// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package search

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/bcbbs/internal/platform/respond"
	"github.com/taibuivan/bcbbs/internal/platform/validate"
	"github.com/taibuivan/bcbbs/pkg/pagination"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts GET /search on router.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/search", handler.search)
}

/*
GET /search?q=keyword&page=1&limit=20

Response:
  - 200: []Item with pagination meta
  - 400: VALIDATION_ERROR (blank or oversized keyword)
*/
func (handler *Handler) search(writer http.ResponseWriter, request *http.Request) {
	keyword := request.URL.Query().Get(FieldKeyword)

	validator := &validate.Validator{}
	validator.Required(FieldKeyword, keyword).MaxLen(FieldKeyword, keyword, MaxKeywordLength)
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	page := pagination.FromRequest(request)

	items, total, err := handler.service.Search(request.Context(), keyword, page)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, items, pagination.NewMeta(page, total))
}
