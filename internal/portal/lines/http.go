// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package lines

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/bcbbs/internal/platform/respond"
	"github.com/taibuivan/bcbbs/internal/platform/validate"
	"github.com/taibuivan/bcbbs/pkg/query"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts GET /lines on router.
func (handler *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/lines", handler.listLines)
}

/*
GET /lines?type=MEMBER

Description: Lists active access lines. type accepts one value or a
comma-separated list, in any letter case.

Response:
  - 200: []Line
  - 400: VALIDATION_ERROR
*/
func (handler *Handler) listLines(writer http.ResponseWriter, request *http.Request) {
	raw := query.StringSlice(request.URL.Query().Get(FieldType))

	validator := &validate.Validator{}
	validator.Required(FieldType, strings.Join(raw, ","))

	types := make([]LineType, 0, len(raw))
	for _, value := range raw {
		validator.OneOf(FieldType, strings.ToUpper(value), Types...)
		if lineType, ok := ParseLineType(value); ok {
			types = append(types, lineType)
		}
	}

	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	lines, err := handler.service.ListActive(request.Context(), types)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, lines)
}
