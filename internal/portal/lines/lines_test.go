// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package lines_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/bcbbs/internal/portal/lines"
	"github.com/taibuivan/bcbbs/pkg/pointer"
)

type fakeRepository struct {
	lines []*lines.Line
	err   error
	calls [][]lines.LineType
}

func (repository *fakeRepository) ListActive(_ context.Context, types []lines.LineType) ([]*lines.Line, error) {
	repository.calls = append(repository.calls, types)
	if repository.err != nil {
		return nil, repository.err
	}

	result := make([]*lines.Line, 0)
	for _, line := range repository.lines {
		for _, lineType := range types {
			if line.Type == lineType {
				result = append(result, line)
			}
		}
	}
	return result, nil
}

func newRouter(repository lines.Repository) http.Handler {
	router := chi.NewRouter()
	lines.NewHandler(lines.NewService(repository)).RegisterRoutes(router)
	return router
}

func get(handler http.Handler, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, target, nil))
	return recorder
}

func seeded() *fakeRepository {
	return &fakeRepository{lines: []*lines.Line{
		{ID: 1, Name: "Member line 1", URL: "https://m1.bcbbs.test", Type: lines.TypeMember, PingMs: pointer.To(38)},
		{ID: 2, Name: "Agent line 1", URL: "https://a1.bcbbs.test", Type: lines.TypeAgent},
		{ID: 3, Name: "Member line 2", URL: "https://m2.bcbbs.test", Type: lines.TypeMember},
	}}
}

/*
TestParseLineType accepts known types in any case.
*/
func TestParseLineType(t *testing.T) {
	tests := []struct {
		input string
		want  lines.LineType
		ok    bool
	}{
		{"MEMBER", lines.TypeMember, true},
		{" agent ", lines.TypeAgent, true},
		{"Admin", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := lines.ParseLineType(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

/*
TestHandler_ListLines returns only the requested segment in repository order.
*/
func TestHandler_ListLines(t *testing.T) {
	repository := seeded()
	recorder := get(newRouter(repository), "/lines?type=member&t=1718000000")
	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Data []struct {
			ID     int64  `json:"id"`
			Name   string `json:"name"`
			Type   string `json:"type"`
			PingMs *int   `json:"pingMs"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.Len(t, body.Data, 2)
	assert.Equal(t, int64(1), body.Data[0].ID)
	assert.Equal(t, "MEMBER", body.Data[0].Type)
	require.NotNil(t, body.Data[0].PingMs)
	assert.Equal(t, 38, *body.Data[0].PingMs)
	assert.Nil(t, body.Data[1].PingMs)

	assert.Equal(t, [][]lines.LineType{{lines.TypeMember}}, repository.calls)
}

/*
TestHandler_ListLines_MultipleTypes deduplicates a comma-separated type list.
*/
func TestHandler_ListLines_MultipleTypes(t *testing.T) {
	repository := seeded()
	recorder := get(newRouter(repository), "/lines?type=MEMBER,agent,Member")
	require.Equal(t, http.StatusOK, recorder.Code)

	require.Len(t, repository.calls, 1)
	assert.Equal(t, []lines.LineType{lines.TypeAgent, lines.TypeMember}, repository.calls[0])
}

/*
TestHandler_ListLines_Empty renders an empty array rather than null.
*/
func TestHandler_ListLines_Empty(t *testing.T) {
	recorder := get(newRouter(&fakeRepository{}), "/lines?type=AGENT")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"data":[]}`, recorder.Body.String())
}

/*
TestHandler_ListLines_Invalid rejects missing or unknown types before touching storage.
*/
func TestHandler_ListLines_Invalid(t *testing.T) {
	for _, target := range []string{"/lines", "/lines?type=", "/lines?type=ADMIN", "/lines?type=MEMBER,USER"} {
		t.Run(target, func(t *testing.T) {
			repository := seeded()
			recorder := get(newRouter(repository), target)

			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.Contains(t, recorder.Body.String(), `"code":"VALIDATION_ERROR"`)
			assert.Empty(t, repository.calls)
		})
	}
}

/*
TestHandler_ListLines_StorageFailure hides the cause behind a 500.
*/
func TestHandler_ListLines_StorageFailure(t *testing.T) {
	recorder := get(newRouter(&fakeRepository{err: errors.New("relation does not exist")}), "/lines?type=MEMBER")

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.NotContains(t, recorder.Body.String(), "relation")
}
