// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/bcbbs/internal/api"
	"github.com/taibuivan/bcbbs/internal/platform/apperr"
	"github.com/taibuivan/bcbbs/internal/platform/config"
	"github.com/taibuivan/bcbbs/internal/platform/sec"
	"github.com/taibuivan/bcbbs/internal/portal/lines"
	"github.com/taibuivan/bcbbs/internal/portal/search"
	"github.com/taibuivan/bcbbs/internal/users/auth"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type mapChallengeStore struct {
	mu   sync.Mutex
	data map[string]auth.CaptchaChallenge
}

func (store *mapChallengeStore) Create(_ context.Context, challenge *auth.CaptchaChallenge) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.data[challenge.Token] = *challenge
	return nil
}

func (store *mapChallengeStore) Consume(_ context.Context, token string) (*auth.CaptchaChallenge, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	challenge, ok := store.data[token]
	if !ok {
		return nil, apperr.NotFound("Captcha")
	}
	delete(store.data, token)
	return &challenge, nil
}

type staticLines []*lines.Line

func (static staticLines) ListActive(_ context.Context, types []lines.LineType) ([]*lines.Line, error) {
	result := make([]*lines.Line, 0)
	for _, line := range static {
		for _, lineType := range types {
			if line.Type == lineType {
				result = append(result, line)
			}
		}
	}
	return result, nil
}

type emptySearch struct{}

func (emptySearch) Search(context.Context, string, int, int) ([]*search.Item, int, error) {
	return []*search.Item{}, 0, nil
}

type rejectAllVerifier struct{}

func (rejectAllVerifier) VerifyToken(string) (*sec.AuthClaims, error) {
	return nil, errors.New("invalid")
}

func newServer(t *testing.T, deps api.HealthDependencies) http.Handler {
	t.Helper()
	return newServerWithConfig(t, deps, &config.Config{
		ServerPort:     "0",
		Environment:    "test",
		RateLimitRPS:   100,
		RateLimitBurst: 100,
	})
}

func newServerWithConfig(t *testing.T, deps api.HealthDependencies, cfg *config.Config) http.Handler {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	service := auth.NewService(auth.ServiceDependencies{
		Captcha: auth.NewCaptchaGate(&mapChallengeStore{data: make(map[string]auth.CaptchaChallenge)}),
	})

	liveness, readiness := api.NewHealthHandlers(deps, discardLogger)
	server := api.NewServer(ctx, cfg, discardLogger, rejectAllVerifier{}, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      auth.NewHandler(service, nil),
		Lines: lines.NewHandler(lines.NewService(staticLines{
			{ID: 1, Name: "Member line", URL: "https://m1.bcbbs.test", Type: lines.TypeMember},
		})),
		Search: search.NewHandler(search.NewService(emptySearch{})),
	})

	return server.Handler()
}

func get(handler http.Handler, path string, header ...string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		request.Header.Set(header[i], header[i+1])
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	return recorder
}

/*
TestHealth_Readiness reports degraded status when a dependency fails.
*/
func TestHealth_Readiness(t *testing.T) {
	healthy := newServer(t, api.HealthDependencies{
		CheckDatabase: func(context.Context) error { return nil },
		CheckCache:    func(context.Context) error { return nil },
	})

	recorder := get(healthy, "/ready")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"status":"ready"`)

	degraded := newServer(t, api.HealthDependencies{
		CheckDatabase: func(context.Context) error { return nil },
		CheckCache:    func(context.Context) error { return errors.New("connection refused") },
	})

	recorder = get(degraded, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)

	var body struct {
		Data struct {
			Status string `json:"status"`
			Checks []struct {
				Name string `json:"name"`
				OK   bool   `json:"ok"`
			} `json:"checks"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Data.Status)
	require.Len(t, body.Data.Checks, 2)
	assert.True(t, body.Data.Checks[0].OK)
	assert.False(t, body.Data.Checks[1].OK)
}

/*
TestServer_Routes checks the mounted route groups through the full middleware chain.
*/
func TestServer_Routes(t *testing.T) {
	handler := newServer(t, api.HealthDependencies{})

	assert.Equal(t, http.StatusOK, get(handler, "/health").Code)
	assert.Equal(t, http.StatusOK, get(handler, "/api/v1/auth/captcha").Code)
	assert.Equal(t, http.StatusUnauthorized, get(handler, "/api/v1/auth/me").Code)
	assert.Equal(t, http.StatusUnauthorized, get(handler, "/api/v1/auth/me", "Authorization", "Bearer forged").Code)
	assert.Equal(t, http.StatusNotFound, get(handler, "/api/v1/unknown").Code)

	recorder := get(handler, "/health")
	assert.NotEmpty(t, recorder.Header().Get("X-Request-ID"))
}

/*
TestServer_PublicRoutes serves the anonymous portal pages.
*/
func TestServer_PublicRoutes(t *testing.T) {
	handler := newServer(t, api.HealthDependencies{})

	recorder := get(handler, "/api/v1/public/lines?type=MEMBER")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"name":"Member line"`)

	assert.Equal(t, http.StatusBadRequest, get(handler, "/api/v1/public/lines?type=ADMIN").Code)
	assert.Equal(t, http.StatusOK, get(handler, "/api/v1/public/search?q=notice").Code)
	assert.Equal(t, http.StatusOK, get(handler, "/api/v1/public/captcha").Code)
}

/*
TestServer_StaleTokenOnPublicRoute lets a leftover bearer token through to
token-less endpoints; the handler decides the outcome.
*/
func TestServer_StaleTokenOnPublicRoute(t *testing.T) {
	handler := newServer(t, api.HealthDependencies{})

	request := httptest.NewRequest(http.MethodPost, "/api/v1/auth/role-login",
		strings.NewReader(`{"username":"m1","password":"x","role":"MEMBER","captchaToken":"missing","captchaCode":"0000"}`))
	request.Header.Set("Authorization", "Bearer expired")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"code":"CAPTCHA_INVALID"`)
}

/*
TestServer_RateLimitBehindTrustedProxy keys buckets on the forwarded client
only when the peer is a configured proxy.
*/
func TestServer_RateLimitBehindTrustedProxy(t *testing.T) {
	handler := newServerWithConfig(t, api.HealthDependencies{}, &config.Config{
		ServerPort:     "0",
		Environment:    "test",
		RateLimitRPS:   0.001,
		RateLimitBurst: 1,
		TrustedProxies: []string{"10.0.0.0/8"},
	})

	send := func(peer, forwarded string) int {
		request := httptest.NewRequest(http.MethodGet, "/health", nil)
		request.RemoteAddr = peer
		request.Header.Set("X-Forwarded-For", forwarded)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		return recorder.Code
	}

	// Two real clients behind the proxy get separate buckets.
	assert.Equal(t, http.StatusOK, send("10.0.0.2:443", "203.0.113.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:443", "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.2:443", "203.0.113.1"))

	// A direct client cannot escape its bucket by forging the header.
	assert.Equal(t, http.StatusOK, send("198.51.100.9:5000", "203.0.113.3"))
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.9:5000", "203.0.113.4"))
}
