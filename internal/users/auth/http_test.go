// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/bcbbs/internal/platform/middleware"
	"github.com/taibuivan/bcbbs/internal/platform/sec"
	"github.com/taibuivan/bcbbs/internal/users/auth"
	"github.com/taibuivan/bcbbs/pkg/pointer"
)

type staticVerifier map[string]*sec.AuthClaims

func (verifier staticVerifier) VerifyToken(token string) (*sec.AuthClaims, error) {
	if claims, ok := verifier[token]; ok {
		return claims, nil
	}
	return nil, errors.New("unknown token")
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
	Code  string          `json:"code"`
}

func newTestRouter(fx *fixture, limiter func(http.Handler) http.Handler) http.Handler {
	handler := auth.NewHandler(fx.service, limiter)

	verifier := staticVerifier{
		"admin-token":  {UserID: "u-admin", Username: "root", Role: string(sec.RoleAdmin)},
		"member-token": {UserID: "u-1", Username: "alice", Role: string(sec.RoleMember)},
	}

	router := chi.NewRouter()
	router.Use(middleware.Authenticate(verifier))
	router.Mount("/auth", handler.Routes())
	router.Mount("/admin", handler.AdminRoutes())
	return router
}

func do(t *testing.T, router http.Handler, method, path, body, bearer string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	request := httptest.NewRequest(method, path, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		request.Header.Set("Authorization", "Bearer "+bearer)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	var env envelope
	_ = json.Unmarshal(recorder.Body.Bytes(), &env)
	return recorder, env
}

func issueOverHTTP(t *testing.T, router http.Handler) auth.CaptchaChallenge {
	t.Helper()

	recorder, env := do(t, router, http.MethodGet, "/auth/captcha", "", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var challenge auth.CaptchaChallenge
	require.NoError(t, json.Unmarshal(env.Data, &challenge))
	return challenge
}

/*
TestHandler_Captcha checks both verbs and the response payload.
*/
func TestHandler_Captcha(t *testing.T) {
	router := newTestRouter(newFixture(plainHasher{}), nil)

	challenge := issueOverHTTP(t, router)
	assert.NotEmpty(t, challenge.Token)
	assert.Regexp(t, fourDigits, challenge.Code)
	assert.False(t, challenge.ExpiresAt.IsZero())

	recorder, _ := do(t, router, http.MethodPost, "/auth/captcha", "", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestHandler_CaptchaRateLimited verifies the issuance limiter is mounted.
*/
func TestHandler_CaptchaRateLimited(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	router := newTestRouter(newFixture(plainHasher{}), middleware.RateLimit(ctx, 0.001, 1))

	first, _ := do(t, router, http.MethodGet, "/auth/captcha", "", "")
	second, _ := do(t, router, http.MethodGet, "/auth/captcha", "", "")

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

/*
TestHandler_RoleLogin exercises the happy path and error mapping over HTTP.
*/
func TestHandler_RoleLogin(t *testing.T) {
	fx := newFixture(plainHasher{}, principal("u-1", "alice", sec.RoleMember, true, pointer.To(false), pointer.To(2)))
	router := newTestRouter(fx, nil)

	challenge := issueOverHTTP(t, router)
	body := `{"username":"alice","password":"secret","role":"MEMBER","captchaToken":"` +
		challenge.Token + `","captchaCode":"` + challenge.Code + `"}`

	recorder, env := do(t, router, http.MethodPost, "/auth/role-login", body, "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var result map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, true, result["needPasswordChange"])
	assert.Equal(t, float64(3), result["loginCountWithoutChange"])
	assert.NotEmpty(t, result["token"])

	// Replaying the same body fails: the captcha is spent.
	recorder, env = do(t, router, http.MethodPost, "/auth/role-login", body, "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, auth.CodeCaptchaInvalid, env.Code)
}

/*
TestHandler_RoleLoginErrors maps domain failures to their HTTP statuses.
*/
func TestHandler_RoleLoginErrors(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		role     string
		status   int
		code     string
	}{
		{"invalid_role", "alice", "secret", "SUPERADMIN", http.StatusBadRequest, auth.CodeInvalidRole},
		{"bad_password", "alice", "nope", "MEMBER", http.StatusUnauthorized, auth.CodeInvalidCredentials},
		{"role_mismatch", "alice", "secret", "AGENT", http.StatusForbidden, auth.CodeRoleMismatch},
		{"legacy_disabled", "bob", "secret", "MEMBER", http.StatusForbidden, auth.CodeAccountDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(plainHasher{},
				principal("u-1", "alice", sec.RoleMember, true, pointer.To(false), pointer.To(0)),
				principal("u-2", "bob", sec.RoleMember, false, pointer.To(false), pointer.To(3)),
			)
			router := newTestRouter(fx, nil)
			challenge := issueOverHTTP(t, router)

			payload, err := json.Marshal(map[string]string{
				"username":     tt.username,
				"password":     tt.password,
				"role":         tt.role,
				"captchaToken": challenge.Token,
				"captchaCode":  challenge.Code,
			})
			require.NoError(t, err)

			recorder, env := do(t, router, http.MethodPost, "/auth/role-login", string(payload), "")
			assert.Equal(t, tt.status, recorder.Code)
			assert.Equal(t, tt.code, env.Code)
		})
	}
}

/*
TestHandler_ForceChangePassword validates input and returns a fresh session.
*/
func TestHandler_ForceChangePassword(t *testing.T) {
	fx := newFixture(plainHasher{}, principal("u-2", "bob", sec.RoleMember, false, pointer.To(false), pointer.To(3)))
	router := newTestRouter(fx, nil)

	recorder, env := do(t, router, http.MethodPost, "/auth/force-change-password",
		`{"username":"bob","role":"MEMBER","oldPassword":"secret","newPassword":"123"}`, "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Code)

	challenge := issueOverHTTP(t, router)
	payload, err := json.Marshal(map[string]string{
		"username":     "bob",
		"role":         "MEMBER",
		"oldPassword":  "secret",
		"newPassword":  "fresh-pass",
		"captchaToken": challenge.Token,
		"captchaCode":  challenge.Code,
	})
	require.NoError(t, err)

	recorder, env = do(t, router, http.MethodPost, "/auth/force-change-password", string(payload), "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var result map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, false, result["needPasswordChange"])
	assert.Equal(t, float64(0), result["loginCountWithoutChange"])
	assert.True(t, fx.principals.stored(t, "bob").Enabled)
}

/*
TestHandler_Register covers validation, creation, and conflicts.
*/
func TestHandler_Register(t *testing.T) {
	router := newTestRouter(newFixture(plainHasher{}), nil)

	recorder, _ := do(t, router, http.MethodPost, "/auth/register", `{"username":"x"}`, "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder, _ = do(t, router, http.MethodPost, "/auth/register", `{not json`, "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	body := `{"username":"newbie","email":"newbie@example.com","password":"password1"}`
	recorder, _ = do(t, router, http.MethodPost, "/auth/register", body, "")
	assert.Equal(t, http.StatusCreated, recorder.Code)

	recorder, _ = do(t, router, http.MethodPost, "/auth/register", body, "")
	assert.Equal(t, http.StatusConflict, recorder.Code)
}

/*
TestHandler_ProtectedRoutes enforces authentication and the admin role.
*/
func TestHandler_ProtectedRoutes(t *testing.T) {
	fx := newFixture(plainHasher{}, principal("u-1", "alice", sec.RoleMember, true, pointer.To(false), pointer.To(2)))
	router := newTestRouter(fx, nil)

	recorder, _ := do(t, router, http.MethodGet, "/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)

	recorder, env := do(t, router, http.MethodGet, "/auth/me", "", "member-token")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, string(env.Data), `"username":"alice"`)

	recorder, _ = do(t, router, http.MethodPost, "/auth/change-password",
		`{"oldPassword":"secret","newPassword":"fresh-pass"}`, "member-token")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, fx.principals.stored(t, "alice").PasswordRotated())

	provision := `{"username":"agent9","email":"agent9@bcbbs.test","password":"initial","role":"AGENT"}`

	recorder, _ = do(t, router, http.MethodPost, "/admin/principals", provision, "member-token")
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	recorder, _ = do(t, router, http.MethodPost, "/admin/principals", provision, "admin-token")
	assert.Equal(t, http.StatusCreated, recorder.Code)
	assert.Equal(t, sec.RoleAgent, fx.principals.stored(t, "agent9").Role)
}
