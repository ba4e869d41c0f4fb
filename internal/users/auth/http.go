// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/bcbbs/internal/platform/middleware"
	requestutil "github.com/taibuivan/bcbbs/internal/platform/request"
	"github.com/taibuivan/bcbbs/internal/platform/respond"
	"github.com/taibuivan/bcbbs/internal/platform/sec"
	"github.com/taibuivan/bcbbs/internal/platform/validate"
)

// Handler serves the /auth and /admin route groups.
type Handler struct {
	authService    *Service
	captchaLimiter func(http.Handler) http.Handler
}

// NewHandler takes the limiter placed in front of captcha issuance; nil disables it.
func NewHandler(service *Service, captchaLimiter func(http.Handler) http.Handler) *Handler {
	return &Handler{authService: service, captchaLimiter: captchaLimiter}
}

// Routes is mounted at /api/v1/auth:
//
//	GET|POST /captcha                single-use challenge
//	POST     /login                  plain username and password
//	POST     /role-login             captcha-gated login for one role
//	POST     /force-change-password  token-less rotation after a forced change
//	POST     /register               self-service USER account
//	GET      /me                     caller profile (token required)
//	POST     /change-password        rotation for a signed-in caller
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	handler.RegisterCaptchaRoutes(router)
	router.Post("/login", handler.login)
	router.Post("/role-login", handler.roleLogin)
	router.Post("/force-change-password", handler.forceChangePassword)
	router.Post("/register", handler.register)

	router.With(middleware.RequireAuth).Get("/me", handler.me)
	router.With(middleware.RequireAuth).Post("/change-password", handler.changePassword)

	return router
}

// RegisterCaptchaRoutes mounts GET and POST /captcha behind the issuance
// limiter. /public reuses it, so both paths draw from one bucket per client.
func (handler *Handler) RegisterCaptchaRoutes(router chi.Router) {
	captcha := router.With()
	if handler.captchaLimiter != nil {
		captcha = router.With(handler.captchaLimiter)
	}
	captcha.Get("/captcha", handler.issueCaptcha)
	captcha.Post("/captcha", handler.issueCaptcha)
}

// AdminRoutes is mounted at /api/v1/admin and requires the ADMIN role.
func (handler *Handler) AdminRoutes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireRole(sec.RoleAdmin))
	router.Post("/principals", handler.provision)
	return router
}

// payload is a request body that declares its own field rules.
type payload interface {
	rules(v *validate.Validator)
}

// decodePayload reads one JSON body into T and applies T's rules.
func decodePayload[T payload](request *http.Request) (T, error) {
	var body T
	if err := requestutil.DecodeJSON(request, &body); err != nil {
		return body, err
	}
	validator := &validate.Validator{}
	body.rules(validator)
	return body, validator.Err()
}

// reply writes result under status, or err through [respond.Error].
func reply(writer http.ResponseWriter, request *http.Request, status int, result any, err error) {
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Status(writer, status, result)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (body loginRequest) rules(v *validate.Validator) {
	v.Required(FieldUsername, body.Username).Required(FieldPassword, body.Password)
}

// roleLoginRequest has no field rules: the captcha must be the first check, so
// missing fields surface from the service as CAPTCHA_INVALID or INVALID_CREDENTIALS.
type roleLoginRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	Role         string `json:"role"`
	CaptchaToken string `json:"captchaToken"`
	CaptchaCode  string `json:"captchaCode"`
}

func (roleLoginRequest) rules(*validate.Validator) {}

type forceChangePasswordRequest struct {
	Username     string `json:"username"`
	Role         string `json:"role"`
	OldPassword  string `json:"oldPassword"`
	NewPassword  string `json:"newPassword"`
	CaptchaToken string `json:"captchaToken"`
	CaptchaCode  string `json:"captchaCode"`
}

func (body forceChangePasswordRequest) rules(v *validate.Validator) {
	v.Required(FieldNewPassword, body.NewPassword).
		MinLen(FieldNewPassword, body.NewPassword, MinRotatedPasswordLength)
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

func (body registerRequest) rules(v *validate.Validator) {
	v.Required(FieldUsername, body.Username).
		MinLen(FieldUsername, body.Username, 3).
		MaxLen(FieldUsername, body.Username, 50).
		Username(FieldUsername, body.Username).
		Required(FieldEmail, body.Email).
		Email(FieldEmail, body.Email).
		Required(FieldPassword, body.Password).
		MinLen(FieldPassword, body.Password, MinPasswordLength).
		MaxLen(FieldNickname, body.Nickname, 50)
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

func (body changePasswordRequest) rules(v *validate.Validator) {
	v.Required(FieldOldPassword, body.OldPassword).
		Required(FieldNewPassword, body.NewPassword).
		MinLen(FieldNewPassword, body.NewPassword, MinRotatedPasswordLength)
}

type provisionRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
}

func (body provisionRequest) rules(v *validate.Validator) {
	v.Required(FieldUsername, body.Username).
		Username(FieldUsername, body.Username).
		Required(FieldEmail, body.Email).
		Email(FieldEmail, body.Email).
		Required(FieldPassword, body.Password).
		MinLen(FieldPassword, body.Password, MinRotatedPasswordLength).
		Required(FieldRole, body.Role)
}

// GET|POST /captcha: 200 {token, code, expiresAt}, 429 when throttled.
func (handler *Handler) issueCaptcha(writer http.ResponseWriter, request *http.Request) {
	challenge, err := handler.authService.IssueCaptcha(request.Context())
	reply(writer, request, http.StatusOK, challenge, err)
}

// POST /login: 200 AuthResult, 401 INVALID_CREDENTIALS.
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	body, err := decodePayload[loginRequest](request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	result, err := handler.authService.Login(request.Context(), LoginInput(body))
	reply(writer, request, http.StatusOK, result, err)
}

// POST /role-login: 200 AuthResult with needPasswordChange and
// loginCountWithoutChange; 400 CAPTCHA_INVALID or INVALID_ROLE; 401
// INVALID_CREDENTIALS; 403 ACCOUNT_DISABLED or ROLE_MISMATCH.
func (handler *Handler) roleLogin(writer http.ResponseWriter, request *http.Request) {
	body, err := decodePayload[roleLoginRequest](request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	result, err := handler.authService.RoleLogin(request.Context(), RoleLoginInput(body))
	reply(writer, request, http.StatusOK, result, err)
}

// POST /force-change-password: 200 AuthResult with a fresh token; 400
// CAPTCHA_INVALID, INVALID_ROLE, INVALID_OLD_PASSWORD or a short password;
// 403 ROLE_MISMATCH; 404 for an unknown username.
func (handler *Handler) forceChangePassword(writer http.ResponseWriter, request *http.Request) {
	body, err := decodePayload[forceChangePasswordRequest](request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	result, err := handler.authService.ForceChangePassword(request.Context(), ForceChangePasswordInput(body))
	reply(writer, request, http.StatusOK, result, err)
}

// POST /register: 201 AuthResult for the new USER, 409 on a taken username or email.
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	body, err := decodePayload[registerRequest](request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	result, err := handler.authService.Register(request.Context(), RegisterInput(body))
	reply(writer, request, http.StatusCreated, result, err)
}

// GET /me: the caller's profile, without a token.
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	profile, err := handler.authService.Profile(request.Context(), userID)
	reply(writer, request, http.StatusOK, profile, err)
}

// POST /change-password: 200 on success, 400 INVALID_OLD_PASSWORD.
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	body, err := decodePayload[changePasswordRequest](request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.authService.ChangePassword(request.Context(), userID, body.OldPassword, body.NewPassword)
	reply(writer, request, http.StatusOK, map[string]string{FieldMessage: "Password changed successfully"}, err)
}

// POST /admin/principals: 201 Principal; 400 INVALID_ROLE; 409 on a taken
// username or email.
func (handler *Handler) provision(writer http.ResponseWriter, request *http.Request) {
	body, err := decodePayload[provisionRequest](request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	principal, err := handler.authService.Provision(request.Context(), ProvisionInput{
		Username:        body.Username,
		Email:           body.Email,
		InitialPassword: body.Password,
		Nickname:        body.Nickname,
		Role:            body.Role,
	})
	reply(writer, request, http.StatusCreated, principal, err)
}
