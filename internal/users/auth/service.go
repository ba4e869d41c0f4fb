// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/bcbbs/internal/platform/apperr"
	"github.com/taibuivan/bcbbs/internal/platform/ctxutil"
	"github.com/taibuivan/bcbbs/internal/platform/sec"
	"github.com/taibuivan/bcbbs/pkg/ident"
	"github.com/taibuivan/bcbbs/pkg/pointer"
	"github.com/taibuivan/bcbbs/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for generating security tokens.
type TokenProvider interface {
	// GenerateAccessToken creates a signed token string for the given account.
	//
	// # Parameters
	//   - userID: The ID of the account.
	//   - username: The username of the account.
	//   - role: The role of the account.
	//   - timeToLive: The duration before the token expires.
	//
	// # Returns
	//   - A signed token string, or an err if signing fails.
	GenerateAccessToken(userID, username, role string, timeToLive time.Duration) (string, error)
}

// ServiceDependencies groups the collaborators of [Service].
type ServiceDependencies struct {
	Principals     PrincipalRepository
	Hasher         PasswordHasher
	Tokens         TokenProvider
	Captcha        *CaptchaGate
	Policy         *LifecyclePolicy
	AccessTokenTTL time.Duration
}

// Service implements the authentication and password lifecycle use cases.
//
// # Review Process
//
// This service is critical for security. The order of checks in
// [Service.RoleLogin] and [Service.ForceChangePassword] is part of the
// contract; do not reorder them.
type Service struct {
	principals PrincipalRepository
	hasher     PasswordHasher
	tokens     TokenProvider
	captcha    *CaptchaGate
	policy     *LifecyclePolicy
	verifier   *CredentialVerifier
	tokenTTL   time.Duration
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(deps ServiceDependencies) *Service {
	policy := deps.Policy
	if policy == nil {
		policy = NewLifecyclePolicy()
	}

	tokenTTL := deps.AccessTokenTTL
	if tokenTTL <= 0 {
		tokenTTL = DefaultAccessTokenTTL
	}

	return &Service{
		principals: deps.Principals,
		hasher:     deps.Hasher,
		tokens:     deps.Tokens,
		captcha:    deps.Captcha,
		policy:     policy,
		verifier:   NewCredentialVerifier(deps.Principals, deps.Hasher),
		tokenTTL:   tokenTTL,
	}
}

// # Captcha

/*
IssueCaptcha creates a new single-use challenge.

Parameters:
  - context: context.Context

Returns:
  - *CaptchaChallenge: token, code, expiresAt
  - err: Persistence failures
*/
func (service *Service) IssueCaptcha(context context.Context) (*CaptchaChallenge, error) {
	return service.captcha.Issue(context)
}

// # Authentication Flow

// LoginInput defines credentials for a plain authentication attempt.
type LoginInput struct {
	Username string
	Password string
}

/*
Login validates credentials and issues a session token.

Description: The plain login used by self-registered users. It does not apply
the password lifecycle policy and does not require a captcha.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *AuthResult: Token and profile
  - err: INVALID_CREDENTIALS (401) or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*AuthResult, error) {
	principal, err := service.verifier.Authenticate(context, ident.Username(input.Username), input.Password)
	if err != nil {
		return nil, err
	}

	token, err := service.issueToken(principal)
	if err != nil {
		return nil, err
	}

	return newAuthResult(principal, token, false), nil
}

// RoleLoginInput defines a captcha-gated login that must match a role.
type RoleLoginInput struct {
	Username     string
	Password     string
	Role         string
	CaptchaToken string
	CaptchaCode  string
}

// loginStage names the states of the role-login state machine, in order.
type loginStage string

const (
	stageCaptchaChecked          loginStage = "CAPTCHA_CHECKED"
	stageDisabledShortcutChecked loginStage = "DISABLED_SHORTCUT_CHECKED"
	stageCredentialsVerified     loginStage = "CREDENTIALS_VERIFIED"
	stageRoleChecked             loginStage = "ROLE_CHECKED"
	stageLifecycleEvaluated      loginStage = "LIFECYCLE_EVALUATED"
	stageTokenIssued             loginStage = "TOKEN_ISSUED"
)

/*
RoleLogin authenticates a principal that must hold the requested role.

Description: Runs the strictly ordered state machine
CAPTCHA_CHECKED → DISABLED_SHORTCUT_CHECKED → CREDENTIALS_VERIFIED →
ROLE_CHECKED → LIFECYCLE_EVALUATED → TOKEN_ISSUED. Every stage is terminal on
failure. The captcha is consumed before anything else, the role string is
parsed (a pure check) before any lookup, and legacy-disabled accounts are
turned away before the credential verifier runs.

Parameters:
  - context: context.Context
  - input: RoleLoginInput

Returns:
  - *AuthResult: Token, profile, and lifecycle flags
  - err: CAPTCHA_INVALID (400), INVALID_ROLE (400), ACCOUNT_DISABLED (403),
    INVALID_CREDENTIALS (401), ROLE_MISMATCH (403), or internal failures
*/
func (service *Service) RoleLogin(context context.Context, input RoleLoginInput) (*AuthResult, error) {
	logger := ctxutil.GetLogger(context)
	username := ident.Username(input.Username)

	// 1. Captcha: consumed on every attempt, before any credential work
	if err := service.captcha.Require(context, input.CaptchaToken, input.CaptchaCode); err != nil {
		return nil, err
	}
	service.trace(context, stageCaptchaChecked, username)

	requestedRole, err := parseRequestedRole(input.Role)
	if err != nil {
		return nil, err
	}

	// 2. Disabled shortcut: unknown users fall through to the verifier so the
	// response stays indistinguishable from a wrong password.
	candidate, err := service.principals.FindByUsername(context, username)
	switch {
	case err == nil:
		if service.policy.LockedOut(candidate) {
			logger.WarnContext(context, "role_login_legacy_disabled_account",
				slog.String("username", username),
				slog.String("role", string(candidate.Role)),
			)
			return nil, errAccountDisabled()
		}
	case !apperr.HasCode(err, apperr.CodeNotFound):
		return nil, fmt.Errorf("auth_service_role_login_lookup_failed: %w", err)
	}
	service.trace(context, stageDisabledShortcutChecked, username)

	// 3. Credentials
	principal, err := service.verifier.Authenticate(context, username, input.Password)
	if err != nil {
		return nil, err
	}
	service.trace(context, stageCredentialsVerified, username)

	// 4. Role match (only reachable after authentication)
	if err := RequireRoleMatch(requestedRole, principal.Role); err != nil {
		logger.WarnContext(context, "role_login_role_mismatch",
			slog.String("username", username),
			slog.String("requested_role", string(requestedRole)),
		)
		return nil, err
	}
	service.trace(context, stageRoleChecked, username)

	// 5. Password lifecycle
	needPasswordChange, mutated := service.policy.Evaluate(principal)
	if mutated {
		if err := service.principals.Save(context, principal); err != nil {
			return nil, fmt.Errorf("auth_service_role_login_save_failed: %w", err)
		}
	}
	if needPasswordChange {
		logger.InfoContext(context, "role_login_password_change_required",
			slog.String("username", username),
			slog.Int("login_count_without_change", principal.LoginsWithoutRotation()),
		)
	}
	service.trace(context, stageLifecycleEvaluated, username)

	// 6. Token
	token, err := service.issueToken(principal)
	if err != nil {
		return nil, err
	}
	service.trace(context, stageTokenIssued, username)

	return newAuthResult(principal, token, needPasswordChange), nil
}

// # Password Lifecycle

// ForceChangePasswordInput defines the token-less recovery request.
type ForceChangePasswordInput struct {
	Username     string
	Role         string
	OldPassword  string
	NewPassword  string
	CaptchaToken string
	CaptchaCode  string
}

/*
ForceChangePassword rotates the password of a principal without a session.

Description: The recovery path for accounts stuck behind the mandatory
rotation, including accounts disabled under the retired policy. It is gated
only by a captcha plus knowledge of the current password, and it is the only
path that re-enables such an account.

Parameters:
  - context: context.Context
  - input: ForceChangePasswordInput

Returns:
  - *AuthResult: Fresh token with needPasswordChange=false and a zero counter
  - err: CAPTCHA_INVALID (400), NOT_FOUND (404), INVALID_ROLE (400),
    ROLE_MISMATCH (403), INVALID_OLD_PASSWORD (400), or internal failures
*/
func (service *Service) ForceChangePassword(context context.Context, input ForceChangePasswordInput) (*AuthResult, error) {
	logger := ctxutil.GetLogger(context)
	username := ident.Username(input.Username)

	// 1. Captcha
	if err := service.captcha.Require(context, input.CaptchaToken, input.CaptchaCode); err != nil {
		return nil, err
	}

	// 2. Principal lookup
	principal, err := service.principals.FindByUsername(context, username)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("auth_service_force_change_lookup_failed: %w", err)
	}

	// 3. Role
	requestedRole, err := parseRequestedRole(input.Role)
	if err != nil {
		return nil, err
	}
	if err := RequireRoleMatch(requestedRole, principal.Role); err != nil {
		logger.WarnContext(context, "force_change_role_mismatch",
			slog.String("username", username),
			slog.String("requested_role", string(requestedRole)),
		)
		return nil, err
	}

	// 4. Old password against the stored hash
	if !service.hasher.Verify(input.OldPassword, principal.PasswordHash) {
		return nil, errInvalidOldPassword()
	}

	// 5. Rotate, unlock, persist
	newHash, err := service.hasher.Hash(input.NewPassword)
	if err != nil {
		return nil, fmt.Errorf("auth_service_force_change_hash_failed: %w", err)
	}

	wasEnabled := principal.Enabled
	service.policy.Rotate(principal, newHash)
	principal.Enabled = true

	if err := service.principals.Save(context, principal); err != nil {
		return nil, fmt.Errorf("auth_service_force_change_save_failed: %w", err)
	}

	logger.InfoContext(context, "force_change_password_completed",
		slog.String("username", username),
		slog.Bool("unlocked", !wasEnabled),
	)

	// 6. Token
	token, err := service.issueToken(principal)
	if err != nil {
		return nil, err
	}

	return newAuthResult(principal, token, false), nil
}

/*
ChangePassword lets an authenticated principal replace its password.

Parameters:
  - context: context.Context
  - userID: string (from the verified token claims)
  - oldPassword: string
  - newPassword: string

Returns:
  - err: NOT_FOUND, INVALID_OLD_PASSWORD (400), or storage failures
*/
func (service *Service) ChangePassword(context context.Context, userID, oldPassword, newPassword string) error {
	principal, err := service.principals.FindByID(context, userID)
	if err != nil {
		return err
	}

	if !service.hasher.Verify(oldPassword, principal.PasswordHash) {
		return errInvalidOldPassword()
	}

	newHash, err := service.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_change_password_hash_failed: %w", err)
	}

	service.policy.Rotate(principal, newHash)

	if err := service.principals.Save(context, principal); err != nil {
		return fmt.Errorf("auth_service_change_password_save_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "change_password_completed",
		slog.String("user_id", userID),
	)

	return nil
}

// # Account Enrollment

// RegisterInput holds the data required to enroll a self-registered user.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Nickname string
}

/*
Register creates a USER account and signs it in.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *AuthResult: Token and profile of the new account
  - err: Conflict (if identity exists) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*AuthResult, error) {
	principal, err := service.enroll(context, enrollment{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password,
		Nickname: input.Nickname,
		Role:     sec.RoleUser,
	})
	if err != nil {
		return nil, err
	}

	token, err := service.issueToken(principal)
	if err != nil {
		return nil, err
	}

	return newAuthResult(principal, token, false), nil
}

// ProvisionInput holds the data an administrator supplies for a new account.
type ProvisionInput struct {
	Username        string
	Email           string
	InitialPassword string
	Nickname        string
	Role            string
}

/*
Provision creates an account on behalf of an administrator.

Description: Accounts in a rotation role start with passwordChanged=false and
a zero counter, which puts them under the mandatory rotation policy on their
first role-login.

Parameters:
  - context: context.Context
  - input: ProvisionInput

Returns:
  - *Principal: The created account
  - err: INVALID_ROLE (400), Conflict (409), or storage errors
*/
func (service *Service) Provision(context context.Context, input ProvisionInput) (*Principal, error) {
	role, err := parseRequestedRole(input.Role)
	if err != nil {
		return nil, err
	}

	principal, err := service.enroll(context, enrollment{
		Username: input.Username,
		Email:    input.Email,
		Password: input.InitialPassword,
		Nickname: input.Nickname,
		Role:     role,
	})
	if err != nil {
		return nil, err
	}

	ctxutil.GetLogger(context).InfoContext(context, "principal_provisioned",
		slog.String("username", principal.Username),
		slog.String("role", string(principal.Role)),
		slog.Bool("rotation_required", service.policy.RequiresRotation(principal.Role)),
	)

	return principal, nil
}

/*
Profile returns the public profile of an authenticated principal.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *AuthResult: Profile without a token
  - err: NOT_FOUND or storage errors
*/
func (service *Service) Profile(context context.Context, userID string) (*AuthResult, error) {
	principal, err := service.principals.FindByID(context, userID)
	if err != nil {
		return nil, err
	}

	needPasswordChange := service.policy.RequiresRotation(principal.Role) && !principal.PasswordRotated()
	return newAuthResult(principal, "", needPasswordChange), nil
}

// # Internals

// enrollment is the shared shape of Register and Provision.
type enrollment struct {
	Username string
	Email    string
	Password string
	Nickname string
	Role     sec.UserRole
}

// enroll checks identity uniqueness, hashes the password, and persists the account.
func (service *Service) enroll(context context.Context, input enrollment) (*Principal, error) {
	username := ident.Username(input.Username)
	email := ident.Email(input.Email)

	// Verify username uniqueness. Return a client-safe Conflict err.
	taken, err := service.principals.ExistsByUsername(context, username)
	if err != nil {
		return nil, fmt.Errorf("auth_service_exists_by_username_failed: %w", err)
	}
	if taken {
		return nil, apperr.Conflict("Username already exists")
	}

	// Verify email uniqueness. Return a client-safe Conflict err.
	taken, err = service.principals.ExistsByEmail(context, email)
	if err != nil {
		return nil, fmt.Errorf("auth_service_exists_by_email_failed: %w", err)
	}
	if taken {
		return nil, apperr.Conflict("Email already exists")
	}

	hashedPassword, err := service.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	nickname := input.Nickname
	if nickname == "" {
		nickname = username
	}

	// Time-sortable ID to prevent PG index fragmentation.
	principal := &Principal{
		ID:                      uuid.New(),
		Username:                username,
		Email:                   email,
		PasswordHash:            hashedPassword,
		Nickname:                nickname,
		Role:                    input.Role,
		Enabled:                 true,
		PasswordChanged:         pointer.To(false),
		LoginCountWithoutChange: pointer.To(0),
	}

	if err := service.principals.Create(context, principal); err != nil {
		if apperr.IsAppError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("auth_service_enroll_failed: %w", err)
	}

	return principal, nil
}

// issueToken mints a session token for principal.
func (service *Service) issueToken(principal *Principal) (string, error) {
	token, err := service.tokens.GenerateAccessToken(principal.ID, principal.Username, string(principal.Role), service.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}
	return token, nil
}

// trace records that a role-login reached stage.
func (service *Service) trace(context context.Context, stage loginStage, username string) {
	ctxutil.GetLogger(context).DebugContext(context, "role_login_stage",
		slog.String("stage", string(stage)),
		slog.String("username", username),
	)
}
