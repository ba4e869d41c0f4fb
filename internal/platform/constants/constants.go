// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package constants holds fixed values that are not worth an env variable.
package constants

import "time"

const (
	AppName    = "bcbbs-api"
	AppVersion = "0.1.0-dev"

	// AuthIssuer is the iss claim of every access token.
	AuthIssuer = "bcbbs.app"
)

// HTTP server limits. GlobalRequestTimeout also becomes the Postgres
// statement_timeout of every pooled session.
const (
	DefaultReadHeaderTimeout = 2 * time.Second
	DefaultReadTimeout       = 5 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultIdleTimeout       = 2 * time.Minute
	GlobalRequestTimeout     = 30 * time.Second
	ShutdownTimeout          = 30 * time.Second
)

// Per-address token buckets. Captcha issuance gets a stricter limiter than the
// global one: one challenge every two seconds, with room to reload the form.
const (
	RateLimitCleanupInterval = time.Minute
	RateLimitClientTTL       = 3 * time.Minute
	CaptchaRateLimitRPS      = 0.5
	CaptchaRateLimitBurst    = 5
)

// CaptchaPurgeInterval paces deletion of spent and expired rows from
// users.captchatoken. The Redis store relies on key TTLs instead.
const CaptchaPurgeInterval = 10 * time.Minute

// RedisPrefixCaptcha namespaces challenge keys: auth:captcha:<token>.
const RedisPrefixCaptcha = "auth:captcha:"

const (
	HeaderAuthorization = "Authorization"
	HeaderOrigin        = "Origin"
	HeaderXRequestID    = "X-Request-ID"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderXRealIP       = "X-Real-IP"
)
