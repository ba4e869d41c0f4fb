// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/segmentio/ksuid"

	"github.com/taibuivan/bcbbs/internal/platform/apperr"
	"github.com/taibuivan/bcbbs/internal/platform/ctxutil"
)

// # Captcha Gate

// CaptchaGate issues numeric challenges and redeems each of them at most once.
//
// The code travels back in the issuance response. It throttles scripted
// credential attempts (every attempt costs a round trip and a fresh challenge);
// it is not a secret.
type CaptchaGate struct {
	store  ChallengeStore
	ttl    time.Duration
	length int
	now    func() time.Time
}

// CaptchaOption customizes a [CaptchaGate].
type CaptchaOption func(*CaptchaGate)

// WithCaptchaTTL overrides [DefaultCaptchaTTL].
func WithCaptchaTTL(ttl time.Duration) CaptchaOption {
	return func(gate *CaptchaGate) {
		if ttl > 0 {
			gate.ttl = ttl
		}
	}
}

// WithCaptchaLength overrides [DefaultCaptchaLength].
func WithCaptchaLength(length int) CaptchaOption {
	return func(gate *CaptchaGate) {
		if length > 0 {
			gate.length = length
		}
	}
}

// WithCaptchaClock injects a custom clock (useful for tests).
func WithCaptchaClock(clock func() time.Time) CaptchaOption {
	return func(gate *CaptchaGate) {
		if clock != nil {
			gate.now = clock
		}
	}
}

// NewCaptchaGate constructs a [CaptchaGate] on top of a [ChallengeStore].
func NewCaptchaGate(store ChallengeStore, opts ...CaptchaOption) *CaptchaGate {
	gate := &CaptchaGate{
		store:  store,
		ttl:    DefaultCaptchaTTL,
		length: DefaultCaptchaLength,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(gate)
	}
	return gate
}

/*
Issue creates and persists a new unused challenge.

Parameters:
  - context: context.Context

Returns:
  - *CaptchaChallenge: Token, code, and expiry to hand to the client
  - error: Randomness or persistence failures
*/
func (gate *CaptchaGate) Issue(context context.Context) (*CaptchaChallenge, error) {
	code, err := randomDigits(gate.length)
	if err != nil {
		return nil, fmt.Errorf("captcha_gate_code_generation_failed: %w", err)
	}

	challenge := &CaptchaChallenge{
		Token:     ksuid.New().String(),
		Code:      code,
		ExpiresAt: gate.now().Add(gate.ttl),
		Used:      false,
	}

	if err := gate.store.Create(context, challenge); err != nil {
		return nil, fmt.Errorf("captcha_gate_issue_failed: %w", err)
	}

	return challenge, nil
}

/*
ValidateAndConsume redeems a challenge.

Description: The challenge is consumed before its code and expiry are
compared, so every attempt burns it. A second call with identical (even
correct) arguments always returns false.

Parameters:
  - context: context.Context
  - token: string
  - code: string

Returns:
  - bool: true only for a known, unused, unexpired challenge with a matching code
  - error: Storage failures (never returned for a merely invalid challenge)
*/
func (gate *CaptchaGate) ValidateAndConsume(context context.Context, token, code string) (bool, error) {
	token = strings.TrimSpace(token)
	code = strings.TrimSpace(code)
	if token == "" || code == "" {
		return false, nil
	}

	challenge, err := gate.store.Consume(context, token)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("captcha_gate_consume_failed: %w", err)
	}

	if challenge.Expired(gate.now()) {
		ctxutil.GetLogger(context).DebugContext(context, "captcha_expired", slog.Time("expires_at", challenge.ExpiresAt))
		return false, nil
	}

	return subtle.ConstantTimeCompare([]byte(challenge.Code), []byte(code)) == 1, nil
}

// Require is [CaptchaGate.ValidateAndConsume] expressed as an error: nil on
// success, CAPTCHA_INVALID (400) on any rejection.
func (gate *CaptchaGate) Require(context context.Context, token, code string) error {
	valid, err := gate.ValidateAndConsume(context, token, code)
	if err != nil {
		return err
	}
	if !valid {
		return errCaptchaInvalid()
	}
	return nil
}

// randomDigits returns a string of n decimal digits drawn from crypto/rand.
func randomDigits(n int) (string, error) {
	var builder strings.Builder
	builder.Grow(n)

	limit := big.NewInt(10)
	for i := 0; i < n; i++ {
		digit, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		builder.WriteByte(byte('0' + digit.Int64()))
	}

	return builder.String(), nil
}
