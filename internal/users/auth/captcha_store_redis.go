// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/bcbbs/internal/platform/apperr"
	"github.com/taibuivan/bcbbs/internal/platform/constants"
)

// # Challenge Repository (Redis)

// RedisChallengeRepository implements ChallengeStore using Redis keys with a TTL.
//
// A consumed challenge is deleted rather than flagged; GETDEL makes "find
// unused" and "mark used" a single server-side step.
type RedisChallengeRepository struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisChallengeRepository creates a new Redis-backed ChallengeStore.
func NewRedisChallengeRepository(client *redis.Client) *RedisChallengeRepository {
	return &RedisChallengeRepository{client: client, now: time.Now}
}

// redisChallenge is the JSON value stored under each challenge key.
type redisChallenge struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

/*
Create stores a challenge that Redis evicts once it expires.

Parameters:
  - context: context.Context
  - challenge: *CaptchaChallenge

Returns:
  - error: Execution errors, or a failure if the token already exists
*/
func (repository *RedisChallengeRepository) Create(context context.Context, challenge *CaptchaChallenge) error {
	key := constants.RedisPrefixCaptcha + challenge.Token

	ttl := challenge.ExpiresAt.Sub(repository.now())
	if ttl <= 0 {
		return fmt.Errorf("redis_challenge_set_failed: challenge already expired")
	}

	payload, err := json.Marshal(redisChallenge{Code: challenge.Code, ExpiresAt: challenge.ExpiresAt})
	if err != nil {
		return fmt.Errorf("redis_challenge_marshal_failed: %w", err)
	}

	// NX keeps a token collision from silently overwriting a live challenge.
	created, err := repository.client.SetNX(context, key, payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis_challenge_set_failed: %w", err)
	}
	if !created {
		return fmt.Errorf("redis_challenge_set_failed: token %s already exists", challenge.Token)
	}

	return nil
}

/*
Consume atomically reads and deletes the challenge.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - *CaptchaChallenge: Snapshot of the consumed challenge
  - error: apperr.NotFound if absent (unknown, used, or evicted), or connectivity errors
*/
func (repository *RedisChallengeRepository) Consume(context context.Context, token string) (*CaptchaChallenge, error) {
	key := constants.RedisPrefixCaptcha + token

	raw, err := repository.client.GetDel(context, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperr.NotFound("Captcha")
		}
		return nil, fmt.Errorf("redis_challenge_getdel_failed: %w", err)
	}

	var stored redisChallenge
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("redis_challenge_unmarshal_failed: %w", err)
	}

	return &CaptchaChallenge{
		Token:     token,
		Code:      stored.Code,
		ExpiresAt: stored.ExpiresAt,
		Used:      true,
	}, nil
}
