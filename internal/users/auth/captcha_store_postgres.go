// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/bcbbs/internal/platform/dberr"
)

// # Challenge Repository (PostgreSQL)

// PostgresChallengeRepository implements ChallengeStore on the users.captchatoken table.
type PostgresChallengeRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresChallengeRepository creates a new PostgreSQL-backed ChallengeStore.
func NewPostgresChallengeRepository(pool *pgxpool.Pool) *PostgresChallengeRepository {
	return &PostgresChallengeRepository{pool: pool}
}

/*
Create persists a new unused challenge.

Parameters:
  - context: context.Context
  - challenge: *CaptchaChallenge

Returns:
  - error: Persistence failures
*/
func (repository *PostgresChallengeRepository) Create(context context.Context, challenge *CaptchaChallenge) error {
	const query = `
		INSERT INTO users.captchatoken (token, code, expiresat, used)
		VALUES ($1, $2, $3, FALSE)`

	if _, err := repository.pool.Exec(context, query, challenge.Token, challenge.Code, challenge.ExpiresAt); err != nil {
		return fmt.Errorf("postgres_challenge_repo_create_failed: %w", err)
	}

	return nil
}

/*
Consume atomically flips an unused challenge to used and returns its snapshot.

Description: The conditional UPDATE takes a row lock, so under READ COMMITTED a
concurrent consumer blocks, re-evaluates "used = FALSE" after the first commit,
and matches zero rows.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - *CaptchaChallenge: Snapshot of the consumed challenge
  - error: apperr.NotFound if unknown or already used
*/
func (repository *PostgresChallengeRepository) Consume(context context.Context, token string) (*CaptchaChallenge, error) {
	const query = `
		UPDATE users.captchatoken
		SET used = TRUE
		WHERE token = $1 AND used = FALSE
		RETURNING token, code, expiresat`

	challenge := &CaptchaChallenge{}
	err := repository.pool.QueryRow(context, query, token).Scan(
		&challenge.Token,
		&challenge.Code,
		&challenge.ExpiresAt,
	)

	if err != nil {
		return nil, dberr.Wrap(err, "Captcha")
	}

	challenge.Used = true
	return challenge, nil
}

/*
DeleteExpired physically removes challenges that can never be redeemed again.

Parameters:
  - context: context.Context

Returns:
  - int64: Number of rows removed
  - error: Persistence failures
*/
func (repository *PostgresChallengeRepository) DeleteExpired(context context.Context) (int64, error) {
	const query = `DELETE FROM users.captchatoken WHERE used = TRUE OR expiresat <= NOW()`

	tag, err := repository.pool.Exec(context, query)
	if err != nil {
		return 0, fmt.Errorf("postgres_challenge_repo_delete_expired_failed: %w", err)
	}

	return tag.RowsAffected(), nil
}
