// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
)

// # Principal Data Access

// PrincipalRepository defines the data access contract for accounts.
type PrincipalRepository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Principal: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByID(context context.Context, id string) (*Principal, error)

	/*
		FindByUsername returns the account with the given username.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - *Principal: Hydrated entity
		  - error: apperr.NotFound or database retrieval failures
	*/
	FindByUsername(context context.Context, username string) (*Principal, error)

	/*
		Create persists a brand-new account.

		Parameters:
		  - context: context.Context
		  - principal: *Principal

		Returns:
		  - error: apperr.Conflict on duplicate identity, or persistence failures
	*/
	Create(context context.Context, principal *Principal) error

	/*
		Save writes the mutable state of an existing account: password hash,
		enabled flag, and the password lifecycle fields.

		Parameters:
		  - context: context.Context
		  - principal: *Principal

		Returns:
		  - error: Persistence failures
	*/
	Save(context context.Context, principal *Principal) error

	/*
		ExistsByUsername reports whether the username is taken.

		Parameters:
		  - context: context.Context
		  - username: string

		Returns:
		  - bool: true if an account exists
		  - error: Database failures
	*/
	ExistsByUsername(context context.Context, username string) (bool, error)

	/*
		ExistsByEmail reports whether the email is taken.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - bool: true if an account exists
		  - error: Database failures
	*/
	ExistsByEmail(context context.Context, email string) (bool, error)
}

// # Volatile Data Access

// ChallengeStore defines the contract for persisting captcha challenges.
type ChallengeStore interface {

	/*
		Create stores a new, unused challenge until its ExpiresAt.

		Parameters:
		  - context: context.Context
		  - challenge: *CaptchaChallenge

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, challenge *CaptchaChallenge) error

	/*
		Consume finds the unused challenge for token and marks it used in a
		single atomic step. Two concurrent calls for the same token can never
		both receive the challenge.

		Expiry and code are NOT checked here; the caller compares them on the
		returned snapshot, so a challenge is burned by any attempt.

		Parameters:
		  - context: context.Context
		  - token: string

		Returns:
		  - *CaptchaChallenge: The challenge as it was before consumption
		  - error: apperr.NotFound if unknown or already used, or storage failures
	*/
	Consume(context context.Context, token string) (*CaptchaChallenge, error)
}
