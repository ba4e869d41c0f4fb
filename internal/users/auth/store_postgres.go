// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// # Storage (PostgreSQL)
//
// Repositories in this file are strictly separated from domain logic. They
// implement the domain-defined [PrincipalRepository] using the [pgxpool.Pool]
// connection manager. Storage-specific errors (like pgx.ErrNoRows) are mapped
// to [apperr.AppError] types to avoid leaking storage implementation details.

package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/bcbbs/internal/platform/apperr"
	"github.com/taibuivan/bcbbs/internal/platform/dberr"
	"github.com/taibuivan/bcbbs/pkg/pointer"
)

// principalColumns is the projection shared by every principal lookup.
const principalColumns = `
	id, username, email, passwordhash, nickname, role, enabled,
	passwordchanged, logincountwithoutchange, createdat, updatedat`

// # Principal Repository

// PostgresPrincipalRepository implements the PrincipalRepository interface using pgx.
type PostgresPrincipalRepository struct {
	pool *pgxpool.Pool
}

// NewPrincipalRepository creates a new PostgreSQL implementation of the PrincipalRepository.
func NewPrincipalRepository(pool *pgxpool.Pool) *PostgresPrincipalRepository {
	return &PostgresPrincipalRepository{pool: pool}
}

/*
Create persists a new principal record into the users.account table.

Description: Initializes timestamps if not provided. Lifecycle fields are
always written materialized, so new rows never carry NULL.

Parameters:
  - context: context.Context
  - principal: *Principal (Entity to persist)

Returns:
  - error: apperr.Conflict on duplicate username/email, or connectivity errors
*/
func (repository *PostgresPrincipalRepository) Create(context context.Context, principal *Principal) error {
	const query = `
		INSERT INTO users.account (
			id, username, email, passwordhash, nickname, role, enabled,
			passwordchanged, logincountwithoutchange, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	now := time.Now()
	if principal.CreatedAt.IsZero() {
		principal.CreatedAt = now
	}
	principal.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		principal.ID,
		principal.Username,
		principal.Email,
		principal.PasswordHash,
		principal.Nickname,
		principal.Role,
		principal.Enabled,
		principal.PasswordRotated(),
		principal.LoginsWithoutRotation(),
		principal.CreatedAt,
		principal.UpdatedAt,
	)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return apperr.Conflict("Username or email already exists")
		}
		return fmt.Errorf("postgres_principal_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByUsername retrieves a principal by its unique username.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - *Principal: Hydrated account entity (lifecycle fields may be nil for legacy rows)
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresPrincipalRepository) FindByUsername(context context.Context, username string) (*Principal, error) {
	query := `SELECT ` + principalColumns + `
		FROM users.account
		WHERE username = $1 AND deletedat IS NULL`

	principal, err := scanPrincipal(repository.pool.QueryRow(context, query, username))
	if err != nil {
		return nil, dberr.Wrap(err, "User")
	}

	return principal, nil
}

/*
FindByID retrieves a principal by its primary key.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *Principal: Hydrated account entity
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresPrincipalRepository) FindByID(context context.Context, id string) (*Principal, error) {
	query := `SELECT ` + principalColumns + `
		FROM users.account
		WHERE id = $1 AND deletedat IS NULL`

	principal, err := scanPrincipal(repository.pool.QueryRow(context, query, id))
	if err != nil {
		return nil, dberr.Wrap(err, "User")
	}

	return principal, nil
}

/*
Save writes the mutable security state of a principal.

Description: Updates the password hash, enabled flag, and lifecycle fields in
one statement. NULL legacy values are replaced by their materialized defaults.

Parameters:
  - context: context.Context
  - principal: *Principal

Returns:
  - error: apperr.NotFound if the row vanished, or database errors
*/
func (repository *PostgresPrincipalRepository) Save(context context.Context, principal *Principal) error {
	const query = `
		UPDATE users.account
		SET passwordhash = $2,
		    nickname = $3,
		    enabled = $4,
		    passwordchanged = $5,
		    logincountwithoutchange = $6,
		    updatedat = $7
		WHERE id = $1 AND deletedat IS NULL`

	principal.UpdatedAt = time.Now()

	tag, err := repository.pool.Exec(context, query,
		principal.ID,
		principal.PasswordHash,
		principal.Nickname,
		principal.Enabled,
		principal.PasswordRotated(),
		principal.LoginsWithoutRotation(),
		principal.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_principal_repo_save_failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

/*
ExistsByUsername reports whether a live account owns the username.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - bool: true if taken
  - error: Database errors
*/
func (repository *PostgresPrincipalRepository) ExistsByUsername(context context.Context, username string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users.account WHERE username = $1 AND deletedat IS NULL)`

	var exists bool
	if err := repository.pool.QueryRow(context, query, username).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres_principal_repo_exists_by_username_failed: %w", err)
	}

	return exists, nil
}

/*
ExistsByEmail reports whether a live account owns the email.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - bool: true if taken
  - error: Database errors
*/
func (repository *PostgresPrincipalRepository) ExistsByEmail(context context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM users.account WHERE email = $1 AND deletedat IS NULL)`

	var exists bool
	if err := repository.pool.QueryRow(context, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres_principal_repo_exists_by_email_failed: %w", err)
	}

	return exists, nil
}

// scanPrincipal hydrates a principal from a row selected with [principalColumns].
//
// The lifecycle columns are nullable; they are scanned into pointers and kept
// nil so the domain can tell legacy rows apart, while every read goes through
// the materializing accessors.
func scanPrincipal(row pgx.Row) (*Principal, error) {
	principal := &Principal{}

	var passwordChanged *bool
	var loginCount *int32

	err := row.Scan(
		&principal.ID,
		&principal.Username,
		&principal.Email,
		&principal.PasswordHash,
		&principal.Nickname,
		&principal.Role,
		&principal.Enabled,
		&passwordChanged,
		&loginCount,
		&principal.CreatedAt,
		&principal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	principal.PasswordChanged = passwordChanged
	if loginCount != nil {
		principal.LoginCountWithoutChange = pointer.To(int(*loginCount))
	}

	return principal, nil
}
