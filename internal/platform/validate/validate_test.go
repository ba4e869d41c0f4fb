// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/bcbbs/internal/platform/apperr"
	"github.com/taibuivan/bcbbs/internal/platform/validate"
)

/*
TestValidator_Passes returns nil when every rule holds.
*/
func TestValidator_Passes(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("username", "agent7").
		MinLen("username", "agent7", 3).
		MaxLen("username", "agent7", 50).
		Username("username", "agent7").
		Email("email", "agent7@bcbbs.app").
		OneOf("role", "AGENT", "MEMBER", "AGENT").
		Err()

	assert.NoError(t, err)
	assert.False(t, v.HasErrors())
}

/*
TestValidator_Required treats whitespace as empty.
*/
func TestValidator_Required(t *testing.T) {
	for _, value := range []string{"", "   ", "\t\n"} {
		err := (&validate.Validator{}).Required("password", value).Err()

		ae := apperr.As(err)
		require.NotNil(t, ae, "value %q", value)
		assert.Equal(t, apperr.CodeValidation, ae.Code)
		assert.Equal(t, "password", ae.Details[0].Field)
	}
}

/*
TestValidator_FirstFailurePerField reports one entry per failed field.
*/
func TestValidator_FirstFailurePerField(t *testing.T) {
	err := (&validate.Validator{}).
		Required("username", "").
		MinLen("username", "", 3).
		Username("username", "").
		Email("email", "not-an-email").
		Required("password", "long-enough-secret").
		Err()

	ae := apperr.As(err)
	require.NotNil(t, ae)
	require.Len(t, ae.Details, 2)
	assert.Equal(t, "username", ae.Details[0].Field)
	assert.Equal(t, "This field is required", ae.Details[0].Message)
	assert.Equal(t, "email", ae.Details[1].Field)
}

/*
TestValidator_Lengths counts characters, not bytes.
*/
func TestValidator_Lengths(t *testing.T) {
	assert.False(t, (&validate.Validator{}).MaxLen("nickname", "张伟张伟", 4).HasErrors())
	assert.True(t, (&validate.Validator{}).MaxLen("nickname", "张伟张伟张", 4).HasErrors())
	assert.True(t, (&validate.Validator{}).MinLen("password", "short", 8).HasErrors())
}

/*
TestValidator_OneOf lists the allowed values in the message.
*/
func TestValidator_OneOf(t *testing.T) {
	ae := apperr.As((&validate.Validator{}).OneOf("type", "ADMIN", "MEMBER", "AGENT").Err())
	require.NotNil(t, ae)
	assert.Equal(t, "Must be one of: MEMBER, AGENT", ae.Details[0].Message)
}

/*
TestValidator_Email accepts bare addresses only.
*/
func TestValidator_Email(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"agent7@bcbbs.app", true},
		{"li.wei+portal@example.com", true},
		{"agent7", false},
		{"agent7@", false},
		{"", false},
		{"Agent Seven <agent7@bcbbs.app>", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, !tt.valid, (&validate.Validator{}).Email("email", tt.email).HasErrors())
		})
	}
}

/*
TestValidator_Username checks the allowed username alphabet.
*/
func TestValidator_Username(t *testing.T) {
	tests := []struct {
		username string
		valid    bool
	}{
		{"agent_007", true},
		{"li.wei-2", true},
		{"张伟", true},
		{"li wei", false},
		{"root;drop", false},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			assert.Equal(t, !tt.valid, (&validate.Validator{}).Username("username", tt.username).HasErrors())
		})
	}
}
