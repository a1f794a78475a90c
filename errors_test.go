package identity_test

import (
	"fmt"
	"testing"

	"github.com/goliatone/go-errors"
	"github.com/harvesthub/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		err      error
		category errors.Category
		textCode string
	}{
		{identity.ErrDuplicateEmail, errors.CategoryConflict, identity.TextCodeDuplicateEmail},
		{identity.ErrInvalidCredentials, errors.CategoryAuth, identity.TextCodeInvalidCredentials},
		{identity.ErrAccountInactive, errors.CategoryAuth, identity.TextCodeAccountInactive},
		{identity.ErrAlreadyActive, errors.CategoryConflict, identity.TextCodeAlreadyActive},
		{identity.ErrPasswordReused, errors.CategoryValidation, identity.TextCodePasswordReused},
		{identity.ErrAccountNotFound, errors.CategoryNotFound, identity.TextCodeAccountNotFound},
		{identity.ErrForbidden, errors.CategoryAuthz, identity.TextCodeForbidden},
		{identity.ErrTokenExpired, errors.CategoryAuth, identity.TextCodeTokenExpired},
	}

	for _, tc := range tests {
		t.Run(tc.textCode, func(t *testing.T) {
			var richErr *errors.Error
			require.True(t, errors.As(tc.err, &richErr))
			assert.Equal(t, tc.category, richErr.Category)
			assert.Equal(t, tc.textCode, richErr.TextCode)
			assert.NotZero(t, richErr.Code, "every public error needs a transport code")
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, identity.IsNotFound(identity.ErrAccountNotFound))
	assert.True(t, identity.IsNotFound(
		errors.Wrap(identity.ErrAccountNotFound, errors.CategoryNotFound, "lookup failed"),
	))
	assert.False(t, identity.IsNotFound(identity.ErrDuplicateEmail))
	assert.False(t, identity.IsNotFound(nil))
	assert.False(t, identity.IsNotFound(fmt.Errorf("boom")))
}
