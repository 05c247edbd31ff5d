package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	err := New(CodeWrongPassword, "wrong password")

	assert.True(t, HasCode(err, CodeWrongPassword))
	assert.False(t, HasCode(err, CodeAccountNotFound))
	assert.False(t, HasCode(nil, CodeWrongPassword))
	assert.False(t, HasCode(errors.New("plain"), CodeWrongPassword))
}

func TestHasCodeThroughWrapping(t *testing.T) {
	inner := New(CodeEmailInUse, "email already in use")
	outer := fmt.Errorf("register: %w", inner)

	assert.True(t, HasCode(outer, CodeEmailInUse))
	assert.Equal(t, CodeEmailInUse, CodeOf(outer))
}

func TestWrap(t *testing.T) {
	t.Run("preserves the cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Wrap(cause, CodeInternal, "failed to load profile")

		require.Error(t, err)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, CodeInternal, CodeOf(err))
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("wrapping nil returns nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})
}

func TestCodeOfUnclassified(t *testing.T) {
	assert.Equal(t, CodeUnknown, CodeOf(errors.New("something happened")))
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "wrong password", MessageOf(New(CodeWrongPassword, "wrong password")))
	assert.Equal(t, "plain", MessageOf(errors.New("plain")))
	assert.Equal(t, "", MessageOf(nil))
}

func TestIsMatchesByCode(t *testing.T) {
	a := New(CodeConflict, "operation already in progress")
	b := New(CodeConflict, "different message")

	assert.ErrorIs(t, a, b)
	assert.NotErrorIs(t, a, New(CodeInternal, "other"))
}
