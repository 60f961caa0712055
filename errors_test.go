package authclient_test

import (
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"

	authclient "github.com/armelot/go-authclient"
)

func TestIsTokenExpiredError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "Structured token expired error",
			err:      authclient.ErrTokenExpired,
			expected: true,
		},
		{
			name:     "Legacy token expired error (string match)",
			err:      errors.New("some wrapper: token is expired"),
			expected: true,
		},
		{
			name:     "Different structured error",
			err:      authclient.ErrUnauthorized,
			expected: false,
		},
		{
			name:     "Different legacy error",
			err:      errors.New("invalid token"),
			expected: false,
		},
		{
			name:     "Nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, authclient.IsTokenExpiredError(tt.err))
		})
	}
}

func TestIsMalformedError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "Structured malformed error",
			err:      authclient.ErrTokenMalformed,
			expected: true,
		},
		{
			name:     "Legacy malformed error (string match)",
			err:      errors.New("token is malformed"),
			expected: true,
		},
		{
			name:     "Legacy missing JWT error (string match)",
			err:      errors.New("missing or malformed JWT"),
			expected: true,
		},
		{
			name:     "Different structured error",
			err:      authclient.ErrTokenExpired,
			expected: false,
		},
		{
			name:     "Nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, authclient.IsMalformedError(tt.err))
		})
	}
}

func TestStructuredErrorProperties(t *testing.T) {
	t.Run("ErrTokenExpired", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, authclient.ErrTokenExpired.Category)
		assert.Equal(t, authclient.TextCodeTokenExpired, authclient.ErrTokenExpired.TextCode)
	})

	t.Run("ErrTokenMalformed", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, authclient.ErrTokenMalformed.Category)
		assert.Equal(t, authclient.TextCodeTokenMalformed, authclient.ErrTokenMalformed.TextCode)
	})

	t.Run("ErrRateLimited", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryRateLimit, authclient.ErrRateLimited.Category)
		assert.Equal(t, authclient.TextCodeTooManyAttempts, authclient.ErrRateLimited.TextCode)
	})

	t.Run("ErrSubjectNotFound", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryNotFound, authclient.ErrSubjectNotFound.Category)
		assert.Equal(t, authclient.TextCodeSubjectNotFound, authclient.ErrSubjectNotFound.TextCode)
	})

	t.Run("ErrInvalidStage", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryValidation, authclient.ErrInvalidStage.Category)
		assert.Equal(t, authclient.TextCodeInvalidStage, authclient.ErrInvalidStage.TextCode)
	})

	t.Run("ErrInvalidOtp", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, authclient.ErrInvalidOtp.Category)
		assert.Equal(t, authclient.TextCodeInvalidOtp, authclient.ErrInvalidOtp.TextCode)
	})
}

func TestBanUntilFromError(t *testing.T) {
	banUntil := time.Now().Add(time.Minute).Truncate(time.Second)

	t.Run("Time metadata", func(t *testing.T) {
		err := goerrors.New("banned", goerrors.CategoryRateLimit).
			WithMetadata(map[string]any{"ban_until": banUntil})
		got, ok := authclient.BanUntilFromError(err)
		assert.True(t, ok)
		assert.Equal(t, banUntil, got)
	})

	t.Run("Unix seconds metadata", func(t *testing.T) {
		err := goerrors.New("banned", goerrors.CategoryRateLimit).
			WithMetadata(map[string]any{"ban_until": banUntil.Unix()})
		got, ok := authclient.BanUntilFromError(err)
		assert.True(t, ok)
		assert.Equal(t, banUntil.Unix(), got.Unix())
	})

	t.Run("Missing metadata", func(t *testing.T) {
		err := goerrors.New("banned", goerrors.CategoryRateLimit)
		_, ok := authclient.BanUntilFromError(err)
		assert.False(t, ok)
	})

	t.Run("Not a rate limit error", func(t *testing.T) {
		_, ok := authclient.BanUntilFromError(authclient.ErrUnauthorized)
		assert.False(t, ok)
	})

	t.Run("Nil error", func(t *testing.T) {
		_, ok := authclient.BanUntilFromError(nil)
		assert.False(t, ok)
	})
}
