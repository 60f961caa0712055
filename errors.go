package authclient

import (
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes shared with the backend error envelope.
const (
	TextCodeTokenExpired    = "TOKEN_EXPIRED"
	TextCodeTokenMalformed  = "TOKEN_MALFORMED"
	TextCodeInvalidCreds    = "INVALID_CREDENTIALS"
	TextCodeTooManyAttempts = "TOO_MANY_ATTEMPTS"
	TextCodeSubjectNotFound = "SUBJECT_NOT_FOUND"
	TextCodeInvalidOtp      = "INVALID_OTP"
	TextCodeInvalidStage    = "INVALID_RESET_STAGE"
	TextCodeWeakPassword    = "WEAK_PASSWORD"
	TextCodePasswordMatch   = "PASSWORD_MISMATCH"
	TextCodeInvalidContact  = "INVALID_CONTACT"
)

// Metadata keys attached to rate limit errors.
const (
	metaBanUntil    = "ban_until"
	metaLockoutKind = "lockout_kind"
)

// ErrTokenExpired is returned when the backend rejects a call because the
// bearer token is past its exp claim. The gateway treats it as repairable.
var ErrTokenExpired = goerrors.New("access token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned for input that is not token shaped.
var ErrTokenMalformed = goerrors.New("unable to decode access token", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnauthorized covers 401 responses that are not expiry driven. These are
// never retried; the session is torn down instead.
var ErrUnauthorized = goerrors.New("request is not authorized", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(goerrors.CodeUnauthorized)

// ErrRateLimited is the base error for server imposed ban windows. Occurrences
// carry ban_until metadata (unix seconds) when the backend provides it.
var ErrRateLimited = goerrors.New("too many attempts, action is temporarily locked", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrSubjectNotFound is the reset lookup miss. It stays local to the reset
// flow and never escalates to the global error surface.
var ErrSubjectNotFound = goerrors.New("no account matches the provided contact", goerrors.CategoryNotFound).
	WithTextCode(TextCodeSubjectNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrInvalidOtp is a rejected verification code; the stage is kept so the
// user can retry.
var ErrInvalidOtp = goerrors.New("verification code is invalid", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidOtp).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidStage is returned when a reset operation is called out of order.
// No network call is made and no state changes.
var ErrInvalidStage = goerrors.New("operation is not valid for the current reset stage", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidStage).
	WithCode(goerrors.CodeBadRequest)

// ErrNoSession indicates there is no authenticated session to operate on.
var ErrNoSession = goerrors.New("no active session", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens, including legacy
// string-borne errors from the wire.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.TextCode == TextCodeTokenExpired {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.TextCode == TextCodeTokenMalformed {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsInvalidStageError reports an out-of-order reset flow operation.
func IsInvalidStageError(err error) bool {
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.TextCode == TextCodeInvalidStage
}

// IsRateLimitError reports whether err carries a server ban window.
func IsRateLimitError(err error) bool {
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.Category == goerrors.CategoryRateLimit
}

// IsNotFoundError reports a lookup miss.
func IsNotFoundError(err error) bool {
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.Category == goerrors.CategoryNotFound
}

// IsValidationError reports a local precondition failure that never reached
// the network.
func IsValidationError(err error) bool {
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.Category == goerrors.CategoryValidation
}

// BanUntilFromError extracts the ban expiry a rate limit error carries.
func BanUntilFromError(err error) (time.Time, bool) {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.Category != goerrors.CategoryRateLimit {
		return time.Time{}, false
	}
	raw, ok := rich.Metadata[metaBanUntil]
	if !ok {
		return time.Time{}, false
	}
	switch v := raw.(type) {
	case time.Time:
		return v, true
	case int64:
		return time.Unix(v, 0), true
	case float64:
		return time.Unix(int64(v), 0), true
	}
	return time.Time{}, false
}

func rateLimitError(message string, banUntil time.Time) *goerrors.Error {
	if message == "" {
		message = ErrRateLimited.Message
	}
	e := goerrors.New(message, goerrors.CategoryRateLimit).
		WithTextCode(TextCodeTooManyAttempts)
	if !banUntil.IsZero() {
		e = e.WithMetadata(map[string]any{metaBanUntil: banUntil})
	}
	return e
}
