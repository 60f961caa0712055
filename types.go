package authclient

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// TokenStorage is the durable home of the current access token. A single
// logical writer (the SessionStore) owns it; last write wins.
type TokenStorage interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// BackendAPI covers the IAM endpoints the session core talks to. Login and
// Refresh return the raw access token; the refresh channel authenticates via
// the HTTP client's cookie jar, not the bearer token.
type BackendAPI interface {
	Login(ctx context.Context, identifier, password string) (string, error)
	Refresh(ctx context.Context) (string, error)
	Logout(ctx context.Context) error
	LookupSubject(ctx context.Context, contact string) (*SubjectRef, error)
	SendOtp(ctx context.Context, subjectID string) error
	VerifyOtp(ctx context.Context, subjectID, code string) error
	ResetPassword(ctx context.Context, subjectID, newPassword string) error
}

// SubjectRef is what a reset lookup resolves: the account the OTP goes to.
type SubjectRef struct {
	SubjectID string `json:"subjectId"`
	Email     string `json:"email"`
}

// Config holds client options
type Config interface {
	GetBaseURL() string
	GetStorageKey() string
	GetLoginPath() string
	GetRefreshPath() string
	GetLogoutPath() string
	GetLookupPath() string
	GetOtpSendPath() string
	GetOtpVerifyPath() string
	GetPasswordResetPath() string
	GetHTTPTimeout() time.Duration
	GetPhoneRegion() string
}

// SimpleConfig is a plain-struct Config with sensible endpoint defaults.
type SimpleConfig struct {
	BaseURL           string
	StorageKey        string
	LoginPath         string
	RefreshPath       string
	LogoutPath        string
	LookupPath        string
	OtpSendPath       string
	OtpVerifyPath     string
	PasswordResetPath string
	HTTPTimeout       time.Duration
	PhoneRegion       string
}

func (c SimpleConfig) GetBaseURL() string    { return c.BaseURL }
func (c SimpleConfig) GetStorageKey() string { return defString(c.StorageKey, "authclient:token") }
func (c SimpleConfig) GetLoginPath() string  { return defString(c.LoginPath, "/auth/login") }
func (c SimpleConfig) GetRefreshPath() string {
	return defString(c.RefreshPath, "/auth/refresh")
}
func (c SimpleConfig) GetLogoutPath() string { return defString(c.LogoutPath, "/auth/logout") }
func (c SimpleConfig) GetLookupPath() string {
	return defString(c.LookupPath, "/auth/password-reset/lookup")
}
func (c SimpleConfig) GetOtpSendPath() string {
	return defString(c.OtpSendPath, "/auth/password-reset/otp")
}
func (c SimpleConfig) GetOtpVerifyPath() string {
	return defString(c.OtpVerifyPath, "/auth/password-reset/otp/verify")
}
func (c SimpleConfig) GetPasswordResetPath() string {
	return defString(c.PasswordResetPath, "/auth/password-reset")
}

func (c SimpleConfig) GetHTTPTimeout() time.Duration {
	if c.HTTPTimeout > 0 {
		return c.HTTPTimeout
	}
	return 30 * time.Second
}

func (c SimpleConfig) GetPhoneRegion() string { return defString(c.PhoneRegion, "US") }

func defString(val, def string) string {
	if val == "" {
		return def
	}
	return val
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHCLIENT "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHCLIENT "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
