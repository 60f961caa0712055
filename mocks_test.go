package authclient_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authclient "github.com/armelot/go-authclient"
)

// MockBackend implements authclient.BackendAPI
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Login(ctx context.Context, identifier, password string) (string, error) {
	args := m.Called(ctx, identifier, password)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) Refresh(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockBackend) LookupSubject(ctx context.Context, contact string) (*authclient.SubjectRef, error) {
	args := m.Called(ctx, contact)
	if ref, ok := args.Get(0).(*authclient.SubjectRef); ok {
		return ref, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBackend) SendOtp(ctx context.Context, subjectID string) error {
	args := m.Called(ctx, subjectID)
	return args.Error(0)
}

func (m *MockBackend) VerifyOtp(ctx context.Context, subjectID, code string) error {
	args := m.Called(ctx, subjectID, code)
	return args.Error(0)
}

func (m *MockBackend) ResetPassword(ctx context.Context, subjectID, newPassword string) error {
	args := m.Called(ctx, subjectID, newPassword)
	return args.Error(0)
}

// mintToken signs a test token. The client decodes without verifying, so the
// signing key is irrelevant beyond producing a well-formed JWT.
func mintToken(t *testing.T, exp time.Time, mutate func(*authclient.TokenClaims)) string {
	t.Helper()

	claims := &authclient.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "usr-1",
			Issuer:    "iam-backend",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UID:        "usr-1",
		Name:       "Pepe Rone",
		Email:      "pepe.rone@example.com",
		UserRole:   "admin",
		Privileges: []string{"users:read", "users:edit"},
	}
	if mutate != nil {
		mutate(claims)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return signed
}

// fakeClock is a mutable clock for lockout tests.
type fakeClock struct {
	current time.Time
}

func (f *fakeClock) Now() time.Time { return f.current }

func (f *fakeClock) Advance(d time.Duration) { f.current = f.current.Add(d) }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
