package authclient

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the identity payload embedded in an access token. The token
// is opaque to the client beyond these claims; no signature verification
// happens here, trust is delegated to the cookie-authenticated refresh
// channel.
type TokenClaims struct {
	jwt.RegisteredClaims
	UID        string         `json:"uid,omitempty"`
	Name       string         `json:"name,omitempty"`
	Email      string         `json:"email,omitempty"`
	UserRole   string         `json:"role,omitempty"`
	Privileges []string       `json:"prv,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// SubjectID returns the user ID, falling back to the registered subject.
func (c *TokenClaims) SubjectID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Role returns the global role
func (c *TokenClaims) Role() string {
	return c.UserRole
}

// HasPrivilege checks membership in the token's privilege set.
func (c *TokenClaims) HasPrivilege(name string) bool {
	for _, p := range c.Privileges {
		if p == name {
			return true
		}
	}
	return false
}

// IsAtLeast checks if the user's role is at least the minimum required role
func (c *TokenClaims) IsAtLeast(minRole UserRole) bool {
	return UserRole(c.UserRole).IsAtLeast(minRole)
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *TokenClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// DecodeToken parses a raw bearer token into structured claims without
// verifying its signature. Malformed input always maps to ErrTokenMalformed,
// never a raw parser error.
func DecodeToken(raw string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		// clone so the shared sentinel never accumulates per-call metadata
		return nil, ErrTokenMalformed.Clone().WithMetadata(map[string]any{
			"cause": err.Error(),
		})
	}
	return claims, nil
}

// TokenExpired compares the token's exp claim to now. Fail closed: anything
// that does not decode, or carries no exp, counts as expired.
func TokenExpired(raw string, now time.Time) bool {
	claims, err := DecodeToken(raw)
	if err != nil {
		return true
	}
	exp := claims.Expires()
	if exp.IsZero() {
		return true
	}
	return !now.Before(exp)
}
