package forgeauth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the validated content of a session token.
type AuthClaims interface {
	Subject() string
	AccountID() string
	Username() string
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID             string `json:"uid,omitempty"`
	AccountUsername string `json:"username,omitempty"`
}

var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// AccountID returns the local account id
func (c *JWTClaims) AccountID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Username returns the account username carried by the token
func (c *JWTClaims) Username() string {
	return c.AccountUsername
}

// Expires returns the expiry time, zero when absent
func (c *JWTClaims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// IssuedAt returns the issue time, zero when absent
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}
