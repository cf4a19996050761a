package forgeauth

import (
	"time"

	"github.com/google/uuid"
)

// Session holds attributes of an authenticated browser session
type Session interface {
	GetAccountID() string
	GetAccountUUID() (uuid.UUID, error)
	GetUsername() string
	GetAudience() []string
	GetIssuer() string
	GetIssuedAt() *time.Time
}

var _ Session = &SessionObject{}

type SessionObject struct {
	AccountID      string     `json:"account_id,omitempty"`
	Username       string     `json:"username,omitempty"`
	Audience       []string   `json:"audience,omitempty"`
	Issuer         string     `json:"issuer,omitempty"`
	IssuedAt       *time.Time `json:"issued_at,omitempty"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
}

func (s *SessionObject) GetAccountID() string {
	return s.AccountID
}

func (s *SessionObject) GetAccountUUID() (uuid.UUID, error) {
	return uuid.Parse(s.AccountID)
}

func (s *SessionObject) GetUsername() string {
	return s.Username
}

func (s *SessionObject) GetAudience() []string {
	return s.Audience
}

func (s *SessionObject) GetIssuer() string {
	return s.Issuer
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

// sessionFromAuthClaims converts validated claims into a SessionObject.
func sessionFromAuthClaims(claims AuthClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrUnableToDecodeSession
	}

	session := &SessionObject{
		AccountID: claims.AccountID(),
		Username:  claims.Username(),
	}

	if jc, ok := claims.(*JWTClaims); ok {
		session.Issuer = jc.RegisteredClaims.Issuer
		session.Audience = jc.RegisteredClaims.Audience
	}

	if issuedAt := claims.IssuedAt(); !issuedAt.IsZero() {
		session.IssuedAt = &issuedAt
	}

	if expires := claims.Expires(); !expires.IsZero() {
		session.ExpirationDate = &expires
	}

	return session, nil
}

// SessionFromToken validates a raw session token and converts it.
func SessionFromToken(ts SessionTokenService, raw string) (Session, error) {
	claims, err := ts.Validate(raw)
	if err != nil {
		return nil, err
	}
	return sessionFromAuthClaims(claims)
}
