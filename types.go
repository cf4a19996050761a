package forgeauth

import (
	"context"
	"fmt"

	"github.com/goliatone/go-forgeauth/forge"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Authenticator holds the operations of the account authentication service.
type Authenticator interface {
	Login(ctx context.Context, password, username, email string) (*Account, error)
	Register(ctx context.Context, password, username, email string) (*Account, error)
	BestToken(ctx context.Context, account *Account) (*AccountToken, error)
	ResolveForgeUser(ctx context.Context, token string) (*forge.User, error)
	TokenDetails(token *AccountToken, account *Account, user *forge.User) TokenDetails
	FindAccountByToken(ctx context.Context, token string) (*Account, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// SessionTokenService mints and validates the signed session tokens the HTML
// login flow hands to browsers. Forge access tokens are unrelated to these.
type SessionTokenService interface {
	Generate(account *Account) (string, error)
	SignClaims(claims *JWTClaims) (string, error)
	Validate(token string) (AuthClaims, error)
}

// LoginPayload is the shape the HTTP controller binds login requests into.
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] FORGEAUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] FORGEAUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] FORGEAUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] FORGEAUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
