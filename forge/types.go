// Package forge is the REST client for the external code hosting service the
// authentication layer provisions accounts on. Only the admin surface this
// module consumes is modeled; the forge owns and mutates every entity here.
package forge

import (
	"context"
	"time"
)

// User is a forge account as the admin API reports it.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	State     string    `json:"state,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Group is a forge namespace users get attached to at registration.
type Group struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// Token is a personal access token issued for a forge user.
type Token struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Token     string     `json:"token"`
	Active    bool       `json:"active"`
	Revoked   bool       `json:"revoked"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// AdminClient is the forge surface the authentication service consumes.
// GetUser authenticates as the token owner; the Admin* calls authenticate
// with the configured admin token.
type AdminClient interface {
	GetUser(ctx context.Context, token string) (*User, error)
	AdminCreateUser(ctx context.Context, email, name, username, password string) (*User, error)
	AdminListUsers(ctx context.Context) ([]User, error)
	AdminCreateUserToken(ctx context.Context, userID int64, name string) (*Token, error)
	AdminCreateGroup(ctx context.Context, name, path string) (*Group, error)
	AdminAddUserToGroup(ctx context.Context, groupID, userID int64) error
}
