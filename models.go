package forgeauth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the local identity record. The forge side of the identity is
// referenced through ForgeUserID and never mutated locally.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username      string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	PersonID      *uuid.UUID `bun:"person_id,notnull,type:uuid" json:"person_id,omitempty"`
	Person        *Person    `bun:"rel:belongs-to,join:person_id=id" json:"person,omitempty"`
	ForgeUserID   int64      `bun:"forge_user_id,notnull" json:"forge_user_id,omitempty"`
	LastLoginAt   *time.Time `bun:"last_login_at,nullzero" json:"last_login_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Person is the public profile created 1:1 with an Account. Slug is the
// registration username.
type Person struct {
	bun.BaseModel `bun:"table:people,alias:per"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Slug          string     `bun:"slug,notnull,unique" json:"slug,omitempty"`
	DisplayName   string     `bun:"display_name,notnull" json:"display_name,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// AccountToken mirrors a forge access token for one account. Many tokens may
// exist per account; BestToken picks the usable one expiring soonest.
type AccountToken struct {
	bun.BaseModel `bun:"table:account_tokens,alias:tok"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	AccountID     *uuid.UUID `bun:"account_id,notnull,type:uuid" json:"account_id,omitempty"`
	Account       *Account   `bun:"rel:belongs-to,join:account_id=id" json:"account,omitempty"`
	Token         string     `bun:"token,notnull,unique" json:"-"`
	ForgeTokenID  int64      `bun:"forge_token_id,notnull" json:"forge_token_id,omitempty"`
	Active        bool       `bun:"active,notnull" json:"active,omitempty"`
	Revoked       bool       `bun:"revoked,notnull" json:"revoked,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Usable reports whether the token may authenticate requests.
func (t *AccountToken) Usable() bool {
	if t == nil {
		return false
	}
	return t.Active && !t.Revoked
}

// TokenDetails is the assembled view of a token, its owning account, and the
// forge identity the token resolves to. Pure data, no failure path.
type TokenDetails struct {
	Token         string    `json:"token"`
	TokenID       uuid.UUID `json:"token_id"`
	ExpiresAt     time.Time `json:"expires_at"`
	AccountID     uuid.UUID `json:"account_id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PersonSlug    string    `json:"person_slug,omitempty"`
	ForgeUserID   int64     `json:"forge_user_id"`
	ForgeUsername string    `json:"forge_username,omitempty"`
}
