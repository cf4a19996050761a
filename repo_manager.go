package forgeauth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Accounts() Accounts
	People() repository.Repository[*Person]
	AccountTokens() AccountTokens
}

func NewPeopleRepository(db *bun.DB) repository.Repository[*Person] {
	handlers := repository.ModelHandlers[*Person]{
		NewRecord: func() *Person {
			return &Person{}
		},
		GetID: func(record *Person) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Person, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "slug"
		},
	}
	return repository.NewRepository(db, handlers)
}

type mngr struct {
	db       *bun.DB
	accounts Accounts
	people   repository.Repository[*Person]
	tokens   AccountTokens
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:       db,
		accounts: NewAccountsRepository(db),
		people:   NewPeopleRepository(db),
		tokens:   NewAccountTokensRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.accounts == nil {
		return errors.New("repository accounts should be initialized")
	}

	if m.people == nil {
		return errors.New("repository people should be initialized")
	}

	if m.tokens == nil {
		return errors.New("repository tokens should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Accounts() Accounts {
	return m.accounts
}

func (m mngr) People() repository.Repository[*Person] {
	return m.people
}

func (m mngr) AccountTokens() AccountTokens {
	return m.tokens
}
