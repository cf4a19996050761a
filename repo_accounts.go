package forgeauth

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Accounts interface {
	repository.Repository[*Account]

	GetByID(ctx context.Context, id uuid.UUID, criteria ...repository.SelectCriteria) (*Account, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID, criteria ...repository.SelectCriteria) (*Account, error)
	GetByUsername(ctx context.Context, username string, criteria ...repository.SelectCriteria) (*Account, error)
	GetByUsernameTx(ctx context.Context, tx bun.IDB, username string, criteria ...repository.SelectCriteria) (*Account, error)
	GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string, criteria ...repository.SelectCriteria) (*Account, error)
	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*Account, error)
	GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*Account, error)

	Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error)

	TrackLogin(ctx context.Context, account *Account) error
	TrackLoginTx(ctx context.Context, tx bun.IDB, account *Account) error
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) GetByID(ctx context.Context, id uuid.UUID, criteria ...repository.SelectCriteria) (*Account, error) {
	return a.GetByIDTx(ctx, a.db, id, criteria...)
}

func (a *accounts) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID, criteria ...repository.SelectCriteria) (*Account, error) {
	return a.getByColumnTx(ctx, tx, "id", id.String(), criteria...)
}

func (a *accounts) GetByUsername(ctx context.Context, username string, criteria ...repository.SelectCriteria) (*Account, error) {
	return a.GetByUsernameTx(ctx, a.db, username, criteria...)
}

func (a *accounts) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string, criteria ...repository.SelectCriteria) (*Account, error) {
	return a.getByColumnTx(ctx, tx, "username", username, criteria...)
}

func (a *accounts) GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email, criteria...)
}

func (a *accounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string, criteria ...repository.SelectCriteria) (*Account, error) {
	return a.getByColumnTx(ctx, tx, "email", email, criteria...)
}

func (a *accounts) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*Account, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

// GetByIdentifierTx accepts an account id, email, or username and tries the
// matching columns in that order.
func (a *accounts) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*Account, error) {
	for _, opt := range resolveAccountIdentifier(identifier) {
		record, err := a.getByColumnTx(ctx, tx, opt.column, opt.value, criteria...)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				continue
			}
			return nil, err
		}
		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

type identifierOption struct {
	column string
	value  string
}

func resolveAccountIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 3)

	if _, err := uuid.Parse(trimmed); err == nil {
		options = append(options, identifierOption{column: "id", value: trimmed})
	}

	if _, err := mail.ParseAddress(trimmed); err == nil {
		options = append(options, identifierOption{column: "email", value: trimmed})
	}

	options = append(options, identifierOption{column: "username", value: trimmed})

	return options
}

func (a *accounts) getByColumnTx(ctx context.Context, tx bun.IDB, column, value string, criteria ...repository.SelectCriteria) (*Account, error) {
	record := &Account{}
	q := tx.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					column: value,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *accounts) TrackLogin(ctx context.Context, account *Account) error {
	return a.TrackLoginTx(ctx, a.db, account)
}

// TrackLoginTx stamps last_login_at. Raw SQL so a stale struct can never
// clobber other columns.
func (a *accounts) TrackLoginTx(ctx context.Context, tx bun.IDB, account *Account) error {
	loggedInAt := time.Now()
	_, err := tx.NewRaw(`
		UPDATE "accounts" AS "acc"
		SET "last_login_at" = ?, "updated_at" = ?
		WHERE "acc"."deleted_at" IS NULL AND "acc"."id" = ?`,
		loggedInAt, loggedInAt, account.ID.String(),
	).Exec(ctx)

	if err == nil {
		account.LastLoginAt = &loggedInAt
	}

	return err
}
