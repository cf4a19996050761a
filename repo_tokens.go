package forgeauth

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AccountTokens interface {
	repository.Repository[*AccountToken]

	GetByToken(ctx context.Context, token string, criteria ...repository.SelectCriteria) (*AccountToken, error)
	GetByTokenTx(ctx context.Context, tx bun.IDB, token string, criteria ...repository.SelectCriteria) (*AccountToken, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, criteria ...repository.SelectCriteria) ([]*AccountToken, error)
	ListByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, criteria ...repository.SelectCriteria) ([]*AccountToken, error)

	Create(ctx context.Context, record *AccountToken, criteria ...repository.InsertCriteria) (*AccountToken, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *AccountToken, criteria ...repository.InsertCriteria) (*AccountToken, error)
}

type accountTokens struct {
	repository.Repository[*AccountToken]
	db *bun.DB
}

var (
	_ AccountTokens                        = (*accountTokens)(nil)
	_ repository.Repository[*AccountToken] = (*accountTokens)(nil)
)

func NewAccountTokensRepository(db *bun.DB) AccountTokens {
	repo := repository.NewRepository[*AccountToken](db, repository.ModelHandlers[*AccountToken]{
		NewRecord: func() *AccountToken { return &AccountToken{} },
		GetID: func(t *AccountToken) uuid.UUID {
			if t == nil {
				return uuid.Nil
			}
			return t.ID
		},
		SetID: func(t *AccountToken, id uuid.UUID) {
			if t != nil {
				t.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &accountTokens{
		Repository: repo,
		db:         db,
	}
}

func (r *accountTokens) GetByToken(ctx context.Context, token string, criteria ...repository.SelectCriteria) (*AccountToken, error) {
	return r.GetByTokenTx(ctx, r.db, token, criteria...)
}

func (r *accountTokens) GetByTokenTx(ctx context.Context, tx bun.IDB, token string, criteria ...repository.SelectCriteria) (*AccountToken, error) {
	record := &AccountToken{}
	q := tx.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			// metadata deliberately omits the token value
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

func (r *accountTokens) ListByAccount(ctx context.Context, accountID uuid.UUID, criteria ...repository.SelectCriteria) ([]*AccountToken, error) {
	return r.ListByAccountTx(ctx, r.db, accountID, criteria...)
}

func (r *accountTokens) ListByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, criteria ...repository.SelectCriteria) ([]*AccountToken, error) {
	var records []*AccountToken
	q := tx.NewSelect().Model(&records)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("?TableAlias.account_id = ?", accountID.String()).
		Order("expires_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *accountTokens) Create(ctx context.Context, record *AccountToken, criteria ...repository.InsertCriteria) (*AccountToken, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

func (r *accountTokens) CreateTx(ctx context.Context, tx bun.IDB, record *AccountToken, criteria ...repository.InsertCriteria) (*AccountToken, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.CreateTx(ctx, tx, record, criteria...)
}
