package forgeauth

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-forgeauth/forge"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// defaultTokenTTL bounds local token records when the forge response carries
// no expiry.
const defaultTokenTTL = 30 * 24 * time.Hour

// Auther is the account authentication service. Every operation is one
// linear request/response exchange with its collaborators; there is no
// internal state.
type Auther struct {
	repo         RepositoryManager
	forge        forge.AdminClient
	hasher       PasswordAuthenticator
	cfg          Config
	logger       Logger
	provider     LoggerProvider
	tokenService SessionTokenService
}

// NewAuthenticator returns a new Auther
func NewAuthenticator(repo RepositoryManager, client forge.AdminClient, cfg Config) *Auther {
	loggerProvider, logger := ResolveLogger("forgeauth.auther", nil, nil)

	tokenService := NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		logger,
	)

	return &Auther{
		repo:         repo,
		forge:        client,
		hasher:       BcryptHasher{},
		cfg:          cfg,
		logger:       logger,
		provider:     loggerProvider,
		tokenService: tokenService,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.provider, s.logger = ResolveLogger("forgeauth.auther", s.provider, logger)
	return s
}

// WithLoggerProvider overrides the logger provider used by the service.
func (s *Auther) WithLoggerProvider(provider LoggerProvider) *Auther {
	s.provider, s.logger = ResolveLogger("forgeauth.auther", provider, nil)
	return s
}

// WithPasswordAuthenticator sets a custom hasher, mostly for tests.
func (s *Auther) WithPasswordAuthenticator(hasher PasswordAuthenticator) *Auther {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

// WithTokenService sets a custom session token service.
func (s *Auther) WithTokenService(ts SessionTokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// TokenService returns the session token service used by this Auther.
func (s *Auther) TokenService() SessionTokenService {
	return s.tokenService
}

var _ Authenticator = (*Auther)(nil)

// Login authenticates a password against accounts matching username and/or
// email, resolves the account's best token, and verifies the forge still
// recognizes it. On success the account's last login timestamp is persisted.
func (s *Auther) Login(ctx context.Context, password, username, email string) (*Account, error) {
	account, err := s.matchCredentials(ctx, password, username, email)
	if err != nil {
		return nil, err
	}

	token, err := s.BestToken(ctx, account)
	if err != nil {
		return nil, err
	}

	if token == nil {
		s.logger.Warn("login rejected, no usable token", "account", account.ID.String())
		return nil, ErrInvalidCredentials
	}

	if _, err := s.ResolveForgeUser(ctx, token.Token); err != nil {
		if errors.Is(err, ErrUpstreamUnavailable) || errors.Is(err, ErrUpstreamConflict) {
			return nil, err
		}
		return nil, ErrInvalidCredentials
	}

	if err := s.repo.Accounts().TrackLogin(ctx, account); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to track login")
	}

	return account, nil
}

func (s *Auther) matchCredentials(ctx context.Context, password, username, email string) (*Account, error) {
	var candidates []*Account

	if username != "" {
		account, err := s.repo.Accounts().GetByUsername(ctx, username)
		if err != nil && !errors.IsNotFound(err) {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up account by username")
		}
		if account != nil {
			candidates = append(candidates, account)
		}
	}

	if email != "" {
		account, err := s.repo.Accounts().GetByEmail(ctx, email)
		if err != nil && !errors.IsNotFound(err) {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up account by email")
		}
		if account != nil {
			candidates = append(candidates, account)
		}
	}

	for _, account := range candidates {
		if err := s.hasher.ComparePasswordAndHash(password, account.PasswordHash); err == nil {
			return account, nil
		}
	}

	s.logger.Warn("login rejected, no account matched credentials", "username", username, "email", email)
	return nil, ErrInvalidCredentials
}

// Register provisions the account on the forge (group, user, token,
// membership, strictly in that order) and then persists Person, Account, and
// AccountToken in a single transaction. Nothing is persisted locally when
// any forge step fails.
func (s *Auther) Register(ctx context.Context, password, username, email string) (*Account, error) {
	if err := s.ensureAvailable(ctx, username, email); err != nil {
		return nil, err
	}

	groupPath := fmt.Sprintf("%s-%s", s.cfg.GetGroupPathPrefix(), username)
	group, err := s.forge.AdminCreateGroup(ctx, username, groupPath)
	if err != nil {
		s.logger.Error("register failed to create forge group", "username", username, "error", err)
		return nil, ErrGroupProvision
	}

	user, err := s.createForgeUser(ctx, password, username, email)
	if err != nil {
		return nil, err
	}

	forgeToken, err := s.forge.AdminCreateUserToken(ctx, user.ID, s.cfg.GetTokenName())
	if err != nil {
		s.logger.Error("register failed to create forge token", "username", username, "error", err)
		return nil, ErrTokenProvision
	}

	if err := s.forge.AdminAddUserToGroup(ctx, group.ID, user.ID); err != nil {
		s.logger.Error("register failed to add forge user to group", "username", username, "group", group.ID, "error", err)
		return nil, ErrMembershipProvision
	}

	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid password provided")
	}

	expiresAt := time.Now().Add(defaultTokenTTL)
	if forgeToken.ExpiresAt != nil {
		expiresAt = *forgeToken.ExpiresAt
	}

	account := &Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		ForgeUserID:  user.ID,
	}
	// deterministic id so repeated imports of the same identity converge
	if id, err := hashid.NewUUID(email); err == nil {
		account.ID = id
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		person := &Person{
			ID:          uuid.New(),
			Slug:        username,
			DisplayName: user.Name,
		}
		if person, err = s.repo.People().CreateTx(ctx, tx, person); err != nil {
			return errors.Wrap(err, errors.CategoryConflict, "could not create person")
		}

		account.PersonID = &person.ID
		account.Person = person
		if account, err = s.repo.Accounts().CreateTx(ctx, tx, account); err != nil {
			return errors.Wrap(err, errors.CategoryConflict, "could not create account")
		}

		token := &AccountToken{
			AccountID:    &account.ID,
			Token:        forgeToken.Token,
			ForgeTokenID: forgeToken.ID,
			Active:       true,
			Revoked:      false,
			ExpiresAt:    expiresAt,
		}
		if _, err = s.repo.AccountTokens().CreateTx(ctx, tx, token); err != nil {
			return errors.Wrap(err, errors.CategoryConflict, "could not create account token")
		}

		return nil
	})

	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "registration transaction failed")
	}

	return account, nil
}

func (s *Auther) ensureAvailable(ctx context.Context, username, email string) error {
	if _, err := s.repo.Accounts().GetByUsername(ctx, username); err == nil {
		return ErrAccountExists
	} else if !errors.IsNotFound(err) {
		return errors.Wrap(err, errors.CategoryInternal, "failed to check username availability")
	}

	if _, err := s.repo.Accounts().GetByEmail(ctx, email); err == nil {
		return ErrAccountExists
	} else if !errors.IsNotFound(err) {
		return errors.Wrap(err, errors.CategoryInternal, "failed to check email availability")
	}

	return nil
}

// createForgeUser creates the user upstream. A conflict response is
// tolerated only when the config flag allows adopting an existing forge user
// by username lookup; any other client error is fatal for the step.
func (s *Auther) createForgeUser(ctx context.Context, password, username, email string) (*forge.User, error) {
	user, err := s.forge.AdminCreateUser(ctx, email, username, username, password)
	if err == nil {
		return user, nil
	}

	if !forge.IsConflict(err) || !s.cfg.GetAllowExistingForgeUser() {
		s.logger.Error("register failed to create forge user", "username", username, "error", err)
		return nil, ErrUserProvision
	}

	s.logger.Warn("forge user already exists, adopting by username lookup", "username", username)

	users, err := s.forge.AdminListUsers(ctx)
	if err != nil {
		s.logger.Error("register failed to list forge users", "username", username, "error", err)
		return nil, ErrUserProvision
	}

	for i := range users {
		if users[i].Username == username {
			return &users[i], nil
		}
	}

	s.logger.Error("forge reported a user conflict but no user matches", "username", username)
	return nil, ErrUserProvision
}

// BestToken returns the usable token with the earliest expiry, or nil when
// the account has no usable token. Soonest-to-expire wins on purpose: the
// policy prefers burning tokens that are about to die anyway.
func (s *Auther) BestToken(ctx context.Context, account *Account) (*AccountToken, error) {
	if account == nil {
		return nil, nil
	}

	tokens, err := s.repo.AccountTokens().ListByAccount(ctx, account.ID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list account tokens")
	}

	var best *AccountToken
	for _, token := range tokens {
		if !token.Usable() {
			continue
		}
		if best == nil || token.ExpiresAt.Before(best.ExpiresAt) {
			best = token
		}
	}

	return best, nil
}

// ResolveForgeUser asks the forge which identity owns the token.
func (s *Auther) ResolveForgeUser(ctx context.Context, token string) (*forge.User, error) {
	user, err := s.forge.GetUser(ctx, token)
	if err != nil {
		if forge.IsConnectivity(err) {
			s.logger.Error("forge unreachable resolving token", "token", redactToken(token), "error", err)
			return nil, ErrUpstreamUnavailable
		}

		s.logger.Error("forge rejected token", "token", redactToken(token), "error", err)
		return nil, ErrUpstreamConflict
	}

	return user, nil
}

// TokenDetails assembles the combined view of a token, its account, and the
// forge identity. Pure data, no failure path.
func (s *Auther) TokenDetails(token *AccountToken, account *Account, user *forge.User) TokenDetails {
	details := TokenDetails{}

	if token != nil {
		details.Token = token.Token
		details.TokenID = token.ID
		details.ExpiresAt = token.ExpiresAt
	}

	if account != nil {
		details.AccountID = account.ID
		details.Username = account.Username
		details.Email = account.Email
		if account.Person != nil {
			details.PersonSlug = account.Person.Slug
		}
	}

	if user != nil {
		details.ForgeUserID = user.ID
		details.ForgeUsername = user.Username
	}

	return details
}

// FindAccountByToken resolves the owning account of a stored token string.
func (s *Auther) FindAccountByToken(ctx context.Context, token string) (*Account, error) {
	record, err := s.repo.AccountTokens().GetByToken(ctx, token)
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Warn("token lookup missed", "token", redactToken(token))
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up token")
	}

	if record.AccountID == nil {
		s.logger.Warn("token has no account link", "token", redactToken(token))
		return nil, ErrInvalidCredentials
	}

	account, err := s.repo.Accounts().GetByID(ctx, *record.AccountID)
	if err != nil {
		if errors.IsNotFound(err) {
			s.logger.Warn("token points at a missing account", "token", redactToken(token))
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up account")
	}

	return account, nil
}

// redactToken keeps a short prefix for correlation and hides the rest.
func redactToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****"
}
