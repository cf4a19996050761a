package forgeauth_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/goliatone/go-forgeauth"
	"github.com/goliatone/go-forgeauth/forge"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockAccounts implements forgeauth.Accounts. The embedded repository
// interface covers the methods these tests never call.
type MockAccounts struct {
	mock.Mock
	repository.Repository[*forgeauth.Account]
}

func (m *MockAccounts) GetByID(ctx context.Context, id uuid.UUID, criteria ...repository.SelectCriteria) (*forgeauth.Account, error) {
	args := m.Called(ctx, id)
	account, _ := args.Get(0).(*forgeauth.Account)
	return account, args.Error(1)
}

func (m *MockAccounts) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID, criteria ...repository.SelectCriteria) (*forgeauth.Account, error) {
	args := m.Called(ctx, tx, id)
	account, _ := args.Get(0).(*forgeauth.Account)
	return account, args.Error(1)
}

func (m *MockAccounts) GetByUsername(ctx context.Context, username string, criteria ...repository.SelectCriteria) (*forgeauth.Account, error) {
	args := m.Called(ctx, username)
	account, _ := args.Get(0).(*forgeauth.Account)
	return account, args.Error(1)
}

func (m *MockAccounts) GetByUsernameTx(ctx context.Context, tx bun.IDB, username string, criteria ...repository.SelectCriteria) (*forgeauth.Account, error) {
	args := m.Called(ctx, tx, username)
	account, _ := args.Get(0).(*forgeauth.Account)
	return account, args.Error(1)
}

func (m *MockAccounts) GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*forgeauth.Account, error) {
	args := m.Called(ctx, email)
	account, _ := args.Get(0).(*forgeauth.Account)
	return account, args.Error(1)
}

func (m *MockAccounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string, criteria ...repository.SelectCriteria) (*forgeauth.Account, error) {
	args := m.Called(ctx, tx, email)
	account, _ := args.Get(0).(*forgeauth.Account)
	return account, args.Error(1)
}

func (m *MockAccounts) Create(ctx context.Context, record *forgeauth.Account, criteria ...repository.InsertCriteria) (*forgeauth.Account, error) {
	args := m.Called(ctx, record)
	account, _ := args.Get(0).(*forgeauth.Account)
	return account, args.Error(1)
}

// CreateTx echoes the record back when the expectation returns (nil, nil),
// mirroring how the real repository hands the persisted record to the caller.
func (m *MockAccounts) CreateTx(ctx context.Context, tx bun.IDB, record *forgeauth.Account, criteria ...repository.InsertCriteria) (*forgeauth.Account, error) {
	args := m.Called(ctx, tx, record)
	account, _ := args.Get(0).(*forgeauth.Account)
	if account == nil && args.Error(1) == nil {
		account = record
	}
	return account, args.Error(1)
}

func (m *MockAccounts) Upsert(ctx context.Context, record *forgeauth.Account, criteria ...repository.UpdateCriteria) (*forgeauth.Account, error) {
	args := m.Called(ctx, record)
	account, _ := args.Get(0).(*forgeauth.Account)
	if account == nil && args.Error(1) == nil {
		account = record
	}
	return account, args.Error(1)
}

func (m *MockAccounts) TrackLogin(ctx context.Context, account *forgeauth.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccounts) TrackLoginTx(ctx context.Context, tx bun.IDB, account *forgeauth.Account) error {
	args := m.Called(ctx, tx, account)
	return args.Error(0)
}

// MockPeople implements repository.Repository[*forgeauth.Person] for the
// single method registration exercises.
type MockPeople struct {
	mock.Mock
	repository.Repository[*forgeauth.Person]
}

func (m *MockPeople) CreateTx(ctx context.Context, tx bun.IDB, record *forgeauth.Person, criteria ...repository.InsertCriteria) (*forgeauth.Person, error) {
	args := m.Called(ctx, tx, record)
	person, _ := args.Get(0).(*forgeauth.Person)
	if person == nil && args.Error(1) == nil {
		person = record
	}
	return person, args.Error(1)
}

// MockAccountTokens implements forgeauth.AccountTokens
type MockAccountTokens struct {
	mock.Mock
	repository.Repository[*forgeauth.AccountToken]
}

func (m *MockAccountTokens) GetByToken(ctx context.Context, token string, criteria ...repository.SelectCriteria) (*forgeauth.AccountToken, error) {
	args := m.Called(ctx, token)
	record, _ := args.Get(0).(*forgeauth.AccountToken)
	return record, args.Error(1)
}

func (m *MockAccountTokens) GetByTokenTx(ctx context.Context, tx bun.IDB, token string, criteria ...repository.SelectCriteria) (*forgeauth.AccountToken, error) {
	args := m.Called(ctx, tx, token)
	record, _ := args.Get(0).(*forgeauth.AccountToken)
	return record, args.Error(1)
}

func (m *MockAccountTokens) ListByAccount(ctx context.Context, accountID uuid.UUID, criteria ...repository.SelectCriteria) ([]*forgeauth.AccountToken, error) {
	args := m.Called(ctx, accountID)
	records, _ := args.Get(0).([]*forgeauth.AccountToken)
	return records, args.Error(1)
}

func (m *MockAccountTokens) ListByAccountTx(ctx context.Context, tx bun.IDB, accountID uuid.UUID, criteria ...repository.SelectCriteria) ([]*forgeauth.AccountToken, error) {
	args := m.Called(ctx, tx, accountID)
	records, _ := args.Get(0).([]*forgeauth.AccountToken)
	return records, args.Error(1)
}

func (m *MockAccountTokens) Create(ctx context.Context, record *forgeauth.AccountToken, criteria ...repository.InsertCriteria) (*forgeauth.AccountToken, error) {
	args := m.Called(ctx, record)
	token, _ := args.Get(0).(*forgeauth.AccountToken)
	return token, args.Error(1)
}

func (m *MockAccountTokens) CreateTx(ctx context.Context, tx bun.IDB, record *forgeauth.AccountToken, criteria ...repository.InsertCriteria) (*forgeauth.AccountToken, error) {
	args := m.Called(ctx, tx, record)
	token, _ := args.Get(0).(*forgeauth.AccountToken)
	if token == nil && args.Error(1) == nil {
		token = record
	}
	return token, args.Error(1)
}

// MockRepositoryManager implements forgeauth.RepositoryManager. RunInTx runs
// the callback with a zero transaction so the mocked CreateTx calls below it
// still see every argument.
type MockRepositoryManager struct {
	AccountsRepo *MockAccounts
	PeopleRepo   *MockPeople
	TokensRepo   *MockAccountTokens

	TxErr error
}

func newMockRepositoryManager() *MockRepositoryManager {
	return &MockRepositoryManager{
		AccountsRepo: new(MockAccounts),
		PeopleRepo:   new(MockPeople),
		TokensRepo:   new(MockAccountTokens),
	}
}

func (m *MockRepositoryManager) Validate() error { return nil }

func (m *MockRepositoryManager) MustValidate() {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	if m.TxErr != nil {
		return m.TxErr
	}
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Accounts() forgeauth.Accounts {
	return m.AccountsRepo
}

func (m *MockRepositoryManager) People() repository.Repository[*forgeauth.Person] {
	return m.PeopleRepo
}

func (m *MockRepositoryManager) AccountTokens() forgeauth.AccountTokens {
	return m.TokensRepo
}

// MockForgeClient implements forge.AdminClient
type MockForgeClient struct {
	mock.Mock
}

func (m *MockForgeClient) GetUser(ctx context.Context, token string) (*forge.User, error) {
	args := m.Called(ctx, token)
	user, _ := args.Get(0).(*forge.User)
	return user, args.Error(1)
}

func (m *MockForgeClient) AdminCreateUser(ctx context.Context, email, name, username, password string) (*forge.User, error) {
	args := m.Called(ctx, email, name, username, password)
	user, _ := args.Get(0).(*forge.User)
	return user, args.Error(1)
}

func (m *MockForgeClient) AdminListUsers(ctx context.Context) ([]forge.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]forge.User)
	return users, args.Error(1)
}

func (m *MockForgeClient) AdminCreateUserToken(ctx context.Context, userID int64, name string) (*forge.Token, error) {
	args := m.Called(ctx, userID, name)
	token, _ := args.Get(0).(*forge.Token)
	return token, args.Error(1)
}

func (m *MockForgeClient) AdminCreateGroup(ctx context.Context, name, path string) (*forge.Group, error) {
	args := m.Called(ctx, name, path)
	group, _ := args.Get(0).(*forge.Group)
	return group, args.Error(1)
}

func (m *MockForgeClient) AdminAddUserToGroup(ctx context.Context, groupID, userID int64) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

// stubHasher keeps service tests fast and deterministic; bcrypt itself is
// covered in bcrypt_test.go.
type stubHasher struct{}

func (stubHasher) HashPassword(password string) (string, error) {
	return "hashed:" + password, nil
}

func (stubHasher) ComparePasswordAndHash(password, hash string) error {
	if hash == "hashed:"+password {
		return nil
	}
	return forgeauth.ErrMismatchedHashAndPassword
}

// captureLogger records formatted lines so tests can assert on redaction.
type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *captureLogger) record(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, format+" "+fmt.Sprint(args...))
}

func (l *captureLogger) Debug(format string, args ...any) { l.record(format, args...) }
func (l *captureLogger) Info(format string, args ...any)  { l.record(format, args...) }
func (l *captureLogger) Warn(format string, args ...any)  { l.record(format, args...) }
func (l *captureLogger) Error(format string, args ...any) { l.record(format, args...) }

func (l *captureLogger) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// MockContext mocks router.Context for controller tests
type MockContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Query(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockContext) Referer() string {
	args := m.Called()
	return args.String(0)
}
