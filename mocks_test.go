package accounts_test

import (
	"context"
	"database/sql"

	accounts "github.com/goliatone/go-accounts"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockRepositoryManager implements accounts.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

// RunInTx runs the transaction body with a zero bun.Tx so tests can assert
// on the repository calls made inside it. A configured error short circuits.
func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	if err := args.Error(0); err != nil {
		return err
	}
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Accounts() accounts.Accounts {
	args := m.Called()
	return args.Get(0).(accounts.Accounts)
}

// MockAccounts implements accounts.Accounts. The embedded interface covers
// the repository methods no test exercises; calling one of those panics.
type MockAccounts struct {
	mock.Mock
	accounts.Accounts
}

func (m *MockAccounts) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*accounts.Account, error) {
	args := m.Called(ctx, id, criteria)
	record, _ := args.Get(0).(*accounts.Account)
	return record, args.Error(1)
}

func (m *MockAccounts) Create(ctx context.Context, record *accounts.Account, criteria ...repository.InsertCriteria) (*accounts.Account, error) {
	args := m.Called(ctx, record, criteria)
	out, _ := args.Get(0).(*accounts.Account)
	return out, args.Error(1)
}

func (m *MockAccounts) CreateTx(ctx context.Context, tx bun.IDB, record *accounts.Account, criteria ...repository.InsertCriteria) (*accounts.Account, error) {
	args := m.Called(ctx, tx, record, criteria)
	out, _ := args.Get(0).(*accounts.Account)
	return out, args.Error(1)
}

func (m *MockAccounts) GetByVerificationToken(ctx context.Context, token string) (*accounts.Account, error) {
	args := m.Called(ctx, token)
	record, _ := args.Get(0).(*accounts.Account)
	return record, args.Error(1)
}

func (m *MockAccounts) GetByVerificationTokenTx(ctx context.Context, tx bun.IDB, token string) (*accounts.Account, error) {
	args := m.Called(ctx, tx, token)
	record, _ := args.Get(0).(*accounts.Account)
	return record, args.Error(1)
}

func (m *MockAccounts) EmailInUse(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	args := m.Called(ctx, email, exclude)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccounts) EmailInUseTx(ctx context.Context, tx bun.IDB, email string, exclude uuid.UUID) (bool, error) {
	args := m.Called(ctx, tx, email, exclude)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccounts) VerifyByToken(ctx context.Context, token string) (*accounts.Account, error) {
	args := m.Called(ctx, token)
	record, _ := args.Get(0).(*accounts.Account)
	return record, args.Error(1)
}

func (m *MockAccounts) VerifyByTokenTx(ctx context.Context, tx bun.IDB, token string) (*accounts.Account, error) {
	args := m.Called(ctx, tx, token)
	record, _ := args.Get(0).(*accounts.Account)
	return record, args.Error(1)
}

func (m *MockAccounts) UpdateFields(ctx context.Context, record *accounts.Account, columns ...string) (*accounts.Account, error) {
	args := m.Called(ctx, record, columns)
	out, _ := args.Get(0).(*accounts.Account)
	return out, args.Error(1)
}

func (m *MockAccounts) UpdateFieldsTx(ctx context.Context, tx bun.IDB, record *accounts.Account, columns ...string) (*accounts.Account, error) {
	args := m.Called(ctx, tx, record, columns)
	out, _ := args.Get(0).(*accounts.Account)
	return out, args.Error(1)
}

func (m *MockAccounts) ListAccounts(ctx context.Context, criteria accounts.ListCriteria) ([]*accounts.Account, error) {
	args := m.Called(ctx, criteria)
	records, _ := args.Get(0).([]*accounts.Account)
	return records, args.Error(1)
}

func (m *MockAccounts) DeleteByID(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccounts) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

// MockNotifier implements accounts.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendVerification(ctx context.Context, n accounts.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}
