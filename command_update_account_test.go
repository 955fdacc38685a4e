package accounts_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	accounts "github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }
func boolptr(b bool) *bool    { return &b }

func storedAccount(id uuid.UUID) *accounts.Account {
	now := time.Now()
	return &accounts.Account{
		ID:        id,
		Name:      "Person",
		Email:     "person@example.com",
		Verified:  true,
		CreatedAt: &now,
		UpdatedAt: &now,
	}
}

func expectLookup(repo *MockRepositoryManager, store *MockAccounts, record *accounts.Account) {
	repo.On("Accounts").Return(store)
	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
		Return(nil).Once()
	store.On("GetByID", mock.Anything, record.ID.String(), mock.Anything).
		Return(record, nil).Once()
}

func TestUpdateAccountHandlerChangesName(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	store := &MockAccounts{}

	id := uuid.New()
	record := storedAccount(id)
	expectLookup(repo, store, record)

	var columns []string
	store.On("UpdateFieldsTx", mock.Anything, mock.Anything, record, mock.Anything).
		Run(func(args mock.Arguments) {
			columns = args.Get(3).([]string)
		}).
		Return(record, nil).Once()

	handler := accounts.NewUpdateAccountHandler(repo).WithLogger(testLogger{})

	var responded *accounts.Account
	err := handler.Execute(ctx, accounts.UpdateAccountMessage{
		ID:    id,
		Actor: &accounts.Actor{ID: id},
		Name:  strptr("Renamed"),
		OnResponse: func(acc *accounts.Account) {
			responded = acc
		},
	})

	require.NoError(t, err)
	require.Equal(t, "Renamed", record.Name)
	require.Equal(t, []string{"name"}, columns)
	require.True(t, record.Verified)
	require.Same(t, record, responded)

	repo.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestUpdateAccountHandlerEmailChangeResetsVerification(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	store := &MockAccounts{}

	id := uuid.New()
	record := storedAccount(id)
	expectLookup(repo, store, record)

	store.On("EmailInUseTx", mock.Anything, mock.Anything, "new@example.com", id).
		Return(false, nil).Once()

	var columns []string
	store.On("UpdateFieldsTx", mock.Anything, mock.Anything, record, mock.Anything).
		Run(func(args mock.Arguments) {
			columns = args.Get(3).([]string)
		}).
		Return(record, nil).Once()

	handler := accounts.NewUpdateAccountHandler(repo).
		WithTokenGenerator(func() string { return "fresh-token" }).
		WithLogger(testLogger{})

	err := handler.Execute(ctx, accounts.UpdateAccountMessage{
		ID:    id,
		Actor: &accounts.Actor{ID: id},
		Email: strptr("new@example.com"),
	})

	require.NoError(t, err)
	require.Equal(t, "new@example.com", record.Email)
	require.False(t, record.Verified)
	require.Equal(t, "fresh-token", record.VerificationToken)
	require.Equal(t, []string{"email", "is_verified", "verification_token"}, columns)

	store.AssertExpectations(t)
}

func TestUpdateAccountHandlerSameEmailIsNotAChange(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	store := &MockAccounts{}

	id := uuid.New()
	record := storedAccount(id)
	expectLookup(repo, store, record)

	handler := accounts.NewUpdateAccountHandler(repo).WithLogger(testLogger{})

	err := handler.Execute(ctx, accounts.UpdateAccountMessage{
		ID:    id,
		Actor: &accounts.Actor{ID: id},
		Email: strptr("person@example.com"),
	})

	require.Error(t, err)
	require.True(t, goerrors.Is(err, accounts.ErrNoMaterialChange))
	require.True(t, record.Verified)

	store.AssertNotCalled(t, "EmailInUseTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "UpdateFieldsTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateAccountHandlerAdminWriteRequiresAdminActor(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	store := &MockAccounts{}

	id := uuid.New()
	record := storedAccount(id)
	expectLookup(repo, store, record)

	handler := accounts.NewUpdateAccountHandler(repo).WithLogger(testLogger{})

	err := handler.Execute(ctx, accounts.UpdateAccountMessage{
		ID:    id,
		Actor: &accounts.Actor{ID: id}, // owner, not admin
		Admin: boolptr(true),
	})

	require.Error(t, err)
	require.True(t, goerrors.Is(err, accounts.ErrForbidden))
	require.False(t, record.Admin)

	store.AssertNotCalled(t, "UpdateFieldsTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateAccountHandlerAdminWriteNeedsVerifiedTarget(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	store := &MockAccounts{}

	id := uuid.New()
	record := storedAccount(id)
	record.Verified = false
	expectLookup(repo, store, record)

	handler := accounts.NewUpdateAccountHandler(repo).WithLogger(testLogger{})

	err := handler.Execute(ctx, accounts.UpdateAccountMessage{
		ID:    id,
		Actor: &accounts.Actor{ID: uuid.New(), Admin: true},
		Admin: boolptr(true),
	})

	require.Error(t, err)
	require.True(t, goerrors.Is(err, accounts.ErrUnverifiedAdminChange))
	require.False(t, record.Admin)

	store.AssertNotCalled(t, "UpdateFieldsTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateAccountHandlerAdminWriteByAdmin(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	store := &MockAccounts{}

	id := uuid.New()
	record := storedAccount(id)
	expectLookup(repo, store, record)

	var columns []string
	store.On("UpdateFieldsTx", mock.Anything, mock.Anything, record, mock.Anything).
		Run(func(args mock.Arguments) {
			columns = args.Get(3).([]string)
		}).
		Return(record, nil).Once()

	handler := accounts.NewUpdateAccountHandler(repo).WithLogger(testLogger{})

	err := handler.Execute(ctx, accounts.UpdateAccountMessage{
		ID:    id,
		Actor: &accounts.Actor{ID: uuid.New(), Admin: true},
		Admin: boolptr(true),
	})

	require.NoError(t, err)
	require.True(t, record.Admin)
	require.Equal(t, []string{"is_admin"}, columns)
}

func TestUpdateAccountHandlerNoOpRejected(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	store := &MockAccounts{}

	id := uuid.New()
	record := storedAccount(id)
	expectLookup(repo, store, record)

	handler := accounts.NewUpdateAccountHandler(repo).WithLogger(testLogger{})

	err := handler.Execute(ctx, accounts.UpdateAccountMessage{
		ID:    id,
		Actor: &accounts.Actor{ID: id},
		Name:  strptr("Person"),
	})

	require.Error(t, err)
	require.True(t, goerrors.Is(err, accounts.ErrNoMaterialChange))
}

func TestUpdateAccountHandlerUnknownTarget(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	store := &MockAccounts{}

	id := uuid.New()

	repo.On("Accounts").Return(store)
	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
		Return(nil).Once()
	store.On("GetByID", mock.Anything, id.String(), mock.Anything).
		Return(nil, repository.NewRecordNotFound()).Once()

	handler := accounts.NewUpdateAccountHandler(repo).WithLogger(testLogger{})

	err := handler.Execute(ctx, accounts.UpdateAccountMessage{
		ID:    id,
		Actor: &accounts.Actor{ID: id},
		Name:  strptr("Renamed"),
	})

	require.Error(t, err)
	require.True(t, goerrors.Is(err, accounts.ErrAccountNotFound))
}
