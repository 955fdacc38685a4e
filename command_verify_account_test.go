package accounts_test

import (
	"context"
	"database/sql"
	"testing"

	accounts "github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestVerifyAccountHandlerRedeemsToken(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	store := &MockAccounts{}

	verified := &accounts.Account{
		ID:       uuid.New(),
		Name:     "Person",
		Email:    "person@example.com",
		Verified: true,
	}

	repo.On("Accounts").Return(store)
	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
		Return(nil).Once()
	store.On("VerifyByTokenTx", mock.Anything, mock.Anything, "pending-token").
		Return(verified, nil).Once()

	handler := accounts.NewVerifyAccountHandler(repo).WithLogger(testLogger{})

	var responded *accounts.Account
	err := handler.Execute(ctx, accounts.VerifyAccountMessage{
		Token: "pending-token",
		OnResponse: func(acc *accounts.Account) {
			responded = acc
		},
	})

	require.NoError(t, err)
	require.Same(t, verified, responded)
	require.True(t, responded.Verified)

	repo.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestVerifyAccountHandlerUnknownTokenReadsAsNotFound(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}
	store := &MockAccounts{}

	repo.On("Accounts").Return(store)
	repo.On("RunInTx", mock.Anything, (*sql.TxOptions)(nil), mock.Anything).
		Return(nil).Once()
	store.On("VerifyByTokenTx", mock.Anything, mock.Anything, "already-used").
		Return(nil, repository.NewRecordNotFound()).Once()

	handler := accounts.NewVerifyAccountHandler(repo).WithLogger(testLogger{})

	err := handler.Execute(ctx, accounts.VerifyAccountMessage{Token: "already-used"})
	require.Error(t, err)
	require.True(t, goerrors.Is(err, accounts.ErrAccountNotFound))
}

func TestVerifyAccountHandlerRequiresToken(t *testing.T) {
	ctx := context.Background()
	repo := &MockRepositoryManager{}

	handler := accounts.NewVerifyAccountHandler(repo).WithLogger(testLogger{})

	err := handler.Execute(ctx, accounts.VerifyAccountMessage{})
	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	require.Equal(t, goerrors.CategoryValidation, richErr.Category)

	repo.AssertNotCalled(t, "RunInTx", mock.Anything, mock.Anything, mock.Anything)
}
