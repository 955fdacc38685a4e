package accounts_test

import (
	"testing"

	accounts "github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	signingKey      string
	contextKey      string
	tokenExpiration int
	issuer          string
	audience        []string
}

func (c testConfig) GetSigningKey() string   { return c.signingKey }
func (c testConfig) GetContextKey() string   { return c.contextKey }
func (c testConfig) GetTokenExpiration() int { return c.tokenExpiration }
func (c testConfig) GetIssuer() string       { return c.issuer }
func (c testConfig) GetAudience() []string   { return c.audience }

func newTestTokenService(expiration int) *accounts.TokenService {
	return accounts.NewTokenService(testConfig{
		signingKey:      "test-signing-key",
		contextKey:      "actor",
		tokenExpiration: expiration,
		issuer:          "accounts-test",
	}, testLogger{})
}

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := newTestTokenService(1)

	id := uuid.New()
	record := &accounts.Account{ID: id, Admin: true}

	token, err := svc.Generate(record, accounts.ScopeManageAccount, accounts.ScopeReadGeneral)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(token)
	require.NoError(t, err)

	actor := claims.Actor()
	assert.Equal(t, id, actor.ID)
	assert.True(t, actor.Admin)
	assert.False(t, actor.Client)
	assert.True(t, actor.HasScope(accounts.ScopeManageAccount))
	assert.True(t, actor.HasScope(accounts.ScopeReadGeneral))
	assert.True(t, actor.Authenticated())
}

func TestTokenServiceClientToken(t *testing.T) {
	svc := newTestTokenService(1)

	token, err := svc.GenerateClientToken()
	require.NoError(t, err)

	claims, err := svc.Validate(token)
	require.NoError(t, err)

	actor := claims.Actor()
	assert.True(t, actor.Client)
	assert.False(t, actor.Authenticated())
	assert.Empty(t, actor.Scopes)
}

func TestTokenServiceRejectsForeignSignature(t *testing.T) {
	svc := newTestTokenService(1)
	other := accounts.NewTokenService(testConfig{
		signingKey: "a-different-key",
		issuer:     "accounts-test",
	}, testLogger{})

	token, err := other.GenerateClientToken()
	require.NoError(t, err)

	_, err = svc.Validate(token)
	require.Error(t, err)
	require.True(t, goerrors.Is(err, accounts.ErrTokenMalformed))
}

func TestTokenServiceRejectsExpiredToken(t *testing.T) {
	svc := newTestTokenService(-1)

	token, err := svc.GenerateClientToken()
	require.NoError(t, err)

	_, err = svc.Validate(token)
	require.Error(t, err)
	require.True(t, goerrors.Is(err, accounts.ErrTokenExpired))
}

func TestTokenServiceRejectsGarbage(t *testing.T) {
	svc := newTestTokenService(1)

	_, err := svc.Validate("not-a-token")
	require.Error(t, err)
	require.True(t, goerrors.Is(err, accounts.ErrTokenMalformed))
}
