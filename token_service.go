package accounts

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ErrTokenExpired is returned for tokens past their expiration claim.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail parsing or signature checks.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// AccountClaims are the JWT claims the accounts API understands. Scopes are
// granted at token issuance; Client marks identity-less client-credential
// tokens used by trusted applications.
type AccountClaims struct {
	jwt.RegisteredClaims
	UID    string   `json:"uid,omitempty"`
	Admin  bool     `json:"adm,omitempty"`
	Scopes []string `json:"scopes,omitempty"`
	Client bool     `json:"client,omitempty"`
}

// Actor resolves the caller context the authorization guard operates on.
func (c *AccountClaims) Actor() *Actor {
	actor := &Actor{
		Admin:  c.Admin,
		Scopes: append([]Scope(nil), c.Scopes...),
		Client: c.Client,
	}

	if id, err := uuid.Parse(c.uid()); err == nil {
		actor.ID = id
	}

	return actor
}

func (c *AccountClaims) uid() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// TokenService mints and validates the HS256 tokens the API accepts. Token
// issuance normally lives in the OAuth subsystem; minting here exists for
// tooling and tests.
type TokenService struct {
	signingKey      []byte
	tokenExpiration int
	issuer          string
	audience        jwt.ClaimStrings
	logger          Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg Config, logger Logger) *TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenService{
		signingKey:      []byte(cfg.GetSigningKey()),
		tokenExpiration: cfg.GetTokenExpiration(),
		issuer:          cfg.GetIssuer(),
		audience:        jwt.ClaimStrings(cfg.GetAudience()),
		logger:          logger,
	}
}

// Generate creates a token bound to an account identity with the granted scopes.
func (ts *TokenService) Generate(account *Account, scopes ...Scope) (string, error) {
	if account == nil {
		return "", errors.New("account must not be nil", errors.CategoryInternal)
	}

	claims := ts.baseClaims(account.ID.String())
	claims.UID = account.ID.String()
	claims.Admin = account.Admin
	claims.Scopes = scopes

	return ts.SignClaims(claims)
}

// GenerateClientToken creates an identity-less client-credentials token.
func (ts *TokenService) GenerateClientToken() (string, error) {
	claims := ts.baseClaims("")
	claims.Client = true
	return ts.SignClaims(claims)
}

// SignClaims signs arbitrary claims using the configured signing key.
func (ts *TokenService) SignClaims(claims *AccountClaims) (string, error) {
	if claims == nil {
		return "", errors.New("claims must not be nil", errors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenService) Validate(tokenString string) (*AccountClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience[0]))
	}

	token, err := jwt.ParseWithClaims(tokenString, &AccountClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		ts.logger.Debug("TokenService validate rejected token: %v", err)
		return nil, ErrTokenMalformed
	}

	if claims, ok := token.Claims.(*AccountClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("TokenService validate could not decode or validate claims")
	return nil, ErrTokenMalformed
}

func (ts *TokenService) baseClaims(subject string) *AccountClaims {
	now := time.Now()
	return &AccountClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   subject,
			Audience:  ts.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ts.tokenExpiration) * time.Hour)),
		},
	}
}
