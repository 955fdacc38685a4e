package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type CreateAccountMessage struct {
	Name                 string `json:"name" form:"name"`
	Email                string `json:"email" form:"email"`
	Password             string `json:"password" form:"password"`
	PasswordConfirmation string `json:"passwordConfirmation" form:"passwordConfirmation"`
	UseHashid            bool   `json:"-" form:"-"`
	OnResponse           func(*Account)
}

func (e CreateAccountMessage) Type() string { return "account.create" }

// Validate will run validation rules
func (e CreateAccountMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&e.Email, validation.Required, validation.Length(1, 255), is.Email),
		validation.Field(&e.Password, validation.Required, validation.Length(6, 0)),
		validation.Field(
			&e.PasswordConfirmation,
			validation.Required,
			validation.By(ValidateStringEquals(e.Password)),
		),
	)
}

// CreateAccountHandler registers a new account. Accounts always start
// unverified and non admin: there is no path that grants the admin role at
// creation, whatever the caller supplied.
type CreateAccountHandler struct {
	repo   RepositoryManager
	tokens TokenGenerator
	logger Logger
}

// NewCreateAccountHandler creates a handler with sane defaults.
func NewCreateAccountHandler(repo RepositoryManager) *CreateAccountHandler {
	return &CreateAccountHandler{
		repo:   repo,
		tokens: GenerateVerificationToken,
		logger: defLogger{},
	}
}

// WithTokenGenerator overrides how verification tokens are produced.
func (h *CreateAccountHandler) WithTokenGenerator(gen TokenGenerator) *CreateAccountHandler {
	if gen != nil {
		h.tokens = gen
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *CreateAccountHandler) WithLogger(logger Logger) *CreateAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *CreateAccountHandler) Execute(ctx context.Context, event CreateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateAccountHandler) execute(ctx context.Context, event CreateAccountMessage) error {
	if err := event.Validate(); err != nil {
		return NewValidationError(err)
	}

	account := &Account{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		taken, err := h.repo.Accounts().EmailInUseTx(ctx, tx, event.Email, account.ID)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not check email uniqueness")
		}

		if taken {
			return NewFieldError("email", "The email has already been taken.")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		account.Name = event.Name
		account.Email = event.Email
		account.PasswordHash = hash
		account.Admin = false
		account.Verified = false
		account.VerificationToken = h.tokens()
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				account.ID = id
			}
		}

		if account, err = h.repo.Accounts().CreateTx(ctx, tx, account); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create account")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "account creation transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(account)
	}

	return nil
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return goerrors.New("values must match", goerrors.CategoryValidation)
		}
		return nil
	}
}
