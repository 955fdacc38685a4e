package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UpdateAccountMessage carries a sparse update: nil fields are left alone.
// Actor is the caller identity resolved by the transport layer; the admin
// field can only be written by an admin actor.
type UpdateAccountMessage struct {
	ID         uuid.UUID `json:"-" form:"-"`
	Actor      *Actor    `json:"-" form:"-"`
	Name       *string   `json:"name" form:"name"`
	Email      *string   `json:"email" form:"email"`
	Password   *string   `json:"password" form:"password"`
	Admin      *bool     `json:"isAdmin" form:"isAdmin"`
	OnResponse func(*Account)
}

func (e UpdateAccountMessage) Type() string { return "account.update" }

// Validate will run validation rules on the fields that are present.
func (e UpdateAccountMessage) Validate() error {
	errs := validation.Errors{}

	if e.ID == uuid.Nil {
		errs["id"] = goerrors.New("cannot be blank", goerrors.CategoryValidation)
	}

	if e.Name != nil {
		if err := validation.Validate(*e.Name, validation.Required, validation.Length(1, 255)); err != nil {
			errs["name"] = err
		}
	}

	if e.Email != nil {
		if err := validation.Validate(*e.Email, validation.Required, validation.Length(1, 255), is.Email); err != nil {
			errs["email"] = err
		}
	}

	if e.Password != nil {
		if err := validation.Validate(*e.Password, validation.Required, validation.Length(6, 0)); err != nil {
			errs["password"] = err
		}
	}

	if len(errs) == 0 {
		return nil
	}

	return errs
}

// UpdateAccountHandler applies a sparse update to an account. A changed
// email resets the verification state and issues a fresh token, so the new
// address has to be proven like the original one. Writes to the admin flag
// require an admin actor and a target that was verified when the request
// arrived. An update where no field differs from the stored value is
// rejected rather than silently accepted.
type UpdateAccountHandler struct {
	repo   RepositoryManager
	tokens TokenGenerator
	logger Logger
}

// NewUpdateAccountHandler creates a handler with sane defaults.
func NewUpdateAccountHandler(repo RepositoryManager) *UpdateAccountHandler {
	return &UpdateAccountHandler{
		repo:   repo,
		tokens: GenerateVerificationToken,
		logger: defLogger{},
	}
}

// WithTokenGenerator overrides how verification tokens are produced.
func (h *UpdateAccountHandler) WithTokenGenerator(gen TokenGenerator) *UpdateAccountHandler {
	if gen != nil {
		h.tokens = gen
	}
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *UpdateAccountHandler) WithLogger(logger Logger) *UpdateAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *UpdateAccountHandler) Execute(ctx context.Context, event UpdateAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account update",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *UpdateAccountHandler) execute(ctx context.Context, event UpdateAccountMessage) error {
	if err := event.Validate(); err != nil {
		return NewValidationError(err)
	}

	account := &Account{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var err error

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err = h.repo.Accounts().GetByID(ctx, event.ID.String())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return notFound(event.ID)
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve account")
		}

		// Admin writes are checked against the verified state the
		// request found, not the state an email change in the same
		// payload produces.
		wasVerified := account.IsVerified()

		columns := []string{}

		if event.Name != nil && *event.Name != account.Name {
			account.Name = *event.Name
			columns = append(columns, "name")
		}

		if event.Email != nil && *event.Email != account.Email {
			taken, err := h.repo.Accounts().EmailInUseTx(ctx, tx, *event.Email, account.ID)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "could not check email uniqueness")
			}

			if taken {
				return NewFieldError("email", "The email has already been taken.")
			}

			account.Email = *event.Email
			account.ResetVerification(h.tokens())
			columns = append(columns, "email", "is_verified", "verification_token")
		}

		if event.Password != nil {
			hash, err := HashPassword(*event.Password)
			if err != nil {
				var richErr *goerrors.Error
				if goerrors.As(err, &richErr) {
					return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
				}
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
			}

			// A re-hash always produces a new digest, so a present
			// password always counts as a change.
			account.PasswordHash = hash
			columns = append(columns, "password_hash")
		}

		if event.Admin != nil {
			if !CanGrantAdmin(event.Actor) {
				return denyForbidden(OpUpdate, "admin field requires an admin actor")
			}

			if !wasVerified {
				clone := ErrUnverifiedAdminChange.Clone()
				clone.Source = ErrUnverifiedAdminChange
				return clone.WithMetadata(map[string]any{
					"id": account.ID.String(),
				})
			}

			if *event.Admin != account.Admin {
				account.Admin = *event.Admin
				columns = append(columns, "is_admin")
			}
		}

		if len(columns) == 0 {
			clone := ErrNoMaterialChange.Clone()
			clone.Source = ErrNoMaterialChange
			return clone.WithMetadata(map[string]any{
				"id": account.ID.String(),
			})
		}

		if account, err = h.repo.Accounts().UpdateFieldsTx(ctx, tx, account, columns...); err != nil {
			if repository.IsRecordNotFound(err) {
				return notFound(event.ID)
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not persist account update")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account update transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(account)
	}

	return nil
}

func notFound(id uuid.UUID) error {
	clone := ErrAccountNotFound.Clone()
	clone.Source = ErrAccountNotFound
	return clone.WithMetadata(map[string]any{
		"id": id.String(),
	})
}
