package accounts

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

type ResendVerificationMessage struct {
	ID         uuid.UUID `json:"-" form:"-"`
	OnResponse func(*Account)
}

func (e ResendVerificationMessage) Type() string { return "account.verification.resend" }

// Validate will run validation rules
func (e ResendVerificationMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.ID, validation.Required),
	)
}

// ResendVerificationHandler re-dispatches the pending verification email for
// an account. The stored token is resent as is; resending does not rotate
// it, so links from earlier emails stay valid. Accounts that already
// verified get a conflict rather than another email.
type ResendVerificationHandler struct {
	repo     RepositoryManager
	notifier Notifier
	policy   DispatchPolicy
	logger   Logger
}

// NewResendVerificationHandler creates a handler with sane defaults.
func NewResendVerificationHandler(repo RepositoryManager, notifier Notifier) *ResendVerificationHandler {
	return &ResendVerificationHandler{
		repo:     repo,
		notifier: notifier,
		logger:   defLogger{},
	}
}

// WithDispatchPolicy overrides the retry policy used for delivery.
func (h *ResendVerificationHandler) WithDispatchPolicy(policy DispatchPolicy) *ResendVerificationHandler {
	h.policy = policy
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ResendVerificationHandler) WithLogger(logger Logger) *ResendVerificationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ResendVerificationHandler) Execute(ctx context.Context, event ResendVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification resend",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResendVerificationHandler) execute(ctx context.Context, event ResendVerificationMessage) error {
	if err := event.Validate(); err != nil {
		return NewValidationError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	account, err := h.repo.Accounts().GetByID(ctx, event.ID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return notFound(event.ID)
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not retrieve account")
	}

	if account.IsVerified() {
		clone := ErrAlreadyVerified.Clone()
		clone.Source = ErrAlreadyVerified
		return clone.WithMetadata(map[string]any{
			"id": account.ID.String(),
		})
	}

	notification := Notification{
		Name:  account.Name,
		Email: account.Email,
		Token: account.VerificationToken,
	}

	if err := DispatchWithRetry(ctx, h.policy, func(ctx context.Context) error {
		return h.notifier.SendVerification(ctx, notification)
	}); err != nil {
		h.logger.Error("verification resend failed for %s: %v", account.ID, err)

		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not dispatch verification email")
	}

	if event.OnResponse != nil {
		event.OnResponse(account)
	}

	return nil
}
