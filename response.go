package accounts

import (
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// AccountResource is the wire projection of an account. Credentials and the
// verification token never leave the service.
type AccountResource struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	IsVerified bool       `json:"isVerified"`
	IsAdmin    bool       `json:"isAdmin"`
	CreatedAt  *time.Time `json:"createdAt"`
	UpdatedAt  *time.Time `json:"updatedAt"`
	DeletedAt  *time.Time `json:"deletedAt,omitempty"`
}

// NewAccountResource projects a record for responses.
func NewAccountResource(record *Account) AccountResource {
	return AccountResource{
		ID:         record.ID.String(),
		Name:       record.Name,
		Email:      record.Email,
		IsVerified: record.Verified,
		IsAdmin:    record.Admin,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
		DeletedAt:  record.DeletedAt,
	}
}

// NewAccountCollection projects a list of records for responses.
func NewAccountCollection(records []*Account) []AccountResource {
	out := make([]AccountResource, 0, len(records))
	for _, record := range records {
		out = append(out, NewAccountResource(record))
	}
	return out
}

// ErrorEnvelope is the error payload: a message or a field -> messages map,
// plus the HTTP status repeated in the body.
type ErrorEnvelope struct {
	Error any `json:"error"`
	Code  int `json:"code"`
}

// MessageEnvelope wraps plain status messages (verify, resend).
type MessageEnvelope struct {
	Message string `json:"message"`
}

// RenderError maps a command error onto the HTTP envelope. Validation
// failures carry their per-field messages; everything else carries the
// error's message. Unclassified errors render as opaque server errors.
func RenderError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return ctx.JSON(fiber.StatusInternalServerError, ErrorEnvelope{
			Error: "Server Error",
			Code:  fiber.StatusInternalServerError,
		})
	}

	status := statusFor(richErr)

	var body any = richErr.Message
	if richErr.Category == goerrors.CategoryValidation {
		if fields, ok := FieldErrorsFrom(richErr); ok && len(fields) > 0 {
			body = fields
		}
	}

	if status == fiber.StatusInternalServerError {
		// internals never leak; the message is logged server side
		body = "Server Error"
	}

	return ctx.JSON(status, ErrorEnvelope{
		Error: body,
		Code:  status,
	})
}

func statusFor(err *goerrors.Error) int {
	switch err.Category {
	case goerrors.CategoryValidation:
		return fiber.StatusUnprocessableEntity
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryBadInput:
		return fiber.StatusBadRequest
	case goerrors.CategoryAuth:
		if err.Code == goerrors.CodeForbidden {
			return fiber.StatusForbidden
		}
		return fiber.StatusUnauthorized
	}

	return fiber.StatusInternalServerError
}
