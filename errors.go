package accounts

import (
	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeUnauthenticated   = "UNAUTHENTICATED"
	textCodeInvalidScope      = "INVALID_SCOPE"
	textCodeForbidden         = "FORBIDDEN"
	textCodeAccountNotFound   = "ACCOUNT_NOT_FOUND"
	textCodeUnverifiedAdmin   = "UNVERIFIED_ADMIN_CHANGE"
	textCodeAlreadyVerified   = "ALREADY_VERIFIED"
	textCodeNoMaterialChange  = "NO_MATERIAL_CHANGE"
	textCodeDispatchExhausted = "DISPATCH_EXHAUSTED"
)

// ErrUnauthenticated is returned when no valid caller identity is present.
var ErrUnauthenticated = goerrors.New("Unauthenticated.", goerrors.CategoryAuth).
	WithTextCode(textCodeUnauthenticated).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidScope is returned when the caller's token lacks a required scope.
var ErrInvalidScope = goerrors.New("Invalid scopes provided.", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidScope).
	WithCode(goerrors.CodeForbidden)

// ErrForbidden is returned when the caller fails an ability check on the
// target account.
var ErrForbidden = goerrors.New("You are not authorized to perform this action.", goerrors.CategoryAuth).
	WithTextCode(textCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrAccountNotFound is returned when a target does not resolve to a live record.
var ErrAccountNotFound = goerrors.New("Does not exist any account with the specified identificator.", goerrors.CategoryNotFound).
	WithTextCode(textCodeAccountNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUnverifiedAdminChange rejects admin-field writes on unverified targets.
var ErrUnverifiedAdminChange = goerrors.New("Only verified users can modify the admin field.", goerrors.CategoryConflict).
	WithTextCode(textCodeUnverifiedAdmin).
	WithCode(goerrors.CodeConflict)

// ErrAlreadyVerified rejects resend requests for verified accounts.
var ErrAlreadyVerified = goerrors.New("This user is already verified", goerrors.CategoryConflict).
	WithTextCode(textCodeAlreadyVerified).
	WithCode(goerrors.CodeConflict)

// ErrNoMaterialChange rejects updates that leave every field equal to its
// stored value.
var ErrNoMaterialChange = goerrors.New("You need to specify a different value to update", goerrors.CategoryValidation).
	WithTextCode(textCodeNoMaterialChange).
	WithCode(goerrors.CodeBadRequest)

// ErrDispatchExhausted is returned when every notification delivery attempt failed.
var ErrDispatchExhausted = goerrors.New("The verification email could not be delivered", goerrors.CategoryInternal).
	WithTextCode(textCodeDispatchExhausted).
	WithCode(goerrors.CodeInternal)

// FieldErrors maps a field name to its human readable validation messages.
type FieldErrors map[string][]string

// NewValidationError wraps ozzo validation output into a rich error that
// carries the per-field messages as metadata.
func NewValidationError(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "validation failed").
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{
			"fields": FormatValidationErrors(err),
		})
}

// NewFieldError builds a validation error for a single field, used when a
// constraint is enforced outside of ozzo rules (e.g. email uniqueness).
func NewFieldError(field, message string) error {
	return goerrors.New("validation failed", goerrors.CategoryValidation).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{
			"fields": FieldErrors{field: {message}},
		})
}

// FormatValidationErrors flattens an ozzo validation error into a
// field -> messages map. Non field errors land under "_".
func FormatValidationErrors(err error) FieldErrors {
	out := FieldErrors{}
	if err == nil {
		return out
	}

	verrs, ok := err.(validation.Errors)
	if !ok {
		out["_"] = append(out["_"], err.Error())
		return out
	}

	for field, ferr := range verrs {
		if ferr == nil {
			continue
		}
		out[field] = append(out[field], ferr.Error())
	}

	return out
}

// FieldErrorsFrom extracts the per-field messages carried by a validation
// error, if any.
func FieldErrorsFrom(err error) (FieldErrors, bool) {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return nil, false
	}

	if richErr.Metadata == nil {
		return nil, false
	}

	fields, ok := richErr.Metadata["fields"].(FieldErrors)
	return fields, ok
}
