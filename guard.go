package accounts

import (
	"github.com/google/uuid"
)

// Scope is a named permission grant attached to a caller's token.
type Scope = string

const (
	// ScopeManageAccount gates show, update, and me.
	ScopeManageAccount Scope = "manage-account"
	// ScopeReadGeneral gates account listings.
	ScopeReadGeneral Scope = "read-general"
)

// Operation names an account API action for authorization purposes.
type Operation string

const (
	OpList    Operation = "list"
	OpCreate  Operation = "create"
	OpShow    Operation = "show"
	OpUpdate  Operation = "update"
	OpDestroy Operation = "destroy"
	OpMe      Operation = "me"
	OpVerify  Operation = "verify"
	OpResend  Operation = "resend"
)

// Actor is the caller context resolved from the presented credentials.
// Client-credential callers carry no identity: a trusted client application
// acts on its own behalf (create, resend). End-user callers carry their
// account id, admin flag, and granted scopes.
type Actor struct {
	ID     uuid.UUID
	Admin  bool
	Scopes []Scope
	Client bool
}

// Authenticated reports whether the actor carries an end-user identity.
func (a *Actor) Authenticated() bool {
	return a != nil && a.ID != uuid.Nil
}

// HasScope reports whether the actor was granted the scope.
func (a *Actor) HasScope(scope Scope) bool {
	if a == nil {
		return false
	}
	for _, s := range a.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// CanViewAccount is the view ability: owners and admins may read a target.
func CanViewAccount(actor *Actor, target *Account) bool {
	return ownsOrAdmin(actor, target)
}

// CanUpdateAccount is the update ability: owners and admins may write a target.
func CanUpdateAccount(actor *Actor, target *Account) bool {
	return ownsOrAdmin(actor, target)
}

// CanDeleteAccount is the delete ability: owners and admins may remove a target.
func CanDeleteAccount(actor *Actor, target *Account) bool {
	return ownsOrAdmin(actor, target)
}

// CanGrantAdmin is the admin capability required to touch the admin field,
// checked on the acting identity in addition to the update ability on the
// target.
func CanGrantAdmin(actor *Actor) bool {
	return actor.Authenticated() && actor.Admin
}

func ownsOrAdmin(actor *Actor, target *Account) bool {
	if !actor.Authenticated() || target == nil {
		return false
	}
	return actor.Admin || actor.ID == target.ID
}

// Authorize runs the ordered checklist for an operation against its target.
// It distinguishes a missing identity (unauthenticated) from an identity
// lacking scope or ability (forbidden). create, resend, and verify carry no
// identity requirement here; the client-credential requirement on create and
// resend is enforced by the route middleware.
func Authorize(actor *Actor, op Operation, target *Account) error {
	if err := AuthorizeScope(actor, op); err != nil {
		return err
	}

	switch op {
	case OpShow:
		return requireAbility(CanViewAccount(actor, target), op)
	case OpUpdate:
		return requireAbility(CanUpdateAccount(actor, target), op)
	case OpDestroy:
		return requireAbility(CanDeleteAccount(actor, target), op)
	}

	return nil
}

// AuthorizeScope runs the identity and scope stage of the checklist. It
// needs no target, so the HTTP layer runs it before resolving one: a caller
// missing a scope hears about the scope, not about whether the id exists.
func AuthorizeScope(actor *Actor, op Operation) error {
	switch op {
	case OpCreate, OpResend, OpVerify:
		return nil
	case OpList:
		return requireScopes(actor, ScopeReadGeneral)
	case OpMe, OpShow, OpUpdate:
		return requireScopes(actor, ScopeManageAccount)
	case OpDestroy:
		if !actor.Authenticated() {
			return ErrUnauthenticated
		}
		return nil
	}

	return denyForbidden(op, "unknown operation")
}

func requireScopes(actor *Actor, scopes ...Scope) error {
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}

	for _, scope := range scopes {
		if !actor.HasScope(scope) {
			clone := ErrInvalidScope.Clone()
			if clone == nil {
				return ErrInvalidScope
			}
			clone.Source = ErrInvalidScope
			return clone.WithMetadata(map[string]any{
				"scope": scope,
			})
		}
	}

	return nil
}

func requireAbility(allowed bool, op Operation) error {
	if allowed {
		return nil
	}
	return denyForbidden(op, "ability check failed")
}

func denyForbidden(op Operation, reason string) error {
	clone := ErrForbidden.Clone()
	if clone == nil {
		return ErrForbidden
	}
	clone.Source = ErrForbidden
	return clone.WithMetadata(map[string]any{
		"operation": string(op),
		"reason":    reason,
	})
}
