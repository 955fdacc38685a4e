package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the account model
type Account struct {
	bun.BaseModel     `bun:"table:accounts,alias:acc"`
	ID                uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name              string     `bun:"name,notnull" json:"name,omitempty"`
	Email             string     `bun:"email,notnull" json:"email,omitempty"`
	PasswordHash      string     `bun:"password_hash" json:"-"`
	Admin             bool       `bun:"is_admin" json:"is_admin,omitempty"`
	Verified          bool       `bun:"is_verified" json:"is_verified,omitempty"`
	VerificationToken string     `bun:"verification_token,nullzero" json:"-"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt         *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// IsVerified reports whether the account completed email verification.
func (a *Account) IsVerified() bool {
	return a != nil && a.Verified
}

// IsAdmin reports whether the account holds the administrative role.
func (a *Account) IsAdmin() bool {
	return a != nil && a.Admin
}

// MarkVerified flips the account into the verified state and consumes the
// verification token.
func (a *Account) MarkVerified() *Account {
	a.Verified = true
	a.VerificationToken = ""
	return a
}

// ResetVerification re-enters the unverified state with a fresh token.
// Email changes always go through here, even when the new address was
// held before: the check is against the stored value, not history.
func (a *Account) ResetVerification(token string) *Account {
	a.Verified = false
	a.VerificationToken = token
	return a
}
