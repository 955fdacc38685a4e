package accounts

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// The ORM update path omits zero values, so writes that need to clear
// columns (consume a verification token, drop the admin flag) go through
// raw SQL or an explicit column list.
var VerifyAccountSQL = `UPDATE "accounts" AS "acc"
SET
	"is_verified" = TRUE,
	"verification_token" = NULL,
	"updated_at" = CURRENT_TIMESTAMP
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."verification_token" = ?
) RETURNING *;`

// ListCriteria narrows ListAccounts results; nil fields are ignored.
type ListCriteria struct {
	Verified *bool
	Admin    *bool
}

type Accounts interface {
	repository.Repository[*Account]

	Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error)

	GetByVerificationToken(ctx context.Context, token string) (*Account, error)
	GetByVerificationTokenTx(ctx context.Context, tx bun.IDB, token string) (*Account, error)

	EmailInUse(ctx context.Context, email string, exclude uuid.UUID) (bool, error)
	EmailInUseTx(ctx context.Context, tx bun.IDB, email string, exclude uuid.UUID) (bool, error)

	VerifyByToken(ctx context.Context, token string) (*Account, error)
	VerifyByTokenTx(ctx context.Context, tx bun.IDB, token string) (*Account, error)

	UpdateFields(ctx context.Context, record *Account, columns ...string) (*Account, error)
	UpdateFieldsTx(ctx context.Context, tx bun.IDB, record *Account, columns ...string) (*Account, error)

	ListAccounts(ctx context.Context, criteria ListCriteria) ([]*Account, error)

	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type accountsRepo struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accountsRepo)(nil)
	_ repository.Repository[*Account] = (*accountsRepo)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &accountsRepo{
		Repository: repo,
		db:         db,
	}
}

func (a *accountsRepo) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *accountsRepo) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	prepareAccountDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *accountsRepo) GetByVerificationToken(ctx context.Context, token string) (*Account, error) {
	return a.GetByVerificationTokenTx(ctx, a.db, token)
}

func (a *accountsRepo) GetByVerificationTokenTx(ctx context.Context, tx bun.IDB, token string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.verification_token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows || repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"verification_token": token,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *accountsRepo) EmailInUse(ctx context.Context, email string, exclude uuid.UUID) (bool, error) {
	return a.EmailInUseTx(ctx, a.db, email, exclude)
}

// EmailInUseTx reports whether a live account other than exclude already
// holds the address. The unique column constraint remains the backstop for
// races between this check and the write.
func (a *accountsRepo) EmailInUseTx(ctx context.Context, tx bun.IDB, email string, exclude uuid.UUID) (bool, error) {
	q := tx.NewSelect().
		Model((*Account)(nil)).
		Where("?TableAlias.email = ?", email)

	if exclude != uuid.Nil {
		q = q.Where("?TableAlias.id != ?", exclude)
	}

	return q.Exists(ctx)
}

func (a *accountsRepo) VerifyByToken(ctx context.Context, token string) (*Account, error) {
	return a.VerifyByTokenTx(ctx, a.db, token)
}

// VerifyByTokenTx flips the verified flag and consumes the token in one
// statement, so a token can only ever be redeemed once.
func (a *accountsRepo) VerifyByTokenTx(ctx context.Context, tx bun.IDB, token string) (*Account, error) {
	res, err := a.Repository.RawTx(ctx, tx, VerifyAccountSQL, token)
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"verification_token": token,
			})
	}

	return res[0], nil
}

func (a *accountsRepo) UpdateFields(ctx context.Context, record *Account, columns ...string) (*Account, error) {
	return a.UpdateFieldsTx(ctx, a.db, record, columns...)
}

// UpdateFieldsTx writes the named columns only, zero values included. This
// is the path for writes that have to clear a column the ORM update would
// otherwise skip.
func (a *accountsRepo) UpdateFieldsTx(ctx context.Context, tx bun.IDB, record *Account, columns ...string) (*Account, error) {
	now := time.Now()
	record.UpdatedAt = &now

	res, err := tx.NewUpdate().
		Model(record).
		Column(append(columns, "updated_at")...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": record.ID.String(),
			})
	}

	return record, nil
}

// ListAccounts filters on the account flags; the base List only takes
// select criteria, so the domain filter carries its own name.
func (a *accountsRepo) ListAccounts(ctx context.Context, criteria ListCriteria) ([]*Account, error) {
	var records []*Account

	q := a.db.NewSelect().Model(&records)

	if criteria.Verified != nil {
		q = q.Where("?TableAlias.is_verified = ?", *criteria.Verified)
	}

	if criteria.Admin != nil {
		q = q.Where("?TableAlias.is_admin = ?", *criteria.Admin)
	}

	if err := q.Order("created_at ASC").Scan(ctx); err != nil {
		return nil, err
	}

	return records, nil
}

func (a *accountsRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return a.DeleteByIDTx(ctx, a.db, id)
}

// DeleteByIDTx soft deletes. A second delete on the same id reports not
// found: the tombstoned row is no longer visible to the delete query.
func (a *accountsRepo) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*Account)(nil)).
		Where("?TableAlias.id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

// CreateAccountIndexes builds the supporting indexes. Email uniqueness only
// covers live rows: a deleted account releases its address for re-registration.
func CreateAccountIndexes(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateIndex().
		Model((*Account)(nil)).
		Index("accounts_email_live_idx").
		Unique().
		Column("email").
		Where("deleted_at IS NULL").
		IfNotExists().
		Exec(ctx)

	return err
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
