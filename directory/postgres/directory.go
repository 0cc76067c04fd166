// Package postgres is a sessionkit.AccountDirectory backed by PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/MrEthical07/sessionkit"
)

// Pool is the subset of *pgxpool.Pool the directory uses.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const accountColumns = `id, username, email, password_digest, full_name, verified, role, created_at`

// Directory stores accounts in the accounts table created by the embedded
// migrations.
type Directory struct {
	pool Pool
	now  func() time.Time
}

var _ sessionkit.AccountDirectory = (*Directory)(nil)

// New returns a Directory over pool.
func New(pool Pool) *Directory {
	return &Directory{pool: pool, now: time.Now}
}

func (d *Directory) Create(ctx context.Context, in sessionkit.NewAccount) (sessionkit.Account, error) {
	acc := sessionkit.Account{
		ID:             uuid.NewString(),
		Username:       in.Username,
		Email:          strings.ToLower(in.Email),
		PasswordDigest: in.PasswordDigest,
		FullName:       in.FullName,
		CreatedAt:      d.now().UTC(),
	}

	_, err := d.pool.Exec(ctx, `
		INSERT INTO accounts (id, username, email, password_digest, full_name, verified, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, acc.ID, acc.Username, acc.Email, acc.PasswordDigest, acc.FullName, acc.Verified, acc.Role, acc.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return sessionkit.Account{}, oops.
				Code("ACCOUNT_DUPLICATE").
				With("constraint", pgErr.ConstraintName).
				Wrap(sessionkit.ErrDuplicateAccount)
		}
		return sessionkit.Account{}, oops.Code("ACCOUNT_CREATE_FAILED").Wrap(err)
	}
	return acc, nil
}

func (d *Directory) FindByEmail(ctx context.Context, email string) (sessionkit.Account, error) {
	return d.findOne(ctx, "email", strings.ToLower(email))
}

// FindByIdentifier treats identifiers containing "@" as emails and anything
// else as a username.
func (d *Directory) FindByIdentifier(ctx context.Context, identifier string) (sessionkit.Account, error) {
	if strings.Contains(identifier, "@") {
		return d.findOne(ctx, "email", strings.ToLower(identifier))
	}
	return d.findOne(ctx, "username", identifier)
}

func (d *Directory) MarkVerified(ctx context.Context, id string) error {
	return d.update(ctx, "mark verified", `UPDATE accounts SET verified = TRUE WHERE id = $1`, id)
}

func (d *Directory) UpdatePasswordDigest(ctx context.Context, id, digest string) error {
	return d.update(ctx, "update password digest", `UPDATE accounts SET password_digest = $2 WHERE id = $1`, id, digest)
}

// findOne looks an account up by a unique column. column is always a
// constant chosen by this package.
func (d *Directory) findOne(ctx context.Context, column, value string) (sessionkit.Account, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+column+` = $1`, value)

	var acc sessionkit.Account
	err := row.Scan(
		&acc.ID,
		&acc.Username,
		&acc.Email,
		&acc.PasswordDigest,
		&acc.FullName,
		&acc.Verified,
		&acc.Role,
		&acc.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return sessionkit.Account{}, sessionkit.ErrAccountNotFound
	}
	if err != nil {
		return sessionkit.Account{}, oops.Code("ACCOUNT_LOOKUP_FAILED").With("by", column).Wrap(err)
	}
	return acc, nil
}

func (d *Directory) update(ctx context.Context, op, sql string, args ...any) error {
	tag, err := d.pool.Exec(ctx, sql, args...)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").With("operation", op).Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return sessionkit.ErrAccountNotFound
	}
	return nil
}
