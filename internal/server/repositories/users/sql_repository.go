package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/fastsearch/internal/common"
	"github.com/dmitrijs2005/fastsearch/internal/dbx"
	"github.com/dmitrijs2005/fastsearch/internal/server/models"
)

// columns is the insert/select order of the users table.
var columns = []string{
	"id", "name", "email", "phone", "date_of_birth", "age", "address",
	"city", "state", "direction", "country", "postal_code",
	"created_at", "updated_at", "deleted_at",
}

// maxRowsPerStatement caps a single multi-row INSERT regardless of the
// driver's bind-parameter limit.
const maxRowsPerStatement = 1000

type sqlRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

// rowsPerStatement is the largest chunk that fits the dialect's parameter limit.
func (r *sqlRepository) rowsPerStatement() int {
	n := r.dialect.MaxParams() / len(columns)
	if n > maxRowsPerStatement {
		n = maxRowsPerStatement
	}
	return n
}

// BulkInsert writes users in multi-row INSERT statements. When the repository
// is bound to a *sql.DB the chunks run inside one transaction; when it is
// bound to a transaction the caller owns commit and rollback.
func (r *sqlRepository) BulkInsert(ctx context.Context, users []models.User) (int64, error) {
	if len(users) == 0 {
		return 0, nil
	}

	var inserted int64
	insert := func(ctx context.Context, tx dbx.DBTX) error {
		inserted = 0
		step := r.rowsPerStatement()
		for start := 0; start < len(users); start += step {
			end := min(start+step, len(users))
			n, err := r.insertChunk(ctx, tx, users[start:end])
			if err != nil {
				return err
			}
			inserted += n
		}
		return nil
	}

	var err error
	if b, ok := r.db.(dbx.TxBeginner); ok {
		err = dbx.WithTx(ctx, b, nil, insert)
	} else {
		err = insert(ctx, r.db)
	}
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

func (r *sqlRepository) insertChunk(ctx context.Context, tx dbx.DBTX, chunk []models.User) (int64, error) {
	query := fmt.Sprintf("INSERT INTO users (%s) VALUES %s",
		strings.Join(columns, ", "), r.dialect.ValuesList(len(chunk), len(columns)))

	args := make([]any, 0, len(chunk)*len(columns))
	for _, u := range chunk {
		args = append(args, rowArgs(u)...)
	}

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		// some drivers do not report affected rows for multi-row inserts
		return int64(len(chunk)), nil
	}
	return n, nil
}

// rowArgs encodes a user in column order. Nil markers become NULL.
func rowArgs(u models.User) []any {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return []any{
		u.ID, u.Name, u.Email, u.Phone, u.DateOfBirth, u.Age, u.Address,
		u.City, u.State, u.Direction, u.Country, u.PostalCode,
		createdAt.UTC(), nullTime(u.UpdatedAt), nullTime(u.DeletedAt),
	}
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// rowScanner is the common part of *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u         models.User
		phone     sql.NullString
		age       sql.NullString
		address   sql.NullString
		city      sql.NullString
		state     sql.NullString
		direction sql.NullString
		country   sql.NullString
		postal    sql.NullString
		updatedAt sql.NullTime
		deletedAt sql.NullTime
	)

	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &phone, &u.DateOfBirth, &age, &address,
		&city, &state, &direction, &country, &postal,
		&u.CreatedAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Phone, u.Age, u.Address = phone.String, age.String, address.String
	u.City, u.State, u.Direction = city.String, state.String, direction.String
	u.Country, u.PostalCode = country.String, postal.String
	if updatedAt.Valid {
		u.UpdatedAt = &updatedAt.Time
	}
	if deletedAt.Valid {
		u.DeletedAt = &deletedAt.Time
	}

	return &u, nil
}

func (r *sqlRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE id = %s",
		strings.Join(columns, ", "), r.dialect.Placeholder(1))

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

// changedAt is the time a row last changed: its update, or its creation
// when it was never updated.
const changedAt = "COALESCE(updated_at, created_at)"

// ListChangedSince returns live rows that changed after since, oldest change
// first. Rows changed exactly at since are included only when their id sorts
// after afterID, so (since, afterID) taken from the last row of a page is a
// cursor for the next one.
func (r *sqlRepository) ListChangedSince(ctx context.Context, since time.Time, afterID string, limit int) ([]models.User, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", common.ErrInvalidArgument, limit)
	}

	query := fmt.Sprintf("SELECT %s FROM users WHERE deleted_at IS NULL AND (%s > %s OR (%s = %s AND id > %s)) ORDER BY %s, id LIMIT %d",
		strings.Join(columns, ", "),
		changedAt, r.dialect.Placeholder(1),
		changedAt, r.dialect.Placeholder(2), r.dialect.Placeholder(3),
		changedAt, limit)

	since = since.UTC()
	rows, err := r.db.QueryContext(ctx, query, since, since, afterID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *sqlRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
