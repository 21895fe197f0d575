// Package store implements core.Store on PostgreSQL through pgx.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edvin/netedge/internal/core"
)

const defaultListLimit = 50

// Querier is the query surface shared by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store runs each unit of work in its own database transaction.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var (
	_ core.Store = (*Store)(nil)
	_ core.Tx    = (*Tx)(nil)
)

// WithTx begins a transaction, runs fn and commits. Any error from fn rolls
// the transaction back.
func (s *Store) WithTx(ctx context.Context, fn func(tx core.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(NewTx(tx))
	})
}

// Tx implements core.Tx on a single transaction.
type Tx struct {
	q Querier
}

func NewTx(q Querier) *Tx {
	return &Tx{q: q}
}

// advisoryLock takes a transaction-scoped lock on key.
func (t *Tx) advisoryLock(ctx context.Context, key string) error {
	_, err := t.q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key)
	return err
}

// notFound maps pgx.ErrNoRows to core.ErrNotFound.
func notFound(err error, what, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", core.ErrNotFound, what, id)
	}
	return err
}

func expectOne(tag pgconn.CommandTag, what, id string) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s %s", core.ErrNotFound, what, id)
	}
	return nil
}

// listQuery builds a tenant-scoped, cursor-paginated SELECT.
type listQuery struct {
	sql  string
	args []any
}

func newListQuery(base, tenantID string) *listQuery {
	return &listQuery{sql: base + ` WHERE tenant_id = $1`, args: []any{tenantID}}
}

func (q *listQuery) eq(column, value string) {
	if value == "" {
		return
	}
	q.args = append(q.args, value)
	q.sql += fmt.Sprintf(` AND %s = $%d`, column, len(q.args))
}

func (q *listQuery) page(f core.ListFilter) int {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if f.Cursor != "" {
		q.args = append(q.args, f.Cursor)
		q.sql += fmt.Sprintf(` AND id > $%d`, len(q.args))
	}
	q.args = append(q.args, limit+1)
	q.sql += fmt.Sprintf(` ORDER BY id LIMIT $%d`, len(q.args))
	return limit
}

func trimPage[T any](items []T, limit int) ([]T, bool) {
	if len(items) > limit {
		return items[:limit], true
	}
	return items, false
}

// jsonArg passes a raw JSON document to a JSONB column, NULL when empty.
func jsonArg(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
