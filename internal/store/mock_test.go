package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// mockDB stands in for a pgx.Tx behind a Tx.
type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	rows, _ := args.Get(0).(pgx.Rows)
	return rows, args.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	return m.Called(ctx, sql, arguments).Get(0).(pgx.Row)
}

type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

// mockRows replays scripted rows; iterErr is reported by Err once they run out.
type mockRows struct {
	pgx.Rows
	scans   []func(dest ...any) error
	pos     int
	iterErr error
	closed  bool
}

func newMockRows(scans ...func(dest ...any) error) *mockRows {
	return &mockRows{scans: scans}
}

func newEmptyMockRows() *mockRows {
	return &mockRows{}
}

func (r *mockRows) Next() bool {
	if r.closed || r.pos >= len(r.scans) {
		r.closed = true
		return false
	}
	return true
}

func (r *mockRows) Scan(dest ...any) error {
	fn := r.scans[r.pos]
	r.pos++
	return fn(dest...)
}

func (r *mockRows) Err() error { return r.iterErr }

func (r *mockRows) Close() { r.closed = true }
