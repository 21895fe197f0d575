package core

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// mockDB records the queries APIKeyService issues against the pool.
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

// mockRows yields one row per scan func.
type mockRows struct {
	pgx.Rows
	scans []func(dest ...any) error
	next  int
}

func newMockRows(scans ...func(dest ...any) error) *mockRows {
	return &mockRows{scans: scans}
}

func (r *mockRows) Next() bool { return r.next < len(r.scans) }

func (r *mockRows) Scan(dest ...any) error {
	fn := r.scans[r.next]
	r.next++
	return fn(dest...)
}

func (r *mockRows) Err() error { return nil }
func (r *mockRows) Close()     {}
