// Package dbtest содержит testify-моки для db.DB и pgx.Tx,
// чтобы репозитории можно было тестировать без живого Postgres.
package dbtest

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// ---------- DB ----------

type MockDB struct {
	mock.Mock
}

func (m *MockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *MockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *MockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

func (m *MockDB) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

// ---------- Tx ----------

// MockTx реализует pgx.Tx. Ожидания ставятся только на то, что реально зовут
// репозитории: Exec, QueryRow, Commit, Rollback.
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *MockTx) Commit(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	args := m.Called(ctx, tableName, columnNames, rowSrc)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	args := m.Called(ctx, b)
	return args.Get(0).(pgx.BatchResults)
}

func (m *MockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	args := m.Called(ctx, name, sql)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pgconn.StatementDescription), args.Error(1)
}

func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *MockTx) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *MockTx) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

func (m *MockTx) Conn() *pgx.Conn { return nil }

// ---------- Row / Rows ----------

// Row реализует pgx.Row через функцию сканирования.
type Row struct {
	ScanFunc func(dest ...any) error
}

func (r *Row) Scan(dest ...any) error {
	return r.ScanFunc(dest...)
}

// ErrRow — строка, которая при Scan отдаёт err (например pgx.ErrNoRows).
func ErrRow(err error) *Row {
	return &Row{ScanFunc: func(...any) error { return err }}
}

// Rows реализует pgx.Rows: по одной функции сканирования на строку.
type Rows struct {
	idx       int
	scanFuncs []func(dest ...any) error
	Error     error
}

func NewRows(scanFuncs ...func(dest ...any) error) *Rows {
	return &Rows{scanFuncs: scanFuncs}
}

func (r *Rows) Next() bool {
	return r.idx < len(r.scanFuncs)
}

func (r *Rows) Scan(dest ...any) error {
	if r.idx < len(r.scanFuncs) {
		fn := r.scanFuncs[r.idx]
		r.idx++
		return fn(dest...)
	}
	return nil
}

func (r *Rows) Err() error                                   { return r.Error }
func (r *Rows) Close()                                       {}
func (r *Rows) CommandTag() pgconn.CommandTag                 { return pgconn.CommandTag{} }
func (r *Rows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *Rows) RawValues() [][]byte                          { return nil }
func (r *Rows) Values() ([]any, error)                       { return nil, nil }
func (r *Rows) Conn() *pgx.Conn                              { return nil }

var (
	_ pgx.Tx   = (*MockTx)(nil)
	_ pgx.Row  = (*Row)(nil)
	_ pgx.Rows = (*Rows)(nil)
)
