package dblib

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Result is what an Adapter reports for an executed statement. Rows is set
// for SELECT; AffectedRows and GeneratedValue for the other statements.
// GeneratedValue is NULL when the database reported no generated key.
type Result struct {
	Rows           []Fields
	AffectedRows   int64
	GeneratedValue Value
}

// Adapter executes statements against a database connection.
type Adapter interface {
	Dialect() DatabaseType
	Execute(ctx context.Context, stmt Statement) (*Result, error)
}

// DBAdapter is an Adapter over a database/sql handle.
type DBAdapter struct {
	db     *sql.DB
	dbType DatabaseType
	logger *zap.Logger
}

// AdapterOption configures a DBAdapter.
type AdapterOption func(*DBAdapter)

// WithAdapterLogger sets the logger used for statement tracing.
func WithAdapterLogger(logger *zap.Logger) AdapterOption {
	return func(a *DBAdapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func NewDBAdapter(db *sql.DB, dbType DatabaseType, opts ...AdapterOption) *DBAdapter {
	a := &DBAdapter{db: db, dbType: dbType, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Open opens and pings a connection for dbType. The caller closes the
// returned adapter.
func Open(ctx context.Context, dbType DatabaseType, dsn string, opts ...AdapterOption) (*DBAdapter, error) {
	driverName, err := dbType.DriverName()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to ping database: %w", err), db.Close())
	}
	return NewDBAdapter(db, dbType, opts...), nil
}

func (a *DBAdapter) Dialect() DatabaseType { return a.dbType }

func (a *DBAdapter) DB() *sql.DB { return a.db }

func (a *DBAdapter) Close() error { return a.db.Close() }

// Execute renders stmt for the adapter's dialect and runs it.
func (a *DBAdapter) Execute(ctx context.Context, stmt Statement) (*Result, error) {
	query, args, err := Build(a.dbType, stmt)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("executing statement",
		zap.Stringer("type", stmt.Type()),
		zap.Stringer("table", stmt.Table()),
		zap.String("query", query),
		zap.Int("args", len(args)))

	switch s := stmt.(type) {
	case *Select:
		return a.query(ctx, query, args)
	case *Insert:
		if s.ReturningColumn(a.dbType) != "" {
			return a.insertReturning(ctx, query, args)
		}
		return a.exec(ctx, query, args, true)
	default:
		return a.exec(ctx, query, args, false)
	}
}

func (a *DBAdapter) query(ctx context.Context, query string, args []any) (_ *Result, err error) {
	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select failed: %w", err)
	}
	defer func() {
		err = multierr.Append(err, rows.Close())
	}()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &Result{Rows: []Fields{}}
	for rows.Next() {
		rowVals := make([]any, len(columns))
		scanArgs := make([]any, len(columns))
		for i := range rowVals {
			scanArgs[i] = &rowVals[i]
		}
		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		row := make(Fields, len(columns))
		for i, col := range columns {
			v, err := ValueOf(rowVals[i])
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col, err)
			}
			row[col] = v
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (a *DBAdapter) insertReturning(ctx context.Context, query string, args []any) (*Result, error) {
	var generated any
	if err := a.db.QueryRowContext(ctx, query, args...).Scan(&generated); err != nil {
		return nil, fmt.Errorf("insert failed: %w", err)
	}
	v, err := ValueOf(generated)
	if err != nil {
		return nil, fmt.Errorf("returned key: %w", err)
	}
	return &Result{AffectedRows: 1, GeneratedValue: v}, nil
}

func (a *DBAdapter) exec(ctx context.Context, query string, args []any, insert bool) (*Result, error) {
	res, err := a.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("statement failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	result := &Result{AffectedRows: affected}
	if insert {
		// Drivers without auto-increment support return an error or zero.
		if lastID, err := res.LastInsertId(); err == nil && lastID > 0 {
			result.GeneratedValue = Int(lastID)
		}
	}
	return result, nil
}
