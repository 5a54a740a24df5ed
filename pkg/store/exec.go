package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapstore/pkg/dialect"
	"github.com/leapstack-labs/leapstore/pkg/workctx"
	"go.uber.org/zap"
)

// querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) logSQL(ctx context.Context, stmt string) {
	n := s.sqlCount.Add(1)
	s.sqlLog.Debug(stmt,
		zap.Int64("n", n),
		zap.Stringer("unit", workctx.FromContext(ctx)))
}

func (s *Store) checkOpen() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

// exec runs one statement and checks for warnings.
func (s *Store) exec(ctx context.Context, q querier, op, stmt string) (sql.Result, error) {
	s.logSQL(ctx, stmt)
	res, err := q.ExecContext(ctx, stmt)
	if err != nil {
		return nil, &PersistenceError{Op: op, SQL: stmt, Err: err}
	}
	if err := s.checkWarnings(ctx, q, op, stmt); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) query(ctx context.Context, q querier, op, stmt string) (*sql.Rows, error) {
	s.logSQL(ctx, stmt)
	rows, err := q.QueryContext(ctx, stmt)
	if err != nil {
		return nil, &PersistenceError{Op: op, SQL: stmt, Err: err}
	}
	return rows, nil
}

// queryInt runs a statement returning a single integer, such as an
// identity query or an insert with a returning clause.
func (s *Store) queryInt(ctx context.Context, q querier, op, stmt string) (int64, error) {
	s.logSQL(ctx, stmt)
	var raw any
	if err := q.QueryRowContext(ctx, stmt).Scan(&raw); err != nil {
		return 0, &PersistenceError{Op: op, SQL: stmt, Err: err}
	}
	n, err := asInt64(raw)
	if err != nil {
		return 0, &PersistenceError{Op: op, SQL: stmt, Err: err}
	}
	return n, nil
}

// checkWarnings fails the statement when the server reported warnings for
// it. Dialects without a warnings query never fail here.
func (s *Store) checkWarnings(ctx context.Context, q querier, op, stmt string) error {
	if s.cfg.IgnoreSQLWarnings || s.dialect.WarningsSQL == "" {
		return nil
	}
	rows, err := q.QueryContext(ctx, s.dialect.WarningsSQL)
	if err != nil {
		return &PersistenceError{Op: op, SQL: s.dialect.WarningsSQL, Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return &PersistenceError{Op: op, SQL: s.dialect.WarningsSQL, Err: err}
	}
	var warnings []string
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return &PersistenceError{Op: op, SQL: s.dialect.WarningsSQL, Err: err}
		}
		parts := make([]string, len(raw))
		for i, v := range raw {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			parts[i] = fmt.Sprint(v)
		}
		warnings = append(warnings, strings.Join(parts, " "))
	}
	if err := rows.Err(); err != nil {
		return &PersistenceError{Op: op, SQL: s.dialect.WarningsSQL, Err: err}
	}
	if len(warnings) > 0 {
		return &PersistenceError{Op: op, SQL: stmt, Err: &SQLWarningError{SQL: stmt, Warnings: warnings}}
	}
	return nil
}

// inTx runs fn in a transaction, rolling back when it fails.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &PersistenceError{Op: op, SQL: "begin", Err: err}
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("rollback failed", zap.String("op", op), zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: op, SQL: "commit", Err: err}
	}
	return nil
}

// ExecuteSQL runs one statement outside any unit of work. The statement and
// its warnings query share one connection.
func (s *Store) ExecuteSQL(ctx context.Context, stmt string) (sql.Result, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "execute", SQL: stmt, Err: err}
	}
	defer conn.Close()
	return s.exec(ctx, conn, "execute", stmt)
}

// QuerySQL runs one query. The caller closes the rows.
func (s *Store) QuerySQL(ctx context.Context, stmt string) (*sql.Rows, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.query(ctx, s.db, "query", stmt)
}

// ExecuteSQLTransaction runs the statements in one transaction.
func (s *Store) ExecuteSQLTransaction(ctx context.Context, stmts ...string) error {
	return s.inTx(ctx, "execute transaction", func(tx *sql.Tx) error {
		for _, stmt := range stmts {
			if _, err := s.exec(ctx, tx, "execute transaction", stmt); err != nil {
				return err
			}
		}
		return nil
	})
}

// ExecuteScript splits script into statements and runs them in order on one
// connection outside any transaction, stopping at the first failure.
func (s *Store) ExecuteScript(ctx context.Context, script string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return &PersistenceError{Op: "execute script", Err: err}
	}
	defer conn.Close()

	stmts := dialect.SplitStatements(script)
	for _, stmt := range stmts {
		if _, err := s.exec(ctx, conn, "execute script", stmt); err != nil {
			return err
		}
	}
	s.logger.Debug("script executed", zap.Int("statements", len(stmts)))
	return nil
}
