package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Category classifies the database failures the pipeline treats as
// expected: anything uncategorized is an unrecoverable defect and passes
// through unwrapped.
type Category string

const (
	// CategoryConnection covers connection and authentication failures.
	CategoryConnection Category = "connection"
	// CategoryStatement covers syntax errors and missing objects.
	CategoryStatement Category = "statement"
	// CategoryIntegrity covers constraint and uniqueness violations.
	CategoryIntegrity Category = "integrity"
	// CategoryRaised covers exceptions raised inside database functions.
	CategoryRaised Category = "raised"
)

// Error wraps a categorized database failure with the statement that
// produced it.
type Error struct {
	Category  Category
	Statement string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error executing %q: %v", e.Category, e.Statement, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Result is the tagged outcome of a single statement: either a fetched
// row set, or confirmation that the statement produced no result set at
// all (DDL/DML such as a truncate).
type Result struct {
	Columns []string
	Rows    [][]interface{}
	rowSet  bool
}

// RowSet reports whether the statement produced a result set. An empty
// row set is still a row set; a truncate is not.
func (r Result) RowSet() bool { return r.rowSet }

// Gateway executes single statements against the run's database handle.
type Gateway struct {
	db     *sql.DB
	logger *zap.Logger
}

func New(db *sql.DB, logger *zap.Logger) *Gateway {
	return &Gateway{db: db, logger: logger}
}

// Execute runs one statement inside a transaction that commits on normal
// exit. Recognized failure categories are logged with the statement text
// and returned wrapped; everything else propagates as-is.
func (g *Gateway) Execute(ctx context.Context, query string) (Result, error) {
	result, err := g.execute(ctx, query)
	if err != nil {
		if category, ok := categorize(err); ok {
			g.logger.Error("query failed",
				zap.String("query", query),
				zap.String("category", string(category)),
				zap.Error(err))
			return Result{}, &Error{Category: category, Statement: query, Err: err}
		}
		return Result{}, err
	}
	g.logger.Debug("query executed", zap.String("query", query))
	return result, nil
}

// Ping validates connectivity and credentials with a throwaway select.
func (g *Gateway) Ping(ctx context.Context) error {
	_, err := g.Execute(ctx, "SELECT 1;")
	return err
}

func (g *Gateway) execute(ctx context.Context, query string) (Result, error) {
	tx, err := g.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return Result{}, err
	}

	result, err := collect(rows)
	if err != nil {
		return Result{}, err
	}

	if err := tx.Commit(); err != nil {
		return Result{}, err
	}
	return result, nil
}

func collect(rows *sql.Rows) (Result, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return Result{}, err
	}
	if len(cols) == 0 {
		// The statement produced no result set.
		return Result{}, rows.Err()
	}

	result := Result{Columns: cols, rowSet: true}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return Result{}, err
		}
		result.Rows = append(result.Rows, values)
	}
	return result, rows.Err()
}

func categorize(err error) (Category, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "28":
			return CategoryConnection, true
		case "26", "34", "3D", "3F", "42":
			return CategoryStatement, true
		case "23":
			return CategoryIntegrity, true
		case "P0":
			return CategoryRaised, true
		}
		return "", false
	}

	if errors.Is(err, driver.ErrBadConn) {
		return CategoryConnection, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return CategoryConnection, true
	}
	return "", false
}
