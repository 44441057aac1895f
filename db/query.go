// query.go executes and explains generated SQL.
//
// All functions accept a context and return structured results that the
// TUI layer can render. Errors are returned, never printed.
package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pgx "github.com/jackc/pgx/v5"

	"github.com/DachengChen/asksql/applog"
	"github.com/DachengChen/asksql/contract"
)

// MaxRows caps how many rows Execute collects.
const MaxRows = 200

var (
	// ErrEmptyQuery is returned for blank SQL.
	ErrEmptyQuery = errors.New("empty query")
	// ErrDialect is returned for SQL written for another engine.
	ErrDialect = errors.New("only postgres SQL can run against this connection")
)

// QueryResult holds the output of a query.
type QueryResult struct {
	Columns   []string
	Rows      [][]string
	RowCount  int
	Truncated bool // more than MaxRows rows were available
	Elapsed   time.Duration
}

// Status is a psql-like footer, e.g. "(3 rows, 12ms)".
func (r *QueryResult) Status() string {
	more := ""
	if r.Truncated {
		more = "+"
	}
	return fmt.Sprintf("(%d%s row%s, %s)", r.RowCount, more, plural(r.RowCount), r.Elapsed.Round(time.Millisecond))
}

// ExplainResult holds a text query plan, one line per plan row.
type ExplainResult struct {
	Lines []string
}

// CanRun reports whether SQL of the given dialect can be sent to a
// PostgreSQL connection. Unknown dialects are attempted.
func CanRun(d contract.SQLDialect) bool {
	return d == contract.DialectPostgres || d == contract.DialectUnknown || d == ""
}

// Normalize trims whitespace and trailing semicolons.
func Normalize(sql string) string {
	return strings.TrimRight(strings.TrimSpace(sql), "; \t\n")
}

// Execute runs sql inside a read-only transaction and collects at most
// MaxRows rows.
func (d *DB) Execute(ctx context.Context, sql string) (*QueryResult, error) {
	sql = Normalize(sql)
	if sql == "" {
		return nil, ErrEmptyQuery
	}

	start := time.Now()
	result := &QueryResult{}
	err := d.readOnly(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, sql)
		if err != nil {
			return err
		}
		defer rows.Close()

		for _, fd := range rows.FieldDescriptions() {
			result.Columns = append(result.Columns, fd.Name)
		}
		for rows.Next() {
			if result.RowCount == MaxRows {
				result.Truncated = true
				break
			}
			values, err := rows.Values()
			if err != nil {
				return err
			}
			row := make([]string, len(values))
			for i, v := range values {
				row[i] = FormatValue(v)
			}
			result.Rows = append(result.Rows, row)
			result.RowCount++
		}
		return rows.Err()
	})
	if err != nil {
		applog.Error("execute failed: %v", err)
		return nil, err
	}
	result.Elapsed = time.Since(start)
	applog.Event("DB", "executed query %s", result.Status())
	return result, nil
}

// Explain returns the text plan for sql. With analyze the statement is
// actually run, still inside a read-only transaction.
func (d *DB) Explain(ctx context.Context, sql string, analyze bool) (*ExplainResult, error) {
	sql = Normalize(sql)
	if sql == "" {
		return nil, ErrEmptyQuery
	}
	prefix := "EXPLAIN "
	if analyze {
		prefix = "EXPLAIN (ANALYZE, BUFFERS) "
	}

	result := &ExplainResult{}
	err := d.readOnly(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, prefix+sql)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var line string
			if err := rows.Scan(&line); err != nil {
				return err
			}
			result.Lines = append(result.Lines, line)
		}
		return rows.Err()
	})
	if err != nil {
		applog.Error("explain failed: %v", err)
		return nil, err
	}
	return result, nil
}

func (d *DB) readOnly(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := d.Pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	return fn(tx)
}

// FormatValue renders a scanned column value for display.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format("2006-01-02 15:04:05")
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
