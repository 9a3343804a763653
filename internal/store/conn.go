package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// sqlite builds dialect-aware statements.
var sqlite = entsql.Dialect(dialect.SQLite)

// Conn runs statements against the database or an open transaction.
type Conn struct {
	eq entsql.ExecQuerier
}

// Result is the outcome of Execute. Rows is set for statements that
// return rows; RowCount is the number of rows returned or affected.
type Result struct {
	Rows     []map[string]any
	RowCount int64
}

// Execute runs a parameterized statement. Statements that produce rows
// (SELECT, WITH, or anything with RETURNING) are queried; everything else
// is executed and reports the affected row count.
func (c *Conn) Execute(ctx context.Context, query string, params ...any) (*Result, error) {
	if returnsRows(query) {
		rows, err := c.eq.QueryContext(ctx, query, params...)
		if err != nil {
			return nil, fmt.Errorf("execute query: %w", err)
		}
		defer rows.Close()

		out, err := scanMaps(rows)
		if err != nil {
			return nil, fmt.Errorf("execute query: %w", err)
		}
		return &Result{Rows: out, RowCount: int64(len(out))}, nil
	}

	res, err := c.eq.ExecContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("execute statement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	return &Result{RowCount: n}, nil
}

func returnsRows(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	return strings.HasPrefix(q, "SELECT") ||
		strings.HasPrefix(q, "WITH") ||
		strings.HasPrefix(q, "PRAGMA") ||
		strings.Contains(q, " RETURNING ")
}

func scanMaps(rows *sql.Rows) ([]map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = vals[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// exec runs a builder-produced statement and returns the affected rows.
func (c *Conn) exec(ctx context.Context, query string, args []any) (int64, error) {
	res, err := c.eq.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// queryInt runs a single-value query such as a COUNT.
func (c *Conn) queryInt(ctx context.Context, query string, args []any) (int, error) {
	rows, err := c.eq.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, err
		}
	}
	return n, rows.Err()
}

// timeLayout is fixed-width so stored timestamps order lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}
