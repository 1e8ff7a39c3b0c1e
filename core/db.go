package core

import (
	"context"
	"database/sql"
	"strings"
)

type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// AllowedOrderings drops the orderings whose field is not in `fields`.
// Ordering fields come from query strings and end up in raw SQL.
func AllowedOrderings(ords []DBOrdering, fields ...string) []DBOrdering {
	if len(ords) == 0 {
		return nil
	}
	allowed := make(map[string]bool, len(fields))
	for _, f := range fields {
		allowed[f] = true
	}
	cleaned := make([]DBOrdering, 0, len(ords))
	for _, ord := range ords {
		if allowed[ord.Field] {
			cleaned = append(cleaned, ord)
		}
	}
	return cleaned
}

// OrderBy renders orderings as an ORDER BY clause, or `fallback` when there are none.
func OrderBy(ords []DBOrdering, fallback string) string {
	if len(ords) == 0 {
		if fallback == "" {
			return ""
		}
		return " ORDER BY " + fallback
	}
	parts := make([]string, 0, len(ords))
	for _, ord := range ords {
		parts = append(parts, ord.String())
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
