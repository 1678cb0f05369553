package repository

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is the slice of database/sql shared by *sql.DB and *sql.Tx. Every
// repository runs its statements through it so a service can point a set of
// repositories at one transaction and get a single atomic unit.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const dateLayout = time.DateOnly

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}
