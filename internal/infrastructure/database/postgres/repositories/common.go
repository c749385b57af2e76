// Package repositories implements the domain repositories on PostgreSQL.
package repositories

import (
	"context"
	"database/sql"
)

// queryExecutor is satisfied by both *sql.DB and *sql.Tx so a repository can
// run the same statements inside and outside a transaction.
type queryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

var (
	_ queryExecutor = (*sql.DB)(nil)
	_ queryExecutor = (*sql.Tx)(nil)
)

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

//Personal.AI order the ending
