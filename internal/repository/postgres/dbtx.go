package postgres

import (
	"context"
	"database/sql"

	"tradeledger/pkg/errors"
)

// DBTX is a common interface for *sqlx.DB and *sqlx.Tx
// This allows repositories to work with both regular connections and
// transactions, enabling full transactional isolation in tests
type DBTX interface {
	// Core query methods
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row

	// sqlx extended methods
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// storeErr maps driver errors to the engine's taxonomy: missing rows
// become the given not-found sentinel, anything else surfaces as a
// transport failure the engine never retries.
func storeErr(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return errors.Wrap(errors.ErrTransport, err.Error())
}
