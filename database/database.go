// Package database manages warehouse connections and SQL execution over
// database/sql. It carries no warehouse-specific behavior; the redshift,
// snowflake and postgres packages compose it with their own statement
// generation.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// DBError is returned for connection and SQL execution failures, and for
// warehouse-side lookups (unload manifests, column names) that come back
// empty when a value is required.
type DBError struct {
	Msg string
	Err error
}

func (e *DBError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *DBError) Unwrap() error { return e.Err }

// Database is a connection handle for one warehouse session. It is not safe
// for concurrent use.
type Database struct {
	driver string
	dsn    string
	db     *sql.DB
}

// New returns an unconnected handle for the given driver name and DSN.
// Connect must be called before executing SQL.
func New(driver, dsn string) *Database {
	return &Database{driver: driver, dsn: dsn}
}

// NewFromDB wraps an already-open *sql.DB. Used by tests and by callers that
// manage their own connection pool.
func NewFromDB(db *sql.DB) *Database {
	return &Database{db: db}
}

// Connect opens and verifies the connection. Handles wrapping an externally
// managed pool are already connected and Connect does nothing.
func (d *Database) Connect(ctx context.Context) error {
	if d.db != nil {
		return nil
	}
	db, err := sql.Open(d.driver, d.dsn)
	if err != nil {
		return &DBError{Msg: "error connecting to the database", Err: err}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return &DBError{Msg: "error connecting to the database", Err: err}
	}
	d.db = db
	log.WithField("driver", d.driver).Info("connection established")
	return nil
}

// Close terminates the connection. Closing an unconnected handle is a no-op.
func (d *Database) Close() error {
	if d.db == nil {
		log.Info("no connection to close")
		return nil
	}
	err := d.db.Close()
	d.db = nil
	if err != nil {
		return &DBError{Msg: "there is a problem disconnecting from the database", Err: err}
	}
	return nil
}

// Connected reports whether the handle has an open connection.
func (d *Database) Connected() bool {
	return d.db != nil
}

// Execute runs a statement against the connection.
func (d *Database) Execute(ctx context.Context, query string, args ...any) error {
	if !d.Connected() {
		return &DBError{Msg: "cannot execute SQL on a closed connection"}
	}

	log.WithField("sql", query).Info("running SQL")
	start := time.Now()
	if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
		log.WithError(err).Error("error running SQL query")
		return &DBError{Msg: "error running SQL query", Err: err}
	}
	log.WithField("elapsed", time.Since(start).Round(time.Second).String()).Info("SQL complete")
	return nil
}

// Query runs a query and returns its rows. The caller owns closing them.
func (d *Database) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if !d.Connected() {
		return nil, &DBError{Msg: "cannot execute SQL on a closed connection"}
	}

	log.WithField("sql", query).Info("running SQL")
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("error running SQL query")
		return nil, &DBError{Msg: "error running SQL query", Err: err}
	}
	return rows, nil
}

// QueryColumn runs a query and returns the first column of every row as
// trimmed strings.
func (d *Database) QueryColumn(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := d.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, &DBError{Msg: "error scanning query results", Err: err}
		}
		out = append(out, strings.TrimSpace(v))
	}
	if err := rows.Err(); err != nil {
		return nil, &DBError{Msg: "error scanning query results", Err: err}
	}
	return out, nil
}

// ColumnNames returns the lower-cased column names produced by query,
// without fetching any rows.
func (d *Database) ColumnNames(ctx context.Context, query string) ([]string, error) {
	rows, err := d.Query(ctx, fmt.Sprintf("SELECT * FROM (%s) WHERE 1 = 0", query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &DBError{Msg: "error retrieving column names", Err: err}
	}
	for i, c := range cols {
		cols[i] = strings.ToLower(strings.TrimSpace(c))
	}
	return cols, nil
}
