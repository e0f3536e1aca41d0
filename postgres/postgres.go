// Package postgres implements a plain PostgreSQL connector. There is no bulk
// staging path; data comes and goes through SQL alone, with batched INSERTs
// as the write path.
package postgres

import (
	"context"

	"github.com/datawarp/bulkload/database"
	"github.com/datawarp/bulkload/tabular"
	log "github.com/sirupsen/logrus"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres wraps a database connection. TLS is attempted but not required.
type Postgres struct {
	DB *database.Database
}

// New builds a PostgreSQL connector from connection parameters.
func New(cfg database.Config) (*Postgres, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Postgres{DB: database.New("pgx", cfg.URI("prefer"))}, nil
}

// Connect opens the connection.
func (p *Postgres) Connect(ctx context.Context) error {
	return p.DB.Connect(ctx)
}

// Close terminates the connection.
func (p *Postgres) Close() error {
	return p.DB.Close()
}

// InsertOptions controls InsertTabular.
type InsertOptions struct {
	// Columns restricts and orders the inserted columns; all data columns
	// when empty.
	Columns []string
	// Create the target table first, with IF NOT EXISTS.
	Create bool
	// Metadata supplies column types for Create; inferred from the data when
	// nil.
	Metadata []tabular.ColumnType
	// BatchSize is rows per INSERT statement, tabular.DefaultBatchSize when
	// zero.
	BatchSize int
}

// InsertTabular writes in-memory tabular data to a table in batched INSERT
// statements.
func (p *Postgres) InsertTabular(ctx context.Context, table string, data tabular.Data, opts InsertOptions) error {
	if !p.DB.Connected() {
		return &database.DBError{Msg: "no PostgreSQL connection object is present"}
	}

	if len(opts.Columns) > 0 {
		selected, err := tabular.Select(data, opts.Columns)
		if err != nil {
			return err
		}
		data = selected
	}

	if !opts.Create && opts.Metadata != nil {
		log.Warn("metadata will not be used because create is not set")
	}

	if opts.Create {
		meta := opts.Metadata
		if meta == nil {
			log.Info("metadata is missing, inferring from data")
			var err error
			if meta, err = tabular.InferColumnTypes(data, "redshift"); err != nil {
				return err
			}
		}
		if err := p.DB.Execute(ctx, tabular.BuildCreateTable(table, meta, true)); err != nil {
			return err
		}
	}

	log.WithField("rows", data.NumRows()).Info("inserting records")
	for _, stmt := range tabular.BuildInsertBatches(table, data, opts.BatchSize) {
		if err := p.DB.Execute(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
