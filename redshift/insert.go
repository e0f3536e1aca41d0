package redshift

import (
	"context"

	"github.com/datawarp/bulkload/database"
	"github.com/datawarp/bulkload/tabular"
	log "github.com/sirupsen/logrus"
)

// InsertOptions controls InsertTabular.
type InsertOptions struct {
	// Columns restricts and orders the inserted columns; all data columns
	// when empty.
	Columns []string
	// Create the target table first.
	Create bool
	// Metadata supplies column types for Create; inferred from the data when
	// nil.
	Metadata []tabular.ColumnType
	// BatchSize is rows per INSERT statement, tabular.DefaultBatchSize when
	// zero.
	BatchSize int
}

// InsertTabular writes in-memory tabular data to a table in batched INSERT
// statements. It is the fallback for data too small or too irregular to be
// worth staging through S3.
func (r *Redshift) InsertTabular(ctx context.Context, table string, data tabular.Data, opts InsertOptions) error {
	if !r.DB.Connected() {
		return &database.DBError{Msg: "no Redshift connection object is present"}
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
		if err := r.DB.Execute(ctx, tabular.BuildCreateTable(table, meta, false)); err != nil {
			return err
		}
	}

	log.WithField("rows", data.NumRows()).Info("inserting records")
	for _, stmt := range tabular.BuildInsertBatches(table, data, opts.BatchSize) {
		if err := r.DB.Execute(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
