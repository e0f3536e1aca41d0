// Package snowflake implements bulk data movement between local files, S3 and
// Snowflake: COPY INTO loads staged through S3 or an internal stage, exports
// pulled back down and reassembled locally, and PUT/GET transfers against
// internal stages.
package snowflake

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/datawarp/bulkload/blob"
	"github.com/datawarp/bulkload/database"
	log "github.com/sirupsen/logrus"

	_ "github.com/snowflakedb/gosnowflake"
)

// ObjectStore is the object storage capability the external-stage pipelines
// consume. *blob.Store implements it.
type ObjectStore interface {
	UploadList(ctx context.Context, paths []string, bucket, folder string) ([]string, error)
	DownloadList(ctx context.Context, ids []string, localDir string) ([]string, error)
	DeleteList(ctx context.Context, ids []string) error
	CredentialsString(ctx context.Context) (string, error)
}

// Snowflake pairs a database connection with an object store. Store is nil
// when S3 credentials could not be resolved at construction; connection-only
// usage, including internal-stage PUT and GET, keeps working but the
// external-stage pipelines fail.
type Snowflake struct {
	DB    *database.Database
	Store ObjectStore

	warehouse string
	database  string
}

// Config gathers the two halves of a Snowflake connector.
type Config struct {
	Connection ConnectionConfig
	S3         blob.Config
}

var errStoreDisabled = errors.New("S3 functionality is disabled")

// New builds a Snowflake connector. A missing set of S3 credentials is
// demoted to a warning with object storage disabled; any other S3
// initialization failure is fatal.
func New(ctx context.Context, cfg Config) (*Snowflake, error) {
	dsn, err := cfg.Connection.DSN()
	if err != nil {
		return nil, err
	}

	sf := &Snowflake{
		DB:        database.New("snowflake", dsn),
		warehouse: cfg.Connection.Warehouse,
		database:  cfg.Connection.Database,
	}

	store, err := blob.NewStore(ctx, cfg.S3)
	if err != nil {
		var credErr *blob.CredentialsError
		if errors.As(err, &credErr) {
			log.Warn("S3 credentials were not found, S3 functionality is disabled")
			return sf, nil
		}
		return nil, err
	}
	sf.Store = store
	return sf, nil
}

// Connect opens the connection and activates the configured warehouse and
// database, when set.
func (sf *Snowflake) Connect(ctx context.Context) error {
	if err := sf.DB.Connect(ctx); err != nil {
		return err
	}

	if sf.warehouse != "" {
		if err := sf.DB.Execute(ctx, "USE WAREHOUSE "+sf.warehouse); err != nil {
			return err
		}
	}
	if sf.database != "" {
		if err := sf.DB.Execute(ctx, "USE DATABASE "+sf.database); err != nil {
			return err
		}
	}
	return nil
}

// Close terminates the connection.
func (sf *Snowflake) Close() error {
	return sf.DB.Close()
}

// Copy loads CSV files from a stage into a table with COPY INTO. The stage
// may be internal ("@mystage/...") or an external location. table must be
// fully qualified.
func (sf *Snowflake) Copy(ctx context.Context, table, stage, delim string, header bool, formatOptions, copyOptions []string) error {
	if !sf.DB.Connected() {
		return &database.DBError{Msg: "no Snowflake connection object is present"}
	}

	skipHeader := 0
	if header {
		skipHeader = 1
	}

	stmt := fmt.Sprintf("COPY INTO %s FROM '%s' FILE_FORMAT = (TYPE='csv' FIELD_DELIMITER='%s' SKIP_HEADER=%d %s) %s",
		table, stage, delim, skipHeader, combineOptions(formatOptions), combineOptions(copyOptions))
	if err := sf.DB.Execute(ctx, stmt); err != nil {
		return &database.DBError{Msg: "error running COPY on Snowflake", Err: err}
	}
	return nil
}

// Unload exports a query's result set to an S3 path.
func (sf *Snowflake) Unload(ctx context.Context, query, s3path string, unloadOptions []string) error {
	if !sf.DB.Connected() {
		return &database.DBError{Msg: "no Snowflake connection object is present"}
	}
	if sf.Store == nil {
		return errStoreDisabled
	}

	creds, err := sf.Store.CredentialsString(ctx)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf("UNLOAD ('%s')\nTO '%s'\nCREDENTIALS '%s'\n%s;",
		strings.ReplaceAll(query, "'", `\'`), s3path, creds, combineOptions(unloadOptions))
	if err := sf.DB.Execute(ctx, stmt); err != nil {
		return &database.DBError{Msg: "error running UNLOAD on Snowflake", Err: err}
	}
	return nil
}

// unloadedKeys queries the warehouse log for the objects the last unload in
// this session produced. Order is whatever the log returns, lexical by path.
func (sf *Snowflake) unloadedKeys(ctx context.Context) ([]string, error) {
	log.Info("getting list of unloaded files")
	return sf.DB.QueryColumn(ctx,
		"SELECT path FROM stl_unload_log WHERE query = pg_last_query_id() ORDER BY path")
}

func combineOptions(options []string) string {
	return strings.Join(options, " ")
}
