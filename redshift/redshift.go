// Package redshift implements bulk data movement between local files, S3 and
// Amazon Redshift: COPY loads staged through S3, and UNLOAD exports pulled
// back down and reassembled locally.
package redshift

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/datawarp/bulkload/blob"
	"github.com/datawarp/bulkload/database"
	log "github.com/sirupsen/logrus"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ObjectStore is the object storage capability the pipelines consume.
// *blob.Store implements it.
type ObjectStore interface {
	UploadList(ctx context.Context, paths []string, bucket, folder string) ([]string, error)
	DownloadList(ctx context.Context, ids []string, localDir string) ([]string, error)
	DeleteList(ctx context.Context, ids []string) error
	CredentialsString(ctx context.Context) (string, error)
}

// Redshift pairs a database connection with an object store. Store is nil
// when S3 credentials could not be resolved at construction; connection-only
// usage keeps working but the transfer pipelines fail.
type Redshift struct {
	DB    *database.Database
	Store ObjectStore
}

// Config gathers the two halves of a Redshift connector.
type Config struct {
	Connection database.Config
	S3         blob.Config
}

var errStoreDisabled = errors.New("S3 functionality is disabled")

// New builds a Redshift connector. TLS to the cluster is always required. A
// missing set of S3 credentials is demoted to a warning with object storage
// disabled; any other S3 initialization failure is fatal.
func New(ctx context.Context, cfg Config) (*Redshift, error) {
	if err := cfg.Connection.Validate(); err != nil {
		return nil, err
	}

	r := &Redshift{
		DB: database.New("pgx", cfg.Connection.URI("require")),
	}

	store, err := blob.NewStore(ctx, cfg.S3)
	if err != nil {
		var credErr *blob.CredentialsError
		if errors.As(err, &credErr) {
			log.Warn("S3 credentials were not found, S3 functionality is disabled")
			return r, nil
		}
		return nil, err
	}
	r.Store = store
	return r, nil
}

// Connect opens the connection to the cluster.
func (r *Redshift) Connect(ctx context.Context) error {
	return r.DB.Connect(ctx)
}

// Close terminates the connection.
func (r *Redshift) Close() error {
	return r.DB.Close()
}

// Copy loads files from an S3 path into a table. Unless the options include
// PARQUET, the default options DATEFORMAT 'auto', COMPUPDATE ON and
// TRUNCATECOLUMNS are appended for any not already present. A non-empty
// delim is prepended as a DELIMITER option; pass "" for non-delimited
// formats.
func (r *Redshift) Copy(ctx context.Context, table, s3path, delim string, copyOptions []string) error {
	if !r.DB.Connected() {
		return &database.DBError{Msg: "no Redshift connection object is present"}
	}
	if r.Store == nil {
		return errStoreDisabled
	}

	opts := slices.Clone(copyOptions)
	if !slices.Contains(opts, "PARQUET") {
		opts = addDefaultCopyOptions(opts)
	}
	if delim != "" {
		opts = append([]string{fmt.Sprintf("DELIMITER '%s'", delim)}, opts...)
	}

	creds, err := r.Store.CredentialsString(ctx)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf("COPY %s FROM '%s' CREDENTIALS '%s' %s;", table, s3path, creds, combineOptions(opts))
	if err := r.DB.Execute(ctx, stmt); err != nil {
		return &database.DBError{Msg: "error running COPY on Redshift", Err: err}
	}
	return nil
}

// Unload exports a query's result set to an S3 path.
func (r *Redshift) Unload(ctx context.Context, query, s3path string, unloadOptions []string) error {
	if !r.DB.Connected() {
		return &database.DBError{Msg: "no Redshift connection object is present"}
	}
	if r.Store == nil {
		return errStoreDisabled
	}

	creds, err := r.Store.CredentialsString(ctx)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf("UNLOAD ('%s')\nTO '%s'\nCREDENTIALS '%s'\n%s;",
		strings.ReplaceAll(query, "'", `\'`), s3path, creds, combineOptions(unloadOptions))
	if err := r.DB.Execute(ctx, stmt); err != nil {
		return &database.DBError{Msg: "error running UNLOAD on Redshift", Err: err}
	}
	return nil
}

// unloadedKeys queries Redshift's own log for the objects the last UNLOAD in
// this session produced. Order is whatever the log returns, lexical by path.
func (r *Redshift) unloadedKeys(ctx context.Context) ([]string, error) {
	log.Info("getting list of unloaded files")
	return r.DB.QueryColumn(ctx,
		"SELECT path FROM stl_unload_log WHERE query = pg_last_query_id() ORDER BY path")
}
