package snowflake

import (
	"context"
	"fmt"
	"slices"

	"github.com/datawarp/bulkload/blob"
	"github.com/datawarp/bulkload/database"
	"github.com/datawarp/bulkload/stagefile"
)

// UnloadOptions controls one UnloadAndCopy call.
type UnloadOptions struct {
	// Query is the SELECT whose result set is unloaded.
	Query string
	// Bucket receives the unloaded objects, under Folder when set.
	Bucket string
	Folder string
	// RawUnloadPath is the local directory the unloaded objects are
	// downloaded into; the current working directory when empty.
	RawUnloadPath string
	// ExportPath, when set, receives a header line plus every downloaded
	// file concatenated in manifest order. The downloaded part files are
	// deleted as they are merged.
	ExportPath string
	// Delimiter for the unload and the header line. When empty no DELIMITER
	// option is emitted.
	Delimiter string
	// DeleteAfter removes the unloaded objects from the bucket at the end.
	DeleteAfter bool
	// ParallelOff unloads as a single object.
	ParallelOff bool
	// UnloadOptions are appended to the unload statement.
	UnloadOptions []string
}

// UnloadAndCopy exports a query to S3, downloads the generated objects, and
// optionally merges them into a single delimited file with a header line.
// The set of generated objects comes from the warehouse's unload log; an
// empty manifest is a failure, not an empty result. Download still happens
// without an ExportPath, supporting download-only use.
func (sf *Snowflake) UnloadAndCopy(ctx context.Context, opts UnloadOptions) error {
	if sf.Store == nil {
		return errStoreDisabled
	}

	s3path := blob.UnloadPath(opts.Bucket, opts.Folder)

	unloadOptions := slices.Clone(opts.UnloadOptions)
	if opts.Delimiter != "" {
		unloadOptions = append(unloadOptions, fmt.Sprintf("DELIMITER '%s'", opts.Delimiter))
	}
	if opts.ParallelOff {
		unloadOptions = append(unloadOptions, "PARALLEL OFF")
	}

	if err := sf.Unload(ctx, opts.Query, s3path, unloadOptions); err != nil {
		return err
	}

	manifest, err := sf.unloadedKeys(ctx)
	if err != nil {
		return err
	}
	if len(manifest) == 0 {
		return &database.DBError{Msg: "no files generated from unload"}
	}

	columns, err := sf.DB.ColumnNames(ctx, opts.Query)
	if err != nil {
		return err
	}
	if len(columns) == 0 {
		return &database.DBError{Msg: "unable to retrieve column names from exported data"}
	}

	locals, err := sf.Store.DownloadList(ctx, manifest, opts.RawUnloadPath)
	if err != nil {
		return err
	}

	if opts.ExportPath != "" {
		if err := stagefile.WriteRows([][]string{columns}, opts.Delimiter, opts.ExportPath); err != nil {
			return err
		}
		if err := stagefile.Concatenate(locals, opts.ExportPath, true); err != nil {
			return err
		}
	}

	if opts.DeleteAfter {
		return sf.Store.DeleteList(ctx, manifest)
	}
	return nil
}
