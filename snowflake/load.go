package snowflake

import (
	"context"
	"slices"
	"strings"

	"github.com/datawarp/bulkload/stagefile"
)

// LoadOptions controls one LoadAndCopy call. The zero value of each field is
// its default: "|" delimiter, no header, no splitting, no compression, no
// folder prefix, uploaded objects retained.
type LoadOptions struct {
	// LocalFile is the file to load.
	LocalFile string
	// Bucket receives the staged objects.
	Bucket string
	// Table is the target table, fully qualified.
	Table string
	// Delimiter for the COPY INTO file format; defaults to "|".
	Delimiter string
	// Header marks the file as carrying a header row, skipped via SKIP_HEADER.
	Header bool
	// FormatOptions are added to the FILE_FORMAT clause.
	FormatOptions []string
	// CopyOptions are appended to the COPY INTO statement.
	CopyOptions []string
	// DeleteAfter removes the staged objects once the COPY succeeds.
	DeleteAfter bool
	// Splits is the number of part files to load in parallel; values below 1
	// mean no splitting.
	Splits int
	// Compress gzips every part before upload and adds COMPRESSION = GZIP to
	// the file format.
	Compress bool
	// Folder is an optional key prefix within the bucket.
	Folder string
}

// LoadAndCopy stages a local file to S3 and COPYs it into a table. The file
// is optionally split into parts and gzip-compressed; all staged parts are
// addressed by a single COPY path derived from the first uploaded key. Header
// rows are handled by Snowflake itself through SKIP_HEADER, so splitting
// never rewrites the file contents.
//
// There is no rollback: objects uploaded before a failing step stay in the
// bucket.
func (sf *Snowflake) LoadAndCopy(ctx context.Context, opts LoadOptions) error {
	if sf.Store == nil {
		return errStoreDisabled
	}

	formatOptions := slices.Clone(opts.FormatOptions)
	delim := opts.Delimiter
	if delim == "" {
		delim = "|"
	}
	splits := opts.Splits
	if splits < 1 {
		splits = 1
	}

	uploadList, err := stagefile.Split(opts.LocalFile, opts.LocalFile, splits, 0)
	if err != nil {
		return err
	}

	if opts.Compress {
		formatOptions = append(formatOptions, "COMPRESSION = GZIP")
		if uploadList, err = stagefile.CompressAll(uploadList); err != nil {
			return err
		}
	}

	ids, err := sf.Store.UploadList(ctx, uploadList, opts.Bucket, opts.Folder)
	if err != nil {
		return err
	}

	// Everything before the first extension separator of the first uploaded
	// identifier. Part keys differ only in their numeric and compression
	// suffixes, so this prefix addresses all of them.
	loadPath, _, _ := strings.Cut(ids[0], ".")

	if err := sf.Copy(ctx, opts.Table, "s3://"+loadPath, delim, opts.Header, formatOptions, opts.CopyOptions); err != nil {
		return err
	}

	if opts.DeleteAfter {
		return sf.Store.DeleteList(ctx, ids)
	}
	return nil
}
