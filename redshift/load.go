package redshift

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/datawarp/bulkload/stagefile"
	log "github.com/sirupsen/logrus"
)

// LoadOptions controls one LoadAndCopy call. The zero value of each field is
// its default: no splitting, no compression, no folder prefix, uploaded
// objects retained.
type LoadOptions struct {
	// LocalFile is the file to load, or a directory whose contained files
	// are all uploaded as-is for non-delimited formats like parquet.
	LocalFile string
	// Bucket receives the staged objects.
	Bucket string
	// Table is the target table.
	Table string
	// Delimiter for the COPY command; empty for non-delimited files.
	Delimiter string
	// CopyOptions are appended to the COPY statement. Defaults are added per
	// Copy. An IGNOREHEADER entry here drives header skipping during splits.
	CopyOptions []string
	// DeleteAfter removes the staged objects once the COPY succeeds.
	DeleteAfter bool
	// Splits is the number of part files to load in parallel; values below 1
	// mean no splitting.
	Splits int
	// Compress gzips every part before upload.
	Compress bool
	// Folder is an optional key prefix within the bucket.
	Folder string
}

// LoadAndCopy stages a local file to S3 and COPYs it into a table. The file
// is optionally split into parts and gzip-compressed; all staged parts are
// addressed by a single COPY path derived from the first uploaded key.
//
// When the file is split, header rows named by an IGNOREHEADER copy option
// are removed during the split itself, and the option is dropped from the
// COPY statement: every part except the first has no header, so leaving it
// in would discard a data row from each of them.
//
// There is no rollback: objects uploaded before a failing step stay in the
// bucket.
func (r *Redshift) LoadAndCopy(ctx context.Context, opts LoadOptions) error {
	if r.Store == nil {
		return errStoreDisabled
	}

	copyOptions := slices.Clone(opts.CopyOptions)
	splits := opts.Splits
	if splits < 1 {
		splits = 1
	}

	ignoreHeader, err := ignoreHeaderCount(copyOptions)
	if err != nil {
		return err
	}

	fi, statErr := os.Stat(opts.LocalFile)
	isDir := statErr == nil && fi.IsDir()

	var uploadList []string
	if isDir {
		uploadList, err = filesInDir(opts.LocalFile)
	} else {
		uploadList, err = stagefile.Split(opts.LocalFile, opts.LocalFile, splits, ignoreHeader)
	}
	if err != nil {
		return err
	}

	if splits > 1 && ignoreHeader > 0 {
		log.Info("removing the IGNOREHEADER option as split is enabled")
		copyOptions = removeIgnoreHeader(copyOptions)
	}

	if opts.Compress {
		copyOptions = append(copyOptions, "GZIP")
		if uploadList, err = stagefile.CompressAll(uploadList); err != nil {
			return err
		}
	}

	ids, err := r.Store.UploadList(ctx, uploadList, opts.Bucket, opts.Folder)
	if err != nil {
		return err
	}

	var loadPath string
	if isDir {
		loadPath = opts.Bucket
		if opts.Folder != "" {
			loadPath = opts.Bucket + "/" + opts.Folder
		}
	} else {
		// Everything before the first extension separator of the first
		// uploaded identifier. Part keys differ only in their numeric and
		// compression suffixes, so this prefix addresses all of them.
		loadPath, _, _ = strings.Cut(ids[0], ".")
	}

	if err := r.Copy(ctx, opts.Table, "s3://"+loadPath, opts.Delimiter, copyOptions); err != nil {
		return err
	}

	if opts.DeleteAfter {
		return r.Store.DeleteList(ctx, ids)
	}
	return nil
}

func filesInDir(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
