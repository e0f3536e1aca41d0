package snowflake

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/datawarp/bulkload/database"
	"github.com/google/uuid"
)

// PutOptions controls PutInternal. DefaultPutOptions matches Snowflake's own
// defaults for PUT.
type PutOptions struct {
	// Parallel is the number of upload threads; 4 when below 1.
	Parallel int
	// AutoCompress gzips the file on the way into the stage.
	AutoCompress bool
	// Overwrite replaces an existing staged file of the same name.
	Overwrite bool
}

var DefaultPutOptions = PutOptions{Parallel: 4, AutoCompress: true, Overwrite: true}

// GetOptions controls GetInternal.
type GetOptions struct {
	// Parallel is the number of download threads; 10 when below 1.
	Parallel int
}

// PutInternal uploads a local file to an internal stage with PUT. When stage
// is empty a fresh folder under the user stage is generated, so repeated
// uploads never collide. The stage actually used is returned.
func (sf *Snowflake) PutInternal(ctx context.Context, localPath, stage string, opts PutOptions) (string, error) {
	if !sf.DB.Connected() {
		return "", &database.DBError{Msg: "no Snowflake connection object is present"}
	}

	if stage == "" {
		stage = "@~/" + uuid.NewString()
	}
	parallel := opts.Parallel
	if parallel < 1 {
		parallel = 4
	}

	uri, err := fileURI(localPath)
	if err != nil {
		return "", err
	}

	stmt := fmt.Sprintf("PUT '%s' %s PARALLEL=%d AUTO_COMPRESS=%s OVERWRITE=%s",
		uri, stage, parallel, sqlBool(opts.AutoCompress), sqlBool(opts.Overwrite))
	if err := sf.DB.Execute(ctx, stmt); err != nil {
		return "", &database.DBError{Msg: "error running PUT on Snowflake", Err: err}
	}
	return stage, nil
}

// GetInternal downloads the files under an internal stage into a local
// directory with GET; the current working directory when localDir is empty.
func (sf *Snowflake) GetInternal(ctx context.Context, stage, localDir string, opts GetOptions) error {
	if !sf.DB.Connected() {
		return &database.DBError{Msg: "no Snowflake connection object is present"}
	}

	if localDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		localDir = wd
	}
	parallel := opts.Parallel
	if parallel < 1 {
		parallel = 10
	}

	uri, err := fileURI(localDir)
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf("GET %s '%s' PARALLEL=%d", stage, uri, parallel)
	if err := sf.DB.Execute(ctx, stmt); err != nil {
		return &database.DBError{Msg: "error running GET on Snowflake", Err: err}
	}
	return nil
}

func fileURI(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(abs), nil
}

func sqlBool(b bool) string {
	return strings.ToUpper(fmt.Sprintf("%t", b))
}
