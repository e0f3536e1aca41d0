package redshift

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/datawarp/bulkload/blob"
	"github.com/datawarp/bulkload/database"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory ObjectStore capturing every interaction.
type fakeStore struct {
	uploads  []string          // derived bucket/key identifiers, in order
	basename []string          // basenames of the uploaded local files
	objects  map[string][]byte // id -> content served by DownloadList
	deleted  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: map[string][]byte{}}
}

func (f *fakeStore) UploadList(_ context.Context, paths []string, bucket, folder string) ([]string, error) {
	var ids []string
	for _, p := range paths {
		key := filepath.Base(p)
		if folder != "" {
			key = folder + "/" + key
		}
		f.basename = append(f.basename, filepath.Base(p))
		ids = append(ids, bucket+"/"+key)
	}
	f.uploads = append(f.uploads, ids...)
	return ids, nil
}

func (f *fakeStore) DownloadList(_ context.Context, ids []string, localDir string) ([]string, error) {
	var out []string
	for _, id := range ids {
		bucket, key := blob.ParsePath(id)
		content, ok := f.objects[bucket+"/"+key]
		if !ok {
			return nil, fmt.Errorf("no such object: %s", id)
		}
		local := filepath.Join(localDir, path.Base(key))
		if err := os.WriteFile(local, content, 0644); err != nil {
			return nil, err
		}
		out = append(out, local)
	}
	return out, nil
}

func (f *fakeStore) DeleteList(_ context.Context, ids []string) error {
	f.deleted = append(f.deleted, ids...)
	return nil
}

func (f *fakeStore) CredentialsString(context.Context) (string, error) {
	return "aws_access_key_id=AKIATEST;aws_secret_access_key=secret", nil
}

func newTestRedshift(t *testing.T) (*Redshift, sqlmock.Sqlmock, *fakeStore) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := newFakeStore()
	return &Redshift{DB: database.NewFromDB(db), Store: store}, mock, store
}

func TestLoadAndCopySplitCompress(t *testing.T) {
	r, mock, store := newTestRedshift(t)

	dir := t.TempDir()
	local := filepath.Join(dir, "data.txt")
	var lines strings.Builder
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&lines, "row-%d\n", i)
	}
	require.NoError(t, os.WriteFile(local, []byte(lines.String()), 0644))

	mock.ExpectExec(
		regexp.QuoteMeta("COPY loads.data FROM 's3://test-bucket/data' CREDENTIALS "+
			"'aws_access_key_id=AKIATEST;aws_secret_access_key=secret' "+
			"DELIMITER '|' GZIP DATEFORMAT 'auto' COMPUPDATE ON TRUNCATECOLUMNS;"),
	).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, r.LoadAndCopy(context.Background(), LoadOptions{
		LocalFile: local,
		Bucket:    "test-bucket",
		Table:     "loads.data",
		Delimiter: "|",
		Splits:    2,
		Compress:  true,
	}))

	require.NoError(t, mock.ExpectationsWereMet())
	require.Equal(t, []string{"data.txt.0.gz", "data.txt.1.gz"}, store.basename)
	require.Equal(t, []string{"test-bucket/data.txt.0.gz", "test-bucket/data.txt.1.gz"}, store.uploads)
	require.Empty(t, store.deleted)

	// The split part files were compressed in place, removing the originals.
	for _, name := range []string{"data.txt.0", "data.txt.1"} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.True(t, os.IsNotExist(err))
	}
}

func TestLoadAndCopyIgnoreHeaderWithSplits(t *testing.T) {
	r, mock, store := newTestRedshift(t)

	dir := t.TempDir()
	local := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(local,
		[]byte("h1,h2\na,1\nb,2\nc,3\nd,4\ne,5\nf,6\n"), 0644))

	copySQL := regexp.QuoteMeta("COPY t FROM 's3://b/data' CREDENTIALS")
	mock.ExpectExec(copySQL).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, r.LoadAndCopy(context.Background(), LoadOptions{
		LocalFile:   local,
		Bucket:      "b",
		Table:       "t",
		Delimiter:   ",",
		CopyOptions: []string{"IGNOREHEADER as 1"},
		Splits:      3,
	}))
	require.NoError(t, mock.ExpectationsWereMet())
	require.Len(t, store.uploads, 3)

	// The header line was stripped during the split: six data rows across
	// three parts, two each, and no part starts with the header.
	for i, id := range store.uploads {
		require.Equal(t, fmt.Sprintf("b/data.csv.%d", i), id)
		b, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("data.csv.%d", i)))
		require.NoError(t, err)
		require.Len(t, strings.Split(strings.TrimSuffix(string(b), "\n"), "\n"), 2)
		require.NotContains(t, string(b), "h1,h2")
	}
}

func TestLoadAndCopySingleFileDeleteAfter(t *testing.T) {
	r, mock, store := newTestRedshift(t)

	dir := t.TempDir()
	local := filepath.Join(dir, "one.csv")
	require.NoError(t, os.WriteFile(local, []byte("a,1\n"), 0644))

	mock.ExpectExec(regexp.QuoteMeta("COPY t FROM 's3://b/stage/one' ")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, r.LoadAndCopy(context.Background(), LoadOptions{
		LocalFile:   local,
		Bucket:      "b",
		Table:       "t",
		Delimiter:   ",",
		Folder:      "stage",
		DeleteAfter: true,
	}))
	require.NoError(t, mock.ExpectationsWereMet())
	require.Equal(t, []string{"b/stage/one.csv"}, store.deleted)

	// splits=1 leaves the local file untouched.
	_, err := os.Stat(local)
	require.NoError(t, err)
}

func TestLoadAndCopyDirectory(t *testing.T) {
	r, mock, store := newTestRedshift(t)

	dir := t.TempDir()
	for _, name := range []string{"p1.parquet", "p2.parquet"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("PAR1"), 0644))
	}

	mock.ExpectExec(regexp.QuoteMeta(
		"COPY t FROM 's3://b/stage' CREDENTIALS "+
			"'aws_access_key_id=AKIATEST;aws_secret_access_key=secret' PARQUET;",
	)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, r.LoadAndCopy(context.Background(), LoadOptions{
		LocalFile:   dir,
		Bucket:      "b",
		Table:       "t",
		Folder:      "stage",
		CopyOptions: []string{"PARQUET"},
	}))
	require.NoError(t, mock.ExpectationsWereMet())

	// A directory uploads every contained file as-is; the COPY path is the
	// bucket/folder prefix, not a file-derived one.
	require.Equal(t, []string{"b/stage/p1.parquet", "b/stage/p2.parquet"}, store.uploads)
}

func TestLoadAndCopyDirectoryNoFolder(t *testing.T) {
	r, mock, store := newTestRedshift(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p1.parquet"), []byte("PAR1"), 0644))

	mock.ExpectExec(regexp.QuoteMeta("COPY t FROM 's3://b' CREDENTIALS")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, r.LoadAndCopy(context.Background(), LoadOptions{
		LocalFile:   dir,
		Bucket:      "b",
		Table:       "t",
		CopyOptions: []string{"PARQUET"},
	}))
	require.NoError(t, mock.ExpectationsWereMet())
	require.Equal(t, []string{"b/p1.parquet"}, store.uploads)
}

func TestLoadAndCopyStoreDisabled(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := &Redshift{DB: database.NewFromDB(db)}
	err = r.LoadAndCopy(context.Background(), LoadOptions{LocalFile: "x", Bucket: "b", Table: "t"})
	require.ErrorIs(t, err, errStoreDisabled)
}

func TestUnloadAndCopy(t *testing.T) {
	r, mock, store := newTestRedshift(t)

	store.objects["bucket/export/0000_part_00"] = []byte("a,1\nb,2\n")
	store.objects["bucket/export/0001_part_00"] = []byte("c,3\n")

	mock.ExpectExec(regexp.QuoteMeta("UNLOAD ('SELECT * FROM events')\nTO 's3://bucket/export'")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT path FROM stl_unload_log").
		WillReturnRows(sqlmock.NewRows([]string{"path"}).
			AddRow("s3://bucket/export/0000_part_00").
			AddRow("s3://bucket/export/0001_part_00"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM (SELECT * FROM events) WHERE 1 = 0")).
		WillReturnRows(sqlmock.NewRows([]string{"name", "value"}))

	dir := t.TempDir()
	export := filepath.Join(dir, "export.csv")

	require.NoError(t, r.UnloadAndCopy(context.Background(), UnloadOptions{
		Query:         "SELECT * FROM events",
		Bucket:        "bucket",
		Folder:        "export",
		RawUnloadPath: dir,
		ExportPath:    export,
		Delimiter:     ",",
		DeleteAfter:   true,
	}))
	require.NoError(t, mock.ExpectationsWereMet())

	got, err := os.ReadFile(export)
	require.NoError(t, err)
	require.Equal(t, "name,value\na,1\nb,2\nc,3\n", string(got))

	// Downloaded part files were removed as they were merged, and the
	// bucket-side objects deleted afterwards.
	for _, name := range []string{"0000_part_00", "0001_part_00"} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.True(t, os.IsNotExist(err))
	}
	require.Equal(t, []string{
		"s3://bucket/export/0000_part_00",
		"s3://bucket/export/0001_part_00",
	}, store.deleted)
}

func TestUnloadAndCopyDownloadOnly(t *testing.T) {
	r, mock, store := newTestRedshift(t)

	store.objects["bucket/export/0000_part_00"] = []byte("a,1\n")

	mock.ExpectExec("UNLOAD").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT path FROM stl_unload_log").
		WillReturnRows(sqlmock.NewRows([]string{"path"}).
			AddRow("s3://bucket/export/0000_part_00"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM (SELECT 1) WHERE 1 = 0")).
		WillReturnRows(sqlmock.NewRows([]string{"one"}))

	dir := t.TempDir()
	require.NoError(t, r.UnloadAndCopy(context.Background(), UnloadOptions{
		Query:         "SELECT 1",
		Bucket:        "bucket",
		Folder:        "export",
		RawUnloadPath: dir,
	}))
	require.NoError(t, mock.ExpectationsWereMet())

	// Without an ExportPath the part files still land locally, unmerged.
	got, err := os.ReadFile(filepath.Join(dir, "0000_part_00"))
	require.NoError(t, err)
	require.Equal(t, "a,1\n", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Empty(t, store.deleted)
}

func TestUnloadAndCopyEmptyManifest(t *testing.T) {
	r, mock, store := newTestRedshift(t)

	mock.ExpectExec("UNLOAD").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT path FROM stl_unload_log").
		WillReturnRows(sqlmock.NewRows([]string{"path"}))

	err := r.UnloadAndCopy(context.Background(), UnloadOptions{
		Query:  "SELECT 1",
		Bucket: "bucket",
	})

	var dbErr *database.DBError
	require.True(t, errors.As(err, &dbErr))
	require.Equal(t, "no files generated from unload", dbErr.Msg)
	require.Empty(t, store.deleted)
}

func TestCopyEscapesNothingButAddsDefaults(t *testing.T) {
	r, mock, _ := newTestRedshift(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"COPY t FROM 's3://b/k' CREDENTIALS 'aws_access_key_id=AKIATEST;aws_secret_access_key=secret' PARQUET;",
	)).WillReturnResult(sqlmock.NewResult(0, 0))

	// PARQUET suppresses the delimited-load defaults entirely.
	require.NoError(t, r.Copy(context.Background(), "t", "s3://b/k", "", []string{"PARQUET"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyNotConnected(t *testing.T) {
	r := &Redshift{DB: database.New("pgx", "postgres://example"), Store: newFakeStore()}

	err := r.Copy(context.Background(), "t", "s3://b/k", "|", nil)
	var dbErr *database.DBError
	require.True(t, errors.As(err, &dbErr))
}
