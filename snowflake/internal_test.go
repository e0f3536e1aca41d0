package snowflake

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestPutInternal(t *testing.T) {
	sf, mock, _ := newTestSnowflake(t)

	local := filepath.Join(t.TempDir(), "data.csv")
	mock.ExpectExec("PUT 'file://.+/data\\.csv' @mystage PARALLEL=4 AUTO_COMPRESS=TRUE OVERWRITE=TRUE").
		WillReturnResult(sqlmock.NewResult(0, 0))

	stage, err := sf.PutInternal(context.Background(), local, "@mystage", DefaultPutOptions)
	require.NoError(t, err)
	require.Equal(t, "@mystage", stage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPutInternalGeneratedStage(t *testing.T) {
	sf, mock, _ := newTestSnowflake(t)

	mock.ExpectExec("PUT 'file://.+' @~/.+ PARALLEL=1 AUTO_COMPRESS=FALSE OVERWRITE=FALSE").
		WillReturnResult(sqlmock.NewResult(0, 0))

	stage, err := sf.PutInternal(context.Background(), "data.csv", "", PutOptions{Parallel: 1})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(stage, "@~/"))
	require.Len(t, strings.TrimPrefix(stage, "@~/"), 36)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetInternal(t *testing.T) {
	sf, mock, _ := newTestSnowflake(t)

	dir := t.TempDir()
	mock.ExpectExec("GET @mystage 'file://" + regexp.QuoteMeta(filepath.ToSlash(dir)) + "' PARALLEL=10").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, sf.GetInternal(context.Background(), "@mystage", dir, GetOptions{}))
	require.NoError(t, mock.ExpectationsWereMet())
}
