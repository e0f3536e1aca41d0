package redshift

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/datawarp/bulkload/tabular"
	"github.com/stretchr/testify/require"
)

func TestInsertTabularCreateAndBatch(t *testing.T) {
	r, mock, _ := newTestRedshift(t)

	data := &tabular.Slice{
		Columns: []string{"name", "seen"},
		Rows: [][]any{
			{"a", time.Date(2023, 5, 1, 12, 30, 0, 0, time.UTC)},
			{"b", time.Date(2023, 5, 2, 8, 0, 0, 0, time.UTC)},
			{"c", time.Date(2023, 5, 3, 9, 15, 0, 0, time.UTC)},
		},
	}

	mock.ExpectExec(regexp.QuoteMeta(
		"CREATE TABLE events (name varchar,seen timestamp)",
	)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO events (name,seen) VALUES " +
			"('a', '2023-05-01 12:30:00'), ('b', '2023-05-02 08:00:00')",
	)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO events (name,seen) VALUES ('c', '2023-05-03 09:15:00')",
	)).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, r.InsertTabular(context.Background(), "events", data, InsertOptions{
		Create:    true,
		BatchSize: 2,
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}
