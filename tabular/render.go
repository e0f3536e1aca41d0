package tabular

import (
	"fmt"
	"strings"
	"time"
)

// DefaultBatchSize is the number of rows per generated INSERT statement.
const DefaultBatchSize = 1000

// Literal renders one value for inlining into a VALUES list. Nil becomes
// NULL; everything else is quoted with embedded single quotes doubled, and
// the warehouse coerces the text to the column type.
func Literal(v any) string {
	if v == nil {
		return "NULL"
	}

	var s string
	switch v := v.(type) {
	case time.Time:
		s = v.Format("2006-01-02 15:04:05")
	case string:
		s = v
	default:
		s = fmt.Sprint(v)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// BuildCreateTable renders a CREATE TABLE statement for the given columns.
func BuildCreateTable(table string, cols []ColumnType, ifNotExists bool) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = c.Name + " " + c.Type
	}

	stmt := "CREATE TABLE "
	if ifNotExists {
		stmt += "IF NOT EXISTS "
	}
	return stmt + table + " (" + strings.Join(defs, ",") + ")"
}

// BuildInsertBatches renders d as one INSERT statement per batchSize rows,
// with every value inlined as a literal. Statement-per-batch keeps round
// trips down on drivers where per-row prepared execution is slow.
func BuildInsertBatches(table string, d Data, batchSize int) []string {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	columnSQL := "(" + strings.Join(d.ColumnNames(), ",") + ")"

	var stmts []string
	n := d.NumRows()
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}

		values := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			row := d.Row(i)
			rendered := make([]string, len(row))
			for j, v := range row {
				rendered[j] = Literal(v)
			}
			values = append(values, "("+strings.Join(rendered, ", ")+")")
		}

		stmts = append(stmts, fmt.Sprintf(
			"INSERT INTO %s %s VALUES %s",
			table, columnSQL, strings.Join(values, ", "),
		))
	}
	return stmts
}
