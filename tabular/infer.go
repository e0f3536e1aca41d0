package tabular

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ColumnType pairs a column name with its inferred warehouse type.
type ColumnType struct {
	Name string
	Type string
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
}

var dateLayouts = []string{
	"2006-01-02",
	"02-Jan-2006",
	"01/02/2006",
}

// InferColumnTypes maps each column of d to a warehouse column type based on
// the first non-nil value found in it: booleans to boolean, integers to int,
// floats to float, times to timestamp or date, and everything else to
// varchar. Strings are probed for numeric and date/time content before
// falling back to varchar. A column with no non-nil values is varchar.
//
// warehouse must be "redshift" or "snowflake"; Snowflake is stricter about
// treating bare strings as dates, matching the original loader behavior.
func InferColumnTypes(d Data, warehouse string) ([]ColumnType, error) {
	w := strings.ToLower(warehouse)
	if w != "redshift" && w != "snowflake" {
		return nil, fmt.Errorf(`warehouse must be either "snowflake" or "redshift", got %q`, warehouse)
	}

	cols := d.ColumnNames()
	out := make([]ColumnType, len(cols))
	for j, name := range cols {
		out[j] = ColumnType{Name: name, Type: inferColumn(d, j, w)}
	}
	return out, nil
}

func inferColumn(d Data, j int, warehouse string) string {
	for i := 0; i < d.NumRows(); i++ {
		v := d.Row(i)[j]
		if v == nil {
			continue
		}
		switch v := v.(type) {
		case bool:
			return "boolean"
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return "int"
		case float32, float64:
			return "float"
		case time.Time:
			if hasClock(v) {
				return "timestamp"
			}
			return "date"
		case string:
			return inferString(v, warehouse)
		default:
			return "varchar"
		}
	}
	return "varchar"
}

func inferString(s, warehouse string) string {
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return "float"
	}
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return "timestamp"
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if warehouse == "redshift" || !hasClock(t) {
				return "date"
			}
			return "varchar"
		}
	}
	return "varchar"
}

func hasClock(t time.Time) bool {
	return t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0
}
