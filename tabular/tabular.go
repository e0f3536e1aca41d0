// Package tabular abstracts in-memory tabular data for warehouse insertion.
// Any row-oriented source can implement Data once; type inference and INSERT
// generation are written against the interface instead of inspecting
// concrete dataframe types.
package tabular

import "fmt"

// Data is the capability a dataset must expose to be inserted into a
// warehouse table.
type Data interface {
	ColumnNames() []string
	NumRows() int
	// Row returns the values of row i, aligned with ColumnNames. Nil values
	// render as SQL NULL.
	Row(i int) []any
}

// Slice is the simplest Data implementation: a column list plus rows.
type Slice struct {
	Columns []string
	Rows    [][]any
}

func (s *Slice) ColumnNames() []string { return s.Columns }
func (s *Slice) NumRows() int          { return len(s.Rows) }
func (s *Slice) Row(i int) []any       { return s.Rows[i] }

// Select returns a view of d restricted to the named columns, in the given
// order.
func Select(d Data, columns []string) (Data, error) {
	all := d.ColumnNames()
	idx := make([]int, 0, len(columns))
	for _, c := range columns {
		found := -1
		for i, name := range all {
			if name == c {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, fmt.Errorf("column %q not present in data", c)
		}
		idx = append(idx, found)
	}
	return &projection{data: d, columns: columns, idx: idx}, nil
}

type projection struct {
	data    Data
	columns []string
	idx     []int
}

func (p *projection) ColumnNames() []string { return p.columns }
func (p *projection) NumRows() int          { return p.data.NumRows() }

func (p *projection) Row(i int) []any {
	full := p.data.Row(i)
	row := make([]any, len(p.idx))
	for j, k := range p.idx {
		row[j] = full[k]
	}
	return row
}
