package infographics

import "strings"

// Table is a column-ordered, string-valued view of a result set. Columns
// is always populated, even when there are no rows.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Column returns the values of the named column, or nil if there is no
// such column.
func (t Table) Column(name string) []string {
	idx := -1
	for i, c := range t.Columns {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out
}

func joinList(vs []string) string {
	return strings.Join(vs, ",")
}
