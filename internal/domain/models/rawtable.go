package models

// RawTable is the provider's untyped response: a header row naming the
// columns and data rows of string cells. Providers differ in column
// naming and order; the normalizer maps them to canonical bar fields.
type RawTable struct {
	Columns []string
	Rows    [][]string
}

// Empty reports whether the table carries no data rows.
func (t *RawTable) Empty() bool { return t == nil || len(t.Rows) == 0 }
