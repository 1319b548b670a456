// Package reading parses uploaded vibration-sensor tables.
package reading

// Table is a row-oriented set of numeric sensor readings. Columns holds the
// feature names in file order; every row has exactly len(Columns) values.
type Table struct {
	Columns []string
	Rows    [][]float64
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Index returns the position of the named column, or -1.
func (t Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers never share row storage.
func (t Table) Clone() Table {
	out := Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]float64, len(t.Rows)),
	}
	for i, r := range t.Rows {
		out.Rows[i] = append([]float64(nil), r...)
	}
	return out
}

// DroppedColumns are identifier/label columns never passed to the model.
var DroppedColumns = []string{"id", "esp_id", "label"}

func isDropped(name string) bool {
	for _, d := range DroppedColumns {
		if name == d {
			return true
		}
	}
	return false
}

// DropIdentifiers removes DroppedColumns from t. Missing columns are ignored,
// so applying it twice yields the same table.
func DropIdentifiers(t Table) Table {
	keep := make([]int, 0, len(t.Columns))
	for i, c := range t.Columns {
		if !isDropped(c) {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(t.Columns) {
		return t.Clone()
	}

	out := Table{Columns: make([]string, len(keep)), Rows: make([][]float64, len(t.Rows))}
	for j, i := range keep {
		out.Columns[j] = t.Columns[i]
	}
	for r, row := range t.Rows {
		vals := make([]float64, len(keep))
		for j, i := range keep {
			vals[j] = row[i]
		}
		out.Rows[r] = vals
	}
	return out
}
