package data

import (
	"strconv"
	"strings"

	"github.com/Rocosso/titanic-ml-pipeline/pkg/errtypes"
	"gonum.org/v1/gonum/mat"
)

// Table is an in-memory csv: a header and rows of raw cell strings.
type Table struct {
	Header []string
	Rows   [][]string

	index map[string]int
}

// New builds a table. Rows are not copied.
func New(header []string, rows [][]string) *Table {
	t := &Table{Header: header, Rows: rows}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Header))
	for i, h := range t.Header {
		t.index[strings.TrimSpace(h)] = i
	}
}

func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of col, or -1.
func (t *Table) Index(col string) int {
	if t.index == nil {
		t.reindex()
	}
	if i, ok := t.index[col]; ok {
		return i
	}
	return -1
}

func (t *Table) Has(col string) bool { return t.Index(col) >= 0 }

// Require fails with ErrDataFormat naming every absent column.
func (t *Table) Require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return errtypes.DataFormat("required columns are missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Column copies out the cells of col.
func (t *Table) Column(col string) ([]string, error) {
	j := t.Index(col)
	if j < 0 {
		return nil, errtypes.DataFormat("column %q is missing", col)
	}
	out := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		if j >= len(row) {
			return nil, errtypes.DataFormat("row %d has %d fields, header has %d", i+1, len(row), len(t.Header))
		}
		out[i] = row[j]
	}
	return out, nil
}

// Float parses the cell at (row, col). Missing cells are an error.
func (t *Table) Float(row int, col string) (float64, error) {
	j := t.Index(col)
	if j < 0 {
		return 0, errtypes.DataFormat("column %q is missing", col)
	}
	return ParseFloat(t.Rows[row][j], col, row)
}

// ParseFloat parses one cell, reporting column and row on failure.
func ParseFloat(s string, col string, row int) (float64, error) {
	if IsMissing(s) {
		return 0, errtypes.DataFormat("row %d: %s is missing", row+1, col)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, errtypes.DataFormat("row %d: %s is not a number: %q", row+1, col, s)
	}
	return v, nil
}

// Matrix assembles the named columns into a dense row-major matrix.
func (t *Table) Matrix(cols []string) (*mat.Dense, error) {
	if len(t.Rows) == 0 {
		return nil, errtypes.DataFormat("table has no rows")
	}
	if err := t.Require(cols...); err != nil {
		return nil, err
	}
	raw := make([]float64, 0, len(t.Rows)*len(cols))
	for i := range t.Rows {
		for _, c := range cols {
			v, err := t.Float(i, c)
			if err != nil {
				return nil, err
			}
			raw = append(raw, v)
		}
	}
	return mat.NewDense(len(t.Rows), len(cols), raw), nil
}

// Select returns a table made of the given rows, in order. Cells are shared.
func (t *Table) Select(rows []int) *Table {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = t.Rows[r]
	}
	return New(t.Header, out)
}

var missingTokens = map[string]struct{}{
	"": {}, "NA": {}, "NaN": {}, "nan": {}, "null": {},
}

// IsMissing reports whether a cell stands for a null value.
func IsMissing(s string) bool {
	_, ok := missingTokens[strings.TrimSpace(s)]
	return ok
}

// FormatFloat renders v in the shortest form that parses back to v.
// Integral values have no decimal point.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
