package dataset

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the best-effort storage type of a column.
type Kind int

const (
	KindText Kind = iota
	KindInteger
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	default:
		return "text"
	}
}

// IsNumeric reports whether the column holds numbers.
func (k Kind) IsNumeric() bool { return k == KindInteger || k == KindFloat }

// Column is one named column of a tabular dataset.
type Column struct {
	Name string
	Kind Kind
	// Raw holds the trimmed cell text; "" marks a missing cell.
	Raw []string
	// Values holds the parsed number for every cell, NaN where the cell is
	// missing or does not parse. It is populated for text columns too so a
	// coercion or monotonicity probe does not need to re-parse.
	Values []float64
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.Raw) }

// Missing reports whether cell i is null under the column's current kind.
func (c *Column) Missing(i int) bool {
	if c.Kind.IsNumeric() {
		return math.IsNaN(c.Values[i])
	}
	return c.Raw[i] == ""
}

// Parsed counts the cells with a numeric value.
func (c *Column) Parsed() int {
	n := 0
	for _, v := range c.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Label returns the string form of cell i as it would be printed as a
// batch identifier: the literal text for text columns, the integer for
// integer columns, and the shortest round-trip repr for floats.
func (c *Column) Label(i int) string {
	switch c.Kind {
	case KindInteger:
		return strconv.FormatInt(int64(c.Values[i]), 10)
	case KindFloat:
		return FormatFloat(c.Values[i])
	default:
		return c.Raw[i]
	}
}

func (c *Column) clone() *Column {
	cp := &Column{Name: c.Name, Kind: c.Kind}
	cp.Raw = append([]string(nil), c.Raw...)
	cp.Values = append([]float64(nil), c.Values...)
	return cp
}

// Dataset is an in-memory table of named, typed columns.
type Dataset struct {
	Name    string
	Columns []*Column
}

// New builds a dataset from a header and row-major records and applies
// best-effort typing to every column. Short rows are padded with missing
// cells.
func New(name string, header []string, rows [][]string) *Dataset {
	ds := &Dataset{Name: name, Columns: make([]*Column, len(header))}
	for j, h := range header {
		col := &Column{
			Name:   strings.TrimSpace(h),
			Raw:    make([]string, len(rows)),
			Values: make([]float64, len(rows)),
		}
		for i, rec := range rows {
			cell := ""
			if j < len(rec) {
				cell = strings.TrimSpace(rec[j])
			}
			if isNA(cell) {
				cell = ""
			}
			col.Raw[i] = cell
			col.Values[i] = parseCell(cell)
		}
		col.Kind = inferKind(col)
		ds.Columns[j] = col
	}
	return ds
}

// Rows returns the number of rows.
func (d *Dataset) Rows() int {
	if len(d.Columns) == 0 {
		return 0
	}
	return d.Columns[0].Len()
}

// Column looks a column up by its exact name.
func (d *Dataset) Column(name string) (*Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Clone returns a deep copy so callers can coerce columns without touching
// the original.
func (d *Dataset) Clone() *Dataset {
	cp := &Dataset{Name: d.Name, Columns: make([]*Column, len(d.Columns))}
	for i, c := range d.Columns {
		cp.Columns[i] = c.clone()
	}
	return cp
}

// CoerceNumeric converts a text column to numeric when more than
// threshold×rows of its cells parse as numbers. Unparseable cells become
// missing. It reports whether the column was converted.
func (d *Dataset) CoerceNumeric(c *Column, threshold float64) bool {
	if c.Kind.IsNumeric() {
		return false
	}
	if float64(c.Parsed()) <= float64(d.Rows())*threshold {
		return false
	}
	c.Kind = KindFloat
	if allIntegers(c) {
		c.Kind = KindInteger
	}
	return true
}

// inferKind mirrors a conventional CSV reader: a column is integer when
// every cell is present and integral, float when every present cell is a
// number (an all-missing column is float), text otherwise.
func inferKind(c *Column) Kind {
	for i, raw := range c.Raw {
		if raw != "" && math.IsNaN(c.Values[i]) {
			return KindText
		}
	}
	if allIntegers(c) {
		return KindInteger
	}
	return KindFloat
}

func allIntegers(c *Column) bool {
	if c.Len() == 0 {
		return false
	}
	for i, raw := range c.Raw {
		if raw == "" || math.IsNaN(c.Values[i]) {
			return false
		}
		if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
			return false
		}
	}
	return true
}

// FormatFloat renders v the way a shortest round-trip repr does: fixed
// notation with a trailing ".0" for integral values between 1e-4 and
// 1e16, exponent notation outside that range.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case v == 0:
		if math.Signbit(v) {
			return "-0.0"
		}
		return "0.0"
	}
	exp := math.Floor(math.Log10(math.Abs(v)))
	if exp < -4 || exp >= 16 {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
