package analysis

import (
	"github.com/KaramelBytes/insight-layer/internal/dataset"
)

// AllBatches is the partition id used when the dataset has no batch column.
const AllBatches = "all"

// Record is one (batch, time, variable, value) observation of the long
// form.
type Record struct {
	Batch    string  `json:"batch"`
	Time     float64 `json:"time"`
	Variable string  `json:"variable"`
	Value    float64 `json:"value"`
}

// Partition lists the row indices of one batch in dataset order.
type Partition struct {
	ID   string
	Rows []int
}

// Frame is the canonical columnar form of a dataset: numeric variables as
// dense float slices plus a per-row time axis and batch partitions.
type Frame struct {
	Roles Roles
	Rows  int
	// Time holds the parsed time value of each row, or the row index when
	// there is no time column. Unparseable times are NaN.
	Time       []float64
	Partitions []Partition
	// Batches are the distinct batch ids in encounter order; empty without
	// a batch column.
	Batches []string
	values  map[string][]float64
}

// Canonicalize reshapes ds under roles. Rows whose batch value is missing
// belong to no partition.
func Canonicalize(roles Roles, ds *dataset.Dataset) *Frame {
	n := ds.Rows()
	f := &Frame{Roles: roles, Rows: n, Time: make([]float64, n), values: make(map[string][]float64, len(roles.Numeric))}
	if tc, ok := ds.Column(roles.TimeColumn); ok && roles.TimeColumn != "" {
		copy(f.Time, tc.Values)
	} else {
		for i := range f.Time {
			f.Time[i] = float64(i)
		}
	}
	for _, name := range roles.Numeric {
		if c, ok := ds.Column(name); ok {
			f.values[name] = c.Values
		}
	}
	bc, ok := ds.Column(roles.BatchColumn)
	if !ok || roles.BatchColumn == "" {
		all := Partition{ID: AllBatches, Rows: make([]int, n)}
		for i := range all.Rows {
			all.Rows[i] = i
		}
		f.Partitions = []Partition{all}
		return f
	}
	index := make(map[string]int)
	for i := 0; i < n; i++ {
		if bc.Missing(i) {
			continue
		}
		id := bc.Label(i)
		p, seen := index[id]
		if !seen {
			p = len(f.Partitions)
			index[id] = p
			f.Partitions = append(f.Partitions, Partition{ID: id})
			f.Batches = append(f.Batches, id)
		}
		f.Partitions[p].Rows = append(f.Partitions[p].Rows, i)
	}
	return f
}

// HasTime reports whether a time column was inferred.
func (f *Frame) HasTime() bool { return f.Roles.TimeColumn != "" }

// HasBatch reports whether a batch column was inferred.
func (f *Frame) HasBatch() bool { return f.Roles.BatchColumn != "" }

// Values returns the full column of a numeric variable.
func (f *Frame) Values(variable string) []float64 { return f.values[variable] }

// Gather returns the variable's values at rows.
func (f *Frame) Gather(variable string, rows []int) []float64 {
	src := f.values[variable]
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = src[r]
	}
	return out
}

// TimesAt returns the time axis at rows.
func (f *Frame) TimesAt(rows []int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = f.Time[r]
	}
	return out
}

// Records expands the frame into long form: for each partition, each row,
// each numeric variable, one record.
func (f *Frame) Records() []Record {
	var out []Record
	for _, p := range f.Partitions {
		for _, r := range p.Rows {
			for _, v := range f.Roles.Numeric {
				out = append(out, Record{Batch: p.ID, Time: f.Time[r], Variable: v, Value: f.values[v][r]})
			}
		}
	}
	return out
}
