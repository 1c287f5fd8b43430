package analysis

import (
	"math"
	"strings"

	"github.com/KaramelBytes/insight-layer/internal/dataset"
)

// Roles is the semantic role assignment of a dataset's columns. Empty
// TimeColumn or BatchColumn means the role is absent.
type Roles struct {
	TimeColumn  string
	BatchColumn string
	Numeric     []string
	Categorical []string
}

// columnRule is one predicate of the role engine.
type columnRule func(cfg *Config, ds *dataset.Dataset, c *dataset.Column) bool

// batchRules run in priority order; the first rule matching any column
// decides the batch column.
var batchRules = []columnRule{batchByKeyword, batchByPattern}

// timeRules must all hold for a column to be chosen as time.
var timeRules = []columnRule{timeByKeyword, timeLikeValues}

// InferRoles assigns column roles. Text columns other than the batch column
// are coerced to numeric in place when enough of their values parse, so
// callers own ds and should pass a copy when the original must survive.
func InferRoles(cfg Config, ds *dataset.Dataset) Roles {
	var roles Roles
	batch := pickBatch(&cfg, ds)
	if batch != nil {
		roles.BatchColumn = batch.Name
	}
	for _, c := range ds.Columns {
		if c != batch {
			ds.CoerceNumeric(c, cfg.CoerceRatio)
		}
	}
	var tcol *dataset.Column
	for _, c := range ds.Columns {
		if c == batch {
			continue
		}
		if allRules(timeRules, &cfg, ds, c) {
			tcol = c
			break
		}
	}
	if tcol != nil {
		roles.TimeColumn = tcol.Name
	}
	for _, c := range ds.Columns {
		if c == batch || c == tcol {
			continue
		}
		if c.Kind.IsNumeric() {
			roles.Numeric = append(roles.Numeric, c.Name)
		} else {
			roles.Categorical = append(roles.Categorical, c.Name)
		}
	}
	return roles
}

func pickBatch(cfg *Config, ds *dataset.Dataset) *dataset.Column {
	for _, rule := range batchRules {
		for _, c := range ds.Columns {
			if rule(cfg, ds, c) {
				return c
			}
		}
	}
	return nil
}

func allRules(rules []columnRule, cfg *Config, ds *dataset.Dataset, c *dataset.Column) bool {
	for _, r := range rules {
		if !r(cfg, ds, c) {
			return false
		}
	}
	return true
}

func batchByKeyword(cfg *Config, _ *dataset.Dataset, c *dataset.Column) bool {
	name := strings.ToLower(strings.TrimSpace(c.Name))
	for _, kw := range cfg.BatchKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// batchByPattern accepts a non-float column with a handful of repeated
// values, each occurring more than BatchMinGroupSize times.
func batchByPattern(cfg *Config, ds *dataset.Dataset, c *dataset.Column) bool {
	if c.Kind == dataset.KindFloat {
		return false
	}
	counts := make(map[string]int)
	for i := 0; i < c.Len(); i++ {
		if c.Missing(i) {
			continue
		}
		counts[c.Label(i)]++
	}
	distinct := len(counts)
	if distinct <= 1 || float64(distinct) >= float64(ds.Rows())*cfg.BatchMaxDistinctRatio {
		return false
	}
	least := math.MaxInt
	for _, n := range counts {
		least = min(least, n)
	}
	return least > cfg.BatchMinGroupSize
}

func timeByKeyword(cfg *Config, _ *dataset.Dataset, c *dataset.Column) bool {
	name := strings.ToLower(strings.TrimSpace(c.Name))
	for _, kw := range cfg.TimeKeywords {
		if name == kw || strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

func timeLikeValues(cfg *Config, _ *dataset.Dataset, c *dataset.Column) bool {
	return c.Kind.IsNumeric() || isMonotone(c.Values, cfg.MonotoneRatio)
}

// isMonotone reports whether more than ratio of the successive differences
// of the parsed values are non-negative.
func isMonotone(vals []float64, ratio float64) bool {
	d := diff(dropNaN(vals))
	if len(d) == 0 {
		return false
	}
	nonNeg := 0
	for _, v := range d {
		if v >= 0 {
			nonNeg++
		}
	}
	return float64(nonNeg)/float64(len(d)) > ratio
}
