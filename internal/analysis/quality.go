package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// QualityReport is the data-quality block of the report.
type QualityReport struct {
	Variables []VariableQuality `json:"variables" yaml:"variables"`
	Overall   OverallQuality    `json:"overall" yaml:"overall"`
}

// VariableQuality describes one numeric column.
type VariableQuality struct {
	Variable   string         `json:"variable" yaml:"variable"`
	MissingPct Float          `json:"missing_pct" yaml:"missing_pct"`
	Density    Density        `json:"density" yaml:"density"`
	Flatline   Flatline       `json:"flatline" yaml:"flatline"`
	Sampling   Sampling       `json:"sampling" yaml:"sampling"`
	Stats      Moments        `json:"stats" yaml:"stats"`
	Outliers   RobustOutliers `json:"outliers" yaml:"outliers"`
}

// Density classifies a signal as empty, sparse, intermittent, offline or
// continuous.
type Density struct {
	Type    string  `json:"type" yaml:"type"`
	Density Float   `json:"density" yaml:"density"`
	Reason  *string `json:"reason,omitempty" yaml:"reason,omitempty"`
	ZeroPct *Float  `json:"zero_pct,omitempty" yaml:"zero_pct,omitempty"`
}

type Flatline struct {
	IsFlatlined   bool   `json:"is_flatlined" yaml:"is_flatlined"`
	FlatlinePct   *Float `json:"flatline_pct,omitempty" yaml:"flatline_pct,omitempty"`
	ConstantValue *Float `json:"constant_value,omitempty" yaml:"constant_value,omitempty"`
	CV            *Float `json:"cv,omitempty" yaml:"cv,omitempty"`
	RelativeRange *Float `json:"relative_range,omitempty" yaml:"relative_range,omitempty"`
}

// Sampling summarises the positive time deltas between samples.
type Sampling struct {
	Available       bool   `json:"available" yaml:"available"`
	MeanInterval    *Float `json:"mean_interval,omitempty" yaml:"mean_interval,omitempty"`
	StdInterval     *Float `json:"std_interval,omitempty" yaml:"std_interval,omitempty"`
	MinInterval     *Float `json:"min_interval,omitempty" yaml:"min_interval,omitempty"`
	MaxInterval     *Float `json:"max_interval,omitempty" yaml:"max_interval,omitempty"`
	RegularityScore *Float `json:"regularity_score,omitempty" yaml:"regularity_score,omitempty"`
	IsRegular       *bool  `json:"is_regular,omitempty" yaml:"is_regular,omitempty"`
}

// Moments holds mean, sample std, min and max; all null when the column
// has no values.
type Moments struct {
	Mean Float `json:"mean" yaml:"mean"`
	Std  Float `json:"std" yaml:"std"`
	Min  Float `json:"min" yaml:"min"`
	Max  Float `json:"max" yaml:"max"`
}

// RobustOutliers counts values whose modified z-score (MAD based) exceeds
// Threshold.
type RobustOutliers struct {
	Available bool  `json:"available" yaml:"available"`
	Count     int   `json:"count" yaml:"count"`
	MaxAbsZ   Float `json:"max_abs_z" yaml:"max_abs_z"`
	Threshold Float `json:"threshold" yaml:"threshold"`
}

type OverallQuality struct {
	Score Float    `json:"score" yaml:"score"`
	Flags []string `json:"flags" yaml:"flags"`
}

// MissingPct is the percentage of NaN values.
func MissingPct(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	miss := len(vals) - len(dropNaN(vals))
	return float64(miss) / float64(len(vals)) * 100
}

// ClassifyDensity applies the missingness and zero-share rules in order.
func ClassifyDensity(cfg Config, vals []float64, missingPct float64) Density {
	if len(vals) == 0 {
		return Density{Type: "empty", Density: 0}
	}
	present := dropNaN(vals)
	d := Float(float64(len(present)) / float64(len(vals)))
	switch {
	case missingPct > cfg.SparseMissingPct:
		return Density{Type: "sparse", Density: d, Reason: sptr("high_missing")}
	case missingPct > cfg.IntermittentMissingPct:
		return Density{Type: "intermittent", Density: d, Reason: sptr("moderate_missing")}
	}
	if len(present) > 0 {
		zeros := 0
		for _, v := range present {
			if v == 0 {
				zeros++
			}
		}
		zeroPct := float64(zeros) / float64(len(present)) * 100
		if zeroPct > cfg.OfflineZeroPct {
			return Density{Type: "offline", Density: d, ZeroPct: fptr(zeroPct)}
		}
	}
	return Density{Type: "continuous", Density: d}
}

// DetectFlatline reports an exact flatline when the non-null range is zero,
// and a near flatline when both the coefficient of variation and the
// range relative to the mean are tiny.
func DetectFlatline(cfg Config, vals []float64) Flatline {
	data := dropNaN(vals)
	if len(data) < 2 {
		return Flatline{IsFlatlined: false, FlatlinePct: fptr(0)}
	}
	lo, hi := floats.Min(data), floats.Max(data)
	span := hi - lo
	if span == 0 {
		return Flatline{IsFlatlined: true, FlatlinePct: fptr(100), ConstantValue: fptr(data[0])}
	}
	absMean := math.Abs(mean(data))
	cv, rel := 0.0, span
	if absMean > 0 {
		cv = sampleStd(data) / absMean
		rel = span / absMean
	}
	return Flatline{
		IsFlatlined:   cv < cfg.FlatlineCV && rel < cfg.FlatlineRelativeRange,
		CV:            fptr(cv),
		RelativeRange: fptr(rel),
	}
}

// SamplingStats scores the regularity of the sampling grid. Deltas are
// taken within each partition after sorting its times; only positive
// deltas count.
func SamplingStats(cfg Config, f *Frame) Sampling {
	if f.Rows < 2 || len(dropNaN(f.Time)) == 0 {
		return Sampling{Available: false}
	}
	var intervals []float64
	for _, p := range f.Partitions {
		ts := sortedCopy(dropNaN(f.TimesAt(p.Rows)))
		for _, d := range diff(ts) {
			if d > 0 {
				intervals = append(intervals, d)
			}
		}
	}
	if len(intervals) == 0 {
		return Sampling{Available: false}
	}
	m := mean(intervals)
	sd := 0.0
	if len(intervals) > 1 {
		sd = sampleStd(intervals)
	}
	cv := 0.0
	if m > 0 {
		cv = sd / m
	}
	regularity := math.Max(0, 1-math.Min(1, cv))
	regular := regularity > cfg.RegularThreshold
	return Sampling{
		Available:       true,
		MeanInterval:    fptr(m),
		StdInterval:     fptr(sd),
		MinInterval:     fptr(floats.Min(intervals)),
		MaxInterval:     fptr(floats.Max(intervals)),
		RegularityScore: fptr(regularity),
		IsRegular:       &regular,
	}
}

// ComputeMoments returns nulls for an all-missing column.
func ComputeMoments(vals []float64) Moments {
	data := dropNaN(vals)
	if len(data) == 0 {
		nan := Float(math.NaN())
		return Moments{Mean: nan, Std: nan, Min: nan, Max: nan}
	}
	return Moments{
		Mean: Float(mean(data)),
		Std:  Float(sampleStd(data)),
		Min:  Float(floats.Min(data)),
		Max:  Float(floats.Max(data)),
	}
}

// DetectRobustOutliers uses the modified z-score 0.6745·(x−median)/MAD.
func DetectRobustOutliers(cfg Config, vals []float64) RobustOutliers {
	data := dropNaN(vals)
	out := RobustOutliers{Threshold: Float(cfg.OutlierThreshold)}
	if len(data) < cfg.OutlierMinValues {
		return out
	}
	out.Available = true
	median, mad := medianMAD(data)
	if mad == 0 {
		return out
	}
	var maxAbs float64
	for _, v := range data {
		az := math.Abs(0.6745 * (v - median) / mad)
		if az > cfg.OutlierThreshold {
			out.Count++
		}
		maxAbs = math.Max(maxAbs, az)
	}
	out.MaxAbsZ = Float(maxAbs)
	return out
}

// AnalyzeVariableQuality builds the quality entry of one column. sampling
// is shared by every variable since it only depends on the time axis.
func AnalyzeVariableQuality(cfg Config, name string, vals []float64, sampling Sampling) VariableQuality {
	miss := MissingPct(vals)
	return VariableQuality{
		Variable:   name,
		MissingPct: Float(miss),
		Density:    ClassifyDensity(cfg, vals, miss),
		Flatline:   DetectFlatline(cfg, vals),
		Sampling:   sampling,
		Stats:      ComputeMoments(vals),
		Outliers:   DetectRobustOutliers(cfg, vals),
	}
}

// OverallScore starts at 100 and subtracts penalties for missingness,
// irregular sampling and flatlined variables. Sampling is judged by the
// first variable only.
func OverallScore(cfg Config, vars []VariableQuality) OverallQuality {
	if len(vars) == 0 {
		return OverallQuality{Score: 0, Flags: []string{"no_data"}}
	}
	score := 100.0
	flags := []string{}
	missing := make([]float64, len(vars))
	for i, v := range vars {
		missing[i] = float64(v.MissingPct)
	}
	switch avg := mean(missing); {
	case avg > cfg.HighMissingPct:
		score -= 20
		flags = append(flags, "high_missing_data")
	case avg > cfg.ModerateMissingPct:
		score -= 5
		flags = append(flags, "moderate_missing_data")
	}
	if s := vars[0].Sampling; s.Available && s.RegularityScore != nil && float64(*s.RegularityScore) < cfg.IrregularBelow {
		score -= 10
		flags = append(flags, "irregular_sampling")
	}
	flat, offline := 0, 0
	for _, v := range vars {
		if v.Flatline.IsFlatlined {
			flat++
		}
		if v.Density.Type == "offline" {
			offline++
		}
	}
	if flat > 0 {
		score -= cfg.FlatlinePenalty * float64(min(flat, cfg.FlatlinePenaltyCap))
		flags = append(flags, fmt.Sprintf("flatlined_signals:%d", flat))
	}
	if offline > 0 {
		flags = append(flags, fmt.Sprintf("offline_signals:%d", offline))
	}
	return OverallQuality{Score: Float(math.Max(0, math.Min(100, score))), Flags: flags}
}

// flaggedVariables lists variables by a quality predicate in name order;
// used by the markdown summary.
func flaggedVariables(q QualityReport, pred func(VariableQuality) bool) []string {
	var out []string
	for _, v := range q.Variables {
		if pred(v) {
			out = append(out, v.Variable)
		}
	}
	sort.Strings(out)
	return out
}
