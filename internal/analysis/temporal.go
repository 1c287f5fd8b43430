package analysis

import (
	"encoding/json"
	"math"
	"sort"
)

// TemporalReport holds per-variable, per-batch kinetic profiles. It is
// unavailable without a time column.
type TemporalReport struct {
	Available bool                        `json:"available" yaml:"available"`
	Variables map[string]VariableTemporal `json:"variables" yaml:"variables"`
}

type temporalFields TemporalReport

func (r TemporalReport) encoded() any {
	if !r.Available {
		return unavailableBlock{}
	}
	if r.Variables == nil {
		r.Variables = map[string]VariableTemporal{}
	}
	return temporalFields(r)
}

func (r TemporalReport) MarshalJSON() ([]byte, error) { return json.Marshal(r.encoded()) }
func (r TemporalReport) MarshalYAML() (interface{}, error) { return r.encoded(), nil }

type VariableTemporal struct {
	Batches map[string]TemporalProfile `json:"batches" yaml:"batches"`
}

// TemporalProfile describes one variable within one batch.
type TemporalProfile struct {
	Derivative    DerivativeSummary `json:"derivative" yaml:"derivative"`
	ChangePoints  []ChangePoint     `json:"change_points" yaml:"change_points"`
	Phases        []Phase           `json:"phases" yaml:"phases"`
	GrowthMetrics Growth            `json:"growth_metrics" yaml:"growth_metrics"`
	Trend         Trend             `json:"trend" yaml:"trend"`
}

type DerivativeSummary struct {
	Mean Float `json:"mean" yaml:"mean"`
	Max  Float `json:"max" yaml:"max"`
	Min  Float `json:"min" yaml:"min"`
	Std  Float `json:"std" yaml:"std"`
}

type ChangePoint struct {
	Index     int    `json:"index" yaml:"index"`
	Magnitude Float  `json:"magnitude" yaml:"magnitude"`
	Direction string `json:"direction" yaml:"direction"`
}

// Phase is a maximal run of samples sharing one derivative trend.
type Phase struct {
	PhaseType  string `json:"phase_type" yaml:"phase_type"`
	StartIndex int    `json:"start_index" yaml:"start_index"`
	EndIndex   int    `json:"end_index" yaml:"end_index"`
	StartTime  Float  `json:"start_time" yaml:"start_time"`
	EndTime    Float  `json:"end_time" yaml:"end_time"`
	Duration   Float  `json:"duration" yaml:"duration"`
	MeanRate   Float  `json:"mean_rate" yaml:"mean_rate"`
}

type Growth struct {
	IsGrowthLike      bool   `json:"is_growth_like" yaml:"is_growth_like"`
	MonotonicityRatio *Float `json:"monotonicity_ratio,omitempty" yaml:"monotonicity_ratio,omitempty"`
	MaxSlope          *Float `json:"max_slope,omitempty" yaml:"max_slope,omitempty"`
	MeanSlope         *Float `json:"mean_slope,omitempty" yaml:"mean_slope,omitempty"`
	SlopeStd          *Float `json:"slope_std,omitempty" yaml:"slope_std,omitempty"`
	StabilityScore    *Float `json:"stability_score,omitempty" yaml:"stability_score,omitempty"`
}

type Trend struct {
	Available bool   `json:"available" yaml:"available"`
	Direction string `json:"direction,omitempty" yaml:"direction,omitempty"`
	Slope     *Float `json:"slope,omitempty" yaml:"slope,omitempty"`
	RSquared  *Float `json:"r_squared,omitempty" yaml:"r_squared,omitempty"`
	PValue    *Float `json:"p_value,omitempty" yaml:"p_value,omitempty"`
}

// Derivative is the discrete Δvalue/Δtime; zero Δtime gives NaN.
func Derivative(t, v []float64) []float64 { return derivative(t, v) }

// Smooth is a moving average with edge replication. Series shorter than
// window are returned unchanged.
func Smooth(vals []float64, window int) []float64 {
	if len(vals) < window {
		return append([]float64(nil), vals...)
	}
	return uniformFilter(vals, window)
}

// ChangePoints flags steps of the smoothed series whose deviation from the
// mean step exceeds ChangePointSigma standard deviations.
func ChangePoints(cfg Config, vals []float64) []ChangePoint {
	out := []ChangePoint{}
	n := len(vals)
	if n < cfg.ChangePointMinPoints {
		return out
	}
	window := max(cfg.ChangePointWindow, n/20)
	d := diff(Smooth(vals, window))
	if len(d) == 0 {
		return out
	}
	m, sd := nanMean(d), nanStd(d)
	if sd == 0 || math.IsNaN(sd) {
		return out
	}
	threshold := cfg.ChangePointSigma * sd
	for i, v := range d {
		if math.Abs(v-m) <= threshold {
			continue
		}
		dir := "decrease"
		if v > m {
			dir = "increase"
		}
		out = append(out, ChangePoint{Index: i, Magnitude: Float(v), Direction: dir})
	}
	return out
}

// Phases segments the smoothed gradient into increasing, decreasing and
// stationary runs and keeps runs of at least PhaseMinLength samples.
func Phases(cfg Config, t, vals []float64) []Phase {
	out := []Phase{}
	n := len(vals)
	minLen := cfg.PhaseMinLength
	if n < minLen*2 {
		return out
	}
	window := max(cfg.PhaseWindow, n/20)
	grad := gradient(Smooth(vals, window))
	threshold := popStd(grad) * cfg.PhaseThreshold

	classify := func(d float64) string {
		switch {
		case d > threshold:
			return "increasing"
		case d < -threshold:
			return "decreasing"
		default:
			return "stationary"
		}
	}
	emit := func(kind string, start, end int) {
		out = append(out, Phase{
			PhaseType:  kind,
			StartIndex: start,
			EndIndex:   end,
			StartTime:  Float(t[start]),
			EndTime:    Float(t[end]),
			Duration:   Float(t[end] - t[start]),
			MeanRate:   Float(nanMean(grad[start : end+1])),
		})
	}
	current, start := "", 0
	for i, d := range grad {
		kind := classify(d)
		if kind == current {
			continue
		}
		if current != "" && i-start >= minLen {
			emit(current, start, i-1)
		}
		current, start = kind, i
	}
	if current != "" && len(grad)-start >= minLen {
		emit(current, start, len(grad)-1)
	}
	return out
}

// GrowthMetrics treats a series as growth-like when more than GrowthRatio
// of its steps are positive.
func GrowthMetrics(cfg Config, t, vals []float64) Growth {
	if len(vals) < cfg.MinTemporalPoints {
		return Growth{IsGrowthLike: false}
	}
	d := diff(vals)
	pos := 0
	for _, v := range d {
		if v > 0 {
			pos++
		}
	}
	ratio := float64(pos) / float64(len(d))
	if ratio <= cfg.GrowthRatio {
		return Growth{IsGrowthLike: false, MonotonicityRatio: fptr(ratio)}
	}
	slopes := dropNaN(derivative(t, vals))
	g := Growth{IsGrowthLike: true, MonotonicityRatio: fptr(ratio)}
	if len(slopes) == 0 {
		return g
	}
	m, sd := mean(slopes), popStd(slopes)
	stability := 0.0
	if m != 0 {
		stability = 1 - math.Min(1, sd/math.Abs(m))
	}
	g.MaxSlope = fptr(nanMax(slopes))
	g.MeanSlope = fptr(m)
	g.SlopeStd = fptr(sd)
	g.StabilityScore = fptr(stability)
	return g
}

// LinearTrend fits value against time. |r| below TrendStableR is stable.
func LinearTrend(cfg Config, t, vals []float64) Trend {
	if len(vals) < cfg.MinTemporalPoints {
		return Trend{Available: false}
	}
	fit, ok := linregress(t, vals)
	if !ok {
		return Trend{Available: false}
	}
	return Trend{
		Available: true,
		Direction: direction(cfg, fit, "increasing", "decreasing"),
		Slope:     fptr(fit.Slope),
		RSquared:  fptr(fit.R * fit.R),
		PValue:    fptr(fit.P),
	}
}

func direction(cfg Config, fit regression, up, down string) string {
	switch {
	case math.Abs(fit.R) < cfg.TrendStableR:
		return "stable"
	case fit.Slope > 0:
		return up
	default:
		return down
	}
}

// TemporalProfileOf analyses one batch of a variable. It reports false
// when fewer than MinTemporalPoints (time, value) pairs remain.
func TemporalProfileOf(cfg Config, times, vals []float64) (TemporalProfile, bool) {
	t, v := pairs(times, vals)
	if len(v) < cfg.MinTemporalPoints {
		return TemporalProfile{}, false
	}
	sortByTime(t, v)
	der := derivative(t, v)
	summary := DerivativeSummary{}
	if len(der) > 0 {
		summary = DerivativeSummary{
			Mean: Float(nanMean(der)),
			Max:  Float(nanMax(der)),
			Min:  Float(nanMin(der)),
			Std:  Float(nanStd(der)),
		}
	}
	cps := ChangePoints(cfg, v)
	if len(cps) > cfg.ChangePointLimit {
		cps = cps[:cfg.ChangePointLimit]
	}
	return TemporalProfile{
		Derivative:    summary,
		ChangePoints:  cps,
		Phases:        Phases(cfg, t, v),
		GrowthMetrics: GrowthMetrics(cfg, t, v),
		Trend:         LinearTrend(cfg, t, v),
	}, true
}

// AnalyzeVariableTemporal profiles variable in every partition of f.
func AnalyzeVariableTemporal(cfg Config, f *Frame, variable string) VariableTemporal {
	out := VariableTemporal{Batches: make(map[string]TemporalProfile)}
	for _, p := range f.Partitions {
		prof, ok := TemporalProfileOf(cfg, f.TimesAt(p.Rows), f.Gather(variable, p.Rows))
		if ok {
			out.Batches[p.ID] = prof
		}
	}
	return out
}

// sortByTime orders both slices by t, keeping the original order of equal
// times.
func sortByTime(t, v []float64) {
	idx := make([]int, len(t))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return t[idx[a]] < t[idx[b]] })
	ts := make([]float64, len(t))
	vs := make([]float64, len(v))
	for i, j := range idx {
		ts[i], vs[i] = t[j], v[j]
	}
	copy(t, ts)
	copy(v, vs)
}
