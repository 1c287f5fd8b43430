package analysis

import (
	"math"
	"sort"
)

// lagTieTolerance treats two |r| values this close as equal.
const lagTieTolerance = 1e-12

// Relationship describes one unordered pair of numeric variables.
type Relationship struct {
	VarX                string         `json:"var_x" yaml:"var_x"`
	VarY                string         `json:"var_y" yaml:"var_y"`
	Correlation         Correlation    `json:"correlation" yaml:"correlation"`
	LaggedCorrelation   LagCorrelation `json:"lagged_correlation" yaml:"lagged_correlation"`
	CrossBatchStability Stability      `json:"cross_batch_stability" yaml:"cross_batch_stability"`
}

type CorrStat struct {
	R      Float `json:"r" yaml:"r"`
	PValue Float `json:"p_value" yaml:"p_value"`
}

type Correlation struct {
	Available bool      `json:"available" yaml:"available"`
	Pearson   *CorrStat `json:"pearson,omitempty" yaml:"pearson,omitempty"`
	Spearman  *CorrStat `json:"spearman,omitempty" yaml:"spearman,omitempty"`
	NSamples  int       `json:"n_samples,omitempty" yaml:"n_samples,omitempty"`
}

type LagPoint struct {
	Lag         int   `json:"lag" yaml:"lag"`
	Correlation Float `json:"correlation" yaml:"correlation"`
}

type LagCorrelation struct {
	Available       bool       `json:"available" yaml:"available"`
	BestLag         *int       `json:"best_lag,omitempty" yaml:"best_lag,omitempty"`
	BestCorrelation *Float     `json:"best_correlation,omitempty" yaml:"best_correlation,omitempty"`
	LagProfile      []LagPoint `json:"lag_profile,omitempty" yaml:"lag_profile,omitempty"`
}

// Stability summarises how consistent a pair's correlation is across
// batches.
type Stability struct {
	Available        bool   `json:"available" yaml:"available"`
	MeanCorrelation  *Float `json:"mean_correlation,omitempty" yaml:"mean_correlation,omitempty"`
	StdCorrelation   *Float `json:"std_correlation,omitempty" yaml:"std_correlation,omitempty"`
	ConsistencyScore *Float `json:"consistency_score,omitempty" yaml:"consistency_score,omitempty"`
	IsStable         *bool  `json:"is_stable,omitempty" yaml:"is_stable,omitempty"`
}

// Correlate computes Pearson and Spearman coefficients with p-values on
// the rows where both values are present.
func Correlate(cfg Config, x, y []float64) Correlation {
	cx, cy := pairs(x, y)
	n := len(cx)
	if n < cfg.MinPairSamples {
		return Correlation{Available: false}
	}
	pr := pearson(cx, cy)
	sr := spearman(cx, cy)
	return Correlation{
		Available: true,
		Pearson:   &CorrStat{R: Float(pr), PValue: Float(corrPValue(pr, n))},
		Spearman:  &CorrStat{R: Float(sr), PValue: Float(corrPValue(sr, n))},
		NSamples:  n,
	}
}

// DefaultPairMaxLag is the lag window used when LaggedCorrelation is given
// a non-positive maxLag. The pipeline passes Config.MaxLag.
const DefaultPairMaxLag = 10

// LaggedCorrelation shifts x against y by every lag in [-maxLag, maxLag].
// At a negative lag x leads: x[:n+lag] is paired with y[-lag:]. The best
// lag maximises |r|; on ties the lag closest to zero wins.
func LaggedCorrelation(cfg Config, x, y []float64, maxLag int) LagCorrelation {
	if maxLag <= 0 {
		maxLag = DefaultPairMaxLag
	}
	cx, cy := pairs(x, y)
	n := len(cx)
	if n < maxLag+cfg.MinPairSamples {
		return LagCorrelation{Available: false}
	}
	bestLag, best := 0, 0.0
	profile := []LagPoint{}
	for lag := -maxLag; lag <= maxLag; lag++ {
		var xs, ys []float64
		switch {
		case lag < 0:
			xs, ys = cx[:n+lag], cy[-lag:]
		case lag > 0:
			xs, ys = cx[lag:], cy[:n-lag]
		default:
			xs, ys = cx, cy
		}
		if len(xs) < cfg.MinPairSamples {
			continue
		}
		r := pearson(xs, ys)
		profile = append(profile, LagPoint{Lag: lag, Correlation: Float(r)})
		if math.IsNaN(r) {
			continue
		}
		ar, ab := math.Abs(r), math.Abs(best)
		switch {
		case ar > ab+lagTieTolerance:
			best, bestLag = r, lag
		case math.Abs(ar-ab) <= lagTieTolerance && abs(lag) < abs(bestLag):
			best, bestLag = r, lag
		}
	}
	return LagCorrelation{
		Available:       true,
		BestLag:         &bestLag,
		BestCorrelation: fptr(best),
		LagProfile:      profile,
	}
}

// CorrelationStability needs at least two per-batch coefficients. NaN
// coefficients count toward that minimum but are left out of the mean and
// std.
func CorrelationStability(cfg Config, rs []float64) Stability {
	if len(rs) < 2 {
		return Stability{Available: false}
	}
	m, sd := nanMean(rs), nanStd(rs)
	consistency := 1 - math.Min(1, sd/(math.Abs(m)+0.01))
	stable := consistency > cfg.StableConsistency
	return Stability{
		Available:        true,
		MeanCorrelation:  fptr(m),
		StdCorrelation:   fptr(sd),
		ConsistencyScore: fptr(consistency),
		IsStable:         &stable,
	}
}

// AnalyzePair builds the relationship of x and y over all rows. It reports
// false when the pooled correlation is unavailable or undefined.
func AnalyzePair(cfg Config, f *Frame, x, y string) (Relationship, bool) {
	xv, yv := f.Values(x), f.Values(y)
	corr := Correlate(cfg, xv, yv)
	if !corr.Available || !corr.Pearson.R.Valid() {
		return Relationship{}, false
	}
	rel := Relationship{
		VarX:                x,
		VarY:                y,
		Correlation:         corr,
		LaggedCorrelation:   LaggedCorrelation(cfg, xv, yv, cfg.MaxLag),
		CrossBatchStability: Stability{Available: false},
	}
	if f.HasBatch() {
		var rs []float64
		for _, p := range f.Partitions {
			bc := Correlate(cfg, f.Gather(x, p.Rows), f.Gather(y, p.Rows))
			if bc.Available {
				rs = append(rs, float64(bc.Pearson.R))
			}
		}
		rel.CrossBatchStability = CorrelationStability(cfg, rs)
	}
	return rel, true
}

// candidatePairs lists unordered pairs among the first limit variables in
// column order.
func candidatePairs(vars []string, limit int) [][2]string {
	if len(vars) > limit {
		vars = vars[:limit]
	}
	var out [][2]string
	for i := range vars {
		for j := i + 1; j < len(vars); j++ {
			out = append(out, [2]string{vars[i], vars[j]})
		}
	}
	return out
}

// rankRelationships sorts by |Pearson r| descending, keeping candidate
// order among equals, and truncates to limit.
func rankRelationships(rels []Relationship, limit int) []Relationship {
	sort.SliceStable(rels, func(i, j int) bool {
		return math.Abs(float64(rels[i].Correlation.Pearson.R)) > math.Abs(float64(rels[j].Correlation.Pearson.R))
	})
	if len(rels) > limit {
		rels = rels[:limit]
	}
	return rels
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
