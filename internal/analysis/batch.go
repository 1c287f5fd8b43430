package analysis

import (
	"encoding/json"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Metric names shared by rankings and global scores.
const (
	MetricMax        = "max_value"
	MetricIntegrated = "integrated_value"
	MetricMeanRate   = "mean_rate"
	MetricStability  = "rate_stability"
)

// RankedMetrics are ranked for every variable, in this order.
var RankedMetrics = []string{MetricMax, MetricIntegrated, MetricMeanRate, MetricStability}

// Integration methods.
const (
	IntegrationTrapezoid = "trapezoid"
	// IntegrationSum is the degraded mode used without a time axis: the
	// plain sum of values, which is not a true integral.
	IntegrationSum = "sum"
)

// BatchComparison compares batches for every numeric variable.
type BatchComparison struct {
	Available  bool                               `json:"available" yaml:"available"`
	Reason     string                             `json:"reason,omitempty" yaml:"reason,omitempty"`
	BatchCount int                                `json:"batch_count" yaml:"batch_count"`
	BatchOrder []string                           `json:"batch_order" yaml:"batch_order"`
	Variables  map[string]VariableBatchComparison `json:"variables" yaml:"variables"`
}

type batchComparisonFields BatchComparison

func (b BatchComparison) encoded() any {
	if !b.Available {
		return unavailableBlock{Reason: b.Reason}
	}
	if b.BatchOrder == nil {
		b.BatchOrder = []string{}
	}
	if b.Variables == nil {
		b.Variables = map[string]VariableBatchComparison{}
	}
	return batchComparisonFields(b)
}

func (b BatchComparison) MarshalJSON() ([]byte, error) { return json.Marshal(b.encoded()) }
func (b BatchComparison) MarshalYAML() (interface{}, error) { return b.encoded(), nil }

type VariableBatchComparison struct {
	BatchMetrics     map[string]BatchMetrics `json:"batch_metrics" yaml:"batch_metrics"`
	Rankings         map[string][]Ranking    `json:"rankings" yaml:"rankings"`
	OutlierBatches   []string                `json:"outlier_batches" yaml:"outlier_batches"`
	VarianceAnalysis VarianceAnalysis        `json:"variance_analysis" yaml:"variance_analysis"`
}

// BatchMetrics aggregates one variable within one batch.
type BatchMetrics struct {
	Available         bool   `json:"available" yaml:"available"`
	MaxValue          Float  `json:"max_value" yaml:"max_value"`
	MinValue          Float  `json:"min_value" yaml:"min_value"`
	MeanValue         Float  `json:"mean_value" yaml:"mean_value"`
	FinalValue        Float  `json:"final_value" yaml:"final_value"`
	IntegratedValue   Float  `json:"integrated_value" yaml:"integrated_value"`
	IntegrationMethod string `json:"integration_method,omitempty" yaml:"integration_method,omitempty"`
	MaxRate           Float  `json:"max_rate" yaml:"max_rate"`
	MeanRate          Float  `json:"mean_rate" yaml:"mean_rate"`
	RateStability     Float  `json:"rate_stability" yaml:"rate_stability"`
}

// Metric returns the named metric; false when the batch is unavailable or
// the name is unknown.
func (m BatchMetrics) Metric(name string) (float64, bool) {
	if !m.Available {
		return 0, false
	}
	switch name {
	case MetricMax:
		return float64(m.MaxValue), true
	case MetricIntegrated:
		return float64(m.IntegratedValue), true
	case MetricMeanRate:
		return float64(m.MeanRate), true
	case MetricStability:
		return float64(m.RateStability), true
	}
	return 0, false
}

type Ranking struct {
	BatchID         string `json:"batch_id" yaml:"batch_id"`
	Value           Float  `json:"value" yaml:"value"`
	Rank            int    `json:"rank" yaml:"rank"`
	NormalizedScore Float  `json:"normalized_score" yaml:"normalized_score"`
}

// VarianceAnalysis summarises integrated values across batches; CV is a
// percentage.
type VarianceAnalysis struct {
	Mean Float `json:"mean" yaml:"mean"`
	Std  Float `json:"std" yaml:"std"`
	CV   Float `json:"cv" yaml:"cv"`
}

func unavailableMetrics() BatchMetrics {
	nan := Float(math.NaN())
	return BatchMetrics{
		Available: false, MaxValue: nan, MinValue: nan, MeanValue: nan, FinalValue: nan,
		IntegratedValue: nan, MaxRate: nan, MeanRate: nan, RateStability: nan,
	}
}

// ComputeBatchMetrics aggregates time-sorted values of one batch. NaN
// values are dropped together with their times. A nil times slice selects
// the summed fallback and sample positions stand in for time in the rate.
func ComputeBatchMetrics(cfg Config, times, vals []float64) BatchMetrics {
	if len(vals) < cfg.MinBatchValues {
		return unavailableMetrics()
	}
	aligned := times != nil && len(times) == len(vals)
	var vt, vv []float64
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		vv = append(vv, v)
		if aligned {
			vt = append(vt, times[i])
		} else {
			vt = append(vt, float64(len(vt)))
		}
	}
	if len(vv) < cfg.MinBatchValues {
		return unavailableMetrics()
	}
	m := BatchMetrics{
		Available:  true,
		MaxValue:   Float(floats.Max(vv)),
		MinValue:   Float(floats.Min(vv)),
		MeanValue:  Float(mean(vv)),
		FinalValue: Float(vv[len(vv)-1]),
	}
	if aligned {
		m.IntegratedValue = Float(trapezoid(vv, vt))
		m.IntegrationMethod = IntegrationTrapezoid
	} else {
		m.IntegratedValue = Float(floats.Sum(vv))
		m.IntegrationMethod = IntegrationSum
	}
	rates := dropNaN(derivative(vt, vv))
	if len(rates) == 0 {
		// every time step was zero; rates report 0
		return m
	}
	rm := mean(rates)
	m.MaxRate = Float(floats.Max(rates))
	m.MeanRate = Float(rm)
	m.RateStability = Float(1 - math.Min(1, popStd(rates)/(math.Abs(rm)+0.001)))
	return m
}

// RankBatches orders batches by metric. Equal values keep batch order;
// NaN values rank last. Rank 1 scores 1.0 and the last rank 0.0.
func RankBatches(metrics map[string]BatchMetrics, order []string, metric string, higherIsBetter bool) []Ranking {
	out := []Ranking{}
	for _, id := range order {
		bm, ok := metrics[id]
		if !ok {
			continue
		}
		if v, ok := bm.Metric(metric); ok {
			out = append(out, Ranking{BatchID: id, Value: Float(v)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := float64(out[i].Value), float64(out[j].Value)
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		if math.IsNaN(a) {
			return false
		}
		if higherIsBetter {
			return a > b
		}
		return a < b
	})
	n := len(out)
	for i := range out {
		out[i].Rank = i + 1
		out[i].NormalizedScore = 1
		if n > 1 {
			out[i].NormalizedScore = Float(1 - float64(i)/float64(n-1))
		}
	}
	return out
}

// DetectOutlierBatches applies Tukey fences to metric across batches. Fewer
// than MinOutlierBatches values never yield outliers.
func DetectOutlierBatches(cfg Config, metrics map[string]BatchMetrics, order []string, metric string) []string {
	out := []string{}
	var ids []string
	var vals []float64
	for _, id := range order {
		bm, ok := metrics[id]
		if !ok {
			continue
		}
		if v, ok := bm.Metric(metric); ok && !math.IsNaN(v) {
			ids = append(ids, id)
			vals = append(vals, v)
		}
	}
	if len(vals) < cfg.MinOutlierBatches {
		return out
	}
	sorted := sortedCopy(vals)
	q1, q3 := quantile(sorted, 0.25), quantile(sorted, 0.75)
	iqr := q3 - q1
	lo, hi := q1-cfg.TukeyK*iqr, q3+cfg.TukeyK*iqr
	for i, v := range vals {
		if v < lo || v > hi {
			out = append(out, ids[i])
		}
	}
	return out
}

// ComputeVariance summarises integrated values over every batch entry;
// unavailable batches count as zero.
func ComputeVariance(metrics map[string]BatchMetrics, order []string) VarianceAnalysis {
	var vals []float64
	for _, id := range order {
		bm, ok := metrics[id]
		if !ok {
			continue
		}
		v, ok := bm.Metric(MetricIntegrated)
		if !ok {
			v = 0
		}
		vals = append(vals, v)
	}
	if len(vals) == 0 {
		return VarianceAnalysis{}
	}
	m, sd := mean(vals), popStd(vals)
	cv := 0.0
	if m != 0 {
		cv = sd / m * 100
	}
	return VarianceAnalysis{Mean: Float(m), Std: Float(sd), CV: Float(cv)}
}

// batchSeries returns the time-sorted (time, value) series of variable in
// partition p, dropping rows with an unparseable time. Without a time
// column the position within the batch is the time.
func batchSeries(f *Frame, p Partition, variable string) ([]float64, []float64) {
	vals := f.Gather(variable, p.Rows)
	var times []float64
	if f.HasTime() {
		times = f.TimesAt(p.Rows)
	} else {
		times = make([]float64, len(p.Rows))
		for i := range times {
			times[i] = float64(i)
		}
	}
	var t, v []float64
	for i := range times {
		if math.IsNaN(times[i]) {
			continue
		}
		t = append(t, times[i])
		v = append(v, vals[i])
	}
	sortByTime(t, v)
	return t, v
}

// AnalyzeVariableBatches computes per-batch metrics, rankings, outliers and
// variance for one variable.
func AnalyzeVariableBatches(cfg Config, f *Frame, variable string) VariableBatchComparison {
	metrics := make(map[string]BatchMetrics, len(f.Partitions))
	for _, p := range f.Partitions {
		t, v := batchSeries(f, p, variable)
		if len(v) == 0 {
			continue
		}
		metrics[p.ID] = ComputeBatchMetrics(cfg, t, v)
	}
	rankings := make(map[string][]Ranking, len(RankedMetrics))
	for _, m := range RankedMetrics {
		rankings[m] = RankBatches(metrics, f.Batches, m, true)
	}
	return VariableBatchComparison{
		BatchMetrics:     metrics,
		Rankings:         rankings,
		OutlierBatches:   DetectOutlierBatches(cfg, metrics, f.Batches, MetricIntegrated),
		VarianceAnalysis: ComputeVariance(metrics, f.Batches),
	}
}
