package analysis

import (
	"encoding/json"
	"math"
)

// GlobalScores aggregates batch metrics into dataset-level verdicts.
type GlobalScores struct {
	Available         bool                  `json:"available" yaml:"available"`
	BestBatches       []BestBatch           `json:"best_batches" yaml:"best_batches"`
	BatchTrends       map[string]BatchTrend `json:"batch_trends" yaml:"batch_trends"`
	OverallAssessment *Assessment           `json:"overall_assessment,omitempty" yaml:"overall_assessment,omitempty"`
}

type globalScoresFields GlobalScores

// encoded drops everything but the flag when unavailable and otherwise
// keeps both collections, empty or not.
func (g GlobalScores) encoded() any {
	if !g.Available {
		return unavailableBlock{}
	}
	if g.BestBatches == nil {
		g.BestBatches = []BestBatch{}
	}
	if g.BatchTrends == nil {
		g.BatchTrends = map[string]BatchTrend{}
	}
	return globalScoresFields(g)
}

func (g GlobalScores) MarshalJSON() ([]byte, error) { return json.Marshal(g.encoded()) }
func (g GlobalScores) MarshalYAML() (interface{}, error) { return g.encoded(), nil }

type BestBatch struct {
	Variable  string `json:"variable" yaml:"variable"`
	Metric    string `json:"metric" yaml:"metric"`
	BestBatch string `json:"best_batch" yaml:"best_batch"`
	Value     Float  `json:"value" yaml:"value"`
	Score     Float  `json:"score" yaml:"score"`
}

// BatchTrend is the least-squares trend of a metric over batch order.
type BatchTrend struct {
	Available bool   `json:"available" yaml:"available"`
	Trend     string `json:"trend,omitempty" yaml:"trend,omitempty"`
	Slope     *Float `json:"slope,omitempty" yaml:"slope,omitempty"`
	RSquared  *Float `json:"r_squared,omitempty" yaml:"r_squared,omitempty"`
	PValue    *Float `json:"p_value,omitempty" yaml:"p_value,omitempty"`
	MeanValue *Float `json:"mean_value,omitempty" yaml:"mean_value,omitempty"`
	StdValue  *Float `json:"std_value,omitempty" yaml:"std_value,omitempty"`
}

type Assessment struct {
	Available          bool   `json:"available" yaml:"available"`
	Trend              string `json:"trend,omitempty" yaml:"trend,omitempty"`
	ImprovingVariables int    `json:"improving_variables" yaml:"improving_variables"`
	DegradingVariables int    `json:"degrading_variables" yaml:"degrading_variables"`
	StableVariables    int    `json:"stable_variables" yaml:"stable_variables"`
}

// BestBatchPerMetric picks, for every ranked metric, the batch with the
// largest value. The first maximum in batch order wins; NaN never wins.
func BestBatchPerMetric(metrics map[string]BatchMetrics, order []string, variable string) []BestBatch {
	var out []BestBatch
	for _, metric := range RankedMetrics {
		best, bestVal, found := "", 0.0, false
		for _, id := range order {
			bm, ok := metrics[id]
			if !ok {
				continue
			}
			v, ok := bm.Metric(metric)
			if !ok || math.IsNaN(v) {
				continue
			}
			if !found || v > bestVal {
				best, bestVal, found = id, v, true
			}
		}
		if found {
			out = append(out, BestBatch{Variable: variable, Metric: metric, BestBatch: best, Value: Float(bestVal), Score: 1})
		}
	}
	return out
}

// BatchSequenceTrend regresses metric on batch position.
func BatchSequenceTrend(cfg Config, metrics map[string]BatchMetrics, order []string, metric string) BatchTrend {
	var vals []float64
	for _, id := range order {
		bm, ok := metrics[id]
		if !ok {
			continue
		}
		if v, ok := bm.Metric(metric); ok {
			vals = append(vals, v)
		}
	}
	if len(vals) < cfg.MinTrendBatches {
		return BatchTrend{Available: false}
	}
	pos := make([]float64, len(vals))
	for i := range pos {
		pos[i] = float64(i)
	}
	fit, ok := linregress(pos, vals)
	if !ok {
		return BatchTrend{Available: false}
	}
	return BatchTrend{
		Available: true,
		Trend:     direction(cfg, fit, "improving", "degrading"),
		Slope:     fptr(fit.Slope),
		RSquared:  fptr(fit.R * fit.R),
		PValue:    fptr(fit.P),
		MeanValue: fptr(mean(vals)),
		StdValue:  fptr(popStd(vals)),
	}
}

// Assess takes a majority vote over variable trends; ties are stable.
func Assess(trends []BatchTrend) *Assessment {
	if len(trends) == 0 {
		return &Assessment{Available: false}
	}
	a := &Assessment{Available: true}
	for _, t := range trends {
		switch t.Trend {
		case "improving":
			a.ImprovingVariables++
		case "degrading":
			a.DegradingVariables++
		}
	}
	a.StableVariables = len(trends) - a.ImprovingVariables - a.DegradingVariables
	switch {
	case a.ImprovingVariables > a.DegradingVariables:
		a.Trend = "improving"
	case a.DegradingVariables > a.ImprovingVariables:
		a.Trend = "degrading"
	default:
		a.Trend = "stable"
	}
	return a
}

// globalBatchMetrics computes metrics for batches with more than
// GlobalMinSamples paired (time, value) samples.
func globalBatchMetrics(cfg Config, f *Frame, variable string) map[string]BatchMetrics {
	out := make(map[string]BatchMetrics, len(f.Partitions))
	for _, p := range f.Partitions {
		t, v := batchSeries(f, p, variable)
		t, v = pairs(t, v)
		if len(v) <= cfg.GlobalMinSamples {
			continue
		}
		out[p.ID] = ComputeBatchMetrics(cfg, t, v)
	}
	return out
}

// variableGlobal is the per-variable part of the global scores.
type variableGlobal struct {
	best  []BestBatch
	trend BatchTrend
}

func analyzeVariableGlobal(cfg Config, f *Frame, variable string) variableGlobal {
	metrics := globalBatchMetrics(cfg, f, variable)
	return variableGlobal{
		best:  BestBatchPerMetric(metrics, f.Batches, variable),
		trend: BatchSequenceTrend(cfg, metrics, f.Batches, MetricIntegrated),
	}
}
