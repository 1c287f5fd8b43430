package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PlotReady carries series already shaped for charting.
type PlotReady struct {
	TimeSeries       map[string][]Point            `json:"time_series" yaml:"time_series"`
	BatchSeries      map[string]map[string][]Point `json:"batch_series" yaml:"batch_series"`
	Distributions    map[string]Distribution       `json:"distributions" yaml:"distributions"`
	Correlations     []PairCorrelation             `json:"correlations" yaml:"correlations"`
	MeanTrajectories map[string]MeanTrajectory     `json:"mean_trajectories" yaml:"mean_trajectories"`
}

type Point struct {
	Time  Float `json:"time" yaml:"time"`
	Value Float `json:"value" yaml:"value"`
}

// Distribution is a fixed-width histogram; Bins are the left edges.
type Distribution struct {
	Bins   []Float   `json:"bins" yaml:"bins"`
	Counts []int     `json:"counts" yaml:"counts"`
	Stats  DistStats `json:"stats" yaml:"stats"`
}

type DistStats struct {
	Mean   Float `json:"mean" yaml:"mean"`
	Median Float `json:"median" yaml:"median"`
	Std    Float `json:"std" yaml:"std"`
	Min    Float `json:"min" yaml:"min"`
	Max    Float `json:"max" yaml:"max"`
}

type PairCorrelation struct {
	VarX string `json:"var_x" yaml:"var_x"`
	VarY string `json:"var_y" yaml:"var_y"`
	R    Float  `json:"r" yaml:"r"`
}

// MeanTrajectory aggregates a variable across batches at each distinct
// time.
type MeanTrajectory struct {
	Available   bool              `json:"available" yaml:"available"`
	Trajectory  []TrajectoryPoint `json:"trajectory,omitempty" yaml:"trajectory,omitempty"`
	NTimePoints int               `json:"n_time_points" yaml:"n_time_points"`
}

type TrajectoryPoint struct {
	Time     Float `json:"time" yaml:"time"`
	Mean     Float `json:"mean" yaml:"mean"`
	Std      Float `json:"std" yaml:"std"`
	Min      Float `json:"min" yaml:"min"`
	Max      Float `json:"max" yaml:"max"`
	NBatches int   `json:"n_batches" yaml:"n_batches"`
}

// series pairs times with values, drops incomplete points and sorts by
// time keeping row order among equal times.
func series(times, vals []float64) []Point {
	t, v := pairs(times, vals)
	sortByTime(t, v)
	out := make([]Point, len(t))
	for i := range t {
		out[i] = Point{Time: Float(t[i]), Value: Float(v[i])}
	}
	return out
}

// Histogram counts vals into bins equal-width bins spanning [min, max];
// the last bin is closed. A constant series spans [v-0.5, v+0.5]. A range
// that is not finite yields no bins.
func Histogram(vals []float64, bins int) Distribution {
	data := sortedCopy(dropNaN(vals))
	if len(data) == 0 || bins < 1 {
		return Distribution{Bins: []Float{}, Counts: []int{}}
	}
	lo, hi := data[0], data[len(data)-1]
	if math.IsInf(hi-lo, 0) || math.IsNaN(hi-lo) {
		return Distribution{Bins: []Float{}, Counts: []int{}}
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	edges := make([]float64, bins+1)
	floats.Span(edges, lo, hi)
	dividers := append([]float64(nil), edges...)
	dividers[bins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, data, nil)

	d := Distribution{Bins: make([]Float, bins), Counts: make([]int, bins)}
	for i := 0; i < bins; i++ {
		d.Bins[i] = Float(edges[i])
		d.Counts[i] = int(counts[i])
	}
	d.Stats = DistStats{
		Mean:   Float(mean(data)),
		Median: Float(quantile(data, 0.5)),
		Std:    Float(sampleStd(data)),
		Min:    Float(data[0]),
		Max:    Float(data[len(data)-1]),
	}
	return d
}

// PairwiseCorrelations lists the Pearson r of every pair i<j of variables
// over rows where both are present; undefined coefficients are skipped.
func PairwiseCorrelations(f *Frame, vars []string) []PairCorrelation {
	out := []PairCorrelation{}
	for i := range vars {
		for j := i + 1; j < len(vars); j++ {
			x, y := pairs(f.Values(vars[i]), f.Values(vars[j]))
			r := pearson(x, y)
			if math.IsNaN(r) {
				continue
			}
			out = append(out, PairCorrelation{VarX: vars[i], VarY: vars[j], R: Float(r)})
		}
	}
	return out
}

// ComputeMeanTrajectory combines per-batch series point-wise on exactly
// equal times.
func ComputeMeanTrajectory(batches map[string][]Point) MeanTrajectory {
	byTime := make(map[float64][]float64)
	for _, pts := range batches {
		for _, p := range pts {
			byTime[float64(p.Time)] = append(byTime[float64(p.Time)], float64(p.Value))
		}
	}
	if len(byTime) == 0 {
		return MeanTrajectory{Available: false}
	}
	times := make([]float64, 0, len(byTime))
	for t := range byTime {
		times = append(times, t)
	}
	sort.Float64s(times)
	traj := make([]TrajectoryPoint, 0, len(times))
	for _, t := range times {
		vals := byTime[t]
		traj = append(traj, TrajectoryPoint{
			Time:     Float(t),
			Mean:     Float(mean(vals)),
			Std:      Float(popStd(vals)),
			Min:      Float(floats.Min(vals)),
			Max:      Float(floats.Max(vals)),
			NBatches: len(vals),
		})
	}
	return MeanTrajectory{Available: true, Trajectory: traj, NTimePoints: len(traj)}
}

// variablePlot is the per-variable part of the plot block.
type variablePlot struct {
	timeSeries   []Point
	batchSeries  map[string][]Point
	distribution *Distribution
	trajectory   *MeanTrajectory
}

func plotVariable(cfg Config, f *Frame, variable string) variablePlot {
	var vp variablePlot
	vals := f.Values(variable)
	if f.HasTime() {
		vp.timeSeries = series(f.Time, vals)
		if f.HasBatch() {
			vp.batchSeries = make(map[string][]Point, len(f.Partitions))
			for _, p := range f.Partitions {
				if pts := series(f.TimesAt(p.Rows), f.Gather(variable, p.Rows)); len(pts) > 0 {
					vp.batchSeries[p.ID] = pts
				}
			}
			mt := ComputeMeanTrajectory(vp.batchSeries)
			vp.trajectory = &mt
		}
	}
	if len(dropNaN(vals)) > 0 {
		d := Histogram(vals, cfg.HistogramBins)
		vp.distribution = &d
	}
	return vp
}
