package analysis

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestHistogramClosedLastBin(t *testing.T) {
	d := Histogram([]float64{0, 1, 2, 3, 4, math.NaN()}, 4)
	wantCounts := []int{1, 1, 1, 2}
	wantBins := []float64{0, 1, 2, 3}
	for i := range wantCounts {
		if d.Counts[i] != wantCounts[i] || float64(d.Bins[i]) != wantBins[i] {
			t.Fatalf("bins=%v counts=%v", d.Bins, d.Counts)
		}
	}
	if float64(d.Stats.Median) != 2 || float64(d.Stats.Max) != 4 {
		t.Fatalf("stats = %+v", d.Stats)
	}
}

func TestHistogramConstantAndEmpty(t *testing.T) {
	d := Histogram([]float64{2, 2, 2}, 2)
	if float64(d.Bins[0]) != 1.5 || d.Counts[0] != 0 || d.Counts[1] != 3 {
		t.Fatalf("constant histogram = %+v", d)
	}
	e := Histogram([]float64{math.NaN()}, 20)
	if len(e.Bins) != 0 || len(e.Counts) != 0 {
		t.Fatalf("empty histogram = %+v", e)
	}
}

func TestHistogramNonFiniteRange(t *testing.T) {
	for _, vals := range [][]float64{
		{-1e308, 0, 1e308},
		{1, 2, math.Inf(1)},
		{math.Inf(-1), math.Inf(-1)},
	} {
		d := Histogram(vals, 20)
		if len(d.Bins) != 0 || len(d.Counts) != 0 {
			t.Fatalf("Histogram(%v) = %+v, want no bins", vals, d)
		}
	}
}

func TestComputeMeanTrajectory(t *testing.T) {
	mt := ComputeMeanTrajectory(map[string][]Point{
		"B1": {{Time: 0, Value: 1}, {Time: 1, Value: 3}},
		"B2": {{Time: 0, Value: 3}, {Time: 2, Value: 5}},
	})
	if !mt.Available || mt.NTimePoints != 3 {
		t.Fatalf("trajectory = %+v", mt)
	}
	first := mt.Trajectory[0]
	if float64(first.Mean) != 2 || float64(first.Std) != 1 || first.NBatches != 2 {
		t.Fatalf("t=0 point = %+v", first)
	}
	if last := mt.Trajectory[2]; float64(last.Time) != 2 || last.NBatches != 1 {
		t.Fatalf("t=2 point = %+v", last)
	}
	if empty := ComputeMeanTrajectory(nil); empty.Available {
		t.Fatalf("empty trajectory = %+v", empty)
	}
}

func TestSeriesSortedByTime(t *testing.T) {
	pts := series([]float64{2, 0, math.NaN(), 1}, []float64{20, 0, 5, math.NaN()})
	if len(pts) != 2 || float64(pts[0].Time) != 0 || float64(pts[1].Value) != 20 {
		t.Fatalf("series = %+v", pts)
	}
}

func TestFloatMarshalsNonFiniteAsNull(t *testing.T) {
	b, err := json.Marshal(map[string]Float{"a": Float(math.NaN()), "b": 1.5, "c": Float(math.Inf(1))})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"a":null,"b":1.5,"c":null}` {
		t.Fatalf("json = %s", b)
	}
	y, err := yaml.Marshal(map[string]Float{"a": Float(math.NaN()), "b": 2})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(y), "a: null") || !strings.Contains(string(y), "b: 2") {
		t.Fatalf("yaml = %s", y)
	}
}
