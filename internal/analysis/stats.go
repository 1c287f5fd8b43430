package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// dropNaN returns the values that are not NaN, in order.
func dropNaN(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// pairs keeps the positions where neither x nor y is NaN.
func pairs(x, y []float64) (cx, cy []float64) {
	cx = make([]float64, 0, len(x))
	cy = make([]float64, 0, len(y))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		cx = append(cx, x[i])
		cy = append(cy, y[i])
	}
	return cx, cy
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}

// sampleStd is the n-1 standard deviation; NaN below two values.
func sampleStd(vals []float64) float64 {
	if len(vals) < 2 {
		return math.NaN()
	}
	return stat.StdDev(vals, nil)
}

// popStd is the n standard deviation; NaN when empty.
func popStd(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.PopStdDev(vals, nil)
}

func nanMean(vals []float64) float64 { return mean(dropNaN(vals)) }
func nanStd(vals []float64) float64  { return popStd(dropNaN(vals)) }

func nanMax(vals []float64) float64 {
	v := dropNaN(vals)
	if len(v) == 0 {
		return math.NaN()
	}
	return floats.Max(v)
}

func nanMin(vals []float64) float64 {
	v := dropNaN(vals)
	if len(v) == 0 {
		return math.NaN()
	}
	return floats.Min(v)
}

func diff(vals []float64) []float64 {
	if len(vals) < 2 {
		return nil
	}
	out := make([]float64, len(vals)-1)
	for i := 1; i < len(vals); i++ {
		out[i-1] = vals[i] - vals[i-1]
	}
	return out
}

// derivative is Δv/Δt between consecutive samples; a zero Δt yields NaN.
func derivative(t, v []float64) []float64 {
	if len(t) < 2 {
		return nil
	}
	out := make([]float64, len(t)-1)
	for i := 1; i < len(t); i++ {
		dt := t[i] - t[i-1]
		if dt == 0 {
			out[i-1] = math.NaN()
			continue
		}
		out[i-1] = (v[i] - v[i-1]) / dt
	}
	return out
}

// gradient uses central differences inside and one-sided differences at
// both ends, with unit spacing.
func gradient(vals []float64) []float64 {
	n := len(vals)
	if n < 2 {
		return make([]float64, n)
	}
	out := make([]float64, n)
	out[0] = vals[1] - vals[0]
	out[n-1] = vals[n-1] - vals[n-2]
	for i := 1; i < n-1; i++ {
		out[i] = (vals[i+1] - vals[i-1]) / 2
	}
	return out
}

// uniformFilter is a moving average of width size. The window for sample
// i starts at i-size/2 and indices outside the series are clamped to the
// nearest edge.
func uniformFilter(vals []float64, size int) []float64 {
	n := len(vals)
	out := make([]float64, n)
	if n == 0 || size < 1 {
		copy(out, vals)
		return out
	}
	half := size / 2
	for i := range vals {
		var sum float64
		for k := 0; k < size; k++ {
			j := i - half + k
			if j < 0 {
				j = 0
			} else if j >= n {
				j = n - 1
			}
			sum += vals[j]
		}
		out[i] = sum / float64(size)
	}
	return out
}

// trapezoid integrates y over x with the trapezoidal rule.
func trapezoid(y, x []float64) float64 {
	var area float64
	for i := 1; i < len(y); i++ {
		area += (x[i] - x[i-1]) * (y[i] + y[i-1]) / 2
	}
	return area
}

// pearson returns NaN when fewer than two samples or either side is
// constant.
func pearson(x, y []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return math.NaN()
	}
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

func spearman(x, y []float64) float64 {
	return pearson(ranks(x), ranks(y))
}

// ranks assigns 1-based ranks, averaging ties.
func ranks(vals []float64) []float64 {
	n := len(vals)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return vals[idx[a]] < vals[idx[b]] })
	out := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && vals[idx[j+1]] == vals[idx[i]] {
			j++
		}
		r := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = r
		}
		i = j + 1
	}
	return out
}

// corrPValue is the two-sided p-value of a correlation coefficient under a
// Student-t test with n-2 degrees of freedom.
func corrPValue(r float64, n int) float64 {
	if math.IsNaN(r) || n < 3 {
		return math.NaN()
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/((1-r)*(1+r)))
	return studentTwoSided(t, df)
}

func studentTwoSided(t, df float64) float64 {
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.CDF(-math.Abs(t))
}

type regression struct {
	Slope     float64
	Intercept float64
	R         float64
	P         float64
}

// linregress fits y = intercept + slope·x by least squares. It reports
// false when x has no spread. A constant y gives r = 0.
func linregress(x, y []float64) (regression, bool) {
	n := len(x)
	if n < 3 {
		return regression{}, false
	}
	mx, my := stat.Mean(x, nil), stat.Mean(y, nil)
	var sxx, syy, sxy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}
	if sxx == 0 {
		return regression{}, false
	}
	alpha, beta := stat.LinearRegression(x, y, nil, false)
	r := 0.0
	if syy != 0 {
		r = sxy / math.Sqrt(sxx*syy)
		if r > 1 {
			r = 1
		} else if r < -1 {
			r = -1
		}
	}
	const tiny = 1e-20
	df := float64(n - 2)
	t := r * math.Sqrt(df/((1-r+tiny)*(1+r+tiny)))
	return regression{Slope: beta, Intercept: alpha, R: r, P: studentTwoSided(t, df)}, true
}

// quantile interpolates linearly between closest ranks of sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func sortedCopy(vals []float64) []float64 {
	cp := append([]float64(nil), vals...)
	sort.Float64s(cp)
	return cp
}
