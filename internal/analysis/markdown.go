package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Markdown renders a compact, human-readable digest of the report.
func (r *Report) Markdown() string {
	var b strings.Builder
	ov := r.Overview
	b.WriteString("[DATASET SUMMARY]\n")
	if ov.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", ov.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", ov.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n", ov.Columns))
	if ov.TimeColumn != nil {
		b.WriteString(fmt.Sprintf("Time column: %s", safeName(*ov.TimeColumn)))
		if ov.Duration != nil {
			b.WriteString(fmt.Sprintf(" (span %s)", num(ov.Duration.Span)))
		}
		b.WriteString("\n")
	}
	if ov.BatchColumn != nil {
		b.WriteString(fmt.Sprintf("Batch column: %s (%d batches)\n", safeName(*ov.BatchColumn), ov.BatchCount))
	}
	b.WriteString("\n[VARIABLES]\n")
	for _, name := range ov.NumericVariables {
		label := safeName(name)
		if u := ov.Units[name]; u != "" {
			label = fmt.Sprintf("%s [%s]", label, u)
		}
		b.WriteString(fmt.Sprintf("- %s: numeric\n", label))
	}
	for _, name := range ov.CategoricalVariables {
		b.WriteString(fmt.Sprintf("- %s: categorical\n", safeName(name)))
	}

	b.WriteString("\n[QUALITY]\n")
	b.WriteString(fmt.Sprintf("Score: %s/100\n", num(r.Quality.Overall.Score)))
	if len(r.Quality.Overall.Flags) > 0 {
		b.WriteString(fmt.Sprintf("Flags: %s\n", strings.Join(r.Quality.Overall.Flags, ", ")))
	}
	for _, v := range r.Quality.Variables {
		b.WriteString(fmt.Sprintf("- %s: %s, missing %.1f%%", safeName(v.Variable), v.Density.Type, float64(v.MissingPct)))
		if v.Stats.Mean.Valid() {
			b.WriteString(fmt.Sprintf(", mean %s, std %s", num(v.Stats.Mean), num(v.Stats.Std)))
		}
		if v.Outliers.Available && v.Outliers.Count > 0 {
			b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", v.Outliers.Count, float64(v.Outliers.Threshold)))
		}
		b.WriteString("\n")
	}
	if flat := flaggedVariables(r.Quality, func(v VariableQuality) bool { return v.Flatline.IsFlatlined }); len(flat) > 0 {
		b.WriteString(fmt.Sprintf("Flatlined: %s\n", strings.Join(flat, ", ")))
	}
	if off := flaggedVariables(r.Quality, func(v VariableQuality) bool { return v.Density.Type == "offline" }); len(off) > 0 {
		b.WriteString(fmt.Sprintf("Offline: %s\n", strings.Join(off, ", ")))
	}

	if r.Temporal.Available && len(r.Temporal.Variables) > 0 {
		b.WriteString("\n[TRENDS]\n")
		for _, name := range sortedKeys(r.Temporal.Variables) {
			vt := r.Temporal.Variables[name]
			var parts []string
			for _, id := range sortedKeys(vt.Batches) {
				p := vt.Batches[id]
				if !p.Trend.Available {
					continue
				}
				s := fmt.Sprintf("%s=%s", safeVal(id), p.Trend.Direction)
				if p.GrowthMetrics.IsGrowthLike {
					s += " (growth)"
				}
				parts = append(parts, s)
			}
			if len(parts) > 0 {
				b.WriteString(fmt.Sprintf("- %s: %s\n", safeName(name), strings.Join(parts, ", ")))
			}
		}
	}

	if len(r.Relationships) > 0 {
		b.WriteString("\n[RELATIONSHIPS]\n")
		lim := min(10, len(r.Relationships))
		for _, rel := range r.Relationships[:lim] {
			pr := rel.Correlation.Pearson
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f", safeName(rel.VarX), safeName(rel.VarY), float64(pr.R)))
			if lc := rel.LaggedCorrelation; lc.Available && lc.BestLag != nil && *lc.BestLag != 0 {
				b.WriteString(fmt.Sprintf(", best lag %d", *lc.BestLag))
			}
			if st := rel.CrossBatchStability; st.Available && st.IsStable != nil && !*st.IsStable {
				b.WriteString(", unstable across batches")
			}
			b.WriteString("\n")
		}
	}

	if bc := r.BatchComparison; bc.Available {
		b.WriteString("\n[BATCHES]\n")
		b.WriteString(fmt.Sprintf("Order: %s\n", strings.Join(bc.BatchOrder, ", ")))
		for _, name := range sortedKeys(bc.Variables) {
			vb := bc.Variables[name]
			line := fmt.Sprintf("- %s: CV %.1f%%", safeName(name), float64(vb.VarianceAnalysis.CV))
			if top := vb.Rankings[MetricIntegrated]; len(top) > 0 {
				line += fmt.Sprintf(", top integrated %s", safeVal(top[0].BatchID))
			}
			if len(vb.OutlierBatches) > 0 {
				line += fmt.Sprintf(", outliers %s", strings.Join(vb.OutlierBatches, ", "))
			}
			b.WriteString(line + "\n")
		}
	} else if bc.Reason != "" {
		b.WriteString(fmt.Sprintf("\n[BATCHES]\nUnavailable: %s\n", bc.Reason))
	}

	if gs := r.GlobalScores; gs.Available && gs.OverallAssessment != nil && gs.OverallAssessment.Available {
		a := gs.OverallAssessment
		b.WriteString("\n[ASSESSMENT]\n")
		b.WriteString(fmt.Sprintf("Overall: %s (improving %d, degrading %d, stable %d)\n",
			a.Trend, a.ImprovingVariables, a.DegradingVariables, a.StableVariables))
	}
	return b.String()
}

func num(f Float) string {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.4g", v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
