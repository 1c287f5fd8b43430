package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/insight-layer/internal/dataset"
)

func biomassRuns() *dataset.Dataset {
	var rows [][]string
	for _, id := range []string{"B1", "B2"} {
		for i := 0; i < 20; i++ {
			rows = append(rows, []string{id, fmt.Sprint(i), fmt.Sprint(0.2 + float64(i)*float64(i)*0.05)})
		}
	}
	return dataset.New("biomass.csv", []string{"Batch", "Hour", "Biomass"}, rows)
}

func TestAnalyzeBiomassScenario(t *testing.T) {
	rep, err := New(DefaultConfig(), WithLogger(zap.NewNop())).Analyze(context.Background(), biomassRuns())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	ov := rep.Overview
	if ov.BatchCount != 2 || !ov.IsMultiBatch {
		t.Fatalf("overview = %+v", ov)
	}
	if *ov.BatchColumn != "Batch" || *ov.TimeColumn != "Hour" {
		t.Fatalf("roles = %v / %v", *ov.BatchColumn, *ov.TimeColumn)
	}
	if ov.Duration == nil || float64(ov.Duration.Span) != 19 {
		t.Fatalf("duration = %+v", ov.Duration)
	}
	vt := rep.Temporal.Variables["Biomass"]
	for _, id := range []string{"B1", "B2"} {
		prof, ok := vt.Batches[id]
		if !ok || !prof.GrowthMetrics.IsGrowthLike {
			t.Fatalf("batch %s growth = %+v", id, prof.GrowthMetrics)
		}
	}
	if !rep.BatchComparison.Available || rep.BatchComparison.BatchCount != 2 {
		t.Fatalf("batch comparison = %+v", rep.BatchComparison)
	}
	trend, ok := rep.GlobalScores.BatchTrends["Biomass"]
	if !ok || trend.Available {
		t.Fatalf("global trend = %+v", trend)
	}
	if len(rep.Relationships) != 0 {
		t.Fatalf("relationships = %+v", rep.Relationships)
	}
	if mt := rep.PlotReady.MeanTrajectories["Biomass"]; !mt.Available || mt.NTimePoints != 20 {
		t.Fatalf("mean trajectory = %+v", mt)
	}
}

func TestAnalyzeReportShape(t *testing.T) {
	rep, err := New(DefaultConfig()).Analyze(context.Background(), fermentation([]string{"B1", "B2", "B3"}, 8))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	b, err := json.Marshal(rep)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(b, &top); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"overview", "quality", "temporal", "relationships", "batch_comparison", "global_scores", "plot_ready"} {
		if _, ok := top[k]; !ok {
			t.Fatalf("missing key %q in %s", k, b)
		}
	}
	if len(rep.Relationships) != 1 || rep.Relationships[0].VarX != "Biomass" {
		t.Fatalf("relationships = %+v", rep.Relationships)
	}
	if len(rep.PlotReady.BatchSeries) != 3 {
		t.Fatalf("batch series = %d", len(rep.PlotReady.BatchSeries))
	}
}

func TestAnalyzeWithoutBatchColumn(t *testing.T) {
	var rows [][]string
	for i := 0; i < 12; i++ {
		rows = append(rows, []string{fmt.Sprint(i), fmt.Sprint(i * 2), fmt.Sprint(-i)})
	}
	ds := dataset.New("plain.csv", []string{"Minute", "OD", "pH"}, rows)
	rep, err := New(DefaultConfig()).Analyze(context.Background(), ds)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rep.BatchComparison.Available || rep.BatchComparison.Reason != "" || rep.GlobalScores.Available {
		t.Fatalf("batch blocks = %+v / %+v", rep.BatchComparison, rep.GlobalScores)
	}
	if rep.Overview.BatchCount != 1 || rep.Overview.IsMultiBatch || rep.Overview.BatchColumn != nil {
		t.Fatalf("overview = %+v", rep.Overview)
	}
	if _, ok := rep.Temporal.Variables["OD"].Batches[AllBatches]; !ok {
		t.Fatalf("temporal = %+v", rep.Temporal)
	}
	if len(rep.Relationships) != 1 || *rep.Relationships[0].LaggedCorrelation.BestLag != 0 {
		t.Fatalf("relationships = %+v", rep.Relationships)
	}
	if len(rep.PlotReady.MeanTrajectories) != 0 || len(rep.PlotReady.BatchSeries) != 0 {
		t.Fatalf("plot ready = %+v", rep.PlotReady)
	}
}

func TestAnalyzeSingleBatch(t *testing.T) {
	rep, err := New(DefaultConfig()).Analyze(context.Background(), fermentation([]string{"B1"}, 12))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rep.BatchComparison.Available || rep.BatchComparison.Reason != "single_batch" {
		t.Fatalf("batch comparison = %+v", rep.BatchComparison)
	}
	if rep.Overview.BatchCount != 1 || rep.Overview.IsMultiBatch {
		t.Fatalf("overview = %+v", rep.Overview)
	}
}

func TestAnalyzeNoNumericColumns(t *testing.T) {
	ds := dataset.New("labels.csv", []string{"name", "colour"}, [][]string{{"a", "red"}, {"b", "blue"}})
	rep, err := New(DefaultConfig()).Analyze(context.Background(), ds)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if rep.Quality.Overall.Score != 0 || rep.Quality.Overall.Flags[0] != "no_data" {
		t.Fatalf("quality = %+v", rep.Quality.Overall)
	}
	b, _ := json.Marshal(rep)
	if !strings.Contains(string(b), `"relationships":[]`) {
		t.Fatalf("relationships should encode as an empty list: %s", b)
	}
}

func TestAnalyzeAvailableBlocksKeepEmptyCollections(t *testing.T) {
	var rows [][]string
	for _, id := range []string{"B1", "B2"} {
		for i := 0; i < 8; i++ {
			rows = append(rows, []string{id, fmt.Sprint(i), []string{"ann", "bob"}[i%2]})
		}
	}
	ds := dataset.New("operators.csv", []string{"Batch", "Hour", "Operator"}, rows)
	rep, err := New(DefaultConfig()).Analyze(context.Background(), ds)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(rep.Overview.NumericVariables) != 0 || !rep.Overview.IsMultiBatch {
		t.Fatalf("overview = %+v", rep.Overview)
	}

	b, err := json.Marshal(rep)
	if err != nil {
		t.Fatal(err)
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(b, &top); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]map[string]string{
		"temporal":         {"available": "true", "variables": "{}"},
		"batch_comparison": {"available": "true", "batch_order": `["B1","B2"]`, "variables": "{}"},
		"global_scores":    {"available": "true", "best_batches": "[]", "batch_trends": "{}"},
	}
	for block, keys := range want {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(top[block], &fields); err != nil {
			t.Fatalf("%s: %v", block, err)
		}
		for k, v := range keys {
			got, ok := fields[k]
			if !ok || string(got) != v {
				t.Fatalf("%s.%s = %s, want %s", block, k, got, v)
			}
		}
	}

	y, err := yaml.Marshal(rep)
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	var doc struct {
		GlobalScores map[string]any `yaml:"global_scores"`
	}
	if err := yaml.Unmarshal(y, &doc); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}
	for _, k := range []string{"best_batches", "batch_trends"} {
		if _, ok := doc.GlobalScores[k]; !ok {
			t.Fatalf("yaml global_scores missing %q:\n%s", k, y)
		}
	}
}

func TestAnalyzeUnavailableBlocksCarryOnlyFlag(t *testing.T) {
	var rows [][]string
	for i := 0; i < 12; i++ {
		rows = append(rows, []string{fmt.Sprint(i * 2), fmt.Sprint(-i)})
	}
	rep, err := New(DefaultConfig()).Analyze(context.Background(), dataset.New("plain.csv", []string{"OD", "pH"}, rows))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	b, _ := json.Marshal(rep)
	for _, want := range []string{
		`"temporal":{"available":false}`,
		`"batch_comparison":{"available":false}`,
		`"global_scores":{"available":false}`,
	} {
		if !strings.Contains(string(b), want) {
			t.Fatalf("missing %s in %s", want, b)
		}
	}

	single, err := New(DefaultConfig()).Analyze(context.Background(), fermentation([]string{"B1"}, 12))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	b, _ = json.Marshal(single)
	if !strings.Contains(string(b), `"batch_comparison":{"available":false,"reason":"single_batch"}`) {
		t.Fatalf("single batch block in %s", b)
	}
}

func TestAnalyzeDeterministicAcrossWorkers(t *testing.T) {
	ds := fermentation([]string{"B1", "B2", "B3", "B4"}, 15)
	var outs []string
	for _, w := range []int{1, 3, 16} {
		rep, err := New(DefaultConfig(), WithWorkers(w)).Analyze(context.Background(), ds)
		if err != nil {
			t.Fatalf("workers=%d: %v", w, err)
		}
		b, err := json.Marshal(rep)
		if err != nil {
			t.Fatal(err)
		}
		outs = append(outs, string(b))
	}
	for i := 1; i < len(outs); i++ {
		if outs[i] != outs[0] {
			t.Fatalf("report differs between worker counts")
		}
	}
}

func TestAnalyzeLeavesDatasetUntouched(t *testing.T) {
	rows := [][]string{{"0", "1"}, {"1", "2"}, {"2", "oops"}, {"3", "4"}}
	ds := dataset.New("mixed.csv", []string{"Minute", "OD"}, rows)
	if _, err := New(DefaultConfig()).Analyze(context.Background(), ds); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if c, _ := ds.Column("OD"); c.Kind != dataset.KindText {
		t.Fatalf("input column kind changed to %s", c.Kind)
	}
}

func TestAnalyzeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(DefaultConfig()).Analyze(ctx, biomassRuns())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestFrameRecords(t *testing.T) {
	ds := fermentation([]string{"B1", "B2"}, 3)
	f := Canonicalize(InferRoles(DefaultConfig(), ds), ds)
	recs := f.Records()
	if len(recs) != 12 {
		t.Fatalf("records = %d, want 12", len(recs))
	}
	first := recs[0]
	if first.Batch != "B1" || first.Time != 0 || first.Variable != "Biomass" || !almostEqual(first.Value, 0.1, 1e-12) {
		t.Fatalf("first record = %+v", first)
	}
	if last := recs[len(recs)-1]; last.Batch != "B2" || last.Time != 2 || last.Variable != "pH" {
		t.Fatalf("last record = %+v", last)
	}
}

func TestMarkdownSections(t *testing.T) {
	rep, err := New(DefaultConfig()).Analyze(context.Background(), fermentation([]string{"B1", "B2"}, 10))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	md := rep.Markdown()
	for _, want := range []string{"[DATASET SUMMARY]", "File: fermentation.csv", "Batch column: Batch (2 batches)", "[QUALITY]", "[RELATIONSHIPS]", "[BATCHES]", "- Biomass ~ pH"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}
