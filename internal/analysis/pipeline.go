package analysis

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/KaramelBytes/insight-layer/internal/dataset"
)

// Report is the full analysis document.
type Report struct {
	Overview        Overview        `json:"overview" yaml:"overview"`
	Quality         QualityReport   `json:"quality" yaml:"quality"`
	Temporal        TemporalReport  `json:"temporal" yaml:"temporal"`
	Relationships   []Relationship  `json:"relationships" yaml:"relationships"`
	BatchComparison BatchComparison `json:"batch_comparison" yaml:"batch_comparison"`
	GlobalScores    GlobalScores    `json:"global_scores" yaml:"global_scores"`
	PlotReady       PlotReady       `json:"plot_ready" yaml:"plot_ready"`
}

// Overview describes the dataset shape and inferred roles.
type Overview struct {
	Name                 string            `json:"name,omitempty" yaml:"name,omitempty"`
	Rows                 int               `json:"rows" yaml:"rows"`
	Columns              int               `json:"columns" yaml:"columns"`
	TimeColumn           *string           `json:"time_column" yaml:"time_column"`
	BatchColumn          *string           `json:"batch_column" yaml:"batch_column"`
	Batches              []string          `json:"batches" yaml:"batches"`
	BatchCount           int               `json:"batch_count" yaml:"batch_count"`
	IsMultiBatch         bool              `json:"is_multi_batch" yaml:"is_multi_batch"`
	NumericVariables     []string          `json:"numeric_variables" yaml:"numeric_variables"`
	CategoricalVariables []string          `json:"categorical_variables" yaml:"categorical_variables"`
	Duration             *Duration         `json:"duration" yaml:"duration"`
	Units                map[string]string `json:"units" yaml:"units"`
}

type Duration struct {
	Min  Float `json:"min" yaml:"min"`
	Max  Float `json:"max" yaml:"max"`
	Span Float `json:"span" yaml:"span"`
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets the logger used for debug traces.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.log = l
		}
	}
}

// WithWorkers bounds concurrent sub-analyses; n <= 0 means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(a *Analyzer) { a.workers = n }
}

// Analyzer runs the full pipeline. It holds no per-request state and is
// safe for concurrent use.
type Analyzer struct {
	cfg     Config
	log     *zap.Logger
	workers int
}

func New(cfg Config, opts ...Option) *Analyzer {
	a := &Analyzer{cfg: cfg, log: zap.NewNop()}
	for _, o := range opts {
		o(a)
	}
	if a.workers <= 0 {
		a.workers = runtime.GOMAXPROCS(0)
	}
	return a
}

// Analyze infers roles, canonicalizes ds and runs every analyzer. ds is not
// modified. The only errors are context cancellation and internal faults.
func (a *Analyzer) Analyze(ctx context.Context, ds *dataset.Dataset) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	work := ds.Clone()
	roles := InferRoles(a.cfg, work)
	f := Canonicalize(roles, work)
	a.log.Debug("roles inferred",
		zap.String("dataset", ds.Name),
		zap.String("time_column", roles.TimeColumn),
		zap.String("batch_column", roles.BatchColumn),
		zap.Int("numeric", len(roles.Numeric)),
		zap.Int("categorical", len(roles.Categorical)),
		zap.Int("batches", len(f.Batches)))

	rep, err := a.run(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", ds.Name, err)
	}
	rep.Overview = overview(ds, f)
	a.log.Debug("analysis complete", zap.String("dataset", ds.Name), zap.Duration("elapsed", time.Since(start)))
	return rep, nil
}

func (a *Analyzer) run(ctx context.Context, f *Frame) (*Report, error) {
	cfg := a.cfg
	vars := f.Roles.Numeric
	multiBatch := f.HasBatch() && len(f.Batches) >= 2

	quality := make([]VariableQuality, len(vars))
	temporal := make([]VariableTemporal, len(vars))
	batches := make([]VariableBatchComparison, len(vars))
	plots := make([]variablePlot, len(vars))
	globalVars := vars
	if len(globalVars) > cfg.GlobalColumns {
		globalVars = globalVars[:cfg.GlobalColumns]
	}
	globals := make([]variableGlobal, len(globalVars))
	candidates := candidatePairs(vars, cfg.RelationshipColumns)
	rels := make([]*Relationship, len(candidates))
	var correlations []PairCorrelation

	sampling := SamplingStats(cfg, f)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	spawn := func(name string, fn func()) {
		g.Go(func() (err error) {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%s: panic: %v", name, r)
				}
			}()
			fn()
			return nil
		})
	}
	for i, v := range vars {
		spawn("variable "+v, func() {
			quality[i] = AnalyzeVariableQuality(cfg, v, f.Values(v), sampling)
			if f.HasTime() {
				temporal[i] = AnalyzeVariableTemporal(cfg, f, v)
			}
			if multiBatch {
				batches[i] = AnalyzeVariableBatches(cfg, f, v)
			}
			plots[i] = plotVariable(cfg, f, v)
		})
	}
	if multiBatch {
		for i, v := range globalVars {
			spawn("global "+v, func() {
				globals[i] = analyzeVariableGlobal(cfg, f, v)
			})
		}
	}
	for i, pair := range candidates {
		spawn("pair "+pair[0]+"/"+pair[1], func() {
			if rel, ok := AnalyzePair(cfg, f, pair[0], pair[1]); ok {
				rels[i] = &rel
			}
		})
	}
	spawn("plot correlations", func() {
		correlations = PairwiseCorrelations(f, vars)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := &Report{
		Quality: QualityReport{Variables: quality, Overall: OverallScore(cfg, quality)},
		Temporal: TemporalReport{Available: f.HasTime()},
		PlotReady: PlotReady{
			TimeSeries:       make(map[string][]Point),
			BatchSeries:      make(map[string]map[string][]Point),
			Distributions:    make(map[string]Distribution),
			Correlations:     correlations,
			MeanTrajectories: make(map[string]MeanTrajectory),
		},
	}
	if f.HasTime() {
		rep.Temporal.Variables = make(map[string]VariableTemporal, len(vars))
		for i, v := range vars {
			rep.Temporal.Variables[v] = temporal[i]
		}
	}

	found := make([]Relationship, 0, len(rels))
	for _, r := range rels {
		if r != nil {
			found = append(found, *r)
		}
	}
	rep.Relationships = rankRelationships(found, cfg.RelationshipLimit)

	switch {
	case !f.HasBatch():
		rep.BatchComparison = BatchComparison{Available: false}
		rep.GlobalScores = GlobalScores{Available: false}
	case !multiBatch:
		rep.BatchComparison = BatchComparison{Available: false, Reason: "single_batch"}
		rep.GlobalScores = GlobalScores{Available: false}
	default:
		bc := BatchComparison{
			Available:  true,
			BatchCount: len(f.Batches),
			BatchOrder: f.Batches,
			Variables:  make(map[string]VariableBatchComparison, len(vars)),
		}
		for i, v := range vars {
			bc.Variables[v] = batches[i]
		}
		rep.BatchComparison = bc

		gs := GlobalScores{Available: true, BestBatches: []BestBatch{}, BatchTrends: make(map[string]BatchTrend, len(globalVars))}
		trends := make([]BatchTrend, 0, len(globalVars))
		for i, v := range globalVars {
			gs.BestBatches = append(gs.BestBatches, globals[i].best...)
			gs.BatchTrends[v] = globals[i].trend
			trends = append(trends, globals[i].trend)
		}
		gs.OverallAssessment = Assess(trends)
		rep.GlobalScores = gs
	}

	for i, v := range vars {
		p := plots[i]
		if len(p.timeSeries) > 0 {
			rep.PlotReady.TimeSeries[v] = p.timeSeries
		}
		if p.distribution != nil {
			rep.PlotReady.Distributions[v] = *p.distribution
		}
		if p.trajectory != nil {
			rep.PlotReady.MeanTrajectories[v] = *p.trajectory
		}
	}
	if f.HasBatch() {
		for _, id := range f.Batches {
			rep.PlotReady.BatchSeries[id] = make(map[string][]Point)
		}
		for i, v := range vars {
			for id, pts := range plots[i].batchSeries {
				rep.PlotReady.BatchSeries[id][v] = pts
			}
		}
	}
	return rep, nil
}

func overview(ds *dataset.Dataset, f *Frame) Overview {
	ov := Overview{
		Name:                 ds.Name,
		Rows:                 ds.Rows(),
		Columns:              len(ds.Columns),
		TimeColumn:           sptr(f.Roles.TimeColumn),
		BatchColumn:          sptr(f.Roles.BatchColumn),
		Batches:              append([]string{}, f.Batches...),
		BatchCount:           max(1, len(f.Batches)),
		IsMultiBatch:         len(f.Batches) > 1,
		NumericVariables:     append([]string{}, f.Roles.Numeric...),
		CategoricalVariables: append([]string{}, f.Roles.Categorical...),
	}
	names := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		names[i] = c.Name
	}
	ov.Units = columnUnits(names)
	if f.HasTime() {
		if ts := dropNaN(f.Time); len(ts) > 0 {
			lo, hi := floats.Min(ts), floats.Max(ts)
			ov.Duration = &Duration{Min: Float(lo), Max: Float(hi), Span: Float(hi - lo)}
		}
	}
	return ov
}
