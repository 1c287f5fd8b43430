package analysis

// Config holds every keyword list and numeric threshold the pipeline uses.
// The values are part of the deterministic contract of the report; callers
// obtain them from DefaultConfig and pass the value to New unchanged.
type Config struct {
	// Role inference
	BatchKeywords         []string
	TimeKeywords          []string
	CoerceRatio           float64 // share of rows that must parse for numeric coercion
	BatchMaxDistinctRatio float64
	BatchMinGroupSize     int // least frequent batch value must occur more often than this
	MonotoneRatio         float64

	// Quality
	SparseMissingPct       float64
	IntermittentMissingPct float64
	OfflineZeroPct         float64
	FlatlineCV             float64
	FlatlineRelativeRange  float64
	RegularThreshold       float64
	HighMissingPct         float64
	ModerateMissingPct     float64
	IrregularBelow         float64
	FlatlinePenalty        float64
	FlatlinePenaltyCap     int
	OutlierThreshold       float64 // robust |z| cut-off
	OutlierMinValues       int

	// Temporal
	MinTemporalPoints    int
	SmoothWindow         int
	ChangePointMinPoints int
	ChangePointWindow    int // lower bound; grows with n/20
	ChangePointSigma     float64
	ChangePointLimit     int
	PhaseWindow          int // lower bound; grows with n/20
	PhaseMinLength       int
	PhaseThreshold       float64 // multiple of the gradient std
	GrowthRatio          float64
	TrendStableR         float64

	// Relationships
	RelationshipColumns int
	MinPairSamples      int
	MaxLag              int
	RelationshipLimit   int
	StableConsistency   float64

	// Batches and global scores
	MinBatchValues    int
	MinOutlierBatches int
	TukeyK            float64
	GlobalColumns     int
	GlobalMinSamples  int // a batch needs more paired samples than this
	MinTrendBatches   int

	// Plot data
	HistogramBins int
}

// DefaultConfig returns the fixed configuration.
func DefaultConfig() Config {
	return Config{
		BatchKeywords:         []string{"batch", "run", "experiment", "lot", "id", "sample", "replicate"},
		TimeKeywords:          []string{"time", "timestamp", "date", "hour", "minute", "t", "elapsed", "duration"},
		CoerceRatio:           0.5,
		BatchMaxDistinctRatio: 0.1,
		BatchMinGroupSize:     5,
		MonotoneRatio:         0.95,

		SparseMissingPct:       70,
		IntermittentMissingPct: 30,
		OfflineZeroPct:         50,
		FlatlineCV:             0.001,
		FlatlineRelativeRange:  0.01,
		RegularThreshold:       0.5,
		HighMissingPct:         20,
		ModerateMissingPct:     5,
		IrregularBelow:         0.3,
		FlatlinePenalty:        3,
		FlatlinePenaltyCap:     5,
		OutlierThreshold:       3.5,
		OutlierMinValues:       8,

		MinTemporalPoints:    5,
		SmoothWindow:         5,
		ChangePointMinPoints: 10,
		ChangePointWindow:    5,
		ChangePointSigma:     2,
		ChangePointLimit:     10,
		PhaseWindow:          3,
		PhaseMinLength:       5,
		PhaseThreshold:       0.5,
		GrowthRatio:          0.7,
		TrendStableR:         0.3,

		RelationshipColumns: 15,
		MinPairSamples:      5,
		MaxLag:              5,
		RelationshipLimit:   30,
		StableConsistency:   0.7,

		MinBatchValues:    2,
		MinOutlierBatches: 4,
		TukeyK:            1.5,
		GlobalColumns:     10,
		GlobalMinSamples:  2,
		MinTrendBatches:   3,

		HistogramBins: 20,
	}
}
