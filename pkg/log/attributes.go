package log

// Pipeline and model context.
const (
	// RunIDKey identifies one pipeline run; every record of the run carries it.
	RunIDKey = "run.id"

	// StageKey names the pipeline stage (ingest, clean, eda, project, split,
	// bench, explain, tune, final).
	StageKey = "pipeline.stage"

	// ComponentKey identifies the package emitting the record.
	ComponentKey = "ml.component"

	// ModelNameKey identifies the model family, e.g. "Random Forest".
	ModelNameKey = "model.name"

	// OperationKey is one of the Operation* values below.
	OperationKey = "ml.operation"

	HyperParamsKey = "model.hyperparams"
	RandomSeedKey  = "config.random_seed"
)

// Data shape.
const (
	RowsKey        = "data.rows"
	ColumnsKey     = "data.columns"
	SamplesKey     = "data.samples"
	FeaturesKey    = "data.features"
	ComponentsKey  = "data.components"
	PathKey        = "data.path"
	FingerprintKey = "data.fingerprint"
	PositiveKey    = "data.positive_rate"
)

// Metrics and timing.
const (
	DurationMsKey   = "perf.duration_ms"
	AccuracyKey     = "metrics.accuracy"
	PrecisionKey    = "metrics.precision"
	RecallKey       = "metrics.recall"
	F1Key           = "metrics.f1"
	AUCKey          = "metrics.auc"
	LossKey         = "metrics.loss"
	IterationKey    = "training.iteration"
	TrialKey        = "tune.trial"
	TrialIDKey      = "tune.trial_id"
	ObjectiveKey    = "tune.objective"
	BestValueKey    = "tune.best_value"
	LearningRateKey = "hyperparams.learning_rate"
)

// Error context.
const (
	ErrorKey      = "error"
	StacktraceKey = "error.stacktrace"
	ErrorTypeKey  = "error.type"
)

// Standard operation values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"
	OperationExplain      = "explain"
)
