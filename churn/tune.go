package churn

import (
	"context"
	"encoding/json"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnlab/metrics"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/pkg/log"
	"github.com/YuminosukeSato/churnlab/sklearn/model_selection"
	"github.com/YuminosukeSato/churnlab/tune"
)

// TuneOptions configures Tune.
type TuneOptions struct {
	Trials         int
	ValidationSize float64
	// Sampler is "tpe" or "random".
	Sampler       string
	StartupTrials int
	Seed          int64
	// Families restricts the "model" choice; empty means all seven.
	Families []string
}

// TuneResult is the outcome of a search.
type TuneResult struct {
	BestParams map[string]interface{}
	BestValue  float64
	Study      *tune.Study
}

// suggest draws the family and its hyperparameters for one trial.
func suggest(t *tune.Trial, families []string) (map[string]interface{}, error) {
	family, err := t.SuggestCategorical(ModelKey, families)
	if err != nil {
		return nil, err
	}
	params := map[string]interface{}{ModelKey: family}
	suggestInt := func(name string, low, high int) {
		if err != nil {
			return
		}
		var v int
		if v, err = t.SuggestInt(name, low, high); err == nil {
			params[name] = v
		}
	}
	suggestFloat := func(name string, low, high float64, logScale bool) {
		if err != nil {
			return
		}
		var v float64
		if v, err = t.SuggestFloat(name, low, high, logScale); err == nil {
			params[name] = v
		}
	}

	switch family {
	case LogisticRegression, SVM:
		suggestFloat("C", 1e-3, 10, true)
	case DecisionTree:
		suggestInt("max_depth", 2, 20)
		suggestInt("min_samples_split", 2, 20)
	case RandomForest:
		suggestInt("n_estimators", 50, 300)
		suggestInt("max_depth", 2, 20)
	case XGBoost, LightGBM:
		suggestInt("n_estimators", 50, 300)
		suggestFloat("learning_rate", 0.01, 0.3, true)
		suggestInt("max_depth", 2, 20)
	case CatBoost:
		suggestInt("n_estimators", 50, 300)
		suggestFloat("learning_rate", 0.01, 0.3, true)
		suggestInt("depth", 2, 10)
	}
	return params, err
}

func newSampler(opts TuneOptions) (tune.Sampler, error) {
	switch opts.Sampler {
	case "", "tpe":
		s := tune.NewTPESampler(opts.Seed)
		if opts.StartupTrials > 0 {
			s.NStartupTrials = opts.StartupTrials
		}
		return s, nil
	case "random":
		return tune.NewRandomSampler(opts.Seed), nil
	}
	return nil, errors.NewValidationError("tune.sampler", "must be tpe or random", opts.Sampler)
}

func takeRows(X *mat.Dense, idx []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(idx), c, nil)
	for k, i := range idx {
		out.SetRow(k, X.RawRowView(i))
	}
	return out
}

func takeValues(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = y[i]
	}
	return out
}

// Tune searches the family and its hyperparameters that maximize F1 on a
// stratified validation part of the train split. The validation part is the
// same for every trial. Scale-sensitive families see the train split
// standardized as a whole.
func Tune(ctx context.Context, f *Features, opts TuneOptions) (*TuneResult, error) {
	if opts.Trials < 1 {
		return nil, errors.NewValidationError("tune.trials", "must be positive", opts.Trials)
	}
	families := opts.Families
	if len(families) == 0 {
		families = Families
	}
	sampler, err := newSampler(opts)
	if err != nil {
		return nil, err
	}
	d, err := newDesign(f)
	if err != nil {
		return nil, err
	}
	split, err := model_selection.StratifiedSplit(f.YTrain, opts.ValidationSize, opts.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "validation split")
	}
	yFit := takeValues(f.YTrain, split.Train)
	yVal := mat.NewVecDense(len(split.Test), takeValues(f.YTrain, split.Test))

	objective := func(ctx context.Context, t *tune.Trial) (float64, error) {
		params, err := suggest(t, families)
		if err != nil {
			return 0, err
		}
		m, err := NewModel(params, opts.Seed)
		if err != nil {
			return 0, err
		}
		X, _ := d.matrices(params[ModelKey].(string))
		if err := m.Fit(takeRows(X, split.Train), mat.NewVecDense(len(yFit), yFit)); err != nil {
			return 0, err
		}
		pred, _, err := predictions(m, takeRows(X, split.Test))
		if err != nil {
			return 0, err
		}
		return metrics.F1Score(yVal, pred)
	}

	study := tune.NewStudy("churn", tune.WithSampler(sampler), tune.WithDirection(tune.Maximize))
	if err := study.Optimize(ctx, objective, opts.Trials); err != nil {
		return nil, err
	}
	best, err := study.BestTrial()
	if err != nil {
		return nil, err
	}
	params, err := study.BestParams()
	if err != nil {
		return nil, err
	}
	log.GetLoggerWithName("tune").Info("search finished",
		log.StageKey, "tune",
		log.TrialKey, best.Number,
		log.BestValueKey, best.Value,
		log.HyperParamsKey, params)
	return &TuneResult{BestParams: params, BestValue: best.Value, Study: study}, nil
}

// WriteParams stores a parameter map as JSON.
func WriteParams(path string, params map[string]interface{}) error {
	data, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode parameters")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "write %s", path)
}

// ReadParams loads a parameter map written by WriteParams. Integers come
// back as float64; the models' SetParams accept both.
func ReadParams(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	var params map[string]interface{}
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return params, nil
}
