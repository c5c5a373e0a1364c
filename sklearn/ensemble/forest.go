// Package ensemble provides a random forest classifier built from the CART
// trees of package tree.
package ensemble

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnlab/core/model"
	"github.com/YuminosukeSato/churnlab/core/parallel"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/pkg/log"
	"github.com/YuminosukeSato/churnlab/sklearn/tree"
)

// RandomForestClassifier averages the positive-class probabilities of
// NEstimators trees, each grown on a bootstrap sample with a random subset of
// features per split. Compatible with scikit-learn's RandomForestClassifier.
type RandomForestClassifier struct {
	*model.StateManager

	NEstimators     int
	MaxDepth        int // 0 means unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     string // "sqrt", "log2" or "all"
	Bootstrap       bool
	RandomState     int64
	NJobs           int // 0 means GOMAXPROCS

	Trees       []*tree.Tree
	Importances []float64
}

// ForestOption configures a RandomForestClassifier.
type ForestOption func(*RandomForestClassifier)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) ForestOption {
	return func(f *RandomForestClassifier) { f.NEstimators = n }
}

// WithForestMaxDepth limits tree depth; 0 means unlimited.
func WithForestMaxDepth(depth int) ForestOption {
	return func(f *RandomForestClassifier) { f.MaxDepth = depth }
}

// WithForestMaxFeatures sets the per-split feature subset rule.
func WithForestMaxFeatures(rule string) ForestOption {
	return func(f *RandomForestClassifier) { f.MaxFeatures = rule }
}

// WithBootstrap toggles bootstrap sampling.
func WithBootstrap(b bool) ForestOption {
	return func(f *RandomForestClassifier) { f.Bootstrap = b }
}

// WithForestRandomState sets the seed from which every tree seed is drawn.
func WithForestRandomState(seed int64) ForestOption {
	return func(f *RandomForestClassifier) { f.RandomState = seed }
}

// WithNJobs bounds the number of trees fitted concurrently.
func WithNJobs(n int) ForestOption {
	return func(f *RandomForestClassifier) { f.NJobs = n }
}

// NewRandomForestClassifier creates a forest with scikit-learn defaults.
func NewRandomForestClassifier(opts ...ForestOption) *RandomForestClassifier {
	f := &RandomForestClassifier{
		StateManager:    model.NewStateManager(),
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     "sqrt",
		Bootstrap:       true,
		RandomState:     42,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *RandomForestClassifier) maxFeatures(p int) (int, error) {
	switch f.MaxFeatures {
	case "sqrt":
		return max(1, int(math.Sqrt(float64(p)))), nil
	case "log2":
		return max(1, int(math.Log2(float64(p)))), nil
	case "all", "":
		return p, nil
	default:
		return 0, errors.NewValidationError("max_features", "must be sqrt, log2 or all", f.MaxFeatures)
	}
}

// Fit grows the forest.
func (f *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	return f.FitContext(context.Background(), X, y)
}

// FitContext grows the trees concurrently. Tree seeds are drawn from
// RandomState before any tree starts, so the result does not depend on
// scheduling.
func (f *RandomForestClassifier) FitContext(ctx context.Context, X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestClassifier.Fit")

	if f.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", f.NEstimators)
	}
	if _, err := model.BinaryTarget("RandomForestClassifier.Fit", X, y); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	mf, err := f.maxFeatures(nFeatures)
	if err != nil {
		return err
	}
	f.Reset()

	rng := rand.New(rand.NewSource(f.RandomState))
	seeds := make([]int64, f.NEstimators)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}
	// 行列は各 goroutine で読み取りのみ
	Xd := mat.DenseCopyOf(X)
	yd := mat.DenseCopyOf(y)

	jobs := f.NJobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	trees := make([]*tree.Tree, f.NEstimators)
	err = parallel.ForEach(ctx, f.NEstimators, jobs, func(ctx context.Context, i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		treeRng := rand.New(rand.NewSource(seeds[i]))
		var weights []float64
		if f.Bootstrap {
			weights = make([]float64, nSamples)
			for k := 0; k < nSamples; k++ {
				weights[treeRng.Intn(nSamples)]++
			}
		}
		dt := tree.NewDecisionTreeClassifier(
			tree.WithMaxDepth(f.MaxDepth),
			tree.WithMinSamplesSplit(f.MinSamplesSplit),
			tree.WithMinSamplesLeaf(f.MinSamplesLeaf),
			tree.WithMaxFeatures(mf),
			tree.WithRandomState(treeRng.Int63()),
		)
		if err := fitBootstrap(dt, Xd, yd, weights); err != nil {
			return errors.Wrapf(err, "tree %d", i)
		}
		trees[i] = dt.Tree
		return nil
	})
	if err != nil {
		return err
	}
	f.Trees = trees

	imp := make([]float64, nFeatures)
	for _, t := range trees {
		ti := make([]float64, nFeatures)
		t.AddImportances(ti)
		for j, v := range tree.Normalize(ti) {
			imp[j] += v / float64(len(trees))
		}
	}
	f.Importances = tree.Normalize(imp)

	f.SetFitted(nSamples, nFeatures)
	log.GetLoggerWithName("RandomForestClassifier").Debug("fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		"forest.trees", len(trees))
	return nil
}

// fitBootstrap fits one tree. A bootstrap sample that happens to draw a
// single class cannot be split; it becomes a single leaf.
func fitBootstrap(dt *tree.DecisionTreeClassifier, X, y *mat.Dense, weights []float64) error {
	if weights != nil {
		var w, pos float64
		for i, c := range weights {
			w += c
			pos += c * y.At(i, 0)
		}
		if pos == 0 || pos == w {
			dt.Tree = &tree.Tree{Nodes: []tree.Node{{
				Feature: tree.Leaf, Left: tree.Leaf, Right: tree.Leaf,
				Value: pos / w, Cover: w,
			}}}
			return nil
		}
	}
	return dt.FitWeighted(X, y, weights)
}

func (f *RandomForestClassifier) positiveProba(X mat.Matrix) ([]float64, error) {
	if err := f.CheckInput("RandomForestClassifier", "Predict", X); err != nil {
		return nil, err
	}
	rows := model.Rows(X)
	out := make([]float64, len(rows))
	parallel.Parallelize(len(rows), func(start, end int) {
		for i := start; i < end; i++ {
			var s float64
			for _, t := range f.Trees {
				s += t.Predict(rows[i])
			}
			out[i] = s / float64(len(f.Trees))
		}
	})
	return out, nil
}

// Predict returns class labels (n×1).
func (f *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	p, err := f.positiveProba(X)
	if err != nil {
		return nil, err
	}
	return model.LabelsFromProba(p), nil
}

// PredictProba returns [P(0), P(1)] (n×2).
func (f *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	p, err := f.positiveProba(X)
	if err != nil {
		return nil, err
	}
	return model.ProbaMatrix(p), nil
}

// FeatureImportances returns the mean normalized impurity decrease.
func (f *RandomForestClassifier) FeatureImportances() []float64 {
	return append([]float64(nil), f.Importances...)
}

// Ensemble exposes the trees for TreeSHAP: equal weights 1/n, no offset.
func (f *RandomForestClassifier) Ensemble() ([]*tree.Tree, float64, float64) {
	return f.Trees, 1 / float64(len(f.Trees)), 0
}

// GetParams returns the hyperparameters.
func (f *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      f.NEstimators,
		"max_depth":         f.MaxDepth,
		"min_samples_split": f.MinSamplesSplit,
		"min_samples_leaf":  f.MinSamplesLeaf,
		"max_features":      f.MaxFeatures,
		"bootstrap":         f.Bootstrap,
		"random_state":      f.RandomState,
	}
}

// SetParams applies a flat parameter map.
func (f *RandomForestClassifier) SetParams(params map[string]interface{}) error {
	for key, v := range params {
		var err error
		switch key {
		case "n_estimators":
			f.NEstimators, err = model.IntParam(key, v)
		case "max_depth":
			f.MaxDepth, err = model.IntParam(key, v)
		case "min_samples_split":
			f.MinSamplesSplit, err = model.IntParam(key, v)
		case "min_samples_leaf":
			f.MinSamplesLeaf, err = model.IntParam(key, v)
		case "max_features":
			f.MaxFeatures, err = model.StringParam(key, v)
		case "bootstrap":
			f.Bootstrap, err = model.BoolParam(key, v)
		case "random_state":
			var seed int
			seed, err = model.IntParam(key, v)
			f.RandomState = int64(seed)
		case "n_jobs":
			f.NJobs, err = model.IntParam(key, v)
		default:
			err = model.UnknownParam("RandomForestClassifier", key, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// String returns a short description.
func (f *RandomForestClassifier) String() string {
	return fmt.Sprintf("RandomForestClassifier(n_estimators=%d, max_depth=%d)", f.NEstimators, f.MaxDepth)
}
