// Package gbdt implements a histogram-based gradient boosting machine for the
// binary logistic loss. The three tree growth policies reproduce the shape of
// the trees built by XGBoost (depth-wise), LightGBM (leaf-wise) and CatBoost
// (oblivious, one shared split per level); the packages xgboost, lightgbm and
// catboost expose them with each library's parameter names and defaults.
package gbdt

import (
	"context"
	"fmt"
	"math"

	"github.com/YuminosukeSato/churnlab/core/parallel"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/pkg/log"
	"github.com/YuminosukeSato/churnlab/sklearn/tree"
)

// Policy selects how a tree is grown.
type Policy int

const (
	// DepthWise splits every node level by level up to MaxDepth.
	DepthWise Policy = iota
	// LeafWise always splits the leaf with the largest gain, up to MaxLeaves.
	LeafWise
	// Oblivious uses one (feature, threshold) pair for the whole level.
	Oblivious
)

func (p Policy) String() string {
	switch p {
	case DepthWise:
		return "depthwise"
	case LeafWise:
		return "lossguide"
	case Oblivious:
		return "symmetric"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// kEpsilon is the smallest gain treated as an improvement.
const kEpsilon = 1e-15

// Config holds the boosting hyperparameters.
type Config struct {
	NEstimators     int
	LearningRate    float64
	MaxDepth        int // 0 means unlimited (LeafWise only)
	MaxLeaves       int // 0 means unlimited
	MinChildWeight  float64
	MinChildSamples int
	Lambda          float64
	MinSplitGain    float64
	MaxBin          int
	Policy          Policy
}

// Validate checks the hyperparameter ranges.
func (c *Config) Validate() error {
	if c.NEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", c.NEstimators)
	}
	if c.LearningRate <= 0 {
		return errors.NewValidationError("learning_rate", "must be positive", c.LearningRate)
	}
	if c.MaxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be non-negative", c.MaxDepth)
	}
	if c.MaxDepth == 0 && c.Policy != LeafWise {
		return errors.NewValidationError("max_depth", "must be positive for "+c.Policy.String()+" growth", c.MaxDepth)
	}
	if c.MaxLeaves == 1 || c.MaxLeaves < 0 {
		return errors.NewValidationError("num_leaves", "must be 0 or at least 2", c.MaxLeaves)
	}
	if c.Lambda < 0 {
		return errors.NewValidationError("reg_lambda", "must be non-negative", c.Lambda)
	}
	if c.MaxBin < 2 || c.MaxBin > 256 {
		return errors.NewValidationError("max_bin", "must be in [2, 256]", c.MaxBin)
	}
	return nil
}

// Booster is a fitted additive model: raw score = InitScore + Σ tree outputs.
// The learning rate is already applied to the leaf values and every node's
// Cover is its hessian sum, which is what TreeSHAP expects.
type Booster struct {
	InitScore   float64
	Trees       []*tree.Tree
	Importances []float64 // total split gain per feature, normalized
}

// Raw returns the log-odds for one sample.
func (b *Booster) Raw(x []float64) float64 {
	s := b.InitScore
	for _, t := range b.Trees {
		s += t.Predict(x)
	}
	return s
}

// Train boosts trees on rows with labels y in {0, 1}.
func Train(ctx context.Context, cfg Config, rows [][]float64, y []float64) (*Booster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	n := len(rows)
	nFeatures := len(rows[0])

	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(n)
	mean = errors.ClipValue(mean, 1e-15, 1-1e-15)

	g := &grower{
		cfg:    cfg,
		mapper: newBinMapper(rows, nFeatures, cfg.MaxBin),
		grad:   make([]float64, n),
		hess:   make([]float64, n),
	}
	g.bins = g.mapper.transform(rows)

	b := &Booster{InitScore: math.Log(mean / (1 - mean))}
	raw := make([]float64, n)
	for i := range raw {
		raw[i] = b.InitScore
	}

	logger := log.GetLoggerWithName("gbdt")
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	imp := make([]float64, nFeatures)
	for it := 0; it < cfg.NEstimators; it++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i, f := range raw {
			p := errors.Sigmoid(f)
			g.grad[i] = p - y[i]
			g.hess[i] = math.Max(p*(1-p), 1e-16)
		}
		t := g.grow(all)
		if err := t.Validate(nFeatures); err != nil {
			return nil, errors.Wrapf(err, "round %d", it)
		}
		t.AddImportances(imp)
		b.Trees = append(b.Trees, t)

		parallel.ParallelizeWithThreshold(n, 4096, func(start, end int) {
			for i := start; i < end; i++ {
				raw[i] += t.Predict(rows[i])
			}
		})
		if logger.Enabled(ctx, log.LevelDebug) && (it%50 == 0 || it == cfg.NEstimators-1) {
			logger.Debug("boosting round",
				log.IterationKey, it,
				log.LossKey, logLoss(raw, y),
				"tree.leaves", t.NumLeaves())
		}
	}
	b.Importances = tree.Normalize(imp)
	return b, nil
}

func logLoss(raw, y []float64) float64 {
	var s float64
	for i, f := range raw {
		// -[y log p + (1-y) log(1-p)] = log(1+e^f) - y f
		s += errors.Log1pExp(f) - y[i]*f
	}
	return s / float64(len(raw))
}
