// Package lightgbm provides LGBMClassifier: LightGBM's leaf-wise gradient
// boosting for binary targets, with LightGBM's parameter names and defaults.
package lightgbm

import (
	"github.com/YuminosukeSato/churnlab/core/model"
	"github.com/YuminosukeSato/churnlab/sklearn/gbdt"
)

// LGBMClassifier grows leaf-wise trees bounded by NumLeaves.
type LGBMClassifier struct {
	*gbdt.Classifier
}

// NewLGBMClassifier creates a classifier with LightGBM defaults:
// 100 rounds, learning rate 0.1, 31 leaves, no depth limit,
// min_child_samples 20, min_child_weight 1e-3, reg_lambda 0, 255 bins.
func NewLGBMClassifier() *LGBMClassifier {
	return &LGBMClassifier{Classifier: gbdt.NewClassifier("LGBMClassifier", gbdt.Config{
		NEstimators:     100,
		LearningRate:    0.1,
		MaxLeaves:       31,
		MinChildSamples: 20,
		MinChildWeight:  1e-3,
		MaxBin:          255,
		Policy:          gbdt.LeafWise,
	})}
}

// WithNumLeaves sets the number of leaves
func (lgb *LGBMClassifier) WithNumLeaves(n int) *LGBMClassifier {
	lgb.Config.MaxLeaves = n
	return lgb
}

// WithMaxDepth sets the maximum depth; -1 means no limit.
func (lgb *LGBMClassifier) WithMaxDepth(d int) *LGBMClassifier {
	lgb.Config.MaxDepth = max(d, 0)
	return lgb
}

// WithLearningRate sets the learning rate
func (lgb *LGBMClassifier) WithLearningRate(lr float64) *LGBMClassifier {
	lgb.Config.LearningRate = lr
	return lgb
}

// WithNumIterations sets the number of boosting rounds
func (lgb *LGBMClassifier) WithNumIterations(n int) *LGBMClassifier {
	lgb.Config.NEstimators = n
	return lgb
}

// WithMinChildSamples sets the minimum number of rows in a leaf
func (lgb *LGBMClassifier) WithMinChildSamples(n int) *LGBMClassifier {
	lgb.Config.MinChildSamples = n
	return lgb
}

// WithRegLambda sets the L2 regularization
func (lgb *LGBMClassifier) WithRegLambda(l float64) *LGBMClassifier {
	lgb.Config.Lambda = l
	return lgb
}

// GetParams returns the parameters under their LightGBM names.
func (lgb *LGBMClassifier) GetParams() map[string]interface{} {
	depth := lgb.Config.MaxDepth
	if depth == 0 {
		depth = -1
	}
	return map[string]interface{}{
		"n_estimators":      lgb.Config.NEstimators,
		"learning_rate":     lgb.Config.LearningRate,
		"num_leaves":        lgb.Config.MaxLeaves,
		"max_depth":         depth,
		"min_child_samples": lgb.Config.MinChildSamples,
		"min_child_weight":  lgb.Config.MinChildWeight,
		"reg_lambda":        lgb.Config.Lambda,
		"min_split_gain":    lgb.Config.MinSplitGain,
		"max_bin":           lgb.Config.MaxBin,
	}
}

// aliases maps LightGBM parameter aliases to their sklearn-API names.
var aliases = map[string]string{
	"num_iterations":          "n_estimators",
	"num_boost_round":         "n_estimators",
	"num_trees":               "n_estimators",
	"shrinkage_rate":          "learning_rate",
	"eta":                     "learning_rate",
	"max_leaves":              "num_leaves",
	"min_data_in_leaf":        "min_child_samples",
	"min_sum_hessian_in_leaf": "min_child_weight",
	"lambda_l2":               "reg_lambda",
	"min_gain_to_split":       "min_split_gain",
}

// SetParams applies a flat parameter map; LightGBM aliases are accepted.
func (lgb *LGBMClassifier) SetParams(params map[string]interface{}) error {
	for key, v := range params {
		name := key
		if canonical, ok := aliases[key]; ok {
			name = canonical
		}
		var err error
		switch name {
		case "n_estimators":
			lgb.Config.NEstimators, err = model.IntParam(key, v)
		case "learning_rate":
			lgb.Config.LearningRate, err = model.FloatParam(key, v)
		case "num_leaves":
			lgb.Config.MaxLeaves, err = model.IntParam(key, v)
		case "max_depth":
			var d int
			d, err = model.IntParam(key, v)
			lgb.WithMaxDepth(d)
		case "min_child_samples":
			lgb.Config.MinChildSamples, err = model.IntParam(key, v)
		case "min_child_weight":
			lgb.Config.MinChildWeight, err = model.FloatParam(key, v)
		case "reg_lambda":
			lgb.Config.Lambda, err = model.FloatParam(key, v)
		case "min_split_gain":
			lgb.Config.MinSplitGain, err = model.FloatParam(key, v)
		case "max_bin":
			lgb.Config.MaxBin, err = model.IntParam(key, v)
		default:
			err = model.UnknownParam("LGBMClassifier", key, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
