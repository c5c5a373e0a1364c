// Package xgboost provides XGBClassifier: depth-wise gradient boosting with
// XGBoost's parameter names and defaults (hist tree method).
package xgboost

import (
	"github.com/YuminosukeSato/churnlab/core/model"
	"github.com/YuminosukeSato/churnlab/sklearn/gbdt"
)

// XGBClassifier grows every level up to MaxDepth.
type XGBClassifier struct {
	*gbdt.Classifier
}

// NewXGBClassifier creates a classifier with XGBoost defaults: 100 rounds,
// eta 0.3, max_depth 6, lambda 1, min_child_weight 1, gamma 0.
func NewXGBClassifier() *XGBClassifier {
	return &XGBClassifier{Classifier: gbdt.NewClassifier("XGBClassifier", gbdt.Config{
		NEstimators:    100,
		LearningRate:   0.3,
		MaxDepth:       6,
		MinChildWeight: 1,
		Lambda:         1,
		MaxBin:         255,
		Policy:         gbdt.DepthWise,
	})}
}

// WithNEstimators sets the number of boosting rounds.
func (x *XGBClassifier) WithNEstimators(n int) *XGBClassifier {
	x.Config.NEstimators = n
	return x
}

// WithLearningRate sets eta.
func (x *XGBClassifier) WithLearningRate(lr float64) *XGBClassifier {
	x.Config.LearningRate = lr
	return x
}

// WithMaxDepth sets the tree depth.
func (x *XGBClassifier) WithMaxDepth(d int) *XGBClassifier {
	x.Config.MaxDepth = d
	return x
}

// WithRegLambda sets the L2 regularization on leaf weights.
func (x *XGBClassifier) WithRegLambda(l float64) *XGBClassifier {
	x.Config.Lambda = l
	return x
}

// WithMinChildWeight sets the minimum hessian sum per child.
func (x *XGBClassifier) WithMinChildWeight(w float64) *XGBClassifier {
	x.Config.MinChildWeight = w
	return x
}

// WithGamma sets the minimum loss reduction needed to split.
func (x *XGBClassifier) WithGamma(g float64) *XGBClassifier {
	x.Config.MinSplitGain = g
	return x
}

func (x *XGBClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":     x.Config.NEstimators,
		"learning_rate":    x.Config.LearningRate,
		"max_depth":        x.Config.MaxDepth,
		"reg_lambda":       x.Config.Lambda,
		"min_child_weight": x.Config.MinChildWeight,
		"gamma":            x.Config.MinSplitGain,
		"max_bin":          x.Config.MaxBin,
	}
}

// SetParams applies a flat parameter map. "eta", "lambda" and
// "min_split_loss" are accepted as aliases.
func (x *XGBClassifier) SetParams(params map[string]interface{}) error {
	for key, v := range params {
		var err error
		switch key {
		case "n_estimators", "num_boost_round":
			x.Config.NEstimators, err = model.IntParam(key, v)
		case "learning_rate", "eta":
			x.Config.LearningRate, err = model.FloatParam(key, v)
		case "max_depth":
			x.Config.MaxDepth, err = model.IntParam(key, v)
		case "reg_lambda", "lambda":
			x.Config.Lambda, err = model.FloatParam(key, v)
		case "min_child_weight":
			x.Config.MinChildWeight, err = model.FloatParam(key, v)
		case "gamma", "min_split_loss":
			x.Config.MinSplitGain, err = model.FloatParam(key, v)
		case "max_bin":
			x.Config.MaxBin, err = model.IntParam(key, v)
		default:
			err = model.UnknownParam("XGBClassifier", key, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
