// Package catboost provides CatBoostClassifier: gradient boosting on
// oblivious (symmetric) trees with CatBoost's parameter names and defaults.
package catboost

import (
	"github.com/YuminosukeSato/churnlab/core/model"
	"github.com/YuminosukeSato/churnlab/sklearn/gbdt"
)

// CatBoostClassifier uses one split condition per tree level.
type CatBoostClassifier struct {
	*gbdt.Classifier
}

// NewCatBoostClassifier creates a classifier with CatBoost defaults:
// 1000 iterations, learning rate 0.03, depth 6, l2_leaf_reg 3, 254 borders.
func NewCatBoostClassifier() *CatBoostClassifier {
	return &CatBoostClassifier{Classifier: gbdt.NewClassifier("CatBoostClassifier", gbdt.Config{
		NEstimators:     1000,
		LearningRate:    0.03,
		MaxDepth:        6,
		MinChildSamples: 1,
		Lambda:          3,
		MaxBin:          255,
		Policy:          gbdt.Oblivious,
	})}
}

// WithIterations sets the number of trees.
func (c *CatBoostClassifier) WithIterations(n int) *CatBoostClassifier {
	c.Config.NEstimators = n
	return c
}

// WithLearningRate sets the learning rate.
func (c *CatBoostClassifier) WithLearningRate(lr float64) *CatBoostClassifier {
	c.Config.LearningRate = lr
	return c
}

// WithDepth sets the depth of the symmetric trees.
func (c *CatBoostClassifier) WithDepth(d int) *CatBoostClassifier {
	c.Config.MaxDepth = d
	return c
}

// WithL2LeafReg sets the L2 regularization of leaf values.
func (c *CatBoostClassifier) WithL2LeafReg(l float64) *CatBoostClassifier {
	c.Config.Lambda = l
	return c
}

func (c *CatBoostClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"iterations":    c.Config.NEstimators,
		"learning_rate": c.Config.LearningRate,
		"depth":         c.Config.MaxDepth,
		"l2_leaf_reg":   c.Config.Lambda,
		"border_count":  c.Config.MaxBin - 1,
	}
}

// SetParams applies a flat parameter map. The search stores the tree count
// as "n_estimators"; CatBoost's own aliases are accepted as well.
func (c *CatBoostClassifier) SetParams(params map[string]interface{}) error {
	for key, v := range params {
		var err error
		switch key {
		case "iterations", "n_estimators", "num_boost_round", "num_trees":
			c.Config.NEstimators, err = model.IntParam(key, v)
		case "learning_rate", "eta":
			c.Config.LearningRate, err = model.FloatParam(key, v)
		case "depth", "max_depth":
			c.Config.MaxDepth, err = model.IntParam(key, v)
		case "l2_leaf_reg", "reg_lambda":
			c.Config.Lambda, err = model.FloatParam(key, v)
		case "border_count":
			var b int
			b, err = model.IntParam(key, v)
			c.Config.MaxBin = b + 1
		default:
			err = model.UnknownParam("CatBoostClassifier", key, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
