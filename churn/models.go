package churn

import (
	"fmt"

	"github.com/YuminosukeSato/churnlab/core/model"
	"github.com/YuminosukeSato/churnlab/explain"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/sklearn/catboost"
	"github.com/YuminosukeSato/churnlab/sklearn/ensemble"
	"github.com/YuminosukeSato/churnlab/sklearn/lightgbm"
	"github.com/YuminosukeSato/churnlab/sklearn/linear_model"
	"github.com/YuminosukeSato/churnlab/sklearn/svm"
	"github.com/YuminosukeSato/churnlab/sklearn/tree"
	"github.com/YuminosukeSato/churnlab/sklearn/xgboost"
)

// Model family names, as used in reports and in the "model" parameter.
const (
	LogisticRegression = "Logistic Regression"
	DecisionTree       = "Decision Tree"
	RandomForest       = "Random Forest"
	XGBoost            = "XGBoost"
	LightGBM           = "LightGBM"
	CatBoost           = "CatBoost"
	SVM                = "SVM"
)

// Families lists the bench families in report order.
var Families = []string{LogisticRegression, DecisionTree, RandomForest, XGBoost, LightGBM, CatBoost, SVM}

// ModelKey is the parameter naming the family in a parameter map.
const ModelKey = "model"

// NeedsScaling reports whether a family is fit on standardized features.
func NeedsScaling(family string) bool {
	return family == LogisticRegression || family == SVM
}

// Model is what every family provides.
type Model interface {
	model.Classifier
	model.ParamsGetter
	model.ParamsSetter
}

// newFamily returns a family with its bench defaults.
func newFamily(family string, seed int64) (Model, error) {
	switch family {
	case LogisticRegression:
		return linear_model.NewLogisticRegression(linear_model.WithLRMaxIter(500)), nil
	case DecisionTree:
		return tree.NewDecisionTreeClassifier(tree.WithRandomState(seed)), nil
	case RandomForest:
		return ensemble.NewRandomForestClassifier(ensemble.WithNEstimators(100), ensemble.WithForestRandomState(seed)), nil
	case XGBoost:
		return xgboost.NewXGBClassifier(), nil
	case LightGBM:
		return lightgbm.NewLGBMClassifier(), nil
	case CatBoost:
		return catboost.NewCatBoostClassifier(), nil
	case SVM:
		return svm.NewSVC(), nil
	}
	return nil, errors.NewValidationError(ModelKey, fmt.Sprintf("unknown model family, expected one of %v", Families), family)
}

// NewModel builds a model from a flat parameter map such as the search's best
// parameters: params["model"] names the family and every other key is passed
// to the family's SetParams. seed is the random_state of the families that
// use one.
func NewModel(params map[string]interface{}, seed int64) (Model, error) {
	raw, ok := params[ModelKey]
	if !ok {
		return nil, errors.NewValidationError(ModelKey, "parameter map has no model family", params)
	}
	family, err := model.StringParam(ModelKey, raw)
	if err != nil {
		return nil, err
	}
	m, err := newFamily(family, seed)
	if err != nil {
		return nil, err
	}
	rest := make(map[string]interface{}, len(params))
	for k, v := range params {
		if k != ModelKey {
			rest[k] = v
		}
	}
	if err := m.SetParams(rest); err != nil {
		return nil, errors.Wrapf(err, "configure %s", family)
	}
	return m, nil
}

// IsTreeModel reports whether TreeSHAP can explain m.
func IsTreeModel(m Model) bool {
	_, ok := m.(explain.TreeModel)
	return ok
}
