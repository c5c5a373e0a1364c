package gbdt

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnlab/core/model"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/pkg/log"
	"github.com/YuminosukeSato/churnlab/sklearn/tree"
)

// Classifier is the estimator shared by the boosted families. The family
// packages embed it and set Name and Config from their own parameters.
type Classifier struct {
	*model.StateManager

	Name    string
	Config  Config
	Booster *Booster
}

// NewClassifier creates an unfitted classifier.
func NewClassifier(name string, cfg Config) *Classifier {
	return &Classifier{
		StateManager: model.NewStateManager(),
		Name:         name,
		Config:       cfg,
	}
}

// Fit boosts Config.NEstimators trees.
func (c *Classifier) Fit(X, y mat.Matrix) error {
	return c.FitContext(context.Background(), X, y)
}

// FitContext is Fit with cancellation checked between rounds.
func (c *Classifier) FitContext(ctx context.Context, X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, c.Name+".Fit")

	labels, err := model.BinaryTarget(c.Name+".Fit", X, y)
	if err != nil {
		return err
	}
	c.Reset()
	nSamples, nFeatures := X.Dims()
	b, err := Train(ctx, c.Config, model.Rows(X), labels)
	if err != nil {
		return errors.NewModelError(c.Name+".Fit", "boosting", err)
	}
	c.Booster = b
	c.SetFitted(nSamples, nFeatures)

	log.GetLoggerWithName(c.Name).Debug("fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		"gbdt.trees", len(b.Trees),
		"gbdt.policy", c.Config.Policy.String())
	return nil
}

// DecisionFunction returns the raw log-odds (n×1).
func (c *Classifier) DecisionFunction(X mat.Matrix) (*mat.VecDense, error) {
	if err := c.CheckInput(c.Name, "DecisionFunction", X); err != nil {
		return nil, err
	}
	rows := model.Rows(X)
	out := mat.NewVecDense(len(rows), nil)
	for i, r := range rows {
		out.SetVec(i, c.Booster.Raw(r))
	}
	return out, nil
}

func (c *Classifier) positiveProba(X mat.Matrix) ([]float64, error) {
	raw, err := c.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	p := make([]float64, raw.Len())
	for i := range p {
		p[i] = errors.Sigmoid(raw.AtVec(i))
	}
	return p, nil
}

// Predict returns class labels (n×1).
func (c *Classifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	p, err := c.positiveProba(X)
	if err != nil {
		return nil, err
	}
	return model.LabelsFromProba(p), nil
}

// PredictProba returns [P(0), P(1)] (n×2).
func (c *Classifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	p, err := c.positiveProba(X)
	if err != nil {
		return nil, err
	}
	return model.ProbaMatrix(p), nil
}

// FeatureImportances returns normalized total gain per feature.
func (c *Classifier) FeatureImportances() []float64 {
	if c.Booster == nil {
		return nil
	}
	return append([]float64(nil), c.Booster.Importances...)
}

// Ensemble exposes the trees for TreeSHAP. The output explained is the raw
// log-odds: unit weight, InitScore offset.
func (c *Classifier) Ensemble() ([]*tree.Tree, float64, float64) {
	return c.Booster.Trees, 1, c.Booster.InitScore
}

// String returns a short description.
func (c *Classifier) String() string {
	return fmt.Sprintf("%s(n_estimators=%d, learning_rate=%g, max_depth=%d, policy=%s)",
		c.Name, c.Config.NEstimators, c.Config.LearningRate, c.Config.MaxDepth, c.Config.Policy)
}
