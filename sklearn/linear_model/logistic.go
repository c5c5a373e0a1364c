package linear_model

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/YuminosukeSato/churnlab/core/model"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/pkg/log"
)

// LogisticRegression implements L2-regularised binary logistic regression
// solved with L-BFGS. Compatible with scikit-learn's
// LogisticRegression(penalty="l2", solver="lbfgs").
//
// The objective is mean log-loss + ||w||²/(2·C·n); the intercept is not
// penalised.
type LogisticRegression struct {
	*model.StateManager // State management (composition)

	// Hyperparameters
	C            float64 // Inverse regularization strength (1/alpha)
	FitIntercept bool    // Whether to fit intercept
	MaxIter      int     // Maximum L-BFGS iterations
	Tol          float64 // Gradient norm tolerance

	// Model parameters
	Coef      []float64 // Coefficients (n_features)
	Intercept float64   // Intercept term
	NIter     int       // Actual iterations
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		StateManager: model.NewStateManager(),
		C:            1.0,
		FitIntercept: true,
		MaxIter:      100,
		Tol:          1e-4,
	}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.FitIntercept = fit
	}
}

// WithLRMaxIter sets the maximum number of iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.MaxIter = maxIter
	}
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.Tol = tol
	}
}

// Fit trains the logistic regression model
func (lr *LogisticRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LogisticRegression.Fit")

	if lr.C <= 0 {
		return errors.NewValidationError("C", "must be positive", lr.C)
	}
	if lr.MaxIter < 1 {
		return errors.NewValidationError("max_iter", "must be at least 1", lr.MaxIter)
	}
	labels, err := model.BinaryTarget("LogisticRegression.Fit", X, y)
	if err != nil {
		return err
	}
	lr.Reset()

	rows := model.Rows(X)
	nSamples, nFeatures := X.Dims()
	n := float64(nSamples)
	alpha := 1 / (lr.C * n)

	// パラメータベクトル: [w_0..w_{p-1}, b]
	dim := nFeatures
	if lr.FitIntercept {
		dim++
	}
	margins := make([]float64, nSamples)
	linear := func(theta []float64) {
		for i, row := range rows {
			z := floats.Dot(row, theta[:nFeatures])
			if lr.FitIntercept {
				z += theta[nFeatures]
			}
			margins[i] = z
		}
	}

	problem := optimize.Problem{
		Func: func(theta []float64) float64 {
			linear(theta)
			var loss float64
			for i, z := range margins {
				// log(1+exp(z)) - y·z
				loss += errors.Log1pExp(z) - labels[i]*z
			}
			w := theta[:nFeatures]
			return loss/n + 0.5*alpha*floats.Dot(w, w)
		},
		Grad: func(grad, theta []float64) {
			linear(theta)
			for j := range grad {
				grad[j] = 0
			}
			for i, row := range rows {
				r := (errors.Sigmoid(margins[i]) - labels[i]) / n
				floats.AddScaled(grad[:nFeatures], r, row)
				if lr.FitIntercept {
					grad[nFeatures] += r
				}
			}
			floats.AddScaled(grad[:nFeatures], alpha, theta[:nFeatures])
		},
	}

	settings := &optimize.Settings{
		MajorIterations:   lr.MaxIter,
		GradientThreshold: lr.Tol,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Iterations: 20,
		},
	}
	result, err := optimize.Minimize(problem, make([]float64, dim), settings, &optimize.LBFGS{})
	if result == nil {
		return errors.NewModelError("LogisticRegression.Fit", "optimization", err)
	}
	if err != nil && result.Status != optimize.IterationLimit {
		// 直線探索の失敗などは直前の点で打ち切る
		log.GetLoggerWithName("LogisticRegression").Debug("L-BFGS stopped early",
			log.IterationKey, result.MajorIterations, log.ErrorKey, err.Error())
	}
	if result.Status == optimize.IterationLimit {
		errors.Warn(errors.NewConvergenceWarning("lbfgs", result.MajorIterations, ""))
	}

	lr.Coef = append([]float64(nil), result.X[:nFeatures]...)
	lr.Intercept = 0
	if lr.FitIntercept {
		lr.Intercept = result.X[nFeatures]
	}
	lr.NIter = result.MajorIterations
	if err := errors.CheckMatrix("LogisticRegression.Fit", mat.NewDense(1, nFeatures, lr.Coef), 1, nFeatures, lr.NIter); err != nil {
		return err
	}

	lr.SetFitted(nSamples, nFeatures)
	log.GetLoggerWithName("LogisticRegression").Debug("fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.IterationKey, lr.NIter,
		log.LossKey, result.F)
	return nil
}

// DecisionFunction returns w·x + b for each sample.
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) ([]float64, error) {
	if err := lr.CheckInput("LogisticRegression", "DecisionFunction", X); err != nil {
		return nil, err
	}
	rows := model.Rows(X)
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = floats.Dot(row, lr.Coef) + lr.Intercept
	}
	return out, nil
}

func (lr *LogisticRegression) positiveProba(X mat.Matrix) ([]float64, error) {
	z, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	for i, v := range z {
		z[i] = errors.Sigmoid(v)
	}
	return z, nil
}

// Predict returns class labels (n×1)
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	p, err := lr.positiveProba(X)
	if err != nil {
		return nil, err
	}
	return model.LabelsFromProba(p), nil
}

// PredictProba returns [P(0), P(1)] for each sample (n×2)
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	p, err := lr.positiveProba(X)
	if err != nil {
		return nil, err
	}
	return model.ProbaMatrix(p), nil
}

// GetParams returns the hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"C":             lr.C,
		"fit_intercept": lr.FitIntercept,
		"max_iter":      lr.MaxIter,
		"tol":           lr.Tol,
	}
}

// SetParams applies a flat parameter map.
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	for key, v := range params {
		var err error
		switch key {
		case "C":
			lr.C, err = model.FloatParam(key, v)
		case "fit_intercept":
			lr.FitIntercept, err = model.BoolParam(key, v)
		case "max_iter":
			lr.MaxIter, err = model.IntParam(key, v)
		case "tol":
			lr.Tol, err = model.FloatParam(key, v)
		default:
			err = model.UnknownParam("LogisticRegression", key, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// String returns a short description
func (lr *LogisticRegression) String() string {
	return fmt.Sprintf("LogisticRegression(C=%g, max_iter=%d)", lr.C, lr.MaxIter)
}
