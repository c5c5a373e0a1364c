// Package svm provides a kernel support vector classifier trained with SMO,
// compatible with scikit-learn's SVC(kernel="rbf", probability=True) for
// binary targets.
package svm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/churnlab/core/model"
	"github.com/YuminosukeSato/churnlab/core/parallel"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/pkg/log"
)

// SVC is a C-support vector classifier with an RBF kernel. Probabilities come
// from a sigmoid (Platt scaling) fitted on the training decision values.
type SVC struct {
	*model.StateManager

	C           float64
	Gamma       string  // "scale", "auto" or a number given through GammaValue
	GammaValue  float64 // used when Gamma is ""
	Tol         float64
	MaxIter     int // -1 means no limit beyond the solver's own cap
	CacheSizeMB float64

	// fitted
	SupportVectors [][]float64
	DualCoef       []float64 // α_i·y_i with y in {-1, +1}
	Intercept      float64
	GammaFitted    float64
	ProbA, ProbB   float64
	NIter          int
}

// Option configures an SVC.
type Option func(*SVC)

// WithC sets the penalty parameter.
func WithC(c float64) Option { return func(s *SVC) { s.C = c } }

// WithGamma sets "scale" or "auto".
func WithGamma(g string) Option { return func(s *SVC) { s.Gamma = g } }

// WithGammaValue sets a fixed kernel coefficient.
func WithGammaValue(g float64) Option {
	return func(s *SVC) { s.Gamma, s.GammaValue = "", g }
}

// WithTol sets the stopping tolerance on the KKT violation.
func WithTol(tol float64) Option { return func(s *SVC) { s.Tol = tol } }

// WithMaxIter caps SMO iterations.
func WithMaxIter(n int) Option { return func(s *SVC) { s.MaxIter = n } }

// NewSVC creates a classifier with scikit-learn defaults.
func NewSVC(opts ...Option) *SVC {
	s := &SVC{
		StateManager: model.NewStateManager(),
		C:            1,
		Gamma:        "scale",
		Tol:          1e-3,
		MaxIter:      -1,
		CacheSizeMB:  200,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SVC) gamma(rows [][]float64) (float64, error) {
	p := len(rows[0])
	switch s.Gamma {
	case "scale":
		all := make([]float64, 0, len(rows)*p)
		for _, r := range rows {
			all = append(all, r...)
		}
		_, v := stat.PopMeanVariance(all, nil)
		if v == 0 {
			return 1, nil
		}
		return 1 / (float64(p) * v), nil
	case "auto":
		return 1 / float64(p), nil
	case "":
		if s.GammaValue <= 0 {
			return 0, errors.NewValidationError("gamma", "must be positive", s.GammaValue)
		}
		return s.GammaValue, nil
	}
	return 0, errors.NewValidationError("gamma", "must be scale, auto or a positive number", s.Gamma)
}

func rbf(gamma float64, a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return math.Exp(-gamma * d * d)
}

// Fit solves the dual problem with SMO and fits the probability sigmoid.
func (s *SVC) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "SVC.Fit")

	if s.C <= 0 {
		return errors.NewValidationError("C", "must be positive", s.C)
	}
	labels, err := model.BinaryTarget("SVC.Fit", X, y)
	if err != nil {
		return err
	}
	s.Reset()
	rows := model.Rows(X)
	nSamples, nFeatures := X.Dims()
	gamma, err := s.gamma(rows)
	if err != nil {
		return err
	}

	sign := make([]float64, nSamples)
	for i, v := range labels {
		sign[i] = 2*v - 1
	}
	sol := newSolver(rows, sign, gamma, s.C, s.Tol, s.CacheSizeMB)
	maxIter := s.MaxIter
	if maxIter < 0 {
		maxIter = max(10000000, 100*nSamples)
	}
	iters, converged := sol.solve(maxIter)
	if !converged {
		errors.Warn(errors.NewConvergenceWarning("smo", iters,
			"Solver terminated early (max_iter reached). Consider pre-processing your data with StandardScaler."))
	}

	s.GammaFitted = gamma
	s.NIter = iters
	s.Intercept = -sol.rho()
	s.SupportVectors = nil
	s.DualCoef = nil
	for i, a := range sol.alpha {
		if a > 0 {
			s.SupportVectors = append(s.SupportVectors, rows[i])
			s.DualCoef = append(s.DualCoef, a*sign[i])
		}
	}

	dec := make([]float64, nSamples)
	parallel.Parallelize(nSamples, func(start, end int) {
		for i := start; i < end; i++ {
			dec[i] = s.decision(rows[i])
		}
	})
	s.ProbA, s.ProbB = plattScaling(dec, labels)

	s.SetFitted(nSamples, nFeatures)
	log.GetLoggerWithName("SVC").Debug("fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.IterationKey, iters,
		"svm.support_vectors", len(s.SupportVectors),
		"svm.gamma", gamma)
	return nil
}

func (s *SVC) decision(x []float64) float64 {
	f := s.Intercept
	for k, sv := range s.SupportVectors {
		f += s.DualCoef[k] * rbf(s.GammaFitted, sv, x)
	}
	return f
}

// DecisionFunction returns the signed distance to the separating surface;
// positive values predict class 1.
func (s *SVC) DecisionFunction(X mat.Matrix) (*mat.VecDense, error) {
	if err := s.CheckInput("SVC", "DecisionFunction", X); err != nil {
		return nil, err
	}
	rows := model.Rows(X)
	out := make([]float64, len(rows))
	parallel.Parallelize(len(rows), func(start, end int) {
		for i := start; i < end; i++ {
			out[i] = s.decision(rows[i])
		}
	})
	return mat.NewVecDense(len(out), out), nil
}

// Predict returns class labels (n×1) from the sign of the decision function.
func (s *SVC) Predict(X mat.Matrix) (mat.Matrix, error) {
	dec, err := s.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	out := mat.NewDense(dec.Len(), 1, nil)
	for i := 0; i < dec.Len(); i++ {
		if dec.AtVec(i) > 0 {
			out.Set(i, 0, 1)
		}
	}
	return out, nil
}

// PredictProba returns [P(0), P(1)] (n×2) from the Platt sigmoid.
func (s *SVC) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	dec, err := s.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	p := make([]float64, dec.Len())
	for i := range p {
		p[i] = sigmoidPredict(dec.AtVec(i), s.ProbA, s.ProbB)
	}
	return model.ProbaMatrix(p), nil
}

// GetParams returns the hyperparameters.
func (s *SVC) GetParams() map[string]interface{} {
	var gamma interface{} = s.Gamma
	if s.Gamma == "" {
		gamma = s.GammaValue
	}
	return map[string]interface{}{
		"C":        s.C,
		"kernel":   "rbf",
		"gamma":    gamma,
		"tol":      s.Tol,
		"max_iter": s.MaxIter,
	}
}

// SetParams applies a flat parameter map.
func (s *SVC) SetParams(params map[string]interface{}) error {
	for key, v := range params {
		var err error
		switch key {
		case "C":
			s.C, err = model.FloatParam(key, v)
		case "gamma":
			if g, ok := v.(string); ok {
				s.Gamma = g
			} else {
				s.Gamma = ""
				s.GammaValue, err = model.FloatParam(key, v)
			}
		case "kernel":
			if v != "rbf" {
				err = errors.NewValidationError(key, "only rbf is supported", v)
			}
		case "tol":
			s.Tol, err = model.FloatParam(key, v)
		case "max_iter":
			s.MaxIter, err = model.IntParam(key, v)
		default:
			err = model.UnknownParam("SVC", key, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// String returns a short description.
func (s *SVC) String() string {
	return fmt.Sprintf("SVC(C=%g, kernel=rbf, gamma=%v)", s.C, s.GetParams()["gamma"])
}
