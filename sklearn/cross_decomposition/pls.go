// Package cross_decomposition implements partial least squares regression
// (PLS1, NIPALS) compatible with scikit-learn's PLSRegression.
package cross_decomposition

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/churnlab/core/model"
	"github.com/YuminosukeSato/churnlab/metrics"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/pkg/log"
)

// yResidualTol は残差がこれ未満ならラベルの情報は使い切ったとみなす
const yResidualTol = 10 * 2.220446049250313e-16

// PLSRegression projects X onto latent components chosen to maximise the
// covariance with a single target y.
//
// With Scale (the default) X and y are centered and divided by their sample
// standard deviation (ddof=1) before the NIPALS iterations; constant columns
// keep unit scale.
type PLSRegression struct {
	*model.StateManager

	NComponents int
	Scale       bool

	XMean, XStd []float64
	YMean, YStd float64

	// XWeights (p×n) はコンポーネントごとの重み w。最大絶対値の要素が正になるよう符号をそろえる。
	XWeights *mat.Dense
	// XLoadings (p×n) は X の負荷量 p
	XLoadings *mat.Dense
	// YLoadings (n) は y の負荷量 q
	YLoadings []float64
	// XRotations (p×n) = W (PᵀW)⁺。Transform はスケール済みXにこれを掛ける。
	XRotations *mat.Dense
	// Coef (p) は元のスケールでの回帰係数
	Coef []float64
	// NIter は実際に抽出できたコンポーネント数
	NIter int
}

// NewPLSRegression creates a PLS1 model with scaling enabled.
func NewPLSRegression(nComponents int) *PLSRegression {
	return &PLSRegression{
		StateManager: model.NewStateManager(),
		NComponents:  nComponents,
		Scale:        true,
	}
}

// Fit runs NIPALS with regression deflation.
func (p *PLSRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "PLSRegression.Fit")

	n, nFeatures := X.Dims()
	if n < 2 || nFeatures == 0 {
		return errors.NewValueError("PLSRegression.Fit", fmt.Sprintf("need at least 2 samples and 1 feature, got %d×%d", n, nFeatures))
	}
	yr, yc := y.Dims()
	if yr != n {
		return errors.NewDimensionError("PLSRegression.Fit", n, yr, 0)
	}
	if yc != 1 {
		return errors.NewDimensionError("PLSRegression.Fit", 1, yc, 1)
	}
	if p.NComponents < 1 || p.NComponents > nFeatures {
		return errors.NewValidationError("n_components", fmt.Sprintf("must be in [1, %d]", nFeatures), p.NComponents)
	}
	if err := errors.CheckMatrix("PLSRegression.Fit", X, n, nFeatures, 0); err != nil {
		return err
	}

	logger := log.GetLoggerWithName("PLSRegression")
	p.Reset()
	xk := mat.DenseCopyOf(X)
	yk := mat.NewVecDense(n, model.Column(y, 0))
	p.XMean, p.XStd = make([]float64, nFeatures), make([]float64, nFeatures)
	for j := 0; j < nFeatures; j++ {
		col := mat.Col(nil, j, xk)
		mean, std := centerScale(col, p.Scale)
		p.XMean[j], p.XStd[j] = mean, std
		xk.SetCol(j, col)
	}
	yData := yk.RawVector().Data
	p.YMean, p.YStd = centerScale(yData, p.Scale)

	nc := p.NComponents
	p.XWeights = mat.NewDense(nFeatures, nc, nil)
	p.XLoadings = mat.NewDense(nFeatures, nc, nil)
	p.YLoadings = make([]float64, nc)
	p.NIter = 0

	w := mat.NewVecDense(nFeatures, nil)
	t := mat.NewVecDense(n, nil)
	load := mat.NewVecDense(nFeatures, nil)
	for k := 0; k < nc; k++ {
		if mat.Dot(yk, yk) < yResidualTol {
			logger.Warn("y residual is constant, remaining components are zero",
				log.ComponentsKey, k, log.OperationKey, log.OperationFit)
			break
		}

		// PLS1 では NIPALS の内部反復は1回で収束し、w ∝ Xkᵀ yk
		w.MulVec(xk.T(), yk)
		norm := mat.Norm(w, 2)
		if norm == 0 {
			logger.Warn("x residual is orthogonal to y, remaining components are zero",
				log.ComponentsKey, k, log.OperationKey, log.OperationFit)
			break
		}
		w.ScaleVec(1/norm, w)
		flipSign(w)

		t.MulVec(xk, w)
		tt := mat.Dot(t, t)

		load.MulVec(xk.T(), t)
		load.ScaleVec(1/tt, load)
		q := mat.Dot(yk, t) / tt

		// 回帰モードの deflation
		var outer mat.Dense
		outer.Outer(1, t, load)
		xk.Sub(xk, &outer)
		yk.AddScaledVec(yk, -q, t)

		p.XWeights.SetCol(k, w.RawVector().Data)
		p.XLoadings.SetCol(k, load.RawVector().Data)
		p.YLoadings[k] = q
		p.NIter++
	}

	rot, err := rotations(p.XWeights, p.XLoadings)
	if err != nil {
		return err
	}
	p.XRotations = rot

	// coef = rotations · q * yStd / xStd
	p.Coef = make([]float64, nFeatures)
	for j := 0; j < nFeatures; j++ {
		var s float64
		for k := 0; k < nc; k++ {
			s += rot.At(j, k) * p.YLoadings[k]
		}
		p.Coef[j] = s * p.YStd / p.XStd[j]
	}

	p.SetFitted(n, nFeatures)
	logger.Info("PLS fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, n,
		log.FeaturesKey, nFeatures,
		log.ComponentsKey, p.NIter)
	return nil
}

// Transform returns the latent scores (n×NComponents) of X.
func (p *PLSRegression) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := p.CheckInput("PLSRegression", "Transform", X); err != nil {
		return nil, err
	}
	xs := p.standardize(X)
	r, _ := X.Dims()
	out := mat.NewDense(r, p.NComponents, nil)
	out.Mul(xs, p.XRotations)
	return out, nil
}

// FitTransform fits on (X, y) and returns the scores of X.
func (p *PLSRegression) FitTransform(X, y mat.Matrix) (mat.Matrix, error) {
	if err := p.Fit(X, y); err != nil {
		return nil, err
	}
	return p.Transform(X)
}

// Predict returns the regression estimate of y (n×1).
func (p *PLSRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := p.CheckInput("PLSRegression", "Predict", X); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		v := p.YMean
		for j := 0; j < c; j++ {
			v += (X.At(i, j) - p.XMean[j]) * p.Coef[j]
		}
		out.Set(i, 0, v)
	}
	return out, nil
}

// Score returns the R² of Predict(X) against y.
func (p *PLSRegression) Score(X, y mat.Matrix) (float64, error) {
	pred, err := p.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.R2ScoreMatrix(y, pred)
}

// GetParams returns the hyperparameters.
func (p *PLSRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_components": p.NComponents,
		"scale":        p.Scale,
	}
}

func (p *PLSRegression) standardize(X mat.Matrix) *mat.Dense {
	r, c := X.Dims()
	xs := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			xs.Set(i, j, (X.At(i, j)-p.XMean[j])/p.XStd[j])
		}
	}
	return xs
}

// centerScale は x をその場で中心化（と任意でスケーリング）し、平均と標準偏差を返す
func centerScale(x []float64, scale bool) (mean, std float64) {
	mean = stat.Mean(x, nil)
	std = 1
	if scale {
		if s := stat.StdDev(x, nil); s > 0 && !math.IsNaN(s) {
			std = s
		}
	}
	for i := range x {
		x[i] = (x[i] - mean) / std
	}
	return mean, std
}

// flipSign は絶対値最大の要素が正になるよう符号を反転する
func flipSign(w *mat.VecDense) {
	data := w.RawVector().Data
	abs := make([]float64, len(data))
	for i, v := range data {
		abs[i] = math.Abs(v)
	}
	if data[floats.MaxIdx(abs)] < 0 {
		w.ScaleVec(-1, w)
	}
}

// rotations は W (PᵀW)⁺ を SVD による擬似逆行列で計算する
func rotations(W, P *mat.Dense) (*mat.Dense, error) {
	var ptw mat.Dense
	ptw.Mul(P.T(), W)
	pinv, err := pseudoInverse(&ptw)
	if err != nil {
		return nil, err
	}
	pr, _ := W.Dims()
	_, pc := pinv.Dims()
	out := mat.NewDense(pr, pc, nil)
	out.Mul(W, pinv)
	return out, nil
}

func pseudoInverse(a *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, errors.NewModelError("PLSRegression.Fit", "svd", errors.ErrSingularMatrix)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	r, c := a.Dims()
	rcond := float64(max(r, c)) * 2.220446049250313e-16
	cutoff := 0.0
	if len(values) > 0 {
		cutoff = rcond * values[0]
	}
	// A⁺ = V Σ⁺ Uᵀ
	sigmaInv := mat.NewDense(len(values), len(values), nil)
	for i, s := range values {
		if s > cutoff {
			sigmaInv.Set(i, i, 1/s)
		}
	}
	var tmp mat.Dense
	tmp.Mul(&v, sigmaInv)
	out := mat.NewDense(c, r, nil)
	out.Mul(&tmp, u.T())
	return out, nil
}
