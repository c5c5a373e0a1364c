// Package model defines the estimator interfaces shared by every churnlab model,
// the fitted-state bookkeeping they embed, and model persistence.
package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit は X (n×p) と二値ラベル y (n×1) でモデルを学習する
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict はクラスラベル (n×1) を返す
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Classifier は二値分類器のインターフェース。ベンチ・探索・最終評価の全モデルが満たす。
type Classifier interface {
	Fitter
	Predictor

	// PredictProba は各クラスの確率 (n×2) を返す。列 1 が陽性クラス（churn）。
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// Transformer は教師なしのデータ変換（スケーラなど）
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// SupervisedTransformer はラベルを使って学習する変換（PLS）
type SupervisedTransformer interface {
	Fit(X, y mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
}

// ParamsGetter exposes hyperparameters in the flat form used by the search and
// by model snapshots.
type ParamsGetter interface {
	GetParams() map[string]interface{}
}
