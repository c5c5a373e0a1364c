// Package metrics は二値分類の評価指標を提供する。
//
// ラベルは 0/1、スコアは陽性クラス（churn）の確率。precision/recall/F1 の
// ゼロ除算は scikit-learn と同じく 0 を返し、UndefinedMetricWarning を出す。
package metrics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// checkPair は入力ベクトルの nil・空・長さ不一致を検査する
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError(op, "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// columnPair は行列の先頭列をベクトルとして取り出す
func columnPair(op string, yTrue, yPred mat.Matrix) (*mat.VecDense, *mat.VecDense, error) {
	if yTrue == nil || yPred == nil {
		return nil, nil, errors.NewValueError(op, "nil matrix")
	}
	if isEmpty(yTrue) || isEmpty(yPred) {
		return nil, nil, errors.NewValueError(op, "empty matrix")
	}
	rt, _ := yTrue.Dims()
	rp, _ := yPred.Dims()
	if rt != rp {
		return nil, nil, errors.NewDimensionError(op, rt, rp, 0)
	}
	return firstColumn(yTrue), firstColumn(yPred), nil
}

func isEmpty(m mat.Matrix) bool {
	if d, ok := m.(*mat.Dense); ok && d.IsEmpty() {
		return true
	}
	r, c := m.Dims()
	return r == 0 || c == 0
}

func firstColumn(m mat.Matrix) *mat.VecDense {
	r, _ := m.Dims()
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}

func checkBinary(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return errors.NewValueError(op, fmt.Sprintf("labels must be 0 or 1, got %v at index %d", v, i))
		}
	}
	return nil
}

// Accuracy は正解率を計算する（多クラスのラベルでもよい）
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError は誤分類率（1 - accuracy）を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// counts は陽性クラスについての tp, fp, fn, tn
type counts struct {
	tp, fp, fn, tn int
}

func binaryCounts(op string, yTrue, yPred *mat.VecDense) (counts, error) {
	n, err := checkPair(op, yTrue, yPred)
	if err != nil {
		return counts{}, err
	}
	if err := checkBinary(op, yTrue); err != nil {
		return counts{}, err
	}
	if err := checkBinary(op, yPred); err != nil {
		return counts{}, err
	}
	var c counts
	for i := 0; i < n; i++ {
		t, p := yTrue.AtVec(i) == 1, yPred.AtVec(i) == 1
		switch {
		case t && p:
			c.tp++
		case !t && p:
			c.fp++
		case t && !p:
			c.fn++
		default:
			c.tn++
		}
	}
	return c, nil
}

// ratio は分母0のとき UndefinedMetricWarning を出して0を返す
func ratio(metric, condition string, num, den int) float64 {
	if den == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning(metric, condition, 0))
		return 0
	}
	return float64(num) / float64(den)
}

// Precision は陽性クラスの適合率 tp/(tp+fp)
func Precision(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := binaryCounts("Precision", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return ratio("precision", "no predicted samples", c.tp, c.tp+c.fp), nil
}

// Recall は陽性クラスの再現率 tp/(tp+fn)
func Recall(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := binaryCounts("Recall", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return ratio("recall", "no true samples", c.tp, c.tp+c.fn), nil
}

// F1Score は陽性クラスのF1。precision と recall が共に0なら0。
func F1Score(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := binaryCounts("F1Score", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return ratio("f1", "no true nor predicted samples", 2*c.tp, 2*c.tp+c.fp+c.fn), nil
}

// ConfusionMatrix は2×2の混同行列を返す。行が真のクラス、列が予測クラス。
// normalize が "true" なら各行を行和で割る（行和0の行は0のまま）。
func ConfusionMatrix(yTrue, yPred *mat.VecDense, normalize string) (*mat.Dense, error) {
	c, err := binaryCounts("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, err
	}
	cm := mat.NewDense(2, 2, []float64{
		float64(c.tn), float64(c.fp),
		float64(c.fn), float64(c.tp),
	})
	switch normalize {
	case "":
	case "true":
		for i := 0; i < 2; i++ {
			sum := cm.At(i, 0) + cm.At(i, 1)
			if sum == 0 {
				continue
			}
			cm.Set(i, 0, cm.At(i, 0)/sum)
			cm.Set(i, 1, cm.At(i, 1)/sum)
		}
	default:
		return nil, errors.NewValidationError("normalize", "must be \"\" or \"true\"", normalize)
	}
	return cm, nil
}

// BinaryLogLoss は二値交差エントロピーを計算する。確率は [1e-15, 1-1e-15] にクリップする。
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := checkPair("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}
	const eps = 1e-15
	var sum float64
	for i := 0; i < n; i++ {
		p := errors.ClipValue(yPred.AtVec(i), eps, 1-eps)
		if yTrue.AtVec(i) == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
	}
	return sum / float64(n), nil
}

// ROCPoint は ROC 曲線上の1点
type ROCPoint struct {
	FPR, TPR, Threshold float64
}

// ROCCurve は閾値を降順に動かした (FPR, TPR) の列を返す。先頭は (0,0, +Inf)。
// 同じスコアはまとめて1点になる。片方のクラスしかない場合は該当する率が0のまま。
func ROCCurve(yTrue, yScore *mat.VecDense) ([]ROCPoint, error) {
	n, err := checkPair("ROCCurve", yTrue, yScore)
	if err != nil {
		return nil, err
	}
	if err := checkBinary("ROCCurve", yTrue); err != nil {
		return nil, err
	}
	idx := make([]int, n)
	var pos, neg int
	for i := range idx {
		idx[i] = i
		if yTrue.AtVec(i) == 1 {
			pos++
		} else {
			neg++
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return yScore.AtVec(idx[a]) > yScore.AtVec(idx[b])
	})

	rate := func(k, total int) float64 {
		if total == 0 {
			return 0
		}
		return float64(k) / float64(total)
	}
	points := []ROCPoint{{FPR: 0, TPR: 0, Threshold: math.Inf(1)}}
	var tp, fp int
	for k := 0; k < n; k++ {
		i := idx[k]
		if yTrue.AtVec(i) == 1 {
			tp++
		} else {
			fp++
		}
		s := yScore.AtVec(i)
		if k+1 < n && yScore.AtVec(idx[k+1]) == s {
			continue
		}
		points = append(points, ROCPoint{FPR: rate(fp, neg), TPR: rate(tp, pos), Threshold: s})
	}
	return points, nil
}

// AUC はROC曲線下面積を Mann-Whitney 統計量として計算する（同点は0.5）。
// 片方のクラスしかない場合は未定義なので警告を出して0.5を返す。
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := checkPair("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("AUC", yTrue); err != nil {
		return 0, err
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return yScore.AtVec(idx[a]) < yScore.AtVec(idx[b]) })

	// 平均順位（同点は平均）で陽性の順位和を求める
	var pos int
	var rankSum float64
	for start := 0; start < n; {
		end := start + 1
		for end < n && yScore.AtVec(idx[end]) == yScore.AtVec(idx[start]) {
			end++
		}
		avgRank := float64(start+end+1) / 2
		for k := start; k < end; k++ {
			if yTrue.AtVec(idx[k]) == 1 {
				pos++
				rankSum += avgRank
			}
		}
		start = end
	}
	neg := n - pos
	if pos == 0 || neg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("roc_auc", "only one class present in y_true", 0.5))
		return 0.5, nil
	}
	u := rankSum - float64(pos)*float64(pos+1)/2
	return u / (float64(pos) * float64(neg)), nil
}

// AUCMatrix は行列入力の先頭列に対してAUCを計算する
func AUCMatrix(yTrue, yScore mat.Matrix) (float64, error) {
	yt, ys, err := columnPair("AUCMatrix", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	return AUC(yt, ys)
}
