package metrics

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ClassScores はクラス1行分の指標
type ClassScores struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	Support   int     `json:"support"`
}

// Report は scikit-learn の classification_report 相当
type Report struct {
	Classes     []ClassScores `json:"classes"`
	Accuracy    float64       `json:"accuracy"`
	MacroAvg    ClassScores   `json:"macro_avg"`
	WeightedAvg ClassScores   `json:"weighted_avg"`
}

// ClassificationReport は両クラスの precision/recall/F1/support と平均を計算する
func ClassificationReport(yTrue, yPred *mat.VecDense, labels [2]string) (*Report, error) {
	c, err := binaryCounts("ClassificationReport", yTrue, yPred)
	if err != nil {
		return nil, err
	}
	n := c.tp + c.fp + c.fn + c.tn

	// クラス0の視点では tn が真陽性
	perClass := []struct {
		tp, fp, fn int
	}{
		{c.tn, c.fn, c.fp},
		{c.tp, c.fp, c.fn},
	}
	r := &Report{Accuracy: float64(c.tp+c.tn) / float64(n)}
	for k, pc := range perClass {
		s := ClassScores{
			Label:     labels[k],
			Precision: ratio("precision", "no predicted samples for "+labels[k], pc.tp, pc.tp+pc.fp),
			Recall:    ratio("recall", "no true samples for "+labels[k], pc.tp, pc.tp+pc.fn),
			F1:        ratio("f1", "no true nor predicted samples for "+labels[k], 2*pc.tp, 2*pc.tp+pc.fp+pc.fn),
			Support:   pc.tp + pc.fn,
		}
		r.Classes = append(r.Classes, s)
	}

	r.MacroAvg = ClassScores{Label: "macro avg", Support: n}
	r.WeightedAvg = ClassScores{Label: "weighted avg", Support: n}
	for _, s := range r.Classes {
		r.MacroAvg.Precision += s.Precision / 2
		r.MacroAvg.Recall += s.Recall / 2
		r.MacroAvg.F1 += s.F1 / 2
		w := float64(s.Support) / float64(n)
		r.WeightedAvg.Precision += s.Precision * w
		r.WeightedAvg.Recall += s.Recall * w
		r.WeightedAvg.F1 += s.F1 * w
	}
	return r, nil
}

// String は classification_report と同じ体裁のテキストを返す
func (r *Report) String() string {
	width := len("weighted avg")
	for _, c := range r.Classes {
		if len(c.Label) > width {
			width = len(c.Label)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%*s %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	for _, c := range r.Classes {
		fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.MacroAvg.Support)
	for _, c := range []ClassScores{r.MacroAvg, r.WeightedAvg} {
		fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	return b.String()
}

// Scorecard はベンチ1モデル分の評価結果
type Scorecard struct {
	Model     string         `json:"model"`
	Params    map[string]any `json:"params,omitempty"`
	Accuracy  float64        `json:"accuracy"`
	Precision float64        `json:"precision"`
	Recall    float64        `json:"recall"`
	F1        float64        `json:"f1_score"`
	AUC       float64        `json:"auc_roc"`
	// TrainSeconds は fit と predict の経過時間
	TrainSeconds float64    `json:"train_seconds"`
	Confusion    *mat.Dense `json:"-"`
	ROC          []ROCPoint `json:"-"`
}

// Score は予測ラベルと陽性確率から Scorecard を埋める
func Score(name string, yTrue, yPred, yProba *mat.VecDense) (*Scorecard, error) {
	s := &Scorecard{Model: name}
	var err error
	if s.Accuracy, err = Accuracy(yTrue, yPred); err != nil {
		return nil, err
	}
	if s.Precision, err = Precision(yTrue, yPred); err != nil {
		return nil, err
	}
	if s.Recall, err = Recall(yTrue, yPred); err != nil {
		return nil, err
	}
	if s.F1, err = F1Score(yTrue, yPred); err != nil {
		return nil, err
	}
	if s.AUC, err = AUC(yTrue, yProba); err != nil {
		return nil, err
	}
	if s.Confusion, err = ConfusionMatrix(yTrue, yPred, "true"); err != nil {
		return nil, err
	}
	if s.ROC, err = ROCCurve(yTrue, yProba); err != nil {
		return nil, err
	}
	return s, nil
}
