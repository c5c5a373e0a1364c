// Package tree provides the flat binary tree shared by every tree model and a
// CART decision tree classifier compatible with scikit-learn's
// DecisionTreeClassifier for binary targets.
package tree

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnlab/core/model"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/pkg/log"
)

// DecisionTreeClassifier grows a CART tree on gini or entropy impurity.
// Leaf values are the weighted share of the positive class.
type DecisionTreeClassifier struct {
	*model.StateManager

	Criterion       string // "gini" or "entropy"
	MaxDepth        int    // 0 means unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // features examined per split, 0 means all
	RandomState     int64

	Tree        *Tree
	Importances []float64 // normalized impurity decrease per feature
}

// Option configures a DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// WithCriterion sets the impurity ("gini" or "entropy").
func WithCriterion(c string) Option {
	return func(d *DecisionTreeClassifier) { d.Criterion = c }
}

// WithMaxDepth limits the depth; 0 means unlimited.
func WithMaxDepth(depth int) Option {
	return func(d *DecisionTreeClassifier) { d.MaxDepth = depth }
}

// WithMinSamplesSplit sets the minimum samples needed to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(d *DecisionTreeClassifier) { d.MinSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum samples in each child.
func WithMinSamplesLeaf(n int) Option {
	return func(d *DecisionTreeClassifier) { d.MinSamplesLeaf = n }
}

// WithMaxFeatures sets how many features are examined per split.
func WithMaxFeatures(n int) Option {
	return func(d *DecisionTreeClassifier) { d.MaxFeatures = n }
}

// WithRandomState seeds the feature permutation.
func WithRandomState(seed int64) Option {
	return func(d *DecisionTreeClassifier) { d.RandomState = seed }
}

// NewDecisionTreeClassifier creates a classifier with scikit-learn defaults.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	d := &DecisionTreeClassifier{
		StateManager:    model.NewStateManager(),
		Criterion:       "gini",
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		RandomState:     42,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DecisionTreeClassifier) validate() error {
	if d.Criterion != "gini" && d.Criterion != "entropy" {
		return errors.NewValidationError("criterion", "must be gini or entropy", d.Criterion)
	}
	if d.MaxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be non-negative", d.MaxDepth)
	}
	if d.MinSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", d.MinSamplesSplit)
	}
	if d.MinSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", d.MinSamplesLeaf)
	}
	return nil
}

// Fit grows the tree on all rows with unit weight.
func (d *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	return d.FitWeighted(X, y, nil)
}

// FitWeighted grows the tree with per-sample weights, such as bootstrap
// counts. Rows with zero weight are ignored.
func (d *DecisionTreeClassifier) FitWeighted(X, y mat.Matrix, weights []float64) (err error) {
	defer errors.Recover(&err, "DecisionTreeClassifier.Fit")

	if err := d.validate(); err != nil {
		return err
	}
	labels, err := model.BinaryTarget("DecisionTreeClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	if weights == nil {
		weights = make([]float64, nSamples)
		for i := range weights {
			weights[i] = 1
		}
	} else if len(weights) != nSamples {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", nSamples, len(weights), 0)
	}

	d.Reset()
	rows := model.Rows(X)
	idx := make([]int, 0, nSamples)
	for i, w := range weights {
		if w > 0 {
			idx = append(idx, i)
		}
	}
	b := &builder{
		clf:     d,
		rows:    rows,
		labels:  labels,
		weights: weights,
		rng:     rand.New(rand.NewSource(d.RandomState)),
		tree:    &Tree{},
		nFeat:   nFeatures,
	}
	b.grow(idx, 0)
	d.Tree = b.tree

	imp := make([]float64, nFeatures)
	d.Tree.AddImportances(imp)
	d.Importances = Normalize(imp)

	d.SetFitted(nSamples, nFeatures)
	log.GetLoggerWithName("DecisionTreeClassifier").Debug("fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		"tree.depth", d.Tree.Depth(),
		"tree.leaves", d.Tree.NumLeaves())
	return nil
}

type builder struct {
	clf     *DecisionTreeClassifier
	rows    [][]float64
	labels  []float64
	weights []float64
	rng     *rand.Rand
	tree    *Tree
	nFeat   int
}

func (b *builder) impurity(wPos, wTotal float64) float64 {
	if wTotal == 0 {
		return 0
	}
	p := wPos / wTotal
	if b.clf.Criterion == "entropy" {
		var h float64
		for _, q := range []float64{p, 1 - p} {
			if q > 0 {
				h -= q * math.Log2(q)
			}
		}
		return h
	}
	return 2 * p * (1 - p)
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
}

// grow appends the subtree for idx and returns its node index.
func (b *builder) grow(idx []int, depth int) int {
	var wTotal, wPos float64
	for _, i := range idx {
		wTotal += b.weights[i]
		wPos += b.weights[i] * b.labels[i]
	}
	node := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{
		Feature: Leaf,
		Left:    Leaf,
		Right:   Leaf,
		Value:   wPos / wTotal,
		Cover:   wTotal,
	})

	c := b.clf
	imp := b.impurity(wPos, wTotal)
	if imp == 0 || len(idx) < c.MinSamplesSplit || len(idx) < 2*c.MinSamplesLeaf ||
		(c.MaxDepth > 0 && depth >= c.MaxDepth) {
		return node
	}

	best := b.bestSplit(idx, wPos, wTotal, imp)
	if best == nil {
		return node
	}
	left := b.grow(best.left, depth+1)
	right := b.grow(best.right, depth+1)
	n := &b.tree.Nodes[node]
	n.Feature = best.feature
	n.Threshold = best.threshold
	n.Left = left
	n.Right = right
	n.Gain = best.gain
	return node
}

// bestSplit examines features in a random order. After MaxFeatures features
// that are not constant on the node, the search stops if a split was found.
func (b *builder) bestSplit(idx []int, wPos, wTotal, parentImp float64) *split {
	c := b.clf
	maxFeatures := c.MaxFeatures
	if maxFeatures <= 0 || maxFeatures > b.nFeat {
		maxFeatures = b.nFeat
	}
	order := b.rng.Perm(b.nFeat)

	var best *split
	bestProxy := math.Inf(-1)
	visited := 0
	sorted := make([]int, len(idx))
	for _, f := range order {
		if visited >= maxFeatures && best != nil {
			break
		}
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, z int) bool { return b.rows[sorted[a]][f] < b.rows[sorted[z]][f] })
		lo, hi := b.rows[sorted[0]][f], b.rows[sorted[len(sorted)-1]][f]
		if lo == hi {
			continue
		}
		visited++

		var wl, pl float64
		var nl int
		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			wl += b.weights[i]
			pl += b.weights[i] * b.labels[i]
			nl++
			v, next := b.rows[i][f], b.rows[sorted[k+1]][f]
			if v == next {
				continue
			}
			nr := len(sorted) - nl
			if nl < c.MinSamplesLeaf || nr < c.MinSamplesLeaf {
				continue
			}
			wr, pr := wTotal-wl, wPos-pl
			// 重み付き不純度の和が小さいほど良い
			proxy := -(wl*b.impurity(pl, wl) + wr*b.impurity(pr, wr))
			if proxy > bestProxy+1e-12 {
				bestProxy = proxy
				threshold := v + (next-v)/2
				if threshold == next {
					threshold = v
				}
				best = &split{feature: f, threshold: threshold}
				best.left = append([]int(nil), sorted[:k+1]...)
				best.right = append([]int(nil), sorted[k+1:]...)
			}
		}
	}
	if best == nil {
		return nil
	}
	// 改善0の分割も許す（XORのような配置で次の段が分離できる）
	best.gain = math.Max(0, wTotal*parentImp+bestProxy)
	return best
}

func (d *DecisionTreeClassifier) positiveProba(X mat.Matrix) ([]float64, error) {
	if err := d.CheckInput("DecisionTreeClassifier", "Predict", X); err != nil {
		return nil, err
	}
	rows := model.Rows(X)
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = d.Tree.Predict(r)
	}
	return out, nil
}

// Predict returns class labels (n×1).
func (d *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	p, err := d.positiveProba(X)
	if err != nil {
		return nil, err
	}
	return model.LabelsFromProba(p), nil
}

// PredictProba returns [P(0), P(1)] (n×2).
func (d *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	p, err := d.positiveProba(X)
	if err != nil {
		return nil, err
	}
	return model.ProbaMatrix(p), nil
}

// FeatureImportances returns the normalized total impurity decrease per feature.
func (d *DecisionTreeClassifier) FeatureImportances() []float64 {
	return append([]float64(nil), d.Importances...)
}

// Ensemble exposes the fitted tree for TreeSHAP: one tree, unit weight, no
// offset, output in probability space.
func (d *DecisionTreeClassifier) Ensemble() ([]*Tree, float64, float64) {
	return []*Tree{d.Tree}, 1, 0
}

// GetParams returns the hyperparameters.
func (d *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         d.Criterion,
		"max_depth":         d.MaxDepth,
		"min_samples_split": d.MinSamplesSplit,
		"min_samples_leaf":  d.MinSamplesLeaf,
		"max_features":      d.MaxFeatures,
		"random_state":      d.RandomState,
	}
}

// SetParams applies a flat parameter map.
func (d *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, v := range params {
		var err error
		switch key {
		case "criterion":
			d.Criterion, err = model.StringParam(key, v)
		case "max_depth":
			d.MaxDepth, err = model.IntParam(key, v)
		case "min_samples_split":
			d.MinSamplesSplit, err = model.IntParam(key, v)
		case "min_samples_leaf":
			d.MinSamplesLeaf, err = model.IntParam(key, v)
		case "max_features":
			d.MaxFeatures, err = model.IntParam(key, v)
		case "random_state":
			var seed int
			seed, err = model.IntParam(key, v)
			d.RandomState = int64(seed)
		default:
			err = model.UnknownParam("DecisionTreeClassifier", key, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// String returns a short description.
func (d *DecisionTreeClassifier) String() string {
	return fmt.Sprintf("DecisionTreeClassifier(criterion=%s, max_depth=%d)", d.Criterion, d.MaxDepth)
}
