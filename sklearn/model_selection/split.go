// Package model_selection provides the stratified hold-out split used by the
// churn pipeline and by each search trial.
package model_selection

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// Split holds row indices into the original data.
type Split struct {
	Train []int
	Test  []int
}

// StratifiedSplit partitions the rows of y so that each class keeps its share
// in both parts.
//
// The test size is ceil(testSize·n). It is divided among classes by largest
// remainder of testSize·count, ties going to the larger class. Rows are
// shuffled within each class with a generator seeded by seed, and each side is
// shuffled again so classes interleave. Every class needs at least two rows
// and must land on both sides.
func StratifiedSplit(y []float64, testSize float64, seed int64) (*Split, error) {
	n := len(y)
	if testSize <= 0 || testSize >= 1 {
		return nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	if n == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "StratifiedSplit")
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	nTrain := n - nTest

	byClass := make(map[float64][]int)
	for i, v := range y {
		if math.IsNaN(v) {
			return nil, errors.NewValueError("StratifiedSplit", fmt.Sprintf("label at row %d is missing", i))
		}
		byClass[v] = append(byClass[v], i)
	}
	classes := make([]float64, 0, len(byClass))
	for c, idx := range byClass {
		if len(idx) < 2 {
			return nil, errors.NewValueError("StratifiedSplit",
				fmt.Sprintf("the least populated class (%v) has only %d member, which is too few; the minimum is 2", c, len(idx)))
		}
		classes = append(classes, c)
	}
	sort.Float64s(classes)
	if nTest < len(classes) || nTrain < len(classes) {
		return nil, errors.NewValueError("StratifiedSplit",
			fmt.Sprintf("test size %d and train size %d must each be at least the number of classes %d", nTest, nTrain, len(classes)))
	}

	alloc := allocate(classes, byClass, testSize, nTest)

	rng := rand.New(rand.NewSource(seed))
	s := &Split{}
	for k, c := range classes {
		idx := append([]int(nil), byClass[c]...)
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		s.Test = append(s.Test, idx[:alloc[k]]...)
		s.Train = append(s.Train, idx[alloc[k]:]...)
	}
	rng.Shuffle(len(s.Train), func(a, b int) { s.Train[a], s.Train[b] = s.Train[b], s.Train[a] })
	rng.Shuffle(len(s.Test), func(a, b int) { s.Test[a], s.Test[b] = s.Test[b], s.Test[a] })
	return s, nil
}

// allocate distributes nTest rows over classes by largest remainder, keeping
// at least one test and one train row per class.
func allocate(classes []float64, byClass map[float64][]int, testSize float64, nTest int) []int {
	type share struct {
		k     int
		frac  float64
		count int
	}
	alloc := make([]int, len(classes))
	shares := make([]share, len(classes))
	used := 0
	for k, c := range classes {
		count := len(byClass[c])
		exact := testSize * float64(count)
		alloc[k] = int(math.Floor(exact))
		shares[k] = share{k: k, frac: exact - float64(alloc[k]), count: count}
		used += alloc[k]
	}
	sort.SliceStable(shares, func(a, b int) bool {
		if shares[a].frac != shares[b].frac {
			return shares[a].frac > shares[b].frac
		}
		return shares[a].count > shares[b].count
	})
	for i := 0; used < nTest; i = (i + 1) % len(shares) {
		k := shares[i].k
		if alloc[k] < shares[i].count-1 {
			alloc[k]++
			used++
		}
	}
	// 各クラスは両側に最低1行
	for k, c := range classes {
		if alloc[k] == 0 {
			alloc[k] = 1
			for j := range alloc {
				if j != k && alloc[j] > 1 {
					alloc[j]--
					break
				}
			}
		}
		if alloc[k] == len(byClass[c]) {
			alloc[k]--
		}
	}
	return alloc
}

// TrainTestSplit applies StratifiedSplit to a design matrix and an n×1 label
// matrix, returning the four parts in the usual order.
func TrainTestSplit(X, y mat.Matrix, testSize float64, seed int64) (XTrain, XTest, yTrain, yTest *mat.Dense, err error) {
	n, p := X.Dims()
	yr, _ := y.Dims()
	if yr != n {
		return nil, nil, nil, nil, errors.NewDimensionError("TrainTestSplit", n, yr, 0)
	}
	labels := make([]float64, n)
	for i := range labels {
		labels[i] = y.At(i, 0)
	}
	s, err := StratifiedSplit(labels, testSize, seed)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	take := func(idx []int) (*mat.Dense, *mat.Dense) {
		xs := mat.NewDense(len(idx), p, nil)
		ys := mat.NewDense(len(idx), 1, nil)
		for r, i := range idx {
			for j := 0; j < p; j++ {
				xs.Set(r, j, X.At(i, j))
			}
			ys.Set(r, 0, labels[i])
		}
		return xs, ys
	}
	XTrain, yTrain = take(s.Train)
	XTest, yTest = take(s.Test)
	return XTrain, XTest, yTrain, yTest, nil
}
