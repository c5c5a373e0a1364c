package explain

import (
	"github.com/YuminosukeSato/churnlab/sklearn/tree"
)

// pathElement tracks one feature on the current root-to-node path:
// zero is the fraction of "feature missing" paths that flow here, one is 1 when
// x follows this branch and 0 otherwise, and pweight the permutation weight.
type pathElement struct {
	feature int
	zero    float64
	one     float64
	pweight float64
}

// explainTree adds weight·φ(x) of one tree to phi (Lundberg et al., 2018,
// Algorithm 2).
func explainTree(t *tree.Tree, x, phi []float64, weight float64) {
	var recurse func(node int, parent []pathElement, depth int, zero, one float64, feature int)
	recurse = func(node int, parent []pathElement, depth int, zero, one float64, feature int) {
		path := make([]pathElement, depth+1)
		copy(path, parent[:depth])
		extend(path, depth, zero, one, feature)

		n := &t.Nodes[node]
		if n.IsLeaf() {
			for i := 1; i <= depth; i++ {
				w := unwoundSum(path, depth, i)
				el := path[i]
				phi[el.feature] += weight * w * (el.one - el.zero) * n.Value
			}
			return
		}

		hot, cold := n.Right, n.Left
		if x[n.Feature] <= n.Threshold {
			hot, cold = n.Left, n.Right
		}
		hotZero := t.Nodes[hot].Cover / n.Cover
		coldZero := t.Nodes[cold].Cover / n.Cover
		inZero, inOne := 1.0, 1.0

		// 同じ特徴が経路上にあれば一度取り除いてから分岐ごとに入れ直す
		for k := 1; k <= depth; k++ {
			if path[k].feature == n.Feature {
				inZero, inOne = path[k].zero, path[k].one
				unwind(path, depth, k)
				depth--
				break
			}
		}
		recurse(hot, path, depth+1, hotZero*inZero, inOne, n.Feature)
		recurse(cold, path, depth+1, coldZero*inZero, 0, n.Feature)
	}
	recurse(0, nil, 0, 1, 1, -1)
}

func extend(path []pathElement, depth int, zero, one float64, feature int) {
	path[depth] = pathElement{feature: feature, zero: zero, one: one}
	if depth == 0 {
		path[depth].pweight = 1
	}
	d := float64(depth)
	for i := depth - 1; i >= 0; i-- {
		fi := float64(i)
		path[i+1].pweight += one * path[i].pweight * (fi + 1) / (d + 1)
		path[i].pweight = zero * path[i].pweight * (d - fi) / (d + 1)
	}
}

func unwind(path []pathElement, depth, index int) {
	one, zero := path[index].one, path[index].zero
	next := path[depth].pweight
	d := float64(depth)
	for i := depth - 1; i >= 0; i-- {
		fi := float64(i)
		if one != 0 {
			tmp := path[i].pweight
			path[i].pweight = next * (d + 1) / ((fi + 1) * one)
			next = tmp - path[i].pweight*zero*(d-fi)/(d+1)
		} else {
			path[i].pweight = path[i].pweight * (d + 1) / (zero * (d - fi))
		}
	}
	for i := index; i < depth; i++ {
		path[i].feature = path[i+1].feature
		path[i].zero = path[i+1].zero
		path[i].one = path[i+1].one
	}
}

func unwoundSum(path []pathElement, depth, index int) float64 {
	one, zero := path[index].one, path[index].zero
	next := path[depth].pweight
	d := float64(depth)
	var total float64
	for i := depth - 1; i >= 0; i-- {
		fi := float64(i)
		if one != 0 {
			tmp := next * (d + 1) / ((fi + 1) * one)
			total += tmp
			next = path[i].pweight - tmp*zero*(d-fi)/(d+1)
		} else {
			total += path[i].pweight / zero / ((d - fi) / (d + 1))
		}
	}
	return total
}
