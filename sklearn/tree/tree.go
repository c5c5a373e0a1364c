package tree

import (
	"fmt"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// Leaf marks a node without a split.
const Leaf = -1

// Node is one node of a binary decision tree stored in a flat slice.
// Samples with x[Feature] <= Threshold go Left.
type Node struct {
	Feature   int     // split feature, Leaf for leaves
	Threshold float64 // split threshold
	Left      int     // index of the left child
	Right     int     // index of the right child
	Value     float64 // leaf output (probability or raw score)
	Cover     float64 // weight of training samples reaching the node
	Gain      float64 // impurity decrease or loss reduction of the split
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return n.Feature == Leaf }

// Tree is a fitted binary tree. Nodes[0] is the root.
type Tree struct {
	Nodes []Node
}

// Predict returns the leaf value for one sample.
func (t *Tree) Predict(x []float64) float64 {
	return t.Nodes[t.Apply(x)].Value
}

// Apply returns the index of the leaf reached by x.
func (t *Tree) Apply(x []float64) int {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			return i
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Depth returns the number of edges on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	var walk func(i int) int
	walk = func(i int) int {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	if len(t.Nodes) == 0 {
		return 0
	}
	return walk(0)
}

// NumLeaves counts the leaves.
func (t *Tree) NumLeaves() int {
	c := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			c++
		}
	}
	return c
}

// Validate checks the structural invariants TreeSHAP relies on: child indices
// in range and a positive cover on every node.
func (t *Tree) Validate(nFeatures int) error {
	if len(t.Nodes) == 0 {
		return errors.NewValueError("Tree.Validate", "tree has no nodes")
	}
	for i, n := range t.Nodes {
		if n.Cover <= 0 {
			return errors.NewValueError("Tree.Validate", fmt.Sprintf("node %d has non-positive cover %v", i, n.Cover))
		}
		if n.IsLeaf() {
			continue
		}
		if n.Feature < 0 || n.Feature >= nFeatures {
			return errors.NewValueError("Tree.Validate", fmt.Sprintf("node %d splits on feature %d of %d", i, n.Feature, nFeatures))
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return errors.NewValueError("Tree.Validate", fmt.Sprintf("node %d has invalid children %d/%d", i, n.Left, n.Right))
		}
	}
	return nil
}

// AddImportances accumulates the split gains of t per feature into imp.
func (t *Tree) AddImportances(imp []float64) {
	for _, n := range t.Nodes {
		if !n.IsLeaf() {
			imp[n.Feature] += n.Gain
		}
	}
}

// Normalize scales v to sum to one; an all-zero v is left unchanged.
func Normalize(v []float64) []float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	if s > 0 {
		for i := range v {
			v[i] /= s
		}
	}
	return v
}
