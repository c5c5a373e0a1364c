package gbdt

import (
	"math"

	"github.com/YuminosukeSato/churnlab/core/parallel"
	"github.com/YuminosukeSato/churnlab/sklearn/tree"
)

type grower struct {
	cfg    Config
	mapper *binMapper
	bins   [][]uint8 // bins[feature][row]
	grad   []float64
	hess   []float64
}

type histBin struct {
	g, h float64
	n    int
}

// stats are the gradient sums of a set of rows.
type stats struct {
	g, h float64
	n    int
}

func (s stats) sub(o stats) stats { return stats{s.g - o.g, s.h - o.h, s.n - o.n} }

// candidate is the best split of one leaf.
type candidate struct {
	feature int
	bin     int // rows with bin <= this go left
	gain    float64
	left    stats
	right   stats
}

// leaf is a node still open for splitting.
type leaf struct {
	node  int
	rows  []int
	depth int
	sum   stats
	best  *candidate
}

func (g *grower) score(s stats) float64 {
	return s.g * s.g / (s.h + g.cfg.Lambda)
}

func (g *grower) leafValue(s stats) float64 {
	// η · (−G / (H + λ))
	return -g.cfg.LearningRate * s.g / (s.h + g.cfg.Lambda)
}

func (g *grower) sum(rows []int) stats {
	var s stats
	for _, i := range rows {
		s.g += g.grad[i]
		s.h += g.hess[i]
	}
	s.n = len(rows)
	return s
}

// histograms accumulates per-bin gradient sums for every feature.
func (g *grower) histograms(rows []int) [][]histBin {
	nFeatures := len(g.bins)
	hists := make([][]histBin, nFeatures)
	build := func(start, end int) {
		for f := start; f < end; f++ {
			h := make([]histBin, g.mapper.numBins(f))
			col := g.bins[f]
			for _, i := range rows {
				b := &h[col[i]]
				b.g += g.grad[i]
				b.h += g.hess[i]
				b.n++
			}
			hists[f] = h
		}
	}
	if len(rows) < 2048 {
		build(0, nFeatures)
	} else {
		parallel.Parallelize(nFeatures, build)
	}
	return hists
}

func (g *grower) admissible(s stats) bool {
	return s.n > 0 && s.n >= g.cfg.MinChildSamples && s.h >= g.cfg.MinChildWeight
}

// bestSplit scans the histograms of one leaf.
func (g *grower) bestSplit(rows []int, total stats) *candidate {
	if total.n < 2 {
		return nil
	}
	hists := g.histograms(rows)
	parent := g.score(total)
	var best *candidate
	for f, h := range hists {
		var left stats
		for k := 0; k+1 < len(h); k++ {
			left.g += h[k].g
			left.h += h[k].h
			left.n += h[k].n
			if h[k].n == 0 {
				continue
			}
			right := total.sub(left)
			if !g.admissible(left) || !g.admissible(right) {
				continue
			}
			gain := 0.5*(g.score(left)+g.score(right)-parent) - g.cfg.MinSplitGain
			if gain > kEpsilon && (best == nil || gain > best.gain) {
				best = &candidate{feature: f, bin: k, gain: gain, left: left, right: right}
			}
		}
	}
	return best
}

func (g *grower) partition(rows []int, feature, bin int) (left, right []int) {
	col := g.bins[feature]
	for _, i := range rows {
		if int(col[i]) <= bin {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func (g *grower) threshold(feature, bin int) float64 {
	return g.mapper.Cuts[feature][bin]
}

func (g *grower) newLeaf(t *tree.Tree, rows []int, s stats, depth int) *leaf {
	node := len(t.Nodes)
	t.Nodes = append(t.Nodes, tree.Node{
		Feature: tree.Leaf,
		Left:    tree.Leaf,
		Right:   tree.Leaf,
		Value:   g.leafValue(s),
		Cover:   s.h,
	})
	return &leaf{node: node, rows: rows, depth: depth, sum: s}
}

// split turns l into an internal node and returns its two children.
func (g *grower) split(t *tree.Tree, l *leaf, c *candidate) (*leaf, *leaf) {
	lr, rr := g.partition(l.rows, c.feature, c.bin)
	left := g.newLeaf(t, lr, c.left, l.depth+1)
	right := g.newLeaf(t, rr, c.right, l.depth+1)
	n := &t.Nodes[l.node]
	n.Feature = c.feature
	n.Threshold = g.threshold(c.feature, c.bin)
	n.Left = left.node
	n.Right = right.node
	n.Gain = c.gain
	n.Value = 0
	return left, right
}

func (g *grower) grow(rows []int) *tree.Tree {
	switch g.cfg.Policy {
	case LeafWise:
		return g.growLeafWise(rows)
	case Oblivious:
		return g.growOblivious(rows)
	default:
		return g.growDepthWise(rows)
	}
}

func (g *grower) canDeepen(depth int) bool {
	return g.cfg.MaxDepth == 0 || depth < g.cfg.MaxDepth
}

// growDepthWise expands all leaves of a level before the next one.
func (g *grower) growDepthWise(rows []int) *tree.Tree {
	t := &tree.Tree{}
	level := []*leaf{g.newLeaf(t, rows, g.sum(rows), 0)}
	leaves := 1
	for len(level) > 0 {
		var next []*leaf
		for _, l := range level {
			if !g.canDeepen(l.depth) || (g.cfg.MaxLeaves > 0 && leaves >= g.cfg.MaxLeaves) {
				continue
			}
			c := g.bestSplit(l.rows, l.sum)
			if c == nil {
				continue
			}
			left, right := g.split(t, l, c)
			leaves++
			next = append(next, left, right)
		}
		level = next
	}
	return t
}

// growLeafWise splits the open leaf with the largest gain until MaxLeaves.
func (g *grower) growLeafWise(rows []int) *tree.Tree {
	t := &tree.Tree{}
	root := g.newLeaf(t, rows, g.sum(rows), 0)
	root.best = g.bestSplit(root.rows, root.sum)
	open := []*leaf{root}
	leaves := 1
	for g.cfg.MaxLeaves == 0 || leaves < g.cfg.MaxLeaves {
		pick := -1
		for i, l := range open {
			if l.best != nil && (pick < 0 || l.best.gain > open[pick].best.gain) {
				pick = i
			}
		}
		if pick < 0 {
			break
		}
		l := open[pick]
		open = append(open[:pick], open[pick+1:]...)
		left, right := g.split(t, l, l.best)
		leaves++
		for _, child := range []*leaf{left, right} {
			if g.canDeepen(child.depth) {
				child.best = g.bestSplit(child.rows, child.sum)
			}
			open = append(open, child)
		}
	}
	return t
}

// growOblivious picks, per level, the (feature, bin) with the largest total
// gain over all leaves of the level and applies it to each of them. A leaf
// where that split would leave one side empty stays a leaf.
func (g *grower) growOblivious(rows []int) *tree.Tree {
	t := &tree.Tree{}
	level := []*leaf{g.newLeaf(t, rows, g.sum(rows), 0)}
	for depth := 0; depth < g.cfg.MaxDepth; depth++ {
		hists := make([][][]histBin, len(level))
		for i, l := range level {
			hists[i] = g.histograms(l.rows)
		}
		bestFeature, bestBin := -1, -1
		bestGain := kEpsilon
		for f := range g.bins {
			nb := g.mapper.numBins(f)
			lefts := make([]stats, len(level))
			for k := 0; k+1 < nb; k++ {
				var gain float64
				ok := true
				for i, l := range level {
					hb := hists[i][f][k]
					lefts[i].g += hb.g
					lefts[i].h += hb.h
					lefts[i].n += hb.n
					right := l.sum.sub(lefts[i])
					if lefts[i].n == 0 || right.n == 0 {
						continue
					}
					if !g.admissible(lefts[i]) || !g.admissible(right) {
						ok = false
						continue
					}
					gain += 0.5 * (g.score(lefts[i]) + g.score(right) - g.score(l.sum))
				}
				gain -= g.cfg.MinSplitGain
				if ok && gain > bestGain {
					bestGain, bestFeature, bestBin = gain, f, k
				}
			}
		}
		if bestFeature < 0 {
			break
		}

		var next []*leaf
		for _, l := range level {
			lr, rr := g.partition(l.rows, bestFeature, bestBin)
			if len(lr) == 0 || len(rr) == 0 {
				continue
			}
			ls, rs := g.sum(lr), g.sum(rr)
			c := &candidate{
				feature: bestFeature,
				bin:     bestBin,
				gain:    math.Max(0, 0.5*(g.score(ls)+g.score(rs)-g.score(l.sum))),
				left:    ls,
				right:   rs,
			}
			left, right := g.split(t, l, c)
			next = append(next, left, right)
		}
		level = next
	}
	return t
}
