package svm

import (
	"math"
)

// tau replaces a non-positive curvature in the two-variable subproblem.
const tau = 1e-12

// solver is the SMO decomposition for
//
//	min ½ αᵀQα − eᵀα  s.t. yᵀα = 0, 0 ≤ α ≤ C,  Q_ij = y_i y_j K(x_i, x_j)
//
// with second-order working set selection (Fan, Chen and Lin, 2005).
type solver struct {
	rows  [][]float64
	y     []float64
	gamma float64
	c     float64
	eps   float64

	alpha []float64
	grad  []float64
	qd    []float64 // K(x_i, x_i)
	cache *kernelCache
}

func newSolver(rows [][]float64, y []float64, gamma, c, eps, cacheMB float64) *solver {
	n := len(rows)
	s := &solver{
		rows:  rows,
		y:     y,
		gamma: gamma,
		c:     c,
		eps:   eps,
		alpha: make([]float64, n),
		grad:  make([]float64, n),
		qd:    make([]float64, n),
	}
	for i := range s.grad {
		s.grad[i] = -1
		s.qd[i] = 1 // RBF: K(x, x) = 1
	}
	capacity := int(cacheMB * (1 << 20) / float64(8*max(n, 1)))
	s.cache = newKernelCache(max(capacity, 2), s.kernelRow)
	return s
}

func (s *solver) kernelRow(i int) []float64 {
	row := make([]float64, len(s.rows))
	for j := range row {
		row[j] = rbf(s.gamma, s.rows[i], s.rows[j])
	}
	return row
}

func (s *solver) upper(t int) bool { return s.alpha[t] >= s.c }
func (s *solver) lower(t int) bool { return s.alpha[t] <= 0 }

func (s *solver) inUp(t int) bool {
	if s.y[t] > 0 {
		return !s.upper(t)
	}
	return !s.lower(t)
}

func (s *solver) inLow(t int) bool {
	if s.y[t] > 0 {
		return !s.lower(t)
	}
	return !s.upper(t)
}

// selectWorkingSet returns the pair (i, j), or ok=false at optimality.
func (s *solver) selectWorkingSet() (i, j int, ok bool) {
	gmax := math.Inf(-1)
	i = -1
	for t := range s.alpha {
		if s.inUp(t) {
			if v := -s.y[t] * s.grad[t]; v >= gmax {
				gmax, i = v, t
			}
		}
	}
	if i < 0 {
		return 0, 0, false
	}
	ki := s.cache.row(i)

	gmin := math.Inf(1)
	best := math.Inf(1)
	j = -1
	for t := range s.alpha {
		if !s.inLow(t) {
			continue
		}
		v := -s.y[t] * s.grad[t]
		if v < gmin {
			gmin = v
		}
		b := gmax - v
		if b <= 0 {
			continue
		}
		a := s.qd[i] + s.qd[t] - 2*ki[t]
		if a <= 0 {
			a = tau
		}
		if obj := -(b * b) / a; obj <= best {
			best, j = obj, t
		}
	}
	if gmax-gmin < s.eps || j < 0 {
		return 0, 0, false
	}
	return i, j, true
}

// solve runs at most maxIter updates and reports whether it converged.
func (s *solver) solve(maxIter int) (int, bool) {
	for iter := 0; iter < maxIter; iter++ {
		i, j, ok := s.selectWorkingSet()
		if !ok {
			return iter, true
		}
		ki, kj := s.cache.row(i), s.cache.row(j)
		ai, aj := s.alpha[i], s.alpha[j]
		c := s.c

		if s.y[i] != s.y[j] {
			quad := s.qd[i] + s.qd[j] - 2*ki[j]
			if quad <= 0 {
				quad = tau
			}
			delta := (-s.grad[i] - s.grad[j]) / quad
			diff := ai - aj
			ni, nj := ai+delta, aj+delta
			if diff > 0 {
				if nj < 0 {
					nj, ni = 0, diff
				}
			} else if ni < 0 {
				ni, nj = 0, -diff
			}
			if diff > 0 {
				if ni > c {
					ni, nj = c, c-diff
				}
			} else if nj > c {
				nj, ni = c, c+diff
			}
			s.alpha[i], s.alpha[j] = ni, nj
		} else {
			quad := s.qd[i] + s.qd[j] - 2*ki[j]
			if quad <= 0 {
				quad = tau
			}
			delta := (s.grad[i] - s.grad[j]) / quad
			sum := ai + aj
			ni, nj := ai-delta, aj+delta
			if sum > c {
				if ni > c {
					ni, nj = c, sum-c
				}
			} else if nj < 0 {
				nj, ni = 0, sum
			}
			if sum > c {
				if nj > c {
					nj, ni = c, sum-c
				}
			} else if ni < 0 {
				ni, nj = 0, sum
			}
			s.alpha[i], s.alpha[j] = ni, nj
		}

		di, dj := s.alpha[i]-ai, s.alpha[j]-aj
		for t := range s.grad {
			// Q_ti = y_t y_i K_ti
			s.grad[t] += s.y[t] * (s.y[i]*ki[t]*di + s.y[j]*kj[t]*dj)
		}
	}
	_, _, ok := s.selectWorkingSet()
	return maxIter, !ok
}

// rho is the offset b in f(x) = Σ α_i y_i K(x_i, x) − rho, averaged over free
// support vectors, or the midpoint of the feasible interval when none is free.
func (s *solver) rho() float64 {
	ub, lb := math.Inf(1), math.Inf(-1)
	var sumFree float64
	var nFree int
	for t := range s.alpha {
		yg := s.y[t] * s.grad[t]
		switch {
		case s.upper(t):
			if s.y[t] < 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		case s.lower(t):
			if s.y[t] > 0 {
				ub = math.Min(ub, yg)
			} else {
				lb = math.Max(lb, yg)
			}
		default:
			nFree++
			sumFree += yg
		}
	}
	if nFree > 0 {
		return sumFree / float64(nFree)
	}
	return (ub + lb) / 2
}

// kernelCache keeps recently used kernel rows, evicting in insertion order.
type kernelCache struct {
	capacity int
	compute  func(int) []float64
	rows     map[int][]float64
	order    []int
}

func newKernelCache(capacity int, compute func(int) []float64) *kernelCache {
	return &kernelCache{capacity: capacity, compute: compute, rows: make(map[int][]float64)}
}

func (c *kernelCache) row(i int) []float64 {
	if r, ok := c.rows[i]; ok {
		return r
	}
	if len(c.order) >= c.capacity {
		delete(c.rows, c.order[0])
		c.order = c.order[1:]
	}
	r := c.compute(i)
	c.rows[i] = r
	c.order = append(c.order, i)
	return r
}
