package tune

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat/distuv"
)

// TPESampler is a univariate tree-structured Parzen estimator. After
// NStartupTrials random trials, the completed trials holding a parameter are
// split into the γ best ("below") and the rest ("above"); each group becomes
// a Parzen mixture, and the candidate maximising l(x)/g(x) among
// NEICandidates draws from l is returned.
type TPESampler struct {
	NStartupTrials int
	NEICandidates  int
	// Gamma returns the size of the "below" group for n observations.
	Gamma func(n int) int
	// PriorWeight is the weight of the uninformative prior component.
	PriorWeight float64

	rng    *rand.Rand
	random *RandomSampler
}

// DefaultGamma is min(ceil(0.1·n), 25).
func DefaultGamma(n int) int {
	return min(int(math.Ceil(0.1*float64(n))), 25)
}

// NewTPESampler creates a sampler with optuna's defaults.
func NewTPESampler(seed int64) *TPESampler {
	return &TPESampler{
		NStartupTrials: 10,
		NEICandidates:  24,
		Gamma:          DefaultGamma,
		PriorWeight:    1,
		rng:            rand.New(rand.NewSource(seed)),
		random:         NewRandomSampler(seed + 1),
	}
}

// Sample implements Sampler.
func (s *TPESampler) Sample(study *Study, name string, d Distribution) float64 {
	var obs []float64
	for _, t := range study.ranked(name) {
		if sameDistribution(t.Distributions[name], d) {
			obs = append(obs, t.internal[name])
		}
	}
	if len(obs) < s.NStartupTrials || len(obs) < 2 {
		return s.random.Sample(study, name, d)
	}
	nBelow := max(s.Gamma(len(obs)), 1)
	below, above := obs[:nBelow], obs[nBelow:]

	switch x := d.(type) {
	case CategoricalDistribution:
		return s.sampleCategorical(len(x.Choices), below, above)
	case FloatDistribution:
		if x.Low == x.High {
			return x.Low
		}
		lo, hi := x.Low, x.High
		tr := func(v float64) float64 { return v }
		if x.Log {
			lo, hi = math.Log(lo), math.Log(hi)
			tr = math.Log
		}
		v := s.sampleNumeric(lo, hi, mapSlice(below, tr), mapSlice(above, tr))
		if x.Log {
			v = math.Exp(v)
		}
		return clip(v, x.Low, x.High)
	case IntDistribution:
		// 整数は ±0.5 に広げた連続区間で推定して丸める
		lo, hi := float64(x.Low)-0.5, float64(x.High)+0.5
		v := s.sampleNumeric(lo, hi, below, above)
		return clip(math.Round(v), float64(x.Low), float64(x.High))
	}
	return s.random.Sample(study, name, d)
}

func mapSlice(v []float64, f func(float64) float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = f(x)
	}
	return out
}

// parzen is a mixture of Gaussians truncated to [low, high].
type parzen struct {
	low, high float64
	weights   []float64
	comps     []distuv.Normal
	mass      []float64 // probability of each component inside the bounds
}

// newParzen centres one component on every observation plus a prior component
// at the middle of the range. Each bandwidth is the larger distance to the
// sorted neighbours, clipped to [(high-low)/min(100, n+1), high-low].
func newParzen(obs []float64, low, high, priorWeight float64) *parzen {
	span := high - low
	mus := append([]float64{(low + high) / 2}, obs...)
	ws := make([]float64, len(mus))
	ws[0] = priorWeight
	for i := 1; i < len(ws); i++ {
		ws[i] = 1
	}

	order := make([]int, len(mus))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return mus[order[a]] < mus[order[b]] })
	sigmas := make([]float64, len(mus))
	for k, idx := range order {
		left, right := mus[idx]-low, high-mus[idx]
		if k > 0 {
			left = mus[idx] - mus[order[k-1]]
		}
		if k+1 < len(order) {
			right = mus[order[k+1]] - mus[idx]
		}
		sigmas[idx] = math.Max(left, right)
	}
	minSigma := span / math.Min(100, float64(len(mus)))
	sigmas[0] = span

	p := &parzen{low: low, high: high}
	var total float64
	for _, w := range ws {
		total += w
	}
	for i, mu := range mus {
		sigma := clip(sigmas[i], minSigma, span)
		n := distuv.Normal{Mu: mu, Sigma: sigma}
		p.comps = append(p.comps, n)
		p.weights = append(p.weights, ws[i]/total)
		p.mass = append(p.mass, math.Max(n.CDF(high)-n.CDF(low), 1e-300))
	}
	return p
}

func (p *parzen) sample(rng *rand.Rand) float64 {
	u := rng.Float64()
	k := len(p.weights) - 1
	for i, w := range p.weights {
		if u < w {
			k = i
			break
		}
		u -= w
	}
	c := p.comps[k]
	for try := 0; try < 100; try++ {
		v := c.Mu + c.Sigma*rng.NormFloat64()
		if v >= p.low && v <= p.high {
			return v
		}
	}
	return clip(c.Mu, p.low, p.high)
}

func (p *parzen) logPdf(x float64) float64 {
	// log Σ w_k φ_k(x) / Z_k, computed with the log-sum-exp trick
	terms := make([]float64, len(p.comps))
	mx := math.Inf(-1)
	for i, c := range p.comps {
		terms[i] = math.Log(p.weights[i]) + c.LogProb(x) - math.Log(p.mass[i])
		mx = math.Max(mx, terms[i])
	}
	var s float64
	for _, t := range terms {
		s += math.Exp(t - mx)
	}
	return mx + math.Log(s)
}

func (s *TPESampler) sampleNumeric(low, high float64, below, above []float64) float64 {
	l := newParzen(below, low, high, s.PriorWeight)
	g := newParzen(above, low, high, s.PriorWeight)
	best, bestScore := l.sample(s.rng), math.Inf(-1)
	for k := 0; k < s.NEICandidates; k++ {
		x := l.sample(s.rng)
		if score := l.logPdf(x) - g.logPdf(x); score > bestScore {
			best, bestScore = x, score
		}
	}
	return best
}

func (s *TPESampler) categoricalProbs(k int, obs []float64) []float64 {
	probs := make([]float64, k)
	for i := range probs {
		probs[i] = s.PriorWeight / float64(k)
	}
	for _, v := range obs {
		probs[int(v)]++
	}
	total := s.PriorWeight + float64(len(obs))
	for i := range probs {
		probs[i] /= total
	}
	return probs
}

func (s *TPESampler) sampleCategorical(k int, below, above []float64) float64 {
	l := s.categoricalProbs(k, below)
	g := s.categoricalProbs(k, above)
	best, bestScore := 0, math.Inf(-1)
	for c := 0; c < s.NEICandidates; c++ {
		u := s.rng.Float64()
		idx := k - 1
		for i, p := range l {
			if u < p {
				idx = i
				break
			}
			u -= p
		}
		if score := math.Log(l[idx]) - math.Log(g[idx]); score > bestScore {
			best, bestScore = idx, score
		}
	}
	return float64(best)
}
