package tune

import (
	"math"
	"math/rand"
)

// Sampler draws the internal value of one parameter given the study history.
type Sampler interface {
	Sample(study *Study, name string, d Distribution) float64
}

// RandomSampler draws every parameter independently and uniformly
// (log-uniformly for log-scaled floats).
type RandomSampler struct {
	rng *rand.Rand
}

// NewRandomSampler creates a sampler with its own seeded source.
func NewRandomSampler(seed int64) *RandomSampler {
	return &RandomSampler{rng: rand.New(rand.NewSource(seed))}
}

// Sample implements Sampler.
func (s *RandomSampler) Sample(_ *Study, _ string, d Distribution) float64 {
	return sampleUniform(s.rng, d)
}

func sampleUniform(rng *rand.Rand, d Distribution) float64 {
	switch x := d.(type) {
	case FloatDistribution:
		if x.Low == x.High {
			return x.Low
		}
		if x.Log {
			lo, hi := math.Log(x.Low), math.Log(x.High)
			return clip(math.Exp(lo+rng.Float64()*(hi-lo)), x.Low, x.High)
		}
		return x.Low + rng.Float64()*(x.High-x.Low)
	case IntDistribution:
		return float64(x.Low + rng.Intn(x.High-x.Low+1))
	case CategoricalDistribution:
		return float64(rng.Intn(len(x.Choices)))
	}
	return 0
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
