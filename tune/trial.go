package tune

import (
	"time"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// Trial is one evaluation of the objective. Suggest* calls draw a value from
// the study's sampler; asking for the same name twice returns the same value.
type Trial struct {
	Number int
	ID     string

	study         *Study
	params        map[string]interface{}
	internal      map[string]float64
	distributions map[string]Distribution
}

func (t *Trial) suggest(name string, d Distribution) (float64, error) {
	if err := validateDistribution(name, d); err != nil {
		return 0, err
	}
	if prev, ok := t.distributions[name]; ok {
		if !sameDistribution(prev, d) {
			return 0, errors.NewValidationError(name, "suggested again with a different distribution", d.String())
		}
		return t.internal[name], nil
	}
	v := t.study.Sampler.Sample(t.study, name, d)
	if !d.Contains(v) {
		return 0, errors.NewValueError("Trial.suggest", "sampler returned a value outside "+d.String())
	}
	t.internal[name] = v
	t.distributions[name] = d
	t.params[name] = d.ToExternal(v)
	return v, nil
}

// SuggestCategorical picks one of choices.
func (t *Trial) SuggestCategorical(name string, choices []string) (string, error) {
	d := CategoricalDistribution{Choices: append([]string(nil), choices...)}
	v, err := t.suggest(name, d)
	if err != nil {
		return "", err
	}
	return d.Choices[int(v)], nil
}

// SuggestFloat draws from [low, high], uniformly in log space when log is set.
func (t *Trial) SuggestFloat(name string, low, high float64, log bool) (float64, error) {
	return t.suggest(name, FloatDistribution{Low: low, High: high, Log: log})
}

// SuggestInt draws an integer from [low, high].
func (t *Trial) SuggestInt(name string, low, high int) (int, error) {
	v, err := t.suggest(name, IntDistribution{Low: low, High: high})
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// Params returns the values suggested so far.
func (t *Trial) Params() map[string]interface{} {
	out := make(map[string]interface{}, len(t.params))
	for k, v := range t.params {
		out[k] = v
	}
	return out
}

func (t *Trial) freeze(d time.Duration) FrozenTrial {
	return FrozenTrial{
		Number:        t.Number,
		ID:            t.ID,
		Params:        t.Params(),
		Distributions: t.distributions,
		Duration:      d,
		internal:      t.internal,
	}
}
