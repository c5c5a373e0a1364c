// Package tune runs a trial-driven hyperparameter search: a Study asks an
// objective function to evaluate Trials whose parameters are suggested by a
// Sampler (tree-structured Parzen estimator or uniform random).
package tune

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// Distribution describes the domain of one parameter. Samplers work on an
// internal float representation: the value itself for numbers, the choice
// index for categories.
type Distribution interface {
	// ToExternal converts an internal value to the value handed to the objective.
	ToExternal(v float64) interface{}
	// Contains reports whether the internal value lies in the domain.
	Contains(v float64) bool
	fmt.Stringer
}

// FloatDistribution is a continuous range, optionally sampled in log space.
type FloatDistribution struct {
	Low, High float64
	Log       bool
}

func (d FloatDistribution) ToExternal(v float64) interface{} { return v }
func (d FloatDistribution) Contains(v float64) bool          { return v >= d.Low && v <= d.High }
func (d FloatDistribution) String() string {
	return fmt.Sprintf("float[%g, %g] log=%v", d.Low, d.High, d.Log)
}

// IntDistribution is an inclusive integer range.
type IntDistribution struct {
	Low, High int
}

func (d IntDistribution) ToExternal(v float64) interface{} { return int(math.Round(v)) }
func (d IntDistribution) Contains(v float64) bool {
	return v == math.Round(v) && v >= float64(d.Low) && v <= float64(d.High)
}
func (d IntDistribution) String() string { return fmt.Sprintf("int[%d, %d]", d.Low, d.High) }

// CategoricalDistribution is an unordered set of string choices.
type CategoricalDistribution struct {
	Choices []string
}

func (d CategoricalDistribution) ToExternal(v float64) interface{} { return d.Choices[int(v)] }
func (d CategoricalDistribution) Contains(v float64) bool {
	return v == math.Round(v) && v >= 0 && int(v) < len(d.Choices)
}
func (d CategoricalDistribution) String() string { return fmt.Sprintf("categorical%v", d.Choices) }

func validateDistribution(name string, d Distribution) error {
	switch x := d.(type) {
	case FloatDistribution:
		if !(x.Low <= x.High) {
			return errors.NewValidationError(name, "low must not exceed high", x.String())
		}
		if x.Log && x.Low <= 0 {
			return errors.NewValidationError(name, "log scale needs a positive low", x.Low)
		}
	case IntDistribution:
		if x.Low > x.High {
			return errors.NewValidationError(name, "low must not exceed high", x.String())
		}
	case CategoricalDistribution:
		if len(x.Choices) == 0 {
			return errors.NewValidationError(name, "needs at least one choice", x.Choices)
		}
	}
	return nil
}

// sameDistribution reports whether a parameter is re-suggested with the same domain.
func sameDistribution(a, b Distribution) bool {
	ca, okA := a.(CategoricalDistribution)
	cb, okB := b.(CategoricalDistribution)
	if okA || okB {
		if !okA || !okB || len(ca.Choices) != len(cb.Choices) {
			return false
		}
		for i := range ca.Choices {
			if ca.Choices[i] != cb.Choices[i] {
				return false
			}
		}
		return true
	}
	return a == b
}
