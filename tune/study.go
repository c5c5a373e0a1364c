package tune

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/pkg/log"
)

// Direction of the optimization.
type Direction int

const (
	Maximize Direction = iota
	Minimize
)

// TrialState is the outcome of a trial.
type TrialState int

const (
	TrialRunning TrialState = iota
	TrialComplete
	TrialFail
)

func (s TrialState) String() string {
	switch s {
	case TrialRunning:
		return "RUNNING"
	case TrialComplete:
		return "COMPLETE"
	}
	return "FAIL"
}

// FrozenTrial is the record of a finished trial.
type FrozenTrial struct {
	Number        int
	ID            string
	State         TrialState
	Value         float64
	Params        map[string]interface{}
	Distributions map[string]Distribution
	Duration      time.Duration

	internal map[string]float64
}

// Objective evaluates one trial. A returned error aborts the study.
type Objective func(ctx context.Context, t *Trial) (float64, error)

// Study owns the trial history.
type Study struct {
	Name      string
	Direction Direction
	Sampler   Sampler
	Trials    []FrozenTrial
}

// StudyOption configures a Study.
type StudyOption func(*Study)

// WithSampler sets the sampler (default: TPE seeded with 42).
func WithSampler(s Sampler) StudyOption { return func(st *Study) { st.Sampler = s } }

// WithDirection sets the optimization direction (default: Maximize).
func WithDirection(d Direction) StudyOption { return func(st *Study) { st.Direction = d } }

// NewStudy creates an empty study.
func NewStudy(name string, opts ...StudyOption) *Study {
	s := &Study{Name: name, Direction: Maximize}
	for _, opt := range opts {
		opt(s)
	}
	if s.Sampler == nil {
		s.Sampler = NewTPESampler(42)
	}
	return s
}

// Optimize runs nTrials trials sequentially. The first failing trial stops
// the study; its error is returned wrapped with the trial number.
func (s *Study) Optimize(ctx context.Context, objective Objective, nTrials int) error {
	logger := log.GetLoggerWithName("tune").With("tune.study", s.Name)
	for k := 0; k < nTrials; k++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		t := &Trial{
			study:         s,
			Number:        len(s.Trials),
			ID:            uuid.NewString(),
			params:        map[string]interface{}{},
			internal:      map[string]float64{},
			distributions: map[string]Distribution{},
		}
		start := time.Now()
		value, err := objective(ctx, t)
		if err == nil && (math.IsNaN(value) || math.IsInf(value, 0)) {
			err = errors.NewValueError("Study.Optimize", "objective returned a non-finite value")
		}
		frozen := t.freeze(time.Since(start))
		if err != nil {
			frozen.State = TrialFail
			s.Trials = append(s.Trials, frozen)
			logger.Error("trial failed", err, log.TrialKey, t.Number, log.TrialIDKey, t.ID)
			return errors.Wrapf(err, "trial %d", t.Number)
		}
		frozen.State = TrialComplete
		frozen.Value = value
		s.Trials = append(s.Trials, frozen)

		best, _ := s.BestTrial()
		logger.Info("trial finished",
			log.TrialKey, t.Number,
			log.TrialIDKey, t.ID,
			log.ObjectiveKey, value,
			log.BestValueKey, best.Value,
			log.HyperParamsKey, frozen.Params,
			log.DurationMsKey, frozen.Duration.Milliseconds())
	}
	return nil
}

func (s *Study) better(a, b float64) bool {
	if s.Direction == Minimize {
		return a < b
	}
	return a > b
}

// completed returns the finished trials.
func (s *Study) completed() []FrozenTrial {
	var out []FrozenTrial
	for _, t := range s.Trials {
		if t.State == TrialComplete {
			out = append(out, t)
		}
	}
	return out
}

// BestTrial returns the completed trial with the best value; ties keep the
// earliest trial.
func (s *Study) BestTrial() (*FrozenTrial, error) {
	var best *FrozenTrial
	for i := range s.Trials {
		t := &s.Trials[i]
		if t.State != TrialComplete {
			continue
		}
		if best == nil || s.better(t.Value, best.Value) {
			best = t
		}
	}
	if best == nil {
		return nil, errors.NewValueError("Study.BestTrial", "no completed trials")
	}
	return best, nil
}

// BestParams returns a copy of the best trial's parameters.
func (s *Study) BestParams() (map[string]interface{}, error) {
	best, err := s.BestTrial()
	if err != nil {
		return nil, err
	}
	out := make(map[string]interface{}, len(best.Params))
	for k, v := range best.Params {
		out[k] = v
	}
	return out, nil
}

// ranked returns completed trials holding param, best first.
func (s *Study) ranked(param string) []FrozenTrial {
	var out []FrozenTrial
	for _, t := range s.completed() {
		if _, ok := t.internal[param]; ok {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return s.better(out[a].Value, out[b].Value) })
	return out
}
