package tune

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

func TestSuggestStaysInRange(t *testing.T) {
	for _, sampler := range []Sampler{NewTPESampler(7), NewRandomSampler(7)} {
		st := NewStudy("range", WithSampler(sampler))
		err := st.Optimize(context.Background(), func(ctx context.Context, tr *Trial) (float64, error) {
			family, err := tr.SuggestCategorical("model", []string{"a", "b", "c"})
			if err != nil {
				return 0, err
			}
			c, err := tr.SuggestFloat("C", 1e-3, 10, true)
			if err != nil {
				return 0, err
			}
			depth, err := tr.SuggestInt("max_depth", 2, 20)
			if err != nil {
				return 0, err
			}
			if c < 1e-3 || c > 10 {
				t.Errorf("C out of range: %v", c)
			}
			if depth < 2 || depth > 20 {
				t.Errorf("max_depth out of range: %v", depth)
			}
			score := -math.Abs(math.Log10(c)) - math.Abs(float64(depth-8))/10
			if family == "b" {
				score += 1
			}
			return score, nil
		}, 40)
		if err != nil {
			t.Fatalf("%T: Optimize: %v", sampler, err)
		}
		if len(st.Trials) != 40 {
			t.Fatalf("%T: trials = %d", sampler, len(st.Trials))
		}
	}
}

func TestTPEConcentratesOnGoodRegion(t *testing.T) {
	st := NewStudy("quad", WithSampler(NewTPESampler(42)))
	objective := func(ctx context.Context, tr *Trial) (float64, error) {
		x, err := tr.SuggestFloat("x", -10, 10, false)
		if err != nil {
			return 0, err
		}
		return -(x - 3) * (x - 3), nil
	}
	if err := st.Optimize(context.Background(), objective, 60); err != nil {
		t.Fatal(err)
	}
	var early, late float64
	for _, tr := range st.Trials[:10] {
		early += math.Abs(tr.Params["x"].(float64) - 3)
	}
	for _, tr := range st.Trials[50:] {
		late += math.Abs(tr.Params["x"].(float64) - 3)
	}
	if late >= early {
		t.Errorf("TPE did not move towards the optimum: early %.3f late %.3f", early/10, late/10)
	}
	best, err := st.BestTrial()
	if err != nil {
		t.Fatal(err)
	}
	if best.Value < -1 {
		t.Errorf("best value %v", best.Value)
	}
}

func TestSameSeedSameTrials(t *testing.T) {
	run := func() []interface{} {
		st := NewStudy("seed", WithSampler(NewTPESampler(3)))
		_ = st.Optimize(context.Background(), func(ctx context.Context, tr *Trial) (float64, error) {
			n, _ := tr.SuggestInt("n", 50, 300)
			lr, _ := tr.SuggestFloat("lr", 0.01, 0.3, true)
			return float64(n) * lr, nil
		}, 20)
		var out []interface{}
		for _, tr := range st.Trials {
			out = append(out, tr.Params["n"], tr.Params["lr"])
		}
		return out
	}
	a, b := run(), run()
	if fmt.Sprint(a) != fmt.Sprint(b) {
		t.Error("same seed produced different trials")
	}
}

func TestFailingTrialAbortsStudy(t *testing.T) {
	st := NewStudy("fail", WithSampler(NewRandomSampler(1)))
	boom := errors.New("boom")
	calls := 0
	err := st.Optimize(context.Background(), func(ctx context.Context, tr *Trial) (float64, error) {
		calls++
		if tr.Number == 2 {
			return 0, boom
		}
		return float64(tr.Number), nil
	}, 10)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if st.Trials[2].State != TrialFail {
		t.Errorf("state = %v", st.Trials[2].State)
	}
	best, err := st.BestTrial()
	if err != nil || best.Number != 1 {
		t.Errorf("best = %+v, %v", best, err)
	}
}

func TestBestParamsIncludesEveryKey(t *testing.T) {
	st := NewStudy("best", WithSampler(NewRandomSampler(5)))
	_ = st.Optimize(context.Background(), func(ctx context.Context, tr *Trial) (float64, error) {
		m, _ := tr.SuggestCategorical("model", []string{"SVM"})
		c, _ := tr.SuggestFloat("C", 0.1, 1, false)
		if m != "SVM" {
			t.Errorf("model = %q", m)
		}
		return c, nil
	}, 5)
	params, err := st.BestParams()
	if err != nil {
		t.Fatal(err)
	}
	if params["model"] != "SVM" {
		t.Errorf("model = %v", params["model"])
	}
	best, _ := st.BestTrial()
	if params["C"] != best.Value {
		t.Errorf("C = %v, best value = %v", params["C"], best.Value)
	}
	for _, tr := range st.Trials {
		if tr.ID == "" {
			t.Error("trial without id")
		}
	}
}

func TestSuggestValidation(t *testing.T) {
	st := NewStudy("validation")
	tr := &Trial{study: st, params: map[string]interface{}{}, internal: map[string]float64{}, distributions: map[string]Distribution{}}

	var ve *errors.ValidationError
	if _, err := tr.SuggestFloat("C", 0, 1, true); !errors.As(err, &ve) {
		t.Errorf("log scale with zero low: %v", err)
	}
	if _, err := tr.SuggestInt("n", 5, 1); !errors.As(err, &ve) {
		t.Errorf("inverted range: %v", err)
	}
	if _, err := tr.SuggestCategorical("m", nil); !errors.As(err, &ve) {
		t.Errorf("no choices: %v", err)
	}

	first, err := tr.SuggestInt("depth", 2, 10)
	if err != nil {
		t.Fatal(err)
	}
	again, err := tr.SuggestInt("depth", 2, 10)
	if err != nil || again != first {
		t.Errorf("repeated suggestion = %d, %v; want %d", again, err, first)
	}
	if _, err := tr.SuggestInt("depth", 2, 11); !errors.As(err, &ve) {
		t.Errorf("changed distribution: %v", err)
	}
}

func TestBestTrialEmpty(t *testing.T) {
	if _, err := NewStudy("empty").BestTrial(); err == nil {
		t.Error("expected an error without trials")
	}
}

func TestOptimizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st := NewStudy("cancel")
	err := st.Optimize(ctx, func(ctx context.Context, tr *Trial) (float64, error) { return 0, nil }, 3)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}

func TestDefaultGamma(t *testing.T) {
	cases := map[int]int{1: 1, 10: 1, 11: 2, 100: 10, 249: 25, 1000: 25}
	for n, want := range cases {
		if got := DefaultGamma(n); got != want {
			t.Errorf("DefaultGamma(%d) = %d, want %d", n, got, want)
		}
	}
}
