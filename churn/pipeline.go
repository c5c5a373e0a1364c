package churn

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/YuminosukeSato/churnlab/dataset"
	"github.com/YuminosukeSato/churnlab/pkg/config"
	"github.com/YuminosukeSato/churnlab/pkg/errors"
	"github.com/YuminosukeSato/churnlab/pkg/log"
)

// Pipeline runs the stages against the files named by Config. Each stage
// reads the previous stage's output file, so stages can also run one at a
// time.
type Pipeline struct {
	Config config.Config
	// Out receives the report tables.
	Out   io.Writer
	RunID string
}

// NewPipeline validates cfg and creates its directories. A nil out discards
// the report tables.
func NewPipeline(cfg config.Config, out io.Writer, runID string) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	if out == nil {
		out = io.Discard
	}
	return &Pipeline{Config: cfg, Out: out, RunID: runID}, nil
}

func (p *Pipeline) logger(stage string) log.Logger {
	return log.GetLoggerWithName("pipeline").With(log.RunIDKey, p.RunID, log.StageKey, stage)
}

func (p *Pipeline) read(name string) (*dataset.Table, error) {
	return dataset.Read(p.Config.DataPath(name))
}

// write stores t and logs its fingerprint.
func (p *Pipeline) write(stage, name string, t *dataset.Table) error {
	path := p.Config.DataPath(name)
	if err := dataset.Write(path, t); err != nil {
		return errors.Wrapf(err, "%s: write output", stage)
	}
	p.logger(stage).Info("stage output written",
		log.PathKey, path,
		log.RowsKey, t.NumRows(),
		log.ColumnsKey, t.NumCols(),
		log.FingerprintKey, t.FingerprintHex())
	return nil
}

// Ingest repairs the date column of the raw workbook.
func (p *Pipeline) Ingest(ctx context.Context) (*dataset.Table, error) {
	in := p.Config.DataPath(p.Config.Paths.RawWorkbook)
	out := p.Config.DataPath(p.Config.Paths.FixedWorkbook)
	t, err := RepairWorkbook(ctx, in, out)
	if err != nil {
		return nil, errors.Wrap(err, "ingest")
	}
	p.logger("ingest").Info("stage output written", log.PathKey, out, log.FingerprintKey, t.FingerprintHex())
	return t, nil
}

// Clean imputes the repaired workbook and writes the cleaned CSV.
func (p *Pipeline) Clean(ctx context.Context) (*dataset.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := p.read(p.Config.Paths.FixedWorkbook)
	if err != nil {
		return nil, errors.Wrap(err, "clean")
	}
	t, err := Clean(raw, p.Config.Clean.UnknownLabel)
	if err != nil {
		return nil, errors.Wrap(err, "clean")
	}
	return t, p.write("clean", p.Config.Paths.Cleaned, t)
}

// EDA writes the exploratory reports for the cleaned table.
func (p *Pipeline) EDA(ctx context.Context) (*Summary, error) {
	t, err := p.read(p.Config.Paths.Cleaned)
	if err != nil {
		return nil, errors.Wrap(err, "eda")
	}
	s, err := Explore(ctx, t, p.Out, p.Config.ArtifactPath("eda"))
	return s, errors.Wrap(err, "eda")
}

// Projection fits the PLS projection of the cleaned file without writing it.
// The explain stage uses it for the component weights.
func (p *Pipeline) Projection(ctx context.Context) (*Projection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := p.read(p.Config.Paths.Cleaned)
	if err != nil {
		return nil, errors.Wrap(err, "project")
	}
	proj, err := Project(t, p.Config.PLS.MaxComponents)
	return proj, errors.Wrap(err, "project")
}

// Project fits the PLS projection and writes the projected table.
func (p *Pipeline) Project(ctx context.Context) (*Projection, error) {
	proj, err := p.Projection(ctx)
	if err != nil {
		return nil, err
	}
	return proj, p.write("project", p.Config.Paths.Projected, proj.Table)
}

// Split writes the stratified train and test files.
func (p *Pipeline) Split(ctx context.Context) (train, test *dataset.Table, err error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	t, err := p.read(p.Config.Paths.Projected)
	if err != nil {
		return nil, nil, errors.Wrap(err, "split")
	}
	if train, test, err = Split(t, p.Config.Split.TestSize, p.Config.Seed); err != nil {
		return nil, nil, errors.Wrap(err, "split")
	}
	if err := p.write("split", p.Config.Paths.Train, train); err != nil {
		return nil, nil, err
	}
	return train, test, p.write("split", p.Config.Paths.Test, test)
}

// Features loads the split files and builds the model matrices.
func (p *Pipeline) Features(ctx context.Context) (*Features, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ref, err := p.Config.ReferenceTime()
	if err != nil {
		return nil, err
	}
	train, err := p.read(p.Config.Paths.Train)
	if err != nil {
		return nil, errors.Wrap(err, "features")
	}
	test, err := p.read(p.Config.Paths.Test)
	if err != nil {
		return nil, errors.Wrap(err, "features")
	}
	f, err := PrepareFeatures(train, test, ref)
	return f, errors.Wrap(err, "features")
}

// Bench compares the configured families.
func (p *Pipeline) Bench(ctx context.Context, f *Features) (*BenchResult, error) {
	res, err := Bench(ctx, f, p.Config.Bench.Models, p.Config.Seed, p.Config.ArtifactPath("bench"), p.Out)
	return res, errors.Wrap(err, "bench")
}

// Explain explains the configured bench model.
func (p *Pipeline) Explain(ctx context.Context, f *Features, bench *BenchResult, proj *Projection) (*Explanation, error) {
	opts := ExplainOptions{
		Model:     p.Config.Explain.Model,
		Component: p.Config.Explain.Component,
		TopN:      p.Config.Explain.TopN,
	}
	e, err := Explain(ctx, opts, bench, f, proj, p.Config.ArtifactPath("explain"), p.Out)
	return e, errors.Wrap(err, "explain")
}

// Tune runs the search and writes the best parameters.
func (p *Pipeline) Tune(ctx context.Context, f *Features) (*TuneResult, error) {
	res, err := Tune(ctx, f, TuneOptions{
		Trials:         p.Config.Tune.Trials,
		ValidationSize: p.Config.Tune.ValidationSize,
		Sampler:        p.Config.Tune.Sampler,
		StartupTrials:  p.Config.Tune.StartupTrials,
		Seed:           p.Config.Seed,
		Families:       p.Config.Bench.Models,
	})
	if err != nil {
		return nil, errors.Wrap(err, "tune")
	}
	return res, WriteParams(p.Config.DataPath(p.Config.Paths.BestParams), res.BestParams)
}

// FinalParams returns the saved search result, or the configured fallback
// when no search has been run.
func (p *Pipeline) FinalParams() (map[string]interface{}, error) {
	path := p.Config.DataPath(p.Config.Paths.BestParams)
	params, err := ReadParams(path)
	if err == nil {
		return params, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	p.logger("final").Warn("no search result, using configured parameters",
		log.PathKey, path,
		log.HyperParamsKey, p.Config.Final.Params)
	return p.Config.Final.Params, nil
}

// Final retrains and evaluates the model of FinalParams.
func (p *Pipeline) Final(ctx context.Context, f *Features) (*FinalResult, error) {
	params, err := p.FinalParams()
	if err != nil {
		return nil, errors.Wrap(err, "final")
	}
	res, err := Final(ctx, params, f, p.Config.Seed, p.RunID, p.Config.ArtifactPath("final"), p.Out)
	return res, errors.Wrap(err, "final")
}

// Run executes every stage from the raw workbook to the final model.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()
	logger := p.logger("run")
	logger.Info("pipeline started", log.RandomSeedKey, p.Config.Seed)

	if _, err := p.Ingest(ctx); err != nil {
		return err
	}
	if _, err := p.Clean(ctx); err != nil {
		return err
	}
	if _, err := p.EDA(ctx); err != nil {
		return err
	}
	proj, err := p.Project(ctx)
	if err != nil {
		return err
	}
	if _, _, err := p.Split(ctx); err != nil {
		return err
	}
	f, err := p.Features(ctx)
	if err != nil {
		return err
	}
	bench, err := p.Bench(ctx, f)
	if err != nil {
		return err
	}
	if _, err := p.Explain(ctx, f, bench, proj); err != nil {
		return err
	}
	if _, err := p.Tune(ctx, f); err != nil {
		return err
	}
	if _, err := p.Final(ctx, f); err != nil {
		return err
	}
	logger.Info("pipeline finished", log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}
