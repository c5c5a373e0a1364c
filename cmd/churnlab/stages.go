package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/churnlab/churn"
	"github.com/YuminosukeSato/churnlab/dataset"
)

func (a *app) ingest(ctx context.Context) error {
	_, err := a.pipeline.Ingest(ctx)
	return err
}

func (a *app) clean(ctx context.Context) error {
	_, err := a.pipeline.Clean(ctx)
	return err
}

func (a *app) eda(ctx context.Context) error {
	s, err := a.pipeline.EDA(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d figures written to %s\n", len(s.Figures), a.cfg.ArtifactPath("eda"))
	return nil
}

func (a *app) project(ctx context.Context) error {
	proj, err := a.pipeline.Project(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d features projected onto %d components\n", len(proj.Features), len(proj.Components))
	return nil
}

func (a *app) split(ctx context.Context) error {
	train, test, err := a.pipeline.Split(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("train %d rows, test %d rows\n", train.NumRows(), test.NumRows())
	return nil
}

func (a *app) bench(ctx context.Context) error {
	f, err := a.pipeline.Features(ctx)
	if err != nil {
		return err
	}
	res, err := a.pipeline.Bench(ctx, f)
	if err != nil {
		return err
	}
	best := res.Best()
	fmt.Printf("best AUC: %s (%.4f)\n", best.Model, best.AUC)
	return nil
}

func (a *app) explain(ctx context.Context) error {
	proj, err := a.pipeline.Projection(ctx)
	if err != nil {
		return err
	}
	f, err := a.pipeline.Features(ctx)
	if err != nil {
		return err
	}
	bench, err := a.pipeline.Bench(ctx, f)
	if err != nil {
		return err
	}
	_, err = a.pipeline.Explain(ctx, f, bench, proj)
	return err
}

func (a *app) tune(ctx context.Context) error {
	f, err := a.pipeline.Features(ctx)
	if err != nil {
		return err
	}
	res, err := a.pipeline.Tune(ctx, f)
	if err != nil {
		return err
	}
	fmt.Printf("best F1 %.4f with %v\n", res.BestValue, res.BestParams)
	return nil
}

func (a *app) final(ctx context.Context) error {
	f, err := a.pipeline.Features(ctx)
	if err != nil {
		return err
	}
	_, err = a.pipeline.Final(ctx, f)
	return err
}

func (a *app) run(ctx context.Context) error {
	return a.pipeline.Run(ctx)
}

// newSynthCmd writes a synthetic raw workbook for trying the pipeline
// without the production extract.
func newSynthCmd(a *app) *cobra.Command {
	var rows int
	var churnRate float64
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Write a synthetic raw workbook to the configured raw_workbook path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.cfg.DataPath(a.cfg.Paths.RawWorkbook)
			if err := dataset.WriteWorkbook(path, churn.Synthetic(rows, churnRate, a.cfg.Seed)); err != nil {
				return err
			}
			fmt.Println(success("wrote"), path)
			return nil
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 1000, "number of couriers")
	cmd.Flags().Float64Var(&churnRate, "churn-rate", 0.3, "share of churned couriers")
	return cmd
}
