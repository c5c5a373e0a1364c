// Command churnlab runs the courier churn pipeline, either end to end or one
// stage at a time.
//
//	churnlab run --config churnlab.yaml
//	churnlab bench --log-level debug
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/churnlab/churn"
	"github.com/YuminosukeSato/churnlab/pkg/config"
	"github.com/YuminosukeSato/churnlab/pkg/log"
)

// app is the state shared by the subcommands, filled in by the root
// command's PersistentPreRunE.
type app struct {
	configPath string
	logLevel   string

	cfg      config.Config
	runID    string
	pipeline *churn.Pipeline
}

var (
	title   = color.New(color.FgCyan, color.Bold).SprintFunc()
	success = color.New(color.FgGreen).SprintFunc()
	failure = color.New(color.FgRed, color.Bold).SprintFunc()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, failure("error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "churnlab",
		Short:         "Courier churn analysis: cleaning, PLS projection, model bench and search",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides the config)")

	root.AddCommand(
		a.stageCmd("ingest", "Convert first_order_delivered day offsets into dates", a.ingest),
		a.stageCmd("clean", "Drop deprecated columns and impute missing values", a.clean),
		a.stageCmd("eda", "Write the exploratory tables and figures", a.eda),
		a.stageCmd("project", "Standardize the numeric features and project them with PLS", a.project),
		a.stageCmd("split", "Write the stratified train and test files", a.split),
		a.stageCmd("bench", "Compare the seven model families on the test split", a.bench),
		a.stageCmd("explain", "TreeSHAP attributions and PLS loadings", a.explain),
		a.stageCmd("tune", "Search the model family and hyperparameters", a.tune),
		a.stageCmd("final", "Retrain and evaluate the selected model", a.final),
		a.stageCmd("run", "Run every stage in order", a.run),
		newSynthCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	a.runID = uuid.NewString()
	if _, err := log.Setup(log.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}, log.RunIDKey, a.runID); err != nil {
		return err
	}
	a.cfg = cfg
	a.pipeline, err = churn.NewPipeline(cfg, os.Stdout, a.runID)
	return err
}

func (a *app) stageCmd(name, short string, run func(ctx context.Context) error) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(title("== " + name + " =="))
			if err := run(cmd.Context()); err != nil {
				return err
			}
			fmt.Println(success("done"), "run", a.runID)
			return nil
		},
	}
}
