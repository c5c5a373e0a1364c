// Package config holds the run configuration of the churn pipeline: file
// locations, the fixed constants of the analysis (seed, reference date,
// component cap, trial budget) and logging settings.
//
// Values come from, in increasing precedence: NewConfig defaults, a YAML file,
// a .env file, and CHURNLAB_* environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

// Default values of the analysis.
const (
	DefaultSeed          = 42
	DefaultReferenceDate = "2025-03-11"
	DefaultMaxComponents = 15
	DefaultTrials        = 50
	DefaultTestSize      = 0.2
	DefaultUnknownLabel  = "Unknown"
	DefaultExplainModel  = "CatBoost"
	DefaultComponent     = 12
	DefaultTopN          = 20
)

// Config is the complete pipeline configuration.
type Config struct {
	Seed    int64         `yaml:"seed" json:"seed"`
	Log     LogConfig     `yaml:"log" json:"log"`
	Paths   PathsConfig   `yaml:"paths" json:"paths"`
	Clean   CleanConfig   `yaml:"clean" json:"clean"`
	PLS     PLSConfig     `yaml:"pls" json:"pls"`
	Split   SplitConfig   `yaml:"split" json:"split"`
	Bench   BenchConfig   `yaml:"bench" json:"bench"`
	Explain ExplainConfig `yaml:"explain" json:"explain"`
	Tune    TuneConfig    `yaml:"tune" json:"tune"`
	Final   FinalConfig   `yaml:"final" json:"final"`
}

// LogConfig configures pkg/log.Setup.
type LogConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // console or json
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
}

// PathsConfig names the stage files. Table files live in DataDir, plots and
// reports in ArtifactsDir.
type PathsConfig struct {
	DataDir       string `yaml:"data_dir" json:"data_dir"`
	ArtifactsDir  string `yaml:"artifacts_dir" json:"artifacts_dir"`
	RawWorkbook   string `yaml:"raw_workbook" json:"raw_workbook"`
	FixedWorkbook string `yaml:"fixed_workbook" json:"fixed_workbook"`
	Cleaned       string `yaml:"cleaned" json:"cleaned"`
	Projected     string `yaml:"projected" json:"projected"`
	Train         string `yaml:"train" json:"train"`
	Test          string `yaml:"test" json:"test"`
	BestParams    string `yaml:"best_params" json:"best_params"`
}

// CleanConfig configures imputation.
type CleanConfig struct {
	UnknownLabel string `yaml:"unknown_label" json:"unknown_label"`
}

// PLSConfig configures the projection.
type PLSConfig struct {
	MaxComponents int `yaml:"max_components" json:"max_components"`
}

// SplitConfig configures the train/test partition.
type SplitConfig struct {
	TestSize float64 `yaml:"test_size" json:"test_size"`
}

// BenchConfig configures the model comparison.
type BenchConfig struct {
	ReferenceDate string   `yaml:"reference_date" json:"reference_date"`
	Models        []string `yaml:"models" json:"models"` // empty means all seven
}

// ExplainConfig configures attributions and loadings.
type ExplainConfig struct {
	Model     string `yaml:"model" json:"model"` // a family name or "auto"
	Component int    `yaml:"component" json:"component"`
	TopN      int    `yaml:"top_n" json:"top_n"`
}

// TuneConfig configures the hyperparameter search.
type TuneConfig struct {
	Trials         int     `yaml:"trials" json:"trials"`
	ValidationSize float64 `yaml:"validation_size" json:"validation_size"`
	Sampler        string  `yaml:"sampler" json:"sampler"` // tpe or random
	StartupTrials  int     `yaml:"startup_trials" json:"startup_trials"`
}

// FinalConfig holds the parameters used when no search result is available.
type FinalConfig struct {
	Params map[string]interface{} `yaml:"params" json:"params"`
}

// NewConfig returns the configuration of the original analysis.
func NewConfig() Config {
	return Config{
		Seed: DefaultSeed,
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Paths: PathsConfig{
			DataDir:       ".",
			ArtifactsDir:  "artifacts",
			RawWorkbook:   "churn_w_features.xlsx",
			FixedWorkbook: "churn_w_features_fixed.xlsx",
			Cleaned:       "churn_w_features_cleaned.csv",
			Projected:     "churn_w_features_PLS.csv",
			Train:         "train_churn_PLS.csv",
			Test:          "test_churn_PLS.csv",
			BestParams:    "best_params.json",
		},
		Clean:   CleanConfig{UnknownLabel: DefaultUnknownLabel},
		PLS:     PLSConfig{MaxComponents: DefaultMaxComponents},
		Split:   SplitConfig{TestSize: DefaultTestSize},
		Bench:   BenchConfig{ReferenceDate: DefaultReferenceDate},
		Explain: ExplainConfig{Model: DefaultExplainModel, Component: DefaultComponent, TopN: DefaultTopN},
		Tune: TuneConfig{
			Trials:         DefaultTrials,
			ValidationSize: DefaultTestSize,
			Sampler:        "tpe",
			StartupTrials:  10,
		},
		Final: FinalConfig{Params: map[string]interface{}{
			"model":         "XGBoost",
			"n_estimators":  53,
			"learning_rate": 0.11486744748271062,
			"max_depth":     15,
		}},
	}
}

// Load builds a configuration from defaults, the optional YAML file at path,
// an optional .env file in the working directory and the environment.
func Load(path string) (Config, error) {
	cfg := NewConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "read config %s", path)
		}
		defaults := cfg.Final.Params
		cfg.Final.Params = nil
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
		if cfg.Final.Params == nil {
			cfg.Final.Params = defaults
		}
	}
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return cfg, errors.Wrap(err, "load .env")
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from CHURNLAB_* variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("CHURNLAB_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.NewValidationError("CHURNLAB_SEED", "must be an integer", v)
		}
		c.Seed = seed
	}
	if v := os.Getenv("CHURNLAB_TRIALS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewValidationError("CHURNLAB_TRIALS", "must be an integer", v)
		}
		c.Tune.Trials = n
	}
	if v := os.Getenv("CHURNLAB_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("CHURNLAB_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("CHURNLAB_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("CHURNLAB_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("CHURNLAB_ARTIFACTS_DIR"); v != "" {
		c.Paths.ArtifactsDir = v
	}
	if v := os.Getenv("CHURNLAB_EXPLAIN_MODEL"); v != "" {
		c.Explain.Model = v
	}
	return nil
}

// Validate checks ranges of every numeric setting.
func (c *Config) Validate() error {
	switch {
	case c.PLS.MaxComponents <= 0:
		return errors.NewValidationError("pls.max_components", "must be positive", c.PLS.MaxComponents)
	case c.Split.TestSize <= 0 || c.Split.TestSize >= 1:
		return errors.NewValidationError("split.test_size", "must be in (0, 1)", c.Split.TestSize)
	case c.Tune.ValidationSize <= 0 || c.Tune.ValidationSize >= 1:
		return errors.NewValidationError("tune.validation_size", "must be in (0, 1)", c.Tune.ValidationSize)
	case c.Tune.Trials <= 0:
		return errors.NewValidationError("tune.trials", "must be positive", c.Tune.Trials)
	case c.Tune.Sampler != "tpe" && c.Tune.Sampler != "random":
		return errors.NewValidationError("tune.sampler", "must be tpe or random", c.Tune.Sampler)
	case c.Explain.Component <= 0:
		return errors.NewValidationError("explain.component", "must be positive", c.Explain.Component)
	case c.Explain.TopN <= 0:
		return errors.NewValidationError("explain.top_n", "must be positive", c.Explain.TopN)
	case c.Log.Format != "console" && c.Log.Format != "json":
		return errors.NewValidationError("log.format", "must be console or json", c.Log.Format)
	}
	if _, err := c.ReferenceTime(); err != nil {
		return err
	}
	return nil
}

// ReferenceTime parses Bench.ReferenceDate.
func (c *Config) ReferenceTime() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.Bench.ReferenceDate)
	if err != nil {
		return time.Time{}, errors.NewValidationError("bench.reference_date", "must be YYYY-MM-DD", c.Bench.ReferenceDate)
	}
	return t, nil
}

// DataPath resolves a table file name against DataDir.
func (c *Config) DataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Paths.DataDir, name)
}

// ArtifactPath resolves a report file name against ArtifactsDir.
func (c *Config) ArtifactPath(name string) string {
	return filepath.Join(c.Paths.ArtifactsDir, name)
}

// EnsureDirs creates DataDir and ArtifactsDir.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.ArtifactsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	return nil
}
