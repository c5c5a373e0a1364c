package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 15, cfg.PLS.MaxComponents)
	assert.Equal(t, 50, cfg.Tune.Trials)
	assert.InDelta(t, 0.2, cfg.Split.TestSize, 1e-12)
	assert.Equal(t, "XGBoost", cfg.Final.Params["model"])

	ref, err := cfg.ReferenceTime()
	require.NoError(t, err)
	assert.Equal(t, "2025-03-11", ref.Format("2006-01-02"))
}

func TestLoadYAMLOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "churnlab.yaml")
	yamlDoc := []byte("seed: 7\npls:\n  max_components: 5\npaths:\n  data_dir: " + dir + "\n")
	require.NoError(t, os.WriteFile(path, yamlDoc, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 5, cfg.PLS.MaxComponents)
	assert.Equal(t, 50, cfg.Tune.Trials, "unset fields keep defaults")
	assert.Equal(t, filepath.Join(dir, "churn_w_features_cleaned.csv"), cfg.DataPath(cfg.Paths.Cleaned))
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("CHURNLAB_SEED", "99")
	t.Setenv("CHURNLAB_TRIALS", "5")
	t.Setenv("CHURNLAB_EXPLAIN_MODEL", "auto")

	cfg := NewConfig()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, int64(99), cfg.Seed)
	assert.Equal(t, 5, cfg.Tune.Trials)
	assert.Equal(t, "auto", cfg.Explain.Model)

	t.Setenv("CHURNLAB_SEED", "forty-two")
	err := cfg.ApplyEnv()
	var verr *errors.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero components", func(c *Config) { c.PLS.MaxComponents = 0 }},
		{"test size one", func(c *Config) { c.Split.TestSize = 1 }},
		{"bad sampler", func(c *Config) { c.Tune.Sampler = "grid" }},
		{"bad date", func(c *Config) { c.Bench.ReferenceDate = "11/03/2025" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
