package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Minute, cfg.RunBudget)

	assert.Equal(t, 14, cfg.GitHub.LookbackDays)
	assert.Equal(t, 5, cfg.GitHub.MinStars)
	assert.Equal(t, 100, cfg.GitHub.MaxRepos)

	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)

	assert.Equal(t, 25, cfg.Output.TopCount)
	assert.Equal(t, 80, cfg.Output.NarrativeLimit)
	assert.Equal(t, 3, cfg.Output.TrendLength)

	assert.Equal(t, 30, cfg.Scoring.AgeFullDays)
	assert.Equal(t, 14, cfg.Scoring.WindowDays)
	assert.Equal(t, 4, cfg.Scoring.OrgFullProfile)
	assert.Equal(t, 3, cfg.Scoring.OrgPartialProfile)
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.Gemini.Model)
}

// The default weights define the canonical 0-10 scale.
func TestDefaultWeightsSumToTen(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.InDelta(t, 10.0, cfg.Scoring.MaxScore(), 1e-9)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
github:
  lookback_days: 7
  min_stars: 20
scoring:
  weights:
    recency: 2.5
output:
  top_count: 10
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 7, cfg.GitHub.LookbackDays)
	assert.Equal(t, 20, cfg.GitHub.MinStars)
	assert.InDelta(t, 2.5, cfg.Scoring.RecencyWeight, 1e-9)
	assert.Equal(t, 10, cfg.Output.TopCount)
	// Untouched keys keep their defaults.
	assert.Equal(t, 100, cfg.GitHub.MaxRepos)
	assert.InDelta(t, 2.0, cfg.Scoring.CommitWeight, 1e-9)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidScoring(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "zero weights",
			yaml: `
scoring:
  weights:
    recency: 0
    commit_surge: 0
    star_velocity: 0
    team_traction: 0
    ecosystem_fit: 0
    org_quality: 0
    community_buzz: 0
`,
		},
		{
			name: "inverted team interval",
			yaml: `
scoring:
  team_min: 6
  team_max: 2
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}
