package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config carries every knob of the pipeline. It is built once at startup
// and passed explicitly to each component; there is no global instance.
type Config struct {
	GitHub     GitHubConfig
	HackerNews HackerNewsConfig
	Cache      CacheConfig
	Scoring    ScoringConfig
	Output     OutputConfig
	Database   DatabaseConfig
	Gemini     GeminiConfig
	Webhook    WebhookConfig
	LogLevel   string
	// RunBudget bounds a whole report cycle; past it, remaining fetches are
	// abandoned and the pipeline proceeds with what it has.
	RunBudget time.Duration
}

type GitHubConfig struct {
	Token        string
	LookbackDays int
	MinStars     int
	Languages    []string
	MaxRepos     int
	// EnrichDelay throttles sequential enrichment calls.
	EnrichDelay time.Duration
}

type HackerNewsConfig struct {
	BaseURL         string
	LookbackDays    int
	PointsThreshold int
	MaxStories      int
}

type CacheConfig struct {
	Enabled   bool
	Directory string
	TTL       time.Duration
	// MemoryEntries bounds the in-memory LRU tier.
	MemoryEntries int
}

// ScoringConfig is the momentum rule table as data: per-signal weights and
// the thresholds the rules compare against. Weights sum to MaxScore.
type ScoringConfig struct {
	// Signal weights (component maxima).
	RecencyWeight   float64
	CommitWeight    float64
	StarWeight      float64
	TeamWeight      float64
	EcosystemWeight float64
	OrgWeight       float64
	BuzzWeight      float64

	// Recency thresholds in days.
	AgeFullDays    int
	AgePartialDays int

	// Commit surge ladder over the trailing window.
	CommitTier1        int
	CommitTier2        int
	FeatureCommitFloor int

	// Star velocity ladder over the trailing window.
	StarTier1 int
	StarTier2 int
	StarTier3 int

	// Team traction sweet spot, closed interval.
	TeamMin int
	TeamMax int

	// Organization profile completeness cutoffs (populated fields out of 5).
	OrgFullProfile    int
	OrgPartialProfile int

	// Ecosystem allow-lists, matched case-insensitively.
	Languages       []string
	Topics          []string
	StartupKeywords []string

	// Discussion points that earn the full buzz weight.
	BuzzPointsScale int

	// Tier cutoffs as fractions of the maximum score.
	HighTierFraction   float64
	MediumTierFraction float64

	// Trailing velocity window, days.
	WindowDays int
}

// MaxScore is the declared scorer maximum: the sum of all signal weights.
func (s ScoringConfig) MaxScore() float64 {
	return s.RecencyWeight + s.CommitWeight + s.StarWeight +
		s.TeamWeight + s.EcosystemWeight + s.OrgWeight + s.BuzzWeight
}

type OutputConfig struct {
	Directory string
	TopCount  int
	// NarrativeLimit caps why_matters length in characters (runes).
	NarrativeLimit int
	// TrendLength is how many historical scores (including current) the
	// per-record trend sequence keeps.
	TrendLength int
}

type DatabaseConfig struct {
	// DSN switches the snapshot store to Postgres when set.
	DSN string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type WebhookConfig struct {
	URL string
}

// Load reads the config file (optional) and environment overrides into a
// Config. Defaults make the pipeline runnable with nothing but a GitHub
// token.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SIGNALS")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		LogLevel:  v.GetString("log_level"),
		RunBudget: v.GetDuration("run_budget"),
		GitHub: GitHubConfig{
			Token:        firstNonEmpty(v.GetString("github.token"), os.Getenv("GITHUB_TOKEN")),
			LookbackDays: v.GetInt("github.lookback_days"),
			MinStars:     v.GetInt("github.min_stars"),
			Languages:    v.GetStringSlice("github.languages"),
			MaxRepos:     v.GetInt("github.max_repos"),
			EnrichDelay:  v.GetDuration("github.enrich_delay"),
		},
		HackerNews: HackerNewsConfig{
			BaseURL:         v.GetString("hackernews.base_url"),
			LookbackDays:    v.GetInt("hackernews.lookback_days"),
			PointsThreshold: v.GetInt("hackernews.points_threshold"),
			MaxStories:      v.GetInt("hackernews.max_stories"),
		},
		Cache: CacheConfig{
			Enabled:       v.GetBool("cache.enabled"),
			Directory:     v.GetString("cache.directory"),
			TTL:           v.GetDuration("cache.ttl"),
			MemoryEntries: v.GetInt("cache.memory_entries"),
		},
		Scoring: ScoringConfig{
			RecencyWeight:      v.GetFloat64("scoring.weights.recency"),
			CommitWeight:       v.GetFloat64("scoring.weights.commit_surge"),
			StarWeight:         v.GetFloat64("scoring.weights.star_velocity"),
			TeamWeight:         v.GetFloat64("scoring.weights.team_traction"),
			EcosystemWeight:    v.GetFloat64("scoring.weights.ecosystem_fit"),
			OrgWeight:          v.GetFloat64("scoring.weights.org_quality"),
			BuzzWeight:         v.GetFloat64("scoring.weights.community_buzz"),
			AgeFullDays:        v.GetInt("scoring.age_full_days"),
			AgePartialDays:     v.GetInt("scoring.age_partial_days"),
			CommitTier1:        v.GetInt("scoring.commit_tier1"),
			CommitTier2:        v.GetInt("scoring.commit_tier2"),
			FeatureCommitFloor: v.GetInt("scoring.feature_commit_floor"),
			StarTier1:          v.GetInt("scoring.star_tier1"),
			StarTier2:          v.GetInt("scoring.star_tier2"),
			StarTier3:          v.GetInt("scoring.star_tier3"),
			TeamMin:            v.GetInt("scoring.team_min"),
			TeamMax:            v.GetInt("scoring.team_max"),
			OrgFullProfile:     v.GetInt("scoring.org_full_profile"),
			OrgPartialProfile:  v.GetInt("scoring.org_partial_profile"),
			Languages:          v.GetStringSlice("scoring.languages"),
			Topics:             v.GetStringSlice("scoring.topics"),
			StartupKeywords:    v.GetStringSlice("scoring.startup_keywords"),
			BuzzPointsScale:    v.GetInt("scoring.buzz_points_scale"),
			HighTierFraction:   v.GetFloat64("scoring.high_tier_fraction"),
			MediumTierFraction: v.GetFloat64("scoring.medium_tier_fraction"),
			WindowDays:         v.GetInt("scoring.window_days"),
		},
		Output: OutputConfig{
			Directory:      v.GetString("output.directory"),
			TopCount:       v.GetInt("output.top_count"),
			NarrativeLimit: v.GetInt("output.narrative_limit"),
			TrendLength:    v.GetInt("output.trend_length"),
		},
		Database: DatabaseConfig{DSN: v.GetString("database.dsn")},
		Gemini: GeminiConfig{
			APIKey: firstNonEmpty(v.GetString("gemini.api_key"), os.Getenv("GEMINI_API_KEY")),
			Model:  v.GetString("gemini.model"),
		},
		Webhook: WebhookConfig{URL: v.GetString("webhook.url")},
	}

	if cfg.Scoring.MaxScore() <= 0 {
		return nil, fmt.Errorf("scoring weights must sum to a positive maximum")
	}
	if cfg.Scoring.TeamMin > cfg.Scoring.TeamMax {
		return nil, fmt.Errorf("scoring.team_min must not exceed scoring.team_max")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("run_budget", 10*time.Minute)

	v.SetDefault("github.lookback_days", 14)
	v.SetDefault("github.min_stars", 5)
	v.SetDefault("github.languages", []string{"Python", "TypeScript", "Rust", "Go"})
	v.SetDefault("github.max_repos", 100)
	v.SetDefault("github.enrich_delay", 500*time.Millisecond)

	v.SetDefault("hackernews.base_url", "https://hacker-news.firebaseio.com/v0")
	v.SetDefault("hackernews.lookback_days", 30)
	v.SetDefault("hackernews.points_threshold", 5)
	v.SetDefault("hackernews.max_stories", 300)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.directory", "data/cache")
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.memory_entries", 2048)

	v.SetDefault("scoring.weights.recency", 1.0)
	v.SetDefault("scoring.weights.commit_surge", 2.0)
	v.SetDefault("scoring.weights.star_velocity", 2.0)
	v.SetDefault("scoring.weights.team_traction", 2.0)
	v.SetDefault("scoring.weights.ecosystem_fit", 1.0)
	v.SetDefault("scoring.weights.org_quality", 1.0)
	v.SetDefault("scoring.weights.community_buzz", 1.0)
	v.SetDefault("scoring.age_full_days", 30)
	v.SetDefault("scoring.age_partial_days", 90)
	v.SetDefault("scoring.commit_tier1", 10)
	v.SetDefault("scoring.commit_tier2", 15)
	v.SetDefault("scoring.feature_commit_floor", 3)
	v.SetDefault("scoring.star_tier1", 10)
	v.SetDefault("scoring.star_tier2", 20)
	v.SetDefault("scoring.star_tier3", 50)
	v.SetDefault("scoring.team_min", 2)
	v.SetDefault("scoring.team_max", 5)
	v.SetDefault("scoring.org_full_profile", 4)
	v.SetDefault("scoring.org_partial_profile", 3)
	v.SetDefault("scoring.languages", []string{"python", "typescript", "rust", "go"})
	v.SetDefault("scoring.topics", []string{"devops", "cli", "sdk", "api", "developer-tools"})
	v.SetDefault("scoring.startup_keywords", []string{"startup", "saas", "yc", "y combinator", "accelerator"})
	v.SetDefault("scoring.buzz_points_scale", 30)
	v.SetDefault("scoring.high_tier_fraction", 0.7)
	v.SetDefault("scoring.medium_tier_fraction", 0.5)
	v.SetDefault("scoring.window_days", 14)

	v.SetDefault("output.directory", "reports")
	v.SetDefault("output.top_count", 25)
	v.SetDefault("output.narrative_limit", 80)
	v.SetDefault("output.trend_length", 3)

	v.SetDefault("gemini.model", "gemini-2.5-flash-lite")
}

func firstNonEmpty(values ...string) string {
	for _, s := range values {
		if s != "" {
			return s
		}
	}
	return ""
}
