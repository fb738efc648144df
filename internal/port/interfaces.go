package port

import (
	"context"
	"time"

	"github-signals/internal/domain"
)

// CollectParams bound a repository collection run.
type CollectParams struct {
	LookbackDays int
	MinStars     int
	Languages    []string
	MaxRepos     int
}

// Collector fetches raw items from one source and normalizes each into a
// repository record. It returns zero or more records and never fails the
// whole batch for a single bad item; rate limiting degrades to partial
// results instead of blocking.
type Collector interface {
	Name() string
	Collect(ctx context.Context, params CollectParams) ([]*domain.RepositoryRecord, error)
}

// DiscussionParams bound a forum collection run.
type DiscussionParams struct {
	LookbackDays    int
	PointsThreshold int
	MaxStories      int
}

// DiscussionCollector fetches forum posts that may reference repositories.
type DiscussionCollector interface {
	Name() string
	Collect(ctx context.Context, params DiscussionParams) ([]*domain.DiscussionRecord, error)
}

// Cache is a key-value store with TTL, consulted by collectors before
// enrichment round-trips. Keys are deterministic strings derived from
// (source name, sorted parameter list). Entries are idempotently
// re-derivable, so last-writer-wins is fine.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Clear() error
}

// Scorer applies a weighted rule table to one repository record plus an
// optional matched discussion. It errors only when the join key (FullName)
// is missing; absent optional data contributes zero.
type Scorer interface {
	Score(repo *domain.RepositoryRecord, discussion *domain.DiscussionRecord) (*domain.ScoreResult, error)
	MaxScore() float64
}

// Analyzer derives aggregate statistics over a scored batch. Pure
// aggregation: no I/O, empty input yields a zero-valued summary.
type Analyzer interface {
	Analyze(results []*domain.ScoreResult) *domain.TrendSummary
}

// SnapshotStore persists per-run score snapshots and serves the score
// history used for delta and trend-sequence computation.
type SnapshotStore interface {
	// PreviousScores returns up to n most recent scores per repository
	// identifier, oldest first, excluding the current run.
	PreviousScores(ctx context.Context, n int) (map[string][]float64, error)
	SaveSnapshots(ctx context.Context, date string, results []*domain.ScoreResult) error
}

// Narrator produces the short "why it matters" line for one result.
// Implementations are best-effort; callers fall back to heuristic text.
type Narrator interface {
	Narrate(ctx context.Context, result *domain.ScoreResult) (string, error)
}

// Notifier pushes a finished report digest to an external channel.
type Notifier interface {
	Notify(ctx context.Context, date string, results []*domain.ScoreResult) error
}
