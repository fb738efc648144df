// Package service orchestrates the report pipeline: collect, join, score,
// analyze, narrate, generate, persist, notify.
package service

import (
	"context"
	"sort"

	"github-signals/internal/analyzer"
	"github-signals/internal/config"
	"github-signals/internal/domain"
	"github-signals/internal/generator"
	"github-signals/internal/port"

	"go.uber.org/zap"
)

// ReportService runs one full report cycle. Every stage past collection is
// best-effort except report generation itself: a report that violates the
// output schema must not be published, everything else degrades.
type ReportService struct {
	cfg         *config.Config
	collector   port.Collector
	discussions port.DiscussionCollector
	scorer      port.Scorer
	analyzer    port.Analyzer
	builder     *generator.Builder
	store       port.SnapshotStore
	narrator    port.Narrator
	notifier    port.Notifier
	log         *zap.Logger
}

// Params groups the service dependencies. Narrator and Notifier are
// optional; nil disables the stage.
type Params struct {
	Config      *config.Config
	Collector   port.Collector
	Discussions port.DiscussionCollector
	Scorer      port.Scorer
	Analyzer    port.Analyzer
	Builder     *generator.Builder
	Store       port.SnapshotStore
	Narrator    port.Narrator
	Notifier    port.Notifier
	Logger      *zap.Logger
}

func NewReportService(p Params) *ReportService {
	return &ReportService{
		cfg:         p.Config,
		collector:   p.Collector,
		discussions: p.Discussions,
		scorer:      p.Scorer,
		analyzer:    p.Analyzer,
		builder:     p.Builder,
		store:       p.Store,
		narrator:    p.Narrator,
		notifier:    p.Notifier,
		log:         p.Logger,
	}
}

// Run executes one report cycle for the given ISO date. The context carries
// the run budget; when it expires mid-collection the pipeline proceeds with
// the partial batch rather than aborting.
func (s *ReportService) Run(ctx context.Context, date string) (*generator.Report, error) {
	if s.cfg.RunBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunBudget)
		defer cancel()
	}

	repos, err := s.collector.Collect(ctx, port.CollectParams{
		LookbackDays: s.cfg.GitHub.LookbackDays,
		MinStars:     s.cfg.GitHub.MinStars,
		Languages:    s.cfg.GitHub.Languages,
		MaxRepos:     s.cfg.GitHub.MaxRepos,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("collection finished", zap.Int("repositories", len(repos)))

	discussions := s.collectDiscussions(ctx)
	results := s.score(repos, discussions)
	summary := s.analyzer.Analyze(results)
	s.narrate(ctx, results)

	history := s.history(ctx)
	report := s.builder.Build(date, results, summary, history)
	if err := s.builder.Write(report); err != nil {
		return nil, err
	}
	s.log.Info("report written",
		zap.String("date", date), zap.Int("entries", len(report.Repositories)))

	if err := s.store.SaveSnapshots(ctx, date, results); err != nil {
		s.log.Warn("snapshot save failed, next run loses this delta", zap.Error(err))
	}

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, date, s.ranked(results)); err != nil {
			s.log.Warn("notification failed", zap.Error(err))
		}
	}
	return report, nil
}

func (s *ReportService) collectDiscussions(ctx context.Context) []*domain.DiscussionRecord {
	if s.discussions == nil {
		return nil
	}
	discussions, err := s.discussions.Collect(ctx, port.DiscussionParams{
		LookbackDays:    s.cfg.HackerNews.LookbackDays,
		PointsThreshold: s.cfg.HackerNews.PointsThreshold,
		MaxStories:      s.cfg.HackerNews.MaxStories,
	})
	if err != nil {
		// Discussions only feed the buzz signal; scoring proceeds without.
		s.log.Warn("discussion collection failed, buzz signal degrades to zero", zap.Error(err))
		return nil
	}
	return discussions
}

// score applies the scorer per record, joining each repository to its first
// matching discussion. Records without a join key are dropped with a
// warning, never failing the batch.
func (s *ReportService) score(repos []*domain.RepositoryRecord, discussions []*domain.DiscussionRecord) []*domain.ScoreResult {
	results := make([]*domain.ScoreResult, 0, len(repos))
	for _, repo := range repos {
		result, err := s.scorer.Score(repo, matchDiscussion(repo, discussions))
		if err != nil {
			s.log.Warn("dropping unscorable record", zap.String("repo", repo.FullName), zap.Error(err))
			continue
		}
		results = append(results, result)
	}
	return results
}

func matchDiscussion(repo *domain.RepositoryRecord, discussions []*domain.DiscussionRecord) *domain.DiscussionRecord {
	for _, d := range discussions {
		if d.Matches(repo) {
			return d
		}
	}
	return nil
}

// narrate fills WhyMatters on every result: AI narration for the entries
// that will make the report, heuristic text for the rest and for any AI
// failure.
func (s *ReportService) narrate(ctx context.Context, results []*domain.ScoreResult) {
	ranked := s.ranked(results)
	aiBudget := s.cfg.Output.TopCount

	for i, r := range ranked {
		if s.narrator != nil && i < aiBudget {
			text, err := s.narrator.Narrate(ctx, r)
			if err == nil {
				r.WhyMatters = text
				continue
			}
			s.log.Debug("narration failed, using heuristic",
				zap.String("repo", r.Repository.FullName), zap.Error(err))
		}
		r.WhyMatters = analyzer.Narrative(r)
	}
}

func (s *ReportService) history(ctx context.Context) map[string][]float64 {
	n := s.cfg.Output.TrendLength - 1
	if n <= 0 {
		return nil
	}
	history, err := s.store.PreviousScores(ctx, n)
	if err != nil {
		s.log.Warn("score history unavailable, deltas omitted", zap.Error(err))
		return nil
	}
	return history
}

// ranked returns a copy sorted by total descending, stable.
func (s *ReportService) ranked(results []*domain.ScoreResult) []*domain.ScoreResult {
	out := append([]*domain.ScoreResult(nil), results...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total > out[j].Total
	})
	return out
}
