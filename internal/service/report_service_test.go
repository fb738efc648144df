package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github-signals/internal/adapter/repository"
	"github-signals/internal/analyzer"
	"github-signals/internal/config"
	"github-signals/internal/domain"
	"github-signals/internal/generator"
	"github-signals/internal/port"
	"github-signals/internal/scorer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCollector struct {
	records []*domain.RepositoryRecord
	err     error
}

func (f *fakeCollector) Name() string { return "fake" }
func (f *fakeCollector) Collect(context.Context, port.CollectParams) ([]*domain.RepositoryRecord, error) {
	return f.records, f.err
}

type fakeDiscussions struct {
	records []*domain.DiscussionRecord
	err     error
}

func (f *fakeDiscussions) Name() string { return "fake-forum" }
func (f *fakeDiscussions) Collect(context.Context, port.DiscussionParams) ([]*domain.DiscussionRecord, error) {
	return f.records, f.err
}

type fakeNarrator struct {
	text string
	err  error
}

func (f *fakeNarrator) Narrate(context.Context, *domain.ScoreResult) (string, error) {
	return f.text, f.err
}

type fakeNotifier struct {
	date    string
	results []*domain.ScoreResult
	calls   int
}

func (f *fakeNotifier) Notify(_ context.Context, date string, results []*domain.ScoreResult) error {
	f.calls++
	f.date = date
	f.results = results
	return nil
}

func testService(t *testing.T, collector port.Collector, discussions port.DiscussionCollector, narrator port.Narrator, notifier port.Notifier) (*ReportService, string) {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Output.Directory = t.TempDir()
	cfg.RunBudget = time.Minute

	store, err := repository.NewFileStore(filepath.Join(cfg.Output.Directory, "snapshots"))
	require.NoError(t, err)

	return NewReportService(Params{
		Config:      cfg,
		Collector:   collector,
		Discussions: discussions,
		Scorer:      scorer.NewMomentum(cfg.Scoring),
		Analyzer:    analyzer.NewTrend(),
		Builder:     generator.NewBuilder(cfg.Output),
		Store:       store,
		Narrator:    narrator,
		Notifier:    notifier,
		Logger:      zap.NewNop(),
	}), cfg.Output.Directory
}

func repoRecord(fullName string, stars int) *domain.RepositoryRecord {
	return &domain.RepositoryRecord{
		FullName:    fullName,
		URL:         "https://github.com/" + fullName,
		Language:    "Go",
		CreatedAt:   time.Now().AddDate(0, 0, -10),
		Stars:       stars,
		StarsGained: stars,
	}
}

func TestRunEndToEnd(t *testing.T) {
	collector := &fakeCollector{records: []*domain.RepositoryRecord{
		repoRecord("acme/widget", 80),
		repoRecord("dev/sidecar", 12),
	}}
	discussions := &fakeDiscussions{records: []*domain.DiscussionRecord{
		{Title: "Show HN: Widget", RepoFullName: "acme/widget", Points: 60, Comments: 10, CreatedAt: time.Now()},
	}}
	notifier := &fakeNotifier{}

	svc, dir := testService(t, collector, discussions, nil, notifier)

	report, err := svc.Run(context.Background(), "2026-08-25")
	require.NoError(t, err)

	require.Len(t, report.Repositories, 2)
	assert.Equal(t, "acme/widget", report.Repositories[0].Name)
	assert.Equal(t, 2, report.RepositoryCount)
	// Heuristic narratives fill in when no AI narrator is wired.
	assert.NotEmpty(t, report.Repositories[0].WhyMatters)
	// First run: no history, so no deltas.
	assert.Nil(t, report.Repositories[0].ScoreChange)
	assert.Len(t, report.Repositories[0].Trend, 1)

	for _, name := range []string{"report-2026-08-25.json", "latest.json", "report-2026-08-25.md"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, "2026-08-25", notifier.date)
	require.NotEmpty(t, notifier.results)
	assert.Equal(t, "acme/widget", notifier.results[0].Repository.FullName)
}

func TestRunSecondRunComputesDeltas(t *testing.T) {
	collector := &fakeCollector{records: []*domain.RepositoryRecord{repoRecord("acme/widget", 40)}}
	svc, _ := testService(t, collector, &fakeDiscussions{}, nil, nil)
	ctx := context.Background()

	_, err := svc.Run(ctx, "2026-08-24")
	require.NoError(t, err)

	collector.records[0].StarsGained = 80
	report, err := svc.Run(ctx, "2026-08-25")
	require.NoError(t, err)

	require.Len(t, report.Repositories, 1)
	require.NotNil(t, report.Repositories[0].ScoreChange)
	assert.Len(t, report.Repositories[0].Trend, 2)
}

func TestRunCollectorFailureIsFatal(t *testing.T) {
	svc, _ := testService(t, &fakeCollector{err: errors.New("api down")}, &fakeDiscussions{}, nil, nil)

	_, err := svc.Run(context.Background(), "2026-08-25")
	assert.Error(t, err)
}

func TestRunDiscussionFailureDegrades(t *testing.T) {
	collector := &fakeCollector{records: []*domain.RepositoryRecord{repoRecord("acme/widget", 80)}}
	svc, _ := testService(t, collector, &fakeDiscussions{err: errors.New("forum down")}, nil, nil)

	report, err := svc.Run(context.Background(), "2026-08-25")
	require.NoError(t, err)
	require.Len(t, report.Repositories, 1)
	assert.Zero(t, report.Repositories[0].Signals["community_buzz"].Points)
}

func TestRunDropsRecordsWithoutIdentifier(t *testing.T) {
	collector := &fakeCollector{records: []*domain.RepositoryRecord{
		repoRecord("acme/widget", 80),
		{URL: "https://github.com/broken/record", CreatedAt: time.Now()},
	}}
	svc, _ := testService(t, collector, &fakeDiscussions{}, nil, nil)

	report, err := svc.Run(context.Background(), "2026-08-25")
	require.NoError(t, err)
	require.Len(t, report.Repositories, 1)
	assert.Equal(t, "acme/widget", report.Repositories[0].Name)
}

func TestRunNarratorFailureFallsBackToHeuristic(t *testing.T) {
	collector := &fakeCollector{records: []*domain.RepositoryRecord{repoRecord("acme/widget", 80)}}
	svc, _ := testService(t, collector, &fakeDiscussions{}, &fakeNarrator{err: errors.New("quota")}, nil)

	report, err := svc.Run(context.Background(), "2026-08-25")
	require.NoError(t, err)
	require.Len(t, report.Repositories, 1)
	assert.NotEmpty(t, report.Repositories[0].WhyMatters)
}

func TestRunNarratorTextIsUsed(t *testing.T) {
	collector := &fakeCollector{records: []*domain.RepositoryRecord{repoRecord("acme/widget", 80)}}
	svc, _ := testService(t, collector, &fakeDiscussions{},
		&fakeNarrator{text: "Rocket-ship traction for a ten-day-old tool."}, nil)

	report, err := svc.Run(context.Background(), "2026-08-25")
	require.NoError(t, err)
	assert.Equal(t, "Rocket-ship traction for a ten-day-old tool.",
		report.Repositories[0].WhyMatters)
}
