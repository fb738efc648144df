// Package generator builds the report artifacts from a scored batch: the
// JSON report (schema-validated), its markdown rendering, and the dated
// files on disk.
package generator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github-signals/internal/common"
	"github-signals/internal/config"
	"github-signals/internal/domain"
)

// Entry is one ranked repository in the report, a stable projection of its
// score result.
type Entry struct {
	Name       string                        `json:"name"`
	RepoURL    string                        `json:"repo_url"`
	Score      float64                       `json:"score"`
	MaxScore   float64                       `json:"max_score"`
	Tier       string                        `json:"tier"`
	Signals    map[string]domain.SignalScore `json:"signals"`
	Ecosystem  string                        `json:"ecosystem"`
	Language   string                        `json:"language"`
	Stars      int                           `json:"stars"`
	Forks      int                           `json:"forks"`
	WhyMatters string                        `json:"why_matters"`

	// ScoreChange is the delta against the previous run; nil on first
	// appearance so consumers can tell "new" from "unchanged".
	ScoreChange *float64  `json:"score_change"`
	Trend       []float64 `json:"trend"`
}

// Report is the JSON artifact of one run.
type Report struct {
	GeneratedAt     time.Time            `json:"generated_at"`
	Date            string               `json:"date"`
	RepositoryCount int                  `json:"repository_count"`
	MaxScore        float64              `json:"max_score"`
	Trends          *domain.TrendSummary `json:"trends"`
	Repositories    []Entry              `json:"repositories"`
}

// Builder assembles reports under the configured output policy.
type Builder struct {
	cfg     config.OutputConfig
	nowFunc func() time.Time
}

func NewBuilder(cfg config.OutputConfig) *Builder {
	return &Builder{cfg: cfg, nowFunc: time.Now}
}

// Build ranks results by total descending (stable, so equal totals keep
// their input order), keeps the top N, and projects each into an Entry.
// history maps repository identifiers to prior scores, oldest first.
func (b *Builder) Build(date string, results []*domain.ScoreResult, summary *domain.TrendSummary, history map[string][]float64) *Report {
	ranked := append([]*domain.ScoreResult(nil), results...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Total > ranked[j].Total
	})
	if b.cfg.TopCount > 0 && len(ranked) > b.cfg.TopCount {
		ranked = ranked[:b.cfg.TopCount]
	}

	report := &Report{
		GeneratedAt:  b.nowFunc(),
		Date:         date,
		MaxScore:     0,
		Trends:       summary,
		Repositories: make([]Entry, 0, len(ranked)),
	}
	if summary != nil {
		report.RepositoryCount = summary.RepositoryCount
	}

	for _, r := range ranked {
		if r.Max > report.MaxScore {
			report.MaxScore = r.Max
		}
		report.Repositories = append(report.Repositories, b.entry(r, history[r.Repository.FullName]))
	}
	return report
}

func (b *Builder) entry(r *domain.ScoreResult, prior []float64) Entry {
	e := Entry{
		Name:       r.Repository.FullName,
		RepoURL:    r.Repository.URL,
		Score:      r.Total,
		MaxScore:   r.Max,
		Tier:       string(r.Tier),
		Signals:    r.Breakdown,
		Language:   r.Repository.Language,
		Stars:      r.Repository.Stars,
		Forks:      r.Repository.Forks,
		WhyMatters: truncateRunes(r.WhyMatters, b.cfg.NarrativeLimit),
	}

	if eco, ok := r.Breakdown["ecosystem_fit"]; ok {
		e.Ecosystem = eco.Justification
	}

	if len(prior) > 0 {
		delta := r.Total - prior[len(prior)-1]
		e.ScoreChange = &delta
	}

	trend := append(append([]float64(nil), prior...), r.Total)
	if b.cfg.TrendLength > 0 && len(trend) > b.cfg.TrendLength {
		trend = trend[len(trend)-b.cfg.TrendLength:]
	}
	e.Trend = trend

	return e
}

// Write persists the validated report as the dated pair plus latest.json.
// Schema violations are the one fatal output error: a malformed report must
// never land on disk.
func (b *Builder) Write(report *Report) error {
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return common.WrapError(common.ErrCodeGeneration, "report marshal failed", err)
	}
	if err := ValidateReport(raw); err != nil {
		return err
	}

	if err := os.MkdirAll(b.cfg.Directory, 0o755); err != nil {
		return common.WrapError(common.ErrCodeGeneration, "output directory create failed", err)
	}

	dated := filepath.Join(b.cfg.Directory, fmt.Sprintf("report-%s.json", report.Date))
	for _, path := range []string{dated, filepath.Join(b.cfg.Directory, "latest.json")} {
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return common.WrapError(common.ErrCodeGeneration, "report write failed", err)
		}
	}

	md := filepath.Join(b.cfg.Directory, fmt.Sprintf("report-%s.md", report.Date))
	if err := os.WriteFile(md, []byte(RenderMarkdown(report)), 0o644); err != nil {
		return common.WrapError(common.ErrCodeGeneration, "markdown write failed", err)
	}
	return nil
}

// truncateRunes caps s at limit runes, appending an ellipsis when cut.
// Byte-index truncation would split multi-byte characters.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
