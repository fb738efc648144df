// Package analyzer derives aggregate trend statistics and per-record
// narratives from a scored batch. Pure computation, no I/O.
package analyzer

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github-signals/internal/domain"
)

// topMoverCount bounds the star-velocity leaderboard.
const topMoverCount = 10

var percentileMarks = []int{25, 50, 75, 90, 95}

var ageBracketNames = []string{
	"0-30 days", "31-60 days", "61-90 days", "91-180 days", "181-365 days", "1+ year",
}

// Trend aggregates score results into a TrendSummary.
type Trend struct {
	nowFunc func() time.Time
}

func NewTrend() *Trend {
	return &Trend{nowFunc: time.Now}
}

// Analyze computes the summary. Stable under empty input: a zero-valued
// summary, never an error. Running it twice on the same batch yields the
// same summary (modulo AnalyzedAt).
func (t *Trend) Analyze(results []*domain.ScoreResult) *domain.TrendSummary {
	now := t.nowFunc()
	summary := &domain.TrendSummary{
		RepositoryCount: len(results),
		Languages:       map[string]int{},
		Topics:          map[string]int{},
		AgeBrackets:     zeroBrackets(),
		Tiers:           map[domain.Tier]int{domain.TierHigh: 0, domain.TierMedium: 0, domain.TierLow: 0},
		Scores:          scoreDistribution(nil),
		AnalyzedAt:      now,
	}
	if len(results) == 0 {
		return summary
	}

	scores := make([]float64, 0, len(results))
	movers := make([]domain.StarMover, 0, len(results))
	for _, r := range results {
		scores = append(scores, r.Total)
		summary.Tiers[r.Tier]++

		repo := r.Repository
		if repo.Language != "" {
			summary.Languages[repo.Language]++
		}
		for _, topic := range repo.Topics {
			summary.Topics[topic]++
		}

		age := repo.AgeDays(now)
		summary.AgeBrackets[bracketFor(age)]++

		days := age
		if days < 1 {
			days = 1
		}
		movers = append(movers, domain.StarMover{
			FullName:    repo.FullName,
			Stars:       repo.Stars,
			AgeDays:     age,
			StarsPerDay: float64(repo.Stars) / float64(days),
			Total:       r.Total,
		})
	}

	summary.Scores = scoreDistribution(scores)

	sort.SliceStable(movers, func(i, j int) bool {
		return movers[i].StarsPerDay > movers[j].StarsPerDay
	})
	if len(movers) > topMoverCount {
		movers = movers[:topMoverCount]
	}
	summary.TopMovers = movers

	return summary
}

func zeroBrackets() map[string]int {
	m := make(map[string]int, len(ageBracketNames))
	for _, name := range ageBracketNames {
		m[name] = 0
	}
	return m
}

func bracketFor(ageDays int) string {
	switch {
	case ageDays <= 30:
		return ageBracketNames[0]
	case ageDays <= 60:
		return ageBracketNames[1]
	case ageDays <= 90:
		return ageBracketNames[2]
	case ageDays <= 180:
		return ageBracketNames[3]
	case ageDays <= 365:
		return ageBracketNames[4]
	default:
		return ageBracketNames[5]
	}
}

func scoreDistribution(scores []float64) domain.ScoreDistribution {
	dist := domain.ScoreDistribution{Percentiles: map[string]float64{}}
	for _, p := range percentileMarks {
		dist.Percentiles[strconv.Itoa(p)] = 0
	}
	if len(scores) == 0 {
		return dist
	}

	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	dist.Min = sorted[0]
	dist.Max = sorted[len(sorted)-1]

	sum := 0.0
	for _, s := range sorted {
		sum += s
	}
	dist.Mean = sum / float64(len(sorted))

	variance := 0.0
	for _, s := range sorted {
		d := s - dist.Mean
		variance += d * d
	}
	dist.StdDev = math.Sqrt(variance / float64(len(sorted)))

	dist.Median = percentile(sorted, 50)
	for _, p := range percentileMarks {
		dist.Percentiles[strconv.Itoa(p)] = percentile(sorted, p)
	}
	return dist
}

// percentile is the conventional linear-interpolation definition over an
// ascending slice, chosen for determinism across batch sizes.
func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := float64(p) / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

