package analyzer

import (
	"sort"
	"strings"

	"github-signals/internal/domain"
)

// Narrative builds the heuristic "why it matters" line for one result from
// its strongest breakdown signals. Used whenever no AI narrator is
// configured or the narrator fails.
func Narrative(result *domain.ScoreResult) string {
	type entry struct {
		name   string
		signal domain.SignalScore
	}
	entries := make([]entry, 0, len(result.Breakdown))
	for name, sig := range result.Breakdown {
		if sig.Points > 0 && sig.Justification != "" {
			entries = append(entries, entry{name, sig})
		}
	}
	if len(entries) == 0 {
		return "Early-stage repository with limited momentum signals."
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].signal.Points != entries[j].signal.Points {
			return entries[i].signal.Points > entries[j].signal.Points
		}
		return entries[i].name < entries[j].name
	})

	// The two strongest signals tell the story; more reads like a dump.
	parts := make([]string, 0, 2)
	for _, e := range entries {
		parts = append(parts, e.signal.Justification)
		if len(parts) == 2 {
			break
		}
	}
	return strings.Join(parts, "; ")
}
