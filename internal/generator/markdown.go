package generator

import (
	"fmt"
	"sort"
	"strings"
)

// RenderMarkdown renders the human-readable companion of the JSON report:
// a summary block, the ranked table, and the trend highlights.
func RenderMarkdown(report *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Startup Momentum Report — %s\n\n", report.Date)
	fmt.Fprintf(&b, "Analyzed **%d** repositories; showing the top **%d** by momentum score (max %.1f).\n\n",
		report.RepositoryCount, len(report.Repositories), report.MaxScore)

	if t := report.Trends; t != nil {
		fmt.Fprintf(&b, "Score distribution: mean %.2f, median %.2f, p90 %.2f. Tiers: %d high / %d medium / %d low.\n\n",
			t.Scores.Mean, t.Scores.Median, t.Scores.Percentiles["90"],
			t.Tiers["high"], t.Tiers["medium"], t.Tiers["low"])
	}

	b.WriteString("| # | Repository | Score | Tier | Δ | Language | Stars | Why it matters |\n")
	b.WriteString("|---|-----------|-------|------|---|----------|-------|----------------|\n")
	for i, e := range report.Repositories {
		delta := "new"
		if e.ScoreChange != nil {
			delta = fmt.Sprintf("%+.1f", *e.ScoreChange)
		}
		fmt.Fprintf(&b, "| %d | [%s](%s) | %.1f | %s | %s | %s | %d | %s |\n",
			i+1, e.Name, e.RepoURL, e.Score, e.Tier, delta,
			orDash(e.Language), e.Stars, escapePipes(e.WhyMatters))
	}
	b.WriteString("\n")

	if t := report.Trends; t != nil {
		if len(t.TopMovers) > 0 {
			b.WriteString("## Fastest star gainers\n\n")
			for _, m := range t.TopMovers {
				fmt.Fprintf(&b, "- **%s** — %.1f stars/day (%d stars, %d days old)\n",
					m.FullName, m.StarsPerDay, m.Stars, m.AgeDays)
			}
			b.WriteString("\n")
		}

		if len(t.Languages) > 0 {
			b.WriteString("## Languages\n\n")
			for _, kv := range sortedCounts(t.Languages) {
				fmt.Fprintf(&b, "- %s: %d\n", kv.key, kv.count)
			}
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "_Generated at %s._\n", report.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC"))
	return b.String()
}

type countEntry struct {
	key   string
	count int
}

func sortedCounts(m map[string]int) []countEntry {
	out := make([]countEntry, 0, len(m))
	for k, v := range m {
		out = append(out, countEntry{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	return out
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
