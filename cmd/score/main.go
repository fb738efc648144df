// Offline scoring tool: reads repository records from a JSON fixture and
// prints their score breakdowns without touching any API. Useful for
// tuning weights against captured batches.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github-signals/internal/config"
	"github-signals/internal/domain"
	"github-signals/internal/scorer"
)

func main() {
	fixture := flag.String("fixture", "", "path to a JSON array of repository records")
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	if *fixture == "" {
		fmt.Fprintln(os.Stderr, "usage: score -fixture records.json [-config config.yaml]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	raw, err := os.ReadFile(*fixture)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fixture read failed: %v\n", err)
		os.Exit(1)
	}
	var records []*domain.RepositoryRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		fmt.Fprintf(os.Stderr, "fixture parse failed: %v\n", err)
		os.Exit(1)
	}

	momentum := scorer.NewMomentum(cfg.Scoring)
	for _, record := range records {
		result, err := momentum.Score(record, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping %q: %v\n", record.FullName, err)
			continue
		}
		printResult(result)
	}
}

func printResult(r *domain.ScoreResult) {
	fmt.Printf("%s  %.1f/%.1f  (%s)\n", r.Repository.FullName, r.Total, r.Max, r.Tier)

	names := make([]string, 0, len(r.Breakdown))
	for name := range r.Breakdown {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sig := r.Breakdown[name]
		if sig.Points == 0 {
			continue
		}
		fmt.Printf("  %-15s %.2f/%.1f  %s\n", name, sig.Points, sig.Max, sig.Justification)
	}
	fmt.Println()
}
