package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github-signals/internal/common"
	"github-signals/internal/domain"
)

var snapshotFilePattern = regexp.MustCompile(`^scores-(\d{4}-\d{2}-\d{2})\.json$`)

// FileStore implements port.SnapshotStore on dated JSON files: one
// scores-<date>.json per run holding a flat identifier-to-score map. It is
// the default store; Postgres is opt-in via DSN.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, common.WrapError(common.ErrCodeSnapshot, "snapshot directory create failed", err)
	}
	return &FileStore{dir: dir}, nil
}

// PreviousScores reads up to n most recent snapshot files, oldest first.
// Unreadable files are skipped: losing one run's history degrades deltas,
// it must not fail the current run.
func (s *FileStore) PreviousScores(_ context.Context, n int) (map[string][]float64, error) {
	if n <= 0 {
		return map[string][]float64{}, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSnapshot, "snapshot directory read failed", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && snapshotFilePattern.MatchString(e.Name()) {
			names = append(names, e.Name())
		}
	}
	// ISO dates sort chronologically; keep the n newest, then walk them
	// oldest first.
	sort.Strings(names)
	if len(names) > n {
		names = names[len(names)-n:]
	}

	history := make(map[string][]float64)
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		var scores map[string]float64
		if err := json.Unmarshal(raw, &scores); err != nil {
			continue
		}
		for fullName, score := range scores {
			history[fullName] = append(history[fullName], score)
		}
	}
	return history, nil
}

// SaveSnapshots writes the run's scores; re-running a date overwrites it.
func (s *FileStore) SaveSnapshots(_ context.Context, date string, results []*domain.ScoreResult) error {
	scores := make(map[string]float64, len(results))
	for _, r := range results {
		scores[r.Repository.FullName] = r.Total
	}
	raw, err := json.MarshalIndent(scores, "", "  ")
	if err != nil {
		return common.WrapError(common.ErrCodeSnapshot, "snapshot marshal failed", err)
	}
	path := filepath.Join(s.dir, "scores-"+date+".json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return common.WrapError(common.ErrCodeSnapshot, "snapshot write failed", err)
	}
	return nil
}
