// Package repository holds the snapshot-store implementations: Postgres
// for durable multi-run history, flat files for the zero-infrastructure
// default.
package repository

import (
	"context"
	"time"

	"github-signals/internal/common"
	"github-signals/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// scoreSnapshot is the persisted row: one score per repository per run.
type scoreSnapshot struct {
	ID       uint   `gorm:"primaryKey"`
	RunDate  string `gorm:"index:idx_run_repo,unique;size:10"`
	FullName string `gorm:"index:idx_run_repo,unique;size:255"`
	Score    float64
	Tier     string `gorm:"size:16"`
	Stars    int
	SavedAt  time.Time
}

func (scoreSnapshot) TableName() string { return "score_snapshots" }

// PostgresStore implements port.SnapshotStore on gorm.
type PostgresStore struct {
	db      *gorm.DB
	nowFunc func() time.Time
}

// NewPostgresStore connects and auto-migrates the snapshot table.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSnapshot, "database connect failed", err)
	}
	if err := db.AutoMigrate(&scoreSnapshot{}); err != nil {
		return nil, common.WrapError(common.ErrCodeSnapshot, "database migrate failed", err)
	}
	return &PostgresStore{db: db, nowFunc: time.Now}, nil
}

// PreviousScores returns up to n most recent scores per repository, oldest
// first. Run dates are ISO dates, so lexicographic order is chronological.
func (s *PostgresStore) PreviousScores(ctx context.Context, n int) (map[string][]float64, error) {
	if n <= 0 {
		return map[string][]float64{}, nil
	}

	var dates []string
	err := s.db.WithContext(ctx).
		Model(&scoreSnapshot{}).
		Distinct("run_date").
		Order("run_date DESC").
		Limit(n).
		Pluck("run_date", &dates).Error
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSnapshot, "snapshot date query failed", err)
	}
	if len(dates) == 0 {
		return map[string][]float64{}, nil
	}

	var rows []scoreSnapshot
	err = s.db.WithContext(ctx).
		Where("run_date IN ?", dates).
		Order("run_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSnapshot, "snapshot query failed", err)
	}

	history := make(map[string][]float64)
	for _, row := range rows {
		history[row.FullName] = append(history[row.FullName], row.Score)
	}
	return history, nil
}

// SaveSnapshots upserts the run's scores; re-running a date overwrites it.
func (s *PostgresStore) SaveSnapshots(ctx context.Context, date string, results []*domain.ScoreResult) error {
	if len(results) == 0 {
		return nil
	}

	now := s.nowFunc()
	rows := make([]scoreSnapshot, 0, len(results))
	for _, r := range results {
		rows = append(rows, scoreSnapshot{
			RunDate:  date,
			FullName: r.Repository.FullName,
			Score:    r.Total,
			Tier:     string(r.Tier),
			Stars:    r.Repository.Stars,
			SavedAt:  now,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_date = ?", date).Delete(&scoreSnapshot{}).Error; err != nil {
			return err
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return common.WrapError(common.ErrCodeSnapshot, "snapshot save failed", err)
	}
	return nil
}
