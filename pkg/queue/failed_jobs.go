package queue

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// FailedStore persists jobs that exhausted their attempts.
type FailedStore interface {
	Save(ctx context.Context, f FailedJob) error
}

// FailedJobRecord is a row of anfisa_failed_jobs.
type FailedJobRecord struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	Name     string    `gorm:"size:255;not null;index"`
	Payload  string    `gorm:"type:text;not null"`
	Error    string    `gorm:"type:text"`
	Attempts int       `gorm:"not null"`
	FailedAt time.Time `gorm:"not null"`
}

func (FailedJobRecord) TableName() string { return "anfisa_failed_jobs" }

// DBStore writes failures with gorm. The table is created by the
// create_failed_jobs_table migration.
type DBStore struct {
	db *gorm.DB
}

func NewDBStore(db *gorm.DB) *DBStore { return &DBStore{db: db} }

func (s *DBStore) Save(ctx context.Context, f FailedJob) error {
	rec := FailedJobRecord{
		Name:     f.Name,
		Payload:  string(f.Payload),
		Error:    f.Err,
		Attempts: f.Attempts,
		FailedAt: f.FailedAt,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("queue: save failed job: %w", err)
	}
	return nil
}

// List returns the most recent failures first.
func (s *DBStore) List(ctx context.Context, limit int) ([]FailedJobRecord, error) {
	var out []FailedJobRecord
	err := s.db.WithContext(ctx).Order("failed_at desc").Limit(limit).Find(&out).Error
	return out, err
}
