// internal/curiosity/repository.go
package curiosity

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ResolutionRecord is the durable row behind the resolution log.
type ResolutionRecord struct {
	ID         uint      `gorm:"primaryKey"`
	Question   string    `gorm:"not null"`
	ResolvedAt time.Time `gorm:"index"`
}

// ResolutionRepository mirrors the resolution log in sqlite so resolved
// questions survive restarts. Bounded the same way as the in-memory log.
type ResolutionRepository struct {
	db *gorm.DB
}

// OpenResolutionRepository opens (or creates) the sqlite file at path.
func OpenResolutionRepository(path string) (*ResolutionRepository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open resolution db: %w", err)
	}
	if err := db.AutoMigrate(&ResolutionRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate resolution db: %w", err)
	}
	return &ResolutionRepository{db: db}, nil
}

// Record inserts a resolution and trims the oldest batch once over the cap.
func (r *ResolutionRepository) Record(question string) error {
	rec := ResolutionRecord{Question: question, ResolvedAt: time.Now().UTC()}
	if err := r.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to insert resolution: %w", err)
	}

	var count int64
	if err := r.db.Model(&ResolutionRecord{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count resolutions: %w", err)
	}
	if count > resolutionCap {
		var oldest []ResolutionRecord
		if err := r.db.Order("resolved_at asc, id asc").Limit(resolutionTrimBatch).Find(&oldest).Error; err != nil {
			return fmt.Errorf("failed to find oldest resolutions: %w", err)
		}
		if err := r.db.Delete(&oldest).Error; err != nil {
			return fmt.Errorf("failed to trim resolutions: %w", err)
		}
	}
	return nil
}

// Count returns how many resolutions are stored.
func (r *ResolutionRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&ResolutionRecord{}).Count(&count).Error
	return count, err
}

// Recent returns the newest n resolutions.
func (r *ResolutionRepository) Recent(n int) ([]ResolutionRecord, error) {
	var recs []ResolutionRecord
	err := r.db.Order("resolved_at desc, id desc").Limit(n).Find(&recs).Error
	return recs, err
}
