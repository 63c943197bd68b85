package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/projeto-mae/redacao-api/internal/models"
)

// GradingRepository persists the history of grading attempts.
type GradingRepository interface {
	Create(ctx context.Context, record *models.GradingRecord) error
	ListRecent(ctx context.Context, limit int) ([]models.GradingRecord, error)
}

type gradingRepository struct {
	db *gorm.DB
}

// NewGradingRepository constructs a repository for grading records.
func NewGradingRepository(db *gorm.DB) GradingRepository {
	return &gradingRepository{db: db}
}

func (r *gradingRepository) Create(ctx context.Context, record *models.GradingRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *gradingRepository) ListRecent(ctx context.Context, limit int) ([]models.GradingRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var records []models.GradingRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
