package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/projeto-mae/redacao-api/internal/models"
)

// MarkerRepository persists the processed flag for batch-graded source
// files. The marker is the only durable bookkeeping the poll loop relies on,
// so re-runs stay idempotent and inspectable.
type MarkerRepository interface {
	IsProcessed(ctx context.Context, sourceFileID string) (bool, error)
	MarkProcessed(ctx context.Context, marker *models.ProcessedFile) error
}

type markerRepository struct {
	db *gorm.DB
}

// NewMarkerRepository constructs a repository for processed-file markers.
func NewMarkerRepository(db *gorm.DB) MarkerRepository {
	return &markerRepository{db: db}
}

func (r *markerRepository) IsProcessed(ctx context.Context, sourceFileID string) (bool, error) {
	var marker models.ProcessedFile
	err := r.db.WithContext(ctx).
		Where("source_file_id = ?", sourceFileID).
		First(&marker).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *markerRepository) MarkProcessed(ctx context.Context, marker *models.ProcessedFile) error {
	if marker.ProcessedAt.IsZero() {
		marker.ProcessedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(marker).Error
}
