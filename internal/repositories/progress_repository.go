package repositories

import (
	"context"

	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"gorm.io/gorm"
)

type ProgressRepository interface {
	// CreateIfAbsent inserts progress unless a row for (assessment, user) exists and
	// returns the stored row either way
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, progress *models.Progress) (*models.Progress, error)
	Get(ctx context.Context, tx *gorm.DB, assessmentID uint, userID string) (*models.Progress, error)
	// GetForUpdate locks the row until tx ends; tx must be a transaction
	GetForUpdate(ctx context.Context, tx *gorm.DB, assessmentID uint, userID string) (*models.Progress, error)
	// Update overwrites answers, last question, last activity and start time
	Update(ctx context.Context, tx *gorm.DB, progress *models.Progress) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Progress, error)
}
