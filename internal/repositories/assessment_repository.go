package repositories

import (
	"context"

	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"gorm.io/gorm"
)

// AssessmentRepository interface for assessment definitions
type AssessmentRepository interface {
	Create(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error)
	// GetByIDWithQuestions preloads questions in display order
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error)
	Update(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error
	ListIDs(ctx context.Context, tx *gorm.DB) ([]uint, error)
	InvalidateCache(ctx context.Context, id uint)
}
