package repositories

import (
	"context"

	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"gorm.io/gorm"
)

// QuestionRepository interface for question-specific operations
type QuestionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, question *models.Question) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Question, error)
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// GetByAssessment returns questions ordered by (order, id)
	GetByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.Question, error)
	GetMaxOrder(ctx context.Context, tx *gorm.DB, assessmentID uint) (int, error)
	UpdateOrder(ctx context.Context, tx *gorm.DB, questionID uint, order int) error
}
