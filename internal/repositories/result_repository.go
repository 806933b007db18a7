package repositories

import (
	"context"

	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"gorm.io/gorm"
)

type ResultRepository interface {
	Create(ctx context.Context, tx *gorm.DB, result *models.Result) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Result, error)
	Delete(ctx context.Context, tx *gorm.DB, id uint) error

	// GetLatest returns the most recent completion of a user
	GetLatest(ctx context.Context, tx *gorm.DB, assessmentID uint, userID string) (*models.Result, error)
	// ListByUser returns all results of a user, newest first
	ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Result, error)
	// ListByAssessment returns matching results with user and department preloaded
	ListByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint, filters ResultFilters) ([]*models.Result, error)
	// ListByDepartment returns results of department members for the given
	// assessments, newest first
	ListByDepartment(ctx context.Context, tx *gorm.DB, departmentID uint, assessmentIDs []uint) ([]*models.Result, error)
}
