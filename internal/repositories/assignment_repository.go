package repositories

import (
	"context"

	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"gorm.io/gorm"
)

type AssignmentRepository interface {
	// Upsert inserts or updates the (assessment, department) assignment
	Upsert(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error
	Get(ctx context.Context, tx *gorm.DB, assessmentID, departmentID uint) (*models.Assignment, error)
	Delete(ctx context.Context, tx *gorm.DB, assessmentID, departmentID uint) error
	ListByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.Assignment, error)

	// ListActiveByDepartment returns assignments of active assessments with the
	// assessment preloaded, ordered by creation
	ListActiveByDepartment(ctx context.Context, tx *gorm.DB, departmentID uint) ([]*models.Assignment, error)

	// ListManagerVisibleAssessmentIDs returns assessments whose assignment to the
	// department allows manager view
	ListManagerVisibleAssessmentIDs(ctx context.Context, tx *gorm.DB, departmentID uint) ([]uint, error)
}
