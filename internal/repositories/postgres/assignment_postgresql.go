package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AssignmentPostgreSQL struct {
	baseRepo
}

func NewAssignmentPostgreSQL(db *gorm.DB) repositories.AssignmentRepository {
	return &AssignmentPostgreSQL{baseRepo: baseRepo{db: db}}
}

func (a *AssignmentPostgreSQL) Upsert(ctx context.Context, tx *gorm.DB, assignment *models.Assignment) error {
	db := a.getDB(tx).WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "assessment_id"}, {Name: "department_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"is_required", "start_date", "end_date", "allow_manager_view", "updated_at",
		}),
	}).Create(assignment).Error
	if err != nil {
		return fmt.Errorf("failed to upsert assignment: %w", err)
	}

	// the conflict path does not report the existing row id on every driver
	stored, err := a.Get(ctx, tx, assignment.AssessmentID, assignment.DepartmentID)
	if err != nil {
		return err
	}
	*assignment = *stored
	return nil
}

func (a *AssignmentPostgreSQL) Get(ctx context.Context, tx *gorm.DB, assessmentID, departmentID uint) (*models.Assignment, error) {
	var assignment models.Assignment
	err := a.getDB(tx).WithContext(ctx).
		Where("assessment_id = ? AND department_id = ?", assessmentID, departmentID).
		First(&assignment).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &assignment, nil
}

func (a *AssignmentPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, assessmentID, departmentID uint) error {
	result := a.getDB(tx).WithContext(ctx).
		Where("assessment_id = ? AND department_id = ?", assessmentID, departmentID).
		Delete(&models.Assignment{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete assignment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (a *AssignmentPostgreSQL) ListByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint) ([]*models.Assignment, error) {
	var assignments []*models.Assignment
	err := a.getDB(tx).WithContext(ctx).
		Preload("Department").
		Where("assessment_id = ?", assessmentID).
		Order("created_at ASC, id ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

func (a *AssignmentPostgreSQL) ListActiveByDepartment(ctx context.Context, tx *gorm.DB, departmentID uint) ([]*models.Assignment, error) {
	var assignments []*models.Assignment
	err := a.getDB(tx).WithContext(ctx).
		Joins("JOIN assessments ON assessments.id = assignments.assessment_id").
		Where("assignments.department_id = ? AND assessments.is_active = ?", departmentID, true).
		Preload("Assessment").
		Order("assignments.created_at ASC, assignments.id ASC").
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list department assignments: %w", err)
	}
	return assignments, nil
}

func (a *AssignmentPostgreSQL) ListManagerVisibleAssessmentIDs(ctx context.Context, tx *gorm.DB, departmentID uint) ([]uint, error) {
	var ids []uint
	err := a.getDB(tx).WithContext(ctx).
		Model(&models.Assignment{}).
		Where("department_id = ? AND allow_manager_view = ?", departmentID, true).
		Order("assessment_id ASC").
		Pluck("assessment_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list manager visible assessments: %w", err)
	}
	return ids, nil
}
