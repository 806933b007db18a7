package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories"
	"gorm.io/gorm"
)

type ResultPostgreSQL struct {
	baseRepo
}

func NewResultPostgreSQL(db *gorm.DB) repositories.ResultRepository {
	return &ResultPostgreSQL{baseRepo: baseRepo{db: db}}
}

func (r *ResultPostgreSQL) Create(ctx context.Context, tx *gorm.DB, result *models.Result) error {
	if err := r.getDB(tx).WithContext(ctx).Omit("User", "Assessment").Create(result).Error; err != nil {
		return fmt.Errorf("failed to create result: %w", err)
	}
	return nil
}

func (r *ResultPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Result, error) {
	var result models.Result
	if err := r.getDB(tx).WithContext(ctx).First(&result, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return &result, nil
}

func (r *ResultPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	res := r.getDB(tx).WithContext(ctx).Delete(&models.Result{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete result: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (r *ResultPostgreSQL) GetLatest(ctx context.Context, tx *gorm.DB, assessmentID uint, userID string) (*models.Result, error) {
	var result models.Result
	err := r.getDB(tx).WithContext(ctx).
		Where("assessment_id = ? AND user_id = ?", assessmentID, userID).
		Order("completed_at DESC, id DESC").
		First(&result).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get latest result: %w", err)
	}
	return &result, nil
}

func (r *ResultPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Result, error) {
	var results []*models.Result
	err := r.getDB(tx).WithContext(ctx).
		Preload("Assessment").
		Where("user_id = ?", userID).
		Order("completed_at DESC, id DESC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user results: %w", err)
	}
	return results, nil
}

func (r *ResultPostgreSQL) ListByAssessment(ctx context.Context, tx *gorm.DB, assessmentID uint, filters repositories.ResultFilters) ([]*models.Result, error) {
	query := r.getDB(tx).WithContext(ctx).
		Model(&models.Result{}).
		Joins("LEFT JOIN users ON users.id = assessment_results.user_id").
		Where("assessment_results.assessment_id = ?", assessmentID)
	query = applyResultFilters(query, filters)

	var results []*models.Result
	err := query.
		Preload("User.Department").
		Order("assessment_results.completed_at DESC, assessment_results.id DESC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assessment results: %w", err)
	}
	return results, nil
}

func (r *ResultPostgreSQL) ListByDepartment(ctx context.Context, tx *gorm.DB, departmentID uint, assessmentIDs []uint) ([]*models.Result, error) {
	if len(assessmentIDs) == 0 {
		return []*models.Result{}, nil
	}

	var results []*models.Result
	err := r.getDB(tx).WithContext(ctx).
		Joins("JOIN users ON users.id = assessment_results.user_id").
		Where("users.department_id = ? AND assessment_results.assessment_id IN ?", departmentID, assessmentIDs).
		Preload("User.Department").
		Preload("Assessment").
		Order("assessment_results.completed_at DESC, assessment_results.id DESC").
		Find(&results).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list department results: %w", err)
	}
	return results, nil
}
