package postgres

import (
	"gorm.io/gorm"

	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories"
)

// baseRepo carries the default connection. Every method accepts an optional
// transaction that takes precedence over it.
type baseRepo struct {
	db *gorm.DB
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (b baseRepo) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return b.db
}

// applyResultFilters adds the predicates of filters to a query over
// assessment_results joined with users
func applyResultFilters(query *gorm.DB, filters repositories.ResultFilters) *gorm.DB {
	if filters.DepartmentID != nil {
		query = query.Where("users.department_id = ?", *filters.DepartmentID)
	}
	if filters.UserID != nil {
		query = query.Where("assessment_results.user_id = ?", *filters.UserID)
	}
	if filters.CompletedFrom != nil {
		query = query.Where("assessment_results.completed_at >= ?", *filters.CompletedFrom)
	}
	if filters.CompletedTo != nil {
		query = query.Where("assessment_results.completed_at <= ?", *filters.CompletedTo)
	}
	switch filters.Status {
	case repositories.ResultStatusPassed:
		query = query.Where("assessment_results.is_passed = ?", true)
	case repositories.ResultStatusFailed:
		query = query.Where("assessment_results.is_passed = ?", false)
	}
	return query
}
