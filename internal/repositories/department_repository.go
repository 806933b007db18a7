package repositories

import (
	"context"

	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"gorm.io/gorm"
)

type DepartmentRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Department, error)
	GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.Department, error)
	// EnsureByCode returns the department with code, creating it when missing
	EnsureByCode(ctx context.Context, tx *gorm.DB, code, name string) (*models.Department, error)
	List(ctx context.Context, tx *gorm.DB) ([]*models.Department, error)
}
