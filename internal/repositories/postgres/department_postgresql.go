package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories"
	"gorm.io/gorm"
)

type DepartmentPostgreSQL struct {
	baseRepo
}

func NewDepartmentPostgreSQL(db *gorm.DB) repositories.DepartmentRepository {
	return &DepartmentPostgreSQL{baseRepo: baseRepo{db: db}}
}

func (d *DepartmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Department, error) {
	var department models.Department
	if err := d.getDB(tx).WithContext(ctx).First(&department, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	return &department, nil
}

func (d *DepartmentPostgreSQL) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.Department, error) {
	var department models.Department
	if err := d.getDB(tx).WithContext(ctx).Where("code = ?", code).First(&department).Error; err != nil {
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	return &department, nil
}

func (d *DepartmentPostgreSQL) EnsureByCode(ctx context.Context, tx *gorm.DB, code, name string) (*models.Department, error) {
	if name == "" {
		name = code
	}
	department := models.Department{}
	err := d.getDB(tx).WithContext(ctx).
		Where(models.Department{Code: code}).
		Attrs(models.Department{Name: name}).
		FirstOrCreate(&department).Error
	if err != nil {
		// lost a creation race on the unique code
		if existing, getErr := d.GetByCode(ctx, tx, code); getErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to ensure department: %w", err)
	}
	return &department, nil
}

func (d *DepartmentPostgreSQL) List(ctx context.Context, tx *gorm.DB) ([]*models.Department, error) {
	var departments []*models.Department
	if err := d.getDB(tx).WithContext(ctx).Order("name ASC").Find(&departments).Error; err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	return departments, nil
}
