package repositories

import (
	"context"

	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"gorm.io/gorm"
)

// UserRepository reads and syncs the local user mirror
type UserRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.User, error)
	Upsert(ctx context.Context, tx *gorm.DB, user *models.User) error
	ListByDepartment(ctx context.Context, tx *gorm.DB, departmentID uint) ([]*models.User, error)
	CountByDepartment(ctx context.Context, tx *gorm.DB) (map[uint]int64, error)
}

// IdentityDirectory reads users from the external identity provider
type IdentityDirectory interface {
	GetByID(ctx context.Context, id string) (*IdentityProfile, error)
	List(ctx context.Context) ([]*IdentityProfile, error)
}
