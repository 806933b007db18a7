package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/hr-assessment-service/internal/cache"
	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories"
	"gorm.io/gorm"
)

type AssessmentPostgreSQL struct {
	baseRepo
	cacheManager *cache.CacheManager
}

func NewAssessmentPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.AssessmentRepository {
	return &AssessmentPostgreSQL{
		baseRepo:     baseRepo{db: db},
		cacheManager: cacheManager,
	}
}

func (a *AssessmentPostgreSQL) Create(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error {
	if err := a.getDB(tx).WithContext(ctx).Create(assessment).Error; err != nil {
		return fmt.Errorf("failed to create assessment: %w", err)
	}
	return nil
}

func (a *AssessmentPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	var assessment models.Assessment
	if err := a.getDB(tx).WithContext(ctx).First(&assessment, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return &assessment, nil
}

// GetByIDWithQuestions is read on every start, so it goes through the cache.
// Inside a transaction the cache is bypassed.
func (a *AssessmentPostgreSQL) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Assessment, error) {
	load := func() (interface{}, error) {
		var dbAssessment models.Assessment
		err := a.getDB(tx).WithContext(ctx).
			Preload("Questions", func(db *gorm.DB) *gorm.DB {
				return db.Order("question_order ASC, id ASC")
			}).
			First(&dbAssessment, id).Error
		if err != nil {
			return nil, fmt.Errorf("failed to get assessment details: %w", err)
		}
		return &dbAssessment, nil
	}

	if tx != nil {
		v, err := load()
		if err != nil {
			return nil, err
		}
		return v.(*models.Assessment), nil
	}

	var assessment models.Assessment
	err := a.cacheManager.Assessment.CacheOrExecute(ctx, cache.AssessmentKey(id), &assessment, cache.AssessmentCacheConfig.TTL, load)
	if err != nil {
		return nil, err
	}
	return &assessment, nil
}

func (a *AssessmentPostgreSQL) Update(ctx context.Context, tx *gorm.DB, assessment *models.Assessment) error {
	err := a.getDB(tx).WithContext(ctx).
		Model(assessment).
		Select("title", "description", "type_tag", "is_active", "allow_retake", "show_results", "passing_score").
		Updates(assessment).Error
	if err != nil {
		return fmt.Errorf("failed to update assessment: %w", err)
	}

	cache.InvalidateAssessmentCache(ctx, a.cacheManager, assessment.ID)
	return nil
}

func (a *AssessmentPostgreSQL) ListIDs(ctx context.Context, tx *gorm.DB) ([]uint, error) {
	var ids []uint
	err := a.getDB(tx).WithContext(ctx).
		Model(&models.Assessment{}).
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assessment ids: %w", err)
	}
	return ids, nil
}

func (a *AssessmentPostgreSQL) InvalidateCache(ctx context.Context, id uint) {
	cache.InvalidateAssessmentCache(ctx, a.cacheManager, id)
}
