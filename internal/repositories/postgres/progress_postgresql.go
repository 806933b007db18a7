package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressPostgreSQL struct {
	baseRepo
}

func NewProgressPostgreSQL(db *gorm.DB) repositories.ProgressRepository {
	return &ProgressPostgreSQL{baseRepo: baseRepo{db: db}}
}

// CreateIfAbsent relies on the (assessment_id, user_id) unique index so that
// concurrent first starts converge on a single row.
func (p *ProgressPostgreSQL) CreateIfAbsent(ctx context.Context, tx *gorm.DB, progress *models.Progress) (*models.Progress, error) {
	err := p.getDB(tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "assessment_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(progress).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create progress: %w", err)
	}

	return p.Get(ctx, tx, progress.AssessmentID, progress.UserID)
}

func (p *ProgressPostgreSQL) Get(ctx context.Context, tx *gorm.DB, assessmentID uint, userID string) (*models.Progress, error) {
	var progress models.Progress
	err := p.getDB(tx).WithContext(ctx).
		Where("assessment_id = ? AND user_id = ?", assessmentID, userID).
		First(&progress).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return &progress, nil
}

func (p *ProgressPostgreSQL) GetForUpdate(ctx context.Context, tx *gorm.DB, assessmentID uint, userID string) (*models.Progress, error) {
	var progress models.Progress
	err := p.getDB(tx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("assessment_id = ? AND user_id = ?", assessmentID, userID).
		First(&progress).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock progress: %w", err)
	}
	return &progress, nil
}

// Update is a full-row overwrite; last_activity never moves backwards.
func (p *ProgressPostgreSQL) Update(ctx context.Context, tx *gorm.DB, progress *models.Progress) error {
	result := p.getDB(tx).WithContext(ctx).
		Model(&models.Progress{}).
		Where("id = ?", progress.ID).
		Updates(map[string]interface{}{
			"answers":       progress.Answers,
			"last_question": progress.LastQuestion,
			"started_at":    progress.StartedAt,
			"last_activity": gorm.Expr("CASE WHEN last_activity > ? THEN last_activity ELSE ? END",
				progress.LastActivity, progress.LastActivity),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update progress: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

func (p *ProgressPostgreSQL) ListByUser(ctx context.Context, tx *gorm.DB, userID string) ([]*models.Progress, error) {
	var rows []*models.Progress
	err := p.getDB(tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	return rows, nil
}
