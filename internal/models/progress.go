package models

import (
	"time"

	"gorm.io/datatypes"
)

type AttemptState string

const (
	AttemptNotStarted AttemptState = "not_started"
	AttemptInProgress AttemptState = "in_progress"
	AttemptCompleted  AttemptState = "completed"
)

// Progress holds the durable in-flight answers of one user for one assessment.
// At most one row exists per (assessment, user).
type Progress struct {
	ID           uint              `json:"id" gorm:"primaryKey"`
	AssessmentID uint              `json:"assessment_id" gorm:"not null;uniqueIndex:idx_progress_assessment_user"`
	UserID       string            `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_progress_assessment_user"`
	Answers      datatypes.JSONMap `json:"answers"`
	LastQuestion int               `json:"last_question" gorm:"not null;default:0"`
	LastActivity time.Time         `json:"last_activity" gorm:"not null"`
	StartedAt    time.Time         `json:"started_at" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Progress) TableName() string {
	return "assessment_progress"
}

// SupersededBy reports whether a result completed at or after this attempt began
func (p *Progress) SupersededBy(r *Result) bool {
	return r != nil && !p.StartedAt.After(r.CompletedAt)
}
