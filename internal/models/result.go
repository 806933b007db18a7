package models

import (
	"time"

	"gorm.io/datatypes"
)

type Result struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	AssessmentID uint           `json:"assessment_id" gorm:"not null;index:idx_result_assessment_user"`
	UserID       string         `json:"user_id" gorm:"not null;size:255;index:idx_result_assessment_user"`
	Payload      datatypes.JSON `json:"-"`
	Score        *float64       `json:"score"`
	IsPassed     bool           `json:"is_passed" gorm:"not null"`
	TimeSpent    *int           `json:"time_spent"` // seconds
	CompletedAt  time.Time      `json:"completed_at" gorm:"not null;index"`

	CreatedAt time.Time `json:"created_at"`

	User       *User       `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Assessment *Assessment `json:"assessment,omitempty" gorm:"foreignKey:AssessmentID"`
}

func (Result) TableName() string {
	return "assessment_results"
}

// NormalizedPayload decodes the stored payload, including legacy encodings
func (r *Result) NormalizedPayload() ResultPayload {
	return NormalizeResultPayload(r.Payload)
}
