package models

import (
	"time"
)

type Assessment struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Title       string  `json:"title" gorm:"not null;size:200;index"`
	Description *string `json:"description" gorm:"type:text"`
	// TypeTag identifies the instrument family, e.g. "mbti", "disc" or "survey".
	TypeTag      string `json:"type_tag" gorm:"not null;size:50;index"`
	IsActive     bool   `json:"is_active" gorm:"not null;index"`
	AllowRetake  bool   `json:"allow_retake" gorm:"not null"`
	ShowResults  bool   `json:"show_results" gorm:"not null"`
	PassingScore int    `json:"passing_score" gorm:"not null"`

	CreatedBy string    `json:"created_by" gorm:"size:255"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:AssessmentID"`
}

func (Assessment) TableName() string {
	return "assessments"
}
