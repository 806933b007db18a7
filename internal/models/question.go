package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	RatingScale    QuestionType = "rating_scale"
	TrueFalse      QuestionType = "true_false"
	FreeText       QuestionType = "free_text"
)

func (t QuestionType) IsValid() bool {
	switch t {
	case MultipleChoice, RatingScale, TrueFalse, FreeText:
		return true
	}
	return false
}

type Question struct {
	ID           uint           `json:"id" gorm:"primaryKey"`
	AssessmentID uint           `json:"assessment_id" gorm:"not null;index"`
	Text         string         `json:"text" gorm:"type:text;not null"`
	Type         QuestionType   `json:"type" gorm:"not null;size:30"`
	Order        int            `json:"order" gorm:"column:question_order;not null;index"`
	Required     bool           `json:"required" gorm:"not null"`
	Options      datatypes.JSON `json:"options,omitempty"`
	ImageURL     *string        `json:"image_url,omitempty" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Question) TableName() string {
	return "questions"
}

// QuestionOption is one choice of a multiple choice, true/false or rating question.
// Dimension tags the trait the option scores toward (e.g. "E" or "I").
type QuestionOption struct {
	Value     string `json:"value" validate:"required"`
	Label     string `json:"label" validate:"required"`
	Dimension string `json:"dimension,omitempty"`
}

// ParsedOptions decodes the stored option list
func (q *Question) ParsedOptions() ([]QuestionOption, error) {
	if len(q.Options) == 0 {
		return nil, nil
	}
	var opts []QuestionOption
	if err := json.Unmarshal(q.Options, &opts); err != nil {
		return nil, fmt.Errorf("invalid options for question %d: %w", q.ID, err)
	}
	return opts, nil
}
