package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	eventSource  = "assessment-service"
	eventVersion = "1.0"
)

// Event types
const (
	AssessmentCompleted  = "assessment.completed"
	AssessmentAssigned   = "assessment.assigned"
	AssessmentUnassigned = "assessment.unassigned"
)

// Event is the envelope of every message the service emits
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    eventSource,
		Version:   eventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher delivers events to downstream consumers (notifications, analytics)
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}

type AssessmentCompletedEvent struct {
	AssessmentID uint      `json:"assessment_id"`
	ResultID     uint      `json:"result_id"`
	UserID       string    `json:"user_id"`
	DepartmentID *uint     `json:"department_id,omitempty"`
	Score        *float64  `json:"score,omitempty"`
	IsPassed     bool      `json:"is_passed"`
	CompletedAt  time.Time `json:"completed_at"`
}

type AssignmentEvent struct {
	AssessmentID uint       `json:"assessment_id"`
	DepartmentID uint       `json:"department_id"`
	IsRequired   bool       `json:"is_required"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
}
