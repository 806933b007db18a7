package models

import (
	"time"
)

// Assignment makes an assessment available to every member of a department.
type Assignment struct {
	ID               uint       `json:"id" gorm:"primaryKey"`
	AssessmentID     uint       `json:"assessment_id" gorm:"not null;uniqueIndex:idx_assignment_assessment_department"`
	DepartmentID     uint       `json:"department_id" gorm:"not null;uniqueIndex:idx_assignment_assessment_department;index"`
	IsRequired       bool       `json:"is_required" gorm:"not null"`
	StartDate        *time.Time `json:"start_date"`
	EndDate          *time.Time `json:"end_date"`
	AllowManagerView bool       `json:"allow_manager_view" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Assessment *Assessment `json:"assessment,omitempty" gorm:"foreignKey:AssessmentID"`
	Department *Department `json:"department,omitempty" gorm:"foreignKey:DepartmentID"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// IsOpen reports whether the availability window admits now
func (a *Assignment) IsOpen(now time.Time) bool {
	return WindowAdmits(a.StartDate, a.EndDate, now)
}

// WindowAdmits treats a nil bound as unbounded. Both bounds are inclusive, so a
// window whose start is after its end never admits anything.
func WindowAdmits(start, end *time.Time, now time.Time) bool {
	if start != nil && now.Before(*start) {
		return false
	}
	if end != nil && now.After(*end) {
		return false
	}
	return true
}
