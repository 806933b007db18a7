package repositories

import (
	"time"
)

// ===== SHARED FILTER STRUCTS =====

type ResultStatus string

const (
	ResultStatusAny    ResultStatus = ""
	ResultStatusPassed ResultStatus = "passed"
	ResultStatusFailed ResultStatus = "failed"
)

func (s ResultStatus) IsValid() bool {
	switch s {
	case ResultStatusAny, ResultStatusPassed, ResultStatusFailed:
		return true
	}
	return false
}

// ResultFilters narrows result listings. Every set field adds a predicate and all
// predicates are AND-combined. Date bounds are inclusive.
type ResultFilters struct {
	DepartmentID  *uint        `json:"department_id"`
	UserID        *string      `json:"user_id"`
	CompletedFrom *time.Time   `json:"completed_from"`
	CompletedTo   *time.Time   `json:"completed_to"`
	Status        ResultStatus `json:"status"`
}

// ===== SHARED HELPER STRUCTS =====

type QuestionOrder struct {
	QuestionID uint `json:"question_id"`
	Order      int  `json:"order"`
}

// IdentityProfile is a user record as the identity provider reports it
type IdentityProfile struct {
	UserID         string
	FullName       string
	Email          string
	Role           string
	IsAdmin        bool
	DepartmentCode string
	DepartmentName string
}
