package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/hr-assessment-service/internal/validator"
)

// Error kinds. Every error a service returns wraps exactly one of these.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrConflict         = errors.New("conflict")
	ErrValidationFailed = errors.New("validation failed")
	ErrUpstreamFailure  = errors.New("upstream failure")
)

var (
	ErrAssessmentNotFound = newKindError(ErrNotFound, "assessment not found")
	ErrAssignmentNotFound = newKindError(ErrNotFound, "assessment is not assigned to the user's department")
	ErrProgressNotFound   = newKindError(ErrNotFound, "assessment has not been started")
	ErrQuestionNotFound   = newKindError(ErrNotFound, "question not found")
	ErrResultNotFound     = newKindError(ErrNotFound, "result not found")
	ErrUserNotFound       = newKindError(ErrNotFound, "user not found")
	ErrDepartmentNotFound = newKindError(ErrNotFound, "department not found")

	ErrRetakeNotAllowed        = newKindError(ErrConflict, "assessment already completed and retakes are not allowed")
	ErrAttemptAlreadySubmitted = newKindError(ErrConflict, "attempt already submitted")
	ErrOutsideWindow           = newKindError(ErrConflict, "assessment is outside its availability window")

	ErrScoringFailed = newKindError(ErrUpstreamFailure, "scoring service failed")
)

// Stable kind names used in API error bodies
const (
	KindNotFound   = "not_found"
	KindForbidden  = "forbidden"
	KindConflict   = "conflict"
	KindValidation = "validation_failed"
	KindUpstream   = "upstream_failure"
	KindInternal   = "internal"
)

type kindError struct {
	kind error
	msg  string
}

func newKindError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// ValidationErrors is returned when a request fails validation
type ValidationErrors = validator.ValidationErrors

type ValidationError = validator.ValidationError

func NewValidationError(field, message string, value interface{}) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message, Value: value}}
}

// PermissionError is returned when the requester's role or department does not
// allow the action
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s may not %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Unwrap() error { return ErrForbidden }

// RenumberError reports a question renumbering that stopped partway. Writes
// already applied are kept; the next compaction run finishes the job.
type RenumberError struct {
	AssessmentID uint
	Applied      int
	Total        int
	Err          error
}

func (e *RenumberError) Error() string {
	return fmt.Sprintf("renumbering assessment %d stopped after %d of %d updates: %v",
		e.AssessmentID, e.Applied, e.Total, e.Err)
}

func (e *RenumberError) Unwrap() error { return e.Err }

// KindOf maps err to its stable kind name
func KindOf(err error) string {
	var ve ValidationErrors
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve), errors.Is(err, ErrValidationFailed):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrUpstreamFailure):
		return KindUpstream
	default:
		return KindInternal
	}
}
