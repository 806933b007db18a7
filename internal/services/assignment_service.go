package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/hr-assessment-service/internal/events"
	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories"
	"github.com/SAP-F-2025/hr-assessment-service/internal/validator"
)

type assignmentService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.EventPublisher
	now       func() time.Time
}

func NewAssignmentService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, publisher events.EventPublisher) AssignmentService {
	return &assignmentService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		now:       time.Now,
	}
}

// ===== ELIGIBILITY =====

// ListEligible returns the active assessments assigned to the user's department
// whose window admits now. Only a missing user is an error; any other read
// failure yields an empty list.
func (s *assignmentService) ListEligible(ctx context.Context, userID string) ([]*EligibleAssessment, error) {
	user, err := s.repo.User().GetByID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("Failed to load user for eligibility", "user_id", userID, "error", err)
		return []*EligibleAssessment{}, nil
	}
	if user.DepartmentID == nil {
		return []*EligibleAssessment{}, nil
	}

	assignments, err := s.repo.Assignment().ListActiveByDepartment(ctx, nil, *user.DepartmentID)
	if err != nil {
		s.logger.Error("Failed to list department assignments",
			"user_id", userID,
			"department_id", *user.DepartmentID,
			"error", err)
		return []*EligibleAssessment{}, nil
	}

	progressByAssessment := map[uint]*models.Progress{}
	if rows, err := s.repo.Progress().ListByUser(ctx, nil, userID); err != nil {
		s.logger.Error("Failed to list progress", "user_id", userID, "error", err)
	} else {
		for _, p := range rows {
			progressByAssessment[p.AssessmentID] = p
		}
	}

	// newest first, so the first row seen per assessment is the latest
	latestByAssessment := map[uint]*models.Result{}
	if rows, err := s.repo.Result().ListByUser(ctx, nil, userID); err != nil {
		s.logger.Error("Failed to list results", "user_id", userID, "error", err)
	} else {
		for _, r := range rows {
			if _, ok := latestByAssessment[r.AssessmentID]; !ok {
				latestByAssessment[r.AssessmentID] = r
			}
		}
	}

	now := s.now()
	eligible := make([]*EligibleAssessment, 0, len(assignments))
	for _, a := range assignments {
		if a.Assessment == nil || !a.Assessment.IsActive || !a.IsOpen(now) {
			continue
		}

		item := &EligibleAssessment{
			Assessment: newAssessmentSummary(a.Assessment),
			IsRequired: a.IsRequired,
			StartDate:  a.StartDate,
			EndDate:    a.EndDate,
		}
		if latest, ok := latestByAssessment[a.AssessmentID]; ok {
			completedAt := latest.CompletedAt
			item.HasCompleted = true
			item.CompletedAt = &completedAt
		}
		item.CanRetake = item.HasCompleted && a.Assessment.AllowRetake
		if p, ok := progressByAssessment[a.AssessmentID]; ok {
			// a result always wins over a leftover or restarted progress row
			item.InProgress = !item.HasCompleted
			item.RetakeInProgress = item.HasCompleted && !p.SupersededBy(latestByAssessment[a.AssessmentID])
			item.LastQuestion = p.LastQuestion
		}
		eligible = append(eligible, item)
	}
	return eligible, nil
}

// ===== ADMINISTRATION =====

func (s *assignmentService) Assign(ctx context.Context, assessmentID, departmentID uint, req *AssignRequest, requester models.Requester) (*models.Assignment, error) {
	if !requester.IsAdmin() {
		return nil, NewPermissionError(requester.UserID, assessmentID, "assignment", "create", "admin role required")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.Assessment().GetByID(ctx, nil, assessmentID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if _, err := s.repo.Department().GetByID(ctx, nil, departmentID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrDepartmentNotFound
		}
		return nil, fmt.Errorf("failed to get department: %w", err)
	}

	if req.StartDate != nil && req.EndDate != nil && req.StartDate.After(*req.EndDate) {
		// stored as is; an inverted window simply never admits anyone
		s.logger.Warn("Assignment window starts after it ends",
			"assessment_id", assessmentID,
			"department_id", departmentID)
	}

	assignment := &models.Assignment{
		AssessmentID:     assessmentID,
		DepartmentID:     departmentID,
		IsRequired:       req.IsRequired,
		StartDate:        req.StartDate,
		EndDate:          req.EndDate,
		AllowManagerView: req.AllowManagerView,
	}
	if err := s.repo.Assignment().Upsert(ctx, nil, assignment); err != nil {
		return nil, fmt.Errorf("failed to save assignment: %w", err)
	}

	s.logger.Info("Assessment assigned",
		"assessment_id", assessmentID,
		"department_id", departmentID,
		"assigned_by", requester.UserID)

	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.AssessmentAssigned, events.AssignmentEvent{
		AssessmentID: assessmentID,
		DepartmentID: departmentID,
		IsRequired:   assignment.IsRequired,
		StartDate:    assignment.StartDate,
		EndDate:      assignment.EndDate,
	}))
	return assignment, nil
}

// Unassign removes the assignment only; progress and results are kept
func (s *assignmentService) Unassign(ctx context.Context, assessmentID, departmentID uint, requester models.Requester) error {
	if !requester.IsAdmin() {
		return NewPermissionError(requester.UserID, assessmentID, "assignment", "delete", "admin role required")
	}

	if err := s.repo.Assignment().Delete(ctx, nil, assessmentID, departmentID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAssignmentNotFound
		}
		return fmt.Errorf("failed to delete assignment: %w", err)
	}

	s.logger.Info("Assessment unassigned",
		"assessment_id", assessmentID,
		"department_id", departmentID,
		"unassigned_by", requester.UserID)

	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.AssessmentUnassigned, events.AssignmentEvent{
		AssessmentID: assessmentID,
		DepartmentID: departmentID,
	}))
	return nil
}

func (s *assignmentService) ListAssignments(ctx context.Context, assessmentID uint, requester models.Requester) ([]*models.Assignment, error) {
	if !requester.IsAdmin() {
		return nil, NewPermissionError(requester.UserID, assessmentID, "assignment", "list", "admin role required")
	}
	if _, err := s.repo.Assessment().GetByID(ctx, nil, assessmentID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	assignments, err := s.repo.Assignment().ListByAssessment(ctx, nil, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}
