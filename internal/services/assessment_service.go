package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories"
	"github.com/SAP-F-2025/hr-assessment-service/internal/validator"
)

type assessmentService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewAssessmentService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator) AssessmentService {
	return &assessmentService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// ===== ASSESSMENTS =====

func (s *assessmentService) Create(ctx context.Context, req *CreateAssessmentRequest, requester models.Requester) (*models.Assessment, error) {
	if !requester.IsAdmin() {
		return nil, NewPermissionError(requester.UserID, 0, "assessment", "create", "admin role required")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	assessment := &models.Assessment{
		Title:        req.Title,
		Description:  req.Description,
		TypeTag:      req.TypeTag,
		IsActive:     req.IsActive,
		AllowRetake:  req.AllowRetake,
		ShowResults:  req.ShowResults,
		PassingScore: req.PassingScore,
		CreatedBy:    requester.UserID,
	}
	for i := range req.Questions {
		question, err := buildQuestion(&req.Questions[i], fmt.Sprintf("questions[%d]", i))
		if err != nil {
			return nil, err
		}
		question.Order = i + 1
		assessment.Questions = append(assessment.Questions, *question)
	}

	if err := s.repo.Assessment().Create(ctx, nil, assessment); err != nil {
		return nil, fmt.Errorf("failed to create assessment: %w", err)
	}

	s.logger.Info("Assessment created",
		"assessment_id", assessment.ID,
		"questions", len(assessment.Questions),
		"created_by", requester.UserID)
	return assessment, nil
}

func (s *assessmentService) Update(ctx context.Context, id uint, req *UpdateAssessmentRequest, requester models.Requester) (*models.Assessment, error) {
	if !requester.IsAdmin() {
		return nil, NewPermissionError(requester.UserID, id, "assessment", "update", "admin role required")
	}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	if req.Title != nil {
		assessment.Title = *req.Title
	}
	if req.Description != nil {
		assessment.Description = req.Description
	}
	if req.TypeTag != nil {
		assessment.TypeTag = *req.TypeTag
	}
	if req.IsActive != nil {
		assessment.IsActive = *req.IsActive
	}
	if req.AllowRetake != nil {
		assessment.AllowRetake = *req.AllowRetake
	}
	if req.ShowResults != nil {
		assessment.ShowResults = *req.ShowResults
	}
	if req.PassingScore != nil {
		assessment.PassingScore = *req.PassingScore
	}

	if err := s.repo.Assessment().Update(ctx, nil, assessment); err != nil {
		return nil, fmt.Errorf("failed to update assessment: %w", err)
	}

	s.logger.Info("Assessment updated", "assessment_id", id, "updated_by", requester.UserID)
	return assessment, nil
}

func (s *assessmentService) GetByID(ctx context.Context, id uint) (*models.Assessment, error) {
	assessment, err := s.repo.Assessment().GetByIDWithQuestions(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	return assessment, nil
}

// ===== QUESTIONS =====

// AddQuestion appends a question after the current last one
func (s *assessmentService) AddQuestion(ctx context.Context, assessmentID uint, req *QuestionRequest, requester models.Requester) (*models.Question, error) {
	if !requester.IsAdmin() {
		return nil, NewPermissionError(requester.UserID, assessmentID, "question", "create", "admin role required")
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

	question, err := buildQuestion(req, "")
	if err != nil {
		return nil, err
	}

	maxOrder, err := s.repo.Question().GetMaxOrder(ctx, nil, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get question order: %w", err)
	}
	question.AssessmentID = assessmentID
	question.Order = maxOrder + 1

	if err := s.repo.Question().Create(ctx, nil, question); err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}
	s.repo.Assessment().InvalidateCache(ctx, assessmentID)

	s.logger.Info("Question added",
		"assessment_id", assessmentID,
		"question_id", question.ID,
		"order", question.Order)
	return question, nil
}

// DeleteQuestion removes a question and closes the gap it leaves in the
// ordering. The renumbering is not transactional: a failure partway keeps the
// writes already applied and is reported as a RenumberError.
func (s *assessmentService) DeleteQuestion(ctx context.Context, assessmentID, questionID uint, requester models.Requester) error {
	if !requester.IsAdmin() {
		return NewPermissionError(requester.UserID, assessmentID, "question", "delete", "admin role required")
	}

	question, err := s.repo.Question().GetByID(ctx, nil, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to get question: %w", err)
	}
	if question.AssessmentID != assessmentID {
		return ErrQuestionNotFound
	}

	if err := s.repo.Question().Delete(ctx, nil, questionID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("failed to delete question: %w", err)
	}
	s.repo.Assessment().InvalidateCache(ctx, assessmentID)

	s.logger.Info("Question deleted",
		"assessment_id", assessmentID,
		"question_id", questionID,
		"deleted_by", requester.UserID)

	return s.renumber(ctx, assessmentID)
}

func (s *assessmentService) CompactQuestionOrder(ctx context.Context, assessmentID uint) error {
	return s.renumber(ctx, assessmentID)
}

// CompactAll renumbers every assessment, continuing past failures
func (s *assessmentService) CompactAll(ctx context.Context) error {
	ids, err := s.repo.Assessment().ListIDs(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to list assessments: %w", err)
	}

	var errs []error
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if err := s.renumber(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// renumber computes the full target order 1..n first and then writes only the
// questions whose order changes
func (s *assessmentService) renumber(ctx context.Context, assessmentID uint) error {
	questions, err := s.repo.Question().GetByAssessment(ctx, nil, assessmentID)
	if err != nil {
		return fmt.Errorf("failed to load questions: %w", err)
	}

	var changes []repositories.QuestionOrder
	for i, q := range questions {
		if q.Order != i+1 {
			changes = append(changes, repositories.QuestionOrder{QuestionID: q.ID, Order: i + 1})
		}
	}
	if len(changes) == 0 {
		return nil
	}

	applied := 0
	for _, change := range changes {
		if err := s.repo.Question().UpdateOrder(ctx, nil, change.QuestionID, change.Order); err != nil {
			s.repo.Assessment().InvalidateCache(ctx, assessmentID)
			renumberErr := &RenumberError{
				AssessmentID: assessmentID,
				Applied:      applied,
				Total:        len(changes),
				Err:          err,
			}
			s.logger.Error("Question renumbering incomplete",
				"assessment_id", assessmentID,
				"applied", applied,
				"total", len(changes),
				"error", err)
			return renumberErr
		}
		applied++
	}

	s.repo.Assessment().InvalidateCache(ctx, assessmentID)
	s.logger.Debug("Questions renumbered", "assessment_id", assessmentID, "updated", applied)
	return nil
}

// buildQuestion checks the option list against the question type
func buildQuestion(req *QuestionRequest, fieldPrefix string) (*models.Question, error) {
	field := func(name string) string {
		if fieldPrefix == "" {
			return name
		}
		return fieldPrefix + "." + name
	}

	switch req.Type {
	case models.FreeText:
		if len(req.Options) > 0 {
			return nil, NewValidationError(field("options"), "free text questions take no options", len(req.Options))
		}
	case models.TrueFalse:
		if len(req.Options) != 2 {
			return nil, NewValidationError(field("options"), "true/false questions need exactly 2 options", len(req.Options))
		}
	default:
		if len(req.Options) < 2 {
			return nil, NewValidationError(field("options"), "must have at least 2 options", len(req.Options))
		}
	}

	seen := map[string]bool{}
	for _, opt := range req.Options {
		if seen[opt.Value] {
			return nil, NewValidationError(field("options"), "duplicate option value", opt.Value)
		}
		seen[opt.Value] = true
	}

	question := &models.Question{
		Text:     req.Text,
		Type:     req.Type,
		Required: req.Required,
		ImageURL: req.ImageURL,
	}
	if len(req.Options) > 0 {
		data, err := json.Marshal(req.Options)
		if err != nil {
			return nil, fmt.Errorf("failed to encode options: %w", err)
		}
		question.Options = datatypes.JSON(data)
	}
	return question, nil
}
