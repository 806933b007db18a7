package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/hr-assessment-service/internal/cache"
	"github.com/SAP-F-2025/hr-assessment-service/internal/events"
	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories"
	"github.com/SAP-F-2025/hr-assessment-service/internal/validator"
	"github.com/SAP-F-2025/hr-assessment-service/pkg/monitoring"
)

type attemptService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	scoring   ScoringGateway
	publisher events.EventPublisher
	cache     *cache.CacheManager
	now       func() time.Time
}

func NewAttemptService(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator,
	scoring ScoringGateway, publisher events.EventPublisher, cacheManager *cache.CacheManager) AttemptService {
	return &attemptService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		scoring:   scoring,
		publisher: publisher,
		cache:     cacheManager,
		now:       time.Now,
	}
}

// ===== STATE =====

func (s *attemptService) State(ctx context.Context, assessmentID uint, userID string) (models.AttemptState, error) {
	latest, err := s.latestResult(ctx, assessmentID, userID)
	if err != nil {
		return "", err
	}
	if latest != nil {
		return models.AttemptCompleted, nil
	}

	progress, err := s.findProgress(ctx, assessmentID, userID)
	if err != nil {
		return "", err
	}
	if progress != nil {
		return models.AttemptInProgress, nil
	}
	return models.AttemptNotStarted, nil
}

// ===== START =====

func (s *attemptService) Start(ctx context.Context, assessmentID uint, requester models.Requester) (*StartAttemptResponse, error) {
	s.logger.Info("Starting assessment",
		"assessment_id", assessmentID,
		"user_id", requester.UserID)

	assessment, err := s.repo.Assessment().GetByIDWithQuestions(ctx, nil, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if !assessment.IsActive {
		return nil, ErrAssessmentNotFound
	}

	// admins may preview any assessment without an assignment
	var assignment *models.Assignment
	if !requester.IsAdmin() {
		assignment, err = s.departmentAssignment(ctx, assessmentID, requester)
		if err != nil {
			return nil, err
		}
	}

	latest, err := s.latestResult(ctx, assessmentID, requester.UserID)
	if err != nil {
		return nil, err
	}
	if latest != nil && !assessment.AllowRetake {
		return nil, ErrRetakeNotAllowed
	}

	progress, err := s.findProgress(ctx, assessmentID, requester.UserID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	resumed := progress != nil && !progress.SupersededBy(latest)

	if !resumed {
		// the window only gates new attempts; an attempt already underway may finish
		if assignment != nil && !assignment.IsOpen(now) {
			return nil, ErrOutsideWindow
		}

		outcome := "new"
		if progress == nil {
			progress, err = s.repo.Progress().CreateIfAbsent(ctx, nil, &models.Progress{
				AssessmentID: assessmentID,
				UserID:       requester.UserID,
				Answers:      datatypes.JSONMap{},
				LastActivity: now,
				StartedAt:    now,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to create progress: %w", err)
			}
		} else {
			outcome = "retake"
			progress.Answers = datatypes.JSONMap{}
			progress.LastQuestion = 0
			progress.StartedAt = now
			progress.LastActivity = now
			if err := s.repo.Progress().Update(ctx, nil, progress); err != nil {
				return nil, fmt.Errorf("failed to reset progress: %w", err)
			}
		}
		monitoring.AttemptsStarted.WithLabelValues(outcome).Inc()
		s.logger.Info("Assessment attempt started",
			"assessment_id", assessmentID,
			"user_id", requester.UserID,
			"outcome", outcome)
	} else {
		monitoring.AttemptsStarted.WithLabelValues("resumed").Inc()
		s.logger.Info("Resuming assessment attempt",
			"assessment_id", assessmentID,
			"user_id", requester.UserID,
			"last_question", progress.LastQuestion)
	}

	questions := make([]*models.Question, 0, len(assessment.Questions))
	for i := range assessment.Questions {
		questions = append(questions, &assessment.Questions[i])
	}

	state := models.AttemptInProgress
	if latest != nil {
		state = models.AttemptCompleted
	}

	return &StartAttemptResponse{
		Assessment: newAssessmentSummary(assessment),
		Questions:  questions,
		Progress:   newProgressSnapshot(progress),
		State:      state,
		Resumed:    resumed,
	}, nil
}

// ===== SAVE PROGRESS =====

func (s *attemptService) SaveProgress(ctx context.Context, assessmentID uint, userID string, req *SaveProgressRequest) (*ProgressSnapshot, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	progress, err := s.findProgress(ctx, assessmentID, userID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, ErrProgressNotFound
	}

	progress.Answers = datatypes.JSONMap(req.Answers)
	progress.LastQuestion = req.LastQuestion
	progress.LastActivity = s.now()

	if err := s.repo.Progress().Update(ctx, nil, progress); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrProgressNotFound
		}
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}

	s.logger.Debug("Progress saved",
		"assessment_id", assessmentID,
		"user_id", userID,
		"last_question", req.LastQuestion)

	// re-read so the snapshot reflects the monotonic last_activity
	stored, err := s.repo.Progress().Get(ctx, nil, assessmentID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload progress: %w", err)
	}
	return newProgressSnapshot(stored), nil
}

// ===== SUBMIT =====

func (s *attemptService) Submit(ctx context.Context, assessmentID uint, requester models.Requester, req *SubmitAttemptRequest) (*SubmitAttemptResponse, error) {
	userID := requester.UserID
	s.logger.Info("Submitting assessment",
		"assessment_id", assessmentID,
		"user_id", userID)

	assessment, err := s.repo.Assessment().GetByIDWithQuestions(ctx, nil, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}
	if !assessment.IsActive {
		return nil, ErrAssessmentNotFound
	}

	progress, err := s.findProgress(ctx, assessmentID, userID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, ErrProgressNotFound
	}

	latest, err := s.latestResult(ctx, assessmentID, userID)
	if err != nil {
		return nil, err
	}
	if err := checkSubmittable(assessment, progress, latest); err != nil {
		return nil, err
	}

	answers := mergeAnswers(progress.Answers, req.Answers)

	outcome, err := s.scoring.Score(ctx, assessment, answers)
	if err != nil {
		s.logger.Error("Scoring failed",
			"assessment_id", assessmentID,
			"user_id", userID,
			"error", err)
		if errors.Is(err, ErrUpstreamFailure) {
			return nil, fmt.Errorf("%w: %v", ErrScoringFailed, err)
		}
		return nil, err
	}

	now := s.now()
	timeSpent := outcome.ElapsedSeconds
	if timeSpent == nil {
		elapsed := int(now.Sub(progress.StartedAt).Seconds())
		if elapsed < 0 {
			elapsed = 0
		}
		timeSpent = &elapsed
	}

	result := &models.Result{
		AssessmentID: assessmentID,
		UserID:       userID,
		Payload:      outcome.Payload.Raw(),
		Score:        outcome.Score,
		IsPassed:     outcome.IsPassed,
		TimeSpent:    timeSpent,
		CompletedAt:  now,
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		// lock the attempt so two concurrent submissions cannot both count
		locked, err := tx.Progress().GetForUpdate(ctx, nil, assessmentID, userID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrProgressNotFound
			}
			return fmt.Errorf("failed to lock progress: %w", err)
		}
		current, err := tx.Result().GetLatest(ctx, nil, assessmentID, userID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return fmt.Errorf("failed to get latest result: %w", err)
		}
		if err == nil && locked.SupersededBy(current) {
			return ErrAttemptAlreadySubmitted
		}

		if err := tx.Result().Create(ctx, nil, result); err != nil {
			return fmt.Errorf("failed to create result: %w", err)
		}

		locked.Answers = datatypes.JSONMap(answers)
		locked.LastActivity = now
		if err := tx.Progress().Update(ctx, nil, locked); err != nil {
			return fmt.Errorf("failed to update progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.AttemptsSubmitted.Inc()
	s.logger.Info("Assessment submitted",
		"assessment_id", assessmentID,
		"user_id", userID,
		"result_id", result.ID)

	cache.InvalidateResultCache(ctx, s.cache, assessmentID)
	publishEvent(ctx, s.publisher, s.logger, events.NewEvent(events.AssessmentCompleted, events.AssessmentCompletedEvent{
		AssessmentID: assessmentID,
		ResultID:     result.ID,
		UserID:       userID,
		DepartmentID: requester.DepartmentID,
		Score:        result.Score,
		IsPassed:     result.IsPassed,
		CompletedAt:  result.CompletedAt,
	}))

	resp := &SubmitAttemptResponse{
		ResultID:     result.ID,
		AssessmentID: assessmentID,
		CompletedAt:  result.CompletedAt,
		Withheld:     !ResultPayloadVisible(assessment),
	}
	if !resp.Withheld {
		payload := outcome.Payload
		passed := result.IsPassed
		resp.Score = result.Score
		resp.IsPassed = &passed
		resp.TimeSpent = result.TimeSpent
		resp.Payload = &payload
	}
	return resp, nil
}

// ===== HELPERS =====

// checkSubmittable rejects submissions of attempts that already produced a result
func checkSubmittable(assessment *models.Assessment, progress *models.Progress, latest *models.Result) error {
	if latest == nil {
		return nil
	}
	if !assessment.AllowRetake {
		return ErrRetakeNotAllowed
	}
	if progress.SupersededBy(latest) {
		return ErrAttemptAlreadySubmitted
	}
	return nil
}

func (s *attemptService) departmentAssignment(ctx context.Context, assessmentID uint, requester models.Requester) (*models.Assignment, error) {
	if requester.DepartmentID == nil {
		return nil, ErrAssignmentNotFound
	}
	assignment, err := s.repo.Assignment().Get(ctx, nil, assessmentID, *requester.DepartmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssignmentNotFound
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return assignment, nil
}

func (s *attemptService) latestResult(ctx context.Context, assessmentID uint, userID string) (*models.Result, error) {
	latest, err := s.repo.Result().GetLatest(ctx, nil, assessmentID, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest result: %w", err)
	}
	return latest, nil
}

func (s *attemptService) findProgress(ctx context.Context, assessmentID uint, userID string) (*models.Progress, error) {
	progress, err := s.repo.Progress().Get(ctx, nil, assessmentID, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return progress, nil
}

// mergeAnswers overlays final answers on the stored ones
func mergeAnswers(stored datatypes.JSONMap, final map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(stored)+len(final))
	for k, v := range stored {
		merged[k] = v
	}
	for k, v := range final {
		merged[k] = v
	}
	return merged
}

// publishEvent delivers an event after the write it describes has committed.
// Failures are logged and counted, never returned.
func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, event *events.Event) {
	if publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := publisher.Publish(pubCtx, event); err != nil {
		monitoring.EventPublishFailures.Inc()
		logger.Error("Failed to publish event",
			"event_type", event.Type,
			"event_id", event.ID,
			"error", err)
	}
}
