package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/SAP-F-2025/hr-assessment-service/internal/cache"
	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories"
)

type resultService struct {
	repo   repositories.Repository
	logger *slog.Logger
	cache  *cache.CacheManager
}

func NewResultService(repo repositories.Repository, logger *slog.Logger, cacheManager *cache.CacheManager) ResultService {
	return &resultService{
		repo:   repo,
		logger: logger,
		cache:  cacheManager,
	}
}

// ===== OWN RESULT =====

func (s *resultService) GetOwnResult(ctx context.Context, assessmentID uint, userID string) (*OwnResultResponse, error) {
	assessment, err := s.repo.Assessment().GetByID(ctx, nil, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	latest, err := s.repo.Result().GetLatest(ctx, nil, assessmentID, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}

	resp := &OwnResultResponse{
		ResultID:     latest.ID,
		AssessmentID: assessmentID,
		CompletedAt:  latest.CompletedAt,
		Withheld:     !ResultPayloadVisible(assessment),
	}
	if resp.Withheld {
		return resp, nil
	}

	payload := latest.NormalizedPayload()
	passed := latest.IsPassed
	resp.Score = latest.Score
	resp.IsPassed = &passed
	resp.TimeSpent = latest.TimeSpent
	resp.Payload = &payload
	return resp, nil
}

// ===== ASSESSMENT RESULTS =====

func (s *resultService) GetAssessmentResults(ctx context.Context, assessmentID uint, requester models.Requester, filters repositories.ResultFilters) (*AssessmentResultsResponse, error) {
	if !filters.Status.IsValid() {
		return nil, NewValidationError("status", "must be one of: passed, failed", filters.Status)
	}

	assessment, err := s.repo.Assessment().GetByID(ctx, nil, assessmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	scoped, err := s.scopeFilters(ctx, assessmentID, requester, filters)
	if err != nil {
		return nil, err
	}
	withhold := OwnRecordsOnly(requester) && !ResultPayloadVisible(assessment)

	fetch := func() (*AssessmentResultsResponse, error) {
		results, err := s.repo.Result().ListByAssessment(ctx, nil, assessmentID, scoped)
		if err != nil {
			return nil, err
		}
		rows := make([]*ResultRow, 0, len(results))
		for _, r := range results {
			rows = append(rows, newResultRow(r, withhold))
		}
		stats := computeStats(results)
		if withhold {
			stats = ResultStats{TotalParticipants: stats.TotalParticipants}
		}
		return &AssessmentResultsResponse{
			AssessmentID: assessmentID,
			Results:      rows,
			Stats:        stats,
		}, nil
	}

	var resp *AssessmentResultsResponse
	if key, ok := statsCacheKey(assessmentID, scoped); ok {
		var cached AssessmentResultsResponse
		err = s.cache.Stats.CacheOrExecute(ctx, key, &cached, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
			return fetch()
		})
		resp = &cached
	} else {
		resp, err = fetch()
	}

	if err != nil {
		// dashboards get an empty listing instead of an error on datastore trouble
		s.logger.Error("Failed to list assessment results",
			"assessment_id", assessmentID,
			"requester_id", requester.UserID,
			"error", err)
		return &AssessmentResultsResponse{AssessmentID: assessmentID, Results: []*ResultRow{}}, nil
	}
	return resp, nil
}

// scopeFilters applies the visibility gate. Managers are pinned to their own
// department and everyone else to their own record.
func (s *resultService) scopeFilters(ctx context.Context, assessmentID uint, requester models.Requester, filters repositories.ResultFilters) (repositories.ResultFilters, error) {
	if requester.IsAdmin() {
		return filters, nil
	}
	if OwnRecordsOnly(requester) {
		if filters.UserID != nil && *filters.UserID != requester.UserID {
			return filters, NewPermissionError(requester.UserID, assessmentID, "results", "view", "only the requester's own record is visible")
		}
		userID := requester.UserID
		filters.UserID = &userID
		return filters, nil
	}

	departmentID := *requester.DepartmentID
	if filters.DepartmentID != nil && *filters.DepartmentID != departmentID {
		return filters, NewPermissionError(requester.UserID, assessmentID, "results", "view", "department belongs to another manager")
	}

	assignment, err := s.repo.Assignment().Get(ctx, nil, assessmentID, departmentID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return filters, fmt.Errorf("failed to get assignment: %w", err)
	}
	if err := CanViewDepartmentResults(requester, assignment); err != nil {
		return filters, err
	}

	filters.DepartmentID = &departmentID
	return filters, nil
}

// statsCacheKey returns a key only for listings without ad hoc predicates
func statsCacheKey(assessmentID uint, filters repositories.ResultFilters) (string, bool) {
	if filters.UserID != nil || filters.CompletedFrom != nil || filters.CompletedTo != nil || filters.Status != repositories.ResultStatusAny {
		return "", false
	}
	if filters.DepartmentID != nil {
		return fmt.Sprintf("assessment:%d:dept:%d", assessmentID, *filters.DepartmentID), true
	}
	return cache.StatsKey(assessmentID), true
}

// computeStats averages over every result. A missing score or time counts as
// zero while still counting toward the participant total.
func computeStats(results []*models.Result) ResultStats {
	n := len(results)
	if n == 0 {
		return ResultStats{}
	}

	var scoreSum, timeSum float64
	passed := 0
	for _, r := range results {
		if r.Score != nil {
			scoreSum += *r.Score
		}
		if r.TimeSpent != nil {
			timeSum += float64(*r.TimeSpent)
		}
		if r.IsPassed {
			passed++
		}
	}

	return ResultStats{
		TotalParticipants: n,
		AverageScore:      scoreSum / float64(n),
		AverageTime:       timeSum / float64(n),
		PassRate:          float64(passed) / float64(n) * 100,
	}
}

// ===== MY RESULTS =====

// GetMyResults returns the latest result per assessment for the requester's own
// history. Managers additionally get the latest result per assessment and team
// member for assessments whose assignment allows manager view.
func (s *resultService) GetMyResults(ctx context.Context, requester models.Requester) ([]*ResultRow, error) {
	own, err := s.repo.Result().ListByUser(ctx, nil, requester.UserID)
	if err != nil {
		s.logger.Error("Failed to list own results", "user_id", requester.UserID, "error", err)
		return []*ResultRow{}, nil
	}

	candidates := own
	if requester.IsManager() && requester.DepartmentID != nil {
		team, err := s.departmentResults(ctx, *requester.DepartmentID)
		if err != nil {
			s.logger.Error("Failed to list department results",
				"user_id", requester.UserID,
				"department_id", *requester.DepartmentID,
				"error", err)
		} else {
			candidates = append(candidates, team...)
		}
	}

	// team rows are checked against the manager's assignment of each assessment
	assignments := map[uint]*models.Assignment{}
	assignmentFor := func(assessmentID uint) *models.Assignment {
		if a, ok := assignments[assessmentID]; ok {
			return a
		}
		a, err := s.repo.Assignment().Get(ctx, nil, assessmentID, *requester.DepartmentID)
		if err != nil {
			if !repositories.IsNotFoundError(err) {
				s.logger.Error("Failed to get assignment",
					"assessment_id", assessmentID,
					"department_id", *requester.DepartmentID,
					"error", err)
			}
			a = nil
		}
		assignments[assessmentID] = a
		return a
	}

	rows := latestPerUserAndAssessment(candidates)
	out := make([]*ResultRow, 0, len(rows))
	for _, r := range rows {
		if r.UserID != requester.UserID {
			var ownerDepartmentID *uint
			if r.User != nil {
				ownerDepartmentID = r.User.DepartmentID
			}
			if requester.DepartmentID == nil || !CanViewResult(requester, r.UserID, ownerDepartmentID, assignmentFor(r.AssessmentID)) {
				continue
			}
		}
		withhold := r.UserID == requester.UserID && !requester.IsAdmin() &&
			r.Assessment != nil && !ResultPayloadVisible(r.Assessment)
		out = append(out, newResultRow(r, withhold))
	}
	return out, nil
}

func (s *resultService) departmentResults(ctx context.Context, departmentID uint) ([]*models.Result, error) {
	ids, err := s.repo.Assignment().ListManagerVisibleAssessmentIDs(ctx, nil, departmentID)
	if err != nil {
		return nil, err
	}
	return s.repo.Result().ListByDepartment(ctx, nil, departmentID, ids)
}

// latestPerUserAndAssessment keeps the most recent completion of every
// (assessment, user) pair, newest first. For a single user's history this is
// one row per assessment.
func latestPerUserAndAssessment(results []*models.Result) []*models.Result {
	type key struct {
		assessmentID uint
		userID       string
	}
	latest := make(map[key]*models.Result, len(results))
	for _, r := range results {
		k := key{r.AssessmentID, r.UserID}
		if cur, ok := latest[k]; !ok || r.CompletedAt.After(cur.CompletedAt) ||
			(r.CompletedAt.Equal(cur.CompletedAt) && r.ID > cur.ID) {
			latest[k] = r
		}
	}

	out := make([]*models.Result, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].CompletedAt.After(out[j].CompletedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func newResultRow(r *models.Result, withhold bool) *ResultRow {
	row := &ResultRow{
		ResultID:     r.ID,
		AssessmentID: r.AssessmentID,
		UserID:       r.UserID,
		IsPassed:     r.IsPassed,
		TimeSpent:    r.TimeSpent,
		CompletedAt:  r.CompletedAt,
		Withheld:     withhold,
	}
	if r.Assessment != nil {
		row.AssessmentTitle = r.Assessment.Title
	}
	if r.User != nil {
		row.FullName = r.User.FullName
		row.Email = r.User.Email
		row.DepartmentID = r.User.DepartmentID
		if r.User.Department != nil {
			row.DepartmentName = r.User.Department.Name
		}
	}
	if withhold {
		row.IsPassed = false
		return row
	}
	payload := r.NormalizedPayload()
	row.Score = r.Score
	row.Payload = &payload
	return row
}

// ===== DEPARTMENT COMPARISON =====

func (s *resultService) GetDepartmentComparison(ctx context.Context, assessmentID uint, requester models.Requester) ([]*DepartmentComparison, error) {
	if !requester.IsAdmin() {
		return nil, NewPermissionError(requester.UserID, assessmentID, "results", "compare_departments", "admin role required")
	}
	if _, err := s.repo.Assessment().GetByID(ctx, nil, assessmentID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAssessmentNotFound
		}
		return nil, fmt.Errorf("failed to get assessment: %w", err)
	}

	assignments, err := s.repo.Assignment().ListByAssessment(ctx, nil, assessmentID)
	if err != nil {
		s.logger.Error("Failed to list assignments for comparison", "assessment_id", assessmentID, "error", err)
		return []*DepartmentComparison{}, nil
	}

	members, err := s.repo.User().CountByDepartment(ctx, nil)
	if err != nil {
		s.logger.Error("Failed to count department members", "error", err)
		members = map[uint]int64{}
	}

	results, err := s.repo.Result().ListByAssessment(ctx, nil, assessmentID, repositories.ResultFilters{})
	if err != nil {
		s.logger.Error("Failed to list results for comparison", "assessment_id", assessmentID, "error", err)
		results = nil
	}

	byDepartment := map[uint][]*models.Result{}
	for _, r := range results {
		if r.User != nil && r.User.DepartmentID != nil {
			byDepartment[*r.User.DepartmentID] = append(byDepartment[*r.User.DepartmentID], r)
		}
	}

	out := make([]*DepartmentComparison, 0, len(assignments))
	for _, a := range assignments {
		deptResults := byDepartment[a.DepartmentID]
		participants := map[string]bool{}
		for _, r := range deptResults {
			participants[r.UserID] = true
		}

		cmp := &DepartmentComparison{
			DepartmentID: a.DepartmentID,
			MemberCount:  members[a.DepartmentID],
			Participants: len(participants),
			Stats:        computeStats(deptResults),
		}
		if a.Department != nil {
			cmp.DepartmentCode = a.Department.Code
			cmp.DepartmentName = a.Department.Name
		}
		if cmp.MemberCount > 0 {
			cmp.ParticipationRate = float64(cmp.Participants) / float64(cmp.MemberCount) * 100
		}
		out = append(out, cmp)
	}
	return out, nil
}

// ===== ADMINISTRATION =====

func (s *resultService) DeleteResult(ctx context.Context, resultID uint, requester models.Requester) error {
	if !requester.IsAdmin() {
		return NewPermissionError(requester.UserID, resultID, "result", "delete", "admin role required")
	}

	result, err := s.repo.Result().GetByID(ctx, nil, resultID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrResultNotFound
		}
		return fmt.Errorf("failed to get result: %w", err)
	}

	if err := s.repo.Result().Delete(ctx, nil, resultID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrResultNotFound
		}
		return fmt.Errorf("failed to delete result: %w", err)
	}

	s.logger.Info("Result deleted",
		"result_id", resultID,
		"assessment_id", result.AssessmentID,
		"user_id", result.UserID,
		"deleted_by", requester.UserID)

	cache.InvalidateResultCache(ctx, s.cache, result.AssessmentID)
	return nil
}
