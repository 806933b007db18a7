package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/hr-assessment-service/internal/cache"
	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories"
)

var day = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestResultService(f *fixture) ResultService {
	return NewResultService(f.repo, testLogger, cache.NewCacheManager(nil))
}

func approx(a, b float64) bool { return math.Abs(a-b) < 0.01 }

func TestResultService_AssessmentStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newTestResultService(f)
	a1 := f.personality.ID

	f.addResult(t, a1, f.alice.UserID, floatPtr(80), true, intPtr(100), day)
	f.addResult(t, a1, f.erin.UserID, nil, false, nil, day.Add(time.Hour))
	f.addResult(t, a1, f.carol.UserID, floatPtr(60), true, intPtr(50), day.Add(2*time.Hour))

	resp, err := svc.GetAssessmentResults(ctx, a1, f.dave, repositories.ResultFilters{})
	if err != nil {
		t.Fatalf("GetAssessmentResults() error = %v", err)
	}

	stats := resp.Stats
	if stats.TotalParticipants != 3 {
		t.Errorf("TotalParticipants = %d, want 3", stats.TotalParticipants)
	}
	if !approx(stats.AverageScore, 140.0/3) {
		t.Errorf("AverageScore = %v, want %v", stats.AverageScore, 140.0/3)
	}
	if !approx(stats.AverageTime, 50) {
		t.Errorf("AverageTime = %v, want 50", stats.AverageTime)
	}
	if !approx(stats.PassRate, 200.0/3) {
		t.Errorf("PassRate = %v, want %v", stats.PassRate, 200.0/3)
	}

	if len(resp.Results) != 3 || resp.Results[0].UserID != f.carol.UserID {
		t.Fatalf("Results = %d rows, want 3 newest first", len(resp.Results))
	}
	if resp.Results[0].DepartmentName != "Support" || resp.Results[0].Payload == nil {
		t.Errorf("row = %+v, want department and payload", resp.Results[0])
	}
}

func TestResultService_EmptyAssessment(t *testing.T) {
	f := newFixture(t)
	svc := newTestResultService(f)

	resp, err := svc.GetAssessmentResults(context.Background(), f.engagement.ID, f.dave, repositories.ResultFilters{})
	if err != nil {
		t.Fatalf("GetAssessmentResults() error = %v", err)
	}
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Errorf("Results = %v, want empty list", resp.Results)
	}
	if resp.Stats != (ResultStats{}) {
		t.Errorf("Stats = %+v, want zeros", resp.Stats)
	}
}

func TestResultService_AssessmentResultsVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newTestResultService(f)

	f.addResult(t, f.personality.ID, f.alice.UserID, floatPtr(80), true, intPtr(100), day)
	f.addResult(t, f.personality.ID, f.carol.UserID, floatPtr(60), true, intPtr(50), day)
	f.addResult(t, f.engagement.ID, f.alice.UserID, floatPtr(10), false, intPtr(20), day)

	tests := []struct {
		name         string
		assessmentID uint
		requester    models.Requester
		filters      repositories.ResultFilters
		wantKind     string
		wantRows     int
	}{
		{name: "admin sees every department", assessmentID: f.personality.ID, requester: f.dave, wantRows: 2},
		{name: "admin filters by department", assessmentID: f.personality.ID, requester: f.dave, filters: repositories.ResultFilters{DepartmentID: uintPtr(f.support)}, wantRows: 1},
		{name: "manager limited to own department", assessmentID: f.personality.ID, requester: f.bob, wantRows: 1},
		{name: "manager asking for another department", assessmentID: f.personality.ID, requester: f.bob, filters: repositories.ResultFilters{DepartmentID: uintPtr(f.support)}, wantKind: KindForbidden},
		{name: "manager view disabled", assessmentID: f.engagement.ID, requester: f.bob, wantKind: KindForbidden},
		{name: "employee limited to own record", assessmentID: f.personality.ID, requester: f.alice, wantRows: 1},
		{name: "employee asking for another user", assessmentID: f.personality.ID, requester: f.alice, filters: repositories.ResultFilters{UserID: strPtr(f.carol.UserID)}, wantKind: KindForbidden},
		{name: "employee without a result", assessmentID: f.personality.ID, requester: f.erin, wantRows: 0},
		{name: "unknown assessment", assessmentID: 999, requester: f.dave, wantKind: KindNotFound},
		{name: "bad status", assessmentID: f.personality.ID, requester: f.dave, filters: repositories.ResultFilters{Status: "maybe"}, wantKind: KindValidation},
		{name: "failed status", assessmentID: f.engagement.ID, requester: f.dave, filters: repositories.ResultFilters{Status: repositories.ResultStatusFailed}, wantRows: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.GetAssessmentResults(ctx, tt.assessmentID, tt.requester, tt.filters)
			if tt.wantKind != "" {
				if KindOf(err) != tt.wantKind {
					t.Fatalf("error = %v, want kind %s", err, tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetAssessmentResults() error = %v", err)
			}
			if len(resp.Results) != tt.wantRows {
				t.Errorf("rows = %d, want %d", len(resp.Results), tt.wantRows)
			}
		})
	}
}

func TestResultService_OwnRecordWithheld(t *testing.T) {
	f := newFixture(t)
	svc := newTestResultService(f)

	f.addResult(t, f.engagement.ID, f.alice.UserID, floatPtr(10), true, intPtr(20), day)
	f.addResult(t, f.engagement.ID, f.erin.UserID, floatPtr(90), true, intPtr(30), day)

	resp, err := svc.GetAssessmentResults(context.Background(), f.engagement.ID, f.alice, repositories.ResultFilters{})
	if err != nil {
		t.Fatalf("GetAssessmentResults() error = %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].UserID != f.alice.UserID {
		t.Fatalf("Results = %+v, want alice's own row", resp.Results)
	}
	row := resp.Results[0]
	if !row.Withheld || row.Score != nil || row.Payload != nil || row.IsPassed {
		t.Errorf("row = %+v, want score and payload withheld", row)
	}
	if resp.Stats != (ResultStats{TotalParticipants: 1}) {
		t.Errorf("Stats = %+v, want only the participant count", resp.Stats)
	}
}

func TestResultService_CachedListingInvalidatedOnDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	svc := NewResultService(f.repo, testLogger, cache.NewCacheManager(client))

	first := f.addResult(t, f.personality.ID, f.alice.UserID, floatPtr(80), true, intPtr(100), day)

	resp, err := svc.GetAssessmentResults(ctx, f.personality.ID, f.dave, repositories.ResultFilters{})
	if err != nil || len(resp.Results) != 1 {
		t.Fatalf("GetAssessmentResults() = %v, %v, want one row", resp, err)
	}

	// written behind the service's back, so only a cache miss would see it
	f.addResult(t, f.personality.ID, f.erin.UserID, floatPtr(40), false, intPtr(30), day.Add(time.Hour))

	resp, _ = svc.GetAssessmentResults(ctx, f.personality.ID, f.dave, repositories.ResultFilters{})
	if len(resp.Results) != 1 {
		t.Fatalf("cached rows = %d, want 1", len(resp.Results))
	}

	// ad hoc filters bypass the cache
	resp, _ = svc.GetAssessmentResults(ctx, f.personality.ID, f.dave, repositories.ResultFilters{Status: repositories.ResultStatusFailed})
	if len(resp.Results) != 1 || resp.Results[0].UserID != f.erin.UserID {
		t.Fatalf("filtered rows = %+v, want erin only", resp.Results)
	}

	if err := svc.DeleteResult(ctx, first.ID, f.dave); err != nil {
		t.Fatalf("DeleteResult() error = %v", err)
	}
	resp, _ = svc.GetAssessmentResults(ctx, f.personality.ID, f.dave, repositories.ResultFilters{})
	if len(resp.Results) != 1 || resp.Results[0].UserID != f.erin.UserID {
		t.Fatalf("rows after delete = %+v, want erin only", resp.Results)
	}
}

func TestResultService_GetOwnResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newTestResultService(f)

	if _, err := svc.GetOwnResult(ctx, f.personality.ID, f.alice.UserID); !errors.Is(err, ErrResultNotFound) {
		t.Fatalf("GetOwnResult() error = %v, want ErrResultNotFound", err)
	}
	if _, err := svc.GetOwnResult(ctx, 999, f.alice.UserID); !errors.Is(err, ErrAssessmentNotFound) {
		t.Fatalf("GetOwnResult() error = %v, want ErrAssessmentNotFound", err)
	}

	f.addResult(t, f.personality.ID, f.alice.UserID, floatPtr(40), false, intPtr(60), day)
	latest := f.addResult(t, f.personality.ID, f.alice.UserID, floatPtr(90), true, intPtr(30), day.Add(time.Hour))

	own, err := svc.GetOwnResult(ctx, f.personality.ID, f.alice.UserID)
	if err != nil {
		t.Fatalf("GetOwnResult() error = %v", err)
	}
	if own.ResultID != latest.ID || *own.Score != 90 || !*own.IsPassed {
		t.Errorf("GetOwnResult() = %+v, want latest result", own)
	}

	f.addResult(t, f.engagement.ID, f.alice.UserID, floatPtr(70), true, intPtr(30), day)
	hidden, err := svc.GetOwnResult(ctx, f.engagement.ID, f.alice.UserID)
	if err != nil {
		t.Fatalf("GetOwnResult() error = %v", err)
	}
	if !hidden.Withheld || hidden.Score != nil || hidden.IsPassed != nil || hidden.Payload != nil {
		t.Errorf("GetOwnResult() = %+v, want withheld", hidden)
	}
}

func TestResultService_GetMyResults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newTestResultService(f)

	f.addResult(t, f.engagement.ID, f.alice.UserID, floatPtr(10), false, intPtr(10), day)
	retake := f.addResult(t, f.engagement.ID, f.alice.UserID, floatPtr(20), false, intPtr(10), day.Add(time.Hour))
	f.addResult(t, f.personality.ID, f.alice.UserID, floatPtr(80), true, intPtr(10), day.Add(2*time.Hour))
	f.addResult(t, f.personality.ID, f.erin.UserID, floatPtr(55), true, intPtr(10), day)
	f.addResult(t, f.personality.ID, f.carol.UserID, floatPtr(65), true, intPtr(10), day)
	f.addResult(t, f.personality.ID, f.bob.UserID, floatPtr(75), true, intPtr(10), day.Add(3*time.Hour))

	t.Run("employee sees latest per assessment", func(t *testing.T) {
		rows, err := svc.GetMyResults(ctx, f.alice)
		if err != nil {
			t.Fatalf("GetMyResults() error = %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("rows = %d, want 2", len(rows))
		}
		if rows[0].AssessmentID != f.personality.ID || rows[0].Withheld {
			t.Errorf("rows[0] = %+v, want visible personality result", rows[0])
		}
		if rows[1].ResultID != retake.ID || !rows[1].Withheld || rows[1].Score != nil {
			t.Errorf("rows[1] = %+v, want withheld retake", rows[1])
		}
		if rows[1].AssessmentTitle != "Engagement survey" {
			t.Errorf("AssessmentTitle = %q", rows[1].AssessmentTitle)
		}
	})

	t.Run("manager sees own and visible team results", func(t *testing.T) {
		rows, err := svc.GetMyResults(ctx, f.bob)
		if err != nil {
			t.Fatalf("GetMyResults() error = %v", err)
		}
		users := map[string]int{}
		for _, r := range rows {
			users[r.UserID]++
			if r.AssessmentID != f.personality.ID {
				t.Errorf("row for assessment %d, want only manager-visible assessments", r.AssessmentID)
			}
		}
		if len(rows) != 3 || users[f.bob.UserID] != 1 || users[f.alice.UserID] != 1 || users[f.erin.UserID] != 1 {
			t.Errorf("rows by user = %v, want bob, alice and erin once each", users)
		}
		if rows[0].UserID != f.bob.UserID {
			t.Errorf("rows[0] = %s, want newest first", rows[0].UserID)
		}
	})
}

func TestResultService_DepartmentComparison(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newTestResultService(f)
	a1 := f.personality.ID

	f.addResult(t, a1, f.alice.UserID, floatPtr(80), true, intPtr(100), day)
	f.addResult(t, a1, f.alice.UserID, floatPtr(60), false, intPtr(100), day.Add(time.Hour))
	f.addResult(t, a1, f.carol.UserID, floatPtr(50), true, intPtr(40), day)

	if _, err := svc.GetDepartmentComparison(ctx, a1, f.bob); KindOf(err) != KindForbidden {
		t.Fatalf("GetDepartmentComparison() as manager error = %v, want forbidden", err)
	}

	rows, err := svc.GetDepartmentComparison(ctx, a1, f.dave)
	if err != nil {
		t.Fatalf("GetDepartmentComparison() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	byDept := map[uint]*DepartmentComparison{}
	for _, r := range rows {
		byDept[r.DepartmentID] = r
	}
	sales, support := byDept[f.sales], byDept[f.support]
	if sales == nil || support == nil {
		t.Fatalf("rows = %+v, want sales and support", rows)
	}
	if sales.MemberCount != 3 || sales.Participants != 1 || !approx(sales.ParticipationRate, 100.0/3) {
		t.Errorf("sales = %+v", sales)
	}
	if sales.Stats.TotalParticipants != 2 || !approx(sales.Stats.AverageScore, 70) || !approx(sales.Stats.PassRate, 50) {
		t.Errorf("sales stats = %+v", sales.Stats)
	}
	if support.MemberCount != 1 || !approx(support.ParticipationRate, 100) || support.DepartmentCode != "support" {
		t.Errorf("support = %+v", support)
	}
}

func TestResultService_DeleteResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newTestResultService(f)
	r := f.addResult(t, f.personality.ID, f.alice.UserID, floatPtr(80), true, intPtr(10), day)

	if err := svc.DeleteResult(ctx, r.ID, f.bob); !errors.Is(err, ErrForbidden) {
		t.Fatalf("DeleteResult() as manager error = %v, want forbidden", err)
	}
	if err := svc.DeleteResult(ctx, 999, f.dave); !errors.Is(err, ErrResultNotFound) {
		t.Fatalf("DeleteResult() missing error = %v, want ErrResultNotFound", err)
	}
	if err := svc.DeleteResult(ctx, r.ID, f.dave); err != nil {
		t.Fatalf("DeleteResult() error = %v", err)
	}
	if _, err := svc.GetOwnResult(ctx, f.personality.ID, f.alice.UserID); !errors.Is(err, ErrResultNotFound) {
		t.Errorf("GetOwnResult() after delete error = %v, want ErrResultNotFound", err)
	}
}

func TestResultService_ListingsDegradeOnDatastoreFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newTestResultService(f)

	sqlDB, err := f.db.DB()
	if err != nil {
		t.Fatalf("DB() error = %v", err)
	}
	sqlDB.Close()

	rows, err := svc.GetMyResults(ctx, f.alice)
	if err != nil {
		t.Fatalf("GetMyResults() error = %v, want degraded empty list", err)
	}
	if rows == nil || len(rows) != 0 {
		t.Errorf("GetMyResults() = %v, want empty list", rows)
	}
}

func TestLatestPerUserAndAssessment(t *testing.T) {
	results := []*models.Result{
		{ID: 1, AssessmentID: 1, UserID: "u1", CompletedAt: day},
		{ID: 2, AssessmentID: 1, UserID: "u1", CompletedAt: day.Add(time.Hour)},
		{ID: 3, AssessmentID: 1, UserID: "u2", CompletedAt: day},
		{ID: 4, AssessmentID: 2, UserID: "u1", CompletedAt: day},
		// same instant: higher id wins
		{ID: 5, AssessmentID: 2, UserID: "u1", CompletedAt: day},
	}

	got := latestPerUserAndAssessment(results)
	var ids []uint
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	want := []uint{2, 5, 3}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}
