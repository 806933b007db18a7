package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/hr-assessment-service/internal/events"
	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"github.com/SAP-F-2025/hr-assessment-service/internal/validator"
)

func newTestAssignmentService(f *fixture, publisher events.EventPublisher, now time.Time) *assignmentService {
	svc := NewAssignmentService(f.repo, testLogger, validator.New(), publisher).(*assignmentService)
	svc.now = func() time.Time { return now }
	return svc
}

func eligibleByTitle(items []*EligibleAssessment) map[string]*EligibleAssessment {
	out := make(map[string]*EligibleAssessment, len(items))
	for _, item := range items {
		out[item.Assessment.Title] = item
	}
	return out
}

func TestAssignmentService_ListEligibleFlags(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newTestAssignmentService(f, nil, day)

	f.addResult(t, f.personality.ID, f.alice.UserID, floatPtr(80), true, intPtr(60), day.Add(-time.Hour))
	mustCreate(t, f.db, &models.Progress{
		AssessmentID: f.engagement.ID,
		UserID:       f.alice.UserID,
		Answers:      datatypes.JSONMap{"1": "a"},
		LastQuestion: 4,
		StartedAt:    day.Add(-2 * time.Hour),
		LastActivity: day.Add(-time.Hour),
	})

	items, err := svc.ListEligible(ctx, f.alice.UserID)
	if err != nil {
		t.Fatalf("ListEligible() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("ListEligible() = %d items, want 2", len(items))
	}

	byTitle := eligibleByTitle(items)
	personality := byTitle["Personality profile"]
	if personality == nil || !personality.HasCompleted || personality.CanRetake || personality.InProgress {
		t.Errorf("personality = %+v, want completed without retake", personality)
	}
	if personality != nil && (personality.CompletedAt == nil || !personality.CompletedAt.Equal(day.Add(-time.Hour))) {
		t.Errorf("personality completed at = %v", personality.CompletedAt)
	}

	engagement := byTitle["Engagement survey"]
	if engagement == nil || engagement.HasCompleted || !engagement.InProgress || engagement.LastQuestion != 4 {
		t.Errorf("engagement = %+v, want in progress at question 4", engagement)
	}
}

func TestAssignmentService_ListEligibleRetakeUnderway(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newTestAssignmentService(f, nil, day)

	f.addResult(t, f.engagement.ID, f.alice.UserID, floatPtr(50), true, intPtr(60), day.Add(-3*time.Hour))
	mustCreate(t, f.db, &models.Progress{
		AssessmentID: f.engagement.ID,
		UserID:       f.alice.UserID,
		Answers:      datatypes.JSONMap{},
		StartedAt:    day.Add(-time.Hour),
		LastActivity: day.Add(-time.Hour),
	})

	items, err := svc.ListEligible(ctx, f.alice.UserID)
	if err != nil {
		t.Fatalf("ListEligible() error = %v", err)
	}
	engagement := eligibleByTitle(items)["Engagement survey"]
	if engagement == nil || !engagement.HasCompleted || !engagement.CanRetake {
		t.Fatalf("engagement = %+v, want completed and retakeable", engagement)
	}
	if engagement.InProgress {
		t.Errorf("InProgress = true, want false once a result exists")
	}
	if !engagement.RetakeInProgress {
		t.Errorf("RetakeInProgress = false, want true for progress started after the result")
	}
}

func TestAssignmentService_ListEligibleWindows(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newTestAssignmentService(f, nil, day)

	at := func(d time.Duration) *time.Time {
		v := day.Add(d)
		return &v
	}
	windows := []struct {
		title      string
		start, end *time.Time
		want       bool
	}{
		{title: "opens later", start: at(time.Hour), want: false},
		{title: "already closed", end: at(-time.Hour), want: false},
		{title: "opens now", start: at(0), want: true},
		{title: "closes now", end: at(0), want: true},
		{title: "inverted", start: at(time.Hour), end: at(-time.Hour), want: false},
		{title: "open range", start: at(-time.Hour), end: at(time.Hour), want: true},
	}
	for _, w := range windows {
		a := &models.Assessment{Title: w.title, TypeTag: "survey", IsActive: true}
		mustCreate(t, f.db, a)
		f.assign(t, a.ID, f.support, false, w.start, w.end)
	}
	// assigned but inactive
	f.assign(t, f.archived.ID, f.support, false, nil, nil)

	items, err := svc.ListEligible(ctx, f.carol.UserID)
	if err != nil {
		t.Fatalf("ListEligible() error = %v", err)
	}
	byTitle := eligibleByTitle(items)
	for _, w := range windows {
		if _, ok := byTitle[w.title]; ok != w.want {
			t.Errorf("%s eligible = %v, want %v", w.title, ok, w.want)
		}
	}
	if _, ok := byTitle["Archived"]; ok {
		t.Error("inactive assessment listed as eligible")
	}
	if _, ok := byTitle["Engagement survey"]; ok {
		t.Error("assessment assigned to another department listed as eligible")
	}
}

func TestAssignmentService_ListEligibleUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := newTestAssignmentService(f, nil, day)

	if _, err := svc.ListEligible(ctx, "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("ListEligible() unknown user error = %v, want ErrUserNotFound", err)
	}

	items, err := svc.ListEligible(ctx, f.dave.UserID)
	if err != nil {
		t.Fatalf("ListEligible() error = %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("ListEligible() without department = %v, want empty list", items)
	}
}

func TestAssignmentService_Assign(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	publisher := events.NewMockEventPublisher(testLogger)
	svc := newTestAssignmentService(f, publisher, day)

	req := &AssignRequest{IsRequired: true, AllowManagerView: true}

	if _, err := svc.Assign(ctx, f.engagement.ID, f.support, req, f.bob); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Assign() as manager error = %v, want forbidden", err)
	}
	if _, err := svc.Assign(ctx, 999, f.support, req, f.dave); !errors.Is(err, ErrAssessmentNotFound) {
		t.Fatalf("Assign() unknown assessment error = %v", err)
	}
	if _, err := svc.Assign(ctx, f.engagement.ID, 999, req, f.dave); !errors.Is(err, ErrDepartmentNotFound) {
		t.Fatalf("Assign() unknown department error = %v", err)
	}

	created, err := svc.Assign(ctx, f.engagement.ID, f.support, req, f.dave)
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if !created.IsRequired || !created.AllowManagerView {
		t.Errorf("Assign() = %+v", created)
	}

	// assigning again replaces the settings instead of adding a row
	end := day.Add(24 * time.Hour)
	if _, err := svc.Assign(ctx, f.engagement.ID, f.support, &AssignRequest{EndDate: &end}, f.dave); err != nil {
		t.Fatalf("Assign() update error = %v", err)
	}
	assignments, err := svc.ListAssignments(ctx, f.engagement.ID, f.dave)
	if err != nil {
		t.Fatalf("ListAssignments() error = %v", err)
	}
	if len(assignments) != 2 {
		t.Fatalf("ListAssignments() = %d, want 2", len(assignments))
	}
	for _, a := range assignments {
		if a.DepartmentID == f.support && (a.AllowManagerView || a.EndDate == nil) {
			t.Errorf("support assignment = %+v, want replaced settings", a)
		}
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 2 || published[0].Type != events.AssessmentAssigned {
		t.Errorf("published = %d events, want 2 assignment events", len(published))
	}

	items, err := svc.ListEligible(ctx, f.carol.UserID)
	if err != nil {
		t.Fatalf("ListEligible() error = %v", err)
	}
	if _, ok := eligibleByTitle(items)["Engagement survey"]; !ok {
		t.Error("newly assigned assessment missing from eligibility")
	}
}

func TestAssignmentService_Unassign(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	publisher := events.NewMockEventPublisher(testLogger)
	svc := newTestAssignmentService(f, publisher, day)

	if err := svc.Unassign(ctx, f.personality.ID, f.support, f.carol); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Unassign() as employee error = %v, want forbidden", err)
	}
	if err := svc.Unassign(ctx, f.engagement.ID, f.support, f.dave); !errors.Is(err, ErrAssignmentNotFound) {
		t.Fatalf("Unassign() missing error = %v, want ErrAssignmentNotFound", err)
	}

	f.addResult(t, f.personality.ID, f.carol.UserID, floatPtr(70), true, intPtr(30), day)
	if err := svc.Unassign(ctx, f.personality.ID, f.support, f.dave); err != nil {
		t.Fatalf("Unassign() error = %v", err)
	}

	items, err := svc.ListEligible(ctx, f.carol.UserID)
	if err != nil {
		t.Fatalf("ListEligible() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("ListEligible() after unassign = %d items, want 0", len(items))
	}

	var kept int64
	f.db.Model(&models.Result{}).Where("user_id = ?", f.carol.UserID).Count(&kept)
	if kept != 1 {
		t.Errorf("results after unassign = %d, want 1", kept)
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.AssessmentUnassigned {
		t.Errorf("published = %+v, want one unassignment event", published)
	}
}
