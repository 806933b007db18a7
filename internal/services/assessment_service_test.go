package services

import (
	"context"
	"errors"
	"testing"

	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"github.com/SAP-F-2025/hr-assessment-service/internal/validator"
)

func choices(values ...string) []models.QuestionOption {
	out := make([]models.QuestionOption, 0, len(values))
	for _, v := range values {
		out = append(out, models.QuestionOption{Value: v, Label: v})
	}
	return out
}

func questionOrders(t *testing.T, f *fixture, assessmentID uint) map[uint]int {
	t.Helper()
	var questions []models.Question
	if err := f.db.Where("assessment_id = ?", assessmentID).Find(&questions).Error; err != nil {
		t.Fatalf("failed to load questions: %v", err)
	}
	out := make(map[uint]int, len(questions))
	for _, q := range questions {
		out[q.ID] = q.Order
	}
	return out
}

func TestAssessmentService_Create(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewAssessmentService(f.repo, testLogger, validator.New())

	req := &CreateAssessmentRequest{
		Title:        "DISC",
		TypeTag:      "disc",
		IsActive:     true,
		PassingScore: 60,
		Questions: []QuestionRequest{
			{Text: "Under pressure I", Type: models.MultipleChoice, Required: true, Options: choices("d", "i", "s")},
			{Text: "Anything else?", Type: models.FreeText},
		},
	}

	if _, err := svc.Create(ctx, req, f.bob); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Create() as manager error = %v, want forbidden", err)
	}

	created, err := svc.Create(ctx, req, f.dave)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	loaded, err := svc.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if len(loaded.Questions) != 2 || loaded.Questions[0].Order != 1 || loaded.Questions[1].Order != 2 {
		t.Errorf("questions = %+v, want ordered 1..2", loaded.Questions)
	}
	if loaded.CreatedBy != f.dave.UserID {
		t.Errorf("CreatedBy = %q", loaded.CreatedBy)
	}
}

func TestAssessmentService_QuestionValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewAssessmentService(f.repo, testLogger, validator.New())

	tests := []struct {
		name string
		req  QuestionRequest
	}{
		{name: "blank text", req: QuestionRequest{Text: "  ", Type: models.FreeText}},
		{name: "unknown type", req: QuestionRequest{Text: "Q", Type: "essay"}},
		{name: "free text with options", req: QuestionRequest{Text: "Q", Type: models.FreeText, Options: choices("a", "b")}},
		{name: "true false with three options", req: QuestionRequest{Text: "Q", Type: models.TrueFalse, Options: choices("t", "f", "x")}},
		{name: "single choice", req: QuestionRequest{Text: "Q", Type: models.MultipleChoice, Options: choices("a")}},
		{name: "duplicate values", req: QuestionRequest{Text: "Q", Type: models.RatingScale, Options: choices("1", "2", "1")}},
		{name: "option without label", req: QuestionRequest{Text: "Q", Type: models.MultipleChoice, Options: []models.QuestionOption{{Value: "a"}, {Value: "b", Label: "B"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddQuestion(ctx, f.engagement.ID, &tt.req, f.dave)
			var ve ValidationErrors
			if !errors.As(err, &ve) {
				t.Fatalf("AddQuestion() error = %v, want ValidationErrors", err)
			}
		})
	}
}

func TestAssessmentService_AddQuestionAppends(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewAssessmentService(f.repo, testLogger, validator.New())

	q, err := svc.AddQuestion(ctx, f.personality.ID, &QuestionRequest{
		Text: "I plan", Type: models.TrueFalse, Options: choices("yes", "no"),
	}, f.dave)
	if err != nil {
		t.Fatalf("AddQuestion() error = %v", err)
	}
	if q.Order != 3 || q.AssessmentID != f.personality.ID {
		t.Errorf("AddQuestion() = %+v, want order 3", q)
	}

	if _, err := svc.AddQuestion(ctx, 999, &QuestionRequest{Text: "Q", Type: models.FreeText}, f.dave); !errors.Is(err, ErrAssessmentNotFound) {
		t.Errorf("AddQuestion() unknown assessment error = %v", err)
	}
}

func TestAssessmentService_DeleteQuestionRenumbers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewAssessmentService(f.repo, testLogger, validator.New())

	third, err := svc.AddQuestion(ctx, f.personality.ID, &QuestionRequest{Text: "Third", Type: models.FreeText}, f.dave)
	if err != nil {
		t.Fatalf("AddQuestion() error = %v", err)
	}
	first, second := f.personality.Questions[0], f.personality.Questions[1]

	if err := svc.DeleteQuestion(ctx, f.engagement.ID, second.ID, f.dave); !errors.Is(err, ErrQuestionNotFound) {
		t.Fatalf("DeleteQuestion() through another assessment error = %v, want ErrQuestionNotFound", err)
	}
	if err := svc.DeleteQuestion(ctx, f.personality.ID, second.ID, f.alice); !errors.Is(err, ErrForbidden) {
		t.Fatalf("DeleteQuestion() as employee error = %v, want forbidden", err)
	}

	if err := svc.DeleteQuestion(ctx, f.personality.ID, second.ID, f.dave); err != nil {
		t.Fatalf("DeleteQuestion() error = %v", err)
	}

	orders := questionOrders(t, f, f.personality.ID)
	if len(orders) != 2 || orders[first.ID] != 1 || orders[third.ID] != 2 {
		t.Errorf("orders = %v, want first=1 third=2", orders)
	}

	if err := svc.DeleteQuestion(ctx, f.personality.ID, second.ID, f.dave); !errors.Is(err, ErrQuestionNotFound) {
		t.Errorf("second DeleteQuestion() error = %v, want ErrQuestionNotFound", err)
	}
}

func TestAssessmentService_CompactAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewAssessmentService(f.repo, testLogger, validator.New())

	first, second := f.personality.Questions[0], f.personality.Questions[1]
	f.db.Model(&models.Question{}).Where("id = ?", first.ID).Update("question_order", 4)
	f.db.Model(&models.Question{}).Where("id = ?", second.ID).Update("question_order", 9)

	if err := svc.CompactAll(ctx); err != nil {
		t.Fatalf("CompactAll() error = %v", err)
	}

	orders := questionOrders(t, f, f.personality.ID)
	if orders[first.ID] != 1 || orders[second.ID] != 2 {
		t.Errorf("orders = %v, want 1 and 2", orders)
	}

	// a dense ordering is left untouched
	if err := svc.CompactQuestionOrder(ctx, f.personality.ID); err != nil {
		t.Errorf("CompactQuestionOrder() error = %v", err)
	}
}

func TestAssessmentService_Update(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewAssessmentService(f.repo, testLogger, validator.New())

	inactive := false
	score := 75
	updated, err := svc.Update(ctx, f.personality.ID, &UpdateAssessmentRequest{IsActive: &inactive, PassingScore: &score}, f.dave)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.IsActive || updated.PassingScore != 75 || updated.Title != "Personality profile" {
		t.Errorf("Update() = %+v, want only the given fields changed", updated)
	}

	bad := 150
	_, err = svc.Update(ctx, f.personality.ID, &UpdateAssessmentRequest{PassingScore: &bad}, f.dave)
	if KindOf(err) != KindValidation {
		t.Errorf("Update() error = %v, want validation", err)
	}
	if _, err := svc.Update(ctx, 999, &UpdateAssessmentRequest{}, f.dave); !errors.Is(err, ErrAssessmentNotFound) {
		t.Errorf("Update() unknown error = %v", err)
	}
}
