package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories"
)

// ===== SERVICE INTERFACES =====

// AssignmentService resolves which assessments a user may take and manages
// department assignments
type AssignmentService interface {
	ListEligible(ctx context.Context, userID string) ([]*EligibleAssessment, error)

	Assign(ctx context.Context, assessmentID, departmentID uint, req *AssignRequest, requester models.Requester) (*models.Assignment, error)
	Unassign(ctx context.Context, assessmentID, departmentID uint, requester models.Requester) error
	ListAssignments(ctx context.Context, assessmentID uint, requester models.Requester) ([]*models.Assignment, error)
}

// AttemptService drives the per-user attempt lifecycle
type AttemptService interface {
	State(ctx context.Context, assessmentID uint, userID string) (models.AttemptState, error)
	Start(ctx context.Context, assessmentID uint, requester models.Requester) (*StartAttemptResponse, error)
	SaveProgress(ctx context.Context, assessmentID uint, userID string, req *SaveProgressRequest) (*ProgressSnapshot, error)
	Submit(ctx context.Context, assessmentID uint, requester models.Requester, req *SubmitAttemptRequest) (*SubmitAttemptResponse, error)
}

// ResultService reads results under the role visibility rules
type ResultService interface {
	GetOwnResult(ctx context.Context, assessmentID uint, userID string) (*OwnResultResponse, error)
	GetAssessmentResults(ctx context.Context, assessmentID uint, requester models.Requester, filters repositories.ResultFilters) (*AssessmentResultsResponse, error)
	GetMyResults(ctx context.Context, requester models.Requester) ([]*ResultRow, error)
	GetDepartmentComparison(ctx context.Context, assessmentID uint, requester models.Requester) ([]*DepartmentComparison, error)
	DeleteResult(ctx context.Context, resultID uint, requester models.Requester) error
}

// ExportService renders result listings as spreadsheets
type ExportService interface {
	ExportAssessmentResults(ctx context.Context, assessmentID uint, requester models.Requester, filters repositories.ResultFilters) (*ExportFile, error)
}

// AssessmentService manages assessment definitions and their questions
type AssessmentService interface {
	Create(ctx context.Context, req *CreateAssessmentRequest, requester models.Requester) (*models.Assessment, error)
	Update(ctx context.Context, id uint, req *UpdateAssessmentRequest, requester models.Requester) (*models.Assessment, error)
	GetByID(ctx context.Context, id uint) (*models.Assessment, error)

	AddQuestion(ctx context.Context, assessmentID uint, req *QuestionRequest, requester models.Requester) (*models.Question, error)
	DeleteQuestion(ctx context.Context, assessmentID, questionID uint, requester models.Requester) error
	CompactQuestionOrder(ctx context.Context, assessmentID uint) error
	CompactAll(ctx context.Context) error
}

// UserService keeps the local user and department mirror in sync with the
// identity provider
type UserService interface {
	SyncProfile(ctx context.Context, profile *repositories.IdentityProfile) (*models.User, error)
	SyncDirectory(ctx context.Context) (int, error)
	GetRequester(ctx context.Context, userID string) (models.Requester, error)
}

// ===== ATTEMPT DTOs =====

type AssessmentSummary struct {
	ID           uint    `json:"id"`
	Title        string  `json:"title"`
	Description  *string `json:"description,omitempty"`
	TypeTag      string  `json:"type_tag"`
	AllowRetake  bool    `json:"allow_retake"`
	ShowResults  bool    `json:"show_results"`
	PassingScore int     `json:"passing_score"`
}

func newAssessmentSummary(a *models.Assessment) AssessmentSummary {
	return AssessmentSummary{
		ID:           a.ID,
		Title:        a.Title,
		Description:  a.Description,
		TypeTag:      a.TypeTag,
		AllowRetake:  a.AllowRetake,
		ShowResults:  a.ShowResults,
		PassingScore: a.PassingScore,
	}
}

// EligibleAssessment is one entry of the "assessments available to me" list
type EligibleAssessment struct {
	Assessment       AssessmentSummary `json:"assessment"`
	IsRequired       bool              `json:"is_required"`
	StartDate        *time.Time        `json:"start_date,omitempty"`
	EndDate          *time.Time        `json:"end_date,omitempty"`
	HasCompleted     bool              `json:"has_completed"`
	CanRetake        bool              `json:"can_retake"`
	InProgress       bool              `json:"in_progress"`
	RetakeInProgress bool              `json:"retake_in_progress"`
	LastQuestion     int               `json:"last_question"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
}

type ProgressSnapshot struct {
	Answers      map[string]interface{} `json:"answers"`
	LastQuestion int                    `json:"last_question"`
	StartedAt    time.Time              `json:"started_at"`
	LastActivity time.Time              `json:"last_activity"`
}

func newProgressSnapshot(p *models.Progress) *ProgressSnapshot {
	answers := map[string]interface{}(p.Answers)
	if answers == nil {
		answers = map[string]interface{}{}
	}
	return &ProgressSnapshot{
		Answers:      answers,
		LastQuestion: p.LastQuestion,
		StartedAt:    p.StartedAt,
		LastActivity: p.LastActivity,
	}
}

type StartAttemptResponse struct {
	Assessment AssessmentSummary   `json:"assessment"`
	Questions  []*models.Question  `json:"questions"`
	Progress   *ProgressSnapshot   `json:"progress"`
	State      models.AttemptState `json:"state"`
	Resumed    bool                `json:"resumed"`
}

type SaveProgressRequest struct {
	Answers      map[string]interface{} `json:"answers" validate:"required"`
	LastQuestion int                    `json:"last_question" validate:"min=0"`
}

type SubmitAttemptRequest struct {
	Answers map[string]interface{} `json:"answers"`
}

type SubmitAttemptResponse struct {
	ResultID     uint                  `json:"result_id"`
	AssessmentID uint                  `json:"assessment_id"`
	CompletedAt  time.Time             `json:"completed_at"`
	Withheld     bool                  `json:"withheld"`
	Score        *float64              `json:"score,omitempty"`
	IsPassed     *bool                 `json:"is_passed,omitempty"`
	TimeSpent    *int                  `json:"time_spent,omitempty"`
	Payload      *models.ResultPayload `json:"payload,omitempty"`
}

// ===== RESULT DTOs =====

// OwnResultResponse carries only CompletedAt and Withheld when the assessment
// hides results from completers
type OwnResultResponse struct {
	ResultID     uint                  `json:"result_id"`
	AssessmentID uint                  `json:"assessment_id"`
	CompletedAt  time.Time             `json:"completed_at"`
	Withheld     bool                  `json:"withheld"`
	Score        *float64              `json:"score,omitempty"`
	IsPassed     *bool                 `json:"is_passed,omitempty"`
	TimeSpent    *int                  `json:"time_spent,omitempty"`
	Payload      *models.ResultPayload `json:"payload,omitempty"`
}

type ResultRow struct {
	ResultID        uint      `json:"result_id"`
	AssessmentID    uint      `json:"assessment_id"`
	AssessmentTitle string    `json:"assessment_title,omitempty"`
	UserID          string    `json:"user_id"`
	FullName        string    `json:"full_name,omitempty"`
	Email           string    `json:"email,omitempty"`
	DepartmentID    *uint     `json:"department_id,omitempty"`
	DepartmentName  string    `json:"department_name,omitempty"`
	Score           *float64  `json:"score"`
	IsPassed        bool      `json:"is_passed"`
	TimeSpent       *int      `json:"time_spent"`
	CompletedAt     time.Time `json:"completed_at"`
	// Withheld rows are the requester's own results of assessments that
	// hide outcomes; score and payload are left out
	Withheld bool                  `json:"withheld,omitempty"`
	Payload  *models.ResultPayload `json:"payload,omitempty"`
}

type ResultStats struct {
	TotalParticipants int     `json:"total_participants"`
	AverageScore      float64 `json:"average_score"`
	AverageTime       float64 `json:"average_time"`
	PassRate          float64 `json:"pass_rate"`
}

type AssessmentResultsResponse struct {
	AssessmentID uint         `json:"assessment_id"`
	Results      []*ResultRow `json:"results"`
	Stats        ResultStats  `json:"stats"`
}

type DepartmentComparison struct {
	DepartmentID      uint        `json:"department_id"`
	DepartmentCode    string      `json:"department_code"`
	DepartmentName    string      `json:"department_name"`
	MemberCount       int64       `json:"member_count"`
	Participants      int         `json:"participants"`
	ParticipationRate float64     `json:"participation_rate"`
	Stats             ResultStats `json:"stats"`
}

type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ===== ADMINISTRATION DTOs =====

type AssignRequest struct {
	IsRequired       bool       `json:"is_required"`
	StartDate        *time.Time `json:"start_date"`
	EndDate          *time.Time `json:"end_date"`
	AllowManagerView bool       `json:"allow_manager_view"`
}

type CreateAssessmentRequest struct {
	Title        string            `json:"title" validate:"not_blank,max=200"`
	Description  *string           `json:"description" validate:"omitempty,max=2000"`
	TypeTag      string            `json:"type_tag" validate:"type_tag"`
	IsActive     bool              `json:"is_active"`
	AllowRetake  bool              `json:"allow_retake"`
	ShowResults  bool              `json:"show_results"`
	PassingScore int               `json:"passing_score" validate:"min=0,max=100"`
	Questions    []QuestionRequest `json:"questions" validate:"omitempty,dive"`
}

// UpdateAssessmentRequest edits metadata only; nil fields are left unchanged
type UpdateAssessmentRequest struct {
	Title        *string `json:"title" validate:"omitempty,not_blank,max=200"`
	Description  *string `json:"description" validate:"omitempty,max=2000"`
	TypeTag      *string `json:"type_tag" validate:"omitempty,type_tag"`
	IsActive     *bool   `json:"is_active"`
	AllowRetake  *bool   `json:"allow_retake"`
	ShowResults  *bool   `json:"show_results"`
	PassingScore *int    `json:"passing_score" validate:"omitempty,min=0,max=100"`
}

type QuestionRequest struct {
	Text     string                  `json:"text" validate:"not_blank"`
	Type     models.QuestionType     `json:"type" validate:"question_type"`
	Required bool                    `json:"required"`
	Options  []models.QuestionOption `json:"options" validate:"omitempty,dive"`
	ImageURL *string                 `json:"image_url" validate:"omitempty,url"`
}
