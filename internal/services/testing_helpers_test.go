package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/hr-assessment-service/internal/cache"
	"github.com/SAP-F-2025/hr-assessment-service/internal/events"
	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories"
	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/hr-assessment-service/internal/validator"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fixture is a small organisation:
//
//	sales:   alice (employee), bob (manager), erin (employee)
//	support: carol (employee)
//	dave is an admin without a department
//
// personality (retakes off, results shown) is assigned to sales with manager
// view and to support; engagement (retakes on, results hidden) is assigned to
// sales without manager view; archived is inactive.
type fixture struct {
	db   *gorm.DB
	repo repositories.Repository

	sales, support uint

	alice, bob, carol, dave, erin models.Requester

	personality, engagement, archived *models.Assessment
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:   db,
		repo: postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db}),
	}

	sales := &models.Department{Code: "sales", Name: "Sales"}
	support := &models.Department{Code: "support", Name: "Support"}
	mustCreate(t, db, sales)
	mustCreate(t, db, support)
	f.sales, f.support = sales.ID, support.ID

	f.alice = f.addUser(t, "alice", models.RoleEmployee, &f.sales)
	f.bob = f.addUser(t, "bob", models.RoleManager, &f.sales)
	f.carol = f.addUser(t, "carol", models.RoleEmployee, &f.support)
	f.dave = f.addUser(t, "dave", models.RoleAdmin, nil)
	f.erin = f.addUser(t, "erin", models.RoleEmployee, &f.sales)

	f.personality = &models.Assessment{
		Title:        "Personality profile",
		TypeTag:      "mbti",
		IsActive:     true,
		AllowRetake:  false,
		ShowResults:  true,
		PassingScore: 50,
		Questions: []models.Question{
			dimensionQuestion(1, "I recharge by", "E", "I"),
			dimensionQuestion(2, "I decide with", "T", "F"),
		},
	}
	f.engagement = &models.Assessment{
		Title:        "Engagement survey",
		TypeTag:      "survey",
		IsActive:     true,
		AllowRetake:  true,
		ShowResults:  false,
		PassingScore: 0,
	}
	f.archived = &models.Assessment{Title: "Archived", TypeTag: "survey", IsActive: false}
	mustCreate(t, db, f.personality)
	mustCreate(t, db, f.engagement)
	mustCreate(t, db, f.archived)

	f.assign(t, f.personality.ID, f.sales, true, nil, nil)
	f.assign(t, f.personality.ID, f.support, false, nil, nil)
	f.assign(t, f.engagement.ID, f.sales, false, nil, nil)
	return f
}

func (f *fixture) addUser(t *testing.T, id string, role models.UserRole, departmentID *uint) models.Requester {
	t.Helper()
	user := &models.User{ID: id, FullName: id, Email: id + "@example.com", Role: role, DepartmentID: departmentID}
	mustCreate(t, f.db, user)
	return user.Requester()
}

func (f *fixture) assign(t *testing.T, assessmentID, departmentID uint, managerView bool, start, end *time.Time) *models.Assignment {
	t.Helper()
	a := &models.Assignment{
		AssessmentID:     assessmentID,
		DepartmentID:     departmentID,
		AllowManagerView: managerView,
		StartDate:        start,
		EndDate:          end,
	}
	mustCreate(t, f.db, a)
	return a
}

func (f *fixture) addResult(t *testing.T, assessmentID uint, userID string, score *float64, passed bool, timeSpent *int, completedAt time.Time) *models.Result {
	t.Helper()
	r := &models.Result{
		AssessmentID: assessmentID,
		UserID:       userID,
		Payload:      datatypes.JSON(`{"type":"INTJ"}`),
		Score:        score,
		IsPassed:     passed,
		TimeSpent:    timeSpent,
		CompletedAt:  completedAt,
	}
	mustCreate(t, f.db, r)
	return r
}

func dimensionQuestion(order int, text, a, b string) models.Question {
	options, _ := json.Marshal([]models.QuestionOption{
		{Value: "a", Label: a, Dimension: a},
		{Value: "b", Label: b, Dimension: b},
	})
	return models.Question{
		Text:     text,
		Type:     models.MultipleChoice,
		Order:    order,
		Required: true,
		Options:  datatypes.JSON(options),
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func mustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("failed to seed %T: %v", value, err)
	}
}

// testClock advances one second on every reading so that consecutive
// operations never share a timestamp
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// stubGateway returns queued errors first, then outcome
type stubGateway struct {
	mu      sync.Mutex
	outcome *ScoreOutcome
	errs    []error
	calls   int
}

func (g *stubGateway) Score(ctx context.Context, assessment *models.Assessment, answers map[string]interface{}) (*ScoreOutcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if len(g.errs) > 0 {
		err := g.errs[0]
		g.errs = g.errs[1:]
		return nil, err
	}
	return g.outcome, nil
}

func passingOutcome(score float64) *ScoreOutcome {
	return &ScoreOutcome{
		Payload:  models.TypeTagPayload("INTJ"),
		Score:    &score,
		IsPassed: score >= 50,
	}
}

func newTestAttemptService(f *fixture, gateway ScoringGateway, publisher events.EventPublisher, clock *testClock) *attemptService {
	svc := NewAttemptService(f.repo, testLogger, validator.New(), gateway, publisher, cache.NewCacheManager(nil)).(*attemptService)
	svc.now = clock.Now
	return svc
}

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }
func intPtr(v int) *int           { return &v }
func uintPtr(v uint) *uint        { return &v }
