package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/SAP-F-2025/hr-assessment-service/internal/config"
	"github.com/SAP-F-2025/hr-assessment-service/internal/events"
	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/hr-assessment-service/internal/services"
	"github.com/SAP-F-2025/hr-assessment-service/internal/utils"
	"github.com/SAP-F-2025/hr-assessment-service/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testLogger = utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

// fakeTokens maps bearer tokens straight to claims
type fakeTokens map[string]*casdoorsdk.Claims

func (f fakeTokens) ParseJwtToken(token string) (*casdoorsdk.Claims, error) {
	claims, ok := f[token]
	if !ok {
		return nil, errors.New("signature is invalid")
	}
	return claims, nil
}

func claimsFor(user casdoorsdk.User) *casdoorsdk.Claims {
	return &casdoorsdk.Claims{User: user}
}

// apiFixture serves the full router over an in-memory database. Tokens are
// the user names: alice (sales employee), bob (sales manager), carol
// (support employee) and dave (admin).
type apiFixture struct {
	db        *gorm.DB
	router    *gin.Engine
	publisher *events.MockEventPublisher

	sales, support uint

	personality *models.Assessment
	survey      *models.Assessment
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	db := newTestDB(t)
	f := &apiFixture{db: db, publisher: events.NewMockEventPublisher(testLogger.Slog())}

	sales := &models.Department{Code: "sales", Name: "Sales"}
	support := &models.Department{Code: "support", Name: "Support"}
	mustCreate(t, db, sales)
	mustCreate(t, db, support)
	f.sales, f.support = sales.ID, support.ID

	f.personality = &models.Assessment{
		Title:        "Personality profile",
		TypeTag:      "mbti",
		IsActive:     true,
		ShowResults:  true,
		PassingScore: 50,
		Questions: []models.Question{
			dimensionQuestion(1, "I recharge by", "E", "I"),
			dimensionQuestion(2, "I decide with", "T", "F"),
		},
	}
	f.survey = &models.Assessment{Title: "Engagement survey", TypeTag: "survey", IsActive: true, AllowRetake: true}
	mustCreate(t, db, f.personality)
	mustCreate(t, db, f.survey)
	mustCreate(t, db, &models.Assignment{AssessmentID: f.personality.ID, DepartmentID: f.sales, AllowManagerView: true})
	mustCreate(t, db, &models.Assignment{AssessmentID: f.survey.ID, DepartmentID: f.support})

	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db})
	serviceManager := services.NewServiceManager(repo, testLogger.Slog(), validator.New(), services.ServiceManagerConfig{
		Publisher: f.publisher,
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	tokens := fakeTokens{
		"alice": claimsFor(casdoorsdk.User{Id: "alice", DisplayName: "Alice", Type: "employee", Affiliation: "sales"}),
		"bob":   claimsFor(casdoorsdk.User{Id: "bob", DisplayName: "Bob", Type: "manager", Affiliation: "sales"}),
		"carol": claimsFor(casdoorsdk.User{Id: "carol", DisplayName: "Carol", Type: "employee", Affiliation: "support"}),
		"dave":  claimsFor(casdoorsdk.User{Id: "dave", DisplayName: "Dave", IsAdmin: true}),
	}
	auth := NewCasdoorAuthMiddleware(tokens, serviceManager.User(), testLogger)

	f.router = gin.New()
	SetupMiddleware(f.router, testLogger, config.RateLimitConfig{})
	NewHandlerManager(serviceManager, auth, testLogger).SetupRoutes(f.router)
	return f
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dest); err != nil {
		t.Fatalf("failed to decode %q: %v", w.Body.String(), err)
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d, body = %s", w.Code, want, w.Body.String())
	}
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
