package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/SAP-F-2025/hr-assessment-service/internal/cache"
	"github.com/SAP-F-2025/hr-assessment-service/internal/events"
	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories"
	"github.com/SAP-F-2025/hr-assessment-service/internal/validator"
)

// ServiceManager owns every service and their shared dependencies
type ServiceManager interface {
	Assignment() AssignmentService
	Attempt() AttemptService
	Result() ResultService
	Export() ExportService
	Assessment() AssessmentService
	User() UserService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ServiceManagerConfig holds the collaborators services are built from
type ServiceManagerConfig struct {
	// ScoringURL selects the HTTP scorer; empty uses the in-process dimension scorer
	ScoringURL     string
	ScoringTimeout time.Duration

	// Scoring overrides ScoringURL when set
	Scoring   ScoringGateway
	Publisher events.EventPublisher
	Cache     *cache.CacheManager
}

type serviceManager struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	config    ServiceManagerConfig

	assignmentService AssignmentService
	attemptService    AttemptService
	resultService     ResultService
	exportService     ExportService
	assessmentService AssessmentService
	userService       UserService

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

func NewServiceManager(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, config ServiceManagerConfig) ServiceManager {
	if config.ScoringTimeout <= 0 {
		config.ScoringTimeout = 10 * time.Second
	}
	if config.Cache == nil {
		config.Cache = cache.NewCacheManager(nil)
	}
	if config.Publisher == nil {
		config.Publisher = events.NewMockEventPublisher(logger)
	}
	return &serviceManager{
		repo:      repo,
		logger:    logger,
		validator: validator,
		config:    config,
	}
}

// Initialize builds every service
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	scoring := sm.config.Scoring
	if scoring == nil {
		scoring = sm.newScoringGateway()
	}
	scoring = NewRetryingGateway(scoring, sm.config.ScoringTimeout, sm.logger)

	sm.assignmentService = NewAssignmentService(sm.repo, sm.logger, sm.validator, sm.config.Publisher)
	sm.attemptService = NewAttemptService(sm.repo, sm.logger, sm.validator, scoring, sm.config.Publisher, sm.config.Cache)
	sm.resultService = NewResultService(sm.repo, sm.logger, sm.config.Cache)
	sm.exportService = NewExportService(sm.resultService, sm.logger)
	sm.assessmentService = NewAssessmentService(sm.repo, sm.logger, sm.validator)
	sm.userService = NewUserService(sm.repo, sm.logger)

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")
	return nil
}

func (sm *serviceManager) newScoringGateway() ScoringGateway {
	if sm.config.ScoringURL == "" {
		sm.logger.Info("Using in-process dimension scoring")
		return NewDimensionScoringGateway()
	}
	sm.logger.Info("Using HTTP scoring gateway", "url", sm.config.ScoringURL)
	return NewHTTPScoringGateway(sm.config.ScoringURL, &http.Client{})
}

// Service getters

func (sm *serviceManager) Assignment() AssignmentService {
	sm.mustBeInitialized()
	return sm.assignmentService
}

func (sm *serviceManager) Attempt() AttemptService {
	sm.mustBeInitialized()
	return sm.attemptService
}

func (sm *serviceManager) Result() ResultService {
	sm.mustBeInitialized()
	return sm.resultService
}

func (sm *serviceManager) Export() ExportService {
	sm.mustBeInitialized()
	return sm.exportService
}

func (sm *serviceManager) Assessment() AssessmentService {
	sm.mustBeInitialized()
	return sm.assessmentService
}

func (sm *serviceManager) User() UserService {
	sm.mustBeInitialized()
	return sm.userService
}

func (sm *serviceManager) mustBeInitialized() {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if err := sm.config.Publisher.Close(); err != nil {
		sm.logger.Error("Failed to close event publisher", "error", err)
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")
	return nil
}
