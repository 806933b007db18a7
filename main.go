package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/hr-assessment-service/internal/cache"
	"github.com/SAP-F-2025/hr-assessment-service/internal/config"
	"github.com/SAP-F-2025/hr-assessment-service/internal/events"
	"github.com/SAP-F-2025/hr-assessment-service/internal/handlers"
	"github.com/SAP-F-2025/hr-assessment-service/internal/jobs"
	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/hr-assessment-service/internal/services"
	"github.com/SAP-F-2025/hr-assessment-service/internal/utils"
	"github.com/SAP-F-2025/hr-assessment-service/internal/validator"
	"github.com/SAP-F-2025/hr-assessment-service/pkg"
	"github.com/SAP-F-2025/hr-assessment-service/pkg/monitoring"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Redis only backs caches; run without it when unavailable
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, caching disabled", "error", err)
			redisClient = nil
		}
	}

	repoConfig := postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
	}
	if cfg.Casdoor.Endpoint != "" {
		repoConfig.Directory = casdoor.NewUserCasdoor(casdoor.CasdoorConfig{
			Endpoint:         cfg.Casdoor.Endpoint,
			ClientID:         cfg.Casdoor.ClientID,
			ClientSecret:     cfg.Casdoor.ClientSecret,
			Certificate:      cfg.Casdoor.Cert,
			OrganizationName: cfg.Casdoor.Organization,
			ApplicationName:  cfg.Casdoor.Application,
		}, redisClient)
	}
	repoManager := postgres.NewRepositoryManager(repoConfig)
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	publisher, err := newPublisher(cfg.Kafka, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}

	monitoring.Init()

	serviceManager := services.NewServiceManager(repoManager.GetRepository(), slogLogger, validator.New(), services.ServiceManagerConfig{
		ScoringURL:     cfg.Scoring.URL,
		ScoringTimeout: cfg.Scoring.Timeout,
		Publisher:      publisher,
		Cache:          cache.NewCacheManager(redisClient),
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	scheduler := jobs.New(serviceManager.Assessment(), serviceManager.User(), slogLogger)
	if err := scheduler.Start(cfg.OrderCompactionInterval, cfg.DirectorySyncInterval); err != nil {
		log.Fatalf("Failed to start jobs: %v", err)
	}

	authMiddleware := handlers.NewCasdoorAuthMiddleware(handlers.NewCasdoorClient(cfg.Casdoor), serviceManager.User(), logger)
	handlerManager := handlers.NewHandlerManager(serviceManager, authMiddleware, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger, cfg.RateLimit)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	scheduler.Stop()

	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	// closes the database pool and Redis
	if err := repoManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to close repositories", "error", err)
	}

	logger.Info("Server exited")
}

// newPublisher publishes to Kafka when brokers are configured and only logs
// events otherwise
func newPublisher(cfg config.KafkaConfig, logger *slog.Logger) (events.EventPublisher, error) {
	if len(cfg.Brokers) == 0 {
		logger.Info("No Kafka brokers configured, events are only logged")
		return events.NewMockEventPublisher(logger), nil
	}
	return events.NewKafkaEventPublisher(cfg.Brokers, cfg.Topic, logger)
}
