package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"github.com/SAP-F-2025/hr-assessment-service/internal/services"
	"github.com/SAP-F-2025/hr-assessment-service/internal/utils"
	"github.com/SAP-F-2025/hr-assessment-service/pkg/monitoring"
)

type HandlerManager struct {
	assessmentHandler *AssessmentHandler
	assignmentHandler *AssignmentHandler
	attemptHandler    *AttemptHandler
	resultHandler     *ResultHandler
	authMiddleware    *CasdoorAuthMiddleware
	serviceManager    services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	authMiddleware *CasdoorAuthMiddleware,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		assessmentHandler: NewAssessmentHandler(serviceManager.Assessment(), logger),
		assignmentHandler: NewAssignmentHandler(serviceManager.Assignment(), logger),
		attemptHandler:    NewAttemptHandler(serviceManager.Attempt(), serviceManager.Assignment(), logger),
		resultHandler:     NewResultHandler(serviceManager.Result(), serviceManager.Export(), logger),
		authMiddleware:    authMiddleware,
		serviceManager:    serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	adminOnly := hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		assessments := v1.Group("/assessments")
		{
			// Taking assessments - every authenticated user
			assessments.GET("/eligible", hm.attemptHandler.ListEligible)
			assessments.POST("/:id/start", hm.attemptHandler.Start)
			assessments.PUT("/:id/progress", hm.attemptHandler.SaveProgress)
			assessments.POST("/:id/submit", hm.attemptHandler.Submit)
			assessments.GET("/:id/state", hm.attemptHandler.State)
			assessments.GET("/:id/result", hm.resultHandler.GetOwnResult)

			// Result views - the service scopes rows per requester and assignment
			assessments.GET("/:id/results", hm.resultHandler.GetAssessmentResults)
			assessments.GET("/:id/results/export", hm.resultHandler.ExportAssessmentResults)
			assessments.GET("/:id/results/departments", adminOnly, hm.resultHandler.GetDepartmentComparison)

			// Administration - Admins only
			assessments.POST("", adminOnly, hm.assessmentHandler.CreateAssessment)
			assessments.GET("/:id", adminOnly, hm.assessmentHandler.GetAssessment)
			assessments.PUT("/:id", adminOnly, hm.assessmentHandler.UpdateAssessment)
			assessments.POST("/:id/questions", adminOnly, hm.assessmentHandler.AddQuestion)
			assessments.DELETE("/:id/questions/:question_id", adminOnly, hm.assessmentHandler.DeleteQuestion)

			assessments.GET("/:id/assignments", adminOnly, hm.assignmentHandler.ListAssignments)
			assessments.PUT("/:id/assignments/:department_id", adminOnly, hm.assignmentHandler.Assign)
			assessments.DELETE("/:id/assignments/:department_id", adminOnly, hm.assignmentHandler.Unassign)
		}

		results := v1.Group("/results")
		{
			results.GET("/me", hm.resultHandler.GetMyResults)
			results.DELETE("/:result_id", adminOnly, hm.resultHandler.DeleteResult)
		}
	}

	router.GET("/health", hm.health)
	router.GET("/metrics", monitoring.PrometheusHandler())
}

func (hm *HandlerManager) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "hr-assessment-service",
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "hr-assessment-service",
	})
}
