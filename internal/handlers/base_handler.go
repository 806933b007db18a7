package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/hr-assessment-service/internal/models"
	"github.com/SAP-F-2025/hr-assessment-service/internal/repositories"
	"github.com/SAP-F-2025/hr-assessment-service/internal/services"
	"github.com/SAP-F-2025/hr-assessment-service/internal/utils"
)

// ErrorResponse is the body of every non-2xx response. Error carries the
// stable kind clients switch on.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.GetLogger(c, h.logger).Debug(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string) {
	utils.GetLogger(c, h.logger).Error(msg, "error", err, "path", c.FullPath())
}

// requester returns the caller set by the auth middleware, answering 401 when
// there is none
func (h *BaseHandler) requester(c *gin.Context) (models.Requester, bool) {
	if v, ok := c.Get(requesterKey); ok {
		if r, ok := v.(models.Requester); ok && r.UserID != "" {
			return r, true
		}
	}
	c.JSON(http.StatusUnauthorized, ErrorResponse{
		Error:   "unauthorized",
		Message: "User not authenticated",
	})
	return models.Requester{}, false
}

func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   services.KindValidation,
			Message: "Invalid " + param,
		})
		return 0
	}
	return uint(id)
}

// bindJSON answers 400 when the body cannot be decoded
func (h *BaseHandler) bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   services.KindValidation,
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return false
	}
	return true
}

// parseResultFilters reads department_id, user_id, from, to and status.
// Dates accept RFC 3339 or YYYY-MM-DD; a bare "to" date covers the whole day.
func (h *BaseHandler) parseResultFilters(c *gin.Context) (repositories.ResultFilters, bool) {
	var filters repositories.ResultFilters
	invalid := func(field, msg string) (repositories.ResultFilters, bool) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   services.KindValidation,
			Message: "Invalid " + field,
			Details: services.NewValidationError(field, msg, c.Query(field)),
		})
		return filters, false
	}

	if v := c.Query("department_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return invalid("department_id", "must be a positive integer")
		}
		departmentID := uint(id)
		filters.DepartmentID = &departmentID
	}
	if v := c.Query("user_id"); v != "" {
		filters.UserID = &v
	}
	if v := c.Query("from"); v != "" {
		from, _, err := parseDate(v)
		if err != nil {
			return invalid("from", "must be RFC 3339 or YYYY-MM-DD")
		}
		filters.CompletedFrom = &from
	}
	if v := c.Query("to"); v != "" {
		to, dateOnly, err := parseDate(v)
		if err != nil {
			return invalid("to", "must be RFC 3339 or YYYY-MM-DD")
		}
		if dateOnly {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		filters.CompletedTo = &to
	}
	filters.Status = repositories.ResultStatus(c.Query("status"))
	return filters, true
}

func parseDate(v string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	return t, true, err
}

// handleServiceError maps the error kind to a status code
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	kind := services.KindOf(err)

	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   kind,
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   kind,
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	switch kind {
	case services.KindNotFound:
		c.JSON(http.StatusNotFound, ErrorResponse{Error: kind, Message: err.Error()})
	case services.KindForbidden:
		c.JSON(http.StatusForbidden, ErrorResponse{Error: kind, Message: err.Error()})
	case services.KindConflict:
		c.JSON(http.StatusConflict, ErrorResponse{Error: kind, Message: err.Error()})
	case services.KindValidation:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: kind, Message: err.Error()})
	case services.KindUpstream:
		h.LogError(c, err, "Upstream failure")
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   kind,
			Message: "Scoring service unavailable, please retry",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   services.KindInternal,
			Message: "Internal server error",
		})
	}
}
