package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/hr-assessment-service/internal/services"
	"github.com/SAP-F-2025/hr-assessment-service/internal/utils"
)

type AssignmentHandler struct {
	BaseHandler
	assignmentService services.AssignmentService
}

func NewAssignmentHandler(assignmentService services.AssignmentService, logger utils.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		assignmentService: assignmentService,
	}
}

// Assign assigns an assessment to a department, replacing existing settings
// @Summary Assign to department
// @Tags assignments
// @Accept json
// @Produce json
// @Param id path uint true "Assessment ID"
// @Param department_id path uint true "Department ID"
// @Param assignment body services.AssignRequest true "Assignment settings"
// @Success 200 {object} models.Assignment
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id}/assignments/{department_id} [put]
func (h *AssignmentHandler) Assign(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	departmentID := h.parseIDParam(c, "department_id")
	if departmentID == 0 {
		return
	}
	requester, ok := h.requester(c)
	if !ok {
		return
	}

	var req services.AssignRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Assigning assessment", "assessment_id", id, "department_id", departmentID)

	assignment, err := h.assignmentService.Assign(c.Request.Context(), id, departmentID, &req, requester)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignment)
}

// Unassign removes a department assignment; results are kept
// @Summary Unassign department
// @Tags assignments
// @Param id path uint true "Assessment ID"
// @Param department_id path uint true "Department ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id}/assignments/{department_id} [delete]
func (h *AssignmentHandler) Unassign(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	departmentID := h.parseIDParam(c, "department_id")
	if departmentID == 0 {
		return
	}
	requester, ok := h.requester(c)
	if !ok {
		return
	}

	if err := h.assignmentService.Unassign(c.Request.Context(), id, departmentID, requester); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListAssignments lists the departments an assessment is assigned to
// @Summary List assignments
// @Tags assignments
// @Produce json
// @Param id path uint true "Assessment ID"
// @Success 200 {array} models.Assignment
// @Router /assessments/{id}/assignments [get]
func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	requester, ok := h.requester(c)
	if !ok {
		return
	}

	assignments, err := h.assignmentService.ListAssignments(c.Request.Context(), id, requester)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignments)
}
