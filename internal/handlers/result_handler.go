package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/hr-assessment-service/internal/services"
	"github.com/SAP-F-2025/hr-assessment-service/internal/utils"
)

type ResultHandler struct {
	BaseHandler
	resultService services.ResultService
	exportService services.ExportService
}

func NewResultHandler(resultService services.ResultService, exportService services.ExportService, logger utils.Logger) *ResultHandler {
	return &ResultHandler{
		BaseHandler:   NewBaseHandler(logger),
		resultService: resultService,
		exportService: exportService,
	}
}

// GetOwnResult returns the caller's latest result for an assessment
// @Summary Get my result
// @Tags results
// @Produce json
// @Param id path uint true "Assessment ID"
// @Success 200 {object} services.OwnResultResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id}/result [get]
func (h *ResultHandler) GetOwnResult(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	requester, ok := h.requester(c)
	if !ok {
		return
	}

	resp, err := h.resultService.GetOwnResult(c.Request.Context(), id, requester.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetAssessmentResults lists results with aggregate stats
// @Summary List assessment results
// @Description Admins see every department, managers their own when the assignment allows it, employees only their own record
// @Tags results
// @Produce json
// @Param id path uint true "Assessment ID"
// @Param department_id query uint false "Department"
// @Param user_id query string false "User"
// @Param from query string false "Completed at or after (RFC 3339 or YYYY-MM-DD)"
// @Param to query string false "Completed at or before (RFC 3339 or YYYY-MM-DD)"
// @Param status query string false "passed or failed"
// @Success 200 {object} services.AssessmentResultsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /assessments/{id}/results [get]
func (h *ResultHandler) GetAssessmentResults(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	requester, ok := h.requester(c)
	if !ok {
		return
	}
	filters, ok := h.parseResultFilters(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Listing assessment results", "assessment_id", id)

	resp, err := h.resultService.GetAssessmentResults(c.Request.Context(), id, requester, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ExportAssessmentResults streams the filtered listing as a workbook
// @Summary Export assessment results
// @Tags results
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Assessment ID"
// @Success 200 {file} file
// @Failure 403 {object} ErrorResponse
// @Router /assessments/{id}/results/export [get]
func (h *ResultHandler) ExportAssessmentResults(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	requester, ok := h.requester(c)
	if !ok {
		return
	}
	filters, ok := h.parseResultFilters(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting assessment results", "assessment_id", id)

	file, err := h.exportService.ExportAssessmentResults(c.Request.Context(), id, requester, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// GetDepartmentComparison compares participation and scores across departments
// @Summary Department comparison
// @Tags results
// @Produce json
// @Param id path uint true "Assessment ID"
// @Success 200 {array} services.DepartmentComparison
// @Failure 403 {object} ErrorResponse
// @Router /assessments/{id}/results/departments [get]
func (h *ResultHandler) GetDepartmentComparison(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	requester, ok := h.requester(c)
	if !ok {
		return
	}

	resp, err := h.resultService.GetDepartmentComparison(c.Request.Context(), id, requester)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetMyResults lists the caller's own results, plus their department's for managers
// @Summary My results
// @Tags results
// @Produce json
// @Success 200 {array} services.ResultRow
// @Router /results/me [get]
func (h *ResultHandler) GetMyResults(c *gin.Context) {
	requester, ok := h.requester(c)
	if !ok {
		return
	}

	rows, err := h.resultService.GetMyResults(c.Request.Context(), requester)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, rows)
}

// DeleteResult removes a single result
// @Summary Delete result
// @Tags results
// @Param result_id path uint true "Result ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /results/{result_id} [delete]
func (h *ResultHandler) DeleteResult(c *gin.Context) {
	id := h.parseIDParam(c, "result_id")
	if id == 0 {
		return
	}
	requester, ok := h.requester(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting result", "result_id", id)

	if err := h.resultService.DeleteResult(c.Request.Context(), id, requester); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
