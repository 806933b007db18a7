package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/hr-assessment-service/internal/services"
	"github.com/SAP-F-2025/hr-assessment-service/internal/utils"
)

type AttemptHandler struct {
	BaseHandler
	attemptService    services.AttemptService
	assignmentService services.AssignmentService
}

func NewAttemptHandler(
	attemptService services.AttemptService,
	assignmentService services.AssignmentService,
	logger utils.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:       NewBaseHandler(logger),
		attemptService:    attemptService,
		assignmentService: assignmentService,
	}
}

// ListEligible lists the assessments the caller may take
// @Summary List eligible assessments
// @Description Active assessments assigned to the caller's department whose window is open, with completion flags
// @Tags attempts
// @Produce json
// @Success 200 {array} services.EligibleAssessment
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessments/eligible [get]
func (h *AttemptHandler) ListEligible(c *gin.Context) {
	requester, ok := h.requester(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Listing eligible assessments", "user_id", requester.UserID)

	items, err := h.assignmentService.ListEligible(c.Request.Context(), requester.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// Start starts or resumes an attempt
// @Summary Start assessment
// @Description Returns the questions and any saved progress. Starting a completed assessment begins a retake when allowed.
// @Tags attempts
// @Produce json
// @Param id path uint true "Assessment ID"
// @Success 200 {object} services.StartAttemptResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /assessments/{id}/start [post]
func (h *AttemptHandler) Start(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	requester, ok := h.requester(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting assessment", "assessment_id", id)

	resp, err := h.attemptService.Start(c.Request.Context(), id, requester)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SaveProgress stores partial answers
// @Summary Save progress
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Assessment ID"
// @Param progress body services.SaveProgressRequest true "Answers so far"
// @Success 200 {object} services.ProgressSnapshot
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id}/progress [put]
func (h *AttemptHandler) SaveProgress(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	requester, ok := h.requester(c)
	if !ok {
		return
	}

	var req services.SaveProgressRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Saving progress", "assessment_id", id, "last_question", req.LastQuestion)

	snapshot, err := h.attemptService.SaveProgress(c.Request.Context(), id, requester.UserID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// Submit scores the attempt and records a result
// @Summary Submit assessment
// @Description Final answers are merged over saved progress. Score and payload are omitted when the assessment hides results.
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path uint true "Assessment ID"
// @Param answers body services.SubmitAttemptRequest false "Final answers"
// @Success 201 {object} services.SubmitAttemptResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /assessments/{id}/submit [post]
func (h *AttemptHandler) Submit(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	requester, ok := h.requester(c)
	if !ok {
		return
	}

	// an empty body submits the saved progress as is
	var req services.SubmitAttemptRequest
	if c.Request.ContentLength != 0 && !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Submitting assessment", "assessment_id", id)

	resp, err := h.attemptService.Submit(c.Request.Context(), id, requester, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// State reports where the caller is in the attempt lifecycle
// @Summary Attempt state
// @Tags attempts
// @Produce json
// @Param id path uint true "Assessment ID"
// @Success 200 {object} map[string]string
// @Router /assessments/{id}/state [get]
func (h *AttemptHandler) State(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	requester, ok := h.requester(c)
	if !ok {
		return
	}

	state, err := h.attemptService.State(c.Request.Context(), id, requester.UserID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assessment_id": id, "state": state})
}
