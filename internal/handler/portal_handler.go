package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/estudy/estudy-backend/internal/middleware"
	"github.com/estudy/estudy-backend/internal/model"
	"github.com/estudy/estudy-backend/internal/response"
	"github.com/estudy/estudy-backend/internal/service"
	"github.com/estudy/estudy-backend/internal/validator"
)

// PortalHandler handles learner-facing endpoints (lobby, test taking).
type PortalHandler struct {
	attemptService *service.AttemptService
	testService    *service.TestService
}

// NewPortalHandler creates a new PortalHandler.
func NewPortalHandler(attemptService *service.AttemptService, testService *service.TestService) *PortalHandler {
	return &PortalHandler{
		attemptService: attemptService,
		testService:    testService,
	}
}

// GetLobby godoc
// GET /api/v1/learner/lobby
// Returns published tests with the learner's attempt status overlaid.
func (h *PortalHandler) GetLobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	lobby, err := h.attemptService.GetLobby(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"tests": lobby})
}

// BeginAttempt godoc
// POST /api/v1/learner/tests/:test_id/begin
// Validates the entry token and starts (or resumes) an attempt.
func (h *PortalHandler) BeginAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	var req model.BeginAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.attemptService.Begin(c.Request.Context(), testID, claims.UserID, req.EntryToken)
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// GetPaper godoc
// GET /api/v1/learner/tests/:test_id/paper
// Returns the test payload from Redis (bypasses PostgreSQL).
// Requires an active attempt — no paper without a valid begin.
func (h *PortalHandler) GetPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	if err := h.attemptService.VerifyActive(c.Request.Context(), testID, claims.UserID); err != nil {
		failAttemptError(c, err)
		return
	}

	payload, err := h.testService.GetPayload(c.Request.Context(), testID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrTestNotPublished)
		return
	}

	response.Success(c, http.StatusOK, payload)
}

// GetState godoc
// GET /api/v1/learner/tests/:test_id/state
// Restores an in-progress attempt after a reload: saved answers, remaining
// seconds, warning level, and progress.
func (h *PortalHandler) GetState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	if err := h.attemptService.VerifyActive(c.Request.Context(), testID, claims.UserID); err != nil {
		failAttemptError(c, err)
		return
	}

	state, err := h.attemptService.GetState(c.Request.Context(), testID, claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// SaveAnswer godoc
// POST /api/v1/learner/tests/:test_id/answers
// HTTP fallback for the WebSocket answer action. Replaces the selection
// for one question wholesale.
func (h *PortalHandler) SaveAnswer(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	var req model.SaveAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.attemptService.VerifyActive(c.Request.Context(), testID, claims.UserID); err != nil {
		failAttemptError(c, err)
		return
	}

	if err := h.attemptService.SaveAnswer(c.Request.Context(), testID, claims.UserID, req.QuestionID, req.OptionIDs); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "saved"})
}

// SubmitAttempt godoc
// POST /api/v1/learner/tests/:test_id/submit
// HTTP fallback for the WebSocket submit action. Grades in RAM and
// returns the full result.
func (h *PortalHandler) SubmitAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	result, err := h.attemptService.Submit(c.Request.Context(), testID, claims.UserID)
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// GetResult godoc
// GET /api/v1/learner/tests/:test_id/result
// Returns the learner's own completed attempt.
func (h *PortalHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.GetResult(c.Request.Context(), testID, claims.UserID)
	if err != nil {
		failAttemptError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// failAttemptError maps attempt service errors onto API error codes.
func failAttemptError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTestNotAvailable):
		response.Fail(c, http.StatusBadRequest, response.ErrTestNotAvailable)
	case errors.Is(err, service.ErrInvalidEntryToken):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidEntryToken)
	case errors.Is(err, service.ErrNoActiveAttempt):
		response.Fail(c, http.StatusForbidden, response.ErrNoActiveAttempt)
	case errors.Is(err, service.ErrAttemptCompleted):
		response.Fail(c, http.StatusConflict, response.ErrAttemptCompleted)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
