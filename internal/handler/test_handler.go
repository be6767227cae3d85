package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/estudy/estudy-backend/internal/engine"
	"github.com/estudy/estudy-backend/internal/middleware"
	"github.com/estudy/estudy-backend/internal/model"
	"github.com/estudy/estudy-backend/internal/response"
	"github.com/estudy/estudy-backend/internal/service"
	"github.com/estudy/estudy-backend/internal/validator"
)

// TestHandler handles author-facing test management endpoints.
type TestHandler struct {
	testService    *service.TestService
	attemptService *service.AttemptService
	userService    *service.UserService
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(
	testService *service.TestService,
	attemptService *service.AttemptService,
	userService *service.UserService,
) *TestHandler {
	return &TestHandler{
		testService:    testService,
		attemptService: attemptService,
		userService:    userService,
	}
}

// CreateTest godoc
// POST /api/v1/author/tests
// Creates a new draft test. The entry token is generated when omitted.
func (h *TestHandler) CreateTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	entryToken := req.EntryToken
	if entryToken == "" {
		entryToken = strings.Split(uuid.New().String(), "-")[0]
	}

	test := &model.Test{
		Title:               req.Title,
		Description:         req.Description,
		AuthorID:            claims.UserID,
		DurationMinutes:     req.DurationMinutes,
		PassingScorePercent: req.PassingScorePercent,
		EntryToken:          entryToken,
	}

	if err := h.testService.Create(c.Request.Context(), test); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"test": test})
}

// ListTests godoc
// GET /api/v1/author/tests?page=1&per_page=10
// Lists the author's tests with pagination.
func (h *TestHandler) ListTests(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))

	tests, pagination, err := h.testService.ListByAuthor(c.Request.Context(), claims.UserID, page, perPage)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"tests": tests}, pagination)
}

// GetTest godoc
// GET /api/v1/author/tests/:test_id
func (h *TestHandler) GetTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	test, err := h.testService.GetByID(c.Request.Context(), testID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}
	if test.AuthorID != claims.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrNotTestAuthor)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": test})
}

// UpdateTest godoc
// PUT /api/v1/author/tests/:test_id
// Updates draft test metadata. Published tests are immutable.
func (h *TestHandler) UpdateTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	var req model.UpdateTestRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	existing, err := h.testService.GetByID(c.Request.Context(), testID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	if req.Title != "" {
		existing.Title = req.Title
	}
	if req.Description != nil {
		existing.Description = *req.Description
	}
	if req.DurationMinutes != 0 {
		existing.DurationMinutes = req.DurationMinutes
	}
	if req.PassingScorePercent != nil {
		existing.PassingScorePercent = *req.PassingScorePercent
	}
	if req.EntryToken != "" {
		existing.EntryToken = req.EntryToken
	}

	if err := h.testService.Update(c.Request.Context(), claims.UserID, existing); err != nil {
		failTestError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": existing})
}

// DeleteTest godoc
// DELETE /api/v1/author/tests/:test_id
func (h *TestHandler) DeleteTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	if err := h.testService.Delete(c.Request.Context(), testID, claims.UserID); err != nil {
		failTestError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetStructure godoc
// GET /api/v1/author/tests/:test_id/structure
// Returns the full authoring structure, including correct-answer flags.
func (h *TestHandler) GetStructure(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	def, err := h.testService.GetStructure(c.Request.Context(), testID, claims.UserID)
	if err != nil {
		failTestError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"structure": def})
}

// ReplaceStructure godoc
// PUT /api/v1/author/tests/:test_id/structure
// Replaces the whole section/question/option tree of a draft test.
func (h *TestHandler) ReplaceStructure(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	var req model.ReplaceStructureRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.testService.ReplaceStructure(c.Request.Context(), testID, claims.UserID, req.Sections); err != nil {
		failTestError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// PublishTest godoc
// POST /api/v1/author/tests/:test_id/publish
// Validates the definition, warms the Redis cache, and goes live.
func (h *TestHandler) PublishTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	if err := h.testService.Publish(c.Request.Context(), testID, claims.UserID); err != nil {
		failTestError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": model.TestStatusPublished})
}

// ArchiveTest godoc
// POST /api/v1/author/tests/:test_id/archive
func (h *TestHandler) ArchiveTest(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	if err := h.testService.Archive(c.Request.Context(), testID, claims.UserID); err != nil {
		failTestError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": model.TestStatusArchived})
}

// RefreshCache godoc
// POST /api/v1/author/tests/:test_id/refresh-cache
func (h *TestHandler) RefreshCache(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	if err := h.testService.RefreshCache(c.Request.Context(), testID, claims.UserID); err != nil {
		failTestError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// GetResults godoc
// GET /api/v1/author/tests/:test_id/results?page=1&per_page=10&passed=true
// Returns paginated attempt results for the author's test.
func (h *TestHandler) GetResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	testID, ok := parseTestID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}

	var passed *bool
	if raw := c.Query("passed"); raw != "" {
		val, err := strconv.ParseBool(raw)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		passed = &val
	}

	results, total, err := h.attemptService.GetResults(c.Request.Context(), testID, claims.UserID, page, perPage, passed)
	if err != nil {
		failTestError(c, err)
		return
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"results": results}, pagination)
}

// CreateUser godoc
// POST /api/v1/author/users
// Registers a learner or author account.
func (h *TestHandler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	user, err := h.userService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Fail(c, http.StatusConflict, response.ErrConflict)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"user": user})
}

// parseTestID reads and validates the :test_id path param, writing the
// error response itself on failure.
func parseTestID(c *gin.Context) (uuid.UUID, bool) {
	testID, err := uuid.Parse(c.Param("test_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.UUID{}, false
	}
	return testID, true
}

// failTestError maps service-layer errors onto API error codes.
func failTestError(c *gin.Context, err error) {
	var invalidDef *engine.InvalidDefinitionError
	switch {
	case errors.As(err, &invalidDef):
		response.FailWithFields(c, http.StatusUnprocessableEntity, response.ErrInvalidDefinition,
			map[string]string{"detail": invalidDef.Reason})
	case errors.Is(err, service.ErrNotTestAuthor):
		response.Fail(c, http.StatusForbidden, response.ErrNotTestAuthor)
	case errors.Is(err, service.ErrTestNotDraft):
		response.Fail(c, http.StatusConflict, response.ErrTestNotDraft)
	case errors.Is(err, service.ErrTestNotPublished):
		response.Fail(c, http.StatusConflict, response.ErrTestNotPublished)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
