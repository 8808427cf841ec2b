package handler

import (
	"net/http"

	"github.com/certiva/examportal-backend/internal/middleware"
	"github.com/certiva/examportal-backend/internal/model"
	"github.com/certiva/examportal-backend/internal/response"
	"github.com/certiva/examportal-backend/internal/service"
	"github.com/certiva/examportal-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StudentPortalHandler handles student-facing endpoints: the lobby and the
// attempt lifecycle.
type StudentPortalHandler struct {
	attemptService *service.AttemptService
	stateService   *service.AttemptStateService
	examService    *service.ExamService
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(
	attemptService *service.AttemptService,
	stateService *service.AttemptStateService,
	examService *service.ExamService,
) *StudentPortalHandler {
	return &StudentPortalHandler{
		attemptService: attemptService,
		stateService:   stateService,
		examService:    examService,
	}
}

// GetLobby godoc
// GET /api/v1/student/lobby
// Returns exams assigned to the student's batch with attempt standing.
func (h *StudentPortalHandler) GetLobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	lobby, err := h.stateService.GetLobby(c.Request.Context(), claims.UserID)
	if err != nil {
		failFromService(c, err)
		return
	}
	if lobby == nil {
		lobby = []service.LobbyExam{}
	}

	response.Success(c, http.StatusOK, gin.H{"exams": lobby})
}

// StartAttempt godoc
// POST /api/v1/student/exams/:exam_id/attempts
// Runs the access checks and opens an attempt (idempotent for an attempt
// already in progress).
func (h *StudentPortalHandler) StartAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.StartAttempt(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		failFromService(c, err)
		return
	}

	h.stateService.CacheStartTime(c.Request.Context(), attempt)

	response.Success(c, http.StatusCreated, gin.H{"attempt": attempt})
}

// GetPaper godoc
// GET /api/v1/student/attempts/:attempt_id/paper
// Returns the attempt's question subset from the Redis payload cache.
func (h *StudentPortalHandler) GetPaper(c *gin.Context) {
	attempt, ok := h.ownedAttempt(c)
	if !ok {
		return
	}
	if attempt.Status != model.AttemptStatusInProgress {
		response.Fail(c, http.StatusForbidden, response.ErrActionForbidden)
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), attempt.ExamID)
	if err != nil {
		failFromService(c, err)
		return
	}

	paper, err := h.examService.GetPaper(c.Request.Context(), exam, attempt)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, paper)
}

// GetState godoc
// GET /api/v1/student/attempts/:attempt_id/state
// Restores autosaved answers and the countdown after a page reload.
func (h *StudentPortalHandler) GetState(c *gin.Context) {
	attempt, ok := h.ownedAttempt(c)
	if !ok {
		return
	}

	state, err := h.stateService.GetAttemptState(c.Request.Context(), attempt.ID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// SubmitAttempt godoc
// POST /api/v1/student/attempts/:attempt_id/submit
// Scores the attempt (idempotent; returns the stored result on resubmit).
func (h *StudentPortalHandler) SubmitAttempt(c *gin.Context) {
	attempt, ok := h.ownedAttempt(c)
	if !ok {
		return
	}

	var req model.SubmitAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attemptService.SubmitAttempt(c.Request.Context(), attempt.ID, req.Answers)
	if err != nil {
		failFromService(c, err)
		return
	}

	// Hot state is no longer needed once the result is recorded.
	_ = h.stateService.ClearAttemptCache(c.Request.Context(), attempt.ID)

	response.Success(c, http.StatusOK, gin.H{"attempt": result})
}

// Heartbeat godoc
// POST /api/v1/student/attempts/:attempt_id/heartbeat
// Refreshes the activity timestamp used for idle detection.
func (h *StudentPortalHandler) Heartbeat(c *gin.Context) {
	attempt, ok := h.ownedAttempt(c)
	if !ok {
		return
	}

	if err := h.stateService.Heartbeat(c.Request.Context(), attempt.ID); err != nil {
		failFromService(c, err)
		return
	}
	if err := h.attemptService.Heartbeat(c.Request.Context(), attempt.ID); err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "ok"})
}

// ListResults godoc
// GET /api/v1/student/exams/:exam_id/results
// Returns the student's attempt history for one exam.
func (h *StudentPortalHandler) ListResults(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempts, err := h.attemptService.ListResults(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		failFromService(c, err)
		return
	}
	if attempts == nil {
		attempts = []model.Attempt{}
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

// ownedAttempt parses :attempt_id, loads the attempt and verifies it belongs
// to the authenticated student. Any failure writes the response itself.
func (h *StudentPortalHandler) ownedAttempt(c *gin.Context) (*model.Attempt, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return nil, false
	}

	attempt, err := h.attemptService.GetResult(c.Request.Context(), attemptID)
	if err != nil {
		failFromService(c, err)
		return nil, false
	}
	if attempt.StudentID != claims.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return nil, false
	}
	return attempt, true
}
