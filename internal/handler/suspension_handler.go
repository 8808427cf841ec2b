package handler

import (
	"net/http"

	"github.com/certiva/examportal-backend/internal/middleware"
	"github.com/certiva/examportal-backend/internal/response"
	"github.com/certiva/examportal-backend/internal/service"
	"github.com/certiva/examportal-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// paymentRefRequest carries the external payment reference that unlocks a
// recovery action.
type paymentRefRequest struct {
	PaymentRef string `json:"payment_ref" binding:"required,min=4,max=100"`
}

// SuspensionHandler handles the payment-gated recovery endpoints: lifting a
// suspension, abandoning a suspended attempt, and granting extra attempts.
type SuspensionHandler struct {
	suspensionService *service.SuspensionService
	attemptService    *service.AttemptService
	incidentService   *service.IncidentService
}

// NewSuspensionHandler creates a new SuspensionHandler.
func NewSuspensionHandler(
	suspensionService *service.SuspensionService,
	attemptService *service.AttemptService,
	incidentService *service.IncidentService,
) *SuspensionHandler {
	return &SuspensionHandler{
		suspensionService: suspensionService,
		attemptService:    attemptService,
		incidentService:   incidentService,
	}
}

// RemoveSuspension godoc
// POST /api/v1/student/attempts/:attempt_id/suspension/remove
// Lifts a suspension after payment; the attempt resumes with its clock
// shifted past the frozen interval.
func (h *SuspensionHandler) RemoveSuspension(c *gin.Context) {
	attemptID, ok := h.ownedAttemptID(c)
	if !ok {
		return
	}

	var req paymentRefRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.suspensionService.RemoveSuspension(c.Request.Context(), attemptID, req.PaymentRef)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// AbandonAttempt godoc
// POST /api/v1/student/attempts/:attempt_id/suspension/abandon
// Closes a suspended attempt without payment. It stays counted against the
// attempt budget.
func (h *SuspensionHandler) AbandonAttempt(c *gin.Context) {
	attemptID, ok := h.ownedAttemptID(c)
	if !ok {
		return
	}

	if err := h.suspensionService.Abandon(c.Request.Context(), attemptID); err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "abandoned"})
}

// GetSuspensionStatus godoc
// GET /api/v1/student/attempts/:attempt_id/suspension
// Returns the suspension details plus the incident ledger for the attempt.
func (h *SuspensionHandler) GetSuspensionStatus(c *gin.Context) {
	attemptID, ok := h.ownedAttemptID(c)
	if !ok {
		return
	}

	attempt, err := h.attemptService.GetResult(c.Request.Context(), attemptID)
	if err != nil {
		failFromService(c, err)
		return
	}

	incidents, err := h.incidentService.ListForAttempt(c.Request.Context(), attemptID)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"attempt":   attempt,
		"incidents": incidents,
	})
}

// GrantAttempts godoc
// POST /api/v1/student/exams/:exam_id/grants
// Buys additional attempts once the budget is fully spent.
func (h *SuspensionHandler) GrantAttempts(c *gin.Context) {
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

	var req paymentRefRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	grant, err := h.suspensionService.GrantAdditionalAttempts(c.Request.Context(), claims.UserID, examID, req.PaymentRef)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"grant": grant})
}

func (h *SuspensionHandler) ownedAttemptID(c *gin.Context) (uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return uuid.Nil, false
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}

	attempt, err := h.attemptService.GetResult(c.Request.Context(), attemptID)
	if err != nil {
		failFromService(c, err)
		return uuid.Nil, false
	}
	if attempt.StudentID != claims.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return uuid.Nil, false
	}
	return attemptID, true
}
