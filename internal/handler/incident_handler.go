package handler

import (
	"net/http"
	"strconv"

	"github.com/certiva/examportal-backend/internal/middleware"
	"github.com/certiva/examportal-backend/internal/model"
	"github.com/certiva/examportal-backend/internal/response"
	"github.com/certiva/examportal-backend/internal/service"
	"github.com/certiva/examportal-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IncidentHandler handles incident reporting (student side) and the ledger's
// admin read surface.
type IncidentHandler struct {
	incidentService *service.IncidentService
	attemptService  *service.AttemptService
}

// NewIncidentHandler creates a new IncidentHandler.
func NewIncidentHandler(incidentService *service.IncidentService, attemptService *service.AttemptService) *IncidentHandler {
	return &IncidentHandler{incidentService: incidentService, attemptService: attemptService}
}

// Report godoc
// POST /api/v1/student/attempts/:attempt_id/incidents
// Records one proctoring violation; may auto-suspend the attempt.
func (h *IncidentHandler) Report(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	attempt, err := h.attemptService.GetResult(c.Request.Context(), attemptID)
	if err != nil {
		failFromService(c, err)
		return
	}
	if attempt.StudentID != claims.UserID {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
		return
	}

	var req model.ReportIncidentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrMalformedIncident, fields)
		return
	}

	report, err := h.incidentService.Report(c.Request.Context(), attemptID, req)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, report)
}

// ListForAttempt godoc
// GET /api/v1/admin/attempts/:attempt_id/incidents
func (h *IncidentHandler) ListForAttempt(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	incidents, err := h.incidentService.ListForAttempt(c.Request.Context(), attemptID)
	if err != nil {
		failFromService(c, err)
		return
	}
	if incidents == nil {
		incidents = []model.SecurityIncident{}
	}

	response.Success(c, http.StatusOK, gin.H{"incidents": incidents})
}

// Recent godoc
// GET /api/v1/admin/incidents/recent?limit=50
func (h *IncidentHandler) Recent(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	incidents, err := h.incidentService.Recent(c.Request.Context(), limit)
	if err != nil {
		failFromService(c, err)
		return
	}
	if incidents == nil {
		incidents = []model.SecurityIncident{}
	}

	// Resolve each exam reference; orphans stay in the list with a reason.
	refs := make([]model.ExamRef, len(incidents))
	for i := range incidents {
		ref, err := h.incidentService.ResolveExam(c.Request.Context(), incidents[i])
		if err != nil {
			failFromService(c, err)
			return
		}
		refs[i] = ref
	}

	response.Success(c, http.StatusOK, gin.H{
		"incidents": incidents,
		"exam_refs": refs,
	})
}

// CountsByType godoc
// GET /api/v1/admin/incidents/by-type
func (h *IncidentHandler) CountsByType(c *gin.Context) {
	counts, err := h.incidentService.CountsByType(c.Request.Context())
	if err != nil {
		failFromService(c, err)
		return
	}
	if counts == nil {
		counts = []model.IncidentTypeCount{}
	}

	response.Success(c, http.StatusOK, gin.H{"counts": counts})
}

// TopStudents godoc
// GET /api/v1/admin/incidents/top-students?limit=10
func (h *IncidentHandler) TopStudents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	students, err := h.incidentService.TopStudents(c.Request.Context(), limit)
	if err != nil {
		failFromService(c, err)
		return
	}
	if students == nil {
		students = []model.StudentIncidentCount{}
	}

	response.Success(c, http.StatusOK, gin.H{"students": students})
}
