package handler

import (
	"net/http"
	"strconv"

	"github.com/certiva/examportal-backend/internal/model"
	"github.com/certiva/examportal-backend/internal/response"
	"github.com/certiva/examportal-backend/internal/service"
	"github.com/certiva/examportal-backend/internal/validator"
	"github.com/gin-gonic/gin"
)

// BatchHandler handles admin batch management.
type BatchHandler struct {
	batchService *service.BatchService
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(batchService *service.BatchService) *BatchHandler {
	return &BatchHandler{batchService: batchService}
}

// List godoc
// GET /api/v1/admin/batches
func (h *BatchHandler) List(c *gin.Context) {
	batches, err := h.batchService.List(c.Request.Context())
	if err != nil {
		failFromService(c, err)
		return
	}
	if batches == nil {
		batches = []model.Batch{}
	}

	response.Success(c, http.StatusOK, gin.H{"batches": batches})
}

// Get godoc
// GET /api/v1/admin/batches/:batch_id
func (h *BatchHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("batch_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	batch, err := h.batchService.GetByID(c.Request.Context(), id)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"batch": batch})
}

// Create godoc
// POST /api/v1/admin/batches
func (h *BatchHandler) Create(c *gin.Context) {
	var req model.CreateBatchRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	batch, err := h.batchService.Create(c.Request.Context(), req)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"batch": batch})
}

// Update godoc
// PUT /api/v1/admin/batches/:batch_id
func (h *BatchHandler) Update(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("batch_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateBatchRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	batch, err := h.batchService.Update(c.Request.Context(), id, req)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"batch": batch})
}

// Delete godoc
// DELETE /api/v1/admin/batches/:batch_id
func (h *BatchHandler) Delete(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("batch_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.batchService.Delete(c.Request.Context(), id); err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "deleted"})
}
