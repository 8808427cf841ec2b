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

// SubscriptionHandler handles plans and subscription purchases.
type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(subscriptionService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

// ListPlans godoc
// GET /api/v1/admin/plans
func (h *SubscriptionHandler) ListPlans(c *gin.Context) {
	plans, err := h.subscriptionService.ListPlans(c.Request.Context())
	if err != nil {
		failFromService(c, err)
		return
	}
	if plans == nil {
		plans = []model.Plan{}
	}

	response.Success(c, http.StatusOK, gin.H{"plans": plans})
}

// CreatePlan godoc
// POST /api/v1/admin/plans
func (h *SubscriptionHandler) CreatePlan(c *gin.Context) {
	var req model.CreatePlanRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	plan, err := h.subscriptionService.CreatePlan(c.Request.Context(), req)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"plan": plan})
}

// Subscribe godoc
// POST /api/v1/admin/subscriptions
// Records a subscription purchase for a student.
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	var req model.CreateSubscriptionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sub, err := h.subscriptionService.Subscribe(c.Request.Context(), req)
	if err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"subscription": sub})
}

// ListByStudent godoc
// GET /api/v1/admin/students/:student_id/subscriptions
func (h *SubscriptionHandler) ListByStudent(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("student_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	subs, err := h.subscriptionService.ListByStudent(c.Request.Context(), id)
	if err != nil {
		failFromService(c, err)
		return
	}
	if subs == nil {
		subs = []model.Subscription{}
	}

	response.Success(c, http.StatusOK, gin.H{"subscriptions": subs})
}

// Cancel godoc
// POST /api/v1/admin/subscriptions/:subscription_id/cancel
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	id := c.Param("subscription_id")
	if _, err := uuid.Parse(id); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.subscriptionService.Cancel(c.Request.Context(), id); err != nil {
		failFromService(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "cancelled"})
}

// MySubscriptions godoc
// GET /api/v1/student/subscriptions
func (h *SubscriptionHandler) MySubscriptions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	subs, err := h.subscriptionService.ListByStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		failFromService(c, err)
		return
	}
	if subs == nil {
		subs = []model.Subscription{}
	}

	response.Success(c, http.StatusOK, gin.H{"subscriptions": subs})
}
