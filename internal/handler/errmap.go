package handler

import (
	"errors"
	"net/http"

	"github.com/certiva/examportal-backend/internal/response"
	"github.com/certiva/examportal-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

// failFromService maps service-layer sentinel errors onto API error codes.
// Anything unrecognized surfaces as an internal error.
func failFromService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrExamNotVisible):
		response.Fail(c, http.StatusForbidden, response.ErrExamNotVisible)
	case errors.Is(err, service.ErrSubscriptionRequired):
		response.Fail(c, http.StatusForbidden, response.ErrSubscriptionRequired)
	case errors.Is(err, service.ErrSubscriptionExpired):
		response.Fail(c, http.StatusForbidden, response.ErrSubscriptionExpired)
	case errors.Is(err, service.ErrAlreadyPassed):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyPassed)
	case errors.Is(err, service.ErrAttemptsExhausted):
		response.Fail(c, http.StatusForbidden, response.ErrAttemptsExhausted)
	case errors.Is(err, service.ErrAttemptSuspended):
		response.Fail(c, http.StatusForbidden, response.ErrAttemptSuspended)
	case errors.Is(err, service.ErrAttemptAbandoned):
		response.Fail(c, http.StatusConflict, response.ErrActionForbidden)
	case errors.Is(err, service.ErrQuestionPoolTooSmall):
		response.Fail(c, http.StatusConflict, response.ErrQuestionPoolTooSmall)
	case errors.Is(err, service.ErrNotSuspended):
		response.Fail(c, http.StatusConflict, response.ErrNotSuspended)
	case errors.Is(err, service.ErrBudgetNotExhausted):
		response.Fail(c, http.StatusConflict, response.ErrBudgetNotExhausted)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	case errors.Is(err, service.ErrSessionAlreadyActive):
		response.Fail(c, http.StatusConflict, response.ErrSessionActive)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusConflict, response.ErrQuestionPoolTooSmall)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
