package model

import (
	"time"

	"github.com/google/uuid"
)

// Plan is a subscription plan a batch can require.
type Plan struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	PriceCents   int       `json:"price_cents"`
	DurationDays int       `json:"duration_days"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SubscriptionStatus enumerates subscription lifecycle states.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
)

// Subscription links a student to a plan for a period of time. A student
// may start an attempt only while holding an active, unexpired subscription
// to the plan their batch requires.
type Subscription struct {
	ID         uuid.UUID          `json:"id"`
	StudentID  int                `json:"student_id"`
	PlanID     int                `json:"plan_id"`
	StartsAt   time.Time          `json:"starts_at"`
	ExpiresAt  time.Time          `json:"expires_at"`
	Status     SubscriptionStatus `json:"status"`
	PaymentRef string             `json:"payment_ref"`
	CreatedAt  time.Time          `json:"created_at"`
}

// ActiveAt reports whether the subscription covers the given instant.
func (s *Subscription) ActiveAt(now time.Time) bool {
	return s.Status == SubscriptionStatusActive &&
		!now.Before(s.StartsAt) && now.Before(s.ExpiresAt)
}

// CreatePlanRequest is the payload for creating a subscription plan.
type CreatePlanRequest struct {
	Name         string `json:"name" binding:"required,min=2,max=100"`
	PriceCents   int    `json:"price_cents" binding:"min=0"`
	DurationDays int    `json:"duration_days" binding:"required,min=1"`
}

// CreateSubscriptionRequest is the payload for recording a subscription purchase.
type CreateSubscriptionRequest struct {
	StudentID  int    `json:"student_id" binding:"required"`
	PlanID     int    `json:"plan_id" binding:"required"`
	PaymentRef string `json:"payment_ref" binding:"required,min=4,max=100"`
}
