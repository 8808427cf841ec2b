package service

import (
	"context"
	"fmt"
	"time"

	"github.com/certiva/examportal-backend/internal/model"
	"github.com/certiva/examportal-backend/internal/repository"
	"github.com/rs/zerolog"
)

// SubscriptionService manages plans and subscription purchases.
type SubscriptionService struct {
	repo *repository.SubscriptionRepository
	log  zerolog.Logger
	now  func() time.Time
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(repo *repository.SubscriptionRepository, log zerolog.Logger) *SubscriptionService {
	return &SubscriptionService{
		repo: repo,
		log:  log.With().Str("component", "subscription_service").Logger(),
		now:  time.Now,
	}
}

// CreatePlan inserts a new plan.
func (s *SubscriptionService) CreatePlan(ctx context.Context, req model.CreatePlanRequest) (*model.Plan, error) {
	plan := &model.Plan{
		Name:         req.Name,
		PriceCents:   req.PriceCents,
		DurationDays: req.DurationDays,
		IsActive:     true,
	}
	if err := s.repo.CreatePlan(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// ListPlans returns all plans.
func (s *SubscriptionService) ListPlans(ctx context.Context) ([]model.Plan, error) {
	return s.repo.ListPlans(ctx)
}

// Subscribe records a subscription purchase. The period starts now and runs
// for the plan's duration; payment has already happened outside.
func (s *SubscriptionService) Subscribe(ctx context.Context, req model.CreateSubscriptionRequest) (*model.Subscription, error) {
	plan, err := s.repo.GetPlan(ctx, req.PlanID)
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}

	now := s.now()
	sub := &model.Subscription{
		StudentID:  req.StudentID,
		PlanID:     plan.ID,
		StartsAt:   now,
		ExpiresAt:  now.AddDate(0, 0, plan.DurationDays),
		Status:     model.SubscriptionStatusActive,
		PaymentRef: req.PaymentRef,
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	s.log.Info().
		Int("student_id", sub.StudentID).
		Int("plan_id", sub.PlanID).
		Str("payment_ref", sub.PaymentRef).
		Msg("Subscription recorded")

	return sub, nil
}

// ListByStudent returns a student's subscription history.
func (s *SubscriptionService) ListByStudent(ctx context.Context, studentID int) ([]model.Subscription, error) {
	return s.repo.ListByStudent(ctx, studentID)
}

// Cancel marks a subscription cancelled.
func (s *SubscriptionService) Cancel(ctx context.Context, id string) error {
	return s.repo.Cancel(ctx, id)
}
