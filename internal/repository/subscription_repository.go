package repository

import (
	"context"

	"github.com/certiva/examportal-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository handles plans and subscriptions.
type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

// ─── Plans ──────────────────────────────────────────────────────────────────

func (r *SubscriptionRepository) CreatePlan(ctx context.Context, p *model.Plan) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO plans (name, price_cents, duration_days, is_active)
		 VALUES ($1, $2, $3, TRUE)
		 RETURNING id, created_at, updated_at`,
		p.Name, p.PriceCents, p.DurationDays,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *SubscriptionRepository) GetPlan(ctx context.Context, id int) (*model.Plan, error) {
	p := &model.Plan{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, price_cents, duration_days, is_active, created_at, updated_at
		 FROM plans WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.PriceCents, &p.DurationDays, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *SubscriptionRepository) ListPlans(ctx context.Context) ([]model.Plan, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, price_cents, duration_days, is_active, created_at, updated_at
		 FROM plans ORDER BY price_cents ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []model.Plan
	for rows.Next() {
		var p model.Plan
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.DurationDays,
			&p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// ─── Subscriptions ──────────────────────────────────────────────────────────

func (r *SubscriptionRepository) CreateSubscription(ctx context.Context, s *model.Subscription) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO subscriptions (student_id, plan_id, starts_at, expires_at, status, payment_ref)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		s.StudentID, s.PlanID, s.StartsAt, s.ExpiresAt, s.Status, s.PaymentRef,
	).Scan(&s.ID, &s.CreatedAt)
}

// GetCurrent returns the student's most recent subscription for a plan, or
// pgx.ErrNoRows if the student never subscribed to it.
func (r *SubscriptionRepository) GetCurrent(ctx context.Context, studentID, planID int) (*model.Subscription, error) {
	s := &model.Subscription{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, student_id, plan_id, starts_at, expires_at, status, payment_ref, created_at
		 FROM subscriptions
		 WHERE student_id = $1 AND plan_id = $2
		 ORDER BY expires_at DESC
		 LIMIT 1`, studentID, planID,
	).Scan(&s.ID, &s.StudentID, &s.PlanID, &s.StartsAt, &s.ExpiresAt,
		&s.Status, &s.PaymentRef, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListByStudent returns all subscriptions of a student, newest first.
func (r *SubscriptionRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Subscription, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_id, plan_id, starts_at, expires_at, status, payment_ref, created_at
		 FROM subscriptions
		 WHERE student_id = $1
		 ORDER BY created_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		var s model.Subscription
		if err := rows.Scan(&s.ID, &s.StudentID, &s.PlanID, &s.StartsAt,
			&s.ExpiresAt, &s.Status, &s.PaymentRef, &s.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// Cancel marks a subscription cancelled.
func (r *SubscriptionRepository) Cancel(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE subscriptions SET status = $1 WHERE id = $2`,
		model.SubscriptionStatusCancelled, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
