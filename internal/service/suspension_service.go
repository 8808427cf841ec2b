package service

import (
	"context"
	"fmt"
	"time"

	"github.com/certiva/examportal-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AttemptClockCache re-primes the cached start time after the attempt's
// clock moves. AttemptStateService satisfies it.
type AttemptClockCache interface {
	CacheStartTime(ctx context.Context, attempt *model.Attempt)
}

// SuspensionService is the payment-gated recovery workflow: lifting a
// suspension, granting extra attempts once the budget is spent, and
// abandoning a suspended attempt. Payment itself happens outside; this
// service only records its reference.
type SuspensionService struct {
	attempts AttemptStore
	students StudentStore
	batches  BatchStore
	clock    AttemptClockCache
	log      zerolog.Logger
	now      func() time.Time
}

// NewSuspensionService creates a new SuspensionService.
func NewSuspensionService(attempts AttemptStore, students StudentStore, batches BatchStore, clock AttemptClockCache, log zerolog.Logger) *SuspensionService {
	return &SuspensionService{
		attempts: attempts,
		students: students,
		batches:  batches,
		clock:    clock,
		log:      log.With().Str("component", "suspension_service").Logger(),
		now:      time.Now,
	}
}

// RemoveSuspension lifts a suspension after payment. The attempt resumes
// in progress with its clock shifted past the frozen interval and an
// increased incident allowance so the same running count cannot re-trip
// the threshold immediately.
func (s *SuspensionService) RemoveSuspension(ctx context.Context, attemptID uuid.UUID, paymentRef string) (*model.Attempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	batch, err := s.batchFor(ctx, attempt.StudentID)
	if err != nil {
		return nil, err
	}

	rows, err := s.attempts.RemoveSuspension(ctx, attemptID, batch.AdditionalSecurityIncidentsAfterRemoval, paymentRef, s.now())
	if err != nil {
		return nil, fmt.Errorf("remove suspension: %w", err)
	}
	if rows == 0 {
		return nil, ErrNotSuspended
	}

	refreshed, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	// The shift moved started_at; the cached copy has to follow or the next
	// state reload counts the frozen interval against the student.
	s.clock.CacheStartTime(ctx, refreshed)

	s.log.Info().
		Str("attempt_id", attemptID.String()).
		Str("payment_ref", paymentRef).
		Int("extra_incidents", batch.AdditionalSecurityIncidentsAfterRemoval).
		Msg("Suspension removed")

	return refreshed, nil
}

// Abandon closes a suspended attempt without payment. The attempt stays
// counted against the budget; the student moves on to their next attempt if
// any budget remains.
func (s *SuspensionService) Abandon(ctx context.Context, attemptID uuid.UUID) error {
	rows, err := s.attempts.Abandon(ctx, attemptID)
	if err != nil {
		return fmt.Errorf("abandon attempt: %w", err)
	}
	if rows == 0 {
		return ErrNotSuspended
	}

	s.log.Info().Str("attempt_id", attemptID.String()).Msg("Suspended attempt abandoned")
	return nil
}

// GrantAdditionalAttempts records a payment-backed budget increase for one
// (student, exam) pair. It is refused while the student has a passing
// submission (they have nothing left to retake) and until the current budget
// is fully spent; the grant size comes from the student's batch policy.
func (s *SuspensionService) GrantAdditionalAttempts(ctx context.Context, studentID int, examID uuid.UUID, paymentRef string) (*model.AttemptGrant, error) {
	batch, err := s.batchFor(ctx, studentID)
	if err != nil {
		return nil, err
	}

	passed, err := s.attempts.HasPassed(ctx, studentID, examID)
	if err != nil {
		return nil, fmt.Errorf("check pass status: %w", err)
	}
	if passed {
		return nil, ErrAlreadyPassed
	}

	used, err := s.attempts.CountUsed(ctx, studentID, examID)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	granted, err := s.attempts.SumGrants(ctx, studentID, examID)
	if err != nil {
		return nil, fmt.Errorf("sum grants: %w", err)
	}
	if used < batch.MaxAttempts+granted {
		return nil, ErrBudgetNotExhausted
	}

	grant := &model.AttemptGrant{
		StudentID:       studentID,
		ExamID:          examID,
		AttemptsGranted: batch.AdditionalAttemptsAfterPayment,
		PaymentRef:      paymentRef,
	}
	if err := s.attempts.CreateGrant(ctx, grant); err != nil {
		return nil, fmt.Errorf("create grant: %w", err)
	}

	s.log.Info().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Int("attempts_granted", grant.AttemptsGranted).
		Str("payment_ref", paymentRef).
		Msg("Additional attempts granted")

	return grant, nil
}

func (s *SuspensionService) batchFor(ctx context.Context, studentID int) (*model.Batch, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	batch, err := s.batches.GetByID(ctx, student.BatchID)
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return batch, nil
}
