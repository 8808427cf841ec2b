package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/certiva/examportal-backend/internal/model"
	"github.com/rs/zerolog"
)

type fakeClockCache struct {
	primed []*model.Attempt
}

func (f *fakeClockCache) CacheStartTime(_ context.Context, attempt *model.Attempt) {
	f.primed = append(f.primed, attempt)
}

func newSuspensionEnv(t *testing.T) (*SuspensionService, *attemptEnv, *fakeClockCache) {
	t.Helper()
	env := newAttemptEnv(t)
	env.batches.batches[1].AdditionalSecurityIncidentsAfterRemoval = 3
	clock := &fakeClockCache{}
	svc := NewSuspensionService(env.attempts, env.students, env.batches, clock, zerolog.Nop())
	return svc, env, clock
}

func suspend(env *attemptEnv, attemptNumber int) *model.Attempt {
	started := time.Now().Add(-30 * time.Minute)
	suspendedAt := time.Now().Add(-10 * time.Minute)
	count := 3
	return env.attempts.put(&model.Attempt{
		StudentID:                 10,
		ExamID:                    env.exam.ID,
		AttemptNumber:             attemptNumber,
		Status:                    model.AttemptStatusSuspended,
		StartedAt:                 started,
		LastActiveAt:              suspendedAt,
		SuspendedAt:               &suspendedAt,
		IncidentCountAtSuspension: &count,
		TotalQuestions:            3,
	})
}

func TestRemoveSuspensionResumesWithShiftedClock(t *testing.T) {
	svc, env, _ := newSuspensionEnv(t)
	ctx := context.Background()

	attempt := suspend(env, 1)
	originalStart := attempt.StartedAt

	resumed, err := svc.RemoveSuspension(ctx, attempt.ID, "PAY-12345")
	if err != nil {
		t.Fatalf("RemoveSuspension: %v", err)
	}
	if resumed.Status != model.AttemptStatusInProgress {
		t.Errorf("status = %s, want %s", resumed.Status, model.AttemptStatusInProgress)
	}
	if resumed.SuspendedAt != nil {
		t.Error("suspension timestamp not cleared")
	}
	// The ~10 frozen minutes move into started_at so remaining time is
	// unchanged by the suspension.
	shift := resumed.StartedAt.Sub(originalStart)
	if shift < 9*time.Minute || shift > 11*time.Minute {
		t.Errorf("clock shift = %v, want ~10m", shift)
	}
	if resumed.ExtraIncidentsAllowed != 3 {
		t.Errorf("extra incidents allowed = %d, want 3", resumed.ExtraIncidentsAllowed)
	}
	if resumed.SuspensionPaymentRef == nil || *resumed.SuspensionPaymentRef != "PAY-12345" {
		t.Errorf("payment ref = %v, want PAY-12345", resumed.SuspensionPaymentRef)
	}
}

func TestRemoveSuspensionReprimesCachedStart(t *testing.T) {
	svc, env, clock := newSuspensionEnv(t)
	ctx := context.Background()

	attempt := suspend(env, 1)
	originalStart := attempt.StartedAt

	resumed, err := svc.RemoveSuspension(ctx, attempt.ID, "PAY-12345")
	if err != nil {
		t.Fatalf("RemoveSuspension: %v", err)
	}

	// A state reload right after paying must see the shifted clock, so the
	// cached start time is re-primed with the post-shift attempt.
	if len(clock.primed) != 1 {
		t.Fatalf("start time primed %d times, want 1", len(clock.primed))
	}
	if got := clock.primed[0].StartedAt; !got.Equal(resumed.StartedAt) {
		t.Errorf("primed start = %v, want shifted start %v", got, resumed.StartedAt)
	}
	if !clock.primed[0].StartedAt.After(originalStart) {
		t.Error("primed start still reflects the pre-suspension clock")
	}
}

func TestRemoveSuspensionAccumulatesAllowance(t *testing.T) {
	svc, env, _ := newSuspensionEnv(t)
	ctx := context.Background()

	attempt := suspend(env, 1)
	if _, err := svc.RemoveSuspension(ctx, attempt.ID, "PAY-1"); err != nil {
		t.Fatalf("first removal: %v", err)
	}

	// Suspend again and remove again: the allowance stacks.
	now := time.Now()
	stored := env.attempts.attempts[attempt.ID]
	stored.Status = model.AttemptStatusSuspended
	stored.SuspendedAt = &now

	resumed, err := svc.RemoveSuspension(ctx, attempt.ID, "PAY-2")
	if err != nil {
		t.Fatalf("second removal: %v", err)
	}
	if resumed.ExtraIncidentsAllowed != 6 {
		t.Errorf("extra incidents allowed = %d, want 6 after two removals", resumed.ExtraIncidentsAllowed)
	}
}

func TestRemoveSuspensionRequiresSuspendedState(t *testing.T) {
	svc, env, _ := newSuspensionEnv(t)
	ctx := context.Background()

	attempt := env.attempts.put(&model.Attempt{
		StudentID: 10, ExamID: env.exam.ID, AttemptNumber: 1,
		Status: model.AttemptStatusInProgress, LastActiveAt: time.Now(),
	})

	if _, err := svc.RemoveSuspension(ctx, attempt.ID, "PAY-1"); !errors.Is(err, ErrNotSuspended) {
		t.Errorf("error = %v, want %v", err, ErrNotSuspended)
	}
}

func TestAbandonClosesSuspendedAttempt(t *testing.T) {
	svc, env, _ := newSuspensionEnv(t)
	ctx := context.Background()

	attempt := suspend(env, 1)
	if err := svc.Abandon(ctx, attempt.ID); err != nil {
		t.Fatalf("Abandon: %v", err)
	}

	stored, _ := env.attempts.GetByID(ctx, attempt.ID)
	if stored.Status != model.AttemptStatusAbandoned {
		t.Errorf("status = %s, want %s", stored.Status, model.AttemptStatusAbandoned)
	}

	// Abandoning twice, or abandoning a non-suspended attempt, fails.
	if err := svc.Abandon(ctx, attempt.ID); !errors.Is(err, ErrNotSuspended) {
		t.Errorf("second abandon error = %v, want %v", err, ErrNotSuspended)
	}
}

func TestGrantAdditionalAttemptsRequiresExhaustedBudget(t *testing.T) {
	svc, env, _ := newSuspensionEnv(t)
	ctx := context.Background()

	// One of two budget slots used: grant refused.
	env.attempts.put(&model.Attempt{
		StudentID: 10, ExamID: env.exam.ID, AttemptNumber: 1,
		Status: model.AttemptStatusSubmitted,
	})
	if _, err := svc.GrantAdditionalAttempts(ctx, 10, env.exam.ID, "PAY-1"); !errors.Is(err, ErrBudgetNotExhausted) {
		t.Fatalf("error = %v, want %v", err, ErrBudgetNotExhausted)
	}

	// Exhaust the budget: grant goes through with the batch's configured size.
	env.attempts.put(&model.Attempt{
		StudentID: 10, ExamID: env.exam.ID, AttemptNumber: 2,
		Status: model.AttemptStatusSubmitted,
	})
	grant, err := svc.GrantAdditionalAttempts(ctx, 10, env.exam.ID, "PAY-2")
	if err != nil {
		t.Fatalf("GrantAdditionalAttempts: %v", err)
	}
	if grant.AttemptsGranted != 1 {
		t.Errorf("attempts granted = %d, want 1", grant.AttemptsGranted)
	}

	// After the grant the budget has headroom again, so a second grant is
	// refused until it is spent.
	if _, err := svc.GrantAdditionalAttempts(ctx, 10, env.exam.ID, "PAY-3"); !errors.Is(err, ErrBudgetNotExhausted) {
		t.Errorf("error = %v, want %v after unspent grant", err, ErrBudgetNotExhausted)
	}
}

func TestGrantAdditionalAttemptsRefusedAfterPass(t *testing.T) {
	svc, env, _ := newSuspensionEnv(t)
	ctx := context.Background()

	// Budget of 2 fully spent, second attempt passing. A passed student has
	// nothing left to retake, so no payment can buy more attempts.
	env.attempts.put(&model.Attempt{
		StudentID: 10, ExamID: env.exam.ID, AttemptNumber: 1,
		Status: model.AttemptStatusSubmitted,
	})
	passed := true
	env.attempts.put(&model.Attempt{
		StudentID: 10, ExamID: env.exam.ID, AttemptNumber: 2,
		Status: model.AttemptStatusSubmitted, Passed: &passed,
	})

	grant, err := svc.GrantAdditionalAttempts(ctx, 10, env.exam.ID, "PAY-AFTER-PASS")
	if !errors.Is(err, ErrAlreadyPassed) {
		t.Fatalf("error = %v, want %v", err, ErrAlreadyPassed)
	}
	if grant != nil {
		t.Errorf("grant = %+v, want nil", grant)
	}
	if sum, _ := env.attempts.SumGrants(ctx, 10, env.exam.ID); sum != 0 {
		t.Errorf("granted total = %d, want 0", sum)
	}
}

func TestGrantRestoresStartEligibility(t *testing.T) {
	svc, env, _ := newSuspensionEnv(t)
	ctx := context.Background()

	// Spend the full budget of 2.
	for i := 1; i <= 2; i++ {
		env.attempts.put(&model.Attempt{
			StudentID: 10, ExamID: env.exam.ID, AttemptNumber: i,
			Status: model.AttemptStatusSubmitted,
		})
	}
	if _, err := env.svc.StartAttempt(ctx, 10, env.exam.ID); !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("start error = %v, want %v", err, ErrAttemptsExhausted)
	}

	if _, err := svc.GrantAdditionalAttempts(ctx, 10, env.exam.ID, "PAY-1"); err != nil {
		t.Fatalf("grant: %v", err)
	}

	attempt, err := env.svc.StartAttempt(ctx, 10, env.exam.ID)
	if err != nil {
		t.Fatalf("start after grant: %v", err)
	}
	if attempt.AttemptNumber != 3 {
		t.Errorf("attempt number = %d, want 3", attempt.AttemptNumber)
	}
}
