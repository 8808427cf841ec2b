package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/certiva/examportal-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type attemptEnv struct {
	svc        *AttemptService
	attempts   *fakeAttemptStore
	exams      *fakeExamStore
	questions  *fakeQuestionStore
	students   *fakeStudentStore
	batches    *fakeBatchStore
	subs       *fakeSubscriptionStore
	dispatcher *fakeDispatcher

	student *model.Student
	batch   *model.Batch
	exam    *model.Exam
	pool    []model.Question
}

// newAttemptEnv builds a service over fakes with one student in one active
// batch, an active assigned exam drawing 3 of 5 questions, and a valid
// subscription. Tests break individual preconditions from this baseline.
func newAttemptEnv(t *testing.T) *attemptEnv {
	t.Helper()

	env := &attemptEnv{
		attempts:   newFakeAttemptStore(),
		exams:      newFakeExamStore(),
		questions:  newFakeQuestionStore(),
		students:   newFakeStudentStore(),
		batches:    newFakeBatchStore(),
		subs:       newFakeSubscriptionStore(),
		dispatcher: &fakeDispatcher{},
	}

	env.batch = env.batches.put(&model.Batch{
		ID:                             1,
		Name:                           "Batch A",
		PlanID:                         7,
		MaxAttempts:                    2,
		MaxSecurityIncidents:           3,
		EnableAutoSuspend:              true,
		AdditionalAttemptsAfterPayment: 1,
		IsActive:                       true,
	})
	env.student = env.students.put(&model.Student{
		ID:       10,
		Name:     "Test Student",
		BatchID:  1,
		IsActive: true,
	})
	env.exam = env.exams.put(&model.Exam{
		Name:               "Algebra Final",
		DurationMinutes:    60,
		PassPercentage:     50,
		TotalQuestions:     5,
		QuestionsToDisplay: 3,
		IsActive:           true,
	}, 1)

	for i := 0; i < 5; i++ {
		env.pool = env.questions.put(env.exam.ID, model.Question{
			Text: "q",
			Options: []model.Option{
				{Text: "right", IsCorrect: true},
				{Text: "wrong"},
			},
		})
	}

	env.subs.put(10, &model.Subscription{
		PlanID:    7,
		Status:    model.SubscriptionStatusActive,
		StartsAt:  time.Now().Add(-time.Hour),
		ExpiresAt: time.Now().Add(24 * time.Hour),
	})

	env.svc = NewAttemptService(
		env.attempts, env.exams, env.questions, env.students, env.batches,
		env.subs, env.dispatcher, zerolog.Nop(),
	)
	return env
}

func TestStartAttemptDrawsSubset(t *testing.T) {
	env := newAttemptEnv(t)

	attempt, err := env.svc.StartAttempt(context.Background(), 10, env.exam.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if attempt.AttemptNumber != 1 {
		t.Errorf("attempt number = %d, want 1", attempt.AttemptNumber)
	}
	if attempt.Status != model.AttemptStatusInProgress {
		t.Errorf("status = %s, want %s", attempt.Status, model.AttemptStatusInProgress)
	}
	if len(attempt.SelectedQuestionIDs) != 3 {
		t.Fatalf("drew %d questions, want 3", len(attempt.SelectedQuestionIDs))
	}
	if attempt.TotalQuestions != 3 {
		t.Errorf("total questions = %d, want 3", attempt.TotalQuestions)
	}

	poolIDs := make(map[uuid.UUID]bool)
	for _, q := range env.pool {
		poolIDs[q.ID] = true
	}
	seen := make(map[uuid.UUID]bool)
	for _, id := range attempt.SelectedQuestionIDs {
		if !poolIDs[id] {
			t.Errorf("drawn question %s not in pool", id)
		}
		if seen[id] {
			t.Errorf("question %s drawn twice", id)
		}
		seen[id] = true
	}
}

func TestStartAttemptResumesOpenAttempt(t *testing.T) {
	env := newAttemptEnv(t)
	ctx := context.Background()

	first, err := env.svc.StartAttempt(ctx, 10, env.exam.ID)
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	second, err := env.svc.StartAttempt(ctx, 10, env.exam.ID)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second start opened a new attempt %s, want resume of %s", second.ID, first.ID)
	}
	if used, _ := env.attempts.CountUsed(ctx, 10, env.exam.ID); used != 1 {
		t.Errorf("used = %d after resume, want 1", used)
	}
}

func TestStartAttemptPreconditions(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(env *attemptEnv)
		wantErr error
	}{
		{
			name:    "inactive batch",
			mutate:  func(env *attemptEnv) { env.batches.batches[1].IsActive = false },
			wantErr: ErrExamNotVisible,
		},
		{
			name:    "inactive exam",
			mutate:  func(env *attemptEnv) { env.exams.exams[env.exam.ID].IsActive = false },
			wantErr: ErrExamNotVisible,
		},
		{
			name:    "exam not assigned to batch",
			mutate:  func(env *attemptEnv) { delete(env.exams.assigned[env.exam.ID], 1) },
			wantErr: ErrExamNotVisible,
		},
		{
			name:    "no subscription",
			mutate:  func(env *attemptEnv) { delete(env.subs.subs, 10) },
			wantErr: ErrSubscriptionRequired,
		},
		{
			name: "expired subscription",
			mutate: func(env *attemptEnv) {
				env.subs.subs[10].ExpiresAt = time.Now().Add(-time.Minute)
			},
			wantErr: ErrSubscriptionExpired,
		},
		{
			name: "already passed",
			mutate: func(env *attemptEnv) {
				passed := true
				env.attempts.put(&model.Attempt{
					StudentID:     10,
					ExamID:        env.exam.ID,
					AttemptNumber: 1,
					Status:        model.AttemptStatusSubmitted,
					Passed:        &passed,
				})
			},
			wantErr: ErrAlreadyPassed,
		},
		{
			name: "latest attempt suspended",
			mutate: func(env *attemptEnv) {
				now := time.Now()
				env.attempts.put(&model.Attempt{
					StudentID:     10,
					ExamID:        env.exam.ID,
					AttemptNumber: 1,
					Status:        model.AttemptStatusSuspended,
					SuspendedAt:   &now,
				})
			},
			wantErr: ErrAttemptSuspended,
		},
		{
			name: "budget exhausted",
			mutate: func(env *attemptEnv) {
				for i := 1; i <= 2; i++ {
					env.attempts.put(&model.Attempt{
						StudentID:     10,
						ExamID:        env.exam.ID,
						AttemptNumber: i,
						Status:        model.AttemptStatusSubmitted,
					})
				}
			},
			wantErr: ErrAttemptsExhausted,
		},
		{
			name: "question pool too small",
			mutate: func(env *attemptEnv) {
				env.exams.exams[env.exam.ID].QuestionsToDisplay = 10
			},
			wantErr: ErrQuestionPoolTooSmall,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newAttemptEnv(t)
			tt.mutate(env)
			_, err := env.svc.StartAttempt(ctx, 10, env.exam.ID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("StartAttempt error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStartAttemptMissingExam(t *testing.T) {
	env := newAttemptEnv(t)
	_, err := env.svc.StartAttempt(context.Background(), 10, uuid.New())
	if !errors.Is(err, ErrExamNotVisible) {
		t.Errorf("StartAttempt error = %v, want %v", err, ErrExamNotVisible)
	}
}

func TestAbandonedAttemptsDoNotCountAgainstBudget(t *testing.T) {
	env := newAttemptEnv(t)
	ctx := context.Background()

	env.attempts.put(&model.Attempt{
		StudentID:     10,
		ExamID:        env.exam.ID,
		AttemptNumber: 1,
		Status:        model.AttemptStatusAbandoned,
	})
	env.attempts.put(&model.Attempt{
		StudentID:     10,
		ExamID:        env.exam.ID,
		AttemptNumber: 2,
		Status:        model.AttemptStatusSubmitted,
	})

	// Budget is 2: one submitted plus one abandoned leaves one usable slot.
	attempt, err := env.svc.StartAttempt(ctx, 10, env.exam.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if attempt.AttemptNumber != 3 {
		t.Errorf("attempt number = %d, want 3 (numbering spans abandoned attempts)", attempt.AttemptNumber)
	}
}

func TestSubmitAttemptScoresSelectedSubsetOnly(t *testing.T) {
	env := newAttemptEnv(t)
	ctx := context.Background()

	attempt, err := env.svc.StartAttempt(ctx, 10, env.exam.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	// Answer two drawn questions correctly (option 0) and one question
	// outside the drawn subset, which must not contribute to the score.
	var outside uuid.UUID
	drawn := make(map[uuid.UUID]bool)
	for _, id := range attempt.SelectedQuestionIDs {
		drawn[id] = true
	}
	for _, q := range env.pool {
		if !drawn[q.ID] {
			outside = q.ID
			break
		}
	}

	answers := []model.AnswerSubmission{
		{QuestionID: attempt.SelectedQuestionIDs[0], SelectedOption: 0},
		{QuestionID: attempt.SelectedQuestionIDs[1], SelectedOption: 0},
		{QuestionID: attempt.SelectedQuestionIDs[2], SelectedOption: 1},
		{QuestionID: outside, SelectedOption: 0},
	}

	result, err := env.svc.SubmitAttempt(ctx, attempt.ID, answers)
	if err != nil {
		t.Fatalf("SubmitAttempt: %v", err)
	}
	if result.Score == nil || *result.Score != 2 {
		t.Fatalf("score = %v, want 2", result.Score)
	}
	if result.Percentage == nil || *result.Percentage < 66.6 || *result.Percentage > 66.7 {
		t.Errorf("percentage = %v, want ~66.67", result.Percentage)
	}
	if result.Passed == nil || !*result.Passed {
		t.Errorf("passed = %v, want true at 50%% threshold", result.Passed)
	}
	if result.Status != model.AttemptStatusSubmitted {
		t.Errorf("status = %s, want %s", result.Status, model.AttemptStatusSubmitted)
	}
	if len(env.dispatcher.dispatched) != 1 {
		t.Errorf("certificate dispatches = %d, want 1", len(env.dispatcher.dispatched))
	}
}

func TestSubmitAttemptIsIdempotent(t *testing.T) {
	env := newAttemptEnv(t)
	ctx := context.Background()

	attempt, err := env.svc.StartAttempt(ctx, 10, env.exam.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	answers := []model.AnswerSubmission{
		{QuestionID: attempt.SelectedQuestionIDs[0], SelectedOption: 0},
	}
	first, err := env.svc.SubmitAttempt(ctx, attempt.ID, answers)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}

	// Resubmitting with different (better) answers returns the stored
	// result; nothing is rescored.
	better := []model.AnswerSubmission{
		{QuestionID: attempt.SelectedQuestionIDs[0], SelectedOption: 0},
		{QuestionID: attempt.SelectedQuestionIDs[1], SelectedOption: 0},
		{QuestionID: attempt.SelectedQuestionIDs[2], SelectedOption: 0},
	}
	second, err := env.svc.SubmitAttempt(ctx, attempt.ID, better)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if *second.Score != *first.Score {
		t.Errorf("resubmit changed score from %d to %d", *first.Score, *second.Score)
	}
}

func TestSubmitAttemptFailsBelowThreshold(t *testing.T) {
	env := newAttemptEnv(t)
	ctx := context.Background()

	attempt, err := env.svc.StartAttempt(ctx, 10, env.exam.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	result, err := env.svc.SubmitAttempt(ctx, attempt.ID, []model.AnswerSubmission{
		{QuestionID: attempt.SelectedQuestionIDs[0], SelectedOption: 1},
	})
	if err != nil {
		t.Fatalf("SubmitAttempt: %v", err)
	}
	if result.Passed == nil || *result.Passed {
		t.Errorf("passed = %v, want false", result.Passed)
	}
	if len(env.dispatcher.dispatched) != 0 {
		t.Errorf("certificate dispatched on a failed attempt")
	}
}

func TestSubmitAttemptSkipsDeletedQuestions(t *testing.T) {
	env := newAttemptEnv(t)
	ctx := context.Background()

	attempt, err := env.svc.StartAttempt(ctx, 10, env.exam.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	// Delete one drawn question from the pool mid-attempt.
	deleted := attempt.SelectedQuestionIDs[0]
	var kept []model.Question
	for _, q := range env.questions.byExam[env.exam.ID] {
		if q.ID != deleted {
			kept = append(kept, q)
		}
	}
	env.questions.byExam[env.exam.ID] = kept

	result, err := env.svc.SubmitAttempt(ctx, attempt.ID, []model.AnswerSubmission{
		{QuestionID: attempt.SelectedQuestionIDs[0], SelectedOption: 0},
		{QuestionID: attempt.SelectedQuestionIDs[1], SelectedOption: 0},
		{QuestionID: attempt.SelectedQuestionIDs[2], SelectedOption: 0},
	})
	if err != nil {
		t.Fatalf("SubmitAttempt: %v", err)
	}
	// Deleted question cannot score, but the denominator stays at the
	// drawn size.
	if *result.Score != 2 {
		t.Errorf("score = %d, want 2", *result.Score)
	}
	if *result.Percentage < 66.6 || *result.Percentage > 66.7 {
		t.Errorf("percentage = %v, want ~66.67 (denominator unchanged)", *result.Percentage)
	}
}

func TestSubmitAttemptRejectsSuspendedAndAbandoned(t *testing.T) {
	env := newAttemptEnv(t)
	ctx := context.Background()
	now := time.Now()

	suspended := env.attempts.put(&model.Attempt{
		StudentID:      10,
		ExamID:         env.exam.ID,
		AttemptNumber:  1,
		Status:         model.AttemptStatusSuspended,
		SuspendedAt:    &now,
		TotalQuestions: 3,
	})
	if _, err := env.svc.SubmitAttempt(ctx, suspended.ID, nil); !errors.Is(err, ErrAttemptSuspended) {
		t.Errorf("submit suspended error = %v, want %v", err, ErrAttemptSuspended)
	}

	abandoned := env.attempts.put(&model.Attempt{
		StudentID:      10,
		ExamID:         env.exam.ID,
		AttemptNumber:  2,
		Status:         model.AttemptStatusAbandoned,
		TotalQuestions: 3,
	})
	if _, err := env.svc.SubmitAttempt(ctx, abandoned.ID, nil); !errors.Is(err, ErrAttemptAbandoned) {
		t.Errorf("submit abandoned error = %v, want %v", err, ErrAttemptAbandoned)
	}
}
