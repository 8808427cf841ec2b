package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/certiva/examportal-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// ErrAttemptAbandoned is returned when a terminal abandoned attempt is acted on.
var ErrAttemptAbandoned = errors.New("attempt was abandoned")

// AttemptService is the attempt engine: it decides whether a student may
// start an exam, draws the question subset for an attempt, and scores
// submissions.
type AttemptService struct {
	attempts  AttemptStore
	exams     ExamStore
	questions QuestionStore
	students  StudentStore
	batches   BatchStore
	subs      SubscriptionStore
	dispatch  CertificateDispatcher
	log       zerolog.Logger
	now       func() time.Time
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	attempts AttemptStore,
	exams ExamStore,
	questions QuestionStore,
	students StudentStore,
	batches BatchStore,
	subs SubscriptionStore,
	dispatch CertificateDispatcher,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attempts:  attempts,
		exams:     exams,
		questions: questions,
		students:  students,
		batches:   batches,
		subs:      subs,
		dispatch:  dispatch,
		log:       log.With().Str("component", "attempt_service").Logger(),
		now:       time.Now,
	}
}

// StartAttempt checks every access precondition in order and, when all pass,
// draws a fresh question subset and opens a new attempt. If the student's
// latest attempt for this exam is still in progress it is returned as-is —
// starting is idempotent across reloads and devices.
func (s *AttemptService) StartAttempt(ctx context.Context, studentID int, examID uuid.UUID) (*model.Attempt, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}

	batch, err := s.batches.GetByID(ctx, student.BatchID)
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	if !batch.IsActive {
		return nil, ErrExamNotVisible
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotVisible
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if !exam.IsActive {
		return nil, ErrExamNotVisible
	}

	assigned, err := s.exams.IsAssignedToBatch(ctx, examID, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("check assignment: %w", err)
	}
	if !assigned {
		return nil, ErrExamNotVisible
	}

	if err := s.checkSubscription(ctx, studentID, batch.PlanID); err != nil {
		return nil, err
	}

	passed, err := s.attempts.HasPassed(ctx, studentID, examID)
	if err != nil {
		return nil, fmt.Errorf("check passed: %w", err)
	}
	if passed {
		return nil, ErrAlreadyPassed
	}

	// Resume an open attempt instead of consuming budget; a suspended
	// attempt blocks starting until it is resolved.
	prior, err := s.attempts.ListByStudentAndExam(ctx, studentID, examID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	if n := len(prior); n > 0 {
		switch last := prior[n-1]; last.Status {
		case model.AttemptStatusInProgress:
			return &last, nil
		case model.AttemptStatusSuspended:
			return nil, ErrAttemptSuspended
		}
	}

	used, err := s.attempts.CountUsed(ctx, studentID, examID)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	granted, err := s.attempts.SumGrants(ctx, studentID, examID)
	if err != nil {
		return nil, fmt.Errorf("sum grants: %w", err)
	}
	if used >= batch.MaxAttempts+granted {
		return nil, ErrAttemptsExhausted
	}

	selected, err := s.drawQuestions(ctx, exam)
	if err != nil {
		return nil, err
	}

	// Numbering runs over the full history including abandoned attempts,
	// so the unique (student, exam, attempt_number) constraint holds even
	// though abandoned attempts do not consume budget.
	attempt := &model.Attempt{
		StudentID:           studentID,
		ExamID:              examID,
		AttemptNumber:       len(prior) + 1,
		Status:              model.AttemptStatusInProgress,
		SelectedQuestionIDs: selected,
		TotalQuestions:      len(selected),
	}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	s.log.Info().
		Int("student_id", studentID).
		Str("exam_id", examID.String()).
		Int("attempt_number", attempt.AttemptNumber).
		Msg("Attempt started")

	return attempt, nil
}

// SubmitAttempt scores the submitted answers strictly against the attempt's
// persisted question subset; answers for questions outside the subset are
// ignored. Resubmitting an already-submitted attempt returns the stored
// result unchanged — no rescoring.
func (s *AttemptService) SubmitAttempt(ctx context.Context, attemptID uuid.UUID, answers []model.AnswerSubmission) (*model.Attempt, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}

	switch attempt.Status {
	case model.AttemptStatusSubmitted:
		return attempt, nil
	case model.AttemptStatusSuspended:
		return nil, ErrAttemptSuspended
	case model.AttemptStatusAbandoned:
		return nil, ErrAttemptAbandoned
	}

	exam, err := s.exams.GetByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	questions, err := s.questions.GetByIDs(ctx, attempt.SelectedQuestionIDs)
	if err != nil {
		return nil, fmt.Errorf("get questions: %w", err)
	}

	chosen := make(map[uuid.UUID]int, len(answers))
	for _, ans := range answers {
		chosen[ans.QuestionID] = ans.SelectedOption
	}

	score := 0
	for _, qid := range attempt.SelectedQuestionIDs {
		q, ok := questions[qid]
		if !ok {
			continue // Question deleted mid-attempt; cannot count it
		}
		if sel, ok := chosen[qid]; ok && sel == q.CorrectIndex() {
			score++
		}
	}

	percentage := 0.0
	if attempt.TotalQuestions > 0 {
		percentage = float64(score) / float64(attempt.TotalQuestions) * 100
	}
	passed := percentage >= exam.PassPercentage
	now := s.now()

	attempt.Score = &score
	attempt.Percentage = &percentage
	attempt.Passed = &passed
	attempt.SubmittedAt = &now
	attempt.LastActiveAt = now
	attempt.Status = model.AttemptStatusSubmitted

	if err := s.attempts.RecordSubmission(ctx, attempt); err != nil {
		return nil, fmt.Errorf("record submission: %w", err)
	}

	// Certificate/notification dispatch never blocks or fails the submit.
	if passed && s.dispatch != nil {
		if err := s.dispatch.Dispatch(ctx, attempt.ID, attempt.StudentID, attempt.ExamID); err != nil {
			s.log.Error().Err(err).
				Str("attempt_id", attempt.ID.String()).
				Msg("Certificate dispatch failed, result is recorded")
		}
	}

	return attempt, nil
}

// Heartbeat refreshes the attempt's activity timestamp.
func (s *AttemptService) Heartbeat(ctx context.Context, attemptID uuid.UUID) error {
	return s.attempts.TouchLastActive(ctx, attemptID, s.now())
}

// GetResult returns an attempt for result display.
func (s *AttemptService) GetResult(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	return s.attempts.GetByID(ctx, attemptID)
}

// ListResults returns all attempts of a (student, exam) pair.
func (s *AttemptService) ListResults(ctx context.Context, studentID int, examID uuid.UUID) ([]model.Attempt, error) {
	return s.attempts.ListByStudentAndExam(ctx, studentID, examID)
}

func (s *AttemptService) checkSubscription(ctx context.Context, studentID, planID int) error {
	sub, err := s.subs.GetCurrent(ctx, studentID, planID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSubscriptionRequired
		}
		return fmt.Errorf("get subscription: %w", err)
	}
	if !sub.ActiveAt(s.now()) {
		return ErrSubscriptionExpired
	}
	return nil
}

// drawQuestions draws a uniform-random subset of questionsToDisplay IDs from
// the exam's pool, without replacement. The draw happens exactly once per
// attempt; the subset is persisted and never re-randomized.
func (s *AttemptService) drawQuestions(ctx context.Context, exam *model.Exam) ([]uuid.UUID, error) {
	pool, err := s.questions.ListIDsByExam(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("list question pool: %w", err)
	}
	if len(pool) < exam.QuestionsToDisplay {
		return nil, ErrQuestionPoolTooSmall
	}

	selected := make([]uuid.UUID, 0, exam.QuestionsToDisplay)
	for _, i := range rand.Perm(len(pool))[:exam.QuestionsToDisplay] {
		selected = append(selected, pool[i])
	}
	return selected, nil
}
