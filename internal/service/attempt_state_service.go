package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/certiva/examportal-backend/internal/config"
	"github.com/certiva/examportal-backend/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// LobbyStatus is the state of an exam as shown in the student lobby.
type LobbyStatus string

const (
	LobbyStatusAvailable  LobbyStatus = "AVAILABLE"
	LobbyStatusInProgress LobbyStatus = "IN_PROGRESS"
	LobbyStatusSuspended  LobbyStatus = "SUSPENDED"
	LobbyStatusPassed     LobbyStatus = "PASSED"
	LobbyStatusExhausted  LobbyStatus = "EXHAUSTED"
)

// LobbyExam is one exam row in the student lobby with the student's attempt
// standing overlaid.
type LobbyExam struct {
	model.Exam
	LobbyStatus    LobbyStatus `json:"lobby_status"`
	AttemptsUsed   int         `json:"attempts_used"`
	AttemptsBudget int         `json:"attempts_budget"`
	BestPercentage *float64    `json:"best_percentage,omitempty"`
}

// AttemptStateService serves the live side of an attempt: the lobby view,
// reload-safe state recovery, and write-behind autosave through Redis.
type AttemptStateService struct {
	attempts AttemptStore
	students StudentStore
	batches  BatchStore
	exams    ExamLister
	rdb      *redis.Client
	log      zerolog.Logger
	now      func() time.Time
}

// ExamLister resolves the exams visible to a batch.
type ExamLister interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ListForBatch(ctx context.Context, batchID int) ([]model.Exam, error)
}

// NewAttemptStateService creates a new AttemptStateService.
func NewAttemptStateService(
	attempts AttemptStore,
	students StudentStore,
	batches BatchStore,
	exams ExamLister,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptStateService {
	return &AttemptStateService{
		attempts: attempts,
		students: students,
		batches:  batches,
		exams:    exams,
		rdb:      rdb,
		log:      log.With().Str("component", "attempt_state_service").Logger(),
		now:      time.Now,
	}
}

// GetLobby returns the exams assigned to the student's batch with their
// attempt standing: whether each exam can still be started, is underway,
// suspended, already passed, or out of budget.
func (s *AttemptStateService) GetLobby(ctx context.Context, studentID int) ([]LobbyExam, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	batch, err := s.batches.GetByID(ctx, student.BatchID)
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}

	exams, err := s.exams.ListForBatch(ctx, batch.ID)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}

	lobby := make([]LobbyExam, 0, len(exams))
	for _, exam := range exams {
		attempts, err := s.attempts.ListByStudentAndExam(ctx, studentID, exam.ID)
		if err != nil {
			return nil, fmt.Errorf("list attempts: %w", err)
		}
		granted, err := s.attempts.SumGrants(ctx, studentID, exam.ID)
		if err != nil {
			return nil, fmt.Errorf("sum grants: %w", err)
		}

		entry := LobbyExam{
			Exam:           exam,
			AttemptsBudget: batch.MaxAttempts + granted,
		}

		var best *float64
		for _, a := range attempts {
			if a.Status != model.AttemptStatusAbandoned {
				entry.AttemptsUsed++
			}
			if a.Percentage != nil && (best == nil || *a.Percentage > *best) {
				p := *a.Percentage
				best = &p
			}
		}
		entry.BestPercentage = best
		entry.LobbyStatus = deriveLobbyStatus(attempts, entry.AttemptsUsed, entry.AttemptsBudget)

		lobby = append(lobby, entry)
	}

	return lobby, nil
}

func deriveLobbyStatus(attempts []model.Attempt, used, budget int) LobbyStatus {
	for _, a := range attempts {
		if a.Passed != nil && *a.Passed {
			return LobbyStatusPassed
		}
	}
	if n := len(attempts); n > 0 {
		switch attempts[n-1].Status {
		case model.AttemptStatusInProgress:
			return LobbyStatusInProgress
		case model.AttemptStatusSuspended:
			return LobbyStatusSuspended
		}
	}
	if used >= budget {
		return LobbyStatusExhausted
	}
	return LobbyStatusAvailable
}

// GetAttemptState restores an attempt after a reload: autosaved answers from
// the Redis hash and the remaining countdown. The start time is read from
// Redis with a Postgres fallback that self-heals the cache.
func (s *AttemptStateService) GetAttemptState(ctx context.Context, attemptID uuid.UUID) (*model.AttemptState, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}

	answers, err := s.rdb.HGetAll(ctx, config.CacheKey.AttemptAnswersKey(attemptID.String())).Result()
	if err != nil {
		return nil, fmt.Errorf("get autosaved answers: %w", err)
	}

	durationMinutes, err := s.examDuration(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}

	startedAt, err := s.startTime(ctx, attempt)
	if err != nil {
		return nil, err
	}

	ref := s.now()
	if attempt.Status == model.AttemptStatusSuspended && attempt.SuspendedAt != nil {
		// Clock is frozen while suspended.
		ref = *attempt.SuspendedAt
	}
	remaining := startedAt.Add(time.Duration(durationMinutes) * time.Minute).Sub(ref)
	if remaining < 0 {
		remaining = 0
	}

	return &model.AttemptState{
		AttemptID:        attemptID,
		ExamID:           attempt.ExamID,
		AutosavedAnswers: answers,
		RemainingSeconds: remaining.Seconds(),
		Status:           attempt.Status,
	}, nil
}

// SaveAnswer autosaves one answer: it lands in the Redis hash immediately,
// refreshes the heartbeat, and is queued for write-behind persistence.
func (s *AttemptStateService) SaveAnswer(ctx context.Context, attemptID uuid.UUID, questionID uuid.UUID, selectedOption int) error {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return fmt.Errorf("get attempt: %w", err)
	}
	switch attempt.Status {
	case model.AttemptStatusSuspended:
		return ErrAttemptSuspended
	case model.AttemptStatusSubmitted, model.AttemptStatusAbandoned:
		return ErrAttemptAbandoned
	}

	now := s.now()
	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, config.CacheKey.AttemptAnswersKey(attemptID.String()),
		questionID.String(), strconv.Itoa(selectedOption))
	pipe.Set(ctx, config.CacheKey.AttemptLastActiveKey(attemptID.String()), now.Unix(), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("autosave answer: %w", err)
	}

	payload, err := json.Marshal(model.AutosaveRecord{
		AttemptID:      attemptID.String(),
		QuestionID:     questionID.String(),
		SelectedOption: selectedOption,
		SavedAt:        now.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal autosave: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload).Err(); err != nil {
		return fmt.Errorf("enqueue autosave: %w", err)
	}
	return nil
}

// Heartbeat refreshes the live activity key. The persisted last_active_at is
// touched by the caller separately; the Redis key wins on the monitor view
// when fresher.
func (s *AttemptStateService) Heartbeat(ctx context.Context, attemptID uuid.UUID) error {
	return s.rdb.Set(ctx, config.CacheKey.AttemptLastActiveKey(attemptID.String()), s.now().Unix(), 0).Err()
}

// ClearAttemptCache drops the Redis state of a finished attempt.
func (s *AttemptStateService) ClearAttemptCache(ctx context.Context, attemptID uuid.UUID) error {
	keys := []string{
		config.CacheKey.AttemptAnswersKey(attemptID.String()),
		config.CacheKey.AttemptStartKey(attemptID.String()),
		config.CacheKey.AttemptLastActiveKey(attemptID.String()),
	}
	return s.rdb.Del(ctx, keys...).Err()
}

// CacheStartTime primes the Redis start key right after an attempt opens.
func (s *AttemptStateService) CacheStartTime(ctx context.Context, attempt *model.Attempt) {
	key := config.CacheKey.AttemptStartKey(attempt.ID.String())
	if err := s.rdb.Set(ctx, key, attempt.StartedAt.Unix(), 0).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to cache start time")
	}
}

func (s *AttemptStateService) examDuration(ctx context.Context, examID uuid.UUID) (int, error) {
	val, err := s.rdb.Get(ctx, config.CacheKey.ExamDurationKey(examID.String())).Result()
	if err == nil {
		if minutes, convErr := strconv.Atoi(val); convErr == nil {
			return minutes, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("get exam duration: %w", err)
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return 0, fmt.Errorf("get exam: %w", err)
	}
	// Self-heal so the next reload stays off Postgres.
	_ = s.rdb.Set(ctx, config.CacheKey.ExamDurationKey(examID.String()), exam.DurationMinutes, 0).Err()
	return exam.DurationMinutes, nil
}

func (s *AttemptStateService) startTime(ctx context.Context, attempt *model.Attempt) (time.Time, error) {
	key := config.CacheKey.AttemptStartKey(attempt.ID.String())
	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		// Cache miss: Postgres is the source of truth, self-heal Redis.
		_ = s.rdb.Set(ctx, key, attempt.StartedAt.Unix(), 0).Err()
		return attempt.StartedAt, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get start time: %w", err)
	}
	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start time in cache: %w", err)
	}
	return time.Unix(unix, 0), nil
}
