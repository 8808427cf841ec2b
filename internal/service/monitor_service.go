package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/certiva/examportal-backend/internal/model"
	"github.com/certiva/examportal-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MonitorEntry is one live session row on the invigilator dashboard.
type MonitorEntry struct {
	AttemptID     uuid.UUID            `json:"attempt_id"`
	StudentID     int                  `json:"student_id"`
	StudentName   string               `json:"student_name"`
	RollNumber    string               `json:"roll_number"`
	AttemptNumber int                  `json:"attempt_number"`
	Status        model.AttemptStatus  `json:"status"`
	AnsweredCount int64                `json:"answered_count"`
	IncidentCount int                  `json:"incident_count"`
	Metrics       model.SessionMetrics `json:"metrics"`
}

// MonitorOverview is the full dashboard payload for one exam.
type MonitorOverview struct {
	ExamID      uuid.UUID      `json:"exam_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Entries     []MonitorEntry `json:"entries"`
}

// MonitorService assembles the live invigilation view: active attempts from
// Postgres, answered counts and heartbeats from Redis, incident counts from
// the ledger, with session metrics recomputed per poll.
type MonitorService struct {
	monitor *repository.MonitorRepository
	exams   ExamStore
	ledger  IncidentLedger
	log     zerolog.Logger
	now     func() time.Time
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(monitor *repository.MonitorRepository, exams ExamStore, ledger IncidentLedger, log zerolog.Logger) *MonitorService {
	return &MonitorService{
		monitor: monitor,
		exams:   exams,
		ledger:  ledger,
		log:     log.With().Str("component", "monitor_service").Logger(),
		now:     time.Now,
	}
}

// Overview returns the live dashboard snapshot for one exam. The three data
// sources are fetched concurrently; a Redis miss degrades that row to its
// persisted last_active_at instead of failing the whole snapshot.
func (s *MonitorService) Overview(ctx context.Context, examID uuid.UUID) (*MonitorOverview, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	rows, err := s.monitor.GetActiveAttempts(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("get active attempts: %w", err)
	}

	attemptIDs := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		attemptIDs[i] = row.Attempt.ID
	}

	var (
		wg        sync.WaitGroup
		answered  map[uuid.UUID]int64
		heartbeat map[uuid.UUID]time.Time
		incidents = make(map[uuid.UUID]int, len(attemptIDs))
		incMu     sync.Mutex
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		var err error
		answered, err = s.monitor.GetAnsweredCounts(ctx, attemptIDs)
		if err != nil {
			s.log.Error().Err(err).Msg("Failed to fetch answered counts")
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		heartbeat, err = s.monitor.GetLiveLastActive(ctx, attemptIDs)
		if err != nil {
			s.log.Error().Err(err).Msg("Failed to fetch live heartbeats")
		}
	}()
	go func() {
		defer wg.Done()
		for _, id := range attemptIDs {
			n, err := s.ledger.CountByAttempt(ctx, id)
			if err != nil {
				s.log.Error().Err(err).Str("attempt_id", id.String()).Msg("Failed to count incidents")
				continue
			}
			incMu.Lock()
			incidents[id] = n
			incMu.Unlock()
		}
	}()
	wg.Wait()

	now := s.now()
	entries := make([]MonitorEntry, 0, len(rows))
	for _, row := range rows {
		attempt := row.Attempt
		if at, ok := heartbeat[attempt.ID]; ok && at.After(attempt.LastActiveAt) {
			attempt.LastActiveAt = at
		}

		entries = append(entries, MonitorEntry{
			AttemptID:     attempt.ID,
			StudentID:     attempt.StudentID,
			StudentName:   row.StudentName,
			RollNumber:    row.RollNumber,
			AttemptNumber: attempt.AttemptNumber,
			Status:        attempt.Status,
			AnsweredCount: answered[attempt.ID],
			IncidentCount: incidents[attempt.ID],
			Metrics:       ComputeMetrics(&attempt, exam.DurationMinutes, now),
		})
	}

	return &MonitorOverview{
		ExamID:      examID,
		GeneratedAt: now,
		Entries:     entries,
	}, nil
}
