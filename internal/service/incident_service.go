package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/certiva/examportal-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// IncidentReport is what Report returns to the client: the running count for
// the attempt and whether this particular event tripped the auto-suspension.
type IncidentReport struct {
	Incident     model.SecurityIncident `json:"incident"`
	RunningCount int                    `json:"running_count"`
	Suspended    bool                   `json:"suspended"`
}

// IncidentService records proctoring violations into the append-only ledger
// and applies the per-batch auto-suspension policy.
type IncidentService struct {
	ledger   IncidentLedger
	attempts AttemptStore
	students StudentStore
	batches  BatchStore
	exams    ExamStore
	log      zerolog.Logger
}

// NewIncidentService creates a new IncidentService.
func NewIncidentService(
	ledger IncidentLedger,
	attempts AttemptStore,
	students StudentStore,
	batches BatchStore,
	exams ExamStore,
	log zerolog.Logger,
) *IncidentService {
	return &IncidentService{
		ledger:   ledger,
		attempts: attempts,
		students: students,
		batches:  batches,
		exams:    exams,
		log:      log.With().Str("component", "incident_service").Logger(),
	}
}

// Report appends one incident for an attempt. Recording is atomic with the
// threshold check: at most one incident per attempt carries
// caused_suspension, no matter how many reports race in. An unrecognized
// type is normalized to "unknown" and still recorded.
func (s *IncidentService) Report(ctx context.Context, attemptID uuid.UUID, req model.ReportIncidentRequest) (*IncidentReport, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}

	incType := model.IncidentType(req.Type)
	if !model.KnownIncidentType(incType) {
		s.log.Warn().
			Str("attempt_id", attemptID.String()).
			Str("reported_type", req.Type).
			Msg("Unrecognized incident type, storing as unknown")
		incType = model.IncidentTypeUnknown
	}

	threshold, autoSuspend, err := s.policyFor(ctx, attempt)
	if err != nil {
		return nil, err
	}

	examID := attempt.ExamID
	inc := &model.SecurityIncident{
		StudentID: attempt.StudentID,
		ExamID:    &examID,
		AttemptID: attemptID,
		Type:      incType,
		Details:   req.Details,
	}

	count, suspendedNow, err := s.ledger.AppendWithAutoSuspend(ctx, inc, threshold, autoSuspend)
	if err != nil {
		return nil, fmt.Errorf("append incident: %w", err)
	}

	if suspendedNow {
		s.log.Warn().
			Int("student_id", attempt.StudentID).
			Str("attempt_id", attemptID.String()).
			Int("incident_count", count).
			Int("threshold", threshold).
			Msg("Attempt auto-suspended by incident threshold")
	}

	return &IncidentReport{
		Incident:     *inc,
		RunningCount: count,
		Suspended:    suspendedNow,
	}, nil
}

// ResolveExam resolves an incident's exam link. A missing link is a normal
// outcome, not an error: the ledger outlives exam deletion.
func (s *IncidentService) ResolveExam(ctx context.Context, inc model.SecurityIncident) (model.ExamRef, error) {
	if inc.ExamID == nil {
		return model.ExamRef{Orphan: "incident has no exam reference"}, nil
	}
	exam, err := s.exams.GetByID(ctx, *inc.ExamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ExamRef{Orphan: "referenced exam no longer exists"}, nil
		}
		return model.ExamRef{}, fmt.Errorf("get exam: %w", err)
	}
	return model.ExamRef{Exam: exam}, nil
}

// ListForAttempt returns the ledger entries of one attempt, oldest first.
func (s *IncidentService) ListForAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.SecurityIncident, error) {
	return s.ledger.ListByAttempt(ctx, attemptID)
}

// Recent returns the newest n ledger entries across all attempts.
func (s *IncidentService) Recent(ctx context.Context, n int) ([]model.SecurityIncident, error) {
	if n <= 0 || n > 500 {
		n = 50
	}
	return s.ledger.Recent(ctx, n)
}

// CountsByType aggregates ledger entries per incident type.
func (s *IncidentService) CountsByType(ctx context.Context) ([]model.IncidentTypeCount, error) {
	return s.ledger.GroupByType(ctx)
}

// TopStudents returns the n students with the most recorded incidents.
func (s *IncidentService) TopStudents(ctx context.Context, n int) ([]model.StudentIncidentCount, error) {
	if n <= 0 || n > 100 {
		n = 10
	}
	return s.ledger.TopStudents(ctx, n)
}

// policyFor computes the effective suspension policy for an attempt: the
// batch threshold plus whatever extra allowance this attempt earned through
// paid suspension removals.
func (s *IncidentService) policyFor(ctx context.Context, attempt *model.Attempt) (threshold int, autoSuspend bool, err error) {
	student, err := s.students.GetByID(ctx, attempt.StudentID)
	if err != nil {
		return 0, false, fmt.Errorf("get student: %w", err)
	}
	batch, err := s.batches.GetByID(ctx, student.BatchID)
	if err != nil {
		return 0, false, fmt.Errorf("get batch: %w", err)
	}
	return batch.MaxSecurityIncidents + attempt.ExtraIncidentsAllowed, batch.EnableAutoSuspend, nil
}
