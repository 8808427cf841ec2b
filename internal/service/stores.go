package service

import (
	"context"
	"time"

	"github.com/certiva/examportal-backend/internal/model"
	"github.com/google/uuid"
)

// Narrow store interfaces the engine services depend on. The pgx
// repositories satisfy them; tests substitute in-memory fakes so the
// attempt, incident and suspension logic can be exercised without a
// database.

// AttemptStore is the persistence surface of the attempt engine and the
// suspension workflow.
type AttemptStore interface {
	Create(ctx context.Context, a *model.Attempt) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	GetActiveByStudent(ctx context.Context, studentID int) (*model.Attempt, error)
	ListByStudentAndExam(ctx context.Context, studentID int, examID uuid.UUID) ([]model.Attempt, error)
	CountUsed(ctx context.Context, studentID int, examID uuid.UUID) (int, error)
	HasPassed(ctx context.Context, studentID int, examID uuid.UUID) (bool, error)
	RecordSubmission(ctx context.Context, a *model.Attempt) error
	TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error
	RemoveSuspension(ctx context.Context, id uuid.UUID, extraIncidents int, paymentRef string, at time.Time) (int64, error)
	Abandon(ctx context.Context, id uuid.UUID) (int64, error)
	CreateGrant(ctx context.Context, g *model.AttemptGrant) error
	SumGrants(ctx context.Context, studentID int, examID uuid.UUID) (int, error)
}

// ExamStore resolves exams and their batch assignments.
type ExamStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	IsAssignedToBatch(ctx context.Context, examID uuid.UUID, batchID int) (bool, error)
}

// QuestionStore resolves the question pool for drawing and scoring.
type QuestionStore interface {
	ListIDsByExam(ctx context.Context, examID uuid.UUID) ([]uuid.UUID, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Question, error)
}

// StudentStore resolves students to their batch.
type StudentStore interface {
	GetByID(ctx context.Context, id int) (*model.Student, error)
}

// BatchStore resolves per-batch proctoring configuration.
type BatchStore interface {
	GetByID(ctx context.Context, id int) (*model.Batch, error)
}

// SubscriptionStore resolves a student's subscription for a plan.
type SubscriptionStore interface {
	GetCurrent(ctx context.Context, studentID, planID int) (*model.Subscription, error)
}

// IncidentLedger is the append-only proctoring ledger with its atomic
// record-then-check-then-suspend operation.
type IncidentLedger interface {
	AppendWithAutoSuspend(ctx context.Context, inc *model.SecurityIncident, threshold int, autoSuspend bool) (count int, suspendedNow bool, err error)
	CountByAttempt(ctx context.Context, attemptID uuid.UUID) (int, error)
	ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.SecurityIncident, error)
	Recent(ctx context.Context, n int) ([]model.SecurityIncident, error)
	GroupByType(ctx context.Context) ([]model.IncidentTypeCount, error)
	TopStudents(ctx context.Context, n int) ([]model.StudentIncidentCount, error)
}

// CertificateDispatcher hands passed results to the certificate/notification
// pipeline. Dispatch is fire-and-forget relative to the scoring transaction.
type CertificateDispatcher interface {
	Dispatch(ctx context.Context, attemptID uuid.UUID, studentID int, examID uuid.UUID) error
}
