package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/certiva/examportal-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptRepository handles attempt and attempt-grant data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, student_id, exam_id, attempt_number, status,
	started_at, last_active_at, submitted_at, selected_question_ids,
	score, total_questions, percentage, passed,
	suspended_at, incident_count_at_suspension, extra_incidents_allowed,
	suspension_payment_ref, certificate_id`

func scanAttempt(row interface{ Scan(...any) error }) (*model.Attempt, error) {
	a := &model.Attempt{}
	var selected []byte
	err := row.Scan(
		&a.ID, &a.StudentID, &a.ExamID, &a.AttemptNumber, &a.Status,
		&a.StartedAt, &a.LastActiveAt, &a.SubmittedAt, &selected,
		&a.Score, &a.TotalQuestions, &a.Percentage, &a.Passed,
		&a.SuspendedAt, &a.IncidentCountAtSuspension, &a.ExtraIncidentsAllowed,
		&a.SuspensionPaymentRef, &a.CertificateID,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(selected, &a.SelectedQuestionIDs); err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts a new attempt. The (student_id, exam_id, attempt_number)
// unique constraint rejects a concurrent duplicate start.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	selected, err := json.Marshal(a.SelectedQuestionIDs)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempts
		 (student_id, exam_id, attempt_number, status, last_active_at,
		  selected_question_ids, total_questions, extra_incidents_allowed)
		 VALUES ($1, $2, $3, $4, NOW(), $5, $6, 0)
		 RETURNING id, started_at, last_active_at`,
		a.StudentID, a.ExamID, a.AttemptNumber, a.Status, selected, a.TotalQuestions,
	).Scan(&a.ID, &a.StartedAt, &a.LastActiveAt)
}

// GetByID retrieves an attempt by its ID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id))
}

// GetActiveByStudent returns the student's single in-progress attempt, if any.
func (r *AttemptRepository) GetActiveByStudent(ctx context.Context, studentID int) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE student_id = $1 AND status = $2
		 ORDER BY started_at DESC LIMIT 1`,
		studentID, model.AttemptStatusInProgress))
}

// ListByStudentAndExam returns all attempts for a (student, exam) pair,
// oldest first.
func (r *AttemptRepository) ListByStudentAndExam(ctx context.Context, studentID int, examID uuid.UUID) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE student_id = $1 AND exam_id = $2
		 ORDER BY attempt_number ASC`,
		studentID, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// CountUsed counts attempts that consume budget (everything except abandoned).
func (r *AttemptRepository) CountUsed(ctx context.Context, studentID int, examID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts
		 WHERE student_id = $1 AND exam_id = $2 AND status <> $3`,
		studentID, examID, model.AttemptStatusAbandoned).Scan(&n)
	return n, err
}

// HasPassed reports whether any attempt for the pair has passed.
func (r *AttemptRepository) HasPassed(ctx context.Context, studentID int, examID uuid.UUID) (bool, error) {
	var passed bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM attempts
		   WHERE student_id = $1 AND exam_id = $2 AND passed = TRUE
		 )`, studentID, examID).Scan(&passed)
	return passed, err
}

// RecordSubmission stores the scored result and marks the attempt submitted.
func (r *AttemptRepository) RecordSubmission(ctx context.Context, a *model.Attempt) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, score = $2, percentage = $3, passed = $4,
		     submitted_at = $5, last_active_at = $5
		 WHERE id = $6`,
		model.AttemptStatusSubmitted, a.Score, a.Percentage, a.Passed,
		a.SubmittedAt, a.ID)
	return err
}

// TouchLastActive refreshes the heartbeat timestamp for an in-progress attempt.
func (r *AttemptRepository) TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts SET last_active_at = $1
		 WHERE id = $2 AND status = $3`,
		at, id, model.AttemptStatusInProgress)
	return err
}

// Suspend transitions an in-progress attempt to suspended. Returns the number
// of rows changed so callers can detect a lost race.
func (r *AttemptRepository) Suspend(ctx context.Context, id uuid.UUID, incidentCount int, at time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, suspended_at = $2, incident_count_at_suspension = $3
		 WHERE id = $4 AND status = $5`,
		model.AttemptStatusSuspended, at, incidentCount,
		id, model.AttemptStatusInProgress)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RemoveSuspension resumes a suspended attempt. The elapsed clock is shifted
// forward by the frozen interval so time spent suspended never counts against
// the student; the incident allowance grows by extraIncidents.
func (r *AttemptRepository) RemoveSuspension(ctx context.Context, id uuid.UUID, extraIncidents int, paymentRef string, at time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1,
		     started_at = started_at + ($2 - suspended_at),
		     last_active_at = $2,
		     suspended_at = NULL,
		     extra_incidents_allowed = extra_incidents_allowed + $3,
		     suspension_payment_ref = $4
		 WHERE id = $5 AND status = $6`,
		model.AttemptStatusInProgress, at, extraIncidents, paymentRef,
		id, model.AttemptStatusSuspended)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Abandon marks a suspended attempt abandoned (terminal, no payment).
func (r *AttemptRepository) Abandon(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE attempts SET status = $1
		 WHERE id = $2 AND status = $3`,
		model.AttemptStatusAbandoned, id, model.AttemptStatusSuspended)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// SetCertificate records the issued certificate reference, once.
func (r *AttemptRepository) SetCertificate(ctx context.Context, id, certificateID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts SET certificate_id = $1
		 WHERE id = $2 AND passed = TRUE AND certificate_id IS NULL`,
		certificateID, id)
	return err
}

// ─── Grants ─────────────────────────────────────────────────────────────────

// CreateGrant records a payment-backed attempt grant.
func (r *AttemptRepository) CreateGrant(ctx context.Context, g *model.AttemptGrant) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempt_grants (student_id, exam_id, attempts_granted, payment_ref)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		g.StudentID, g.ExamID, g.AttemptsGranted, g.PaymentRef,
	).Scan(&g.ID, &g.CreatedAt)
}

// SumGrants returns the total attempts granted for a (student, exam) pair.
func (r *AttemptRepository) SumGrants(ctx context.Context, studentID int, examID uuid.UUID) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(attempts_granted), 0) FROM attempt_grants
		 WHERE student_id = $1 AND exam_id = $2`,
		studentID, examID).Scan(&total)
	return total, err
}
