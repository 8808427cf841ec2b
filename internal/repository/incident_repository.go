package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/certiva/examportal-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IncidentRepository handles the append-only security incident ledger.
type IncidentRepository struct {
	pool *pgxpool.Pool
}

// NewIncidentRepository creates a new IncidentRepository.
func NewIncidentRepository(pool *pgxpool.Pool) *IncidentRepository {
	return &IncidentRepository{pool: pool}
}

// AppendWithAutoSuspend appends an incident and, when autoSuspend is set and
// the running count for the attempt reaches threshold, suspends the attempt —
// all in one transaction holding a row lock on the attempt, so two incident
// reports racing each other can never suspend twice. The incident that
// crosses the threshold is stored with caused_suspension = TRUE.
// Returns the running incident count and whether this call suspended.
func (r *IncidentRepository) AppendWithAutoSuspend(ctx context.Context, inc *model.SecurityIncident, threshold int, autoSuspend bool) (count int, suspendedNow bool, err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the attempt row for the duration of record-then-check-then-suspend.
	var status model.AttemptStatus
	err = tx.QueryRow(ctx,
		`SELECT status FROM attempts WHERE id = $1 FOR UPDATE`,
		inc.AttemptID).Scan(&status)
	if err != nil {
		return 0, false, fmt.Errorf("lock attempt: %w", err)
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO security_incidents
		 (student_id, exam_id, attempt_id, type, details, caused_suspension)
		 VALUES ($1, $2, $3, $4, $5, FALSE)
		 RETURNING id, created_at`,
		inc.StudentID, inc.ExamID, inc.AttemptID, inc.Type, inc.Details,
	).Scan(&inc.ID, &inc.CreatedAt)
	if err != nil {
		return 0, false, fmt.Errorf("insert incident: %w", err)
	}

	var running int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM security_incidents WHERE attempt_id = $1`,
		inc.AttemptID).Scan(&running)
	if err != nil {
		return 0, false, fmt.Errorf("count incidents: %w", err)
	}

	// Already-suspended attempts keep accumulating ledger entries but are
	// never re-suspended.
	if autoSuspend && status == model.AttemptStatusInProgress && running >= threshold {
		now := time.Now()
		if _, err = tx.Exec(ctx,
			`UPDATE attempts
			 SET status = $1, suspended_at = $2, incident_count_at_suspension = $3
			 WHERE id = $4`,
			model.AttemptStatusSuspended, now, running, inc.AttemptID); err != nil {
			return 0, false, fmt.Errorf("suspend attempt: %w", err)
		}
		if _, err = tx.Exec(ctx,
			`UPDATE security_incidents SET caused_suspension = TRUE WHERE id = $1`,
			inc.ID); err != nil {
			return 0, false, fmt.Errorf("mark incident: %w", err)
		}
		inc.CausedSuspension = true
		suspendedNow = true
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, false, fmt.Errorf("commit: %w", err)
	}
	return running, suspendedNow, nil
}

// CountByAttempt returns the ledger entry count for one attempt.
func (r *IncidentRepository) CountByAttempt(ctx context.Context, attemptID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM security_incidents WHERE attempt_id = $1`,
		attemptID).Scan(&n)
	return n, err
}

// ListByAttempt returns the ledger entries for one attempt, oldest first.
func (r *IncidentRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.SecurityIncident, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_id, exam_id, attempt_id, type, details, caused_suspension, created_at
		 FROM security_incidents
		 WHERE attempt_id = $1
		 ORDER BY created_at ASC`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIncidents(rows)
}

// Recent returns the most recent n incidents across the whole ledger.
func (r *IncidentRepository) Recent(ctx context.Context, n int) ([]model.SecurityIncident, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_id, exam_id, attempt_id, type, details, caused_suspension, created_at
		 FROM security_incidents
		 ORDER BY created_at DESC
		 LIMIT $1`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIncidents(rows)
}

// GroupByType aggregates incident counts per type, largest first.
func (r *IncidentRepository) GroupByType(ctx context.Context) ([]model.IncidentTypeCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT type, COUNT(*) FROM security_incidents
		 GROUP BY type
		 ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.IncidentTypeCount
	for rows.Next() {
		var row model.IncidentTypeCount
		if err := rows.Scan(&row.Type, &row.Count); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// TopStudents returns the n students with the most incidents, across all
// attempts and exams.
func (r *IncidentRepository) TopStudents(ctx context.Context, n int) ([]model.StudentIncidentCount, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT si.student_id, s.name, COUNT(*)
		 FROM security_incidents si
		 JOIN students s ON si.student_id = s.id
		 GROUP BY si.student_id, s.name
		 ORDER BY COUNT(*) DESC
		 LIMIT $1`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.StudentIncidentCount
	for rows.Next() {
		var row model.StudentIncidentCount
		if err := rows.Scan(&row.StudentID, &row.StudentName, &row.Count); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// CountByExamAndStudent returns per-student incident totals for one exam
// (cross-attempt, reporting only — the suspension trigger is per attempt).
func (r *IncidentRepository) CountByExamAndStudent(ctx context.Context, examID uuid.UUID) (map[int]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT student_id, COUNT(*)
		 FROM security_incidents
		 WHERE exam_id = $1
		 GROUP BY student_id`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int64)
	for rows.Next() {
		var sid int
		var count int64
		if err := rows.Scan(&sid, &count); err != nil {
			return nil, err
		}
		counts[sid] = count
	}
	return counts, rows.Err()
}

func scanIncidents(rows interface {
	Next() bool
	Scan(...any) error
	Err() error
}) ([]model.SecurityIncident, error) {
	var incidents []model.SecurityIncident
	for rows.Next() {
		var inc model.SecurityIncident
		if err := rows.Scan(&inc.ID, &inc.StudentID, &inc.ExamID, &inc.AttemptID,
			&inc.Type, &inc.Details, &inc.CausedSuspension, &inc.CreatedAt); err != nil {
			return nil, err
		}
		incidents = append(incidents, inc)
	}
	return incidents, rows.Err()
}
