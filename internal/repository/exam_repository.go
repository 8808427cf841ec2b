package repository

import (
	"context"

	"github.com/certiva/examportal-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ExamRepository handles exam data access, including batch assignments.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `id, name, course_id, duration_minutes, total_marks,
	pass_percentage, total_questions, questions_to_display, is_active,
	created_at, updated_at`

func scanExam(row interface{ Scan(...any) error }) (*model.Exam, error) {
	e := &model.Exam{}
	err := row.Scan(&e.ID, &e.Name, &e.CourseID, &e.DurationMinutes,
		&e.TotalMarks, &e.PassPercentage, &e.TotalQuestions,
		&e.QuestionsToDisplay, &e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams
		 (name, course_id, duration_minutes, total_marks, pass_percentage,
		  total_questions, questions_to_display, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		e.Name, e.CourseID, e.DurationMinutes, e.TotalMarks, e.PassPercentage,
		e.TotalQuestions, e.QuestionsToDisplay, e.IsActive,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}

// GetByID retrieves an exam by ID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
}

// Update replaces exam configuration.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams
		 SET name = $1, course_id = $2, duration_minutes = $3, total_marks = $4,
		     pass_percentage = $5, total_questions = $6, questions_to_display = $7,
		     is_active = $8, updated_at = NOW()
		 WHERE id = $9`,
		e.Name, e.CourseID, e.DurationMinutes, e.TotalMarks, e.PassPercentage,
		e.TotalQuestions, e.QuestionsToDisplay, e.IsActive, e.ID)
	return err
}

// Delete removes an exam.
func (r *ExamRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	return err
}

// List returns exams with pagination.
func (r *ExamRepository) List(ctx context.Context, page, perPage int) ([]model.Exam, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM exams`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams
		 ORDER BY created_at DESC
		 LIMIT $1 OFFSET $2`,
		perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, 0, err
		}
		exams = append(exams, *e)
	}
	return exams, total, rows.Err()
}

// ReplaceBatchAssignments replaces the set of batches the exam is visible to.
func (r *ExamRepository) ReplaceBatchAssignments(ctx context.Context, examID uuid.UUID, batchIDs []int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM exam_batches WHERE exam_id = $1`, examID); err != nil {
		return err
	}
	for _, batchID := range batchIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO exam_batches (exam_id, batch_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			examID, batchID); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListBatchIDs returns the IDs of batches assigned to an exam.
func (r *ExamRepository) ListBatchIDs(ctx context.Context, examID uuid.UUID) ([]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT batch_id FROM exam_batches WHERE exam_id = $1`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IsAssignedToBatch reports whether the exam is visible to a batch.
func (r *ExamRepository) IsAssignedToBatch(ctx context.Context, examID uuid.UUID, batchID int) (bool, error) {
	var assigned bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM exam_batches WHERE exam_id = $1 AND batch_id = $2
		 )`, examID, batchID).Scan(&assigned)
	return assigned, err
}

// ListForBatch returns active exams assigned to a batch.
func (r *ExamRepository) ListForBatch(ctx context.Context, batchID int) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams e
		 JOIN exam_batches eb ON eb.exam_id = e.id
		 WHERE eb.batch_id = $1 AND e.is_active = TRUE
		 ORDER BY e.created_at DESC`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, err
		}
		exams = append(exams, *e)
	}
	return exams, rows.Err()
}
