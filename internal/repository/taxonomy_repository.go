package repository

import (
	"context"

	"github.com/certiva/examportal-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TaxonomyRepository handles colleges, subjects and courses — the small
// lookup entities batches and exams hang off.
type TaxonomyRepository struct {
	pool *pgxpool.Pool
}

// NewTaxonomyRepository creates a new TaxonomyRepository.
func NewTaxonomyRepository(pool *pgxpool.Pool) *TaxonomyRepository {
	return &TaxonomyRepository{pool: pool}
}

// ─── Colleges ───────────────────────────────────────────────────────────────

func (r *TaxonomyRepository) CreateCollege(ctx context.Context, c *model.College) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO colleges (name, code) VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		c.Name, c.Code).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *TaxonomyRepository) ListColleges(ctx context.Context) ([]model.College, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, code, created_at, updated_at FROM colleges ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var colleges []model.College
	for rows.Next() {
		var c model.College
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		colleges = append(colleges, c)
	}
	return colleges, rows.Err()
}

func (r *TaxonomyRepository) DeleteCollege(ctx context.Context, id int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM colleges WHERE id = $1`, id)
	return err
}

// ─── Subjects ───────────────────────────────────────────────────────────────

func (r *TaxonomyRepository) CreateSubject(ctx context.Context, s *model.Subject) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO subjects (name) VALUES ($1)
		 RETURNING id, created_at, updated_at`,
		s.Name).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *TaxonomyRepository) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, created_at, updated_at FROM subjects ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []model.Subject
	for rows.Next() {
		var s model.Subject
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}

func (r *TaxonomyRepository) DeleteSubject(ctx context.Context, id int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	return err
}

// ─── Courses ────────────────────────────────────────────────────────────────

func (r *TaxonomyRepository) CreateCourse(ctx context.Context, c *model.Course) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO courses (name, subject_id) VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		c.Name, c.SubjectID).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *TaxonomyRepository) ListCourses(ctx context.Context, subjectID *int) ([]model.Course, error) {
	query := `SELECT id, name, subject_id, created_at, updated_at FROM courses`
	args := []any{}
	if subjectID != nil {
		query += ` WHERE subject_id = $1`
		args = append(args, *subjectID)
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Name, &c.SubjectID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

func (r *TaxonomyRepository) DeleteCourse(ctx context.Context, id int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	return err
}
