package repository

import (
	"context"

	"github.com/certiva/examportal-backend/internal/model"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BatchRepository handles batch data access.
type BatchRepository struct {
	pool *pgxpool.Pool
}

// NewBatchRepository creates a new BatchRepository.
func NewBatchRepository(pool *pgxpool.Pool) *BatchRepository {
	return &BatchRepository{pool: pool}
}

const batchColumns = `id, name, year, subject_id, college_id, plan_id,
	max_attempts, max_security_incidents, enable_auto_suspend,
	additional_security_incidents_after_removal, additional_attempts_after_payment,
	is_active, created_at, updated_at`

func scanBatch(row interface{ Scan(...any) error }) (*model.Batch, error) {
	b := &model.Batch{}
	err := row.Scan(&b.ID, &b.Name, &b.Year, &b.SubjectID, &b.CollegeID, &b.PlanID,
		&b.MaxAttempts, &b.MaxSecurityIncidents, &b.EnableAutoSuspend,
		&b.AdditionalSecurityIncidentsAfterRemoval, &b.AdditionalAttemptsAfterPayment,
		&b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetByID retrieves a batch by ID.
func (r *BatchRepository) GetByID(ctx context.Context, id int) (*model.Batch, error) {
	return scanBatch(r.pool.QueryRow(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE id = $1`, id))
}

// Create inserts a new batch.
func (r *BatchRepository) Create(ctx context.Context, b *model.Batch) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO batches
		 (name, year, subject_id, college_id, plan_id, max_attempts,
		  max_security_incidents, enable_auto_suspend,
		  additional_security_incidents_after_removal,
		  additional_attempts_after_payment, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at, updated_at`,
		b.Name, b.Year, b.SubjectID, b.CollegeID, b.PlanID, b.MaxAttempts,
		b.MaxSecurityIncidents, b.EnableAutoSuspend,
		b.AdditionalSecurityIncidentsAfterRemoval,
		b.AdditionalAttemptsAfterPayment, b.IsActive,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

// Update replaces batch configuration. The ID never changes.
func (r *BatchRepository) Update(ctx context.Context, b *model.Batch) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE batches
		 SET name = $1, year = $2, subject_id = $3, college_id = $4, plan_id = $5,
		     max_attempts = $6, max_security_incidents = $7, enable_auto_suspend = $8,
		     additional_security_incidents_after_removal = $9,
		     additional_attempts_after_payment = $10, is_active = $11,
		     updated_at = NOW()
		 WHERE id = $12`,
		b.Name, b.Year, b.SubjectID, b.CollegeID, b.PlanID, b.MaxAttempts,
		b.MaxSecurityIncidents, b.EnableAutoSuspend,
		b.AdditionalSecurityIncidentsAfterRemoval,
		b.AdditionalAttemptsAfterPayment, b.IsActive, b.ID)
	return err
}

// Delete removes a batch.
func (r *BatchRepository) Delete(ctx context.Context, id int) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM batches WHERE id = $1`, id)
	return err
}

// List returns all batches, newest year first.
func (r *BatchRepository) List(ctx context.Context) ([]model.Batch, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+batchColumns+` FROM batches ORDER BY year DESC, name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var batches []model.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, *b)
	}
	return batches, rows.Err()
}
