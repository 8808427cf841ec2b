package service

import (
	"context"

	"github.com/certiva/examportal-backend/internal/model"
	"github.com/certiva/examportal-backend/internal/repository"
)

// BatchService manages batches and their proctoring configuration.
type BatchService struct {
	batchRepo *repository.BatchRepository
}

// NewBatchService creates a new BatchService.
func NewBatchService(batchRepo *repository.BatchRepository) *BatchService {
	return &BatchService{batchRepo: batchRepo}
}

// GetByID retrieves a batch by ID.
func (s *BatchService) GetByID(ctx context.Context, id int) (*model.Batch, error) {
	return s.batchRepo.GetByID(ctx, id)
}

// List returns all batches.
func (s *BatchService) List(ctx context.Context) ([]model.Batch, error) {
	return s.batchRepo.List(ctx)
}

// Create inserts a new batch.
func (s *BatchService) Create(ctx context.Context, req model.CreateBatchRequest) (*model.Batch, error) {
	batch := &model.Batch{
		Name:                                    req.Name,
		Year:                                    req.Year,
		SubjectID:                               req.SubjectID,
		CollegeID:                               req.CollegeID,
		PlanID:                                  req.PlanID,
		MaxAttempts:                             req.MaxAttempts,
		MaxSecurityIncidents:                    req.MaxSecurityIncidents,
		EnableAutoSuspend:                       *req.EnableAutoSuspend,
		AdditionalSecurityIncidentsAfterRemoval: req.AdditionalSecurityIncidentsAfterRemoval,
		AdditionalAttemptsAfterPayment:          req.AdditionalAttemptsAfterPayment,
		IsActive:                                true,
	}
	if err := s.batchRepo.Create(ctx, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// Update modifies batch configuration. Changes take effect on the next
// policy lookup; running attempts are not retroactively re-evaluated.
func (s *BatchService) Update(ctx context.Context, id int, req model.UpdateBatchRequest) (*model.Batch, error) {
	batch, err := s.batchRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	batch.Name = req.Name
	batch.Year = req.Year
	batch.SubjectID = req.SubjectID
	batch.CollegeID = req.CollegeID
	batch.PlanID = req.PlanID
	batch.MaxAttempts = req.MaxAttempts
	batch.MaxSecurityIncidents = req.MaxSecurityIncidents
	batch.EnableAutoSuspend = *req.EnableAutoSuspend
	batch.AdditionalSecurityIncidentsAfterRemoval = req.AdditionalSecurityIncidentsAfterRemoval
	batch.AdditionalAttemptsAfterPayment = req.AdditionalAttemptsAfterPayment
	batch.IsActive = *req.IsActive

	if err := s.batchRepo.Update(ctx, batch); err != nil {
		return nil, err
	}
	return batch, nil
}

// Delete removes a batch.
func (s *BatchService) Delete(ctx context.Context, id int) error {
	return s.batchRepo.Delete(ctx, id)
}
