package service

import (
	"context"

	"github.com/certiva/examportal-backend/internal/model"
	"github.com/certiva/examportal-backend/internal/repository"
)

// SettingService manages admin-editable key/value settings.
type SettingService struct {
	repo *repository.SettingRepository
}

// NewSettingService creates a new SettingService.
func NewSettingService(repo *repository.SettingRepository) *SettingService {
	return &SettingService{repo: repo}
}

// GetAll returns every setting.
func (s *SettingService) GetAll(ctx context.Context) ([]model.Setting, error) {
	return s.repo.GetAll(ctx)
}

// Update upserts the given keys.
func (s *SettingService) Update(ctx context.Context, req model.UpdateSettingsRequest) error {
	for key, value := range req.Settings {
		if err := s.repo.Upsert(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}
