package service

import (
	"context"

	"github.com/certiva/examportal-backend/internal/model"
	"github.com/certiva/examportal-backend/internal/repository"
)

// TaxonomyService manages colleges, subjects and courses.
type TaxonomyService struct {
	repo *repository.TaxonomyRepository
}

// NewTaxonomyService creates a new TaxonomyService.
func NewTaxonomyService(repo *repository.TaxonomyRepository) *TaxonomyService {
	return &TaxonomyService{repo: repo}
}

func (s *TaxonomyService) CreateCollege(ctx context.Context, req model.CreateCollegeRequest) (*model.College, error) {
	c := &model.College{Name: req.Name, Code: req.Code}
	if err := s.repo.CreateCollege(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *TaxonomyService) ListColleges(ctx context.Context) ([]model.College, error) {
	return s.repo.ListColleges(ctx)
}

func (s *TaxonomyService) DeleteCollege(ctx context.Context, id int) error {
	return s.repo.DeleteCollege(ctx, id)
}

func (s *TaxonomyService) CreateSubject(ctx context.Context, req model.CreateSubjectRequest) (*model.Subject, error) {
	sub := &model.Subject{Name: req.Name}
	if err := s.repo.CreateSubject(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (s *TaxonomyService) ListSubjects(ctx context.Context) ([]model.Subject, error) {
	return s.repo.ListSubjects(ctx)
}

func (s *TaxonomyService) DeleteSubject(ctx context.Context, id int) error {
	return s.repo.DeleteSubject(ctx, id)
}

func (s *TaxonomyService) CreateCourse(ctx context.Context, req model.CreateCourseRequest) (*model.Course, error) {
	c := &model.Course{Name: req.Name, SubjectID: req.SubjectID}
	if err := s.repo.CreateCourse(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *TaxonomyService) ListCourses(ctx context.Context, subjectID *int) ([]model.Course, error) {
	return s.repo.ListCourses(ctx, subjectID)
}

func (s *TaxonomyService) DeleteCourse(ctx context.Context, id int) error {
	return s.repo.DeleteCourse(ctx, id)
}
