package service

import (
	"context"
	"fmt"

	"github.com/certiva/examportal-backend/internal/model"
	"github.com/certiva/examportal-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// QuestionService manages an exam's question pool.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
	examRepo     *repository.ExamRepository
	examService  *ExamService
	log          zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(
	questionRepo *repository.QuestionRepository,
	examRepo *repository.ExamRepository,
	examService *ExamService,
	log zerolog.Logger,
) *QuestionService {
	return &QuestionService{
		questionRepo: questionRepo,
		examRepo:     examRepo,
		examService:  examService,
		log:          log.With().Str("component", "question_service").Logger(),
	}
}

// Add appends a question to an exam's pool. Option invariants are checked
// here, not left to the request binding alone.
func (s *QuestionService) Add(ctx context.Context, examID uuid.UUID, req model.AddQuestionRequest) (*model.Question, error) {
	q := &model.Question{
		ExamID:   examID,
		Text:     req.Text,
		Category: req.Category,
		Options:  req.Options,
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := s.questionRepo.Add(ctx, q); err != nil {
		return nil, err
	}
	s.refreshCache(ctx, examID)
	return q, nil
}

// Replace swaps an exam's entire question pool in one transaction.
func (s *QuestionService) Replace(ctx context.Context, examID uuid.UUID, req model.ReplaceQuestionsRequest) error {
	questions := make([]model.Question, len(req.Questions))
	for i, qr := range req.Questions {
		questions[i] = model.Question{
			ExamID:   examID,
			Text:     qr.Text,
			Category: qr.Category,
			Options:  qr.Options,
		}
		if err := questions[i].Validate(); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	if err := s.questionRepo.Replace(ctx, examID, questions); err != nil {
		return err
	}
	s.refreshCache(ctx, examID)
	return nil
}

// Delete removes one question from the pool. Attempts that already drew it
// keep the ID in their subset; scoring skips questions that no longer exist.
func (s *QuestionService) Delete(ctx context.Context, examID, questionID uuid.UUID) error {
	if err := s.questionRepo.Delete(ctx, questionID); err != nil {
		return err
	}
	s.refreshCache(ctx, examID)
	return nil
}

// ListByExam returns an exam's full question pool, answer key included.
// Admin surface only.
func (s *QuestionService) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	return s.questionRepo.ListByExam(ctx, examID)
}

func (s *QuestionService) refreshCache(ctx context.Context, examID uuid.UUID) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil || !exam.IsActive {
		return
	}
	if err := s.examService.WarmExamCache(ctx, exam); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Cache refresh failed")
	}
}
