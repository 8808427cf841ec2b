package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/certiva/examportal-backend/internal/config"
	"github.com/certiva/examportal-backend/internal/model"
	"github.com/certiva/examportal-backend/internal/repository"
	"github.com/certiva/examportal-backend/internal/response"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNoQuestions is returned when an exam without questions is activated.
var ErrNoQuestions = errors.New("exam has no questions")

// ExamService handles exam administration and the Redis payload cache that
// serves exam papers to students without touching Postgres.
type ExamService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo:     examRepo,
		questionRepo: questionRepo,
		rdb:          rdb,
		log:          log.With().Str("component", "exam_service").Logger(),
	}
}

// GetByID retrieves an exam by its UUID.
func (s *ExamService) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return s.examRepo.GetByID(ctx, id)
}

// List retrieves exams with pagination.
func (s *ExamService) List(ctx context.Context, page, perPage int) ([]model.Exam, *response.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	exams, total, err := s.examRepo.List(ctx, page, perPage)
	if err != nil {
		return nil, nil, err
	}
	if exams == nil {
		exams = []model.Exam{}
	}

	pagination := &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: (int(total) + perPage - 1) / perPage,
	}
	return exams, pagination, nil
}

// Create inserts a new exam. New exams start inactive and invisible; they
// become visible only once activated and assigned to batches.
func (s *ExamService) Create(ctx context.Context, req model.CreateExamRequest) (*model.Exam, error) {
	exam := &model.Exam{
		Name:               req.Name,
		CourseID:           req.CourseID,
		DurationMinutes:    req.DurationMinutes,
		TotalMarks:         req.TotalMarks,
		PassPercentage:     req.PassPercentage,
		TotalQuestions:     req.TotalQuestions,
		QuestionsToDisplay: req.QuestionsToDisplay,
		IsActive:           false,
	}
	if err := s.examRepo.Create(ctx, exam); err != nil {
		return nil, err
	}
	return exam, nil
}

// Update modifies an exam. Activating an exam with no questions is refused;
// any change re-warms the payload cache.
func (s *ExamService) Update(ctx context.Context, id uuid.UUID, req model.UpdateExamRequest) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	exam.Name = req.Name
	exam.CourseID = req.CourseID
	exam.DurationMinutes = req.DurationMinutes
	exam.TotalMarks = req.TotalMarks
	exam.PassPercentage = req.PassPercentage
	exam.TotalQuestions = req.TotalQuestions
	exam.QuestionsToDisplay = req.QuestionsToDisplay
	exam.IsActive = *req.IsActive

	if exam.IsActive {
		if err := s.WarmExamCache(ctx, exam); err != nil {
			return nil, err
		}
	}
	if err := s.examRepo.Update(ctx, exam); err != nil {
		return nil, err
	}
	return exam, nil
}

// Delete removes an exam. Attempts and ledger entries keep their rows; the
// exam reference on old incidents goes orphaned rather than cascading.
func (s *ExamService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.examRepo.Delete(ctx, id); err != nil {
		return err
	}
	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, config.CacheKey.ExamPayloadKey(id.String()))
	pipe.Del(ctx, config.CacheKey.ExamDurationKey(id.String()))
	_, err := pipe.Exec(ctx)
	return err
}

// AssignBatches replaces the set of batches an exam is visible to.
func (s *ExamService) AssignBatches(ctx context.Context, examID uuid.UUID, batchIDs []int) error {
	return s.examRepo.ReplaceBatchAssignments(ctx, examID, batchIDs)
}

// ListAssignedBatches returns the batch IDs an exam is assigned to.
func (s *ExamService) ListAssignedBatches(ctx context.Context, examID uuid.UUID) ([]int, error) {
	return s.examRepo.ListBatchIDs(ctx, examID)
}

// WarmExamCache loads an exam's student-facing payload and duration from
// PostgreSQL into Redis.
func (s *ExamService) WarmExamCache(ctx context.Context, exam *model.Exam) error {
	questions, err := s.questionRepo.ListByExam(ctx, exam.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	studentQuestions := make([]model.QuestionForStudent, len(questions))
	for i := range questions {
		studentQuestions[i] = questions[i].ForStudent()
	}

	payloadJSON, err := json.Marshal(model.ExamPayload{
		ExamID:    exam.ID,
		Name:      exam.Name,
		Duration:  exam.DurationMinutes,
		Questions: studentQuestions,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.ExamPayloadKey(exam.ID.String()), payloadJSON, 0)
	pipe.Set(ctx, config.CacheKey.ExamDurationKey(exam.ID.String()), exam.DurationMinutes, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("exam_id", exam.ID.String()).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAllCaches loads every active exam into Redis on startup so the
// first student of the day never lazy-loads under load.
func (s *ExamService) PrewarmAllCaches(ctx context.Context) error {
	page := 1
	warmed, total := 0, 0
	for {
		exams, _, err := s.examRepo.List(ctx, page, 100)
		if err != nil {
			return fmt.Errorf("list exams: %w", err)
		}
		if len(exams) == 0 {
			break
		}
		for i := range exams {
			if !exams[i].IsActive {
				continue
			}
			total++
			if err := s.WarmExamCache(ctx, &exams[i]); err != nil {
				s.log.Warn().Err(err).
					Str("exam_id", exams[i].ID.String()).
					Msg("Failed to warm exam, skipping")
				continue
			}
			warmed++
		}
		page++
	}

	s.log.Info().Int("warmed", warmed).Int("total", total).Msg("Prewarming complete")
	return nil
}

// GetPaper returns the exam paper for one attempt: the cached payload
// filtered down to the attempt's drawn question subset, in draw order.
func (s *ExamService) GetPaper(ctx context.Context, exam *model.Exam, attempt *model.Attempt) (*model.ExamPayload, error) {
	payload, err := s.getCachedPayload(ctx, exam)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]model.QuestionForStudent, len(payload.Questions))
	for _, q := range payload.Questions {
		byID[q.ID] = q
	}

	selected := make([]model.QuestionForStudent, 0, len(attempt.SelectedQuestionIDs))
	for _, qid := range attempt.SelectedQuestionIDs {
		if q, ok := byID[qid]; ok {
			selected = append(selected, q)
		}
	}

	return &model.ExamPayload{
		ExamID:    payload.ExamID,
		Name:      payload.Name,
		Duration:  payload.Duration,
		Questions: selected,
	}, nil
}

func (s *ExamService) getCachedPayload(ctx context.Context, exam *model.Exam) (*model.ExamPayload, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.ExamPayloadKey(exam.ID.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		// Lazy warm on cache miss, then re-read.
		if err := s.WarmExamCache(ctx, exam); err != nil {
			return nil, err
		}
		data, err = s.rdb.Get(ctx, config.CacheKey.ExamPayloadKey(exam.ID.String())).Bytes()
		if err != nil {
			return nil, fmt.Errorf("get payload after warm: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("get payload: %w", err)
	}

	var payload model.ExamPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}
