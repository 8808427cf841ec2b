package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam represents an exam entity. An exam is visible to a student only when
// it is assigned to the student's batch; an exam with no assigned batches is
// invisible to all students.
type Exam struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	CourseID           int       `json:"course_id"`
	DurationMinutes    int       `json:"duration_minutes"`
	TotalMarks         int       `json:"total_marks"`
	PassPercentage     float64   `json:"pass_percentage"`
	TotalQuestions     int       `json:"total_questions"`
	QuestionsToDisplay int       `json:"questions_to_display"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Name               string  `json:"name" binding:"required,min=3,max=255"`
	CourseID           int     `json:"course_id" binding:"required"`
	DurationMinutes    int     `json:"duration_minutes" binding:"required,min=1,max=480"`
	TotalMarks         int     `json:"total_marks" binding:"required,min=1"`
	PassPercentage     float64 `json:"pass_percentage" binding:"min=0,max=100"`
	TotalQuestions     int     `json:"total_questions" binding:"required,min=1"`
	QuestionsToDisplay int     `json:"questions_to_display" binding:"required,min=1,ltefield=TotalQuestions"`
}

// UpdateExamRequest is the payload for updating an existing exam.
type UpdateExamRequest struct {
	Name               string  `json:"name" binding:"required,min=3,max=255"`
	CourseID           int     `json:"course_id" binding:"required"`
	DurationMinutes    int     `json:"duration_minutes" binding:"required,min=1,max=480"`
	TotalMarks         int     `json:"total_marks" binding:"required,min=1"`
	PassPercentage     float64 `json:"pass_percentage" binding:"min=0,max=100"`
	TotalQuestions     int     `json:"total_questions" binding:"required,min=1"`
	QuestionsToDisplay int     `json:"questions_to_display" binding:"required,min=1,ltefield=TotalQuestions"`
	IsActive           *bool   `json:"is_active" binding:"required"`
}

// AssignBatchesRequest replaces the set of batches an exam is visible to.
type AssignBatchesRequest struct {
	BatchIDs []int `json:"batch_ids" binding:"required"`
}

// ExamPayload is the Redis-cached payload sent to students (no correct answers).
type ExamPayload struct {
	ExamID    uuid.UUID            `json:"exam_id"`
	Name      string               `json:"name"`
	Duration  int                  `json:"duration_minutes"`
	Questions []QuestionForStudent `json:"questions"`
}

// QuestionForStudent is a question stripped of correctness flags.
type QuestionForStudent struct {
	ID       uuid.UUID `json:"id"`
	Text     string    `json:"text"`
	Category string    `json:"category,omitempty"`
	Options  []string  `json:"options"`
}
