package model

import (
	"errors"

	"github.com/google/uuid"
)

// Option bounds enforced at the boundary, not left to UI validation.
const (
	MinOptions = 2
	MaxOptions = 6
)

// Question option validation errors.
var (
	ErrOptionCountOutOfRange = errors.New("question must have between 2 and 6 options")
	ErrNotExactlyOneCorrect  = errors.New("question must have exactly one correct option")
)

// Option is a single answer choice.
type Option struct {
	Text      string `json:"text" binding:"required,min=1,max=500"`
	IsCorrect bool   `json:"is_correct"`
}

// Question represents a single exam question. Options are an ordered list of
// 2–6 entries with exactly one marked correct.
type Question struct {
	ID       uuid.UUID `json:"id"`
	ExamID   uuid.UUID `json:"exam_id"`
	Text     string    `json:"text"`
	Category string    `json:"category,omitempty"`
	Options  []Option  `json:"options"`
}

// Validate enforces the option-list invariants used for scoring.
func (q *Question) Validate() error {
	if len(q.Options) < MinOptions || len(q.Options) > MaxOptions {
		return ErrOptionCountOutOfRange
	}
	correct := 0
	for _, opt := range q.Options {
		if opt.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return ErrNotExactlyOneCorrect
	}
	return nil
}

// CorrectIndex returns the index of the correct option, or -1 if the
// question is malformed.
func (q *Question) CorrectIndex() int {
	for i, opt := range q.Options {
		if opt.IsCorrect {
			return i
		}
	}
	return -1
}

// ForStudent strips correctness flags for delivery to exam takers.
func (q *Question) ForStudent() QuestionForStudent {
	opts := make([]string, len(q.Options))
	for i, opt := range q.Options {
		opts[i] = opt.Text
	}
	return QuestionForStudent{
		ID:       q.ID,
		Text:     q.Text,
		Category: q.Category,
		Options:  opts,
	}
}

// AddQuestionRequest is the payload for adding a question to an exam.
type AddQuestionRequest struct {
	Text     string   `json:"text" binding:"required,min=1,max=2000"`
	Category string   `json:"category" binding:"omitempty,max=100"`
	Options  []Option `json:"options" binding:"required,min=2,max=6,dive"`
}

// ReplaceQuestionsRequest is the payload for bulk replacing an exam's questions.
type ReplaceQuestionsRequest struct {
	Questions []AddQuestionRequest `json:"questions" binding:"dive"`
}
