package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt lifecycle states.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusSubmitted  AttemptStatus = "SUBMITTED"
	AttemptStatusSuspended  AttemptStatus = "SUSPENDED"
	AttemptStatusAbandoned  AttemptStatus = "ABANDONED"
)

// Attempt represents one student's try at an exam, including its result once
// submitted. SelectedQuestionIDs is drawn once at start and never
// re-randomized mid-attempt.
type Attempt struct {
	ID            uuid.UUID     `json:"id"`
	StudentID     int           `json:"student_id"`
	ExamID        uuid.UUID     `json:"exam_id"`
	AttemptNumber int           `json:"attempt_number"`
	Status        AttemptStatus `json:"status"`

	StartedAt    time.Time  `json:"started_at"`
	LastActiveAt time.Time  `json:"last_active_at"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`

	SelectedQuestionIDs []uuid.UUID `json:"selected_question_ids"`

	Score          *int     `json:"score,omitempty"`
	TotalQuestions int      `json:"total_questions"`
	Percentage     *float64 `json:"percentage,omitempty"`
	Passed         *bool    `json:"passed,omitempty"`

	// Suspension bookkeeping. SuspendedAt freezes the session clock;
	// ExtraIncidentsAllowed accumulates with each paid suspension removal.
	SuspendedAt               *time.Time `json:"suspended_at,omitempty"`
	IncidentCountAtSuspension *int       `json:"incident_count_at_suspension,omitempty"`
	ExtraIncidentsAllowed     int        `json:"extra_incidents_allowed"`
	SuspensionPaymentRef      *string    `json:"suspension_payment_ref,omitempty"`

	CertificateID *uuid.UUID `json:"certificate_id,omitempty"`
}

// AnswerSubmission is a single answer in a submit payload. Answers for
// questions outside the attempt's selected set are ignored during scoring.
type AnswerSubmission struct {
	QuestionID     uuid.UUID `json:"question_id" binding:"required"`
	SelectedOption int       `json:"selected_option" binding:"min=0,max=5"`
}

// SubmitAttemptRequest is the payload for submitting an attempt.
type SubmitAttemptRequest struct {
	Answers []AnswerSubmission `json:"answers" binding:"dive"`
}

// AttemptGrant records a payment-backed increase to a student's attempt
// budget for one exam.
type AttemptGrant struct {
	ID              uuid.UUID `json:"id"`
	StudentID       int       `json:"student_id"`
	ExamID          uuid.UUID `json:"exam_id"`
	AttemptsGranted int       `json:"attempts_granted"`
	PaymentRef      string    `json:"payment_ref"`
	CreatedAt       time.Time `json:"created_at"`
}

// AttemptState is returned on page reload so the client can restore
// autosaved answers and the countdown.
type AttemptState struct {
	AttemptID        uuid.UUID         `json:"attempt_id"`
	ExamID           uuid.UUID         `json:"exam_id"`
	AutosavedAnswers map[string]string `json:"autosaved_answers"`
	RemainingSeconds float64           `json:"remaining_seconds"`
	Status           AttemptStatus     `json:"status"`
}

// SessionStatusLabel is the single label derived from session metrics.
// Overtime takes precedence over idle.
type SessionStatusLabel string

const (
	SessionLabelActive    SessionStatusLabel = "Active"
	SessionLabelIdle      SessionStatusLabel = "Idle"
	SessionLabelOvertime  SessionStatusLabel = "Overtime"
	SessionLabelSuspended SessionStatusLabel = "Suspended"
)

// SessionMetrics is a point-in-time snapshot of an attempt's timing,
// recomputed on every poll.
type SessionMetrics struct {
	ElapsedMinutes     float64            `json:"elapsed_minutes"`
	IdleMinutes        float64            `json:"idle_minutes"`
	RemainingMinutes   float64            `json:"remaining_minutes"`
	ProgressPercentage int                `json:"progress_percentage"`
	IsIdle             bool               `json:"is_idle"`
	IsOvertime         bool               `json:"is_overtime"`
	Label              SessionStatusLabel `json:"label"`
}
