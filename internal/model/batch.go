package model

import "time"

// Batch is a cohort of students that shares exam access and proctoring
// configuration. Identity is immutable; configuration is admin-editable
// and is resolved per request — never cached process-wide — so concurrent
// batches with different thresholds stay isolated.
type Batch struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Year      int    `json:"year"`
	SubjectID int    `json:"subject_id"`
	CollegeID int    `json:"college_id"`
	PlanID    int    `json:"plan_id"`

	// Proctoring and attempt-accounting configuration.
	MaxAttempts                             int  `json:"max_attempts"`
	MaxSecurityIncidents                    int  `json:"max_security_incidents"`
	EnableAutoSuspend                       bool `json:"enable_auto_suspend"`
	AdditionalSecurityIncidentsAfterRemoval int  `json:"additional_security_incidents_after_removal"`
	AdditionalAttemptsAfterPayment          int  `json:"additional_attempts_after_payment"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateBatchRequest is the payload for creating a new batch.
type CreateBatchRequest struct {
	Name                                    string `json:"name" binding:"required,min=2,max=150"`
	Year                                    int    `json:"year" binding:"required,min=2000,max=2100"`
	SubjectID                               int    `json:"subject_id" binding:"required"`
	CollegeID                               int    `json:"college_id" binding:"required"`
	PlanID                                  int    `json:"plan_id" binding:"required"`
	MaxAttempts                             int    `json:"max_attempts" binding:"required,min=1"`
	MaxSecurityIncidents                    int    `json:"max_security_incidents" binding:"required,min=1"`
	EnableAutoSuspend                       *bool  `json:"enable_auto_suspend" binding:"required"`
	AdditionalSecurityIncidentsAfterRemoval int    `json:"additional_security_incidents_after_removal" binding:"min=0"`
	AdditionalAttemptsAfterPayment          int    `json:"additional_attempts_after_payment" binding:"required,min=1"`
}

// UpdateBatchRequest is the payload for updating batch configuration.
// Batch identity (name, year, subject, college) can change; the ID cannot.
type UpdateBatchRequest struct {
	Name                                    string `json:"name" binding:"required,min=2,max=150"`
	Year                                    int    `json:"year" binding:"required,min=2000,max=2100"`
	SubjectID                               int    `json:"subject_id" binding:"required"`
	CollegeID                               int    `json:"college_id" binding:"required"`
	PlanID                                  int    `json:"plan_id" binding:"required"`
	MaxAttempts                             int    `json:"max_attempts" binding:"required,min=1"`
	MaxSecurityIncidents                    int    `json:"max_security_incidents" binding:"required,min=1"`
	EnableAutoSuspend                       *bool  `json:"enable_auto_suspend" binding:"required"`
	AdditionalSecurityIncidentsAfterRemoval int    `json:"additional_security_incidents_after_removal" binding:"min=0"`
	AdditionalAttemptsAfterPayment          int    `json:"additional_attempts_after_payment" binding:"required,min=1"`
	IsActive                                *bool  `json:"is_active" binding:"required"`
}
