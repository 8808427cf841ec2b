package service

import "errors"

// Business precondition errors. These are expected conditions reported to the
// caller, never used for control flow inside the engine; handlers map them to
// typed response codes. Infra failures (store unreachable) propagate wrapped.
var (
	// Attempt engine.
	ErrExamNotVisible       = errors.New("exam is not assigned to the student's batch")
	ErrSubscriptionRequired = errors.New("an active subscription is required")
	ErrSubscriptionExpired  = errors.New("subscription has expired")
	ErrAlreadyPassed        = errors.New("a passed attempt already exists")
	ErrAttemptsExhausted    = errors.New("attempt budget exhausted")
	ErrAttemptSuspended     = errors.New("attempt is suspended")
	ErrQuestionPoolTooSmall = errors.New("question pool smaller than questions to display")

	// Suspension and grant workflow.
	ErrNotSuspended       = errors.New("attempt is not suspended")
	ErrBudgetNotExhausted = errors.New("attempt budget is not exhausted")
)
