package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrConflict         ErrCode = "CONFLICT"
	ErrDependencyExists ErrCode = "DEPENDENCY_EXISTS"
	ErrActionForbidden  ErrCode = "ACTION_FORBIDDEN"

	// ─── Attempt engine ────────────────────────────────────────────────
	ErrExamNotVisible       ErrCode = "EXAM_NOT_VISIBLE"
	ErrSubscriptionRequired ErrCode = "SUBSCRIPTION_REQUIRED"
	ErrSubscriptionExpired  ErrCode = "SUBSCRIPTION_EXPIRED"
	ErrAlreadyPassed        ErrCode = "ALREADY_PASSED"
	ErrAttemptsExhausted    ErrCode = "ATTEMPTS_EXHAUSTED"
	ErrAttemptSuspended     ErrCode = "ATTEMPT_SUSPENDED"
	ErrQuestionPoolTooSmall ErrCode = "QUESTION_POOL_TOO_SMALL"

	// ─── Suspension workflow ───────────────────────────────────────────
	ErrNotSuspended       ErrCode = "NOT_SUSPENDED"
	ErrBudgetNotExhausted ErrCode = "BUDGET_NOT_EXHAUSTED"

	// ─── Proctoring ────────────────────────────────────────────────────
	ErrMalformedIncident ErrCode = "MALFORMED_INCIDENT"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrSessionActive:
		return "You are already logged in on another device."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."
	case ErrDependencyExists:
		return "This record cannot be deleted because other records still reference it."
	case ErrActionForbidden:
		return "This action is not allowed."

	// ─── Attempt engine ────────────────────────────────────────────────
	case ErrExamNotVisible:
		return "This exam is not assigned to your batch."
	case ErrSubscriptionRequired:
		return "An active subscription is required to take this exam."
	case ErrSubscriptionExpired:
		return "Your subscription has expired. Please renew to continue."
	case ErrAlreadyPassed:
		return "You have already passed this exam."
	case ErrAttemptsExhausted:
		return "You have used all allowed attempts for this exam."
	case ErrAttemptSuspended:
		return "This attempt is suspended due to security incidents."
	case ErrQuestionPoolTooSmall:
		return "This exam does not have enough questions configured."

	// ─── Suspension workflow ───────────────────────────────────────────
	case ErrNotSuspended:
		return "This attempt is not currently suspended."
	case ErrBudgetNotExhausted:
		return "Additional attempts can only be granted once all attempts are used."

	// ─── Proctoring ────────────────────────────────────────────────────
	case ErrMalformedIncident:
		return "The reported incident payload is malformed."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
