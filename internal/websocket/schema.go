package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave Action = "autosave"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
	ActionIncident Action = "incident"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AutosaveRequest is sent by the client to save a single answer.
type AutosaveRequest struct {
	Action         Action `json:"action"`
	QuestionID     string `json:"question_id"`
	SelectedOption int    `json:"selected_option"`
}

// IncidentRequest is sent by the client to report a proctoring violation.
type IncidentRequest struct {
	Action  Action `json:"action"`
	Type    string `json:"type"`
	Details string `json:"details"`
}

// SubmitAnswer is one answer inside a SubmitRequest.
type SubmitAnswer struct {
	QuestionID     string `json:"question_id"`
	SelectedOption int    `json:"selected_option"`
}

// SubmitRequest is sent by the client to finish and score the attempt.
type SubmitRequest struct {
	Action  Action         `json:"action"`
	Answers []SubmitAnswer `json:"answers"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError       Event = "error"
	EventSaved       Event = "saved"
	EventIncidentAck Event = "incident_ack"
	EventSuspended   Event = "suspended"
	EventGraded      Event = "graded"
	EventPong        Event = "pong"
)

type SavedResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

// IncidentAckResponse confirms a recorded incident and carries the running
// count so the client can warn the student.
type IncidentAckResponse struct {
	Event        Event `json:"event"`
	RunningCount int   `json:"running_count"`
}

// SuspendedResponse tells the client the attempt was auto-suspended. The
// connection closes after this message.
type SuspendedResponse struct {
	Event        Event `json:"event"`
	RunningCount int   `json:"running_count"`
}

type GradedResponse struct {
	Event      Event   `json:"event"`
	Score      int     `json:"score"`
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
