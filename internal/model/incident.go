package model

import (
	"time"

	"github.com/google/uuid"
)

// IncidentType enumerates proctoring violation kinds. Reports with a type
// outside this set are stored as IncidentTypeUnknown rather than rejected —
// losing proctoring signal is worse than a loosely typed record.
type IncidentType string

const (
	IncidentWindowBlur         IncidentType = "window-blur"
	IncidentTabChange          IncidentType = "tab-change"
	IncidentFullScreenExit     IncidentType = "full-screen-exit"
	IncidentPasteAttempt       IncidentType = "paste-attempt"
	IncidentMultipleWindows    IncidentType = "multiple-windows"
	IncidentFaceNotVisible     IncidentType = "face-not-visible"
	IncidentMultipleFaces      IncidentType = "multiple-faces"
	IncidentUnauthorizedPerson IncidentType = "unauthorized-person"
	IncidentSpeakingDetected   IncidentType = "speaking-detected"
	IncidentTypeUnknown        IncidentType = "unknown"
)

// KnownIncidentType reports whether t is one of the enumerated types.
func KnownIncidentType(t IncidentType) bool {
	switch t {
	case IncidentWindowBlur, IncidentTabChange, IncidentFullScreenExit,
		IncidentPasteAttempt, IncidentMultipleWindows, IncidentFaceNotVisible,
		IncidentMultipleFaces, IncidentUnauthorizedPerson, IncidentSpeakingDetected:
		return true
	}
	return false
}

// SecurityIncident is an append-only ledger entry for one proctoring
// violation. ExamID is nullable: an incident must be stored even when the
// exam reference can no longer be resolved.
type SecurityIncident struct {
	ID               uuid.UUID    `json:"id"`
	StudentID        int          `json:"student_id"`
	ExamID           *uuid.UUID   `json:"exam_id,omitempty"`
	AttemptID        uuid.UUID    `json:"attempt_id"`
	Type             IncidentType `json:"type"`
	Details          string       `json:"details"`
	CausedSuspension bool         `json:"caused_suspension"`
	CreatedAt        time.Time    `json:"created_at"`
}

// ExamRef is the tagged-variant result of resolving an incident's exam link,
// so callers cannot silently mishandle a missing reference.
type ExamRef struct {
	Exam   *Exam  `json:"exam,omitempty"`
	Orphan string `json:"orphan_reason,omitempty"`
}

// Resolved reports whether the exam link resolved.
func (r ExamRef) Resolved() bool { return r.Exam != nil }

// ReportIncidentRequest is the payload for a proctoring incident report.
// Type is a free string on purpose; normalization happens server-side.
type ReportIncidentRequest struct {
	Type    string `json:"type" binding:"required,max=50"`
	Details string `json:"details" binding:"max=2000"`
}

// IncidentTypeCount is a read-side aggregation row for admin dashboards.
type IncidentTypeCount struct {
	Type  IncidentType `json:"type"`
	Count int64        `json:"count"`
}

// StudentIncidentCount is a read-side top-N aggregation row.
type StudentIncidentCount struct {
	StudentID   int    `json:"student_id"`
	StudentName string `json:"student_name"`
	Count       int64  `json:"count"`
}
