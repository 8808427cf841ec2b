package service

import (
	"math"
	"time"

	"github.com/certiva/examportal-backend/internal/model"
)

// IdleThresholdMinutes is the fixed idle threshold: an attempt with no
// activity for this long is labeled Idle.
const IdleThresholdMinutes = 5.0

// ComputeMetrics derives a point-in-time timing snapshot for an attempt.
// It is a pure function so the admin live view and the forced-submit caller
// recompute it on every poll; nothing is cached.
//
// While an attempt is suspended the clock is frozen: all deltas are taken
// against the suspension timestamp instead of now, so suspended time never
// counts against the student.
func ComputeMetrics(a *model.Attempt, durationMinutes int, now time.Time) model.SessionMetrics {
	ref := now
	if a.Status == model.AttemptStatusSuspended && a.SuspendedAt != nil {
		ref = *a.SuspendedAt
	}

	elapsed := ref.Sub(a.StartedAt).Minutes()
	if elapsed < 0 {
		elapsed = 0
	}
	idle := ref.Sub(a.LastActiveAt).Minutes()
	if idle < 0 {
		idle = 0
	}

	duration := float64(durationMinutes)
	remaining := duration - elapsed
	if remaining < 0 {
		remaining = 0
	}

	progress := 100
	if duration > 0 {
		progress = int(math.Round(elapsed / duration * 100))
		if progress > 100 {
			progress = 100
		}
	}

	m := model.SessionMetrics{
		ElapsedMinutes:     elapsed,
		IdleMinutes:        idle,
		RemainingMinutes:   remaining,
		ProgressPercentage: progress,
		IsIdle:             idle >= IdleThresholdMinutes,
		IsOvertime:         elapsed > duration,
	}
	m.Label = deriveLabel(a.Status, m)
	return m
}

// deriveLabel picks the single status label. Overtime takes precedence over
// idle; a suspended attempt is always labeled Suspended.
func deriveLabel(status model.AttemptStatus, m model.SessionMetrics) model.SessionStatusLabel {
	if status == model.AttemptStatusSuspended {
		return model.SessionLabelSuspended
	}
	switch {
	case m.IsOvertime:
		return model.SessionLabelOvertime
	case m.IsIdle:
		return model.SessionLabelIdle
	default:
		return model.SessionLabelActive
	}
}
