package service

import (
	"testing"
	"time"

	"github.com/certiva/examportal-backend/internal/model"
)

func metricsAttempt(startedAgo, activeAgo time.Duration, now time.Time) *model.Attempt {
	return &model.Attempt{
		Status:       model.AttemptStatusInProgress,
		StartedAt:    now.Add(-startedAgo),
		LastActiveAt: now.Add(-activeAgo),
	}
}

func TestComputeMetricsActive(t *testing.T) {
	now := time.Now()
	a := metricsAttempt(20*time.Minute, time.Minute, now)

	m := ComputeMetrics(a, 60, now)
	if m.Label != model.SessionLabelActive {
		t.Errorf("label = %s, want %s", m.Label, model.SessionLabelActive)
	}
	if m.IsIdle || m.IsOvertime {
		t.Errorf("idle = %v overtime = %v, want both false", m.IsIdle, m.IsOvertime)
	}
	if m.ProgressPercentage != 33 {
		t.Errorf("progress = %d, want 33 (20/60 rounded)", m.ProgressPercentage)
	}
	if m.RemainingMinutes < 39.9 || m.RemainingMinutes > 40.1 {
		t.Errorf("remaining = %v, want ~40", m.RemainingMinutes)
	}
}

func TestComputeMetricsIdleThreshold(t *testing.T) {
	now := time.Now()

	under := ComputeMetrics(metricsAttempt(10*time.Minute, 4*time.Minute, now), 60, now)
	if under.IsIdle {
		t.Error("idle at 4 minutes, threshold is 5")
	}

	at := ComputeMetrics(metricsAttempt(10*time.Minute, 5*time.Minute, now), 60, now)
	if !at.IsIdle {
		t.Error("not idle at exactly 5 minutes")
	}
	if at.Label != model.SessionLabelIdle {
		t.Errorf("label = %s, want %s", at.Label, model.SessionLabelIdle)
	}
}

func TestComputeMetricsOvertime(t *testing.T) {
	now := time.Now()

	// 35 elapsed of a 30-minute exam: overtime, remaining clamps at zero,
	// progress caps at 100.
	m := ComputeMetrics(metricsAttempt(35*time.Minute, time.Minute, now), 30, now)
	if !m.IsOvertime {
		t.Error("not overtime at 35/30 minutes")
	}
	if m.Label != model.SessionLabelOvertime {
		t.Errorf("label = %s, want %s", m.Label, model.SessionLabelOvertime)
	}
	if m.RemainingMinutes != 0 {
		t.Errorf("remaining = %v, want 0", m.RemainingMinutes)
	}
	if m.ProgressPercentage != 100 {
		t.Errorf("progress = %d, want 100", m.ProgressPercentage)
	}

	// Exactly at the duration is not overtime yet.
	edge := ComputeMetrics(metricsAttempt(30*time.Minute, time.Minute, now), 30, now)
	if edge.IsOvertime {
		t.Error("overtime at exactly 30/30 minutes")
	}
}

func TestComputeMetricsOvertimeBeatsIdle(t *testing.T) {
	now := time.Now()

	// Both overtime and idle: overtime wins the label.
	m := ComputeMetrics(metricsAttempt(40*time.Minute, 10*time.Minute, now), 30, now)
	if !m.IsIdle || !m.IsOvertime {
		t.Fatalf("idle = %v overtime = %v, want both true", m.IsIdle, m.IsOvertime)
	}
	if m.Label != model.SessionLabelOvertime {
		t.Errorf("label = %s, want %s", m.Label, model.SessionLabelOvertime)
	}
}

func TestComputeMetricsSuspendedFreezesClock(t *testing.T) {
	now := time.Now()
	suspendedAt := now.Add(-45 * time.Minute)

	a := &model.Attempt{
		Status:       model.AttemptStatusSuspended,
		StartedAt:    now.Add(-60 * time.Minute),
		LastActiveAt: now.Add(-50 * time.Minute),
		SuspendedAt:  &suspendedAt,
	}

	// All deltas are taken against the suspension instant, so 45 suspended
	// minutes do not count: elapsed is 15, not 60.
	m := ComputeMetrics(a, 30, now)
	if m.ElapsedMinutes < 14.9 || m.ElapsedMinutes > 15.1 {
		t.Errorf("elapsed = %v, want ~15 (frozen at suspension)", m.ElapsedMinutes)
	}
	if m.RemainingMinutes < 14.9 || m.RemainingMinutes > 15.1 {
		t.Errorf("remaining = %v, want ~15", m.RemainingMinutes)
	}
	if m.IsOvertime {
		t.Error("suspended attempt counted suspended time as overtime")
	}
	if m.Label != model.SessionLabelSuspended {
		t.Errorf("label = %s, want %s", m.Label, model.SessionLabelSuspended)
	}
}

func TestComputeMetricsSuspendedLabelWinsOverOvertime(t *testing.T) {
	now := time.Now()
	suspendedAt := now.Add(-time.Minute)

	a := &model.Attempt{
		Status:       model.AttemptStatusSuspended,
		StartedAt:    now.Add(-90 * time.Minute),
		LastActiveAt: now.Add(-30 * time.Minute),
		SuspendedAt:  &suspendedAt,
	}

	m := ComputeMetrics(a, 30, now)
	if !m.IsOvertime {
		t.Fatal("expected overtime before suspension")
	}
	if m.Label != model.SessionLabelSuspended {
		t.Errorf("label = %s, want %s over overtime", m.Label, model.SessionLabelSuspended)
	}
}

func TestComputeMetricsZeroDuration(t *testing.T) {
	now := time.Now()
	m := ComputeMetrics(metricsAttempt(time.Minute, time.Minute, now), 0, now)
	if m.ProgressPercentage != 100 {
		t.Errorf("progress = %d, want 100 for zero duration", m.ProgressPercentage)
	}
}

func TestDeriveLobbyStatus(t *testing.T) {
	passed := true
	now := time.Now()

	tests := []struct {
		name     string
		attempts []model.Attempt
		used     int
		budget   int
		want     LobbyStatus
	}{
		{"no attempts", nil, 0, 2, LobbyStatusAvailable},
		{
			"passed wins over everything",
			[]model.Attempt{
				{Status: model.AttemptStatusSubmitted, Passed: &passed},
				{Status: model.AttemptStatusInProgress},
			},
			2, 2, LobbyStatusPassed,
		},
		{
			"latest in progress",
			[]model.Attempt{{Status: model.AttemptStatusInProgress}},
			1, 2, LobbyStatusInProgress,
		},
		{
			"latest suspended",
			[]model.Attempt{{Status: model.AttemptStatusSuspended, SuspendedAt: &now}},
			1, 2, LobbyStatusSuspended,
		},
		{
			"budget spent",
			[]model.Attempt{
				{Status: model.AttemptStatusSubmitted},
				{Status: model.AttemptStatusSubmitted},
			},
			2, 2, LobbyStatusExhausted,
		},
		{
			"budget remaining after failure",
			[]model.Attempt{{Status: model.AttemptStatusSubmitted}},
			1, 2, LobbyStatusAvailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deriveLobbyStatus(tt.attempts, tt.used, tt.budget); got != tt.want {
				t.Errorf("deriveLobbyStatus = %s, want %s", got, tt.want)
			}
		})
	}
}
