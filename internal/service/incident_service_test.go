package service

import (
	"context"
	"testing"
	"time"

	"github.com/certiva/examportal-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newIncidentEnv(t *testing.T) (*IncidentService, *attemptEnv, *fakeIncidentLedger) {
	t.Helper()
	env := newAttemptEnv(t)
	ledger := &fakeIncidentLedger{attempts: env.attempts}
	svc := NewIncidentService(ledger, env.attempts, env.students, env.batches, env.exams, zerolog.Nop())
	return svc, env, ledger
}

func TestReportSuspendsAtThreshold(t *testing.T) {
	svc, env, _ := newIncidentEnv(t)
	ctx := context.Background()

	attempt, err := env.svc.StartAttempt(ctx, 10, env.exam.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	// Batch threshold is 3: the first two reports pass through, the third
	// trips the suspension exactly once.
	for i := 1; i <= 2; i++ {
		rep, err := svc.Report(ctx, attempt.ID, model.ReportIncidentRequest{Type: "tab-change"})
		if err != nil {
			t.Fatalf("report %d: %v", i, err)
		}
		if rep.Suspended {
			t.Fatalf("report %d suspended below threshold", i)
		}
		if rep.RunningCount != i {
			t.Errorf("report %d running count = %d, want %d", i, rep.RunningCount, i)
		}
	}

	rep, err := svc.Report(ctx, attempt.ID, model.ReportIncidentRequest{Type: "tab-change"})
	if err != nil {
		t.Fatalf("threshold report: %v", err)
	}
	if !rep.Suspended {
		t.Fatal("threshold report did not suspend")
	}
	if !rep.Incident.CausedSuspension {
		t.Error("threshold incident not marked caused_suspension")
	}

	stored, _ := env.attempts.GetByID(ctx, attempt.ID)
	if stored.Status != model.AttemptStatusSuspended {
		t.Errorf("attempt status = %s, want %s", stored.Status, model.AttemptStatusSuspended)
	}
	if stored.SuspendedAt == nil {
		t.Error("suspended attempt has no suspension timestamp")
	}

	// Reports past the threshold still land in the ledger but do not
	// re-suspend or re-mark.
	rep, err = svc.Report(ctx, attempt.ID, model.ReportIncidentRequest{Type: "tab-change"})
	if err != nil {
		t.Fatalf("post-threshold report: %v", err)
	}
	if rep.Suspended {
		t.Error("post-threshold report claimed to suspend again")
	}
	if rep.RunningCount != 4 {
		t.Errorf("post-threshold running count = %d, want 4", rep.RunningCount)
	}

	incidents, _ := svc.ListForAttempt(ctx, attempt.ID)
	marked := 0
	for _, inc := range incidents {
		if inc.CausedSuspension {
			marked++
		}
	}
	if marked != 1 {
		t.Errorf("%d incidents marked caused_suspension, want exactly 1", marked)
	}
}

func TestReportRespectsDisabledAutoSuspend(t *testing.T) {
	svc, env, _ := newIncidentEnv(t)
	ctx := context.Background()
	env.batches.batches[1].EnableAutoSuspend = false

	attempt, err := env.svc.StartAttempt(ctx, 10, env.exam.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	for i := 0; i < 5; i++ {
		rep, err := svc.Report(ctx, attempt.ID, model.ReportIncidentRequest{Type: "window-blur"})
		if err != nil {
			t.Fatalf("report: %v", err)
		}
		if rep.Suspended {
			t.Fatal("suspended with auto-suspend disabled")
		}
	}

	stored, _ := env.attempts.GetByID(ctx, attempt.ID)
	if stored.Status != model.AttemptStatusInProgress {
		t.Errorf("attempt status = %s, want %s", stored.Status, model.AttemptStatusInProgress)
	}
}

func TestReportExtraAllowanceRaisesThreshold(t *testing.T) {
	svc, env, _ := newIncidentEnv(t)
	ctx := context.Background()

	attempt, err := env.svc.StartAttempt(ctx, 10, env.exam.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	env.attempts.attempts[attempt.ID].ExtraIncidentsAllowed = 2

	// Effective threshold is 3 + 2 = 5.
	for i := 1; i <= 4; i++ {
		rep, err := svc.Report(ctx, attempt.ID, model.ReportIncidentRequest{Type: "tab-change"})
		if err != nil {
			t.Fatalf("report %d: %v", i, err)
		}
		if rep.Suspended {
			t.Fatalf("report %d suspended below raised threshold", i)
		}
	}
	rep, err := svc.Report(ctx, attempt.ID, model.ReportIncidentRequest{Type: "tab-change"})
	if err != nil {
		t.Fatalf("report 5: %v", err)
	}
	if !rep.Suspended {
		t.Error("report 5 did not suspend at raised threshold")
	}
}

func TestReportNormalizesUnknownType(t *testing.T) {
	svc, env, _ := newIncidentEnv(t)
	ctx := context.Background()

	attempt, err := env.svc.StartAttempt(ctx, 10, env.exam.ID)
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	rep, err := svc.Report(ctx, attempt.ID, model.ReportIncidentRequest{
		Type:    "quantum-entanglement-detected",
		Details: "novel cheating vector",
	})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if rep.Incident.Type != model.IncidentTypeUnknown {
		t.Errorf("stored type = %s, want %s", rep.Incident.Type, model.IncidentTypeUnknown)
	}
	if rep.Incident.Details != "novel cheating vector" {
		t.Errorf("details not preserved: %q", rep.Incident.Details)
	}
	if rep.RunningCount != 1 {
		t.Errorf("unknown-type incident not counted: running count = %d", rep.RunningCount)
	}
}

func TestResolveExamToleratesOrphans(t *testing.T) {
	svc, env, _ := newIncidentEnv(t)
	ctx := context.Background()

	// Resolvable link.
	examID := env.exam.ID
	ref, err := svc.ResolveExam(ctx, model.SecurityIncident{ExamID: &examID})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !ref.Resolved() {
		t.Error("existing exam did not resolve")
	}

	// Dangling link: referenced exam is gone.
	gone := uuid.New()
	ref, err = svc.ResolveExam(ctx, model.SecurityIncident{ExamID: &gone})
	if err != nil {
		t.Fatalf("resolve dangling: %v", err)
	}
	if ref.Resolved() || ref.Orphan == "" {
		t.Errorf("dangling link resolved = %v, orphan = %q; want orphan variant", ref.Resolved(), ref.Orphan)
	}

	// No link at all.
	ref, err = svc.ResolveExam(ctx, model.SecurityIncident{})
	if err != nil {
		t.Fatalf("resolve nil: %v", err)
	}
	if ref.Resolved() || ref.Orphan == "" {
		t.Error("nil exam link should yield an orphan variant")
	}
}

func TestRecentClampsLimit(t *testing.T) {
	svc, env, ledger := newIncidentEnv(t)
	ctx := context.Background()

	attempt := env.attempts.put(&model.Attempt{
		StudentID: 10, ExamID: env.exam.ID, AttemptNumber: 1,
		Status: model.AttemptStatusInProgress, LastActiveAt: time.Now(),
	})
	for i := 0; i < 3; i++ {
		ledger.incidents = append(ledger.incidents, model.SecurityIncident{
			ID: uuid.New(), AttemptID: attempt.ID, StudentID: 10, Type: model.IncidentTabChange,
		})
	}

	// Out-of-range limits fall back to the default of 50, which caps at
	// what exists.
	for _, n := range []int{0, -5, 10000} {
		got, err := svc.Recent(ctx, n)
		if err != nil {
			t.Fatalf("Recent(%d): %v", n, err)
		}
		if len(got) != 3 {
			t.Errorf("Recent(%d) returned %d incidents, want 3", n, len(got))
		}
	}
}
