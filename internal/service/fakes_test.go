package service

import (
	"context"
	"sort"
	"time"

	"github.com/certiva/examportal-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// In-memory store fakes. They mirror the repository contracts closely enough
// for the engine services: not-found is pgx.ErrNoRows, attempts are ordered
// by attempt number, and the incident ledger applies the same atomic
// append-then-check-then-suspend rule as the SQL implementation.

type fakeAttemptStore struct {
	attempts map[uuid.UUID]*model.Attempt
	grants   []model.AttemptGrant
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{attempts: make(map[uuid.UUID]*model.Attempt)}
}

func (f *fakeAttemptStore) put(a *model.Attempt) *model.Attempt {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	cp := *a
	f.attempts[a.ID] = &cp
	return &cp
}

func (f *fakeAttemptStore) Create(_ context.Context, a *model.Attempt) error {
	a.ID = uuid.New()
	a.StartedAt = time.Now()
	a.LastActiveAt = a.StartedAt
	cp := *a
	f.attempts[a.ID] = &cp
	return nil
}

func (f *fakeAttemptStore) GetByID(_ context.Context, id uuid.UUID) (*model.Attempt, error) {
	a, ok := f.attempts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttemptStore) GetActiveByStudent(_ context.Context, studentID int) (*model.Attempt, error) {
	for _, a := range f.attempts {
		if a.StudentID == studentID && a.Status == model.AttemptStatusInProgress {
			cp := *a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAttemptStore) ListByStudentAndExam(_ context.Context, studentID int, examID uuid.UUID) ([]model.Attempt, error) {
	var out []model.Attempt
	for _, a := range f.attempts {
		if a.StudentID == studentID && a.ExamID == examID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber < out[j].AttemptNumber })
	return out, nil
}

func (f *fakeAttemptStore) CountUsed(_ context.Context, studentID int, examID uuid.UUID) (int, error) {
	n := 0
	for _, a := range f.attempts {
		if a.StudentID == studentID && a.ExamID == examID && a.Status != model.AttemptStatusAbandoned {
			n++
		}
	}
	return n, nil
}

func (f *fakeAttemptStore) HasPassed(_ context.Context, studentID int, examID uuid.UUID) (bool, error) {
	for _, a := range f.attempts {
		if a.StudentID == studentID && a.ExamID == examID && a.Passed != nil && *a.Passed {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAttemptStore) RecordSubmission(_ context.Context, a *model.Attempt) error {
	stored, ok := f.attempts[a.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	*stored = *a
	return nil
}

func (f *fakeAttemptStore) TouchLastActive(_ context.Context, id uuid.UUID, at time.Time) error {
	if a, ok := f.attempts[id]; ok && a.Status == model.AttemptStatusInProgress {
		a.LastActiveAt = at
	}
	return nil
}

func (f *fakeAttemptStore) RemoveSuspension(_ context.Context, id uuid.UUID, extraIncidents int, paymentRef string, at time.Time) (int64, error) {
	a, ok := f.attempts[id]
	if !ok || a.Status != model.AttemptStatusSuspended {
		return 0, nil
	}
	a.Status = model.AttemptStatusInProgress
	a.StartedAt = a.StartedAt.Add(at.Sub(*a.SuspendedAt))
	a.LastActiveAt = at
	a.SuspendedAt = nil
	a.ExtraIncidentsAllowed += extraIncidents
	a.SuspensionPaymentRef = &paymentRef
	return 1, nil
}

func (f *fakeAttemptStore) Abandon(_ context.Context, id uuid.UUID) (int64, error) {
	a, ok := f.attempts[id]
	if !ok || a.Status != model.AttemptStatusSuspended {
		return 0, nil
	}
	a.Status = model.AttemptStatusAbandoned
	return 1, nil
}

func (f *fakeAttemptStore) CreateGrant(_ context.Context, g *model.AttemptGrant) error {
	g.ID = uuid.New()
	g.CreatedAt = time.Now()
	f.grants = append(f.grants, *g)
	return nil
}

func (f *fakeAttemptStore) SumGrants(_ context.Context, studentID int, examID uuid.UUID) (int, error) {
	total := 0
	for _, g := range f.grants {
		if g.StudentID == studentID && g.ExamID == examID {
			total += g.AttemptsGranted
		}
	}
	return total, nil
}

type fakeExamStore struct {
	exams    map[uuid.UUID]*model.Exam
	assigned map[uuid.UUID]map[int]bool
}

func newFakeExamStore() *fakeExamStore {
	return &fakeExamStore{
		exams:    make(map[uuid.UUID]*model.Exam),
		assigned: make(map[uuid.UUID]map[int]bool),
	}
}

func (f *fakeExamStore) put(e *model.Exam, batchIDs ...int) *model.Exam {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	cp := *e
	f.exams[e.ID] = &cp
	f.assigned[e.ID] = make(map[int]bool)
	for _, b := range batchIDs {
		f.assigned[e.ID][b] = true
	}
	return &cp
}

func (f *fakeExamStore) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	e, ok := f.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (f *fakeExamStore) IsAssignedToBatch(_ context.Context, examID uuid.UUID, batchID int) (bool, error) {
	return f.assigned[examID][batchID], nil
}

type fakeQuestionStore struct {
	byExam map[uuid.UUID][]model.Question
}

func newFakeQuestionStore() *fakeQuestionStore {
	return &fakeQuestionStore{byExam: make(map[uuid.UUID][]model.Question)}
}

func (f *fakeQuestionStore) put(examID uuid.UUID, qs ...model.Question) []model.Question {
	for i := range qs {
		if qs[i].ID == uuid.Nil {
			qs[i].ID = uuid.New()
		}
		qs[i].ExamID = examID
	}
	f.byExam[examID] = append(f.byExam[examID], qs...)
	return f.byExam[examID]
}

func (f *fakeQuestionStore) ListIDsByExam(_ context.Context, examID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, q := range f.byExam[examID] {
		ids = append(ids, q.ID)
	}
	return ids, nil
}

func (f *fakeQuestionStore) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.Question, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make(map[uuid.UUID]model.Question)
	for _, qs := range f.byExam {
		for _, q := range qs {
			if want[q.ID] {
				out[q.ID] = q
			}
		}
	}
	return out, nil
}

type fakeStudentStore struct {
	students map[int]*model.Student
}

func newFakeStudentStore() *fakeStudentStore {
	return &fakeStudentStore{students: make(map[int]*model.Student)}
}

func (f *fakeStudentStore) put(s *model.Student) *model.Student {
	cp := *s
	f.students[s.ID] = &cp
	return &cp
}

func (f *fakeStudentStore) GetByID(_ context.Context, id int) (*model.Student, error) {
	s, ok := f.students[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

type fakeBatchStore struct {
	batches map[int]*model.Batch
}

func newFakeBatchStore() *fakeBatchStore {
	return &fakeBatchStore{batches: make(map[int]*model.Batch)}
}

func (f *fakeBatchStore) put(b *model.Batch) *model.Batch {
	cp := *b
	f.batches[b.ID] = &cp
	return &cp
}

func (f *fakeBatchStore) GetByID(_ context.Context, id int) (*model.Batch, error) {
	b, ok := f.batches[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *b
	return &cp, nil
}

type fakeSubscriptionStore struct {
	subs map[int]*model.Subscription // keyed by student ID
}

func newFakeSubscriptionStore() *fakeSubscriptionStore {
	return &fakeSubscriptionStore{subs: make(map[int]*model.Subscription)}
}

func (f *fakeSubscriptionStore) put(studentID int, s *model.Subscription) {
	cp := *s
	cp.StudentID = studentID
	f.subs[studentID] = &cp
}

func (f *fakeSubscriptionStore) GetCurrent(_ context.Context, studentID, planID int) (*model.Subscription, error) {
	s, ok := f.subs[studentID]
	if !ok || s.PlanID != planID {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

// fakeIncidentLedger implements the same atomicity rule as the SQL ledger:
// the append and the threshold check happen under one lock, and only the
// crossing event marks caused_suspension and flips the attempt.
type fakeIncidentLedger struct {
	attempts  *fakeAttemptStore
	incidents []model.SecurityIncident
}

func (f *fakeIncidentLedger) AppendWithAutoSuspend(_ context.Context, inc *model.SecurityIncident, threshold int, autoSuspend bool) (int, bool, error) {
	inc.ID = uuid.New()
	inc.CreatedAt = time.Now()
	f.incidents = append(f.incidents, *inc)

	count := 0
	for _, i := range f.incidents {
		if i.AttemptID == inc.AttemptID {
			count++
		}
	}

	suspendedNow := false
	if autoSuspend && count >= threshold {
		if a, ok := f.attempts.attempts[inc.AttemptID]; ok && a.Status == model.AttemptStatusInProgress {
			now := time.Now()
			a.Status = model.AttemptStatusSuspended
			a.SuspendedAt = &now
			a.IncidentCountAtSuspension = &count
			suspendedNow = true
			inc.CausedSuspension = true
			f.incidents[len(f.incidents)-1].CausedSuspension = true
		}
	}
	return count, suspendedNow, nil
}

func (f *fakeIncidentLedger) CountByAttempt(_ context.Context, attemptID uuid.UUID) (int, error) {
	n := 0
	for _, i := range f.incidents {
		if i.AttemptID == attemptID {
			n++
		}
	}
	return n, nil
}

func (f *fakeIncidentLedger) ListByAttempt(_ context.Context, attemptID uuid.UUID) ([]model.SecurityIncident, error) {
	var out []model.SecurityIncident
	for _, i := range f.incidents {
		if i.AttemptID == attemptID {
			out = append(out, i)
		}
	}
	return out, nil
}

func (f *fakeIncidentLedger) Recent(_ context.Context, n int) ([]model.SecurityIncident, error) {
	if n > len(f.incidents) {
		n = len(f.incidents)
	}
	out := make([]model.SecurityIncident, n)
	copy(out, f.incidents[len(f.incidents)-n:])
	return out, nil
}

func (f *fakeIncidentLedger) GroupByType(_ context.Context) ([]model.IncidentTypeCount, error) {
	counts := make(map[model.IncidentType]int64)
	for _, i := range f.incidents {
		counts[i.Type]++
	}
	var out []model.IncidentTypeCount
	for t, c := range counts {
		out = append(out, model.IncidentTypeCount{Type: t, Count: c})
	}
	return out, nil
}

func (f *fakeIncidentLedger) TopStudents(_ context.Context, n int) ([]model.StudentIncidentCount, error) {
	return nil, nil
}

type fakeDispatcher struct {
	dispatched []uuid.UUID
}

func (f *fakeDispatcher) Dispatch(_ context.Context, attemptID uuid.UUID, _ int, _ uuid.UUID) error {
	f.dispatched = append(f.dispatched, attemptID)
	return nil
}
