package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/garyjia/routine-ops/internal/application/port"
	"github.com/garyjia/routine-ops/internal/domain/entity"
)

// Mock collaborators

type mockRoutineCatalog struct {
	routines       []*entity.Routine
	listActiveFunc func(ctx context.Context) ([]*entity.Routine, error)
}

func (m *mockRoutineCatalog) GetByID(ctx context.Context, id int64) (*entity.Routine, error) {
	for _, r := range m.routines {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (m *mockRoutineCatalog) ListActive(ctx context.Context) ([]*entity.Routine, error) {
	if m.listActiveFunc != nil {
		return m.listActiveFunc(ctx)
	}
	return m.routines, nil
}

type mockAssignmentRegistry struct {
	assignments    []*entity.Assignment
	listActiveFunc func(ctx context.Context) ([]*entity.Assignment, error)
	deactivated    []int64
}

func (m *mockAssignmentRegistry) GetByID(ctx context.Context, id int64) (*entity.Assignment, error) {
	for _, a := range m.assignments {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

func (m *mockAssignmentRegistry) ListActive(ctx context.Context) ([]*entity.Assignment, error) {
	if m.listActiveFunc != nil {
		return m.listActiveFunc(ctx)
	}
	var active []*entity.Assignment
	for _, a := range m.assignments {
		if a.IsActive() {
			active = append(active, a)
		}
	}
	return active, nil
}

func (m *mockAssignmentRegistry) Deactivate(ctx context.Context, id int64) error {
	m.deactivated = append(m.deactivated, id)
	for _, a := range m.assignments {
		if a.ID == id {
			a.Status = entity.AssignmentStatusInactive
		}
	}
	return nil
}

type mockResponsibleDirectory struct {
	bindings        []entity.ResponsibleBinding
	listValidOnFunc func(ctx context.Context, date time.Time) ([]entity.ResponsibleBinding, error)
}

func (m *mockResponsibleDirectory) ListValidOn(ctx context.Context, date time.Time) ([]entity.ResponsibleBinding, error) {
	if m.listValidOnFunc != nil {
		return m.listValidOnFunc(ctx, date)
	}
	return m.bindings, nil
}

type mockAbsenceLedger struct {
	absences         []entity.Absence
	listCoveringFunc func(ctx context.Context, date time.Time) ([]entity.Absence, error)
}

func (m *mockAbsenceLedger) ListCovering(ctx context.Context, date time.Time) ([]entity.Absence, error) {
	if m.listCoveringFunc != nil {
		return m.listCoveringFunc(ctx, date)
	}
	return m.absences, nil
}

type mockExceptionLedger struct {
	exceptions []entity.AssignmentException
}

func (m *mockExceptionLedger) ListOn(ctx context.Context, date time.Time) ([]entity.AssignmentException, error) {
	return m.exceptions, nil
}

// memoryTaskRepo is an in-memory TaskRepository that enforces the
// (assignment_id, scheduled_date) uniqueness and compare-and-set writes.
type memoryTaskRepo struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]*entity.TaskInstance

	insertErr error
}

func newMemoryTaskRepo() *memoryTaskRepo {
	return &memoryTaskRepo{tasks: make(map[int64]*entity.TaskInstance)}
}

func (m *memoryTaskRepo) InsertIgnore(ctx context.Context, tasks []*entity.TaskInstance) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return 0, m.insertErr
	}

	created := 0
	for _, t := range tasks {
		if m.findLocked(t.AssignmentID, t.ScheduledDate) != nil {
			continue
		}
		m.nextID++
		stored := *t
		stored.ID = m.nextID
		m.tasks[stored.ID] = &stored
		t.ID = stored.ID
		created++
	}
	return created, nil
}

func (m *memoryTaskRepo) findLocked(assignmentID int64, date time.Time) *entity.TaskInstance {
	for _, t := range m.tasks {
		if t.AssignmentID == assignmentID && t.ScheduledDate.Equal(date) {
			return t
		}
	}
	return nil
}

func (m *memoryTaskRepo) put(t *entity.TaskInstance) *entity.TaskInstance {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	stored := *t
	m.tasks[t.ID] = &stored
	return t
}

func (m *memoryTaskRepo) GetByID(ctx context.Context, id int64) (*entity.TaskInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, nil
	}
	copied := *t
	return &copied, nil
}

func (m *memoryTaskRepo) List(ctx context.Context, filter port.TaskFilter) ([]*entity.TaskInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.TaskInstance
	for _, t := range m.sortedLocked() {
		if filter.ScheduledDate != nil && !t.ScheduledDate.Equal(*filter.ScheduledDate) {
			continue
		}
		if filter.LocationID != 0 && t.LocationID != filter.LocationID {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		copied := *t
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memoryTaskRepo) sortedLocked() []*entity.TaskInstance {
	all := make([]*entity.TaskInstance, 0, len(m.tasks))
	for _, t := range m.tasks {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

func isOpen(status string) bool {
	return status == entity.TaskStatusPending || status == entity.TaskStatusInProgress
}

func (m *memoryTaskRepo) ListOverdue(ctx context.Context, now time.Time) ([]*entity.TaskInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.TaskInstance
	for _, t := range m.sortedLocked() {
		if isOpen(t.Status) && t.DueAt.Before(now) {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryTaskRepo) ListOpenAfter(ctx context.Context, assignmentID int64, date time.Time) ([]*entity.TaskInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.TaskInstance
	for _, t := range m.sortedLocked() {
		if t.AssignmentID == assignmentID && isOpen(t.Status) && t.ScheduledDate.After(date) {
			copied := *t
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *memoryTaskRepo) ChangeStatus(ctx context.Context, id int64, change port.StatusChange) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.Status != change.From {
		return false, nil
	}
	t.Status = change.To
	t.UpdatedAt = change.At
	if change.CompletedAt != nil {
		t.CompletedAt = change.CompletedAt
		t.CompletedBy = change.CompletedBy
	}
	if change.CancelReason != "" {
		t.CancelReason = change.CancelReason
	}
	return true, nil
}

func (m *memoryTaskRepo) RecordAudit(ctx context.Context, id int64, change port.AuditChange) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok || t.AuditStatus != entity.AuditStatusPending || !t.IsCompleted() {
		return false, nil
	}
	t.AuditStatus = change.Decision
	t.AuditNotes = change.Notes
	t.AuditedBy = &change.AuditedBy
	t.AuditedAt = &change.At
	return true, nil
}

func (m *memoryTaskRepo) Summarize(ctx context.Context, from, to time.Time) (*entity.ComplianceSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &entity.ComplianceSummary{}
	for _, t := range m.tasks {
		if t.ScheduledDate.Before(from) || t.ScheduledDate.After(to) || t.Status == entity.TaskStatusCancelled {
			continue
		}
		s.Total++
		switch t.Status {
		case entity.TaskStatusCompletedOnTime:
			s.CompletedOnTime++
		case entity.TaskStatusCompletedLate:
			s.CompletedLate++
		case entity.TaskStatusMissed:
			s.Missed++
		default:
			s.Open++
		}
	}
	return s, nil
}

func (m *memoryTaskRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

type memoryHistoryRepo struct {
	mu      sync.Mutex
	records []*entity.TaskHistory
}

func (m *memoryHistoryRepo) Create(ctx context.Context, history *entity.TaskHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	history.ID = int64(len(m.records) + 1)
	m.records = append(m.records, history)
	return nil
}

func (m *memoryHistoryRepo) ListByTaskID(ctx context.Context, taskID int64) ([]*entity.TaskHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.TaskHistory
	for _, r := range m.records {
		if r.TaskID == taskID {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockTxManager struct {
	calls int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

type logEntry struct {
	msg string
	kv  []interface{}
}

type recordingLogger struct {
	mu      sync.Mutex
	infos   []string
	errors  []string
	entries []logEntry
}

func (l *recordingLogger) Info(msg string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
	l.entries = append(l.entries, logEntry{msg: msg, kv: keysAndValues})
}

func (l *recordingLogger) Error(msg string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
	l.entries = append(l.entries, logEntry{msg: msg, kv: keysAndValues})
}

// find returns the values logged under key for every entry with msg
func (l *recordingLogger) find(msg, key string) []interface{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []interface{}
	for _, e := range l.entries {
		if e.msg != msg {
			continue
		}
		for i := 0; i+1 < len(e.kv); i += 2 {
			if e.kv[i] == key {
				out = append(out, e.kv[i+1])
			}
		}
	}
	return out
}
