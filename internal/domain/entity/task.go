package entity

import "time"

// TaskInstance is one dated occurrence of a routine at a location, owned by
// one actor.
//
// The responsible actor and the routine fields are copied at creation time.
// Later edits to the routine or to the location's responsible binding never
// reach an instance that already exists.
type TaskInstance struct {
	ID           int64 `json:"id"`
	AssignmentID int64 `json:"assignment_id"`
	LocationID   int64 `json:"location_id"`

	ResponsibleActorID int64 `json:"responsible_actor_id"`

	// ScheduledDate is the anchor date and, together with AssignmentID, the
	// identity of the instance. For monthly and biweekly routines it is the
	// first day of the period, not the due date.
	ScheduledDate time.Time `json:"scheduled_date"`
	DueAt         time.Time `json:"due_at"`

	Routine RoutineSnapshot `json:"routine"`

	Status       string     `json:"status"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CompletedBy  *int64     `json:"completed_by,omitempty"`
	CancelReason string     `json:"cancel_reason,omitempty"`

	AuditStatus string     `json:"audit_status"`
	AuditNotes  string     `json:"audit_notes,omitempty"`
	AuditedBy   *int64     `json:"audited_by,omitempty"`
	AuditedAt   *time.Time `json:"audited_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoutineSnapshot holds the routine fields frozen onto an instance.
type RoutineSnapshot struct {
	RoutineID int64         `json:"routine_id"`
	Name      string        `json:"name"`
	Frequency FrequencyKind `json:"frequency"`
	Priority  Priority      `json:"priority"`
	StartTime string        `json:"start_time,omitempty"`
	DueTime   string        `json:"due_time"`
}

// SnapshotOf freezes the fields of r that an instance keeps.
func SnapshotOf(r *Routine) RoutineSnapshot {
	snap := RoutineSnapshot{
		RoutineID: r.ID,
		Name:      r.Name,
		Frequency: r.Frequency.Kind(),
		Priority:  r.Priority,
		DueTime:   EndOfDay.String(),
	}
	if r.StartTime != nil {
		snap.StartTime = r.StartTime.String()
	}
	if r.DueTime != nil {
		snap.DueTime = r.DueTime.String()
	}
	return snap
}

// IsCompleted reports whether the instance finished, on time or late.
func (t *TaskInstance) IsCompleted() bool {
	return t.Status == TaskStatusCompletedOnTime || t.Status == TaskStatusCompletedLate
}

// Task status constants
const (
	TaskStatusPending         = "pending"
	TaskStatusInProgress      = "in_progress"
	TaskStatusCompletedOnTime = "completed_on_time"
	TaskStatusCompletedLate   = "completed_late"
	TaskStatusMissed          = "missed"
	TaskStatusCancelled       = "cancelled"
)

// Audit status constants
const (
	AuditStatusPending  = "pending"
	AuditStatusApproved = "approved"
	AuditStatusRejected = "rejected"
)
