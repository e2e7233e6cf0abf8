package entity

import "time"

// Priority of a routine, copied onto every task it produces.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Routine is a reusable checklist definition with a recurrence rule.
type Routine struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Frequency Frequency  `json:"-"`
	StartTime *TimeOfDay `json:"-"`
	DueTime   *TimeOfDay `json:"-"` // nil means end of day
	Priority  Priority   `json:"priority"`
	Active    bool       `json:"active"`
}

// Assignment status values
const (
	AssignmentStatusActive   = "active"
	AssignmentStatusInactive = "inactive"
)

// Assignment binds one routine to one location.
type Assignment struct {
	ID         int64  `json:"id"`
	RoutineID  int64  `json:"routine_id"`
	LocationID int64  `json:"location_id"`
	Status     string `json:"status"`
}

// IsActive reports whether the assignment takes part in scheduling.
func (a *Assignment) IsActive() bool {
	return a.Status == AssignmentStatusActive
}

// ResponsibleBinding designates the actor responsible for a location.
// ValidTo is nil for an open-ended binding.
type ResponsibleBinding struct {
	LocationID int64      `json:"location_id"`
	ActorID    int64      `json:"actor_id"`
	ValidFrom  time.Time  `json:"valid_from"`
	ValidTo    *time.Time `json:"valid_to,omitempty"`
}

// Covers reports whether the binding is valid on the civil date d.
func (b *ResponsibleBinding) Covers(d time.Time) bool {
	if d.Before(b.ValidFrom) {
		return false
	}
	return b.ValidTo == nil || !d.After(*b.ValidTo)
}

// AbsencePolicy decides what happens to an absent actor's tasks.
type AbsencePolicy string

const (
	AbsencePolicyOmit     AbsencePolicy = "omit"
	AbsencePolicyReassign AbsencePolicy = "reassign"
)

// Absence is a temporary unavailability of an actor, inclusive on both ends.
type Absence struct {
	ID              int64         `json:"id"`
	ActorID         int64         `json:"actor_id"`
	DateFrom        time.Time     `json:"date_from"`
	DateTo          time.Time     `json:"date_to"`
	Policy          AbsencePolicy `json:"policy"`
	ReceptorActorID *int64        `json:"receptor_actor_id,omitempty"`
}

// Covers reports whether the absence includes the civil date d.
func (a *Absence) Covers(d time.Time) bool {
	return !d.Before(a.DateFrom) && !d.After(a.DateTo)
}

// AssignmentException suppresses one assignment on one date.
type AssignmentException struct {
	AssignmentID int64     `json:"assignment_id"`
	Date         time.Time `json:"date"`
	Reason       string    `json:"reason,omitempty"`
}
