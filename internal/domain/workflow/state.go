package workflow

// TaskState represents a task instance's primary lifecycle state
type TaskState string

const (
	StatePending         TaskState = "pending"
	StateInProgress      TaskState = "in_progress"
	StateCompletedOnTime TaskState = "completed_on_time"
	StateCompletedLate   TaskState = "completed_late"
	StateMissed          TaskState = "missed"
	StateCancelled       TaskState = "cancelled"
)

var validTaskStates = map[TaskState]bool{
	StatePending:         true,
	StateInProgress:      true,
	StateCompletedOnTime: true,
	StateCompletedLate:   true,
	StateMissed:          true,
	StateCancelled:       true,
}

var terminalTaskStates = map[TaskState]bool{
	StateCompletedOnTime: true,
	StateCompletedLate:   true,
	StateMissed:          true,
	StateCancelled:       true,
}

// IsTerminal returns true if no further transitions are allowed
func (s TaskState) IsTerminal() bool {
	return terminalTaskStates[s]
}

// IsValid returns true if the state is a known lifecycle state
func (s TaskState) IsValid() bool {
	return validTaskStates[s]
}

func (s TaskState) String() string {
	return string(s)
}

// AuditState represents the secondary approval state of a completed task
type AuditState string

const (
	AuditPending  AuditState = "pending"
	AuditApproved AuditState = "approved"
	AuditRejected AuditState = "rejected"
)

// IsTerminal returns true once a decision has been recorded
func (s AuditState) IsTerminal() bool {
	return s == AuditApproved || s == AuditRejected
}

// IsValid returns true if the state is a known audit state
func (s AuditState) IsValid() bool {
	switch s {
	case AuditPending, AuditApproved, AuditRejected:
		return true
	default:
		return false
	}
}

func (s AuditState) String() string {
	return string(s)
}
