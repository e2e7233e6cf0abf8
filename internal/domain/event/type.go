package event

// Type identifies the type of domain event
type Type string

const (
	TypeTasksGenerated Type = "task.generated"
	TypeTaskStarted    Type = "task.started"
	TypeTaskCompleted  Type = "task.completed"
	TypeTaskMissed     Type = "task.missed"
	TypeTaskCancelled  Type = "task.cancelled"
	TypeTaskAudited    Type = "task.audited"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeTasksGenerated,
		TypeTaskStarted,
		TypeTaskCompleted,
		TypeTaskMissed,
		TypeTaskCancelled,
		TypeTaskAudited:
		return true
	default:
		return false
	}
}
