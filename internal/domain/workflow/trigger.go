package workflow

// TaskTrigger is an event that can move a task through its lifecycle
type TaskTrigger string

const (
	TriggerStart    TaskTrigger = "START"
	TriggerComplete TaskTrigger = "COMPLETE"
	TriggerMiss     TaskTrigger = "MISS"
	TriggerCancel   TaskTrigger = "CANCEL"
)

func (t TaskTrigger) String() string {
	return string(t)
}

// AuditTrigger is a reviewer decision
type AuditTrigger string

const (
	TriggerApprove AuditTrigger = "APPROVE"
	TriggerReject  AuditTrigger = "REJECT"
)

func (t AuditTrigger) String() string {
	return string(t)
}
