package entity

// History action constants
const (
	ActionGenerate = "GENERATE"
	ActionStart    = "START"
	ActionComplete = "COMPLETE"
	ActionMiss     = "MISS"
	ActionCancel   = "CANCEL"
	ActionApprove  = "AUDIT_APPROVE"
	ActionReject   = "AUDIT_REJECT"
)

// Cancellation scope constants
const (
	CancelScopeInstance            = "instance"
	CancelScopeAssignmentAndFuture = "assignment-and-future"
)

// Audit decision constants
const (
	AuditDecisionApproved = "approved"
	AuditDecisionRejected = "rejected"
)
