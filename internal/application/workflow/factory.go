package workflow

import (
	"context"
	"time"

	domainwf "github.com/garyjia/routine-ops/internal/domain/workflow"
)

// TaskMachine is the lifecycle machine of one task instance
type TaskMachine = domainwf.StateMachine[domainwf.TaskState, domainwf.TaskTrigger]

// AuditMachine is the audit machine of one completed task instance
type AuditMachine = domainwf.StateMachine[domainwf.AuditState, domainwf.AuditTrigger]

// BuildTaskStateMachine creates the lifecycle machine for a task due at dueAt,
// evaluated at instant now.
//
// COMPLETE lands on completed_on_time when now is not after dueAt and on
// completed_late otherwise. MISS is only permitted once dueAt has passed.
func BuildTaskStateMachine(initialState domainwf.TaskState, dueAt, now time.Time) TaskMachine {
	onTime := func(context.Context) bool { return !now.After(dueAt) }
	late := func(context.Context) bool { return now.After(dueAt) }
	overdue := func(context.Context) bool { return dueAt.Before(now) }

	builder := domainwf.NewBuilder[domainwf.TaskState, domainwf.TaskTrigger]()

	builder.Configure(domainwf.StatePending).
		Permit(domainwf.TriggerStart, domainwf.StateInProgress).
		PermitIf(domainwf.TriggerComplete, domainwf.StateCompletedOnTime, onTime).
		PermitIf(domainwf.TriggerComplete, domainwf.StateCompletedLate, late).
		PermitIf(domainwf.TriggerMiss, domainwf.StateMissed, overdue).
		Permit(domainwf.TriggerCancel, domainwf.StateCancelled)

	builder.Configure(domainwf.StateInProgress).
		PermitIf(domainwf.TriggerComplete, domainwf.StateCompletedOnTime, onTime).
		PermitIf(domainwf.TriggerComplete, domainwf.StateCompletedLate, late).
		PermitIf(domainwf.TriggerMiss, domainwf.StateMissed, overdue).
		Permit(domainwf.TriggerCancel, domainwf.StateCancelled)

	// completed_on_time, completed_late, missed and cancelled are terminal

	return builder.Build(initialState)
}

// BuildAuditStateMachine creates the audit machine. A rejection needs a note.
func BuildAuditStateMachine(initialState domainwf.AuditState, note string) AuditMachine {
	hasNote := func(context.Context) bool { return note != "" }

	builder := domainwf.NewBuilder[domainwf.AuditState, domainwf.AuditTrigger]()

	builder.Configure(domainwf.AuditPending).
		Permit(domainwf.TriggerApprove, domainwf.AuditApproved).
		PermitIf(domainwf.TriggerReject, domainwf.AuditRejected, hasNote)

	return builder.Build(initialState)
}
