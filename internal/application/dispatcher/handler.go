package dispatcher

import (
	"context"

	"github.com/garyjia/routine-ops/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}

// AllTaskEvents lists every lifecycle event type.
var AllTaskEvents = []event.Type{
	event.TypeTasksGenerated,
	event.TypeTaskStarted,
	event.TypeTaskCompleted,
	event.TypeTaskMissed,
	event.TypeTaskCancelled,
	event.TypeTaskAudited,
}

// NewAuditLogHandler returns a handler that writes every event to logger.
// It stands in for the notification collaborator, which lives outside this
// service.
func NewAuditLogHandler(logger Logger) Handler {
	return func(_ context.Context, evt *event.Event) error {
		kv := []interface{}{
			"event_type", evt.Type,
			"event_id", evt.ID,
			"correlation_id", evt.CorrelationID,
		}
		if evt.TaskID != 0 {
			kv = append(kv, "task_id", evt.TaskID)
		}
		for k, v := range evt.Payload {
			kv = append(kv, k, v)
		}
		logger.Info("Task event", kv...)
		return nil
	}
}
