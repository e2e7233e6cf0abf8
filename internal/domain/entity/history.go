package entity

import "time"

// TaskHistory is the audit trail of a task instance: one row per status or
// audit transition.
type TaskHistory struct {
	ID             int64     `json:"id"`
	TaskID         int64     `json:"task_id"`
	ActorID        *int64    `json:"actor_id,omitempty"` // nil for system actions
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Action         string    `json:"action"`
	Note           string    `json:"note,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// ComplianceSummary aggregates task outcomes over a date range. Cancelled
// instances are never counted.
type ComplianceSummary struct {
	From            time.Time `json:"from"`
	To              time.Time `json:"to"`
	Total           int       `json:"total"`
	CompletedOnTime int       `json:"completed_on_time"`
	CompletedLate   int       `json:"completed_late"`
	Missed          int       `json:"missed"`
	Open            int       `json:"open"`
}

// Closed counts the tasks with a final outcome. Open tasks are excluded.
func (s ComplianceSummary) Closed() int {
	return s.CompletedOnTime + s.CompletedLate + s.Missed
}

// OnTimeRate is the share of closed tasks completed on time, 0..100. Tasks
// still pending or in progress do not lower it.
func (s ComplianceSummary) OnTimeRate() float64 {
	closed := s.Closed()
	if closed == 0 {
		return 0
	}
	return float64(s.CompletedOnTime) * 100 / float64(closed)
}
