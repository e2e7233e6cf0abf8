package schedule

import (
	"time"

	"github.com/garyjia/routine-ops/internal/domain/entity"
)

// ComputeDueAt returns the instant a task anchored on anchor is due, in the
// operating location loc. It depends only on its inputs.
func ComputeDueAt(r *entity.Routine, anchor time.Time, loc *time.Location) time.Time {
	dueDate := DueDate(r, anchor)

	dueTime := entity.EndOfDay
	if r.DueTime != nil {
		dueTime = *r.DueTime
	}
	return dueTime.On(dueDate, loc)
}

// DueDate is the civil date a task anchored on anchor falls due.
func DueDate(r *entity.Routine, anchor time.Time) time.Time {
	day := anchor.Day()

	switch f := r.Frequency.(type) {
	case entity.Monthly:
		day = clampDay(f.DueDay, anchor)
	case entity.Biweekly:
		if anchor.Day() <= biweeklySplitDay {
			day = min(f.Cutoff1Day, biweeklySplitDay)
		} else {
			day = clampDay(f.Cutoff2Day, anchor)
		}
	}

	// A deadline never precedes the period it belongs to.
	if day < anchor.Day() {
		day = anchor.Day()
	}
	return entity.NewDate(anchor.Year(), anchor.Month(), day)
}
