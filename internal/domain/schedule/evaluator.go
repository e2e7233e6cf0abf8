// Package schedule holds the pure scheduling rules: whether a routine is due
// on a date, which anchor date the resulting task belongs to, when it is due,
// and who owns it.
package schedule

import (
	"time"

	"github.com/garyjia/routine-ops/internal/domain/entity"
)

// biweeklySplitDay is the last day of the first half of a month.
const biweeklySplitDay = 15

// IsDue decides whether routine r produces a task on the civil date target
// and returns the anchor date that identifies that task.
//
// Monthly and biweekly routines anchor on the first day of their period, so
// every run inside the period resolves to the same task.
func IsDue(r *entity.Routine, target time.Time) (bool, time.Time) {
	if r == nil || !r.Active || r.Frequency == nil {
		return false, time.Time{}
	}

	switch f := r.Frequency.(type) {
	case entity.Daily:
		if len(f.Days) == 0 || f.Days.Contains(target.Weekday()) {
			return true, target
		}
		return false, time.Time{}

	case entity.Weekly:
		if f.Days.Contains(target.Weekday()) {
			return true, target
		}
		return false, time.Time{}

	case entity.Monthly:
		if target.Day() <= clampDay(f.DueDay, target) {
			return true, firstOfMonth(target)
		}
		return false, time.Time{}

	case entity.Biweekly:
		if target.Day() <= biweeklySplitDay {
			return true, firstOfMonth(target)
		}
		return true, entity.NewDate(target.Year(), target.Month(), biweeklySplitDay+1)

	case entity.SpecificDates:
		if f.Contains(target) {
			return true, target
		}
		return false, time.Time{}

	default:
		return false, time.Time{}
	}
}

// clampDay limits day to the length of d's month.
func clampDay(day int, d time.Time) int {
	if last := entity.LastDayOfMonth(d); day > last {
		return last
	}
	return day
}

func firstOfMonth(d time.Time) time.Time {
	return entity.NewDate(d.Year(), d.Month(), 1)
}
