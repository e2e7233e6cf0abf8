package schedule

import (
	"time"

	"github.com/garyjia/routine-ops/internal/domain/entity"
)

// SkipReason explains why a due assignment produced no task.
type SkipReason string

const (
	SkipNone          SkipReason = ""
	SkipNoResponsible SkipReason = "no-responsible"
	SkipAbsentOmitted SkipReason = "absent-omitted"
	SkipException     SkipReason = "exception"
)

// Resolver decides the effective owner of a task from a point-in-time
// snapshot of responsible bindings and absences.
type Resolver struct {
	bindings map[int64][]entity.ResponsibleBinding // by location
	absences map[int64][]entity.Absence            // by actor
}

// NewResolver indexes the snapshot for lookups.
func NewResolver(bindings []entity.ResponsibleBinding, absences []entity.Absence) *Resolver {
	r := &Resolver{
		bindings: make(map[int64][]entity.ResponsibleBinding),
		absences: make(map[int64][]entity.Absence),
	}
	for _, b := range bindings {
		r.bindings[b.LocationID] = append(r.bindings[b.LocationID], b)
	}
	for _, a := range absences {
		r.absences[a.ActorID] = append(r.absences[a.ActorID], a)
	}
	return r
}

// Resolve returns the actor who owns locationID's task on date, or a skip
// reason when there is none.
func (r *Resolver) Resolve(locationID int64, date time.Time) (int64, SkipReason) {
	actorID, ok := r.designated(locationID, date)
	if !ok {
		return 0, SkipNoResponsible
	}

	absence := r.absenceOn(actorID, date)
	if absence == nil {
		return actorID, SkipNone
	}

	switch absence.Policy {
	case entity.AbsencePolicyReassign:
		if absence.ReceptorActorID == nil {
			return 0, SkipNoResponsible
		}
		return *absence.ReceptorActorID, SkipNone
	default:
		return 0, SkipAbsentOmitted
	}
}

// designated picks the binding covering date with the latest start.
func (r *Resolver) designated(locationID int64, date time.Time) (int64, bool) {
	var best *entity.ResponsibleBinding
	for i := range r.bindings[locationID] {
		b := &r.bindings[locationID][i]
		if !b.Covers(date) {
			continue
		}
		if best == nil || b.ValidFrom.After(best.ValidFrom) {
			best = b
		}
	}
	if best == nil {
		return 0, false
	}
	return best.ActorID, true
}

// absenceOn returns the most recently recorded absence covering date.
func (r *Resolver) absenceOn(actorID int64, date time.Time) *entity.Absence {
	var found *entity.Absence
	for i := range r.absences[actorID] {
		a := &r.absences[actorID][i]
		if !a.Covers(date) {
			continue
		}
		if found == nil || a.ID > found.ID {
			found = a
		}
	}
	return found
}
