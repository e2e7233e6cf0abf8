package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/garyjia/routine-ops/internal/domain/entity"
)

func TestResolver_Resolve(t *testing.T) {
	day := entity.NewDate(2025, time.June, 3)
	receptor := int64(77)

	bindings := []entity.ResponsibleBinding{
		{LocationID: 10, ActorID: 1, ValidFrom: entity.NewDate(2025, time.January, 1)},
		{LocationID: 20, ActorID: 2, ValidFrom: entity.NewDate(2025, time.January, 1)},
		{LocationID: 30, ActorID: 3, ValidFrom: entity.NewDate(2025, time.January, 1)},
	}
	absences := []entity.Absence{
		{ID: 1, ActorID: 2, DateFrom: entity.NewDate(2025, time.June, 1), DateTo: entity.NewDate(2025, time.June, 3), Policy: entity.AbsencePolicyOmit},
		{ID: 2, ActorID: 3, DateFrom: entity.NewDate(2025, time.June, 3), DateTo: entity.NewDate(2025, time.June, 9), Policy: entity.AbsencePolicyReassign, ReceptorActorID: &receptor},
		{ID: 3, ActorID: 1, DateFrom: entity.NewDate(2025, time.June, 4), DateTo: entity.NewDate(2025, time.June, 9), Policy: entity.AbsencePolicyOmit},
	}
	resolver := NewResolver(bindings, absences)

	tests := []struct {
		name       string
		locationID int64
		wantActor  int64
		wantReason SkipReason
	}{
		{"no absence keeps the designated actor", 10, 1, SkipNone},
		{"omit absence skips", 20, 0, SkipAbsentOmitted},
		{"reassign absence hands over to the receptor", 30, 77, SkipNone},
		{"location without responsible skips", 40, 0, SkipNoResponsible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor, reason := resolver.Resolve(tt.locationID, day)
			assert.Equal(t, tt.wantActor, actor)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestResolver_BindingValidity(t *testing.T) {
	ended := entity.NewDate(2025, time.May, 31)
	resolver := NewResolver([]entity.ResponsibleBinding{
		{LocationID: 10, ActorID: 1, ValidFrom: entity.NewDate(2025, time.January, 1), ValidTo: &ended},
		{LocationID: 10, ActorID: 2, ValidFrom: entity.NewDate(2025, time.June, 1)},
	}, nil)

	actor, reason := resolver.Resolve(10, entity.NewDate(2025, time.May, 15))
	assert.Equal(t, SkipNone, reason)
	assert.Equal(t, int64(1), actor)

	actor, reason = resolver.Resolve(10, entity.NewDate(2025, time.June, 1))
	assert.Equal(t, SkipNone, reason)
	assert.Equal(t, int64(2), actor)
}

func TestResolver_LatestAbsenceWins(t *testing.T) {
	receptor := int64(9)
	day := entity.NewDate(2025, time.June, 3)
	resolver := NewResolver(
		[]entity.ResponsibleBinding{{LocationID: 10, ActorID: 1, ValidFrom: entity.NewDate(2025, time.January, 1)}},
		[]entity.Absence{
			{ID: 1, ActorID: 1, DateFrom: day, DateTo: day, Policy: entity.AbsencePolicyOmit},
			{ID: 2, ActorID: 1, DateFrom: day, DateTo: day, Policy: entity.AbsencePolicyReassign, ReceptorActorID: &receptor},
		},
	)

	actor, reason := resolver.Resolve(10, day)
	assert.Equal(t, SkipNone, reason)
	assert.Equal(t, int64(9), actor)
}
