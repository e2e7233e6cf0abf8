package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/garyjia/routine-ops/internal/domain/entity"
)

func routine(freq entity.Frequency) *entity.Routine {
	return &entity.Routine{ID: 1, Name: "Cash count", Frequency: freq, Priority: entity.PriorityMedium, Active: true}
}

func TestIsDue(t *testing.T) {
	monday := entity.NewDate(2025, time.June, 2)
	saturday := entity.NewDate(2025, time.June, 7)

	tests := []struct {
		name       string
		freq       entity.Frequency
		target     time.Time
		wantDue    bool
		wantAnchor time.Time
	}{
		{
			name:       "daily without days runs every day",
			freq:       entity.Daily{},
			target:     saturday,
			wantDue:    true,
			wantAnchor: saturday,
		},
		{
			name:    "daily restricted to weekdays skips saturday",
			freq:    entity.Daily{Days: entity.NewWeekdaySet(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)},
			target:  saturday,
			wantDue: false,
		},
		{
			name:       "daily restricted to weekdays runs monday",
			freq:       entity.Daily{Days: entity.NewWeekdaySet(time.Monday)},
			target:     monday,
			wantDue:    true,
			wantAnchor: monday,
		},
		{
			name:       "weekly on matching weekday",
			freq:       entity.Weekly{Days: entity.NewWeekdaySet(time.Monday)},
			target:     monday,
			wantDue:    true,
			wantAnchor: monday,
		},
		{
			name:    "weekly without days never runs",
			freq:    entity.Weekly{},
			target:  monday,
			wantDue: false,
		},
		{
			name:       "monthly inside window anchors on the first",
			freq:       entity.Monthly{DueDay: 5},
			target:     entity.NewDate(2025, time.June, 3),
			wantDue:    true,
			wantAnchor: entity.NewDate(2025, time.June, 1),
		},
		{
			name:       "monthly on due day",
			freq:       entity.Monthly{DueDay: 5},
			target:     entity.NewDate(2025, time.June, 5),
			wantDue:    true,
			wantAnchor: entity.NewDate(2025, time.June, 1),
		},
		{
			name:    "monthly after due day",
			freq:    entity.Monthly{DueDay: 5},
			target:  entity.NewDate(2025, time.June, 6),
			wantDue: false,
		},
		{
			name:       "monthly due day 31 clamps in a 30-day month",
			freq:       entity.Monthly{DueDay: 31},
			target:     entity.NewDate(2025, time.April, 30),
			wantDue:    true,
			wantAnchor: entity.NewDate(2025, time.April, 1),
		},
		{
			name:       "biweekly day 15 anchors on the first",
			freq:       entity.Biweekly{Cutoff1Day: 10, Cutoff2Day: 25},
			target:     entity.NewDate(2025, time.June, 15),
			wantDue:    true,
			wantAnchor: entity.NewDate(2025, time.June, 1),
		},
		{
			name:       "biweekly day 16 anchors on the sixteenth",
			freq:       entity.Biweekly{Cutoff1Day: 10, Cutoff2Day: 25},
			target:     entity.NewDate(2025, time.June, 16),
			wantDue:    true,
			wantAnchor: entity.NewDate(2025, time.June, 16),
		},
		{
			name:       "specific date listed",
			freq:       entity.SpecificDates{Dates: []time.Time{entity.NewDate(2025, time.June, 2), entity.NewDate(2025, time.July, 1)}},
			target:     monday,
			wantDue:    true,
			wantAnchor: monday,
		},
		{
			name:    "specific date not listed",
			freq:    entity.SpecificDates{Dates: []time.Time{entity.NewDate(2025, time.July, 1)}},
			target:  monday,
			wantDue: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			due, anchor := IsDue(routine(tt.freq), tt.target)
			assert.Equal(t, tt.wantDue, due)
			if tt.wantDue {
				assert.True(t, tt.wantAnchor.Equal(anchor), "anchor = %s, want %s", anchor, tt.wantAnchor)
			}
		})
	}
}

func TestIsDue_InactiveRoutine(t *testing.T) {
	r := routine(entity.Daily{})
	r.Active = false

	due, _ := IsDue(r, entity.NewDate(2025, time.June, 2))
	assert.False(t, due)
}

func TestIsDue_BiweeklyHalvesAreDistinct(t *testing.T) {
	r := routine(entity.Biweekly{Cutoff1Day: 15, Cutoff2Day: 31})

	_, first := IsDue(r, entity.NewDate(2025, time.June, 15))
	_, second := IsDue(r, entity.NewDate(2025, time.June, 16))

	assert.False(t, first.Equal(second))
}
