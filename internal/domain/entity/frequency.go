package entity

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FrequencyKind names a recurrence rule as stored in the catalog.
type FrequencyKind string

const (
	FrequencyDaily         FrequencyKind = "daily"
	FrequencyWeekly        FrequencyKind = "weekly"
	FrequencyBiweekly      FrequencyKind = "biweekly"
	FrequencyMonthly       FrequencyKind = "monthly"
	FrequencySpecificDates FrequencyKind = "specific_dates"
)

// Frequency is the recurrence rule of a routine. The set of variants is
// closed: Daily, Weekly, Monthly, Biweekly and SpecificDates.
type Frequency interface {
	Kind() FrequencyKind
	isFrequency()
}

// WeekdaySet is a set of weekdays, 0 = Sunday.
type WeekdaySet map[time.Weekday]bool

// NewWeekdaySet builds a set from the given days.
func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	s := make(WeekdaySet, len(days))
	for _, d := range days {
		s[d] = true
	}
	return s
}

// Contains reports whether d is in the set.
func (s WeekdaySet) Contains(d time.Weekday) bool {
	return s[d]
}

// String renders the set as a sorted comma-separated list, e.g. "1,3,5".
func (s WeekdaySet) String() string {
	days := make([]int, 0, len(s))
	for d, ok := range s {
		if ok {
			days = append(days, int(d))
		}
	}
	sort.Ints(days)
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

// ParseWeekdaySet parses "1,3,5". Blank input yields an empty set.
func ParseWeekdaySet(s string) (WeekdaySet, error) {
	set := WeekdaySet{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid weekday %q", part)
		}
		set[time.Weekday(n)] = true
	}
	return set, nil
}

// Daily is due every day, or only on Days when Days is non-empty.
type Daily struct {
	Days WeekdaySet
}

// Weekly is due only on Days.
type Weekly struct {
	Days WeekdaySet
}

// Monthly opens on the 1st and is due on DueDay, clamped to the month's end.
type Monthly struct {
	DueDay int
}

// Biweekly opens on the 1st and the 16th; Cutoff1Day and Cutoff2Day are the
// deadlines inside each half.
type Biweekly struct {
	Cutoff1Day int
	Cutoff2Day int
}

// SpecificDates is due on exactly the listed civil dates.
type SpecificDates struct {
	Dates []time.Time
}

func (Daily) Kind() FrequencyKind         { return FrequencyDaily }
func (Weekly) Kind() FrequencyKind        { return FrequencyWeekly }
func (Monthly) Kind() FrequencyKind       { return FrequencyMonthly }
func (Biweekly) Kind() FrequencyKind      { return FrequencyBiweekly }
func (SpecificDates) Kind() FrequencyKind { return FrequencySpecificDates }

func (Daily) isFrequency()         {}
func (Weekly) isFrequency()        {}
func (Monthly) isFrequency()       {}
func (Biweekly) isFrequency()      {}
func (SpecificDates) isFrequency() {}

// Contains reports whether d is one of the listed dates.
func (f SpecificDates) Contains(d time.Time) bool {
	for _, candidate := range f.Dates {
		if candidate.Equal(d) {
			return true
		}
	}
	return false
}

// FrequencyFields is the flat catalog row a Frequency is decoded from.
// Columns that do not belong to Kind are ignored.
type FrequencyFields struct {
	Kind          FrequencyKind
	ExecutionDays string
	MonthlyDueDay int
	Cutoff1Day    int
	Cutoff2Day    int
	SpecificDates []time.Time
}

// DecodeFrequency turns a flat catalog row into its Frequency variant.
func DecodeFrequency(f FrequencyFields) (Frequency, error) {
	switch f.Kind {
	case FrequencyDaily, FrequencyWeekly:
		days, err := ParseWeekdaySet(f.ExecutionDays)
		if err != nil {
			return nil, err
		}
		if f.Kind == FrequencyDaily {
			return Daily{Days: days}, nil
		}
		return Weekly{Days: days}, nil
	case FrequencyMonthly:
		return Monthly{DueDay: f.MonthlyDueDay}, nil
	case FrequencyBiweekly:
		return Biweekly{Cutoff1Day: f.Cutoff1Day, Cutoff2Day: f.Cutoff2Day}, nil
	case FrequencySpecificDates:
		return SpecificDates{Dates: f.SpecificDates}, nil
	default:
		return nil, fmt.Errorf("unknown frequency %q", f.Kind)
	}
}

// EncodeFrequency is the inverse of DecodeFrequency.
func EncodeFrequency(freq Frequency) FrequencyFields {
	fields := FrequencyFields{Kind: freq.Kind()}
	switch f := freq.(type) {
	case Daily:
		fields.ExecutionDays = f.Days.String()
	case Weekly:
		fields.ExecutionDays = f.Days.String()
	case Monthly:
		fields.MonthlyDueDay = f.DueDay
	case Biweekly:
		fields.Cutoff1Day = f.Cutoff1Day
		fields.Cutoff2Day = f.Cutoff2Day
	case SpecificDates:
		fields.SpecificDates = f.Dates
	}
	return fields
}
