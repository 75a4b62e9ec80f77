package domain

import (
	"time"

	"github.com/m04kA/SMC-ConsultationService/pkg/types"
)

// Interval is a half-open time window [Start, End)
type Interval struct {
	Start time.Time
	End   time.Time
}

// IsValid returns true if End is after Start
func (i Interval) IsValid() bool {
	return i.End.After(i.Start)
}

// Overlaps reports whether [a,b) and [c,d) intersect: a < d && c < b
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Contains reports whether other lies entirely within i
func (i Interval) Contains(other Interval) bool {
	return !other.Start.Before(i.Start) && !other.End.After(i.End)
}

// Duration returns the length of the interval
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// TimeSlot is a concrete bookable window of a provider
type TimeSlot struct {
	ID                  int64
	ProviderID          int64
	StartTime           time.Time
	EndTime             time.Time
	IsRecurringInstance bool
	IsBooked            bool
	// IsReservation marks a row cut out of a larger window by a reservation;
	// such a row exists only while booked
	IsReservation bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Interval returns the slot window
func (s *TimeSlot) Interval() Interval {
	return Interval{Start: s.StartTime, End: s.EndTime}
}

// SlotFilter фильтр выборки слотов
type SlotFilter struct {
	ProviderID int64
	Window     *Interval // слоты, пересекающие окно
	IsBooked   *bool
}

// RecurringPattern is a weekly availability rule
type RecurringPattern struct {
	ID                  int64
	ProviderID          int64
	Weekday             time.Weekday
	StartTimeOfDay      types.TimeString
	EndTimeOfDay        types.TimeString
	SlotDurationMinutes int
	EffectiveFrom       time.Time
	EffectiveUntil      *time.Time // nil - бессрочно
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AppliesOn reports whether the pattern generates a window on the given local date
func (p *RecurringPattern) AppliesOn(date time.Time) bool {
	if !p.IsActive || date.Weekday() != p.Weekday {
		return false
	}
	day := asDate(date, date.Location())
	if day.Before(asDate(p.EffectiveFrom, date.Location())) {
		return false
	}
	if p.EffectiveUntil != nil && day.After(asDate(*p.EffectiveUntil, date.Location())) {
		return false
	}
	return true
}

// WindowOn returns the pattern window on the given date in loc
func (p *RecurringPattern) WindowOn(date time.Time, loc *time.Location) (Interval, bool) {
	local := date.In(loc)
	if !p.AppliesOn(local) {
		return Interval{}, false
	}
	window := Interval{
		Start: p.StartTimeOfDay.On(local, loc),
		End:   p.EndTimeOfDay.On(local, loc),
	}
	return window, window.IsValid()
}

// PatternUpdate is a partial change of a pattern; nil fields stay as they are
type PatternUpdate struct {
	StartTimeOfDay      *types.TimeString
	EndTimeOfDay        *types.TimeString
	SlotDurationMinutes *int
	EffectiveFrom       *time.Time
	EffectiveUntil      *time.Time
	IsActive            *bool
}

// Apply returns a copy of the pattern with the update applied
func (p RecurringPattern) Apply(u PatternUpdate) RecurringPattern {
	if u.StartTimeOfDay != nil {
		p.StartTimeOfDay = *u.StartTimeOfDay
	}
	if u.EndTimeOfDay != nil {
		p.EndTimeOfDay = *u.EndTimeOfDay
	}
	if u.SlotDurationMinutes != nil {
		p.SlotDurationMinutes = *u.SlotDurationMinutes
	}
	if u.EffectiveFrom != nil {
		p.EffectiveFrom = *u.EffectiveFrom
	}
	if u.EffectiveUntil != nil {
		until := *u.EffectiveUntil
		p.EffectiveUntil = &until
	}
	if u.IsActive != nil {
		p.IsActive = *u.IsActive
	}
	return p
}

// BlockedPeriod makes a provider unavailable regardless of slots and patterns
type BlockedPeriod struct {
	ID         int64
	ProviderID int64
	StartTime  time.Time
	EndTime    time.Time
	Reason     *string
	CreatedAt  time.Time
}

// Interval returns the blocked window
func (b *BlockedPeriod) Interval() Interval {
	return Interval{Start: b.StartTime, End: b.EndTime}
}

// BlockedPeriodUpdate is a partial change of a blocked period; nil fields stay as they are
type BlockedPeriodUpdate struct {
	StartTime *time.Time
	EndTime   *time.Time
	Reason    *string
}

// Apply returns a copy of the period with the update applied
func (b BlockedPeriod) Apply(u BlockedPeriodUpdate) BlockedPeriod {
	if u.StartTime != nil {
		b.StartTime = *u.StartTime
	}
	if u.EndTime != nil {
		b.EndTime = *u.EndTime
	}
	if u.Reason != nil {
		reason := *u.Reason
		b.Reason = &reason
	}
	return b
}

// asDate keeps the calendar date of t and places it at midnight in loc
func asDate(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
