package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/m04kA/SMC-ConsultationService/pkg/ptr"
	"github.com/m04kA/SMC-ConsultationService/pkg/types"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 6, 1, hour, minute, 0, 0, time.UTC)
}

func TestInterval_Overlaps(t *testing.T) {
	base := Interval{Start: at(10, 0), End: at(10, 30)}

	tests := []struct {
		name  string
		other Interval
		want  bool
	}{
		{name: "partial overlap", other: Interval{Start: at(10, 15), End: at(10, 45)}, want: true},
		{name: "contained", other: Interval{Start: at(10, 5), End: at(10, 10)}, want: true},
		{name: "adjacent after", other: Interval{Start: at(10, 30), End: at(11, 0)}, want: false},
		{name: "adjacent before", other: Interval{Start: at(9, 30), End: at(10, 0)}, want: false},
		{name: "disjoint", other: Interval{Start: at(12, 0), End: at(13, 0)}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base))
		})
	}
}

func TestInterval_Contains(t *testing.T) {
	outer := Interval{Start: at(9, 0), End: at(12, 0)}

	assert.True(t, outer.Contains(Interval{Start: at(9, 0), End: at(12, 0)}))
	assert.True(t, outer.Contains(Interval{Start: at(10, 0), End: at(10, 30)}))
	assert.False(t, outer.Contains(Interval{Start: at(11, 45), End: at(12, 15)}))
}

func TestAppointmentType_DurationMinutes(t *testing.T) {
	assert.Equal(t, 30, TypeInitialConsultation.DurationMinutes())
	assert.Equal(t, 60, TypeComprehensiveConsultation.DurationMinutes())
	assert.Equal(t, 30, TypeFollowUp.DurationMinutes())
	assert.False(t, AppointmentType("massage").IsValid())
}

func TestAppointment_Lifecycle(t *testing.T) {
	created := at(9, 0)
	appt := &Appointment{
		Status:    StatusPendingPayment,
		StartTime: at(10, 0),
		EndTime:   at(10, 30),
		CreatedAt: created,
	}

	assert.True(t, appt.IsActive())
	assert.False(t, appt.IsPaymentOverdue(created.Add(29*time.Minute), 30*time.Minute))
	assert.True(t, appt.IsPaymentOverdue(created.Add(31*time.Minute), 30*time.Minute))

	appt.Status = StatusConfirmed
	assert.False(t, appt.IsPaymentOverdue(created.Add(time.Hour), 30*time.Minute))
	assert.False(t, appt.IsFinished(at(10, 29)))
	assert.True(t, appt.IsFinished(at(10, 30)))
	assert.True(t, appt.CanBeCancelled())

	appt.Status = StatusCancelled
	assert.True(t, appt.IsCancelled())
	assert.False(t, appt.CanBeCancelled())

	appt.Status = StatusCompleted
	assert.False(t, appt.IsCancelled())
	assert.False(t, appt.CanBeCancelled())
}

func TestRecurringPattern_WindowOn(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	pattern := &RecurringPattern{
		Weekday:        time.Saturday,
		StartTimeOfDay: "09:00",
		EndTimeOfDay:   "12:00",
		EffectiveFrom:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		EffectiveUntil: ptr.Ptr(time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)),
		IsActive:       true,
	}

	// 2024-06-01 is a Saturday
	window, ok := pattern.WindowOn(time.Date(2024, 6, 1, 0, 0, 0, 0, loc), loc)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 1, 9, 0, 0, 0, loc), window.Start)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 0, 0, 0, loc), window.End)

	_, ok = pattern.WindowOn(time.Date(2024, 6, 2, 0, 0, 0, 0, loc), loc)
	assert.False(t, ok, "sunday")

	_, ok = pattern.WindowOn(time.Date(2024, 6, 8, 0, 0, 0, 0, loc), loc)
	assert.True(t, ok, "last effective day is inclusive")

	_, ok = pattern.WindowOn(time.Date(2024, 6, 15, 0, 0, 0, 0, loc), loc)
	assert.False(t, ok, "after effective_until")

	pattern.IsActive = false
	_, ok = pattern.WindowOn(time.Date(2024, 6, 1, 0, 0, 0, 0, loc), loc)
	assert.False(t, ok, "inactive")
}

func TestRecurringPattern_Apply(t *testing.T) {
	until := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	pattern := RecurringPattern{
		ID:                  4,
		Weekday:             time.Monday,
		StartTimeOfDay:      "09:00",
		EndTimeOfDay:        "12:00",
		SlotDurationMinutes: 30,
		IsActive:            true,
	}

	updated := pattern.Apply(PatternUpdate{
		EndTimeOfDay:   ptr.Ptr(types.TimeString("13:00")),
		EffectiveUntil: &until,
		IsActive:       ptr.Ptr(false),
	})

	assert.Equal(t, types.TimeString("09:00"), updated.StartTimeOfDay)
	assert.Equal(t, types.TimeString("13:00"), updated.EndTimeOfDay)
	assert.Equal(t, 30, updated.SlotDurationMinutes)
	assert.Equal(t, until, *updated.EffectiveUntil)
	assert.False(t, updated.IsActive)
	assert.True(t, pattern.IsActive, "original is untouched")
	assert.Nil(t, pattern.EffectiveUntil)
}

func TestBlockedPeriod_Apply(t *testing.T) {
	period := BlockedPeriod{ID: 2, StartTime: at(10, 0), EndTime: at(12, 0)}

	updated := period.Apply(BlockedPeriodUpdate{EndTime: ptr.Ptr(at(13, 0)), Reason: ptr.Ptr("vacation")})

	assert.Equal(t, at(10, 0), updated.StartTime)
	assert.Equal(t, at(13, 0), updated.EndTime)
	assert.Equal(t, "vacation", *updated.Reason)
	assert.Nil(t, period.Reason)
}
