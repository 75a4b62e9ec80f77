package calendar

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	"github.com/m04kA/SMC-ConsultationService/internal/infra/storage/memory"
	"github.com/m04kA/SMC-ConsultationService/pkg/clock"
	"github.com/m04kA/SMC-ConsultationService/pkg/keylock"
	"github.com/m04kA/SMC-ConsultationService/pkg/logger"
	"github.com/m04kA/SMC-ConsultationService/pkg/simpletxmanager"
	"github.com/m04kA/SMC-ConsultationService/pkg/types"
)

const providerID = int64(7)

// 2024-06-01 is a Saturday
func at(day, hour, minute int) time.Time {
	return time.Date(2024, 6, day, hour, minute, 0, 0, time.UTC)
}

type fixture struct {
	store   *memory.Store
	clock   *clock.Fake
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewFake(at(1, 8, 0))
	store := memory.NewStore(clk.Now)
	svc := NewService(
		store.Schedule,
		store.Appointments,
		simpletxmanager.NewTransactionManager(store),
		keylock.New(),
		clk,
		time.UTC,
		logger.NewNop(),
	)
	return &fixture{store: store, clock: clk, service: svc}
}

func (f *fixture) addSlot(t *testing.T, start, end time.Time) *domain.TimeSlot {
	t.Helper()
	slots, err := f.service.CreateSlots(context.Background(), providerID, []domain.Interval{{Start: start, End: end}})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	return slots[0]
}

func (f *fixture) addSaturdayPattern(t *testing.T, start, end string) {
	t.Helper()
	_, err := f.service.CreatePattern(context.Background(), &domain.RecurringPattern{
		ProviderID:          providerID,
		Weekday:             time.Saturday,
		StartTimeOfDay:      types.TimeString(start),
		EndTimeOfDay:        types.TimeString(end),
		SlotDurationMinutes: 30,
		EffectiveFrom:       at(1, 0, 0),
	})
	require.NoError(t, err)
}

func collect(t *testing.T, f *fixture, from, to time.Time) []domain.Interval {
	t.Helper()
	seq, err := f.service.ListAvailable(context.Background(), providerID, from, to)
	require.NoError(t, err)
	result := make([]domain.Interval, 0)
	for slot := range seq {
		result = append(result, slot.Interval())
	}
	return result
}

func TestIsFree_ManualSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addSlot(t, at(1, 10, 0), at(1, 11, 0))

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{name: "inside slot", start: at(1, 10, 0), end: at(1, 10, 30), want: true},
		{name: "whole slot", start: at(1, 10, 0), end: at(1, 11, 0), want: true},
		{name: "crosses slot end", start: at(1, 10, 30), end: at(1, 11, 30), want: false},
		{name: "outside any slot", start: at(1, 14, 0), end: at(1, 14, 30), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			free, err := f.service.IsFree(ctx, providerID, tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.want, free)
		})
	}

	_, err := f.service.IsFree(ctx, providerID, at(1, 11, 0), at(1, 10, 0))
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestIsFree_BlockedPeriodAndAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addSaturdayPattern(t, "10:00", "12:00")

	_, _, err := f.service.CreateBlockedPeriod(ctx, &domain.BlockedPeriod{
		ProviderID: providerID,
		StartTime:  at(1, 10, 15),
		EndTime:    at(1, 10, 45),
	})
	require.NoError(t, err)

	_, err = f.store.Appointments.Create(ctx, &domain.Appointment{
		ClientID:   1,
		ProviderID: providerID,
		StartTime:  at(1, 11, 0),
		EndTime:    at(1, 11, 30),
		Type:       domain.TypeFollowUp,
		Status:     domain.StatusPendingPayment,
	})
	require.NoError(t, err)

	free, err := f.service.IsFree(ctx, providerID, at(1, 10, 0), at(1, 10, 30))
	require.NoError(t, err)
	assert.False(t, free, "blocked")

	free, err = f.service.IsFree(ctx, providerID, at(1, 11, 15), at(1, 11, 45))
	require.NoError(t, err)
	assert.False(t, free, "appointment")

	free, err = f.service.IsFree(ctx, providerID, at(1, 11, 30), at(1, 12, 0))
	require.NoError(t, err)
	assert.True(t, free)
}

func TestCreateBlockedPeriod_RemovesFreeSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addSlot(t, at(1, 10, 0), at(1, 11, 0))
	f.addSlot(t, at(1, 13, 0), at(1, 14, 0))

	_, removed, err := f.service.CreateBlockedPeriod(ctx, &domain.BlockedPeriod{
		ProviderID: providerID,
		StartTime:  at(1, 9, 0),
		EndTime:    at(1, 12, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	slots, err := f.service.ListSlots(ctx, providerID, at(1, 0, 0), at(2, 0, 0))
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, at(1, 13, 0), slots[0].StartTime)

	_, _, err = f.service.CreateBlockedPeriod(ctx, &domain.BlockedPeriod{ProviderID: providerID, StartTime: at(1, 12, 0), EndTime: at(1, 12, 0)})
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

func TestListAvailable_SubtractsBusyWindows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addSaturdayPattern(t, "10:00", "12:00")

	_, _, err := f.service.CreateBlockedPeriod(ctx, &domain.BlockedPeriod{ProviderID: providerID, StartTime: at(1, 10, 30), EndTime: at(1, 11, 0)})
	require.NoError(t, err)
	_, err = f.service.Reserve(ctx, providerID, at(1, 11, 15), at(1, 11, 30))
	require.NoError(t, err)

	got := collect(t, f, at(1, 0, 0), at(2, 0, 0))

	assert.Equal(t, []domain.Interval{
		{Start: at(1, 10, 0), End: at(1, 10, 30)},
		{Start: at(1, 11, 0), End: at(1, 11, 15)},
		{Start: at(1, 11, 30), End: at(1, 12, 0)},
	}, got)
}

func TestListAvailable_ClipsToRange(t *testing.T) {
	f := newFixture(t)
	f.addSlot(t, at(1, 10, 0), at(1, 12, 0))

	got := collect(t, f, at(1, 11, 0), at(1, 13, 0))

	assert.Equal(t, []domain.Interval{{Start: at(1, 11, 0), End: at(1, 12, 0)}}, got)
}

func TestListAvailable_Restartable(t *testing.T) {
	f := newFixture(t)
	f.addSlot(t, at(1, 10, 0), at(1, 11, 0))
	f.addSlot(t, at(1, 13, 0), at(1, 14, 0))
	f.addSlot(t, at(1, 16, 0), at(1, 17, 0))

	seq, err := f.service.ListAvailable(context.Background(), providerID, at(1, 0, 0), at(2, 0, 0))
	require.NoError(t, err)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Len(t, first, 3)
	assert.Equal(t, first, second)

	// ранний выход не влияет на следующий перебор
	for range seq {
		break
	}
	assert.Equal(t, first, slices.Collect(seq))
	assert.True(t, first[0].StartTime.Before(first[1].StartTime))
}

func TestListAvailable_ExpandsPatterns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreatePattern(ctx, &domain.RecurringPattern{
		ProviderID:          providerID,
		Weekday:             time.Saturday,
		StartTimeOfDay:      "09:00",
		EndTimeOfDay:        "12:00",
		SlotDurationMinutes: 30,
		EffectiveFrom:       at(1, 0, 0),
	})
	require.NoError(t, err)

	got, err := f.service.ListAvailable(ctx, providerID, at(1, 0, 0), at(9, 0, 0))
	require.NoError(t, err)

	windows := slices.Collect(got)
	require.Len(t, windows, 2, "two saturdays in range")
	assert.Equal(t, at(1, 9, 0), windows[0].StartTime)
	assert.Equal(t, at(8, 12, 0), windows[1].EndTime)
	assert.True(t, windows[0].IsRecurringInstance)

	free, err := f.service.IsFree(ctx, providerID, at(2, 10, 0), at(2, 10, 30))
	require.NoError(t, err)
	assert.False(t, free, "sunday is not covered")
}

func TestReserve_ConflictAndRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addSlot(t, at(1, 10, 0), at(1, 12, 0))

	reserved, err := f.service.Reserve(ctx, providerID, at(1, 10, 0), at(1, 10, 30))
	require.NoError(t, err)
	assert.True(t, reserved.IsBooked)

	_, err = f.service.Reserve(ctx, providerID, at(1, 10, 15), at(1, 10, 45))
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	free, err := f.service.IsFree(ctx, providerID, at(1, 10, 0), at(1, 10, 30))
	require.NoError(t, err)
	assert.False(t, free)

	require.NoError(t, f.service.Release(ctx, reserved.ID))
	assert.ErrorIs(t, f.service.Release(ctx, reserved.ID), ErrSlotNotFound, "released reservation row is removed")

	free, err = f.service.IsFree(ctx, providerID, at(1, 10, 0), at(1, 10, 30))
	require.NoError(t, err)
	assert.True(t, free)

	assert.ErrorIs(t, f.service.Release(ctx, 12345), ErrSlotNotFound)
}

func TestReserve_ExactSlotIsMarkedBooked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slot := f.addSlot(t, at(1, 10, 0), at(1, 10, 30))

	reserved, err := f.service.Reserve(ctx, providerID, at(1, 10, 0), at(1, 10, 30))
	require.NoError(t, err)
	assert.Equal(t, slot.ID, reserved.ID)

	stored, err := f.store.Schedule.GetSlotByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsBooked)
}

func TestReserve_ConcurrentOverlappingRequests(t *testing.T) {
	f := newFixture(t)
	f.addSlot(t, at(1, 9, 0), at(1, 13, 0))

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, conflicts := 0, 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := at(1, 10, 0).Add(time.Duration(i%3) * 10 * time.Minute)
			_, err := f.service.Reserve(context.Background(), providerID, start, start.Add(30*time.Minute))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrSlotUnavailable):
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
}

func TestCreatePattern_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	valid := domain.RecurringPattern{
		ProviderID:          providerID,
		Weekday:             time.Monday,
		StartTimeOfDay:      "09:00",
		EndTimeOfDay:        "10:00",
		SlotDurationMinutes: 30,
		EffectiveFrom:       at(1, 0, 0),
	}

	tests := []struct {
		name    string
		mutate  func(p *domain.RecurringPattern)
		wantErr error
	}{
		{name: "end before start", mutate: func(p *domain.RecurringPattern) { p.EndTimeOfDay = "08:00" }, wantErr: ErrInvalidTimeRange},
		{name: "bad time", mutate: func(p *domain.RecurringPattern) { p.StartTimeOfDay = "9am" }, wantErr: ErrInvalidInput},
		{name: "duration too short", mutate: func(p *domain.RecurringPattern) { p.SlotDurationMinutes = 1 }, wantErr: ErrInvalidInput},
		{name: "duration exceeds window", mutate: func(p *domain.RecurringPattern) { p.SlotDurationMinutes = 90 }, wantErr: ErrInvalidInput},
		{name: "bad weekday", mutate: func(p *domain.RecurringPattern) { p.Weekday = 9 }, wantErr: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			_, err := f.service.CreatePattern(ctx, &p)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	p := valid
	created, err := f.service.CreatePattern(ctx, &p)
	require.NoError(t, err)
	assert.True(t, created.IsActive)

	require.NoError(t, f.service.DeactivatePattern(ctx, created.ID))
	assert.ErrorIs(t, f.service.DeactivatePattern(ctx, 999), ErrPatternNotFound)
}

func TestGenerateFromPatterns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.CreatePattern(ctx, &domain.RecurringPattern{
		ProviderID:          providerID,
		Weekday:             time.Saturday,
		StartTimeOfDay:      "09:00",
		EndTimeOfDay:        "11:00",
		SlotDurationMinutes: 30,
		EffectiveFrom:       at(1, 0, 0),
	})
	require.NoError(t, err)

	_, _, err = f.service.CreateBlockedPeriod(ctx, &domain.BlockedPeriod{ProviderID: providerID, StartTime: at(8, 9, 0), EndTime: at(8, 11, 0)})
	require.NoError(t, err)

	// now = 2024-06-01 08:00; the 06-08 window is blocked
	created, err := f.service.GenerateFromPatterns(ctx, providerID, at(1, 0, 0), at(15, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, 4, created)

	again, err := f.service.GenerateFromPatterns(ctx, providerID, at(1, 0, 0), at(15, 0, 0))
	require.NoError(t, err)
	assert.Zero(t, again, "existing slots are skipped")

	slots, err := f.service.ListSlots(ctx, providerID, at(1, 0, 0), at(15, 0, 0))
	require.NoError(t, err)
	require.Len(t, slots, 4)
	for _, slot := range slots {
		assert.True(t, slot.IsRecurringInstance)
		assert.Equal(t, 30*time.Minute, slot.EndTime.Sub(slot.StartTime))
	}

	_, err = f.service.GenerateFromPatterns(ctx, providerID, at(1, 0, 0), at(1, 0, 0).AddDate(0, 4, 0))
	assert.ErrorIs(t, err, ErrInvalidTimeRange)
}

// slowSchedule widens the window between the availability read and the write
type slowSchedule struct {
	ScheduleRepository
	delay time.Duration
}

func (s slowSchedule) ListSlots(ctx context.Context, filter domain.SlotFilter) ([]*domain.TimeSlot, error) {
	slots, err := s.ScheduleRepository.ListSlots(ctx, filter)
	time.Sleep(s.delay)
	return slots, err
}

func TestReserve_ConcurrentWindowsAcrossMidnight(t *testing.T) {
	f := newFixture(t)
	f.addSlot(t, at(1, 23, 0), at(2, 1, 0))

	svc := NewService(
		slowSchedule{ScheduleRepository: f.store.Schedule, delay: 5 * time.Millisecond},
		f.store.Appointments,
		simpletxmanager.NewTransactionManager(f.store),
		keylock.New(),
		f.clock,
		time.UTC,
		logger.NewNop(),
	)

	windows := []domain.Interval{
		{Start: at(1, 23, 30), End: at(2, 0, 30)},
		{Start: at(2, 0, 0), End: at(2, 0, 30)},
	}

	for run := 0; run < 3; run++ {
		var wg sync.WaitGroup
		results := make([]error, len(windows))
		reserved := make([]*domain.TimeSlot, len(windows))
		for i, w := range windows {
			wg.Add(1)
			go func(i int, w domain.Interval) {
				defer wg.Done()
				reserved[i], results[i] = svc.Reserve(context.Background(), providerID, w.Start, w.End)
			}(i, w)
		}
		wg.Wait()

		successes := 0
		for i, err := range results {
			if err == nil {
				successes++
				require.NoError(t, svc.Release(context.Background(), reserved[i].ID))
				continue
			}
			assert.ErrorIs(t, err, ErrSlotUnavailable)
		}
		assert.Equal(t, 1, successes, "run %d", run)
	}
}

func TestRelease_ReservationDoesNotOutliveDeactivatedPattern(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addSaturdayPattern(t, "10:00", "12:00")

	reserved, err := f.service.Reserve(ctx, providerID, at(1, 10, 0), at(1, 10, 30))
	require.NoError(t, err)
	assert.True(t, reserved.IsReservation)
	require.NoError(t, f.service.Release(ctx, reserved.ID))

	patterns, err := f.service.ListPatterns(ctx, providerID)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	require.NoError(t, f.service.DeactivatePattern(ctx, patterns[0].ID))

	for _, w := range []domain.Interval{
		{Start: at(1, 10, 0), End: at(1, 10, 30)},
		{Start: at(1, 10, 30), End: at(1, 11, 0)},
	} {
		free, err := f.service.IsFree(ctx, providerID, w.Start, w.End)
		require.NoError(t, err)
		assert.False(t, free, "%s-%s", w.Start.Format("15:04"), w.End.Format("15:04"))
	}
}

func TestRelease_ManualSlotStaysAfterRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slot := f.addSlot(t, at(1, 10, 0), at(1, 10, 30))

	reserved, err := f.service.Reserve(ctx, providerID, at(1, 10, 0), at(1, 10, 30))
	require.NoError(t, err)
	assert.False(t, reserved.IsReservation)

	require.NoError(t, f.service.Release(ctx, slot.ID))
	require.NoError(t, f.service.Release(ctx, slot.ID), "release of a free manual slot is a no-op")

	stored, err := f.store.Schedule.GetSlotByID(ctx, slot.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsBooked)
}

func TestUpdateSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slot := f.addSlot(t, at(1, 10, 0), at(1, 11, 0))

	_, _, err := f.service.CreateBlockedPeriod(ctx, &domain.BlockedPeriod{
		ProviderID: providerID,
		StartTime:  at(1, 15, 0),
		EndTime:    at(1, 16, 0),
	})
	require.NoError(t, err)

	moved, err := f.service.UpdateSlot(ctx, slot.ID, domain.Interval{Start: at(1, 13, 0), End: at(1, 14, 0)})
	require.NoError(t, err)
	assert.Equal(t, at(1, 13, 0), moved.StartTime)
	assert.Equal(t, []domain.Interval{{Start: at(1, 13, 0), End: at(1, 14, 0)}}, collect(t, f, at(1, 0, 0), at(2, 0, 0)))

	_, err = f.service.UpdateSlot(ctx, slot.ID, domain.Interval{Start: at(1, 15, 30), End: at(1, 16, 30)})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.service.UpdateSlot(ctx, slot.ID, domain.Interval{Start: at(1, 14, 0), End: at(1, 13, 0)})
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	_, err = f.service.UpdateSlot(ctx, 12345, domain.Interval{Start: at(1, 13, 0), End: at(1, 14, 0)})
	assert.ErrorIs(t, err, ErrSlotNotFound)

	_, err = f.service.Reserve(ctx, providerID, at(1, 13, 0), at(1, 14, 0))
	require.NoError(t, err)
	_, err = f.service.UpdateSlot(ctx, slot.ID, domain.Interval{Start: at(1, 17, 0), End: at(1, 18, 0)})
	assert.ErrorIs(t, err, ErrSlotBooked)
}

func TestDeleteSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	free := f.addSlot(t, at(1, 10, 0), at(1, 11, 0))
	booked := f.addSlot(t, at(1, 12, 0), at(1, 12, 30))

	_, err := f.service.Reserve(ctx, providerID, at(1, 12, 0), at(1, 12, 30))
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteSlot(ctx, free.ID))
	assert.ErrorIs(t, f.service.DeleteSlot(ctx, free.ID), ErrSlotNotFound)
	assert.ErrorIs(t, f.service.DeleteSlot(ctx, booked.ID), ErrSlotBooked)
	assert.Empty(t, collect(t, f, at(1, 0, 0), at(2, 0, 0)))
}

func TestUpdatePattern(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addSaturdayPattern(t, "10:00", "12:00")

	patterns, err := f.service.ListPatterns(ctx, providerID)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	id := patterns[0].ID

	end := types.TimeString("11:00")
	updated, err := f.service.UpdatePattern(ctx, id, domain.PatternUpdate{EndTimeOfDay: &end})
	require.NoError(t, err)
	assert.Equal(t, end, updated.EndTimeOfDay)
	assert.Equal(t, []domain.Interval{{Start: at(1, 10, 0), End: at(1, 11, 0)}}, collect(t, f, at(1, 0, 0), at(2, 0, 0)))

	tooLong := 90
	_, err = f.service.UpdatePattern(ctx, id, domain.PatternUpdate{SlotDurationMinutes: &tooLong})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.service.UpdatePattern(ctx, 12345, domain.PatternUpdate{EndTimeOfDay: &end})
	assert.ErrorIs(t, err, ErrPatternNotFound)
}

func TestUpdateBlockedPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addSlot(t, at(1, 10, 0), at(1, 11, 0))
	f.addSlot(t, at(1, 14, 0), at(1, 15, 0))

	period, removed, err := f.service.CreateBlockedPeriod(ctx, &domain.BlockedPeriod{
		ProviderID: providerID,
		StartTime:  at(1, 10, 0),
		EndTime:    at(1, 11, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	start, end := at(1, 13, 0), at(1, 16, 0)
	reason := "conference"
	updated, removed, err := f.service.UpdateBlockedPeriod(ctx, period.ID, domain.BlockedPeriodUpdate{StartTime: &start, EndTime: &end, Reason: &reason})
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, start, updated.StartTime)
	require.NotNil(t, updated.Reason)
	assert.Equal(t, reason, *updated.Reason)
	assert.Empty(t, collect(t, f, at(1, 0, 0), at(2, 0, 0)))

	_, _, err = f.service.UpdateBlockedPeriod(ctx, period.ID, domain.BlockedPeriodUpdate{EndTime: &start})
	assert.ErrorIs(t, err, ErrInvalidTimeRange)

	_, _, err = f.service.UpdateBlockedPeriod(ctx, 12345, domain.BlockedPeriodUpdate{Reason: &reason})
	assert.ErrorIs(t, err, ErrBlockedPeriodNotFound)
}
