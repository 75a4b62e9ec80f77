package get_available_slots

import (
	"context"
	"iter"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	"github.com/m04kA/SMC-ConsultationService/pkg/clock"
	"github.com/m04kA/SMC-ConsultationService/pkg/logger"
)

type staticCalendar []domain.TimeSlot

func (c staticCalendar) ListAvailable(_ context.Context, _ int64, _, _ time.Time) (iter.Seq[domain.TimeSlot], error) {
	return slices.Values([]domain.TimeSlot(c)), nil
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 6, 1, hour, minute, 0, 0, time.UTC)
}

func newUseCase(free staticCalendar) *UseCase {
	return NewUseCase(free, clock.NewFake(at(8, 0)), 60, logger.NewNop())
}

func starts(slots []Slot) []time.Time {
	result := make([]time.Time, 0, len(slots))
	for _, s := range slots {
		result = append(result, s.StartTime)
	}
	return result
}

func TestExecute_SlicesFreeWindows(t *testing.T) {
	uc := newUseCase(staticCalendar{
		{StartTime: at(8, 30), EndTime: at(10, 0), IsRecurringInstance: true},
		{StartTime: at(11, 0), EndTime: at(12, 15)},
	})

	resp, err := uc.Execute(context.Background(), &Request{ProviderID: 7, From: at(0, 0), To: at(23, 0)})
	require.NoError(t, err)

	assert.Equal(t, DefaultDurationMinutes, resp.DurationMinutes)
	// 08:30 is inside the 60 minute notice
	assert.Equal(t, []time.Time{at(9, 0), at(9, 30), at(11, 0), at(11, 30)}, starts(resp.Slots))
	assert.True(t, resp.Slots[0].IsRecurringInstance)
	assert.False(t, resp.Slots[2].IsRecurringInstance)
	assert.Equal(t, at(12, 0), resp.Slots[3].EndTime)
}

func TestExecute_LongerDuration(t *testing.T) {
	uc := newUseCase(staticCalendar{{StartTime: at(10, 0), EndTime: at(12, 30)}})

	resp, err := uc.Execute(context.Background(), &Request{ProviderID: 7, From: at(0, 0), To: at(23, 0), DurationMinutes: 60})
	require.NoError(t, err)

	assert.Equal(t, []time.Time{at(10, 0), at(11, 0)}, starts(resp.Slots))
}

func TestExecute_Validation(t *testing.T) {
	uc := newUseCase(nil)

	tests := []struct {
		name    string
		req     *Request
		wantErr error
	}{
		{name: "reversed range", req: &Request{ProviderID: 7, From: at(12, 0), To: at(10, 0)}, wantErr: ErrInvalidRange},
		{name: "range over 30 days", req: &Request{ProviderID: 7, From: at(0, 0), To: at(0, 0).AddDate(0, 0, 31)}, wantErr: ErrInvalidRange},
		{name: "no provider", req: &Request{From: at(0, 0), To: at(10, 0)}, wantErr: ErrInvalidInput},
		{name: "duration too short", req: &Request{ProviderID: 7, From: at(0, 0), To: at(10, 0), DurationMinutes: 1}, wantErr: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Execute(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
