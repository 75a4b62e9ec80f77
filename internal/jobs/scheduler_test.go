package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ConsultationService/pkg/logger"
)

type fakeSweeper struct {
	expired, completed, reminded int
	err                          error
}

func (f *fakeSweeper) ExpirePending(context.Context) (int, error) {
	return f.expired, f.err
}

func (f *fakeSweeper) CompleteFinished(context.Context) (int, error) {
	return f.completed, f.err
}

func (f *fakeSweeper) SendReminders(context.Context) (int, error) {
	return f.reminded, f.err
}

type fakeGenerator struct {
	horizon time.Duration
}

func (f *fakeGenerator) GenerateForAllProviders(_ context.Context, horizon time.Duration) (int, error) {
	f.horizon = horizon
	return 12, nil
}

type recordedRun struct {
	job, result string
	items       int
}

type fakeMetrics struct {
	runs []recordedRun
}

func (f *fakeMetrics) ObserveJob(job, result string, items int) {
	f.runs = append(f.runs, recordedRun{job, result, items})
}

func TestScheduler_Run(t *testing.T) {
	sweeper := &fakeSweeper{expired: 2, completed: 1, reminded: 3}
	generator := &fakeGenerator{}
	metrics := &fakeMetrics{}
	scheduler, err := NewScheduler(sweeper, generator, metrics, DefaultConfig(), logger.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	n, err := scheduler.Run(ctx, JobExpirePending)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = scheduler.Run(ctx, JobCompleteFinished)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = scheduler.Run(ctx, JobSendReminders)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = scheduler.Run(ctx, JobGenerateSlots)
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	assert.Equal(t, 30*24*time.Hour, generator.horizon)

	_, err = scheduler.Run(ctx, "unknown")
	assert.Error(t, err)

	assert.Equal(t, []recordedRun{
		{JobExpirePending, resultOK, 2},
		{JobCompleteFinished, resultOK, 1},
		{JobSendReminders, resultOK, 3},
		{JobGenerateSlots, resultOK, 12},
	}, metrics.runs)
}

func TestScheduler_RunError(t *testing.T) {
	sweeper := &fakeSweeper{expired: 1, err: errors.New("db down")}
	metrics := &fakeMetrics{}
	scheduler, err := NewScheduler(sweeper, nil, metrics, DefaultConfig(), logger.NewNop())
	require.NoError(t, err)

	n, err := scheduler.Run(context.Background(), JobExpirePending)
	assert.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []recordedRun{{JobExpirePending, resultError, 1}}, metrics.runs)

	_, err = scheduler.Run(context.Background(), JobGenerateSlots)
	assert.Error(t, err)
}

func TestNewScheduler_InvalidSpec(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RemindersSpec = "every now and then"

	_, err := NewScheduler(&fakeSweeper{}, nil, nil, cfg, logger.NewNop())
	assert.Error(t, err)
}

func TestScheduler_StartStop(t *testing.T) {
	scheduler, err := NewScheduler(&fakeSweeper{}, nil, nil, DefaultConfig(), logger.NewNop())
	require.NoError(t, err)

	scheduler.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, scheduler.Stop(ctx))
}
