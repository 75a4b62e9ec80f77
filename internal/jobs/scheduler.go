package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Имена задач
const (
	JobExpirePending    = "expire_pending"
	JobCompleteFinished = "complete_finished"
	JobSendReminders    = "send_reminders"
	JobGenerateSlots    = "generate_slots"
)

const (
	resultOK    = "ok"
	resultError = "error"
)

// Config расписания задач в формате cron
type Config struct {
	ExpirePendingSpec    string
	CompleteFinishedSpec string
	RemindersSpec        string
	GenerateSlotsSpec    string
	GenerationHorizon    time.Duration
	RunTimeout           time.Duration
}

// DefaultConfig расписание по умолчанию
func DefaultConfig() Config {
	return Config{
		ExpirePendingSpec:    "@every 1m",
		CompleteFinishedSpec: "@every 5m",
		RemindersSpec:        "@every 5m",
		GenerateSlotsSpec:    "@daily",
		GenerationHorizon:    30 * 24 * time.Hour,
		RunTimeout:           time.Minute,
	}
}

type jobSpec struct {
	name string
	spec string
}

// Scheduler запускает фоновые задачи сервиса
type Scheduler struct {
	cron      *cron.Cron
	bookings  BookingSweeper
	generator SlotGenerator
	metrics   MetricsRecorder
	cfg       Config
	log       Logger
}

// NewScheduler создает планировщик и регистрирует задачи
// generator может быть nil, тогда слоты не генерируются
func NewScheduler(bookings BookingSweeper, generator SlotGenerator, metrics MetricsRecorder, cfg Config, log Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		bookings:  bookings,
		generator: generator,
		metrics:   metrics,
		cfg:       cfg,
		log:       log,
	}

	specs := []jobSpec{
		{JobExpirePending, cfg.ExpirePendingSpec},
		{JobCompleteFinished, cfg.CompleteFinishedSpec},
		{JobSendReminders, cfg.RemindersSpec},
	}
	if generator != nil {
		specs = append(specs, jobSpec{JobGenerateSlots, cfg.GenerateSlotsSpec})
	}

	for _, j := range specs {
		if j.spec == "" {
			continue
		}
		name := j.name
		if _, err := s.cron.AddFunc(j.spec, func() { s.Run(context.Background(), name) }); err != nil {
			return nil, fmt.Errorf("jobs: invalid schedule %q for %s: %w", j.spec, name, err)
		}
		log.Info("Scheduler: job %s scheduled (%s)", name, j.spec)
	}

	return s, nil
}

// Start запускает планировщик в фоне
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop останавливает планировщик и ждет завершения текущих задач
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run выполняет задачу по имени
func (s *Scheduler) Run(ctx context.Context, name string) (int, error) {
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	var (
		n   int
		err error
	)
	switch name {
	case JobExpirePending:
		n, err = s.bookings.ExpirePending(ctx)
	case JobCompleteFinished:
		n, err = s.bookings.CompleteFinished(ctx)
	case JobSendReminders:
		n, err = s.bookings.SendReminders(ctx)
	case JobGenerateSlots:
		if s.generator == nil {
			return 0, fmt.Errorf("jobs: %s is not configured", name)
		}
		n, err = s.generator.GenerateForAllProviders(ctx, s.cfg.GenerationHorizon)
	default:
		return 0, fmt.Errorf("jobs: unknown job %s", name)
	}

	if err != nil {
		s.observe(name, resultError, n)
		s.log.Error("Scheduler: job %s failed after %d items: %v", name, n, err)
		return n, err
	}

	s.observe(name, resultOK, n)
	if n > 0 {
		s.log.Info("Scheduler: job %s processed %d items", name, n)
	}
	return n, nil
}

func (s *Scheduler) observe(job, result string, items int) {
	if s.metrics != nil {
		s.metrics.ObserveJob(job, result, items)
	}
}
