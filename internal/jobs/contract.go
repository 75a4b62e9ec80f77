package jobs

import (
	"context"
	"time"
)

// BookingSweeper переводит записи по времени
type BookingSweeper interface {
	ExpirePending(ctx context.Context) (int, error)
	CompleteFinished(ctx context.Context) (int, error)
	SendReminders(ctx context.Context) (int, error)
}

// SlotGenerator материализует слоты из расписаний
type SlotGenerator interface {
	GenerateForAllProviders(ctx context.Context, horizon time.Duration) (int, error)
}

// MetricsRecorder интерфейс для метрик фоновых задач
type MetricsRecorder interface {
	ObserveJob(job, result string, items int)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
