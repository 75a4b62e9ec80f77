package calendar

import (
	"context"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

// ScheduleRepository интерфейс репозитория расписания
type ScheduleRepository interface {
	CreateSlot(ctx context.Context, slot *domain.TimeSlot) (*domain.TimeSlot, error)
	GetSlotByID(ctx context.Context, id int64) (*domain.TimeSlot, error)
	ListSlots(ctx context.Context, filter domain.SlotFilter) ([]*domain.TimeSlot, error)
	SetSlotBooked(ctx context.Context, id int64, booked bool) error
	UpdateSlotWindow(ctx context.Context, id int64, window domain.Interval) (*domain.TimeSlot, error)
	DeleteSlot(ctx context.Context, id int64, booked bool) error
	DeleteUnbookedSlots(ctx context.Context, providerID int64, window domain.Interval) (int64, error)

	CreatePattern(ctx context.Context, pattern *domain.RecurringPattern) (*domain.RecurringPattern, error)
	GetPatternByID(ctx context.Context, id int64) (*domain.RecurringPattern, error)
	ListPatterns(ctx context.Context, providerID *int64, activeOnly bool) ([]*domain.RecurringPattern, error)
	UpdatePattern(ctx context.Context, pattern *domain.RecurringPattern) (*domain.RecurringPattern, error)
	DeactivatePattern(ctx context.Context, id int64) error

	CreateBlockedPeriod(ctx context.Context, period *domain.BlockedPeriod) (*domain.BlockedPeriod, error)
	GetBlockedPeriodByID(ctx context.Context, id int64) (*domain.BlockedPeriod, error)
	ListBlockedPeriods(ctx context.Context, providerID int64, window *domain.Interval) ([]*domain.BlockedPeriod, error)
	UpdateBlockedPeriod(ctx context.Context, period *domain.BlockedPeriod) (*domain.BlockedPeriod, error)
	DeleteBlockedPeriod(ctx context.Context, id int64) error
}

// AppointmentReader чтение записей, занимающих время специалиста
type AppointmentReader interface {
	GetWithFilter(ctx context.Context, filter domain.AppointmentFilter) ([]*domain.Appointment, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// KeyLocker блокировка по ключу внутри процесса
type KeyLocker interface {
	Lock(key string) (unlock func())
}

// TimeProvider интерфейс для получения текущего времени
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
