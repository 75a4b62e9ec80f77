package bookings

import (
	"context"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

// AppointmentRepository интерфейс репозитория записей
type AppointmentRepository interface {
	Create(ctx context.Context, appt *domain.Appointment) (*domain.Appointment, error)
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	GetWithFilter(ctx context.Context, filter domain.AppointmentFilter) ([]*domain.Appointment, error)
	Transition(ctx context.Context, t domain.AppointmentTransition) (*domain.Appointment, error)
}

// SlotCalendar резервирование окон в календаре специалиста
type SlotCalendar interface {
	Reserve(ctx context.Context, providerID int64, start, end time.Time) (*domain.TimeSlot, error)
	Release(ctx context.Context, slotID int64) error
}

// RefundRecorder создание записи о возврате оплаченной записи
type RefundRecorder interface {
	RecordRefund(ctx context.Context, appt *domain.Appointment) (*domain.Payment, error)
}

// Notifier отправка уведомлений клиенту
type Notifier interface {
	Notify(ctx context.Context, event domain.NotificationEvent, appt *domain.Appointment, payment *domain.Payment) error
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// MetricsRecorder доменные метрики записей
type MetricsRecorder interface {
	ObserveBooking(result string)
	ObserveCancellation(initiator string)
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
