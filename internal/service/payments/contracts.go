package payments

import (
	"context"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

// PaymentRepository интерфейс репозитория платежей
type PaymentRepository interface {
	Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error)
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	GetByExternalRef(ctx context.Context, externalRef string) (*domain.Payment, error)
	ListByAppointment(ctx context.Context, appointmentID int64) ([]*domain.Payment, error)
	SetExternalRef(ctx context.Context, id int64, externalRef string) error
	UpdateStatus(ctx context.Context, update domain.PaymentUpdate) (*domain.Payment, error)
}

// AppointmentReader чтение записей для проверок перед оплатой
type AppointmentReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
}

// BookingConfirmer подтверждение записи после успешной оплаты
type BookingConfirmer interface {
	ConfirmPayment(ctx context.Context, appointmentID int64, result domain.PaymentResult) (*domain.Appointment, error)
}

// Notifier отправка уведомлений клиенту
type Notifier interface {
	Notify(ctx context.Context, event domain.NotificationEvent, appt *domain.Appointment, payment *domain.Payment) error
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// MetricsRecorder доменные метрики платежей
type MetricsRecorder interface {
	ObservePayment(method, status string)
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
