package checkout_payment

import (
	"context"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

// AppointmentReader получение записи с проверкой прав доступа
type AppointmentReader interface {
	GetAppointment(ctx context.Context, id int64, actor domain.Actor) (*domain.Appointment, error)
}

// PaymentLedger интерфейс платежного учета
type PaymentLedger interface {
	RecordAttempt(ctx context.Context, appointmentID int64, amount float64, currency string, method domain.PaymentMethod) (*domain.Payment, error)
	AttachExternalRef(ctx context.Context, paymentID int64, externalRef string) error
	MarkFailed(ctx context.Context, paymentID int64, reason string) (*domain.Payment, error)
}

// PaymentGateway внешняя платежная система
type PaymentGateway interface {
	Charge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
