package get_payments

import (
	"context"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

type PaymentService interface {
	GetPayment(ctx context.Context, paymentID int64, actor domain.Actor) (*domain.Payment, error)
	ListForAppointment(ctx context.Context, appointmentID int64, actor domain.Actor) ([]*domain.Payment, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
