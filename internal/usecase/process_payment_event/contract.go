package process_payment_event

import (
	"context"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

// PaymentLedger интерфейс платежного учета
type PaymentLedger interface {
	FindByExternalRef(ctx context.Context, externalRef string) (*domain.Payment, error)
	MarkSucceeded(ctx context.Context, paymentID int64, externalRef string, completedAt time.Time, receiptURL *string) (*domain.Payment, error)
	MarkFailed(ctx context.Context, paymentID int64, reason string) (*domain.Payment, error)
}

// OrderCapturer списание средств по одобренному заказу (PayPal)
type OrderCapturer interface {
	Capture(ctx context.Context, orderID string) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
