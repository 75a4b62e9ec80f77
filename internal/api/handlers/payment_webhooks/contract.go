package payment_webhooks

import (
	"context"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	processPaymentEvent "github.com/m04kA/SMC-ConsultationService/internal/usecase/process_payment_event"
)

// EventParser проверяет подлинность webhook и разбирает событие
// secret - подпись Stripe или токен из URL webhook PayPal
type EventParser interface {
	ParseWebhook(payload []byte, secret string) (*domain.PaymentEvent, error)
}

type ProcessPaymentEventUseCase interface {
	Execute(ctx context.Context, req *processPaymentEvent.Request) (*processPaymentEvent.Response, error)
}

type WebhookMetrics interface {
	ObserveWebhook(provider, outcome string)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
