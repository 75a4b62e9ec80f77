package payment_webhooks

import (
	"errors"
	"io"
	"net/http"

	"github.com/m04kA/SMC-ConsultationService/internal/api/handlers"
	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	processPaymentEvent "github.com/m04kA/SMC-ConsultationService/internal/usecase/process_payment_event"
)

const (
	// HeaderStripeSignature заголовок с подписью Stripe
	HeaderStripeSignature = "Stripe-Signature"
	// QueryPayPalToken параметр URL webhook PayPal с общим секретом
	QueryPayPalToken = "token"

	msgInvalidBody      = "не удалось прочитать тело запроса"
	msgInvalidSignature = "некорректная подпись события"
	msgCaptureFailed    = "не удалось списать средства по заказу"
	msgRetryLater       = "запись изменилась, повторите событие позже"

	outcomeRejected = "rejected"
	outcomeError    = "error"
)

type Handler struct {
	method  domain.PaymentMethod
	parser  EventParser
	useCase ProcessPaymentEventUseCase
	metrics WebhookMetrics
	logger  Logger
}

// NewStripeHandler обработчик событий Stripe
func NewStripeHandler(parser EventParser, useCase ProcessPaymentEventUseCase, metrics WebhookMetrics, logger Logger) *Handler {
	return &Handler{method: domain.MethodStripe, parser: parser, useCase: useCase, metrics: metrics, logger: logger}
}

// NewPayPalHandler обработчик событий PayPal
func NewPayPalHandler(parser EventParser, useCase ProcessPaymentEventUseCase, metrics WebhookMetrics, logger Logger) *Handler {
	return &Handler{method: domain.MethodPayPal, parser: parser, useCase: useCase, metrics: metrics, logger: logger}
}

// Handle POST /api/v1/webhooks/stripe, POST /api/v1/webhooks/paypal
// Ответ 2xx означает, что событие обработано или не требует обработки; иначе платежная система повторит доставку
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	route := "POST /webhooks/" + string(h.method)

	payload, err := io.ReadAll(io.LimitReader(r.Body, handlers.MaxBodyBytes))
	if err != nil {
		h.logger.Warn("%s - Failed to read body: %v", route, err)
		h.observe(outcomeRejected)
		handlers.RespondBadRequest(w, msgInvalidBody)
		return
	}

	event, err := h.parser.ParseWebhook(payload, h.secret(r))
	if err != nil {
		h.logger.Warn("%s - Rejected event: %v", route, err)
		h.observe(outcomeRejected)
		handlers.RespondBadRequest(w, msgInvalidSignature)
		return
	}

	result, err := h.useCase.Execute(r.Context(), &processPaymentEvent.Request{Method: h.method, Event: event})
	if err != nil {
		h.observe(outcomeError)
		if errors.Is(err, processPaymentEvent.ErrCaptureFailed) {
			h.logger.Warn("%s - Capture failed: event_id=%s, ref=%s: %v", route, event.ID, event.ExternalRef, err)
			handlers.RespondError(w, http.StatusBadGateway, msgCaptureFailed)
			return
		}
		if errors.Is(err, processPaymentEvent.ErrRetryLater) {
			h.logger.Warn("%s - Retry later: event_id=%s, ref=%s: %v", route, event.ID, event.ExternalRef, err)
			handlers.RespondError(w, http.StatusServiceUnavailable, msgRetryLater)
			return
		}
		h.logger.Error("%s - Failed to process event: event_id=%s, ref=%s, error=%v", route, event.ID, event.ExternalRef, err)
		handlers.RespondInternalError(w)
		return
	}

	h.observe(string(result.Outcome))
	h.logger.Info("%s - Event processed: event_id=%s, kind=%s, payment_id=%d, outcome=%s",
		route, event.ID, event.Kind, result.PaymentID, result.Outcome)
	handlers.RespondJSON(w, http.StatusOK, WebhookResponse{Received: true, Outcome: string(result.Outcome)})
}

func (h *Handler) secret(r *http.Request) string {
	if h.method == domain.MethodPayPal {
		return r.URL.Query().Get(QueryPayPalToken)
	}
	return r.Header.Get(HeaderStripeSignature)
}

func (h *Handler) observe(outcome string) {
	if h.metrics != nil {
		h.metrics.ObserveWebhook(string(h.method), outcome)
	}
}
