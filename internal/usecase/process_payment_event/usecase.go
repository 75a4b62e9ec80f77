package process_payment_event

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	paymentsService "github.com/m04kA/SMC-ConsultationService/internal/service/payments"
)

// UseCase use case для обработки событий платежных систем
type UseCase struct {
	ledger    PaymentLedger
	capturers map[domain.PaymentMethod]OrderCapturer
	logger    Logger
}

// NewUseCase создает новый экземпляр use case
// capturers нужны только для платежных систем с двухшаговой оплатой
func NewUseCase(ledger PaymentLedger, capturers map[domain.PaymentMethod]OrderCapturer, logger Logger) *UseCase {
	return &UseCase{
		ledger:    ledger,
		capturers: capturers,
		logger:    logger,
	}
}

// Execute применяет событие к платежному учету
// Повторная доставка события не является ошибкой: платежные системы повторяют webhook до ответа 2xx
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || req.Event == nil {
		return nil, ErrInvalidInput
	}
	event := req.Event

	uc.logger.Info("ProcessPaymentEvent: method=%s, event id=%s, kind=%s, ref=%s", req.Method, event.ID, event.Kind, event.ExternalRef)

	if event.Kind == domain.PaymentEventIgnored || event.ExternalRef == "" {
		return &Response{Outcome: OutcomeIgnored}, nil
	}

	// 1. Находим платеж по внешнему идентификатору
	payment, err := uc.ledger.FindByExternalRef(ctx, event.ExternalRef)
	if err != nil {
		if errors.Is(err, paymentsService.ErrPaymentNotFound) {
			uc.logger.Warn("ProcessPaymentEvent: unknown ref=%s, event id=%s ignored", event.ExternalRef, event.ID)
			return &Response{Outcome: OutcomeIgnored}, nil
		}
		uc.logger.Error("ProcessPaymentEvent: failed to find payment by ref=%s: %v", event.ExternalRef, err)
		return nil, fmt.Errorf("%w: find payment: %v", ErrInternal, err)
	}

	resp := &Response{PaymentID: payment.ID, AppointmentID: payment.AppointmentID}

	// 2. Применяем событие
	switch event.Kind {
	case domain.PaymentEventApproved:
		return uc.capture(ctx, req.Method, event.ExternalRef, payment, resp)

	case domain.PaymentEventSucceeded:
		_, err := uc.ledger.MarkSucceeded(ctx, payment.ID, event.ExternalRef, event.OccurredAt, event.ReceiptURL)
		switch {
		case err == nil:
			resp.Outcome = OutcomeConfirmed
		case errors.Is(err, paymentsService.ErrAlreadyPaid):
			resp.Outcome = OutcomeDuplicate
		case errors.Is(err, paymentsService.ErrBookingExpired):
			uc.logger.Warn("ProcessPaymentEvent: payment id=%d arrived after booking expired, refund recorded", payment.ID)
			resp.Outcome = OutcomeExpired
		case errors.Is(err, paymentsService.ErrStaleState):
			uc.logger.Warn("ProcessPaymentEvent: appointment id=%d keeps changing, payment id=%d left pending", payment.AppointmentID, payment.ID)
			return nil, fmt.Errorf("%w: %v", ErrRetryLater, err)
		default:
			uc.logger.Error("ProcessPaymentEvent: failed to mark payment id=%d succeeded: %v", payment.ID, err)
			return nil, fmt.Errorf("%w: mark succeeded: %v", ErrInternal, err)
		}

	case domain.PaymentEventFailed:
		_, err := uc.ledger.MarkFailed(ctx, payment.ID, event.FailureReason)
		switch {
		case err == nil:
			resp.Outcome = OutcomeFailed
		case errors.Is(err, paymentsService.ErrAlreadyPaid), errors.Is(err, paymentsService.ErrInvalidState):
			uc.logger.Warn("ProcessPaymentEvent: failure for payment id=%d ignored: %v", payment.ID, err)
			resp.Outcome = OutcomeDuplicate
		default:
			uc.logger.Error("ProcessPaymentEvent: failed to mark payment id=%d failed: %v", payment.ID, err)
			return nil, fmt.Errorf("%w: mark failed: %v", ErrInternal, err)
		}

	default:
		resp.Outcome = OutcomeIgnored
	}

	uc.logger.Info("ProcessPaymentEvent: payment id=%d, outcome=%s", payment.ID, resp.Outcome)
	return resp, nil
}

func (uc *UseCase) capture(ctx context.Context, method domain.PaymentMethod, orderID string, payment *domain.Payment, resp *Response) (*Response, error) {
	if payment.Status != domain.PaymentPending {
		resp.Outcome = OutcomeDuplicate
		return resp, nil
	}

	capturer, ok := uc.capturers[method]
	if !ok || capturer == nil {
		uc.logger.Warn("ProcessPaymentEvent: no capturer for method=%s, payment id=%d", method, payment.ID)
		resp.Outcome = OutcomeIgnored
		return resp, nil
	}

	if err := capturer.Capture(ctx, orderID); err != nil {
		uc.logger.Error("ProcessPaymentEvent: capture failed for payment id=%d: %v", payment.ID, err)
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}

	uc.logger.Info("ProcessPaymentEvent: capture requested for payment id=%d", payment.ID)
	resp.Outcome = OutcomeCaptureRequested
	return resp, nil
}
