package checkout_payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	bookingsService "github.com/m04kA/SMC-ConsultationService/internal/service/bookings"
	paymentsService "github.com/m04kA/SMC-ConsultationService/internal/service/payments"
)

// UseCase use case для оплаты записи
type UseCase struct {
	appointments AppointmentReader
	ledger       PaymentLedger
	gateways     map[domain.PaymentMethod]PaymentGateway
	pricing      Pricing
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
// gateways содержит только подключенные платежные системы
func NewUseCase(
	appointments AppointmentReader,
	ledger PaymentLedger,
	gateways map[domain.PaymentMethod]PaymentGateway,
	pricing Pricing,
	logger Logger,
) *UseCase {
	return &UseCase{
		appointments: appointments,
		ledger:       ledger,
		gateways:     gateways,
		pricing:      pricing,
		logger:       logger,
	}
}

// Execute создает попытку оплаты и начинает платеж во внешней платежной системе
// Вызов платежной системы выполняется вне транзакций; при ошибке попытка помечается неуспешной
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CheckoutPayment: appointment id=%d, user=%d, method=%s", req.AppointmentID, req.Actor.UserID, req.Method)

	// 1. Проверяем способ оплаты
	gateway, ok := uc.gateways[req.Method]
	if !ok || gateway == nil {
		uc.logger.Warn("CheckoutPayment: unsupported method=%s", req.Method)
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, req.Method)
	}

	// 2. Получаем запись с проверкой прав и отложенными переходами
	appt, err := uc.appointments.GetAppointment(ctx, req.AppointmentID, req.Actor)
	if err != nil {
		switch {
		case errors.Is(err, bookingsService.ErrAppointmentNotFound):
			return nil, ErrAppointmentNotFound
		case errors.Is(err, bookingsService.ErrAccessDenied):
			uc.logger.Warn("CheckoutPayment: access denied for user=%d to appointment id=%d", req.Actor.UserID, req.AppointmentID)
			return nil, ErrAccessDenied
		}
		uc.logger.Error("CheckoutPayment: failed to get appointment id=%d: %v", req.AppointmentID, err)
		return nil, fmt.Errorf("%w: failed to get appointment: %v", ErrInternal, err)
	}

	// 3. Определяем цену по типу консультации
	amount, ok := uc.pricing.Prices[appt.Type]
	if !ok || amount <= 0 {
		uc.logger.Error("CheckoutPayment: no price for type=%s", appt.Type)
		return nil, fmt.Errorf("%w: %s", ErrPriceNotConfigured, appt.Type)
	}

	// 4. Создаем попытку оплаты
	payment, err := uc.ledger.RecordAttempt(ctx, appt.ID, amount, uc.pricing.Currency, req.Method)
	if err != nil {
		return nil, uc.translateLedgerError(appt.ID, err)
	}

	// 5. Начинаем платеж во внешней системе
	result, err := gateway.Charge(ctx, domain.ChargeRequest{
		PaymentID:      payment.ID,
		AppointmentID:  appt.ID,
		ClientID:       appt.ClientID,
		Amount:         payment.Amount,
		Currency:       payment.Currency,
		Description:    fmt.Sprintf("Consultation #%d (%s)", appt.ID, appt.Type),
		IdempotencyKey: fmt.Sprintf("payment-%d", payment.ID),
	})
	if err != nil {
		uc.logger.Warn("CheckoutPayment: gateway %s rejected payment id=%d: %v", req.Method, payment.ID, err)
		if _, markErr := uc.ledger.MarkFailed(ctx, payment.ID, err.Error()); markErr != nil {
			uc.logger.Error("CheckoutPayment: failed to mark payment id=%d failed: %v", payment.ID, markErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrGatewayFailed, err)
	}

	// 6. Сохраняем идентификатор внешнего платежа
	if err := uc.ledger.AttachExternalRef(ctx, payment.ID, result.ExternalRef); err != nil {
		uc.logger.Error("CheckoutPayment: failed to attach ref=%s to payment id=%d: %v", result.ExternalRef, payment.ID, err)
		return nil, fmt.Errorf("%w: failed to attach external reference: %v", ErrInternal, err)
	}

	uc.logger.Info("CheckoutPayment: payment id=%d started, ref=%s", payment.ID, result.ExternalRef)

	return &Response{
		PaymentID:     payment.ID,
		AppointmentID: appt.ID,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		Method:        string(payment.Method),
		Status:        string(payment.Status),
		ExternalRef:   result.ExternalRef,
		ClientSecret:  result.ClientSecret,
		ApprovalURL:   result.ApprovalURL,
	}, nil
}

func (uc *UseCase) translateLedgerError(appointmentID int64, err error) error {
	switch {
	case errors.Is(err, paymentsService.ErrAlreadyPaid):
		return ErrAlreadyPaid
	case errors.Is(err, paymentsService.ErrBookingExpired):
		return ErrBookingExpired
	case errors.Is(err, paymentsService.ErrRetryLimitExceeded):
		uc.logger.Warn("CheckoutPayment: retry limit exceeded for appointment id=%d", appointmentID)
		return ErrRetryLimitExceeded
	case errors.Is(err, paymentsService.ErrAppointmentNotFound):
		return ErrAppointmentNotFound
	}
	uc.logger.Error("CheckoutPayment: failed to record attempt for appointment id=%d: %v", appointmentID, err)
	return fmt.Errorf("%w: failed to record payment attempt: %v", ErrInternal, err)
}
