package bookings

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-ConsultationService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-ConsultationService/pkg/ptr"
)

// ConfirmPayment подтверждает запись после успешной оплаты
// Вызывается платежным сервисом внутри его транзакции; уведомления отправляет вызывающая сторона
//
// Если оплата пришла после срока брони, запись отменяется (или уже отменена), помечается оплаченной
// и возвращается вместе с ErrBookingExpired: вызывающая сторона должна оформить возврат
func (s *Service) ConfirmPayment(ctx context.Context, appointmentID int64, result domain.PaymentResult) (*domain.Appointment, error) {
	s.logger.Info("ConfirmPayment: appointment id=%d, payment id=%d", appointmentID, result.PaymentID)

	appt, err := s.getAppointment(ctx, "ConfirmPayment", appointmentID)
	if err != nil {
		return nil, err
	}

	if appt.IsPaid || appt.Status == domain.StatusConfirmed || appt.Status == domain.StatusCompleted {
		s.logger.Warn("ConfirmPayment: appointment id=%d already paid", appointmentID)
		return appt, ErrAlreadyPaid
	}

	now := s.timeProvider.Now()
	paidAt := result.CompletedAt
	if paidAt.IsZero() {
		paidAt = now
	}

	switch {
	case appt.Status == domain.StatusCancelled:
		paid, err := s.appointmentRepo.Transition(ctx, domain.AppointmentTransition{
			ID:      appt.ID,
			From:    domain.StatusCancelled,
			Version: appt.Version,
			To:      domain.StatusCancelled,
			IsPaid:  ptr.Ptr(true),
		})
		if err != nil {
			return nil, s.transitionError("ConfirmPayment", appt.ID, err)
		}
		s.logger.Warn("ConfirmPayment: payment for cancelled appointment id=%d", appointmentID)
		return paid, ErrBookingExpired

	case paidAt.After(appt.PaymentDeadline(s.policy.PaymentTimeout)):
		expired, _, err := s.cancelInTx(ctx, domain.AppointmentTransition{
			ID:                 appt.ID,
			From:               domain.StatusPendingPayment,
			Version:            appt.Version,
			To:                 domain.StatusCancelled,
			IsPaid:             ptr.Ptr(true),
			CancellationReason: ptr.Ptr(paymentTimeoutReason),
			CancelledAt:        &now,
		})
		if err != nil {
			return nil, s.transitionError("ConfirmPayment", appt.ID, err)
		}
		s.observeCancellation(initiatorTimeout)
		s.logger.Warn("ConfirmPayment: payment after deadline, appointment id=%d expired", appointmentID)
		return expired, ErrBookingExpired
	}

	confirmed, err := s.appointmentRepo.Transition(ctx, domain.AppointmentTransition{
		ID:         appt.ID,
		From:       domain.StatusPendingPayment,
		Version:    appt.Version,
		To:         domain.StatusConfirmed,
		IsPaid:     ptr.Ptr(true),
		MeetingURL: ptr.Ptr(s.meetingURL()),
	})
	if err != nil {
		return nil, s.transitionError("ConfirmPayment", appt.ID, err)
	}

	s.logger.Info("ConfirmPayment: appointment id=%d confirmed", appointmentID)
	return confirmed, nil
}

func (s *Service) transitionError(op string, id int64, err error) error {
	if errors.Is(err, appointmentRepo.ErrStaleState) {
		s.logger.Warn("%s: appointment id=%d changed concurrently", op, id)
		return ErrStaleState
	}
	s.logger.Error("%s: transition failed for appointment id=%d: %v", op, id, err)
	return fmt.Errorf("%w: %s - transition error: %v", ErrInternal, op, err)
}
