package bookings

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-ConsultationService/internal/infra/storage/appointment"
	calendarService "github.com/m04kA/SMC-ConsultationService/internal/service/calendar"
	"github.com/m04kA/SMC-ConsultationService/internal/service/bookings/models"
	"github.com/m04kA/SMC-ConsultationService/pkg/ptr"
)

// Cancel отменяет запись
// Клиент может отменить только свою запись и не позже чем за окно отмены до начала подтвержденной консультации
// Администратор может отменить любую активную запись; для оплаченной записи создается возврат
func (s *Service) Cancel(ctx context.Context, id int64, req *models.CancelAppointmentRequest) (*domain.Appointment, error) {
	s.logger.Info("Cancel: cancelling appointment id=%d by user=%d, admin=%t", id, req.Actor.UserID, req.Actor.IsAdmin)

	if utf8.RuneCountInString(req.CancellationReason) > domain.MaxCancellationReasonLength {
		return nil, fmt.Errorf("%w: cancellation reason too long", ErrInvalidInput)
	}

	appt, err := s.getAppointment(ctx, "Cancel", id)
	if err != nil {
		return nil, err
	}

	if err := checkAccess(appt, req.Actor); err != nil {
		s.logger.Warn("Cancel: access denied for user=%d to appointment id=%d", req.Actor.UserID, id)
		return nil, err
	}

	appt = s.refresh(ctx, appt)

	switch {
	case appt.IsCancelled():
		s.logger.Warn("Cancel: appointment id=%d already cancelled", id)
		return nil, ErrAlreadyCancelled
	case !appt.CanBeCancelled():
		s.logger.Warn("Cancel: appointment id=%d in status=%s cannot be cancelled", id, appt.Status)
		return nil, ErrCannotCancel
	}

	now := s.timeProvider.Now()
	if appt.Status == domain.StatusConfirmed && !req.Actor.IsAdmin &&
		appt.StartTime.Sub(now) < s.policy.CancellationWindow {
		s.logger.Warn("Cancel: cancellation window closed for appointment id=%d, starts at %s", id, appt.StartTime)
		return nil, ErrCancellationWindowClosed
	}

	transition := domain.AppointmentTransition{
		ID:               appt.ID,
		From:             appt.Status,
		Version:          appt.Version,
		To:               domain.StatusCancelled,
		CancelledByAdmin: ptr.Ptr(req.Actor.IsAdmin),
		CancelledAt:      &now,
	}
	if req.CancellationReason != "" {
		transition.CancellationReason = ptr.Ptr(req.CancellationReason)
	}

	var (
		cancelled *domain.Appointment
		refund    *domain.Payment
	)
	err = s.txManager.Do(ctx, func(txCtx context.Context) error {
		var err error
		cancelled, refund, err = s.cancelInTx(txCtx, transition)
		return err
	})
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrStaleState) {
			s.logger.Warn("Cancel: appointment id=%d changed concurrently", id)
			return nil, ErrStaleState
		}
		s.logger.Error("Cancel: failed to cancel appointment id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: Cancel - transaction error: %v", ErrInternal, err)
	}

	if req.Actor.IsAdmin {
		s.observeCancellation(initiatorAdmin)
	} else {
		s.observeCancellation(initiatorClient)
	}
	s.logger.Info("Cancel: appointment id=%d cancelled, refund=%t", id, refund != nil)
	s.notify(ctx, domain.EventCancelled, cancelled, refund)

	return cancelled, nil
}

// cancelInTx переводит запись в cancelled, освобождает слот и, если запись оплачена, создает возврат
func (s *Service) cancelInTx(ctx context.Context, t domain.AppointmentTransition) (*domain.Appointment, *domain.Payment, error) {
	cancelled, err := s.appointmentRepo.Transition(ctx, t)
	if err != nil {
		return nil, nil, err
	}

	if err := s.release(ctx, cancelled); err != nil {
		return nil, nil, err
	}

	if !cancelled.IsPaid || s.refunds == nil {
		return cancelled, nil, nil
	}

	refund, err := s.refunds.RecordRefund(ctx, cancelled)
	if err != nil {
		return nil, nil, fmt.Errorf("record refund: %w", err)
	}
	return cancelled, refund, nil
}

// release освобождает слот записи; отсутствующий слот не мешает отмене
func (s *Service) release(ctx context.Context, appt *domain.Appointment) error {
	if appt.SlotID == 0 {
		return nil
	}
	err := s.calendar.Release(ctx, appt.SlotID)
	if err != nil && !errors.Is(err, calendarService.ErrSlotNotFound) {
		return fmt.Errorf("release slot %d: %w", appt.SlotID, err)
	}
	return nil
}
