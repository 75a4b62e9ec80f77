package bookings

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-ConsultationService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-ConsultationService/pkg/ptr"
)

// refresh применяет отложенные переходы к прочитанной записи:
// неоплаченная после срока запись отменяется, завершившаяся подтвержденная - закрывается
// При ошибке возвращается исходная запись; фоновые задачи повторят переход
func (s *Service) refresh(ctx context.Context, appt *domain.Appointment) *domain.Appointment {
	now := s.timeProvider.Now()

	switch {
	case appt.IsPaymentOverdue(now, s.policy.PaymentTimeout):
		expired, err := s.expire(ctx, appt)
		if err != nil {
			return s.reread(ctx, appt, err)
		}
		return expired
	case appt.IsFinished(now):
		completed, err := s.complete(ctx, appt)
		if err != nil {
			return s.reread(ctx, appt, err)
		}
		return completed
	}

	return appt
}

// reread перечитывает запись, если переход не удался из-за параллельного изменения
func (s *Service) reread(ctx context.Context, appt *domain.Appointment, cause error) *domain.Appointment {
	if !errors.Is(cause, appointmentRepo.ErrStaleState) {
		s.logger.Warn("refresh: appointment id=%d: %v", appt.ID, cause)
		return appt
	}
	fresh, err := s.appointmentRepo.GetByID(ctx, appt.ID)
	if err != nil {
		s.logger.Warn("refresh: reread appointment id=%d: %v", appt.ID, err)
		return appt
	}
	return fresh
}

// expire отменяет неоплаченную запись по истечении срока оплаты и освобождает слот
func (s *Service) expire(ctx context.Context, appt *domain.Appointment) (*domain.Appointment, error) {
	now := s.timeProvider.Now()

	var expired *domain.Appointment
	err := s.txManager.Do(ctx, func(txCtx context.Context) error {
		var err error
		expired, _, err = s.cancelInTx(txCtx, domain.AppointmentTransition{
			ID:                 appt.ID,
			From:               domain.StatusPendingPayment,
			Version:            appt.Version,
			To:                 domain.StatusCancelled,
			CancellationReason: ptr.Ptr(paymentTimeoutReason),
			CancelledAt:        &now,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.observeCancellation(initiatorTimeout)
	s.logger.Info("expire: appointment id=%d cancelled after payment timeout", appt.ID)
	s.notify(ctx, domain.EventCancelled, expired, nil)

	return expired, nil
}

// complete закрывает подтвержденную запись после окончания консультации
func (s *Service) complete(ctx context.Context, appt *domain.Appointment) (*domain.Appointment, error) {
	now := s.timeProvider.Now()

	completed, err := s.appointmentRepo.Transition(ctx, domain.AppointmentTransition{
		ID:          appt.ID,
		From:        domain.StatusConfirmed,
		Version:     appt.Version,
		To:          domain.StatusCompleted,
		CompletedAt: &now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("complete: appointment id=%d completed", appt.ID)
	return completed, nil
}

// ExpirePending отменяет все неоплаченные записи с истекшим сроком оплаты
// Возвращает количество отмененных записей
func (s *Service) ExpirePending(ctx context.Context) (int, error) {
	deadline := s.timeProvider.Now().Add(-s.policy.PaymentTimeout)

	overdue, err := s.appointmentRepo.GetWithFilter(ctx, domain.AppointmentFilter{
		Statuses:      []domain.AppointmentStatus{domain.StatusPendingPayment},
		CreatedBefore: &deadline,
	})
	if err != nil {
		s.logger.Error("ExpirePending: repository error: %v", err)
		return 0, fmt.Errorf("%w: ExpirePending - repository error: %v", ErrInternal, err)
	}

	expired := 0
	for _, appt := range overdue {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		if _, err := s.expire(ctx, appt); err != nil {
			if !errors.Is(err, appointmentRepo.ErrStaleState) {
				s.logger.Error("ExpirePending: appointment id=%d: %v", appt.ID, err)
			}
			continue
		}
		expired++
	}

	if expired > 0 {
		s.logger.Info("ExpirePending: expired %d appointments", expired)
	}
	return expired, nil
}

// CompleteFinished закрывает подтвержденные записи, время которых прошло
func (s *Service) CompleteFinished(ctx context.Context) (int, error) {
	now := s.timeProvider.Now()

	finished, err := s.appointmentRepo.GetWithFilter(ctx, domain.AppointmentFilter{
		Statuses:  []domain.AppointmentStatus{domain.StatusConfirmed},
		EndBefore: &now,
	})
	if err != nil {
		s.logger.Error("CompleteFinished: repository error: %v", err)
		return 0, fmt.Errorf("%w: CompleteFinished - repository error: %v", ErrInternal, err)
	}

	completed := 0
	for _, appt := range finished {
		if err := ctx.Err(); err != nil {
			return completed, err
		}
		if _, err := s.complete(ctx, appt); err != nil {
			if !errors.Is(err, appointmentRepo.ErrStaleState) {
				s.logger.Error("CompleteFinished: appointment id=%d: %v", appt.ID, err)
			}
			continue
		}
		completed++
	}

	if completed > 0 {
		s.logger.Info("CompleteFinished: completed %d appointments", completed)
	}
	return completed, nil
}

// SendReminders отправляет напоминания о подтвержденных консультациях, начинающихся в пределах ReminderLead
// Запись помечается до отправки, поэтому напоминание уходит не более одного раза
func (s *Service) SendReminders(ctx context.Context) (int, error) {
	now := s.timeProvider.Now()
	until := now.Add(s.policy.ReminderLead)

	upcoming, err := s.appointmentRepo.GetWithFilter(ctx, domain.AppointmentFilter{
		Statuses:     []domain.AppointmentStatus{domain.StatusConfirmed},
		StartFrom:    &now,
		StartTo:      &until,
		ReminderSent: ptr.Ptr(false),
	})
	if err != nil {
		s.logger.Error("SendReminders: repository error: %v", err)
		return 0, fmt.Errorf("%w: SendReminders - repository error: %v", ErrInternal, err)
	}

	sent := 0
	for _, appt := range upcoming {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		marked, err := s.appointmentRepo.Transition(ctx, domain.AppointmentTransition{
			ID:           appt.ID,
			From:         domain.StatusConfirmed,
			Version:      appt.Version,
			To:           domain.StatusConfirmed,
			ReminderSent: ptr.Ptr(true),
		})
		if err != nil {
			if !errors.Is(err, appointmentRepo.ErrStaleState) {
				s.logger.Error("SendReminders: mark appointment id=%d: %v", appt.ID, err)
			}
			continue
		}

		s.notify(ctx, domain.EventReminderDue, marked, nil)
		sent++
	}

	if sent > 0 {
		s.logger.Info("SendReminders: sent %d reminders", sent)
	}
	return sent, nil
}
