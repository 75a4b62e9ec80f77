package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-ConsultationService/internal/infra/storage/appointment"
	paymentRepo "github.com/m04kA/SMC-ConsultationService/internal/infra/storage/payment"
	bookingsService "github.com/m04kA/SMC-ConsultationService/internal/service/bookings"
	"github.com/m04kA/SMC-ConsultationService/pkg/ptr"
)

// maxConfirmAttempts ограничивает число повторов подтверждения при параллельном изменении записи
const maxConfirmAttempts = 3

// Ledger учет попыток оплаты, подтверждений и возвратов по записям
type Ledger struct {
	paymentRepo     PaymentRepository
	appointmentRepo AppointmentReader
	confirmer       BookingConfirmer
	txManager       TransactionManager
	notifier        Notifier
	timeProvider    TimeProvider
	metrics         MetricsRecorder
	maxAttempts     int
	logger          Logger
}

// NewLedger создает новый экземпляр платежного учета
// maxAttempts ограничивает число неуспешных попыток оплаты записи, 0 - без ограничений
// Подтверждение записей подключается через SetBookingConfirmer
func NewLedger(
	paymentRepo PaymentRepository,
	appointmentRepo AppointmentReader,
	txManager TransactionManager,
	notifier Notifier,
	timeProvider TimeProvider,
	metrics MetricsRecorder,
	maxAttempts int,
	logger Logger,
) *Ledger {
	return &Ledger{
		paymentRepo:     paymentRepo,
		appointmentRepo: appointmentRepo,
		txManager:       txManager,
		notifier:        notifier,
		timeProvider:    timeProvider,
		metrics:         metrics,
		maxAttempts:     maxAttempts,
		logger:          logger,
	}
}

// SetBookingConfirmer подключает координатор записей
func (l *Ledger) SetBookingConfirmer(confirmer BookingConfirmer) {
	l.confirmer = confirmer
}

// RecordAttempt создает попытку оплаты в статусе pending
// Запись должна ожидать оплаты и не быть оплаченной
func (l *Ledger) RecordAttempt(ctx context.Context, appointmentID int64, amount float64, currency string, method domain.PaymentMethod) (*domain.Payment, error) {
	l.logger.Info("RecordAttempt: appointment id=%d, amount=%.2f %s, method=%s", appointmentID, amount, currency, method)

	if amount <= 0 || currency == "" || !method.IsValid() {
		return nil, fmt.Errorf("%w: amount, currency and method are required", ErrInvalidInput)
	}

	appt, err := l.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			return nil, ErrAppointmentNotFound
		}
		l.logger.Error("RecordAttempt: repository error for appointment id=%d: %v", appointmentID, err)
		return nil, fmt.Errorf("%w: RecordAttempt - get appointment: %v", ErrInternal, err)
	}

	switch {
	case appt.IsPaid || appt.Status == domain.StatusConfirmed || appt.Status == domain.StatusCompleted:
		l.logger.Warn("RecordAttempt: appointment id=%d already paid", appointmentID)
		return nil, ErrAlreadyPaid
	case appt.Status == domain.StatusCancelled:
		l.logger.Warn("RecordAttempt: appointment id=%d is cancelled", appointmentID)
		return nil, ErrBookingExpired
	}

	existing, err := l.paymentRepo.ListByAppointment(ctx, appointmentID)
	if err != nil {
		l.logger.Error("RecordAttempt: repository error for appointment id=%d: %v", appointmentID, err)
		return nil, fmt.Errorf("%w: RecordAttempt - list payments: %v", ErrInternal, err)
	}

	failed := 0
	for _, p := range existing {
		if p.IsRefund() {
			continue
		}
		switch p.Status {
		case domain.PaymentSucceeded:
			return nil, ErrAlreadyPaid
		case domain.PaymentFailed:
			failed++
		}
	}
	if l.maxAttempts > 0 && failed >= l.maxAttempts {
		l.logger.Warn("RecordAttempt: retry limit exceeded for appointment id=%d, failed=%d", appointmentID, failed)
		return nil, ErrRetryLimitExceeded
	}

	created, err := l.paymentRepo.Create(ctx, &domain.Payment{
		AppointmentID: appointmentID,
		ClientID:      appt.ClientID,
		Amount:        amount,
		Currency:      currency,
		Method:        method,
		Status:        domain.PaymentPending,
	})
	if err != nil {
		l.logger.Error("RecordAttempt: failed to create payment for appointment id=%d: %v", appointmentID, err)
		return nil, fmt.Errorf("%w: RecordAttempt - create payment: %v", ErrInternal, err)
	}

	l.observe(created)
	l.logger.Info("RecordAttempt: created payment id=%d for appointment id=%d", created.ID, appointmentID)
	return created, nil
}

// AttachExternalRef сохраняет идентификатор платежа во внешней платежной системе
func (l *Ledger) AttachExternalRef(ctx context.Context, paymentID int64, externalRef string) error {
	if externalRef == "" {
		return fmt.Errorf("%w: external reference is empty", ErrInvalidInput)
	}

	err := l.paymentRepo.SetExternalRef(ctx, paymentID, externalRef)
	switch {
	case err == nil:
		l.logger.Info("AttachExternalRef: payment id=%d, ref=%s", paymentID, externalRef)
		return nil
	case errors.Is(err, paymentRepo.ErrPaymentNotFound):
		return ErrPaymentNotFound
	case errors.Is(err, paymentRepo.ErrStatusConflict):
		l.logger.Warn("AttachExternalRef: payment id=%d is not pending", paymentID)
		return ErrInvalidState
	default:
		l.logger.Error("AttachExternalRef: payment id=%d: %v", paymentID, err)
		return fmt.Errorf("%w: AttachExternalRef - repository error: %v", ErrInternal, err)
	}
}

// FindByExternalRef находит платеж по идентификатору внешней платежной системы
func (l *Ledger) FindByExternalRef(ctx context.Context, externalRef string) (*domain.Payment, error) {
	p, err := l.paymentRepo.GetByExternalRef(ctx, externalRef)
	if err != nil {
		if errors.Is(err, paymentRepo.ErrPaymentNotFound) {
			l.logger.Warn("FindByExternalRef: payment with ref=%s not found", externalRef)
			return nil, ErrPaymentNotFound
		}
		l.logger.Error("FindByExternalRef: ref=%s: %v", externalRef, err)
		return nil, fmt.Errorf("%w: FindByExternalRef - repository error: %v", ErrInternal, err)
	}
	return p, nil
}

// MarkSucceeded фиксирует успешную оплату и подтверждает запись в той же транзакции
// Если бронь истекла, платеж остается успешным, запись помечается оплаченной и создается возврат;
// в этом случае возвращается ErrBookingExpired
func (l *Ledger) MarkSucceeded(ctx context.Context, paymentID int64, externalRef string, completedAt time.Time, receiptURL *string) (*domain.Payment, error) {
	l.logger.Info("MarkSucceeded: payment id=%d, ref=%s", paymentID, externalRef)

	p, err := l.getPayment(ctx, "MarkSucceeded", paymentID)
	if err != nil {
		return nil, err
	}

	switch {
	case p.IsRefund():
		return nil, fmt.Errorf("%w: refund record cannot succeed", ErrInvalidState)
	case p.Status == domain.PaymentSucceeded:
		l.logger.Warn("MarkSucceeded: payment id=%d already succeeded", paymentID)
		return p, ErrAlreadyPaid
	}

	if err := l.checkNotPaid(ctx, p); err != nil {
		return nil, err
	}

	if completedAt.IsZero() {
		completedAt = l.timeProvider.Now()
	}

	update := domain.PaymentUpdate{
		ID:          p.ID,
		From:        p.Status,
		To:          domain.PaymentSucceeded,
		ReceiptURL:  receiptURL,
		CompletedAt: &completedAt,
	}
	if externalRef != "" {
		update.ExternalRef = &externalRef
	}

	var (
		succeeded *domain.Payment
		appt      *domain.Appointment
		refund    *domain.Payment
		expired   bool
	)
	// Запись могла измениться между чтением и подтверждением: транзакция откатывается целиком
	// и повторяется с актуальным состоянием записи
	for attempt := 1; ; attempt++ {
		expired, refund = false, nil
		err = l.txManager.Do(ctx, func(txCtx context.Context) error {
			var err error
			succeeded, err = l.paymentRepo.UpdateStatus(txCtx, update)
			if err != nil {
				return err
			}

			appt, err = l.confirmer.ConfirmPayment(txCtx, p.AppointmentID, domain.PaymentResult{
				PaymentID:   succeeded.ID,
				Amount:      succeeded.Amount,
				Currency:    succeeded.Currency,
				CompletedAt: completedAt,
			})
			if errors.Is(err, bookingsService.ErrBookingExpired) {
				expired = true
				refund, err = l.RecordRefund(txCtx, appt)
			}
			return err
		})
		if !errors.Is(err, bookingsService.ErrStaleState) || attempt >= maxConfirmAttempts {
			break
		}
		l.logger.Warn("MarkSucceeded: appointment id=%d changed concurrently, retry %d", p.AppointmentID, attempt)
	}
	if err != nil {
		switch {
		case errors.Is(err, paymentRepo.ErrStatusConflict), errors.Is(err, bookingsService.ErrAlreadyPaid):
			l.logger.Warn("MarkSucceeded: payment id=%d, appointment id=%d already paid", paymentID, p.AppointmentID)
			return nil, ErrAlreadyPaid
		case errors.Is(err, bookingsService.ErrAppointmentNotFound):
			return nil, ErrAppointmentNotFound
		case errors.Is(err, bookingsService.ErrStaleState):
			l.logger.Warn("MarkSucceeded: payment id=%d, appointment id=%d keeps changing", paymentID, p.AppointmentID)
			return nil, ErrStaleState
		}
		l.logger.Error("MarkSucceeded: payment id=%d: %v", paymentID, err)
		return nil, fmt.Errorf("%w: MarkSucceeded - transaction error: %v", ErrInternal, err)
	}

	l.observe(succeeded)

	if expired {
		l.logger.Warn("MarkSucceeded: appointment id=%d expired before payment id=%d, refund id=%d",
			p.AppointmentID, paymentID, refundID(refund))
		l.notify(ctx, domain.EventCancelled, appt, refund)
		return succeeded, ErrBookingExpired
	}

	l.logger.Info("MarkSucceeded: payment id=%d succeeded, appointment id=%d confirmed", paymentID, p.AppointmentID)
	l.notify(ctx, domain.EventPaymentReceived, appt, succeeded)
	return succeeded, nil
}

// MarkFailed фиксирует неуспешную оплату; запись остается в ожидании оплаты
// Повторная отметка неуспешного платежа не является ошибкой
func (l *Ledger) MarkFailed(ctx context.Context, paymentID int64, reason string) (*domain.Payment, error) {
	l.logger.Info("MarkFailed: payment id=%d, reason=%s", paymentID, reason)

	p, err := l.getPayment(ctx, "MarkFailed", paymentID)
	if err != nil {
		return nil, err
	}

	switch p.Status {
	case domain.PaymentFailed:
		return p, nil
	case domain.PaymentSucceeded:
		l.logger.Warn("MarkFailed: payment id=%d already succeeded", paymentID)
		return nil, ErrAlreadyPaid
	case domain.PaymentRefundPending:
		return nil, fmt.Errorf("%w: refund record cannot fail", ErrInvalidState)
	}

	now := l.timeProvider.Now()
	failed, err := l.paymentRepo.UpdateStatus(ctx, domain.PaymentUpdate{
		ID:           p.ID,
		From:         domain.PaymentPending,
		To:           domain.PaymentFailed,
		ErrorMessage: ptr.Ptr(reason),
		CompletedAt:  &now,
	})
	if err != nil {
		if errors.Is(err, paymentRepo.ErrStatusConflict) {
			l.logger.Warn("MarkFailed: payment id=%d changed concurrently", paymentID)
			return nil, ErrInvalidState
		}
		l.logger.Error("MarkFailed: payment id=%d: %v", paymentID, err)
		return nil, fmt.Errorf("%w: MarkFailed - repository error: %v", ErrInternal, err)
	}

	l.observe(failed)
	return failed, nil
}

// RecordRefund создает запись о возврате успешного платежа по записи
// Для одного платежа создается не больше одного возврата
func (l *Ledger) RecordRefund(ctx context.Context, appt *domain.Appointment) (*domain.Payment, error) {
	payments, err := l.paymentRepo.ListByAppointment(ctx, appt.ID)
	if err != nil {
		l.logger.Error("RecordRefund: repository error for appointment id=%d: %v", appt.ID, err)
		return nil, fmt.Errorf("%w: RecordRefund - list payments: %v", ErrInternal, err)
	}

	var original *domain.Payment
	refunded := make(map[int64]*domain.Payment)
	for _, p := range payments {
		if p.IsRefund() {
			refunded[*p.RefundOfPaymentID] = p
			continue
		}
		if p.Status == domain.PaymentSucceeded {
			original = p
		}
	}

	if original == nil {
		l.logger.Warn("RecordRefund: no succeeded payment for appointment id=%d", appt.ID)
		return nil, nil
	}
	if existing, ok := refunded[original.ID]; ok {
		return existing, nil
	}

	refund, err := l.paymentRepo.Create(ctx, &domain.Payment{
		AppointmentID:     appt.ID,
		ClientID:          original.ClientID,
		Amount:            original.Amount,
		Currency:          original.Currency,
		Method:            original.Method,
		Status:            domain.PaymentRefundPending,
		RefundOfPaymentID: ptr.Ptr(original.ID),
	})
	if err != nil {
		l.logger.Error("RecordRefund: failed to create refund for payment id=%d: %v", original.ID, err)
		return nil, fmt.Errorf("%w: RecordRefund - create refund: %v", ErrInternal, err)
	}

	l.observe(refund)
	l.logger.Info("RecordRefund: refund id=%d for payment id=%d, appointment id=%d", refund.ID, original.ID, appt.ID)
	return refund, nil
}

// ListByAppointment возвращает платежи и возвраты по записи
func (l *Ledger) ListByAppointment(ctx context.Context, appointmentID int64) ([]*domain.Payment, error) {
	payments, err := l.paymentRepo.ListByAppointment(ctx, appointmentID)
	if err != nil {
		l.logger.Error("ListByAppointment: appointment id=%d: %v", appointmentID, err)
		return nil, fmt.Errorf("%w: ListByAppointment - repository error: %v", ErrInternal, err)
	}
	return payments, nil
}

// GetPayment возвращает платеж владельцу записи или администратору
func (l *Ledger) GetPayment(ctx context.Context, paymentID int64, actor domain.Actor) (*domain.Payment, error) {
	p, err := l.getPayment(ctx, "GetPayment", paymentID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin && p.ClientID != actor.UserID {
		l.logger.Warn("GetPayment: access denied for user=%d to payment id=%d", actor.UserID, paymentID)
		return nil, ErrAccessDenied
	}
	return p, nil
}

// ListForAppointment возвращает платежи записи владельцу записи или администратору
func (l *Ledger) ListForAppointment(ctx context.Context, appointmentID int64, actor domain.Actor) ([]*domain.Payment, error) {
	appt, err := l.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			return nil, ErrAppointmentNotFound
		}
		l.logger.Error("ListForAppointment: appointment id=%d: %v", appointmentID, err)
		return nil, fmt.Errorf("%w: ListForAppointment - get appointment: %v", ErrInternal, err)
	}
	if !actor.IsAdmin && appt.ClientID != actor.UserID {
		l.logger.Warn("ListForAppointment: access denied for user=%d to appointment id=%d", actor.UserID, appointmentID)
		return nil, ErrAccessDenied
	}
	return l.ListByAppointment(ctx, appointmentID)
}

// checkNotPaid проверяет до любых изменений, что по записи нет другого успешного платежа
func (l *Ledger) checkNotPaid(ctx context.Context, p *domain.Payment) error {
	appt, err := l.appointmentRepo.GetByID(ctx, p.AppointmentID)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			return ErrAppointmentNotFound
		}
		return fmt.Errorf("%w: get appointment: %v", ErrInternal, err)
	}
	if appt.IsPaid {
		l.logger.Warn("MarkSucceeded: appointment id=%d already paid, payment id=%d ignored", appt.ID, p.ID)
		return ErrAlreadyPaid
	}

	siblings, err := l.paymentRepo.ListByAppointment(ctx, p.AppointmentID)
	if err != nil {
		return fmt.Errorf("%w: list payments: %v", ErrInternal, err)
	}
	for _, s := range siblings {
		if s.ID != p.ID && !s.IsRefund() && s.Status == domain.PaymentSucceeded {
			return ErrAlreadyPaid
		}
	}
	return nil
}

func (l *Ledger) getPayment(ctx context.Context, op string, id int64) (*domain.Payment, error) {
	p, err := l.paymentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, paymentRepo.ErrPaymentNotFound) {
			l.logger.Warn("%s: payment id=%d not found", op, id)
			return nil, ErrPaymentNotFound
		}
		l.logger.Error("%s: repository error for payment id=%d: %v", op, id, err)
		return nil, fmt.Errorf("%w: %s - repository error: %v", ErrInternal, op, err)
	}
	return p, nil
}

func (l *Ledger) notify(ctx context.Context, event domain.NotificationEvent, appt *domain.Appointment, payment *domain.Payment) {
	if l.notifier == nil || appt == nil {
		return
	}
	if err := l.notifier.Notify(ctx, event, appt, payment); err != nil {
		l.logger.Warn("notify: event=%s for appointment id=%d not delivered: %v", event, appt.ID, err)
	}
}

func (l *Ledger) observe(p *domain.Payment) {
	if l.metrics != nil && p != nil {
		l.metrics.ObservePayment(string(p.Method), string(p.Status))
	}
}

func refundID(p *domain.Payment) int64 {
	if p == nil {
		return 0
	}
	return p.ID
}
