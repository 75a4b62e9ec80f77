package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-ConsultationService/internal/infra/storage/appointment"
	calendarService "github.com/m04kA/SMC-ConsultationService/internal/service/calendar"
	"github.com/m04kA/SMC-ConsultationService/internal/service/bookings/models"
)

// Policy параметры жизненного цикла записи
type Policy struct {
	PaymentTimeout     time.Duration
	CancellationWindow time.Duration
	ReminderLead       time.Duration
	MeetingBaseURL     string
}

// Результаты и инициаторы для доменных метрик
const (
	resultCreated  = "created"
	resultConflict = "conflict"
	resultFailed   = "failed"

	initiatorClient  = "client"
	initiatorAdmin   = "admin"
	initiatorTimeout = "payment_timeout"
)

const paymentTimeoutReason = "payment timeout"

// Service координатор записей на консультации
// Единственное место, где меняется статус записи
type Service struct {
	appointmentRepo AppointmentRepository
	calendar        SlotCalendar
	refunds         RefundRecorder
	notifier        Notifier
	txManager       TransactionManager
	timeProvider    TimeProvider
	metrics         MetricsRecorder
	policy          Policy
	logger          Logger
}

// NewService создает новый экземпляр сервиса записей
func NewService(
	appointmentRepo AppointmentRepository,
	calendar SlotCalendar,
	refunds RefundRecorder,
	notifier Notifier,
	txManager TransactionManager,
	timeProvider TimeProvider,
	metrics MetricsRecorder,
	policy Policy,
	logger Logger,
) *Service {
	if policy.PaymentTimeout <= 0 {
		policy.PaymentTimeout = domain.DefaultPaymentTimeout
	}
	if policy.CancellationWindow <= 0 {
		policy.CancellationWindow = domain.DefaultCancellationWindow
	}
	if policy.ReminderLead <= 0 {
		policy.ReminderLead = domain.DefaultReminderLead
	}
	return &Service{
		appointmentRepo: appointmentRepo,
		calendar:        calendar,
		refunds:         refunds,
		notifier:        notifier,
		txManager:       txManager,
		timeProvider:    timeProvider,
		metrics:         metrics,
		policy:          policy,
		logger:          logger,
	}
}

// CreateBooking резервирует окно и создает запись в статусе pending_payment
// Резервирование и создание записи выполняются в одной сериализуемой транзакции
func (s *Service) CreateBooking(ctx context.Context, req *models.CreateBookingRequest) (*domain.Appointment, error) {
	s.logger.Info("CreateBooking: client=%d, provider=%d, window=%s-%s, type=%s",
		req.ClientID, req.ProviderID, req.StartTime.Format(time.RFC3339), req.EndTime.Format(time.RFC3339), req.Type)

	if !req.Type.IsValid() || !req.EndTime.After(req.StartTime) {
		return nil, fmt.Errorf("%w: invalid type or time range", ErrInvalidInput)
	}

	var created *domain.Appointment
	err := s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		slot, err := s.calendar.Reserve(txCtx, req.ProviderID, req.StartTime, req.EndTime)
		if err != nil {
			return err
		}

		created, err = s.appointmentRepo.Create(txCtx, &domain.Appointment{
			ClientID:   req.ClientID,
			ProviderID: req.ProviderID,
			SlotID:     slot.ID,
			StartTime:  req.StartTime,
			EndTime:    req.EndTime,
			Type:       req.Type,
			Status:     domain.StatusPendingPayment,
			UserNotes:  req.Notes,
		})
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, calendarService.ErrSlotUnavailable):
			s.observeBooking(resultConflict)
			s.logger.Warn("CreateBooking: window unavailable for provider=%d, client=%d", req.ProviderID, req.ClientID)
			return nil, ErrSlotUnavailable
		case errors.Is(err, calendarService.ErrInvalidTimeRange):
			return nil, fmt.Errorf("%w: invalid time range", ErrInvalidInput)
		}
		s.observeBooking(resultFailed)
		s.logger.Error("CreateBooking: failed for client=%d, provider=%d: %v", req.ClientID, req.ProviderID, err)
		return nil, fmt.Errorf("%w: CreateBooking - transaction error: %v", ErrInternal, err)
	}

	s.observeBooking(resultCreated)
	s.logger.Info("CreateBooking: created appointment id=%d, slot=%d", created.ID, created.SlotID)
	s.notify(ctx, domain.EventBookingCreated, created, nil)

	return created, nil
}

// GetByID получает запись по ID
// Клиент видит только свои записи, администратор - любые
func (s *Service) GetByID(ctx context.Context, id int64, actor domain.Actor) (*models.AppointmentResponse, error) {
	s.logger.Info("GetByID: fetching appointment id=%d for user=%d", id, actor.UserID)

	appt, err := s.getAppointment(ctx, "GetByID", id)
	if err != nil {
		return nil, err
	}

	if err := checkAccess(appt, actor); err != nil {
		s.logger.Warn("GetByID: access denied for user=%d to appointment id=%d", actor.UserID, id)
		return nil, err
	}

	appt = s.refresh(ctx, appt)

	return models.FromDomainAppointmentFor(appt, actor), nil
}

// GetAppointment получает запись в доменном виде с учетом прав доступа
func (s *Service) GetAppointment(ctx context.Context, id int64, actor domain.Actor) (*domain.Appointment, error) {
	appt, err := s.getAppointment(ctx, "GetAppointment", id)
	if err != nil {
		return nil, err
	}
	if err := checkAccess(appt, actor); err != nil {
		return nil, err
	}
	return s.refresh(ctx, appt), nil
}

// ListByClient получает историю записей клиента
// Опционально фильтрует по статусу
func (s *Service) ListByClient(ctx context.Context, req *models.GetClientAppointmentsRequest) (*models.AppointmentListResponse, error) {
	s.logger.Info("ListByClient: fetching appointments for client=%d, status=%v", req.ClientID, req.Status)

	if !req.Actor.IsAdmin && req.Actor.UserID != req.ClientID {
		s.logger.Warn("ListByClient: access denied for user=%d to client=%d", req.Actor.UserID, req.ClientID)
		return nil, ErrAccessDenied
	}

	filter := domain.AppointmentFilter{ClientID: &req.ClientID}
	if req.Status != nil {
		status, err := models.ToDomainStatus(*req.Status)
		if err != nil {
			s.logger.Warn("ListByClient: invalid status=%s for client=%d", *req.Status, req.ClientID)
			return nil, fmt.Errorf("%w: invalid status", ErrInvalidInput)
		}
		filter.Statuses = []domain.AppointmentStatus{status}
	}

	appointments, err := s.list(ctx, "ListByClient", filter)
	if err != nil {
		return nil, err
	}

	s.logger.Info("ListByClient: fetched %d appointments for client=%d", len(appointments), req.ClientID)
	resp := models.FromDomainAppointmentList(appointments)
	if !req.Actor.IsAdmin {
		for i := range resp.Appointments {
			resp.Appointments[i].AdminNotes = nil
		}
	}
	return resp, nil
}

// ListAll получает записи с фильтрацией (только для администратора)
func (s *Service) ListAll(ctx context.Context, req *models.ListAppointmentsRequest) (*models.AppointmentListResponse, error) {
	s.logger.Info("ListAll: fetching appointments, provider=%v, client=%v, status=%v", req.ProviderID, req.ClientID, req.Status)

	filter, err := req.ToDomainFilter()
	if err != nil {
		s.logger.Warn("ListAll: invalid filter: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	appointments, err := s.list(ctx, "ListAll", filter)
	if err != nil {
		return nil, err
	}

	s.logger.Info("ListAll: fetched %d appointments", len(appointments))
	return models.FromDomainAppointmentList(appointments), nil
}

// list выбирает записи и применяет отложенные переходы
// Записи, сменившие статус, повторно проверяются на соответствие фильтру
func (s *Service) list(ctx context.Context, op string, filter domain.AppointmentFilter) ([]*domain.Appointment, error) {
	query := filter
	query.Statuses = widenStatuses(filter.Statuses)

	appointments, err := s.appointmentRepo.GetWithFilter(ctx, query)
	if err != nil {
		s.logger.Error("%s: repository error: %v", op, err)
		return nil, fmt.Errorf("%w: %s - repository error: %v", ErrInternal, op, err)
	}

	result := make([]*domain.Appointment, 0, len(appointments))
	for _, appt := range appointments {
		appt = s.refresh(ctx, appt)
		if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, appt.Status) {
			continue
		}
		result = append(result, appt)
	}
	return result, nil
}

func (s *Service) getAppointment(ctx context.Context, op string, id int64) (*domain.Appointment, error) {
	appt, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			s.logger.Warn("%s: appointment id=%d not found", op, id)
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("%s: repository error for appointment id=%d: %v", op, id, err)
		return nil, fmt.Errorf("%w: %s - repository error: %v", ErrInternal, op, err)
	}
	return appt, nil
}

// checkAccess проверяет, что пользователь является владельцем записи или администратором
func checkAccess(appt *domain.Appointment, actor domain.Actor) error {
	if actor.IsAdmin || appt.ClientID == actor.UserID {
		return nil
	}
	return ErrAccessDenied
}

func (s *Service) meetingURL() string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(s.policy.MeetingBaseURL, "/"), uuid.NewString())
}

// notify отправляет уведомление после фиксации изменений; ошибка доставки не влияет на результат операции
func (s *Service) notify(ctx context.Context, event domain.NotificationEvent, appt *domain.Appointment, payment *domain.Payment) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, appt, payment); err != nil {
		s.logger.Warn("notify: event=%s for appointment id=%d not delivered: %v", event, appt.ID, err)
	}
}

func (s *Service) observeBooking(result string) {
	if s.metrics != nil {
		s.metrics.ObserveBooking(result)
	}
}

func (s *Service) observeCancellation(initiator string) {
	if s.metrics != nil {
		s.metrics.ObserveCancellation(initiator)
	}
}

func hasStatus(statuses []domain.AppointmentStatus, status domain.AppointmentStatus) bool {
	for _, st := range statuses {
		if st == status {
			return true
		}
	}
	return false
}

// widenStatuses добавляет статусы, из которых запись может перейти в запрошенные при отложенном переходе
func widenStatuses(statuses []domain.AppointmentStatus) []domain.AppointmentStatus {
	if len(statuses) == 0 {
		return nil
	}
	result := append([]domain.AppointmentStatus(nil), statuses...)
	if hasStatus(statuses, domain.StatusCancelled) && !hasStatus(result, domain.StatusPendingPayment) {
		result = append(result, domain.StatusPendingPayment)
	}
	if hasStatus(statuses, domain.StatusCompleted) && !hasStatus(result, domain.StatusConfirmed) {
		result = append(result, domain.StatusConfirmed)
	}
	return result
}
