package create_booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	bookingsService "github.com/m04kA/SMC-ConsultationService/internal/service/bookings"
	"github.com/m04kA/SMC-ConsultationService/internal/service/bookings/models"
)

// UseCase use case для создания записи на консультацию
type UseCase struct {
	bookings       BookingCoordinator
	timeProvider   TimeProvider
	config         Config
	paymentTimeout time.Duration
	logger         Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookings BookingCoordinator,
	timeProvider TimeProvider,
	config Config,
	paymentTimeout time.Duration,
	logger Logger,
) *UseCase {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if paymentTimeout <= 0 {
		paymentTimeout = domain.DefaultPaymentTimeout
	}
	return &UseCase{
		bookings:       bookings,
		timeProvider:   timeProvider,
		config:         config,
		paymentTimeout: paymentTimeout,
		logger:         logger,
	}
}

// Execute выполняет use case создания записи
// Проверяет ограничения по времени, затем резервирует окно через координатор записей
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CreateBooking: client=%d, provider=%d, date=%s, time=%s, type=%s",
		req.ClientID, req.ProviderID, req.Date.Format(domain.DateFormat), req.StartTime, req.Type)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("CreateBooking: validation failed: %v", err)
		return nil, err
	}

	// 2. Вычисляем окно консультации
	start, end, err := resolveWindow(req, uc.config.Location)
	if err != nil {
		uc.logger.Warn("CreateBooking: invalid window: %v", err)
		return nil, err
	}

	// 3. Проверяем ограничения по дате и времени
	now := uc.timeProvider.Now()
	if err := validateDate(start, now, uc.config.AdvanceBookingDays); err != nil {
		uc.logger.Warn("CreateBooking: date validation failed: %v", err)
		return nil, err
	}
	if err := validateBookingTime(start, now, uc.config.MinBookingNoticeMinutes); err != nil {
		uc.logger.Warn("CreateBooking: booking time validation failed: %v", err)
		return nil, err
	}

	// 4. Резервируем окно и создаем запись
	appt, err := uc.bookings.CreateBooking(ctx, &models.CreateBookingRequest{
		ClientID:   req.ClientID,
		ProviderID: req.ProviderID,
		StartTime:  start,
		EndTime:    end,
		Type:       req.Type,
		Notes:      req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, bookingsService.ErrSlotUnavailable):
			uc.logger.Warn("CreateBooking: slot %s-%s not available", start.Format(time.RFC3339), end.Format(time.RFC3339))
			return nil, ErrSlotNotAvailable
		case errors.Is(err, bookingsService.ErrInvalidInput):
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		uc.logger.Error("CreateBooking: failed to create appointment: %v", err)
		return nil, fmt.Errorf("%w: failed to create appointment: %v", ErrInternal, err)
	}

	uc.logger.Info("CreateBooking: successfully created appointment id=%d", appt.ID)

	return &Response{
		ID:              appt.ID,
		ClientID:        appt.ClientID,
		ProviderID:      appt.ProviderID,
		StartTime:       appt.StartTime,
		EndTime:         appt.EndTime,
		DurationMinutes: int(appt.EndTime.Sub(appt.StartTime).Minutes()),
		Type:            string(appt.Type),
		Status:          string(appt.Status),
		PaymentDeadline: appt.PaymentDeadline(uc.paymentTimeout),
		Notes:           appt.UserNotes,
		CreatedAt:       appt.CreatedAt,
		UpdatedAt:       appt.UpdatedAt,
	}, nil
}
