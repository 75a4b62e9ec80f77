package get_available_slots

import (
	"context"
	"fmt"
	"time"
)

// UseCase use case для получения доступных окон для записи
type UseCase struct {
	calendar                Calendar
	timeProvider            TimeProvider
	minBookingNoticeMinutes int
	logger                  Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	calendar Calendar,
	timeProvider TimeProvider,
	minBookingNoticeMinutes int,
	logger Logger,
) *UseCase {
	return &UseCase{
		calendar:                calendar,
		timeProvider:            timeProvider,
		minBookingNoticeMinutes: minBookingNoticeMinutes,
		logger:                  logger,
	}
}

// Execute выполняет use case получения доступных окон
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	if req.DurationMinutes == 0 {
		req.DurationMinutes = DefaultDurationMinutes
	}

	uc.logger.Info("GetAvailableSlots: provider=%d, range=%s - %s, duration=%d",
		req.ProviderID, req.From.Format(time.RFC3339), req.To.Format(time.RFC3339), req.DurationMinutes)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("GetAvailableSlots: validation failed: %v", err)
		return nil, err
	}

	// 2. Получаем свободные окна
	free, err := uc.calendar.ListAvailable(ctx, req.ProviderID, req.From, req.To)
	if err != nil {
		uc.logger.Error("GetAvailableSlots: failed to list availability for provider=%d: %v", req.ProviderID, err)
		return nil, fmt.Errorf("%w: failed to list availability: %v", ErrInternal, err)
	}

	// 3. Нарезаем окна с учетом минимального времени до записи
	notBefore := uc.timeProvider.Now().Add(time.Duration(uc.minBookingNoticeMinutes) * time.Minute)
	slots := sliceWindows(free, time.Duration(req.DurationMinutes)*time.Minute, notBefore)

	uc.logger.Info("GetAvailableSlots: found %d slots for provider=%d", len(slots), req.ProviderID)

	return &Response{
		ProviderID:      req.ProviderID,
		DurationMinutes: req.DurationMinutes,
		Slots:           slots,
	}, nil
}
