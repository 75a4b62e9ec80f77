package manage_slots

import (
	"context"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

type CalendarService interface {
	CreateSlots(ctx context.Context, providerID int64, windows []domain.Interval) ([]*domain.TimeSlot, error)
	ListSlots(ctx context.Context, providerID int64, from, to time.Time) ([]*domain.TimeSlot, error)
	GenerateFromPatterns(ctx context.Context, providerID int64, from, to time.Time) (int, error)
	UpdateSlot(ctx context.Context, slotID int64, window domain.Interval) (*domain.TimeSlot, error)
	DeleteSlot(ctx context.Context, slotID int64) error
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
