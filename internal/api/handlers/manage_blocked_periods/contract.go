package manage_blocked_periods

import (
	"context"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

type CalendarService interface {
	CreateBlockedPeriod(ctx context.Context, period *domain.BlockedPeriod) (*domain.BlockedPeriod, int64, error)
	ListBlockedPeriods(ctx context.Context, providerID int64, window *domain.Interval) ([]*domain.BlockedPeriod, error)
	UpdateBlockedPeriod(ctx context.Context, id int64, update domain.BlockedPeriodUpdate) (*domain.BlockedPeriod, int64, error)
	DeleteBlockedPeriod(ctx context.Context, id int64) error
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
