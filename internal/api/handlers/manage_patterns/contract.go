package manage_patterns

import (
	"context"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

type CalendarService interface {
	CreatePattern(ctx context.Context, pattern *domain.RecurringPattern) (*domain.RecurringPattern, error)
	ListPatterns(ctx context.Context, providerID int64) ([]*domain.RecurringPattern, error)
	UpdatePattern(ctx context.Context, patternID int64, update domain.PatternUpdate) (*domain.RecurringPattern, error)
	DeactivatePattern(ctx context.Context, patternID int64) error
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
