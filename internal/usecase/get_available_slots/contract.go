package get_available_slots

import (
	"context"
	"iter"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

// Calendar интерфейс календаря специалистов
type Calendar interface {
	// ListAvailable возвращает свободные окна специалиста в [from, to) по возрастанию начала
	ListAvailable(ctx context.Context, providerID int64, from, to time.Time) (iter.Seq[domain.TimeSlot], error)
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
