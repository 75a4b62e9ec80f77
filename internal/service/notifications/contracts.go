package notifications

import (
	"context"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

// ClientDirectory получение профиля клиента
type ClientDirectory interface {
	GetClient(ctx context.Context, clientID int64) (*domain.Client, error)
}

// Transport передача письма на доставку
type Transport interface {
	Send(ctx context.Context, msg domain.EmailMessage) error
}

// EmailLogRepository журнал отправленных писем
type EmailLogRepository interface {
	Create(ctx context.Context, entry *domain.EmailLog) (*domain.EmailLog, error)
}

// MetricsRecorder метрики отправки писем
type MetricsRecorder interface {
	ObserveEmail(template, result string)
}

// TimeProvider интерфейс для получения текущего времени
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
