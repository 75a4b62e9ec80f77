package mail

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

// Enqueuer ставит задачи в очередь asynq
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Sender доставляет письмо получателю
type Sender interface {
	Send(ctx context.Context, msg domain.EmailMessage) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
