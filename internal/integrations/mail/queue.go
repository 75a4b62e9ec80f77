package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

// TypeEmailSend тип задачи отправки письма
const TypeEmailSend = "email:send"

const (
	defaultQueue    = "default"
	defaultMaxRetry = 10
)

// QueueTransport передает письма в очередь asynq; отправляет их Worker
type QueueTransport struct {
	client   Enqueuer
	queue    string
	maxRetry int
	log      Logger
}

// NewQueueTransport создает транспорт поверх очереди
func NewQueueTransport(client Enqueuer, queue string, maxRetry int, log Logger) *QueueTransport {
	if queue == "" {
		queue = defaultQueue
	}
	if maxRetry <= 0 {
		maxRetry = defaultMaxRetry
	}
	return &QueueTransport{
		client:   client,
		queue:    queue,
		maxRetry: maxRetry,
		log:      log,
	}
}

// NewSendTask упаковывает письмо в задачу asynq
func NewSendTask(msg domain.EmailMessage) (*asynq.Task, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return asynq.NewTask(TypeEmailSend, payload), nil
}

// Send ставит письмо в очередь
func (t *QueueTransport) Send(ctx context.Context, msg domain.EmailMessage) error {
	task, err := NewSendTask(msg)
	if err != nil {
		return err
	}

	info, err := t.client.EnqueueContext(ctx, task, asynq.Queue(t.queue), asynq.MaxRetry(t.maxRetry))
	if err != nil {
		t.log.Error("Send: failed to enqueue %s for appointment id=%d: %v", msg.TemplateName, msg.AppointmentID, err)
		return fmt.Errorf("%w: %v", ErrEnqueueFailed, err)
	}

	t.log.Info("Send: %s for appointment id=%d enqueued, task=%s", msg.TemplateName, msg.AppointmentID, info.ID)
	return nil
}
