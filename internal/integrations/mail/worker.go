package mail

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

// Worker обрабатывает задачи отправки писем
type Worker struct {
	sender Sender
	log    Logger
}

// NewWorker создает обработчик задач email:send
func NewWorker(sender Sender, log Logger) *Worker {
	return &Worker{sender: sender, log: log}
}

// Register подключает обработчик к мультиплексору asynq
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeEmailSend, w.ProcessTask)
}

// ProcessTask отправляет письмо; ошибка отправки возвращает задачу в очередь
func (w *Worker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	var msg domain.EmailMessage
	if err := json.Unmarshal(task.Payload(), &msg); err != nil {
		w.log.Error("ProcessTask: invalid payload: %v", err)
		return fmt.Errorf("%w: %v: %w", ErrInvalidPayload, err, asynq.SkipRetry)
	}
	if msg.Recipient == "" {
		w.log.Error("ProcessTask: empty recipient for appointment id=%d", msg.AppointmentID)
		return fmt.Errorf("%w: empty recipient: %w", ErrInvalidPayload, asynq.SkipRetry)
	}

	if err := w.sender.Send(ctx, msg); err != nil {
		w.log.Warn("ProcessTask: %s for appointment id=%d not sent: %v", msg.TemplateName, msg.AppointmentID, err)
		return err
	}

	w.log.Info("ProcessTask: %s for appointment id=%d sent to %s", msg.TemplateName, msg.AppointmentID, msg.Recipient)
	return nil
}
