package mail

import (
	"context"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

// LogTransport только пишет письма в лог; используется при выключенной почте
type LogTransport struct {
	log Logger
}

// NewLogTransport создает транспорт-заглушку
func NewLogTransport(log Logger) *LogTransport {
	return &LogTransport{log: log}
}

// Send пишет письмо в лог
func (t *LogTransport) Send(_ context.Context, msg domain.EmailMessage) error {
	t.log.Info("Send: email disabled, %s to %s: %q", msg.TemplateName, msg.Recipient, msg.Subject)
	return nil
}
