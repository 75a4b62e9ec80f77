package notifications

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

// Результаты отправки для метрик
const (
	resultSent        = "sent"
	resultRenderError = "render_error"
	resultDeferred    = "deferred"
	resultNoRecipient = "no_recipient"
)

// Dispatcher формирует письма по событиям записи и передает их транспорту
type Dispatcher struct {
	clients        ClientDirectory
	transport      Transport
	emailLogs      EmailLogRepository
	timeProvider   TimeProvider
	metrics        MetricsRecorder
	templates      *emailTemplates
	paymentTimeout time.Duration
	logger         Logger
}

// NewDispatcher создает диспетчер уведомлений
// location задает часовой пояс дат в письмах
func NewDispatcher(
	clients ClientDirectory,
	transport Transport,
	emailLogs EmailLogRepository,
	timeProvider TimeProvider,
	metrics MetricsRecorder,
	location *time.Location,
	paymentTimeout time.Duration,
	logger Logger,
) (*Dispatcher, error) {
	if location == nil {
		location = time.UTC
	}
	tmpl, err := parseTemplates(location)
	if err != nil {
		return nil, fmt.Errorf("%w: parse templates: %v", ErrTemplateRender, err)
	}
	if paymentTimeout <= 0 {
		paymentTimeout = domain.DefaultPaymentTimeout
	}
	return &Dispatcher{
		clients:        clients,
		transport:      transport,
		emailLogs:      emailLogs,
		timeProvider:   timeProvider,
		metrics:        metrics,
		templates:      tmpl,
		paymentTimeout: paymentTimeout,
		logger:         logger,
	}, nil
}

// Notify формирует письмо по событию и передает его транспорту
// После успешной передачи письмо записывается в журнал
func (d *Dispatcher) Notify(ctx context.Context, event domain.NotificationEvent, appt *domain.Appointment, payment *domain.Payment) error {
	if !slices.Contains(domain.NotificationEvents, event) {
		return fmt.Errorf("%w: %s", ErrUnknownEvent, event)
	}

	client, err := d.clients.GetClient(ctx, appt.ClientID)
	if err != nil || client == nil || client.Email == "" {
		d.observe(event, resultNoRecipient)
		d.logger.Warn("Notify: no recipient for client=%d, event=%s, appointment id=%d: %v", appt.ClientID, event, appt.ID, err)
		return fmt.Errorf("%w: client=%d: %v", ErrRecipientNotFound, appt.ClientID, err)
	}

	subject, body, err := render(d.templates, event, newTemplateData(client, appt, payment, d.paymentTimeout))
	if err != nil {
		d.observe(event, resultRenderError)
		d.logger.Error("Notify: render %s for appointment id=%d: %v", event, appt.ID, err)
		return fmt.Errorf("%w: %s: %v", ErrTemplateRender, event, err)
	}

	msg := domain.EmailMessage{
		AppointmentID: appt.ID,
		TemplateName:  string(event),
		Recipient:     client.Email,
		RecipientName: client.FullName,
		Subject:       subject,
		HTMLBody:      body,
	}
	if err := d.transport.Send(ctx, msg); err != nil {
		d.observe(event, resultDeferred)
		d.logger.Warn("Notify: transport rejected %s for appointment id=%d: %v", event, appt.ID, err)
		return fmt.Errorf("%w: %v", ErrDeliveryDeferred, err)
	}

	d.observe(event, resultSent)

	if d.emailLogs != nil {
		if _, err := d.emailLogs.Create(ctx, &domain.EmailLog{
			AppointmentID: appt.ID,
			TemplateName:  string(event),
			Subject:       subject,
			Recipient:     client.Email,
			SentAt:        d.timeProvider.Now(),
		}); err != nil {
			d.logger.Warn("Notify: email log for appointment id=%d not written: %v", appt.ID, err)
		}
	}

	d.logger.Info("Notify: %s for appointment id=%d handed to transport", event, appt.ID)
	return nil
}

func newTemplateData(client *domain.Client, appt *domain.Appointment, payment *domain.Payment, timeout time.Duration) *TemplateData {
	data := &TemplateData{
		ClientName:       client.FullName,
		AppointmentID:    appt.ID,
		Type:             appt.Type,
		Start:            appt.StartTime,
		End:              appt.EndTime,
		PaymentDeadline:  appt.PaymentDeadline(timeout),
		CancelledByAdmin: appt.CancelledByAdmin,
	}
	if appt.MeetingURL != nil {
		data.MeetingURL = *appt.MeetingURL
	}
	if appt.CancellationReason != nil {
		data.CancellationReason = *appt.CancellationReason
	}
	if payment != nil {
		data.Payment = &PaymentView{Amount: payment.Amount, Currency: payment.Currency}
		if payment.ReceiptURL != nil {
			data.Payment.ReceiptURL = *payment.ReceiptURL
		}
		data.RefundDue = payment.IsRefund()
	}
	return data
}

func (d *Dispatcher) observe(event domain.NotificationEvent, result string) {
	if d.metrics != nil {
		d.metrics.ObserveEmail(string(event), result)
	}
}
