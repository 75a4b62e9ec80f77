package domain

import "time"

// NotificationEvent triggers an e-mail to the client
type NotificationEvent string

const (
	EventBookingCreated  NotificationEvent = "booking_created"
	EventPaymentReceived NotificationEvent = "payment_received"
	EventReminderDue     NotificationEvent = "reminder_due"
	EventCancelled       NotificationEvent = "cancelled"
)

// NotificationEvents все поддерживаемые события
var NotificationEvents = []NotificationEvent{
	EventBookingCreated,
	EventPaymentReceived,
	EventReminderDue,
	EventCancelled,
}

// EmailLog is an append-only record of a message handed to the transport
type EmailLog struct {
	ID            int64
	AppointmentID int64
	TemplateName  string
	Subject       string
	Recipient     string
	SentAt        time.Time
}

// EmailMessage is a rendered e-mail ready for delivery
type EmailMessage struct {
	AppointmentID int64  `json:"appointment_id"`
	TemplateName  string `json:"template_name"`
	Recipient     string `json:"recipient"`
	RecipientName string `json:"recipient_name"`
	Subject       string `json:"subject"`
	HTMLBody      string `json:"html_body"`
}

// Client is the client profile from the user service
type Client struct {
	ID       int64
	Email    string
	FullName string
}
