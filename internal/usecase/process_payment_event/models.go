package process_payment_event

import "github.com/m04kA/SMC-ConsultationService/internal/domain"

// Outcome результат обработки события платежной системы
type Outcome string

const (
	OutcomeConfirmed        Outcome = "confirmed"
	OutcomeFailed           Outcome = "failed"
	OutcomeCaptureRequested Outcome = "capture_requested"
	OutcomeDuplicate        Outcome = "duplicate"
	OutcomeExpired          Outcome = "expired"
	OutcomeIgnored          Outcome = "ignored"
)

// Request модель запроса на обработку проверенного события
type Request struct {
	Method domain.PaymentMethod
	Event  *domain.PaymentEvent
}

// Response модель ответа
type Response struct {
	Outcome       Outcome
	PaymentID     int64
	AppointmentID int64
}
