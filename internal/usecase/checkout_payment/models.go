package checkout_payment

import "github.com/m04kA/SMC-ConsultationService/internal/domain"

// Pricing цены консультаций
type Pricing struct {
	Currency string
	Prices   map[domain.AppointmentType]float64
}

// Request модель запроса на оплату записи
type Request struct {
	AppointmentID int64
	Actor         domain.Actor
	Method        domain.PaymentMethod
}

// Response модель ответа с данными для завершения оплаты на клиенте
type Response struct {
	PaymentID     int64
	AppointmentID int64
	Amount        float64
	Currency      string
	Method        string
	Status        string
	ExternalRef   string
	ClientSecret  string // для Stripe
	ApprovalURL   string // для PayPal
}
