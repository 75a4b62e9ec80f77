package checkout_payment

import (
	checkoutPayment "github.com/m04kA/SMC-ConsultationService/internal/usecase/checkout_payment"
)

// CheckoutRequest HTTP request model
type CheckoutRequest struct {
	Method string `json:"method" validate:"required,oneof=stripe paypal"`
}

// CheckoutResponse HTTP response model
type CheckoutResponse struct {
	PaymentID     int64   `json:"paymentId"`
	AppointmentID int64   `json:"appointmentId"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Method        string  `json:"method"`
	Status        string  `json:"status"`
	ExternalRef   string  `json:"externalRef"`
	ClientSecret  string  `json:"clientSecret,omitempty"`
	ApprovalURL   string  `json:"approvalUrl,omitempty"`
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *checkoutPayment.Response) *CheckoutResponse {
	return &CheckoutResponse{
		PaymentID:     resp.PaymentID,
		AppointmentID: resp.AppointmentID,
		Amount:        resp.Amount,
		Currency:      resp.Currency,
		Method:        resp.Method,
		Status:        resp.Status,
		ExternalRef:   resp.ExternalRef,
		ClientSecret:  resp.ClientSecret,
		ApprovalURL:   resp.ApprovalURL,
	}
}
