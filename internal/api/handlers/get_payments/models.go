package get_payments

import (
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	"github.com/m04kA/SMC-ConsultationService/pkg/ptr"
)

// PaymentResponse HTTP response model
type PaymentResponse struct {
	ID                int64   `json:"id"`
	AppointmentID     int64   `json:"appointmentId"`
	Amount            float64 `json:"amount"`
	Currency          string  `json:"currency"`
	Method            string  `json:"method"`
	Status            string  `json:"status"`
	ExternalRef       string  `json:"externalRef,omitempty"`
	ReceiptURL        string  `json:"receiptUrl,omitempty"`
	ErrorMessage      string  `json:"errorMessage,omitempty"`
	RefundOfPaymentID *int64  `json:"refundOfPaymentId,omitempty"`
	CreatedAt         string  `json:"createdAt"`
	CompletedAt       *string `json:"completedAt,omitempty"`
}

// FromDomainPayment конвертирует платеж в HTTP response
func FromDomainPayment(p *domain.Payment) *PaymentResponse {
	resp := &PaymentResponse{
		ID:                p.ID,
		AppointmentID:     p.AppointmentID,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Method:            string(p.Method),
		Status:            string(p.Status),
		ExternalRef:       ptr.Deref(p.ExternalRef),
		ReceiptURL:        ptr.Deref(p.ReceiptURL),
		ErrorMessage:      ptr.Deref(p.ErrorMessage),
		RefundOfPaymentID: p.RefundOfPaymentID,
		CreatedAt:         p.CreatedAt.Format(time.RFC3339),
	}
	if p.CompletedAt != nil {
		resp.CompletedAt = ptr.Ptr(p.CompletedAt.Format(time.RFC3339))
	}
	return resp
}

// FromDomainPaymentList конвертирует список платежей
func FromDomainPaymentList(payments []*domain.Payment) []*PaymentResponse {
	result := make([]*PaymentResponse, 0, len(payments))
	for _, p := range payments {
		result = append(result, FromDomainPayment(p))
	}
	return result
}
