package domain

import "time"

// PaymentStatus represents the state of a payment record
type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "pending"
	PaymentSucceeded     PaymentStatus = "succeeded"
	PaymentFailed        PaymentStatus = "failed"
	PaymentRefundPending PaymentStatus = "refund_pending"
)

// PaymentMethod is the external processor used for a payment
type PaymentMethod string

const (
	MethodStripe PaymentMethod = "stripe"
	MethodPayPal PaymentMethod = "paypal"
)

// IsValid reports whether the method is supported
func (m PaymentMethod) IsValid() bool {
	return m == MethodStripe || m == MethodPayPal
}

// Payment is a payment attempt or a refund record for an appointment
type Payment struct {
	ID            int64
	AppointmentID int64
	ClientID      int64
	Amount        float64
	Currency      string
	Method        PaymentMethod
	Status        PaymentStatus

	ExternalRef       *string // PaymentIntent ID / PayPal order ID
	ReceiptURL        *string
	ErrorMessage      *string
	RefundOfPaymentID *int64 // set on refund records

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt *time.Time
}

// IsFinal returns true if the payment can no longer change
func (p *Payment) IsFinal() bool {
	return p.Status == PaymentSucceeded || p.Status == PaymentRefundPending
}

// IsRefund returns true for refund records
func (p *Payment) IsRefund() bool {
	return p.RefundOfPaymentID != nil
}

// PaymentUpdate compare-and-swap изменение статуса платежа
type PaymentUpdate struct {
	ID           int64
	From         PaymentStatus
	To           PaymentStatus
	ExternalRef  *string
	ReceiptURL   *string
	ErrorMessage *string
	CompletedAt  *time.Time
}

// PaymentResult данные об успешной оплате, передаваемые при подтверждении записи
type PaymentResult struct {
	PaymentID   int64
	Amount      float64
	Currency    string
	CompletedAt time.Time
}

// ChargeRequest request to start a payment with an external processor
type ChargeRequest struct {
	PaymentID      int64
	AppointmentID  int64
	ClientID       int64
	Amount         float64
	Currency       string
	Description    string
	IdempotencyKey string
}

// ChargeResult is what the processor returned for a started payment
type ChargeResult struct {
	ExternalRef  string // PaymentIntent ID / PayPal order ID
	ClientSecret string // Stripe client secret for confirming on the client
	ApprovalURL  string // PayPal page the client is redirected to
}

// PaymentEventKind is the outcome reported by a processor webhook
type PaymentEventKind string

const (
	PaymentEventSucceeded PaymentEventKind = "succeeded"
	PaymentEventFailed    PaymentEventKind = "failed"
	PaymentEventApproved  PaymentEventKind = "approved" // payer approved, capture required
	PaymentEventIgnored   PaymentEventKind = "ignored"
)

// PaymentEvent is a verified processor notification about a payment
type PaymentEvent struct {
	ID            string // processor event ID
	Kind          PaymentEventKind
	ExternalRef   string // PaymentIntent ID / PayPal order ID
	ReceiptURL    *string
	FailureReason string
	OccurredAt    time.Time
}
