package paypal

import "encoding/json"

const (
	intentCapture = "CAPTURE"

	orderStatusCompleted = "COMPLETED"

	linkRelApprove     = "approve"
	linkRelPayerAction = "payer-action"

	eventOrderApproved   = "CHECKOUT.ORDER.APPROVED"
	eventCaptureComplete = "PAYMENT.CAPTURE.COMPLETED"
	eventCaptureDenied   = "PAYMENT.CAPTURE.DENIED"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	ReferenceID string `json:"reference_id,omitempty"`
	CustomID    string `json:"custom_id,omitempty"`
	Description string `json:"description,omitempty"`
	Amount      amount `json:"amount"`
}

type createOrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

type link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

type order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []link `json:"links"`
}

type errorResponse struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

type webhookEvent struct {
	ID         string          `json:"id"`
	EventType  string          `json:"event_type"`
	CreateTime string          `json:"create_time"`
	Resource   json.RawMessage `json:"resource"`
}

type captureResource struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	SupplementaryData struct {
		RelatedIDs struct {
			OrderID string `json:"order_id"`
		} `json:"related_ids"`
	} `json:"supplementary_data"`
	StatusDetails struct {
		Reason string `json:"reason"`
	} `json:"status_details"`
	Links []link `json:"links"`
}

type orderResource struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
