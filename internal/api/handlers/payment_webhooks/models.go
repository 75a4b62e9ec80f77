package payment_webhooks

// WebhookResponse HTTP response model
type WebhookResponse struct {
	Received bool   `json:"received"`
	Outcome  string `json:"outcome"`
}
