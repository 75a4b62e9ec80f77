package paypal

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

// tokenExpiryMargin запас, с которым токен считается истекшим
const tokenExpiryMargin = time.Minute

// Config настройки PayPal
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	WebhookToken string
	ReturnURL    string
	CancelURL    string
	Timeout      time.Duration
}

// Client платежи через PayPal Orders v2
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient создает новый экземпляр клиента PayPal
func NewClient(cfg Config, log Logger) *Client {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log,
	}
}

// Charge создает заказ PayPal; клиент подтверждает его по ApprovalURL
func (c *Client) Charge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	body := createOrderRequest{
		Intent: intentCapture,
		PurchaseUnits: []purchaseUnit{
			{
				ReferenceID: fmt.Sprintf("appointment-%d", req.AppointmentID),
				CustomID:    fmt.Sprintf("payment-%d", req.PaymentID),
				Description: req.Description,
				Amount: amount{
					CurrencyCode: strings.ToUpper(req.Currency),
					Value:        fmt.Sprintf("%.2f", req.Amount),
				},
			},
		},
	}

	var created order
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", req.IdempotencyKey, body, &created); err != nil {
		c.log.Warn("Charge: failed to create order for payment id=%d: %v", req.PaymentID, err)
		return nil, err
	}
	if created.ID == "" {
		return nil, fmt.Errorf("%w: order id is empty", ErrInvalidResponse)
	}

	result := &domain.ChargeResult{ExternalRef: created.ID}
	for _, l := range created.Links {
		if l.Rel == linkRelApprove || l.Rel == linkRelPayerAction {
			result.ApprovalURL = l.Href
			break
		}
	}

	c.log.Info("Charge: order %s created for payment id=%d", created.ID, req.PaymentID)
	return result, nil
}

// Capture списывает средства по одобренному заказу
// Повторный capture уже оплаченного заказа не считается ошибкой
func (c *Client) Capture(ctx context.Context, orderID string) error {
	path := fmt.Sprintf("/v2/checkout/orders/%s/capture", url.PathEscape(orderID))

	var captured order
	err := c.do(ctx, http.MethodPost, path, "capture-"+orderID, struct{}{}, &captured)
	if err != nil {
		c.log.Warn("Capture: order %s: %v", orderID, err)
		return err
	}

	if captured.Status != orderStatusCompleted {
		c.log.Warn("Capture: order %s status=%s", orderID, captured.Status)
	}
	return nil
}

// VerifyToken сравнивает токен из URL webhook с настроенным
func (c *Client) VerifyToken(token string) bool {
	if c.cfg.WebhookToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(c.cfg.WebhookToken)) == 1
}

// ParseWebhook проверяет токен и разбирает событие PayPal
func (c *Client) ParseWebhook(payload []byte, token string) (*domain.PaymentEvent, error) {
	if !c.VerifyToken(token) {
		return nil, ErrInvalidSignature
	}

	var evt webhookEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if evt.ID == "" || evt.EventType == "" {
		return nil, fmt.Errorf("%w: event id or type is empty", ErrInvalidPayload)
	}

	result := &domain.PaymentEvent{
		ID:   evt.ID,
		Kind: domain.PaymentEventIgnored,
	}
	if occurredAt, err := time.Parse(time.RFC3339, evt.CreateTime); err == nil {
		result.OccurredAt = occurredAt.UTC()
	}

	switch evt.EventType {
	case eventOrderApproved:
		var resource orderResource
		if err := json.Unmarshal(evt.Resource, &resource); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		result.Kind = domain.PaymentEventApproved
		result.ExternalRef = resource.ID

	case eventCaptureComplete, eventCaptureDenied:
		var resource captureResource
		if err := json.Unmarshal(evt.Resource, &resource); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		result.ExternalRef = resource.SupplementaryData.RelatedIDs.OrderID

		if evt.EventType == eventCaptureComplete {
			result.Kind = domain.PaymentEventSucceeded
		} else {
			result.Kind = domain.PaymentEventFailed
			result.FailureReason = "capture denied"
			if resource.StatusDetails.Reason != "" {
				result.FailureReason = resource.StatusDetails.Reason
			}
		}

	default:
		return result, nil
	}

	if result.ExternalRef == "" {
		return nil, fmt.Errorf("%w: order id is empty", ErrInvalidPayload)
	}
	return result, nil
}

// do выполняет авторизованный запрос к PayPal
func (c *Client) do(ctx context.Context, method, path, requestID string, in, out interface{}) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: failed to encode request: %v", ErrInternal, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if requestID != "" {
		req.Header.Set("PayPal-Request-Id", requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		c.resetToken()
		return fmt.Errorf("%w: status %d", ErrAuthFailed, resp.StatusCode)
	case resp.StatusCode == http.StatusUnprocessableEntity:
		var apiErr errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("%w: %s: %s", ErrPaymentRejected, apiErr.Name, apiErr.Message)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}
	return nil
}

// token возвращает закэшированный access token или запрашивает новый
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}
	req.SetBasicAuth(c.cfg.ClientID, c.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrAuthFailed, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("%w: failed to decode token: %v", ErrInvalidResponse, err)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrAuthFailed)
	}

	c.accessToken = tr.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - tokenExpiryMargin)
	return c.accessToken, nil
}

func (c *Client) resetToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.mu.Unlock()
}
