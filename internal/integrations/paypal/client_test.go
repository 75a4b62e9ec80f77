package paypal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	"github.com/m04kA/SMC-ConsultationService/pkg/logger"
)

type fakePayPal struct {
	tokenCalls   atomic.Int32
	lastOrder    createOrderRequest
	lastReqID    string
	capturedPath string
}

func (f *fakePayPal) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/v1/oauth2/token":
			user, pass, ok := r.BasicAuth()
			if !ok || user != "client-id" || pass != "client-secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			f.tokenCalls.Add(1)
			_, _ = w.Write([]byte(`{"access_token":"A21","token_type":"Bearer","expires_in":32400}`))

		case r.URL.Path == "/v2/checkout/orders":
			assert.Equal(t, "Bearer A21", r.Header.Get("Authorization"))
			f.lastReqID = r.Header.Get("PayPal-Request-Id")
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastOrder))
			if f.lastOrder.PurchaseUnits[0].Amount.Value == "0.00" {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte(`{"name":"UNPROCESSABLE_ENTITY","message":"amount invalid"}`))
				return
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"ORDER-1","status":"CREATED","links":[{"href":"https://api.sandbox.paypal.com/v2/checkout/orders/ORDER-1","rel":"self"},{"href":"https://www.sandbox.paypal.com/checkoutnow?token=ORDER-1","rel":"approve"}]}`))

		case r.URL.Path == "/v2/checkout/orders/ORDER-1/capture":
			f.capturedPath = r.URL.Path
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"ORDER-1","status":"COMPLETED"}`))

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestClient(t *testing.T) (*Client, *fakePayPal) {
	t.Helper()
	fake := &fakePayPal{}
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	client := NewClient(Config{
		BaseURL:      server.URL + "/",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		WebhookToken: "hook-token",
		Timeout:      time.Second,
	}, logger.NewNop())
	return client, fake
}

func TestCharge_CreatesOrder(t *testing.T) {
	client, fake := newTestClient(t)
	ctx := context.Background()

	result, err := client.Charge(ctx, domain.ChargeRequest{
		PaymentID:      5,
		AppointmentID:  9,
		Amount:         45.5,
		Currency:       "eur",
		Description:    "Первичная консультация",
		IdempotencyKey: "payment-5",
	})
	require.NoError(t, err)
	assert.Equal(t, "ORDER-1", result.ExternalRef)
	assert.Equal(t, "https://www.sandbox.paypal.com/checkoutnow?token=ORDER-1", result.ApprovalURL)

	assert.Equal(t, "payment-5", fake.lastReqID)
	assert.Equal(t, intentCapture, fake.lastOrder.Intent)
	require.Len(t, fake.lastOrder.PurchaseUnits, 1)
	unit := fake.lastOrder.PurchaseUnits[0]
	assert.Equal(t, "payment-5", unit.CustomID)
	assert.Equal(t, "EUR", unit.Amount.CurrencyCode)
	assert.Equal(t, "45.50", unit.Amount.Value)

	// токен кэшируется между запросами
	_, err = client.Charge(ctx, domain.ChargeRequest{PaymentID: 6, AppointmentID: 9, Amount: 10, Currency: "EUR"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), fake.tokenCalls.Load())
}

func TestCharge_Rejected(t *testing.T) {
	client, _ := newTestClient(t)

	_, err := client.Charge(context.Background(), domain.ChargeRequest{PaymentID: 1, Amount: 0, Currency: "EUR"})
	assert.ErrorIs(t, err, ErrPaymentRejected)
}

func TestCharge_AuthFailed(t *testing.T) {
	fake := &fakePayPal{}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, ClientID: "wrong", ClientSecret: "x", Timeout: time.Second}, logger.NewNop())
	_, err := client.Charge(context.Background(), domain.ChargeRequest{PaymentID: 1, Amount: 10, Currency: "EUR"})
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestCapture(t *testing.T) {
	client, fake := newTestClient(t)

	require.NoError(t, client.Capture(context.Background(), "ORDER-1"))
	assert.Equal(t, "/v2/checkout/orders/ORDER-1/capture", fake.capturedPath)

	err := client.Capture(context.Background(), "ORDER-404")
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestParseWebhook(t *testing.T) {
	client, _ := newTestClient(t)

	t.Run("capture completed", func(t *testing.T) {
		payload := []byte(`{"id":"WH-1","event_type":"PAYMENT.CAPTURE.COMPLETED","create_time":"2024-06-01T08:10:00Z",
			"resource":{"id":"CAP-1","status":"COMPLETED","supplementary_data":{"related_ids":{"order_id":"ORDER-1"}}}}`)

		event, err := client.ParseWebhook(payload, "hook-token")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentEventSucceeded, event.Kind)
		assert.Equal(t, "ORDER-1", event.ExternalRef)
		assert.Equal(t, "WH-1", event.ID)
		assert.True(t, event.OccurredAt.Equal(time.Date(2024, 6, 1, 8, 10, 0, 0, time.UTC)))
	})

	t.Run("capture denied", func(t *testing.T) {
		payload := []byte(`{"id":"WH-2","event_type":"PAYMENT.CAPTURE.DENIED","create_time":"2024-06-01T08:10:00Z",
			"resource":{"id":"CAP-2","status":"DECLINED","status_details":{"reason":"INSTRUMENT_DECLINED"},"supplementary_data":{"related_ids":{"order_id":"ORDER-2"}}}}`)

		event, err := client.ParseWebhook(payload, "hook-token")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentEventFailed, event.Kind)
		assert.Equal(t, "ORDER-2", event.ExternalRef)
		assert.Equal(t, "INSTRUMENT_DECLINED", event.FailureReason)
	})

	t.Run("order approved", func(t *testing.T) {
		payload := []byte(`{"id":"WH-3","event_type":"CHECKOUT.ORDER.APPROVED","resource":{"id":"ORDER-3","status":"APPROVED"}}`)

		event, err := client.ParseWebhook(payload, "hook-token")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentEventApproved, event.Kind)
		assert.Equal(t, "ORDER-3", event.ExternalRef)
	})

	t.Run("unknown event ignored", func(t *testing.T) {
		payload := []byte(`{"id":"WH-4","event_type":"BILLING.PLAN.CREATED","resource":{}}`)

		event, err := client.ParseWebhook(payload, "hook-token")
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentEventIgnored, event.Kind)
	})

	t.Run("wrong token", func(t *testing.T) {
		_, err := client.ParseWebhook([]byte(`{}`), "other")
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := client.ParseWebhook([]byte(`not json`), "hook-token")
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})
}
