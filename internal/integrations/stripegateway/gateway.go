package stripegateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Config настройки Stripe
type Config struct {
	SecretKey        string
	WebhookSecret    string
	WebhookTolerance time.Duration
}

// Gateway платежи через Stripe PaymentIntents
type Gateway struct {
	api              *client.API
	webhookSecret    string
	webhookTolerance time.Duration
	log              Logger
}

// NewGateway создает клиент Stripe
// backends позволяет направить запросы на другой адрес; nil - стандартные адреса Stripe
func NewGateway(cfg Config, backends *stripe.Backends, log Logger) *Gateway {
	if cfg.WebhookTolerance <= 0 {
		cfg.WebhookTolerance = webhook.DefaultTolerance
	}
	return &Gateway{
		api:              client.New(cfg.SecretKey, backends),
		webhookSecret:    cfg.WebhookSecret,
		webhookTolerance: cfg.WebhookTolerance,
		log:              log,
	}
}

// Charge создает PaymentIntent; клиент подтверждает его по ClientSecret
func (g *Gateway) Charge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(toMinorUnits(req.Amount)),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Description: stripe.String(req.Description),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.AddMetadata("payment_id", strconv.FormatInt(req.PaymentID, 10))
	params.AddMetadata("appointment_id", strconv.FormatInt(req.AppointmentID, 10))
	params.AddMetadata("client_id", strconv.FormatInt(req.ClientID, 10))

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			g.log.Warn("Charge: stripe rejected payment id=%d: code=%s, msg=%s", req.PaymentID, stripeErr.Code, stripeErr.Msg)
			return nil, fmt.Errorf("%w: %s", ErrPaymentRejected, stripeErr.Msg)
		}
		g.log.Error("Charge: payment id=%d: %v", req.PaymentID, err)
		return nil, fmt.Errorf("%w: create payment intent: %v", ErrInternal, err)
	}

	g.log.Info("Charge: payment intent %s created for payment id=%d", intent.ID, req.PaymentID)
	return &domain.ChargeResult{
		ExternalRef:  intent.ID,
		ClientSecret: intent.ClientSecret,
	}, nil
}

// ParseWebhook проверяет подпись и разбирает событие PaymentIntent
func (g *Gateway) ParseWebhook(payload []byte, signature string) (*domain.PaymentEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		Tolerance:                g.webhookTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	result := &domain.PaymentEvent{
		ID:         event.ID,
		Kind:       domain.PaymentEventIgnored,
		OccurredAt: time.Unix(event.Created, 0).UTC(),
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentPaymentFailed:
	default:
		return result, nil
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if intent.ID == "" {
		return nil, fmt.Errorf("%w: payment intent id is empty", ErrInvalidPayload)
	}
	result.ExternalRef = intent.ID

	if event.Type == stripe.EventTypePaymentIntentSucceeded {
		result.Kind = domain.PaymentEventSucceeded
		if intent.LatestCharge != nil && intent.LatestCharge.ReceiptURL != "" {
			receipt := intent.LatestCharge.ReceiptURL
			result.ReceiptURL = &receipt
		}
		return result, nil
	}

	result.Kind = domain.PaymentEventFailed
	result.FailureReason = "payment failed"
	if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
		result.FailureReason = intent.LastPaymentError.Msg
	}
	return result, nil
}

// toMinorUnits переводит сумму в минимальные единицы валюты
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
