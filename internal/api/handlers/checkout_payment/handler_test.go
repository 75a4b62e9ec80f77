package checkout_payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ConsultationService/internal/api/middleware"
	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	checkoutPayment "github.com/m04kA/SMC-ConsultationService/internal/usecase/checkout_payment"
	"github.com/m04kA/SMC-ConsultationService/pkg/logger"
)

type fakeUseCase struct {
	err  error
	last *checkoutPayment.Request
}

func (u *fakeUseCase) Execute(_ context.Context, req *checkoutPayment.Request) (*checkoutPayment.Response, error) {
	u.last = req
	if u.err != nil {
		return nil, u.err
	}
	return &checkoutPayment.Response{
		PaymentID:     3,
		AppointmentID: req.AppointmentID,
		Amount:        150,
		Currency:      "USD",
		Method:        string(req.Method),
		Status:        string(domain.PaymentPending),
		ExternalRef:   "pi_3",
		ClientSecret:  "pi_3_secret",
	}, nil
}

func doCheckout(h *Handler, id string, actor *domain.Actor, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/"+id+"/payments", strings.NewReader(body))
	req = mux.SetURLVars(req, map[string]string{"appointmentId": id})
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestHandle_StartsPayment(t *testing.T) {
	uc := &fakeUseCase{}
	h := NewHandler(uc, logger.NewNop())

	rec := doCheckout(h, "10", &domain.Actor{UserID: 42}, `{"method":"stripe"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp CheckoutResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(3), resp.PaymentID)
	assert.Equal(t, "pi_3_secret", resp.ClientSecret)
	assert.Empty(t, resp.ApprovalURL)
	assert.Equal(t, int64(10), uc.last.AppointmentID)
	assert.Equal(t, domain.MethodStripe, uc.last.Method)
	assert.Equal(t, int64(42), uc.last.Actor.UserID)
}

func TestHandle_ErrorMapping(t *testing.T) {
	client := &domain.Actor{UserID: 42}
	body := `{"method":"paypal"}`

	tests := []struct {
		name   string
		id     string
		actor  *domain.Actor
		body   string
		err    error
		status int
	}{
		{name: "bad id", id: "abc", actor: client, body: body, status: http.StatusBadRequest},
		{name: "no actor", id: "10", body: body, status: http.StatusUnauthorized},
		{name: "unknown method", id: "10", actor: client, body: `{"method":"cash"}`, status: http.StatusBadRequest},
		{name: "empty body", id: "10", actor: client, body: ``, status: http.StatusBadRequest},
		{name: "not found", id: "10", actor: client, body: body, err: checkoutPayment.ErrAppointmentNotFound, status: http.StatusNotFound},
		{name: "foreign appointment", id: "10", actor: client, body: body, err: checkoutPayment.ErrAccessDenied, status: http.StatusForbidden},
		{name: "already paid", id: "10", actor: client, body: body, err: checkoutPayment.ErrAlreadyPaid, status: http.StatusConflict},
		{name: "booking expired", id: "10", actor: client, body: body, err: checkoutPayment.ErrBookingExpired, status: http.StatusGone},
		{name: "retry limit", id: "10", actor: client, body: body, err: checkoutPayment.ErrRetryLimitExceeded, status: http.StatusTooManyRequests},
		{name: "method not connected", id: "10", actor: client, body: body, err: checkoutPayment.ErrUnsupportedMethod, status: http.StatusBadRequest},
		{name: "gateway failed", id: "10", actor: client, body: body, err: checkoutPayment.ErrGatewayFailed, status: http.StatusBadGateway},
		{name: "no price", id: "10", actor: client, body: body, err: checkoutPayment.ErrPriceNotConfigured, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&fakeUseCase{err: tt.err}, logger.NewNop())
			rec := doCheckout(h, tt.id, tt.actor, tt.body)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
