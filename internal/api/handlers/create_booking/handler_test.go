package create_booking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ConsultationService/internal/api/middleware"
	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	createBooking "github.com/m04kA/SMC-ConsultationService/internal/usecase/create_booking"
	"github.com/m04kA/SMC-ConsultationService/pkg/logger"
)

type fakeUseCase struct {
	err  error
	last *createBooking.Request
}

func (u *fakeUseCase) Execute(_ context.Context, req *createBooking.Request) (*createBooking.Response, error) {
	u.last = req
	if u.err != nil {
		return nil, u.err
	}
	start := req.StartTime.On(req.Date, time.UTC)
	return &createBooking.Response{
		ID:              1,
		ClientID:        req.ClientID,
		ProviderID:      req.ProviderID,
		StartTime:       start,
		EndTime:         start.Add(30 * time.Minute),
		DurationMinutes: 30,
		Type:            string(req.Type),
		Status:          string(domain.StatusPendingPayment),
		PaymentDeadline: start.Add(-time.Hour),
	}, nil
}

func doRequest(t *testing.T, h *Handler, actor *domain.Actor, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments", strings.NewReader(body))
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestHandle_Created(t *testing.T) {
	useCase := &fakeUseCase{}
	h := NewHandler(useCase, logger.NewNop())

	rec := doRequest(t, h, &domain.Actor{UserID: 42},
		`{"providerId":7,"date":"2024-06-01","startTime":"10:00","type":"follow_up","notes":"gluten free"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp AppointmentResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(42), resp.ClientID)
	assert.Equal(t, "pending_payment", resp.Status)
	assert.Equal(t, "2024-06-01T10:00:00Z", resp.StartTime)

	require.NotNil(t, useCase.last)
	assert.Equal(t, domain.TypeFollowUp, useCase.last.Type)
	assert.Nil(t, useCase.last.EndTime)
	assert.Equal(t, "gluten free", *useCase.last.Notes)
}

func TestHandle_ClientIDOverride(t *testing.T) {
	body := `{"clientId":99,"providerId":7,"date":"2024-06-01","startTime":"10:00","type":"follow_up"}`

	useCase := &fakeUseCase{}
	h := NewHandler(useCase, logger.NewNop())

	rec := doRequest(t, h, &domain.Actor{UserID: 42}, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Nil(t, useCase.last)

	rec = doRequest(t, h, &domain.Actor{UserID: 1, IsAdmin: true}, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(99), useCase.last.ClientID)
}

func TestHandle_Errors(t *testing.T) {
	valid := `{"providerId":7,"date":"2024-06-01","startTime":"10:00","type":"initial_consultation"}`

	tests := []struct {
		name   string
		actor  *domain.Actor
		body   string
		err    error
		status int
	}{
		{name: "no actor", body: valid, status: http.StatusUnauthorized},
		{name: "malformed json", actor: &domain.Actor{UserID: 42}, body: `{`, status: http.StatusBadRequest},
		{name: "unknown field", actor: &domain.Actor{UserID: 42}, body: `{"providerId":7,"foo":1}`, status: http.StatusBadRequest},
		{name: "unknown type", actor: &domain.Actor{UserID: 42},
			body: `{"providerId":7,"date":"2024-06-01","startTime":"10:00","type":"massage"}`, status: http.StatusBadRequest},
		{name: "bad date", actor: &domain.Actor{UserID: 42},
			body: `{"providerId":7,"date":"01.06.2024","startTime":"10:00","type":"follow_up"}`, status: http.StatusBadRequest},
		{name: "bad time", actor: &domain.Actor{UserID: 42},
			body: `{"providerId":7,"date":"2024-06-01","startTime":"25:00","type":"follow_up"}`, status: http.StatusBadRequest},
		{name: "slot taken", actor: &domain.Actor{UserID: 42}, body: valid, err: createBooking.ErrSlotNotAvailable, status: http.StatusConflict},
		{name: "too late", actor: &domain.Actor{UserID: 42}, body: valid, err: createBooking.ErrTooLateToBook, status: http.StatusBadRequest},
		{name: "internal", actor: &domain.Actor{UserID: 42}, body: valid, err: createBooking.ErrInternal, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&fakeUseCase{err: tt.err}, logger.NewNop())
			rec := doRequest(t, h, tt.actor, tt.body)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
