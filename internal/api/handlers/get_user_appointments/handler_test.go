package get_user_appointments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ConsultationService/internal/api/middleware"
	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	"github.com/m04kA/SMC-ConsultationService/internal/service/bookings"
	"github.com/m04kA/SMC-ConsultationService/internal/service/bookings/models"
	"github.com/m04kA/SMC-ConsultationService/pkg/logger"
)

type fakeService struct {
	err  error
	last *models.GetClientAppointmentsRequest
}

func (s *fakeService) ListByClient(_ context.Context, req *models.GetClientAppointmentsRequest) (*models.AppointmentListResponse, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.AppointmentListResponse{Appointments: []models.AppointmentResponse{
		{ID: 1, ClientID: req.ClientID, Status: "confirmed"},
		{ID: 2, ClientID: req.ClientID, Status: "pending_payment"},
	}}, nil
}

func doList(h *Handler, path, userID string, actor *domain.Actor) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = mux.SetURLVars(req, map[string]string{"userId": userID})
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestHandle(t *testing.T) {
	svc := &fakeService{}
	h := NewHandler(svc, logger.NewNop())

	rec := doList(h, "/api/v1/users/42/appointments?status=confirmed", "42", &domain.Actor{UserID: 42})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []models.AppointmentResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp, 2)
	assert.Equal(t, int64(42), svc.last.ClientID)
	require.NotNil(t, svc.last.Status)
	assert.Equal(t, "confirmed", *svc.last.Status)

	rec = doList(h, "/api/v1/users/42/appointments", "42", &domain.Actor{UserID: 42})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.last.Status)
}

func TestHandle_ErrorMapping(t *testing.T) {
	client := &domain.Actor{UserID: 42}

	tests := []struct {
		name   string
		userID string
		actor  *domain.Actor
		err    error
		status int
	}{
		{name: "bad user id", userID: "abc", actor: client, status: http.StatusBadRequest},
		{name: "no actor", userID: "42", status: http.StatusUnauthorized},
		{name: "foreign client", userID: "7", actor: client, err: bookings.ErrAccessDenied, status: http.StatusForbidden},
		{name: "unknown status", userID: "42", actor: client, err: bookings.ErrInvalidInput, status: http.StatusBadRequest},
		{name: "internal", userID: "42", actor: client, err: bookings.ErrInternal, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&fakeService{err: tt.err}, logger.NewNop())
			rec := doList(h, "/api/v1/users/"+tt.userID+"/appointments", tt.userID, tt.actor)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
