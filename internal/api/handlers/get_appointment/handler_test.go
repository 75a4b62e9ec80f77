package get_appointment

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
	err error
}

func (s *fakeService) GetByID(_ context.Context, id int64, actor domain.Actor) (*models.AppointmentResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.AppointmentResponse{ID: id, ClientID: actor.UserID, Status: "confirmed", IsPaid: true}, nil
}

func doGet(h *Handler, id string, actor *domain.Actor) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/"+id, nil)
	req = mux.SetURLVars(req, map[string]string{"appointmentId": id})
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestHandle(t *testing.T) {
	rec := doGet(NewHandler(&fakeService{}, logger.NewNop()), "15", &domain.Actor{UserID: 42})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.AppointmentResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(15), resp.ID)
	assert.Equal(t, int64(42), resp.ClientID)
	assert.True(t, resp.IsPaid)
}

func TestHandle_ErrorMapping(t *testing.T) {
	client := &domain.Actor{UserID: 42}

	tests := []struct {
		name   string
		id     string
		actor  *domain.Actor
		err    error
		status int
	}{
		{name: "bad id", id: "abc", actor: client, status: http.StatusBadRequest},
		{name: "no actor", id: "1", status: http.StatusUnauthorized},
		{name: "not found", id: "1", actor: client, err: bookings.ErrAppointmentNotFound, status: http.StatusNotFound},
		{name: "foreign appointment", id: "1", actor: client, err: bookings.ErrAccessDenied, status: http.StatusForbidden},
		{name: "internal", id: "1", actor: client, err: bookings.ErrInternal, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(NewHandler(&fakeService{err: tt.err}, logger.NewNop()), tt.id, tt.actor)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
