package list_appointments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ConsultationService/internal/service/bookings"
	"github.com/m04kA/SMC-ConsultationService/internal/service/bookings/models"
	"github.com/m04kA/SMC-ConsultationService/pkg/logger"
)

type fakeService struct {
	err  error
	last *models.ListAppointmentsRequest
}

func (s *fakeService) ListAll(_ context.Context, req *models.ListAppointmentsRequest) (*models.AppointmentListResponse, error) {
	s.last = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.AppointmentListResponse{Appointments: []models.AppointmentResponse{{ID: 1, Status: "confirmed"}}}, nil
}

func TestHandle_Filters(t *testing.T) {
	loc := time.FixedZone("MSK", 3*60*60)
	svc := &fakeService{}
	h := NewHandler(svc, loc, logger.NewNop())

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet,
		"/api/v1/admin/appointments?providerId=7&clientId=42&status=confirmed&from=2024-06-01&to=2024-06-07", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp models.AppointmentListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Appointments, 1)
	require.NotNil(t, svc.last.ProviderID)
	assert.Equal(t, int64(7), *svc.last.ProviderID)
	require.NotNil(t, svc.last.ClientID)
	assert.Equal(t, int64(42), *svc.last.ClientID)
	require.NotNil(t, svc.last.From)
	assert.True(t, svc.last.From.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, loc)))
	require.NotNil(t, svc.last.To)
	assert.True(t, svc.last.To.Equal(time.Date(2024, 6, 8, 0, 0, 0, 0, loc)))

	rec = httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/appointments?to=2024-06-07T12:00:00Z", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.last.To.Equal(time.Date(2024, 6, 7, 12, 0, 0, 0, time.UTC)))
	assert.Nil(t, svc.last.ProviderID)
}

func TestHandle_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		err    error
		status int
	}{
		{name: "bad provider", query: "providerId=x", status: http.StatusBadRequest},
		{name: "bad date", query: "from=01.06.2024", status: http.StatusBadRequest},
		{name: "unknown status", query: "status=lost", err: bookings.ErrInvalidInput, status: http.StatusBadRequest},
		{name: "internal", query: "", err: bookings.ErrInternal, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&fakeService{err: tt.err}, time.UTC, logger.NewNop())
			rec := httptest.NewRecorder()
			h.Handle(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/appointments?"+tt.query, nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
