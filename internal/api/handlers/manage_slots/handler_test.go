package manage_slots

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	"github.com/m04kA/SMC-ConsultationService/internal/service/calendar"
	"github.com/m04kA/SMC-ConsultationService/pkg/logger"
)

// fakeCalendar: slot 1 is free, slot 2 is booked, anything else is missing
type fakeCalendar struct {
	windows   []domain.Interval
	listRange domain.Interval
	generated domain.Interval
	deleted   []int64
}

func (c *fakeCalendar) CreateSlots(_ context.Context, providerID int64, windows []domain.Interval) ([]*domain.TimeSlot, error) {
	c.windows = windows
	result := make([]*domain.TimeSlot, 0, len(windows))
	for i, w := range windows {
		if !w.IsValid() {
			return nil, calendar.ErrInvalidTimeRange
		}
		result = append(result, &domain.TimeSlot{ID: int64(i + 1), ProviderID: providerID, StartTime: w.Start, EndTime: w.End})
	}
	return result, nil
}

func (c *fakeCalendar) ListSlots(_ context.Context, providerID int64, from, to time.Time) ([]*domain.TimeSlot, error) {
	c.listRange = domain.Interval{Start: from, End: to}
	return []*domain.TimeSlot{}, nil
}

func (c *fakeCalendar) GenerateFromPatterns(_ context.Context, providerID int64, from, to time.Time) (int, error) {
	c.generated = domain.Interval{Start: from, End: to}
	return 4, nil
}

func (c *fakeCalendar) UpdateSlot(_ context.Context, slotID int64, window domain.Interval) (*domain.TimeSlot, error) {
	switch slotID {
	case 1:
		return &domain.TimeSlot{ID: 1, ProviderID: 7, StartTime: window.Start, EndTime: window.End}, nil
	case 2:
		return nil, calendar.ErrSlotBooked
	}
	return nil, calendar.ErrSlotNotFound
}

func (c *fakeCalendar) DeleteSlot(_ context.Context, slotID int64) error {
	switch slotID {
	case 1:
		c.deleted = append(c.deleted, slotID)
		return nil
	case 2:
		return calendar.ErrSlotBooked
	}
	return calendar.ErrSlotNotFound
}

func withSlotID(req *http.Request, id string) *http.Request {
	return mux.SetURLVars(req, map[string]string{"slotId": id})
}

func TestCreate(t *testing.T) {
	cal := &fakeCalendar{}
	h := NewHandler(cal, time.UTC, logger.NewNop())

	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/slots", strings.NewReader(
		`{"providerId":7,"slots":[{"startTime":"2024-06-03T09:00:00Z","endTime":"2024-06-03T09:30:00Z"}]}`)))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, cal.windows, 1)
	var resp []SlotResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "2024-06-03T09:00:00Z", resp[0].StartTime)

	tests := []struct {
		name string
		body string
	}{
		{name: "no slots", body: `{"providerId":7,"slots":[]}`},
		{name: "bad time", body: `{"providerId":7,"slots":[{"startTime":"03.06.2024 09:00","endTime":"2024-06-03T09:30:00Z"}]}`},
		{name: "reversed", body: `{"providerId":7,"slots":[{"startTime":"2024-06-03T10:00:00Z","endTime":"2024-06-03T09:30:00Z"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/slots", strings.NewReader(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestListAndGenerate_InclusiveEndDate(t *testing.T) {
	cal := &fakeCalendar{}
	h := NewHandler(cal, time.UTC, logger.NewNop())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/slots?providerId=7&from=2024-06-01&to=2024-06-07", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, cal.listRange.End.Equal(time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)))
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/slots?providerId=x&from=2024-06-01&to=2024-06-07", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.Generate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/slots/generate", strings.NewReader(
		`{"providerId":7,"startDate":"2024-06-01","endDate":"2024-06-30"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, cal.generated.End.Equal(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)))
	assert.JSONEq(t, `{"providerId":7,"created":4}`, rec.Body.String())
}

func TestUpdate(t *testing.T) {
	h := NewHandler(&fakeCalendar{}, time.UTC, logger.NewNop())
	body := `{"startTime":"2024-06-03T11:00:00Z","endTime":"2024-06-03T11:30:00Z"}`

	tests := []struct {
		id     string
		body   string
		status int
	}{
		{id: "1", body: body, status: http.StatusOK},
		{id: "2", body: body, status: http.StatusConflict},
		{id: "9", body: body, status: http.StatusNotFound},
		{id: "abc", body: body, status: http.StatusBadRequest},
		{id: "1", body: `{"startTime":"11:00"}`, status: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s_%d", tt.id, tt.status), func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Update(rec, withSlotID(httptest.NewRequest(http.MethodPut, "/api/v1/admin/slots/"+tt.id, strings.NewReader(tt.body)), tt.id))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestDelete(t *testing.T) {
	cal := &fakeCalendar{}
	h := NewHandler(cal, time.UTC, logger.NewNop())

	del := func(id string) int {
		rec := httptest.NewRecorder()
		h.Delete(rec, withSlotID(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/slots/"+id, nil), id))
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, del("1"))
	assert.Equal(t, http.StatusConflict, del("2"))
	assert.Equal(t, http.StatusNotFound, del("9"))
	assert.Equal(t, []int64{1}, cal.deleted)
}
