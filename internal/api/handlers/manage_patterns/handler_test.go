package manage_patterns

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

type fakeCalendar struct {
	created     *domain.RecurringPattern
	createErr   error
	patterns    []*domain.RecurringPattern
	deactivated []int64
	update      *domain.PatternUpdate
	updateErr   error
}

func (c *fakeCalendar) UpdatePattern(_ context.Context, patternID int64, update domain.PatternUpdate) (*domain.RecurringPattern, error) {
	if patternID != 5 {
		return nil, calendar.ErrPatternNotFound
	}
	if c.updateErr != nil {
		return nil, c.updateErr
	}
	c.update = &update
	p := domain.RecurringPattern{
		ID:                  5,
		ProviderID:          7,
		Weekday:             time.Monday,
		StartTimeOfDay:      "09:00",
		EndTimeOfDay:        "17:00",
		SlotDurationMinutes: 60,
		EffectiveFrom:       time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		IsActive:            true,
	}
	updated := p.Apply(update)
	return &updated, nil
}

func (c *fakeCalendar) CreatePattern(_ context.Context, p *domain.RecurringPattern) (*domain.RecurringPattern, error) {
	if c.createErr != nil {
		return nil, c.createErr
	}
	c.created = p
	saved := *p
	saved.ID = 5
	saved.IsActive = true
	return &saved, nil
}

func (c *fakeCalendar) ListPatterns(_ context.Context, providerID int64) ([]*domain.RecurringPattern, error) {
	return c.patterns, nil
}

func (c *fakeCalendar) DeactivatePattern(_ context.Context, patternID int64) error {
	if patternID != 5 {
		return calendar.ErrPatternNotFound
	}
	c.deactivated = append(c.deactivated, patternID)
	return nil
}

func TestCreate_SundayPattern(t *testing.T) {
	cal := &fakeCalendar{}
	h := NewHandler(cal, time.UTC, logger.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/patterns", strings.NewReader(
		`{"providerId":7,"dayOfWeek":7,"startTime":"09:00","endTime":"12:00","slotDurationMinutes":30,"validFrom":"2024-06-01","validUntil":"2024-12-31"}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, cal.created)
	assert.Equal(t, time.Sunday, cal.created.Weekday)
	assert.Equal(t, "09:00", cal.created.StartTimeOfDay.String())
	require.NotNil(t, cal.created.EffectiveUntil)

	var resp PatternResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(5), resp.ID)
	assert.Equal(t, 7, resp.DayOfWeek)
	assert.Equal(t, "2024-06-01", resp.ValidFrom)
	assert.Equal(t, "2024-12-31", *resp.ValidUntil)
	assert.True(t, resp.IsActive)
}

func TestCreate_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
	}{
		{name: "day out of range", body: `{"providerId":7,"dayOfWeek":8,"startTime":"09:00","endTime":"12:00","slotDurationMinutes":30,"validFrom":"2024-06-01"}`},
		{name: "bad time", body: `{"providerId":7,"dayOfWeek":1,"startTime":"9am","endTime":"12:00","slotDurationMinutes":30,"validFrom":"2024-06-01"}`},
		{name: "bad date", body: `{"providerId":7,"dayOfWeek":1,"startTime":"09:00","endTime":"12:00","slotDurationMinutes":30,"validFrom":"June 1"}`},
		{name: "rejected by calendar", body: `{"providerId":7,"dayOfWeek":1,"startTime":"12:00","endTime":"09:00","slotDurationMinutes":30,"validFrom":"2024-06-01"}`,
			err: fmt.Errorf("%w: end before start", calendar.ErrInvalidTimeRange)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&fakeCalendar{createErr: tt.err}, time.UTC, logger.NewNop())
			rec := httptest.NewRecorder()
			h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/patterns", strings.NewReader(tt.body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestList(t *testing.T) {
	cal := &fakeCalendar{patterns: []*domain.RecurringPattern{{
		ID:                  5,
		ProviderID:          7,
		Weekday:             time.Monday,
		StartTimeOfDay:      "09:00",
		EndTimeOfDay:        "17:00",
		SlotDurationMinutes: 60,
		EffectiveFrom:       time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		IsActive:            true,
	}}}
	h := NewHandler(cal, time.UTC, logger.NewNop())

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/patterns?providerId=7", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []PatternResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.Equal(t, 1, resp[0].DayOfWeek)
	assert.Nil(t, resp[0].ValidUntil)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/patterns", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDelete(t *testing.T) {
	cal := &fakeCalendar{}
	h := NewHandler(cal, time.UTC, logger.NewNop())

	del := func(id string) int {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/patterns/"+id, nil)
		req = mux.SetURLVars(req, map[string]string{"patternId": id})
		rec := httptest.NewRecorder()
		h.Delete(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, del("5"))
	assert.Equal(t, []int64{5}, cal.deactivated)
	assert.Equal(t, http.StatusNotFound, del("6"))
	assert.Equal(t, http.StatusBadRequest, del("0"))
}

func TestUpdate(t *testing.T) {
	cal := &fakeCalendar{}
	h := NewHandler(cal, time.UTC, logger.NewNop())

	put := func(h *Handler, id, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/patterns/"+id, strings.NewReader(body))
		req = mux.SetURLVars(req, map[string]string{"patternId": id})
		rec := httptest.NewRecorder()
		h.Update(rec, req)
		return rec
	}

	rec := put(h, "5", `{"endTime":"12:00","validUntil":"2024-12-31","isActive":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, cal.update)
	require.NotNil(t, cal.update.EndTimeOfDay)
	assert.Equal(t, "12:00", cal.update.EndTimeOfDay.String())
	assert.Nil(t, cal.update.StartTimeOfDay)
	assert.Nil(t, cal.update.SlotDurationMinutes)

	var resp PatternResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "12:00", resp.EndTime)
	assert.Equal(t, "2024-12-31", *resp.ValidUntil)
	assert.False(t, resp.IsActive)

	assert.Equal(t, http.StatusNotFound, put(h, "6", `{"endTime":"12:00"}`).Code)
	assert.Equal(t, http.StatusBadRequest, put(h, "5", `{"endTime":"noon"}`).Code)
	assert.Equal(t, http.StatusBadRequest, put(h, "5", `{"slotDurationMinutes":1}`).Code)

	rejecting := NewHandler(&fakeCalendar{updateErr: fmt.Errorf("%w: duration exceeds window", calendar.ErrInvalidInput)}, time.UTC, logger.NewNop())
	assert.Equal(t, http.StatusBadRequest, put(rejecting, "5", `{"slotDurationMinutes":480}`).Code)
}
