package manage_blocked_periods

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/api/handlers"
	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	"github.com/m04kA/SMC-ConsultationService/internal/service/calendar"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgValidationFailed   = "некорректные данные периода блокировки"
	msgInvalidProviderID  = "некорректный ID специалиста"
	msgInvalidPeriodID    = "некорректный ID периода блокировки"
	msgInvalidDateFormat  = "некорректный формат даты, ожидается YYYY-MM-DD"
	msgNotFound           = "период блокировки не найден"
)

type Handler struct {
	service  CalendarService
	location *time.Location
	logger   Logger
}

func NewHandler(service CalendarService, location *time.Location, logger Logger) *Handler {
	if location == nil {
		location = time.UTC
	}
	return &Handler{
		service:  service,
		location: location,
		logger:   logger,
	}
}

// Create POST /api/v1/admin/blocked-periods
// Свободные слоты внутри периода удаляются
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBlockedPeriodRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /admin/blocked-periods - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}
	if err := handlers.Validate(&req); err != nil {
		h.logger.Warn("POST /admin/blocked-periods - Validation failed: %v", err)
		handlers.RespondBadRequest(w, msgValidationFailed+": "+err.Error())
		return
	}

	period, err := req.ToDomain()
	if err != nil {
		h.logger.Warn("POST /admin/blocked-periods - Failed to parse request: %v", err)
		handlers.RespondBadRequest(w, msgValidationFailed+": "+err.Error())
		return
	}

	created, removed, err := h.service.CreateBlockedPeriod(r.Context(), period)
	if err != nil {
		if errors.Is(err, calendar.ErrInvalidInput) || errors.Is(err, calendar.ErrInvalidTimeRange) {
			h.logger.Warn("POST /admin/blocked-periods - Invalid period: %v", err)
			handlers.RespondBadRequest(w, msgValidationFailed)
			return
		}
		h.logger.Error("POST /admin/blocked-periods - Failed to create period: provider_id=%d, error=%v", req.ProviderID, err)
		handlers.RespondInternalError(w)
		return
	}

	response := FromDomainBlockedPeriod(created, h.location)
	response.RemovedSlots = &removed

	h.logger.Info("POST /admin/blocked-periods - Period created: period_id=%d, provider_id=%d, removed_slots=%d",
		created.ID, created.ProviderID, removed)
	handlers.RespondJSON(w, http.StatusCreated, response)
}

// List GET /api/v1/admin/blocked-periods?providerId&from&to
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	providerID, err := strconv.ParseInt(query.Get("providerId"), 10, 64)
	if err != nil || providerID <= 0 {
		h.logger.Warn("GET /admin/blocked-periods - Invalid provider ID: %s", query.Get("providerId"))
		handlers.RespondBadRequest(w, msgInvalidProviderID)
		return
	}

	var window *domain.Interval
	if query.Get("from") != "" || query.Get("to") != "" {
		from, errFrom := time.ParseInLocation(domain.DateFormat, query.Get("from"), h.location)
		to, errTo := time.ParseInLocation(domain.DateFormat, query.Get("to"), h.location)
		if errFrom != nil || errTo != nil {
			h.logger.Warn("GET /admin/blocked-periods - Invalid dates: from=%s, to=%s", query.Get("from"), query.Get("to"))
			handlers.RespondBadRequest(w, msgInvalidDateFormat)
			return
		}
		window = &domain.Interval{Start: from, End: to.AddDate(0, 0, 1)}
	}

	periods, err := h.service.ListBlockedPeriods(r.Context(), providerID, window)
	if err != nil {
		h.logger.Error("GET /admin/blocked-periods - Failed to list periods: provider_id=%d, error=%v", providerID, err)
		handlers.RespondInternalError(w)
		return
	}

	response := make([]BlockedPeriodResponse, len(periods))
	for i, p := range periods {
		response[i] = FromDomainBlockedPeriod(p, h.location)
	}

	h.logger.Info("GET /admin/blocked-periods - Periods retrieved: provider_id=%d, count=%d", providerID, len(periods))
	handlers.RespondJSON(w, http.StatusOK, response)
}

// Update PUT /api/v1/admin/blocked-periods/{blockedId}
// Свободные слоты внутри нового окна удаляются
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	periodID, err := handlers.PathInt64(r, "blockedId")
	if err != nil {
		h.logger.Warn("PUT /admin/blocked-periods/{id} - Invalid period ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidPeriodID)
		return
	}

	var req UpdateBlockedPeriodRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PUT /admin/blocked-periods/{id} - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}
	if err := handlers.Validate(&req); err != nil {
		h.logger.Warn("PUT /admin/blocked-periods/{id} - Validation failed: %v", err)
		handlers.RespondBadRequest(w, msgValidationFailed+": "+err.Error())
		return
	}

	update, err := req.ToDomain()
	if err != nil {
		h.logger.Warn("PUT /admin/blocked-periods/{id} - Failed to parse request: %v", err)
		handlers.RespondBadRequest(w, msgValidationFailed+": "+err.Error())
		return
	}

	updated, removed, err := h.service.UpdateBlockedPeriod(r.Context(), periodID, update)
	if err != nil {
		switch {
		case errors.Is(err, calendar.ErrBlockedPeriodNotFound):
			h.logger.Warn("PUT /admin/blocked-periods/{id} - Period not found: period_id=%d", periodID)
			handlers.RespondNotFound(w, msgNotFound)
		case errors.Is(err, calendar.ErrInvalidInput), errors.Is(err, calendar.ErrInvalidTimeRange):
			h.logger.Warn("PUT /admin/blocked-periods/{id} - Invalid period: %v", err)
			handlers.RespondBadRequest(w, msgValidationFailed)
		default:
			h.logger.Error("PUT /admin/blocked-periods/{id} - Failed to update period: period_id=%d, error=%v", periodID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	response := FromDomainBlockedPeriod(updated, h.location)
	response.RemovedSlots = &removed

	h.logger.Info("PUT /admin/blocked-periods/{id} - Period updated: period_id=%d, removed_slots=%d", periodID, removed)
	handlers.RespondJSON(w, http.StatusOK, response)
}

// Delete DELETE /api/v1/admin/blocked-periods/{blockedId}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	periodID, err := handlers.PathInt64(r, "blockedId")
	if err != nil {
		h.logger.Warn("DELETE /admin/blocked-periods/{id} - Invalid period ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidPeriodID)
		return
	}

	if err := h.service.DeleteBlockedPeriod(r.Context(), periodID); err != nil {
		if errors.Is(err, calendar.ErrBlockedPeriodNotFound) {
			h.logger.Warn("DELETE /admin/blocked-periods/{id} - Period not found: period_id=%d", periodID)
			handlers.RespondNotFound(w, msgNotFound)
			return
		}
		h.logger.Error("DELETE /admin/blocked-periods/{id} - Failed to delete period: period_id=%d, error=%v", periodID, err)
		handlers.RespondInternalError(w)
		return
	}

	h.logger.Info("DELETE /admin/blocked-periods/{id} - Period deleted: period_id=%d", periodID)
	w.WriteHeader(http.StatusNoContent)
}
