package manage_patterns

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/api/handlers"
	"github.com/m04kA/SMC-ConsultationService/internal/service/calendar"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgValidationFailed   = "некорректные данные шаблона расписания"
	msgInvalidProviderID  = "некорректный ID специалиста"
	msgInvalidPatternID   = "некорректный ID шаблона"
	msgNotFound           = "шаблон расписания не найден"
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

// Create POST /api/v1/admin/patterns
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePatternRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /admin/patterns - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}
	if err := handlers.Validate(&req); err != nil {
		h.logger.Warn("POST /admin/patterns - Validation failed: %v", err)
		handlers.RespondBadRequest(w, msgValidationFailed+": "+err.Error())
		return
	}

	pattern, err := req.ToDomain(h.location)
	if err != nil {
		h.logger.Warn("POST /admin/patterns - Failed to parse request: %v", err)
		handlers.RespondBadRequest(w, msgValidationFailed+": "+err.Error())
		return
	}

	created, err := h.service.CreatePattern(r.Context(), pattern)
	if err != nil {
		if errors.Is(err, calendar.ErrInvalidInput) || errors.Is(err, calendar.ErrInvalidTimeRange) {
			h.logger.Warn("POST /admin/patterns - Invalid pattern: %v", err)
			handlers.RespondBadRequest(w, msgValidationFailed)
			return
		}
		h.logger.Error("POST /admin/patterns - Failed to create pattern: provider_id=%d, error=%v", req.ProviderID, err)
		handlers.RespondInternalError(w)
		return
	}

	h.logger.Info("POST /admin/patterns - Pattern created: pattern_id=%d, provider_id=%d", created.ID, created.ProviderID)
	handlers.RespondJSON(w, http.StatusCreated, FromDomainPattern(created))
}

// List GET /api/v1/admin/patterns?providerId
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	providerID, err := strconv.ParseInt(r.URL.Query().Get("providerId"), 10, 64)
	if err != nil || providerID <= 0 {
		h.logger.Warn("GET /admin/patterns - Invalid provider ID: %s", r.URL.Query().Get("providerId"))
		handlers.RespondBadRequest(w, msgInvalidProviderID)
		return
	}

	patterns, err := h.service.ListPatterns(r.Context(), providerID)
	if err != nil {
		h.logger.Error("GET /admin/patterns - Failed to list patterns: provider_id=%d, error=%v", providerID, err)
		handlers.RespondInternalError(w)
		return
	}

	response := make([]PatternResponse, len(patterns))
	for i, p := range patterns {
		response[i] = FromDomainPattern(p)
	}

	h.logger.Info("GET /admin/patterns - Patterns retrieved: provider_id=%d, count=%d", providerID, len(patterns))
	handlers.RespondJSON(w, http.StatusOK, response)
}

// Update PUT /api/v1/admin/patterns/{patternId}
// Меняются только переданные поля; уже созданные по шаблону слоты не пересоздаются
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	patternID, err := handlers.PathInt64(r, "patternId")
	if err != nil {
		h.logger.Warn("PUT /admin/patterns/{id} - Invalid pattern ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidPatternID)
		return
	}

	var req UpdatePatternRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PUT /admin/patterns/{id} - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}
	if err := handlers.Validate(&req); err != nil {
		h.logger.Warn("PUT /admin/patterns/{id} - Validation failed: %v", err)
		handlers.RespondBadRequest(w, msgValidationFailed+": "+err.Error())
		return
	}

	update, err := req.ToDomain(h.location)
	if err != nil {
		h.logger.Warn("PUT /admin/patterns/{id} - Failed to parse request: %v", err)
		handlers.RespondBadRequest(w, msgValidationFailed+": "+err.Error())
		return
	}

	updated, err := h.service.UpdatePattern(r.Context(), patternID, update)
	if err != nil {
		switch {
		case errors.Is(err, calendar.ErrPatternNotFound):
			h.logger.Warn("PUT /admin/patterns/{id} - Pattern not found: pattern_id=%d", patternID)
			handlers.RespondNotFound(w, msgNotFound)
		case errors.Is(err, calendar.ErrInvalidInput), errors.Is(err, calendar.ErrInvalidTimeRange):
			h.logger.Warn("PUT /admin/patterns/{id} - Invalid pattern: %v", err)
			handlers.RespondBadRequest(w, msgValidationFailed)
		default:
			h.logger.Error("PUT /admin/patterns/{id} - Failed to update pattern: pattern_id=%d, error=%v", patternID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("PUT /admin/patterns/{id} - Pattern updated: pattern_id=%d", patternID)
	handlers.RespondJSON(w, http.StatusOK, FromDomainPattern(updated))
}

// Delete DELETE /api/v1/admin/patterns/{patternId}
// Шаблон выключается; созданные по нему слоты остаются
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	patternID, err := handlers.PathInt64(r, "patternId")
	if err != nil {
		h.logger.Warn("DELETE /admin/patterns/{id} - Invalid pattern ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidPatternID)
		return
	}

	if err := h.service.DeactivatePattern(r.Context(), patternID); err != nil {
		if errors.Is(err, calendar.ErrPatternNotFound) {
			h.logger.Warn("DELETE /admin/patterns/{id} - Pattern not found: pattern_id=%d", patternID)
			handlers.RespondNotFound(w, msgNotFound)
			return
		}
		h.logger.Error("DELETE /admin/patterns/{id} - Failed to deactivate pattern: pattern_id=%d, error=%v", patternID, err)
		handlers.RespondInternalError(w)
		return
	}

	h.logger.Info("DELETE /admin/patterns/{id} - Pattern deactivated: pattern_id=%d", patternID)
	w.WriteHeader(http.StatusNoContent)
}
