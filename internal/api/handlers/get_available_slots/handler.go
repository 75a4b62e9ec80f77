package get_available_slots

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/api/handlers"
	getAvailableSlots "github.com/m04kA/SMC-ConsultationService/internal/usecase/get_available_slots"
)

const (
	msgMissingProviderID = "ID специалиста обязателен"
	msgInvalidProviderID = "некорректный ID специалиста"
	msgMissingRange      = "параметры from и to обязательны"
	msgInvalidParams     = "некорректные параметры запроса, ожидается YYYY-MM-DD или RFC3339"
	msgInvalidRange      = "некорректный диапазон дат, максимум 30 дней"
	msgInvalidDuration   = "некорректная длительность консультации"
)

type Handler struct {
	useCase  GetAvailableSlotsUseCase
	location *time.Location
	logger   Logger
}

func NewHandler(useCase GetAvailableSlotsUseCase, location *time.Location, logger Logger) *Handler {
	if location == nil {
		location = time.UTC
	}
	return &Handler{
		useCase:  useCase,
		location: location,
		logger:   logger,
	}
}

// Handle GET /api/v1/availability
// Query params: providerId (required), from, to (required), duration (minutes, optional)
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// Извлекаем providerId из query параметров
	providerIDStr := query.Get("providerId")
	if providerIDStr == "" {
		h.logger.Warn("GET /availability - Missing provider ID")
		handlers.RespondBadRequest(w, msgMissingProviderID)
		return
	}
	providerID, err := strconv.ParseInt(providerIDStr, 10, 64)
	if err != nil || providerID <= 0 {
		h.logger.Warn("GET /availability - Invalid provider ID: %s", providerIDStr)
		handlers.RespondBadRequest(w, msgInvalidProviderID)
		return
	}

	fromStr, toStr := query.Get("from"), query.Get("to")
	if fromStr == "" || toStr == "" {
		h.logger.Warn("GET /availability - Missing range: provider_id=%d", providerID)
		handlers.RespondBadRequest(w, msgMissingRange)
		return
	}

	// Формируем запрос к use case (с парсингом дат)
	useCaseReq, err := ToUseCaseRequest(providerID, fromStr, toStr, query.Get("duration"), h.location)
	if err != nil {
		h.logger.Warn("GET /availability - Invalid query params: %v", err)
		handlers.RespondBadRequest(w, msgInvalidParams)
		return
	}

	// Вызываем use case
	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, getAvailableSlots.ErrInvalidRange):
			h.logger.Warn("GET /availability - Invalid range: provider_id=%d, from=%s, to=%s", providerID, fromStr, toStr)
			handlers.RespondBadRequest(w, msgInvalidRange)

		case errors.Is(err, getAvailableSlots.ErrInvalidInput):
			h.logger.Warn("GET /availability - Invalid input: provider_id=%d: %v", providerID, err)
			handlers.RespondBadRequest(w, msgInvalidDuration)

		default:
			h.logger.Error("GET /availability - Failed to get slots: provider_id=%d, error=%v", providerID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /availability - Slots retrieved successfully: provider_id=%d, slots_count=%d",
		providerID, len(result.Slots))
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result, h.location))
}
