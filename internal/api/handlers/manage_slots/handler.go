package manage_slots

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
	msgValidationFailed   = "некорректные данные слотов"
	msgInvalidTimeFormat  = "некорректный формат времени, ожидается RFC3339"
	msgInvalidDateFormat  = "некорректный формат даты, ожидается YYYY-MM-DD"
	msgInvalidProviderID  = "некорректный ID специалиста"
	msgInvalidRange       = "некорректный диапазон времени"
	msgInvalidSlotID      = "некорректный ID слота"
	msgSlotNotFound       = "слот не найден"
	msgSlotBooked         = "слот занят, изменить или удалить его нельзя"
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

// Create POST /api/v1/admin/slots
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSlotsRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /admin/slots - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}
	if err := handlers.Validate(&req); err != nil {
		h.logger.Warn("POST /admin/slots - Validation failed: %v", err)
		handlers.RespondBadRequest(w, msgValidationFailed+": "+err.Error())
		return
	}

	windows, err := req.ToWindows()
	if err != nil {
		h.logger.Warn("POST /admin/slots - Invalid time: %v", err)
		handlers.RespondBadRequest(w, msgInvalidTimeFormat)
		return
	}

	created, err := h.service.CreateSlots(r.Context(), req.ProviderID, windows)
	if err != nil {
		h.respondCalendarError(w, "POST /admin/slots", err)
		return
	}

	h.logger.Info("POST /admin/slots - Slots created: provider_id=%d, count=%d", req.ProviderID, len(created))
	handlers.RespondJSON(w, http.StatusCreated, FromDomainSlots(created, h.location))
}

// List GET /api/v1/admin/slots?providerId&from&to
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	providerID, err := strconv.ParseInt(query.Get("providerId"), 10, 64)
	if err != nil || providerID <= 0 {
		h.logger.Warn("GET /admin/slots - Invalid provider ID: %s", query.Get("providerId"))
		handlers.RespondBadRequest(w, msgInvalidProviderID)
		return
	}

	from, errFrom := time.ParseInLocation(domain.DateFormat, query.Get("from"), h.location)
	to, errTo := time.ParseInLocation(domain.DateFormat, query.Get("to"), h.location)
	if errFrom != nil || errTo != nil {
		h.logger.Warn("GET /admin/slots - Invalid dates: from=%s, to=%s", query.Get("from"), query.Get("to"))
		handlers.RespondBadRequest(w, msgInvalidDateFormat)
		return
	}

	slots, err := h.service.ListSlots(r.Context(), providerID, from, to.AddDate(0, 0, 1))
	if err != nil {
		h.respondCalendarError(w, "GET /admin/slots", err)
		return
	}

	h.logger.Info("GET /admin/slots - Slots retrieved: provider_id=%d, count=%d", providerID, len(slots))
	handlers.RespondJSON(w, http.StatusOK, FromDomainSlots(slots, h.location))
}

// Generate POST /api/v1/admin/slots/generate
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateSlotsRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /admin/slots/generate - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}
	if err := handlers.Validate(&req); err != nil {
		h.logger.Warn("POST /admin/slots/generate - Validation failed: %v", err)
		handlers.RespondBadRequest(w, msgValidationFailed+": "+err.Error())
		return
	}

	from, to, err := req.ToRange(h.location)
	if err != nil {
		h.logger.Warn("POST /admin/slots/generate - Invalid dates: %v", err)
		handlers.RespondBadRequest(w, msgInvalidDateFormat)
		return
	}

	created, err := h.service.GenerateFromPatterns(r.Context(), req.ProviderID, from, to)
	if err != nil {
		h.respondCalendarError(w, "POST /admin/slots/generate", err)
		return
	}

	h.logger.Info("POST /admin/slots/generate - Slots generated: provider_id=%d, created=%d", req.ProviderID, created)
	handlers.RespondJSON(w, http.StatusOK, GenerateSlotsResponse{ProviderID: req.ProviderID, Created: created})
}

// Update PUT /api/v1/admin/slots/{slotId}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	slotID, err := handlers.PathInt64(r, "slotId")
	if err != nil {
		h.logger.Warn("PUT /admin/slots/{id} - Invalid slot ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidSlotID)
		return
	}

	var req SlotWindow
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PUT /admin/slots/{id} - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}
	if err := handlers.Validate(&req); err != nil {
		h.logger.Warn("PUT /admin/slots/{id} - Validation failed: %v", err)
		handlers.RespondBadRequest(w, msgValidationFailed+": "+err.Error())
		return
	}

	window, err := req.ToInterval()
	if err != nil {
		h.logger.Warn("PUT /admin/slots/{id} - Invalid time: %v", err)
		handlers.RespondBadRequest(w, msgInvalidTimeFormat)
		return
	}

	updated, err := h.service.UpdateSlot(r.Context(), slotID, window)
	if err != nil {
		h.respondCalendarError(w, "PUT /admin/slots/{id}", err)
		return
	}

	h.logger.Info("PUT /admin/slots/{id} - Slot updated: slot_id=%d", slotID)
	handlers.RespondJSON(w, http.StatusOK, FromDomainSlots([]*domain.TimeSlot{updated}, h.location)[0])
}

// Delete DELETE /api/v1/admin/slots/{slotId}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	slotID, err := handlers.PathInt64(r, "slotId")
	if err != nil {
		h.logger.Warn("DELETE /admin/slots/{id} - Invalid slot ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidSlotID)
		return
	}

	if err := h.service.DeleteSlot(r.Context(), slotID); err != nil {
		h.respondCalendarError(w, "DELETE /admin/slots/{id}", err)
		return
	}

	h.logger.Info("DELETE /admin/slots/{id} - Slot deleted: slot_id=%d", slotID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondCalendarError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, calendar.ErrInvalidTimeRange):
		h.logger.Warn("%s - Invalid range: %v", op, err)
		handlers.RespondBadRequest(w, msgInvalidRange)

	case errors.Is(err, calendar.ErrInvalidInput):
		h.logger.Warn("%s - Invalid input: %v", op, err)
		handlers.RespondBadRequest(w, msgValidationFailed)

	case errors.Is(err, calendar.ErrSlotNotFound):
		h.logger.Warn("%s - Slot not found: %v", op, err)
		handlers.RespondNotFound(w, msgSlotNotFound)

	case errors.Is(err, calendar.ErrSlotBooked):
		h.logger.Warn("%s - Slot is booked: %v", op, err)
		handlers.RespondConflict(w, msgSlotBooked)

	default:
		h.logger.Error("%s - Calendar error: %v", op, err)
		handlers.RespondInternalError(w)
	}
}
