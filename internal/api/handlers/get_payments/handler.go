package get_payments

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ConsultationService/internal/api/handlers"
	"github.com/m04kA/SMC-ConsultationService/internal/api/middleware"
	"github.com/m04kA/SMC-ConsultationService/internal/service/payments"
)

const (
	msgInvalidPaymentID     = "некорректный ID платежа"
	msgInvalidAppointmentID = "некорректный ID записи"
	msgMissingUserID        = "отсутствует ID пользователя"
	msgPaymentNotFound      = "платеж не найден"
	msgAppointmentNotFound  = "запись не найдена"
	msgForbidden            = "доступ запрещен"
)

type Handler struct {
	service PaymentService
	logger  Logger
}

func NewHandler(service PaymentService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Get GET /api/v1/payments/{paymentId}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	paymentID, err := handlers.PathInt64(r, "paymentId")
	if err != nil {
		h.logger.Warn("GET /payments/{id} - Invalid payment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidPaymentID)
		return
	}

	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("GET /payments/{id} - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	payment, err := h.service.GetPayment(r.Context(), paymentID, actor)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrPaymentNotFound):
			h.logger.Warn("GET /payments/{id} - Payment not found: payment_id=%d", paymentID)
			handlers.RespondNotFound(w, msgPaymentNotFound)

		case errors.Is(err, payments.ErrAccessDenied):
			h.logger.Warn("GET /payments/{id} - Access denied: payment_id=%d, user_id=%d", paymentID, actor.UserID)
			handlers.RespondForbidden(w, msgForbidden)

		default:
			h.logger.Error("GET /payments/{id} - Failed to get payment: payment_id=%d, error=%v", paymentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /payments/{id} - Payment retrieved: payment_id=%d, user_id=%d", paymentID, actor.UserID)
	handlers.RespondJSON(w, http.StatusOK, FromDomainPayment(payment))
}

// ListByAppointment GET /api/v1/appointments/{appointmentId}/payments
func (h *Handler) ListByAppointment(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := handlers.PathInt64(r, "appointmentId")
	if err != nil {
		h.logger.Warn("GET /appointments/{id}/payments - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("GET /appointments/{id}/payments - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	list, err := h.service.ListForAppointment(r.Context(), appointmentID, actor)
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrAppointmentNotFound):
			h.logger.Warn("GET /appointments/{id}/payments - Appointment not found: appointment_id=%d", appointmentID)
			handlers.RespondNotFound(w, msgAppointmentNotFound)

		case errors.Is(err, payments.ErrAccessDenied):
			h.logger.Warn("GET /appointments/{id}/payments - Access denied: appointment_id=%d, user_id=%d",
				appointmentID, actor.UserID)
			handlers.RespondForbidden(w, msgForbidden)

		default:
			h.logger.Error("GET /appointments/{id}/payments - Failed to list payments: appointment_id=%d, error=%v",
				appointmentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /appointments/{id}/payments - Payments retrieved: appointment_id=%d, count=%d",
		appointmentID, len(list))
	handlers.RespondJSON(w, http.StatusOK, FromDomainPaymentList(list))
}
