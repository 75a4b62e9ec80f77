package checkout_payment

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-ConsultationService/internal/api/handlers"
	"github.com/m04kA/SMC-ConsultationService/internal/api/middleware"
	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	checkoutPayment "github.com/m04kA/SMC-ConsultationService/internal/usecase/checkout_payment"
)

const (
	msgInvalidAppointmentID = "некорректный ID записи"
	msgInvalidRequestBody   = "некорректное тело запроса"
	msgInvalidMethod        = "способ оплаты должен быть stripe или paypal"
	msgMissingUserID        = "отсутствует ID пользователя"
	msgNotFound             = "запись не найдена"
	msgForbidden            = "доступ запрещен"
	msgAlreadyPaid          = "запись уже оплачена"
	msgBookingExpired       = "срок оплаты записи истек"
	msgRetryLimit           = "превышено число попыток оплаты"
	msgUnsupportedMethod    = "способ оплаты не подключен"
	msgGatewayFailed        = "платежная система отклонила платеж"
)

type Handler struct {
	useCase CheckoutPaymentUseCase
	logger  Logger
}

func NewHandler(useCase CheckoutPaymentUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/appointments/{appointmentId}/payments
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	appointmentID, err := handlers.PathInt64(r, "appointmentId")
	if err != nil {
		h.logger.Warn("POST /appointments/{id}/payments - Invalid appointment ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidAppointmentID)
		return
	}

	actor, ok := middleware.GetActor(r.Context())
	if !ok {
		h.logger.Warn("POST /appointments/{id}/payments - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req CheckoutRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /appointments/{id}/payments - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}
	if err := handlers.Validate(&req); err != nil {
		h.logger.Warn("POST /appointments/{id}/payments - Validation failed: %v", err)
		handlers.RespondBadRequest(w, msgInvalidMethod)
		return
	}

	result, err := h.useCase.Execute(r.Context(), &checkoutPayment.Request{
		AppointmentID: appointmentID,
		Actor:         actor,
		Method:        domain.PaymentMethod(req.Method),
	})
	if err != nil {
		switch {
		case errors.Is(err, checkoutPayment.ErrAppointmentNotFound):
			h.logger.Warn("POST /appointments/{id}/payments - Appointment not found: appointment_id=%d", appointmentID)
			handlers.RespondNotFound(w, msgNotFound)

		case errors.Is(err, checkoutPayment.ErrAccessDenied):
			h.logger.Warn("POST /appointments/{id}/payments - Access denied: appointment_id=%d, user_id=%d",
				appointmentID, actor.UserID)
			handlers.RespondForbidden(w, msgForbidden)

		case errors.Is(err, checkoutPayment.ErrAlreadyPaid):
			h.logger.Warn("POST /appointments/{id}/payments - Already paid: appointment_id=%d", appointmentID)
			handlers.RespondConflict(w, msgAlreadyPaid)

		case errors.Is(err, checkoutPayment.ErrBookingExpired):
			h.logger.Warn("POST /appointments/{id}/payments - Booking expired: appointment_id=%d", appointmentID)
			handlers.RespondError(w, http.StatusGone, msgBookingExpired)

		case errors.Is(err, checkoutPayment.ErrRetryLimitExceeded):
			h.logger.Warn("POST /appointments/{id}/payments - Retry limit exceeded: appointment_id=%d", appointmentID)
			handlers.RespondError(w, http.StatusTooManyRequests, msgRetryLimit)

		case errors.Is(err, checkoutPayment.ErrUnsupportedMethod):
			h.logger.Warn("POST /appointments/{id}/payments - Unsupported method: %s", req.Method)
			handlers.RespondBadRequest(w, msgUnsupportedMethod)

		case errors.Is(err, checkoutPayment.ErrGatewayFailed):
			h.logger.Warn("POST /appointments/{id}/payments - Gateway failed: appointment_id=%d, error=%v", appointmentID, err)
			handlers.RespondError(w, http.StatusBadGateway, msgGatewayFailed)

		default:
			h.logger.Error("POST /appointments/{id}/payments - Failed to start payment: appointment_id=%d, error=%v",
				appointmentID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /appointments/{id}/payments - Payment started: appointment_id=%d, payment_id=%d, method=%s",
		appointmentID, result.PaymentID, result.Method)
	handlers.RespondJSON(w, http.StatusCreated, FromUseCaseResponse(result))
}
