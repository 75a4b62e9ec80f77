package update_appointment

import (
	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	"github.com/m04kA/SMC-ConsultationService/internal/service/bookings/models"
)

// UpdateAppointmentRequest HTTP request model; отсутствующее поле не меняется
type UpdateAppointmentRequest struct {
	UserNotes  *string `json:"userNotes,omitempty" validate:"omitempty,max=500"`
	AdminNotes *string `json:"adminNotes,omitempty" validate:"omitempty,max=500"`
}

// ToServiceRequest конвертирует HTTP request в модель сервиса
func (r *UpdateAppointmentRequest) ToServiceRequest(actor domain.Actor) *models.UpdateAppointmentRequest {
	return &models.UpdateAppointmentRequest{
		Actor:      actor,
		UserNotes:  r.UserNotes,
		AdminNotes: r.AdminNotes,
	}
}
