package create_booking

import (
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	createBooking "github.com/m04kA/SMC-ConsultationService/internal/usecase/create_booking"
	"github.com/m04kA/SMC-ConsultationService/pkg/types"
)

// CreateBookingRequest HTTP request model
type CreateBookingRequest struct {
	ClientID   *int64  `json:"clientId,omitempty" validate:"omitempty,gt=0"` // только для администратора
	ProviderID int64   `json:"providerId" validate:"required,gt=0"`
	Date       string  `json:"date" validate:"required"`      // "2024-06-01"
	StartTime  string  `json:"startTime" validate:"required"` // "10:00"
	EndTime    *string `json:"endTime,omitempty"`             // "10:30"
	Type       string  `json:"type" validate:"required,oneof=initial_consultation comprehensive_consultation follow_up"`
	Notes      *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

// AppointmentResponse HTTP response model
type AppointmentResponse struct {
	ID              int64   `json:"id"`
	ClientID        int64   `json:"clientId"`
	ProviderID      int64   `json:"providerId"`
	StartTime       string  `json:"startTime"`
	EndTime         string  `json:"endTime"`
	DurationMinutes int     `json:"durationMinutes"`
	Type            string  `json:"type"`
	Status          string  `json:"status"`
	PaymentDeadline string  `json:"paymentDeadline"`
	Notes           *string `json:"notes,omitempty"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
}

// parseError ошибка разбора поля запроса
type parseError struct {
	field string
	err   error
}

func (e *parseError) Error() string {
	return e.field + ": " + e.err.Error()
}

func (e *parseError) Unwrap() error {
	return e.err
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case
func (r *CreateBookingRequest) ToUseCaseRequest(clientID int64) (*createBooking.Request, error) {
	// Парсим дату
	date, err := time.Parse(domain.DateFormat, r.Date)
	if err != nil {
		return nil, &parseError{field: "date", err: err}
	}

	// Парсим время
	startTime, err := types.NewTimeStringFromString(r.StartTime)
	if err != nil {
		return nil, &parseError{field: "startTime", err: err}
	}

	req := &createBooking.Request{
		ClientID:   clientID,
		ProviderID: r.ProviderID,
		Date:       date,
		StartTime:  startTime,
		Type:       domain.AppointmentType(r.Type),
		Notes:      r.Notes,
	}

	if r.EndTime != nil {
		endTime, err := types.NewTimeStringFromString(*r.EndTime)
		if err != nil {
			return nil, &parseError{field: "endTime", err: err}
		}
		req.EndTime = &endTime
	}

	return req, nil
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *createBooking.Response) *AppointmentResponse {
	return &AppointmentResponse{
		ID:              resp.ID,
		ClientID:        resp.ClientID,
		ProviderID:      resp.ProviderID,
		StartTime:       resp.StartTime.Format(time.RFC3339),
		EndTime:         resp.EndTime.Format(time.RFC3339),
		DurationMinutes: resp.DurationMinutes,
		Type:            resp.Type,
		Status:          resp.Status,
		PaymentDeadline: resp.PaymentDeadline.Format(time.RFC3339),
		Notes:           resp.Notes,
		CreatedAt:       resp.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       resp.UpdatedAt.Format(time.RFC3339),
	}
}
