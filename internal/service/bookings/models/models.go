package models

import (
	"errors"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

var (
	// ErrInvalidStatus возвращается при некорректном статусе
	ErrInvalidStatus = errors.New("invalid appointment status")
)

// Request модели

// CreateBookingRequest запрос на создание записи
type CreateBookingRequest struct {
	ClientID   int64
	ProviderID int64
	StartTime  time.Time
	EndTime    time.Time
	Type       domain.AppointmentType
	Notes      *string
}

// CancelAppointmentRequest запрос на отмену записи
type CancelAppointmentRequest struct {
	Actor              domain.Actor
	CancellationReason string
}

// UpdateAppointmentRequest запрос на изменение заметок записи
// nil - поле не меняется
type UpdateAppointmentRequest struct {
	Actor      domain.Actor
	UserNotes  *string
	AdminNotes *string
}

// GetClientAppointmentsRequest запрос на получение записей клиента
type GetClientAppointmentsRequest struct {
	Actor    domain.Actor
	ClientID int64
	Status   *string
}

// ListAppointmentsRequest запрос администратора на получение записей
type ListAppointmentsRequest struct {
	ProviderID *int64
	ClientID   *int64
	From       *time.Time
	To         *time.Time
	Status     *string
}

// ToDomainFilter конвертирует request в domain фильтр
func (r *ListAppointmentsRequest) ToDomainFilter() (domain.AppointmentFilter, error) {
	filter := domain.AppointmentFilter{
		ProviderID: r.ProviderID,
		ClientID:   r.ClientID,
		StartFrom:  r.From,
		StartTo:    r.To,
	}

	if r.Status != nil {
		status, err := ToDomainStatus(*r.Status)
		if err != nil {
			return filter, err
		}
		filter.Statuses = []domain.AppointmentStatus{status}
	}

	return filter, nil
}

// Response модели

// AppointmentResponse ответ с данными записи
type AppointmentResponse struct {
	ID               int64   `json:"id"`
	ClientID         int64   `json:"clientId"`
	ProviderID       int64   `json:"providerId"`
	StartTime        string  `json:"startTime"` // RFC3339
	EndTime          string  `json:"endTime"`   // RFC3339
	DurationMinutes  int     `json:"durationMinutes"`
	Type             string  `json:"type"`
	Status           string  `json:"status"`
	IsPaid           bool    `json:"isPaid"`
	CancelledByAdmin bool    `json:"cancelledByAdmin"`
	MeetingURL       *string `json:"meetingUrl,omitempty"`
	UserNotes        *string `json:"userNotes,omitempty"`
	AdminNotes       *string `json:"adminNotes,omitempty"`

	CancellationReason *string `json:"cancellationReason,omitempty"`
	CancelledAt        *string `json:"cancelledAt,omitempty"`
	CompletedAt        *string `json:"completedAt,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AppointmentListResponse ответ со списком записей
type AppointmentListResponse struct {
	Appointments []AppointmentResponse `json:"appointments"`
}

// Методы конвертации

// FromDomainAppointment конвертирует domain модель в DTO
func FromDomainAppointment(a *domain.Appointment) *AppointmentResponse {
	if a == nil {
		return nil
	}

	resp := &AppointmentResponse{
		ID:                 a.ID,
		ClientID:           a.ClientID,
		ProviderID:         a.ProviderID,
		StartTime:          a.StartTime.Format(time.RFC3339),
		EndTime:            a.EndTime.Format(time.RFC3339),
		DurationMinutes:    int(a.EndTime.Sub(a.StartTime).Minutes()),
		Type:               string(a.Type),
		Status:             string(a.Status),
		IsPaid:             a.IsPaid,
		CancelledByAdmin:   a.CancelledByAdmin,
		MeetingURL:         a.MeetingURL,
		UserNotes:          a.UserNotes,
		AdminNotes:         a.AdminNotes,
		CancellationReason: a.CancellationReason,
		Version:            a.Version,
		CreatedAt:          a.CreatedAt,
		UpdatedAt:          a.UpdatedAt,
	}

	if a.CancelledAt != nil {
		cancelled := a.CancelledAt.Format(time.RFC3339)
		resp.CancelledAt = &cancelled
	}
	if a.CompletedAt != nil {
		completed := a.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &completed
	}

	return resp
}

// FromDomainAppointmentFor конвертирует запись для actor; заметки администратора видит только администратор
func FromDomainAppointmentFor(a *domain.Appointment, actor domain.Actor) *AppointmentResponse {
	resp := FromDomainAppointment(a)
	if resp != nil && !actor.IsAdmin {
		resp.AdminNotes = nil
	}
	return resp
}

// FromDomainAppointmentList конвертирует список domain моделей в DTO
func FromDomainAppointmentList(appointments []*domain.Appointment) *AppointmentListResponse {
	resp := &AppointmentListResponse{
		Appointments: make([]AppointmentResponse, 0, len(appointments)),
	}

	for _, a := range appointments {
		if r := FromDomainAppointment(a); r != nil {
			resp.Appointments = append(resp.Appointments, *r)
		}
	}

	return resp
}

// ToDomainStatus конвертирует строку в domain.AppointmentStatus с валидацией
func ToDomainStatus(status string) (domain.AppointmentStatus, error) {
	s := domain.AppointmentStatus(status)
	if !s.IsValid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}
