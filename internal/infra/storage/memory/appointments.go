package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-ConsultationService/internal/infra/storage/appointment"
)

type appointmentRow = domain.Appointment

// AppointmentRepository in-memory реализация репозитория записей
type AppointmentRepository struct {
	store *Store
}

func (r *AppointmentRepository) Create(ctx context.Context, appt *domain.Appointment) (*domain.Appointment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	row := *appt
	row.ID = s.id()
	remember(ctx, s.appointments, row.ID)
	row.Version = 1
	row.CreatedAt = now
	row.UpdatedAt = now
	s.appointments[row.ID] = &row

	*appt = row
	return copyAppointment(&row), nil
}

func (r *AppointmentRepository) GetByID(_ context.Context, id int64) (*domain.Appointment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.appointments[id]
	if !ok {
		return nil, appointmentRepo.ErrAppointmentNotFound
	}
	return copyAppointment(row), nil
}

func (r *AppointmentRepository) GetWithFilter(_ context.Context, filter domain.AppointmentFilter) ([]*domain.Appointment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*domain.Appointment, 0)
	for _, row := range s.appointments {
		if matchesAppointment(row, filter) {
			result = append(result, copyAppointment(row))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartTime.Equal(result[j].StartTime) {
			return result[i].ID < result[j].ID
		}
		return result[i].StartTime.Before(result[j].StartTime)
	})

	return result, nil
}

func (r *AppointmentRepository) Transition(ctx context.Context, t domain.AppointmentTransition) (*domain.Appointment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.appointments[t.ID]
	if !ok {
		return nil, appointmentRepo.ErrAppointmentNotFound
	}
	if row.Status != t.From || row.Version != t.Version {
		return nil, appointmentRepo.ErrStaleState
	}

	remember(ctx, s.appointments, row.ID)
	row.Status = t.To
	row.Version++
	row.UpdatedAt = s.now()
	if t.IsPaid != nil {
		row.IsPaid = *t.IsPaid
	}
	if t.CancelledByAdmin != nil {
		row.CancelledByAdmin = *t.CancelledByAdmin
	}
	if t.ReminderSent != nil {
		row.ReminderSent = *t.ReminderSent
	}
	if t.MeetingURL != nil {
		row.MeetingURL = copyPtr(t.MeetingURL)
	}
	if t.CancellationReason != nil {
		row.CancellationReason = copyPtr(t.CancellationReason)
	}
	if t.CancelledAt != nil {
		row.CancelledAt = copyPtr(t.CancelledAt)
	}
	if t.CompletedAt != nil {
		row.CompletedAt = copyPtr(t.CompletedAt)
	}
	if t.UserNotes != nil {
		row.UserNotes = copyPtr(t.UserNotes)
	}
	if t.AdminNotes != nil {
		row.AdminNotes = copyPtr(t.AdminNotes)
	}

	return copyAppointment(row), nil
}

func matchesAppointment(a *domain.Appointment, f domain.AppointmentFilter) bool {
	if f.ClientID != nil && a.ClientID != *f.ClientID {
		return false
	}
	if f.ProviderID != nil && a.ProviderID != *f.ProviderID {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, a.Status) {
		return false
	}
	if f.Window != nil && !a.Interval().Overlaps(*f.Window) {
		return false
	}
	if f.StartFrom != nil && a.StartTime.Before(*f.StartFrom) {
		return false
	}
	if f.StartTo != nil && !a.StartTime.Before(*f.StartTo) {
		return false
	}
	if f.EndBefore != nil && a.EndTime.After(*f.EndBefore) {
		return false
	}
	if f.CreatedBefore != nil && !a.CreatedAt.Before(*f.CreatedBefore) {
		return false
	}
	if f.ReminderSent != nil && a.ReminderSent != *f.ReminderSent {
		return false
	}
	return true
}

func copyAppointment(a *domain.Appointment) *domain.Appointment {
	c := *a
	c.MeetingURL = copyPtr(a.MeetingURL)
	c.UserNotes = copyPtr(a.UserNotes)
	c.AdminNotes = copyPtr(a.AdminNotes)
	c.CancellationReason = copyPtr(a.CancellationReason)
	c.CancelledAt = copyPtr(a.CancelledAt)
	c.CompletedAt = copyPtr(a.CompletedAt)
	return &c
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
