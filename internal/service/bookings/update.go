package bookings

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	appointmentRepo "github.com/m04kA/SMC-ConsultationService/internal/infra/storage/appointment"
	"github.com/m04kA/SMC-ConsultationService/internal/service/bookings/models"
)

// UpdateNotes меняет заметки записи, не затрагивая статус и время
// Клиент меняет только свои заметки к активной записи; администратор - любые заметки к любой записи
func (s *Service) UpdateNotes(ctx context.Context, id int64, req *models.UpdateAppointmentRequest) (*models.AppointmentResponse, error) {
	s.logger.Info("UpdateNotes: appointment id=%d by user=%d, admin=%t", id, req.Actor.UserID, req.Actor.IsAdmin)

	if req.UserNotes == nil && req.AdminNotes == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if tooLong(req.UserNotes) || tooLong(req.AdminNotes) {
		return nil, fmt.Errorf("%w: notes too long", ErrInvalidInput)
	}

	appt, err := s.getAppointment(ctx, "UpdateNotes", id)
	if err != nil {
		return nil, err
	}

	if err := checkAccess(appt, req.Actor); err != nil {
		s.logger.Warn("UpdateNotes: access denied for user=%d to appointment id=%d", req.Actor.UserID, id)
		return nil, err
	}
	if req.AdminNotes != nil && !req.Actor.IsAdmin {
		s.logger.Warn("UpdateNotes: user=%d tried to set admin notes on appointment id=%d", req.Actor.UserID, id)
		return nil, ErrAccessDenied
	}

	appt = s.refresh(ctx, appt)
	if !req.Actor.IsAdmin && !appt.IsActive() {
		s.logger.Warn("UpdateNotes: appointment id=%d in status=%s is closed for client", id, appt.Status)
		return nil, ErrCannotUpdate
	}

	updated, err := s.appointmentRepo.Transition(ctx, domain.AppointmentTransition{
		ID:         appt.ID,
		From:       appt.Status,
		Version:    appt.Version,
		To:         appt.Status,
		UserNotes:  req.UserNotes,
		AdminNotes: req.AdminNotes,
	})
	if err != nil {
		if errors.Is(err, appointmentRepo.ErrStaleState) {
			s.logger.Warn("UpdateNotes: appointment id=%d changed concurrently", id)
			return nil, ErrStaleState
		}
		if errors.Is(err, appointmentRepo.ErrAppointmentNotFound) {
			return nil, ErrAppointmentNotFound
		}
		s.logger.Error("UpdateNotes: appointment id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: UpdateNotes - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("UpdateNotes: appointment id=%d updated, version=%d", id, updated.Version)
	return models.FromDomainAppointmentFor(updated, req.Actor), nil
}

func tooLong(notes *string) bool {
	return notes != nil && utf8.RuneCountInString(*notes) > domain.MaxNotesLength
}
