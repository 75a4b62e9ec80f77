package memory

import (
	"context"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

type emailLogRow = domain.EmailLog

// EmailLogRepository in-memory журнал писем
type EmailLogRepository struct {
	store *Store
}

func (r *EmailLogRepository) Create(ctx context.Context, entry *domain.EmailLog) (*domain.EmailLog, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rememberLogs(ctx)

	row := *entry
	row.ID = s.id()
	s.emailLogs = append(s.emailLogs, &row)

	c := row
	return &c, nil
}

func (r *EmailLogRepository) ListByAppointment(_ context.Context, appointmentID int64) ([]*domain.EmailLog, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*domain.EmailLog, 0)
	for _, row := range s.emailLogs {
		if row.AppointmentID == appointmentID {
			c := *row
			result = append(result, &c)
		}
	}
	return result, nil
}
