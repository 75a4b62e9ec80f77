package memory

import (
	"sync"
	"time"
)

// Store in-memory хранилище всех сущностей сервиса
// Каждая операция атомарна; изменения внутри транзакции (см. Begin) откатываются при ошибке
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	nextID int64

	appointments map[int64]*appointmentRow
	slots        map[int64]*slotRow
	patterns     map[int64]*patternRow
	blocked      map[int64]*blockedRow
	payments     map[int64]*paymentRow
	emailLogs    []*emailLogRow

	Appointments *AppointmentRepository
	Schedule     *ScheduleRepository
	Payments     *PaymentRepository
	EmailLogs    *EmailLogRepository
}

// NewStore создает пустое хранилище; now задает время created_at/updated_at
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	s := &Store{
		now:          now,
		appointments: make(map[int64]*appointmentRow),
		slots:        make(map[int64]*slotRow),
		patterns:     make(map[int64]*patternRow),
		blocked:      make(map[int64]*blockedRow),
		payments:     make(map[int64]*paymentRow),
	}
	s.Appointments = &AppointmentRepository{store: s}
	s.Schedule = &ScheduleRepository{store: s}
	s.Payments = &PaymentRepository{store: s}
	s.EmailLogs = &EmailLogRepository{store: s}
	return s
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}
