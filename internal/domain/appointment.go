package domain

import "time"

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	StatusPendingPayment AppointmentStatus = "pending_payment"
	StatusConfirmed      AppointmentStatus = "confirmed"
	StatusCancelled      AppointmentStatus = "cancelled"
	StatusCompleted      AppointmentStatus = "completed"
)

// IsValid reports whether the status is a known one
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case StatusPendingPayment, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// AppointmentType represents the kind of consultation
type AppointmentType string

const (
	TypeInitialConsultation       AppointmentType = "initial_consultation"
	TypeComprehensiveConsultation AppointmentType = "comprehensive_consultation"
	TypeFollowUp                  AppointmentType = "follow_up"
)

// DurationMinutes returns the standard length of the consultation type
func (t AppointmentType) DurationMinutes() int {
	switch t {
	case TypeComprehensiveConsultation:
		return 60
	case TypeInitialConsultation, TypeFollowUp:
		return 30
	}
	return 0
}

// IsValid reports whether the type is a known one
func (t AppointmentType) IsValid() bool {
	return t.DurationMinutes() > 0
}

// Appointment is a booking of a provider's time by a client
type Appointment struct {
	ID         int64
	ClientID   int64
	ProviderID int64
	SlotID     int64 // booked TimeSlot row held by this appointment
	StartTime  time.Time
	EndTime    time.Time
	Type       AppointmentType
	Status     AppointmentStatus

	IsPaid           bool
	CancelledByAdmin bool
	ReminderSent     bool
	MeetingURL       *string

	UserNotes          *string
	AdminNotes         *string
	CancellationReason *string

	// Version is incremented on every update; transitions compare it
	Version int64

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CancelledAt *time.Time
	CompletedAt *time.Time
}

// Interval returns the occupied time window
func (a *Appointment) Interval() Interval {
	return Interval{Start: a.StartTime, End: a.EndTime}
}

// IsActive returns true if the appointment holds its time window
func (a *Appointment) IsActive() bool {
	return a.Status == StatusPendingPayment || a.Status == StatusConfirmed
}

// IsCancelled returns true if the appointment has been cancelled
func (a *Appointment) IsCancelled() bool {
	return a.Status == StatusCancelled
}

// CanBeCancelled returns true if the status allows cancellation
func (a *Appointment) CanBeCancelled() bool {
	return a.IsActive()
}

// PaymentDeadline returns the moment after which an unpaid appointment expires
func (a *Appointment) PaymentDeadline(timeout time.Duration) time.Time {
	return a.CreatedAt.Add(timeout)
}

// IsPaymentOverdue returns true if the appointment is still unpaid after the deadline
func (a *Appointment) IsPaymentOverdue(now time.Time, timeout time.Duration) bool {
	return a.Status == StatusPendingPayment && now.After(a.PaymentDeadline(timeout))
}

// IsFinished returns true if a confirmed appointment has ended
func (a *Appointment) IsFinished(now time.Time) bool {
	return a.Status == StatusConfirmed && !now.Before(a.EndTime)
}

// AppointmentFilter фильтр выборки записей
type AppointmentFilter struct {
	ClientID      *int64
	ProviderID    *int64
	Statuses      []AppointmentStatus // пусто - любые статусы
	Window        *Interval           // записи, пересекающие окно
	StartFrom     *time.Time          // start_time >= StartFrom
	StartTo       *time.Time          // start_time < StartTo
	EndBefore     *time.Time          // end_time <= EndBefore
	CreatedBefore *time.Time          // created_at < CreatedBefore
	ReminderSent  *bool
	ForUpdate     bool // блокировка строк, если выборка идет в транзакции
}

// AppointmentTransition compare-and-swap изменение записи
// Применяется только если текущие status и version совпадают с From и Version
type AppointmentTransition struct {
	ID      int64
	From    AppointmentStatus
	Version int64
	To      AppointmentStatus

	IsPaid             *bool
	CancelledByAdmin   *bool
	ReminderSent       *bool
	MeetingURL         *string
	CancellationReason *string
	CancelledAt        *time.Time
	CompletedAt        *time.Time
	UserNotes          *string
	AdminNotes         *string
}

// Actor пользователь, выполняющий операцию
type Actor struct {
	UserID  int64
	IsAdmin bool
}
