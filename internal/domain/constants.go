package domain

import "time"

// Default policy values
const (
	DefaultPaymentTimeout          = 30 * time.Minute
	DefaultCancellationWindow      = 24 * time.Hour
	DefaultReminderLead            = 24 * time.Hour
	DefaultAdvanceBookingDays      = 90
	DefaultMinBookingNoticeMinutes = 60
	DefaultMaxPaymentAttempts      = 5
)

// Business validation constants
const (
	MinSlotDurationMinutes      = 5
	MaxSlotDurationMinutes      = 480 // 8 hours
	MaxAvailabilityRangeDays    = 30
	MaxGenerationRangeDays      = 90
	MaxNotesLength              = 500
	MaxCancellationReasonLength = 500
)

// Time format constants
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)

// ActiveStatuses статусы записей, занимающих время специалиста
var ActiveStatuses = []AppointmentStatus{
	StatusPendingPayment,
	StatusConfirmed,
}
