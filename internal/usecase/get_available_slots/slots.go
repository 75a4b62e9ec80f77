package get_available_slots

import (
	"fmt"
	"iter"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request) error {
	if req.ProviderID <= 0 {
		return fmt.Errorf("%w: providerID must be positive", ErrInvalidInput)
	}

	if req.DurationMinutes < domain.MinSlotDurationMinutes || req.DurationMinutes > domain.MaxSlotDurationMinutes {
		return fmt.Errorf("%w: duration must be between %d and %d minutes",
			ErrInvalidInput, domain.MinSlotDurationMinutes, domain.MaxSlotDurationMinutes)
	}

	if req.From.IsZero() || req.To.IsZero() || !req.To.After(req.From) {
		return fmt.Errorf("%w: 'to' must be after 'from'", ErrInvalidRange)
	}

	if req.To.Sub(req.From) > domain.MaxAvailabilityRangeDays*24*time.Hour {
		return fmt.Errorf("%w: range must not exceed %d days", ErrInvalidRange, domain.MaxAvailabilityRangeDays)
	}

	return nil
}

// sliceWindows нарезает свободные окна на отрезки заданной длительности
// Начала идут с шагом duration от начала каждого свободного окна;
// отрезки, начинающиеся раньше notBefore, отбрасываются
func sliceWindows(free iter.Seq[domain.TimeSlot], duration time.Duration, notBefore time.Time) []Slot {
	result := make([]Slot, 0)

	for window := range free {
		for start := window.StartTime; !start.Add(duration).After(window.EndTime); start = start.Add(duration) {
			if start.Before(notBefore) {
				continue
			}
			result = append(result, Slot{
				StartTime:           start,
				EndTime:             start.Add(duration),
				IsRecurringInstance: window.IsRecurringInstance,
			})
		}
	}

	return result
}
