package calendar

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	"github.com/m04kA/SMC-ConsultationService/pkg/ptr"
)

// candidate окно, в котором специалист принимает: свободный слот или экземпляр шаблона
type candidate struct {
	domain.Interval
	slotID    int64
	recurring bool
	exact     bool          // окно совпадает со строкой слота целиком
	step      time.Duration // длительность слота шаблона
}

// snapshot расписание специалиста в окне запроса, прочитанное один раз
type snapshot struct {
	providerID int64
	window     domain.Interval
	candidates []candidate       // обрезаны по окну, отсортированы, пересекающиеся объединены
	excluded   []domain.Interval // блокировки, активные записи и занятые слоты по возрастанию начала
}

// loadSnapshot читает слоты, шаблоны, блокировки и активные записи, пересекающие окно
func (s *Service) loadSnapshot(ctx context.Context, providerID int64, window domain.Interval) (*snapshot, error) {
	slots, err := s.scheduleRepo.ListSlots(ctx, domain.SlotFilter{ProviderID: providerID, Window: &window})
	if err != nil {
		return nil, fmt.Errorf("%w: loadSnapshot - list slots: %v", ErrInternal, err)
	}

	patterns, err := s.scheduleRepo.ListPatterns(ctx, ptr.Ptr(providerID), true)
	if err != nil {
		return nil, fmt.Errorf("%w: loadSnapshot - list patterns: %v", ErrInternal, err)
	}

	blocked, err := s.scheduleRepo.ListBlockedPeriods(ctx, providerID, &window)
	if err != nil {
		return nil, fmt.Errorf("%w: loadSnapshot - list blocked periods: %v", ErrInternal, err)
	}

	appointments, err := s.appointmentRepo.GetWithFilter(ctx, domain.AppointmentFilter{
		ProviderID: ptr.Ptr(providerID),
		Statuses:   domain.ActiveStatuses,
		Window:     &window,
		ForUpdate:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: loadSnapshot - list appointments: %v", ErrInternal, err)
	}

	raw := make([]candidate, 0, len(slots))
	excluded := make([]domain.Interval, 0, len(blocked)+len(appointments))

	for _, slot := range slots {
		if slot.IsBooked {
			excluded = append(excluded, slot.Interval())
			continue
		}
		raw = append(raw, candidate{
			Interval:  slot.Interval(),
			slotID:    slot.ID,
			recurring: slot.IsRecurringInstance,
			exact:     true,
		})
	}
	raw = append(raw, s.expandPatterns(patterns, window)...)

	for _, b := range blocked {
		excluded = append(excluded, b.Interval())
	}
	for _, a := range appointments {
		excluded = append(excluded, a.Interval())
	}
	sort.Slice(excluded, func(i, j int) bool { return excluded[i].Start.Before(excluded[j].Start) })

	return &snapshot{
		providerID: providerID,
		window:     window,
		candidates: mergeCandidates(raw, window),
		excluded:   excluded,
	}, nil
}

// expandPatterns разворачивает шаблоны в окна по локальным датам, пересекающие window
func (s *Service) expandPatterns(patterns []*domain.RecurringPattern, window domain.Interval) []candidate {
	if len(patterns) == 0 {
		return nil
	}

	first := startOfDay(window.Start.In(s.location)).AddDate(0, 0, -1)
	last := startOfDay(window.End.In(s.location))

	result := make([]candidate, 0)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		for _, p := range patterns {
			w, ok := p.WindowOn(day, s.location)
			if !ok || !w.Overlaps(window) {
				continue
			}
			result = append(result, candidate{
				Interval:  w,
				recurring: true,
				step:      time.Duration(p.SlotDurationMinutes) * time.Minute,
			})
		}
	}
	return result
}

// mergeCandidates обрезает окна по window и объединяет пересекающиеся
func mergeCandidates(raw []candidate, window domain.Interval) []candidate {
	clipped := make([]candidate, 0, len(raw))
	for _, c := range raw {
		if c.Start.Before(window.Start) {
			c.Start = window.Start
			c.exact = false
		}
		if c.End.After(window.End) {
			c.End = window.End
			c.exact = false
		}
		if c.IsValid() {
			clipped = append(clipped, c)
		}
	}

	sort.Slice(clipped, func(i, j int) bool {
		if clipped[i].Start.Equal(clipped[j].Start) {
			// ручной слот раньше экземпляра шаблона с тем же началом
			return clipped[i].slotID > clipped[j].slotID
		}
		return clipped[i].Start.Before(clipped[j].Start)
	})

	merged := make([]candidate, 0, len(clipped))
	for _, c := range clipped {
		if n := len(merged); n > 0 && c.Start.Before(merged[n-1].End) {
			cur := &merged[n-1]
			if cur.Start.Equal(c.Start) && cur.End.Equal(c.End) {
				// то же окно из другого источника
				cur.recurring = cur.recurring && c.recurring
				continue
			}
			if c.End.After(cur.End) {
				cur.End = c.End
			}
			cur.slotID = 0
			cur.exact = false
			cur.recurring = cur.recurring && c.recurring
			continue
		}
		merged = append(merged, c)
	}
	return merged
}

// free лениво выдает свободные части окон-кандидатов в порядке начала
// Последовательность не хранит состояния и может перебираться повторно
func (sn *snapshot) free() iter.Seq[domain.TimeSlot] {
	return func(yield func(domain.TimeSlot) bool) {
		for _, c := range sn.candidates {
			cursor := c.Start
			for _, ex := range sn.excluded {
				if !ex.End.After(cursor) {
					continue
				}
				if !ex.Start.Before(c.End) {
					break
				}
				if ex.Start.After(cursor) {
					if !yield(sn.piece(c, cursor, ex.Start)) {
						return
					}
				}
				if ex.End.After(cursor) {
					cursor = ex.End
				}
			}
			if cursor.Before(c.End) {
				if !yield(sn.piece(c, cursor, c.End)) {
					return
				}
			}
		}
	}
}

func (sn *snapshot) piece(c candidate, start, end time.Time) domain.TimeSlot {
	slot := domain.TimeSlot{
		ProviderID:          sn.providerID,
		StartTime:           start,
		EndTime:             end,
		IsRecurringInstance: c.recurring,
	}
	if c.exact && start.Equal(c.Start) && end.Equal(c.End) {
		slot.ID = c.slotID
	}
	return slot
}

// covering возвращает свободное окно, совпадающее с окном снимка целиком
func (sn *snapshot) covering() (domain.TimeSlot, bool) {
	for slot := range sn.free() {
		if slot.StartTime.Equal(sn.window.Start) && slot.EndTime.Equal(sn.window.End) {
			return slot, true
		}
		return domain.TimeSlot{}, false
	}
	return domain.TimeSlot{}, false
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
