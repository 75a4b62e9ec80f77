package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	scheduleRepo "github.com/m04kA/SMC-ConsultationService/internal/infra/storage/schedule"
	"github.com/m04kA/SMC-ConsultationService/pkg/ptr"
)

// CreateSlots создает свободные слоты специалиста
// Слоты, уже существующие с теми же границами, пропускаются
func (s *Service) CreateSlots(ctx context.Context, providerID int64, windows []domain.Interval) ([]*domain.TimeSlot, error) {
	s.logger.Info("CreateSlots: provider=%d, count=%d", providerID, len(windows))

	if providerID <= 0 || len(windows) == 0 {
		return nil, fmt.Errorf("%w: provider and at least one window are required", ErrInvalidInput)
	}
	span := windows[0]
	for _, w := range windows {
		if !w.IsValid() {
			return nil, fmt.Errorf("%w: slot %s-%s", ErrInvalidTimeRange, w.Start, w.End)
		}
		if w.Start.Before(span.Start) {
			span.Start = w.Start
		}
		if w.End.After(span.End) {
			span.End = w.End
		}
	}

	created := make([]*domain.TimeSlot, 0, len(windows))
	err := s.txManager.Do(ctx, func(txCtx context.Context) error {
		existing, err := s.scheduleRepo.ListSlots(txCtx, domain.SlotFilter{ProviderID: providerID, Window: &span})
		if err != nil {
			return fmt.Errorf("%w: CreateSlots - list slots: %v", ErrInternal, err)
		}
		blocked, err := s.scheduleRepo.ListBlockedPeriods(txCtx, providerID, &span)
		if err != nil {
			return fmt.Errorf("%w: CreateSlots - list blocked periods: %v", ErrInternal, err)
		}

		for _, w := range windows {
			if overlapsBlocked(w, blocked) {
				return fmt.Errorf("%w: slot %s-%s intersects a blocked period", ErrInvalidInput, w.Start, w.End)
			}
			if hasSlot(existing, w) {
				continue
			}
			slot, err := s.scheduleRepo.CreateSlot(txCtx, &domain.TimeSlot{
				ProviderID: providerID,
				StartTime:  w.Start,
				EndTime:    w.End,
			})
			if err != nil {
				return fmt.Errorf("%w: CreateSlots - create slot: %v", ErrInternal, err)
			}
			existing = append(existing, slot)
			created = append(created, slot)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("CreateSlots: provider=%d: %v", providerID, err)
		return nil, err
	}

	s.logger.Info("CreateSlots: created %d slots for provider=%d", len(created), providerID)
	return created, nil
}

// ListSlots возвращает слоты специалиста, пересекающие окно
func (s *Service) ListSlots(ctx context.Context, providerID int64, from, to time.Time) ([]*domain.TimeSlot, error) {
	window := domain.Interval{Start: from, End: to}
	if !window.IsValid() {
		return nil, ErrInvalidTimeRange
	}

	slots, err := s.scheduleRepo.ListSlots(ctx, domain.SlotFilter{ProviderID: providerID, Window: &window})
	if err != nil {
		s.logger.Error("ListSlots: provider=%d: %v", providerID, err)
		return nil, fmt.Errorf("%w: ListSlots - repository error: %v", ErrInternal, err)
	}
	return slots, nil
}

// UpdateSlot переносит свободный слот в новое окно
// Занятый слот не меняется (ErrSlotBooked); окно не должно пересекать блокировки
func (s *Service) UpdateSlot(ctx context.Context, slotID int64, window domain.Interval) (*domain.TimeSlot, error) {
	s.logger.Info("UpdateSlot: slot id=%d, window=%s-%s", slotID, window.Start, window.End)

	if !window.IsValid() {
		return nil, ErrInvalidTimeRange
	}

	current, err := s.scheduleRepo.GetSlotByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, scheduleRepo.ErrSlotNotFound) {
			return nil, ErrSlotNotFound
		}
		s.logger.Error("UpdateSlot: slot id=%d: %v", slotID, err)
		return nil, fmt.Errorf("%w: UpdateSlot - get slot: %v", ErrInternal, err)
	}

	unlock := s.lockWindows(current.ProviderID, current.Interval(), window)
	defer unlock()

	var updated *domain.TimeSlot
	err = s.txManager.Do(ctx, func(txCtx context.Context) error {
		blocked, err := s.scheduleRepo.ListBlockedPeriods(txCtx, current.ProviderID, &window)
		if err != nil {
			return fmt.Errorf("%w: UpdateSlot - list blocked periods: %v", ErrInternal, err)
		}
		if overlapsBlocked(window, blocked) {
			return fmt.Errorf("%w: slot %s-%s intersects a blocked period", ErrInvalidInput, window.Start, window.End)
		}

		updated, err = s.scheduleRepo.UpdateSlotWindow(txCtx, slotID, window)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, scheduleRepo.ErrSlotStateConflict):
			return ErrSlotBooked
		case errors.Is(err, scheduleRepo.ErrSlotNotFound):
			return ErrSlotNotFound
		default:
			return fmt.Errorf("%w: UpdateSlot - update: %v", ErrInternal, err)
		}
	})
	if err != nil {
		s.logger.Warn("UpdateSlot: slot id=%d: %v", slotID, err)
		return nil, err
	}

	s.logger.Info("UpdateSlot: slot id=%d moved to %s-%s", slotID, window.Start, window.End)
	return updated, nil
}

// DeleteSlot удаляет свободный слот; занятый слот не удаляется (ErrSlotBooked)
func (s *Service) DeleteSlot(ctx context.Context, slotID int64) error {
	current, err := s.scheduleRepo.GetSlotByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, scheduleRepo.ErrSlotNotFound) {
			return ErrSlotNotFound
		}
		s.logger.Error("DeleteSlot: slot id=%d: %v", slotID, err)
		return fmt.Errorf("%w: DeleteSlot - get slot: %v", ErrInternal, err)
	}

	unlock := s.lockWindows(current.ProviderID, current.Interval())
	defer unlock()

	err = s.scheduleRepo.DeleteSlot(ctx, slotID, false)
	switch {
	case err == nil:
		s.logger.Info("DeleteSlot: slot id=%d deleted", slotID)
		return nil
	case errors.Is(err, scheduleRepo.ErrSlotStateConflict):
		s.logger.Warn("DeleteSlot: slot id=%d is booked", slotID)
		return ErrSlotBooked
	case errors.Is(err, scheduleRepo.ErrSlotNotFound):
		return ErrSlotNotFound
	default:
		s.logger.Error("DeleteSlot: slot id=%d: %v", slotID, err)
		return fmt.Errorf("%w: DeleteSlot - repository error: %v", ErrInternal, err)
	}
}

// CreatePattern создает шаблон еженедельного расписания
func (s *Service) CreatePattern(ctx context.Context, pattern *domain.RecurringPattern) (*domain.RecurringPattern, error) {
	s.logger.Info("CreatePattern: provider=%d, weekday=%s, %s-%s, duration=%d",
		pattern.ProviderID, pattern.Weekday, pattern.StartTimeOfDay, pattern.EndTimeOfDay, pattern.SlotDurationMinutes)

	if err := validatePattern(pattern); err != nil {
		s.logger.Warn("CreatePattern: validation failed: %v", err)
		return nil, err
	}

	pattern.IsActive = true
	created, err := s.scheduleRepo.CreatePattern(ctx, pattern)
	if err != nil {
		s.logger.Error("CreatePattern: provider=%d: %v", pattern.ProviderID, err)
		return nil, fmt.Errorf("%w: CreatePattern - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("CreatePattern: pattern id=%d created", created.ID)
	return created, nil
}

// ListPatterns возвращает все шаблоны специалиста, включая неактивные
func (s *Service) ListPatterns(ctx context.Context, providerID int64) ([]*domain.RecurringPattern, error) {
	patterns, err := s.scheduleRepo.ListPatterns(ctx, ptr.Ptr(providerID), false)
	if err != nil {
		s.logger.Error("ListPatterns: provider=%d: %v", providerID, err)
		return nil, fmt.Errorf("%w: ListPatterns - repository error: %v", ErrInternal, err)
	}
	return patterns, nil
}

// UpdatePattern частично обновляет шаблон; результат проходит ту же проверку, что и при создании
func (s *Service) UpdatePattern(ctx context.Context, patternID int64, update domain.PatternUpdate) (*domain.RecurringPattern, error) {
	current, err := s.scheduleRepo.GetPatternByID(ctx, patternID)
	if err != nil {
		if errors.Is(err, scheduleRepo.ErrPatternNotFound) {
			return nil, ErrPatternNotFound
		}
		s.logger.Error("UpdatePattern: pattern id=%d: %v", patternID, err)
		return nil, fmt.Errorf("%w: UpdatePattern - get pattern: %v", ErrInternal, err)
	}

	next := current.Apply(update)
	if err := validatePattern(&next); err != nil {
		s.logger.Warn("UpdatePattern: pattern id=%d: validation failed: %v", patternID, err)
		return nil, err
	}

	updated, err := s.scheduleRepo.UpdatePattern(ctx, &next)
	if err != nil {
		if errors.Is(err, scheduleRepo.ErrPatternNotFound) {
			return nil, ErrPatternNotFound
		}
		s.logger.Error("UpdatePattern: pattern id=%d: %v", patternID, err)
		return nil, fmt.Errorf("%w: UpdatePattern - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("UpdatePattern: pattern id=%d updated", patternID)
	return updated, nil
}

// DeactivatePattern выключает шаблон
func (s *Service) DeactivatePattern(ctx context.Context, patternID int64) error {
	if err := s.scheduleRepo.DeactivatePattern(ctx, patternID); err != nil {
		if errors.Is(err, scheduleRepo.ErrPatternNotFound) {
			return ErrPatternNotFound
		}
		s.logger.Error("DeactivatePattern: pattern id=%d: %v", patternID, err)
		return fmt.Errorf("%w: DeactivatePattern - repository error: %v", ErrInternal, err)
	}
	s.logger.Info("DeactivatePattern: pattern id=%d deactivated", patternID)
	return nil
}

// CreateBlockedPeriod блокирует время специалиста и удаляет пересекающиеся свободные слоты
// Возвращает созданный период и число удаленных слотов
func (s *Service) CreateBlockedPeriod(ctx context.Context, period *domain.BlockedPeriod) (*domain.BlockedPeriod, int64, error) {
	s.logger.Info("CreateBlockedPeriod: provider=%d, %s-%s", period.ProviderID, period.StartTime, period.EndTime)

	if period.ProviderID <= 0 {
		return nil, 0, fmt.Errorf("%w: provider is required", ErrInvalidInput)
	}
	if !period.Interval().IsValid() {
		return nil, 0, ErrInvalidTimeRange
	}

	var created *domain.BlockedPeriod
	var removed int64
	err := s.txManager.Do(ctx, func(txCtx context.Context) error {
		var err error
		created, err = s.scheduleRepo.CreateBlockedPeriod(txCtx, period)
		if err != nil {
			return fmt.Errorf("%w: CreateBlockedPeriod - create: %v", ErrInternal, err)
		}
		removed, err = s.scheduleRepo.DeleteUnbookedSlots(txCtx, period.ProviderID, period.Interval())
		if err != nil {
			return fmt.Errorf("%w: CreateBlockedPeriod - delete slots: %v", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("CreateBlockedPeriod: provider=%d: %v", period.ProviderID, err)
		return nil, 0, err
	}

	s.logger.Info("CreateBlockedPeriod: period id=%d created, %d free slots removed", created.ID, removed)
	return created, removed, nil
}

// ListBlockedPeriods возвращает периоды блокировки специалиста; window == nil - все
func (s *Service) ListBlockedPeriods(ctx context.Context, providerID int64, window *domain.Interval) ([]*domain.BlockedPeriod, error) {
	periods, err := s.scheduleRepo.ListBlockedPeriods(ctx, providerID, window)
	if err != nil {
		s.logger.Error("ListBlockedPeriods: provider=%d: %v", providerID, err)
		return nil, fmt.Errorf("%w: ListBlockedPeriods - repository error: %v", ErrInternal, err)
	}
	return periods, nil
}

// UpdateBlockedPeriod меняет границы или причину блокировки
// Свободные слоты, пересекающие новое окно, удаляются; возвращает период и число удаленных слотов
func (s *Service) UpdateBlockedPeriod(ctx context.Context, id int64, update domain.BlockedPeriodUpdate) (*domain.BlockedPeriod, int64, error) {
	var updated *domain.BlockedPeriod
	var removed int64
	err := s.txManager.Do(ctx, func(txCtx context.Context) error {
		current, err := s.scheduleRepo.GetBlockedPeriodByID(txCtx, id)
		if err != nil {
			if errors.Is(err, scheduleRepo.ErrBlockedPeriodNotFound) {
				return ErrBlockedPeriodNotFound
			}
			return fmt.Errorf("%w: UpdateBlockedPeriod - get: %v", ErrInternal, err)
		}

		next := current.Apply(update)
		if !next.Interval().IsValid() {
			return ErrInvalidTimeRange
		}

		updated, err = s.scheduleRepo.UpdateBlockedPeriod(txCtx, &next)
		if err != nil {
			if errors.Is(err, scheduleRepo.ErrBlockedPeriodNotFound) {
				return ErrBlockedPeriodNotFound
			}
			return fmt.Errorf("%w: UpdateBlockedPeriod - update: %v", ErrInternal, err)
		}
		removed, err = s.scheduleRepo.DeleteUnbookedSlots(txCtx, next.ProviderID, next.Interval())
		if err != nil {
			return fmt.Errorf("%w: UpdateBlockedPeriod - delete slots: %v", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		s.logger.Warn("UpdateBlockedPeriod: period id=%d: %v", id, err)
		return nil, 0, err
	}

	s.logger.Info("UpdateBlockedPeriod: period id=%d updated, %d free slots removed", id, removed)
	return updated, removed, nil
}

// DeleteBlockedPeriod удаляет период блокировки
func (s *Service) DeleteBlockedPeriod(ctx context.Context, id int64) error {
	if err := s.scheduleRepo.DeleteBlockedPeriod(ctx, id); err != nil {
		if errors.Is(err, scheduleRepo.ErrBlockedPeriodNotFound) {
			return ErrBlockedPeriodNotFound
		}
		s.logger.Error("DeleteBlockedPeriod: period id=%d: %v", id, err)
		return fmt.Errorf("%w: DeleteBlockedPeriod - repository error: %v", ErrInternal, err)
	}
	s.logger.Info("DeleteBlockedPeriod: period id=%d deleted", id)
	return nil
}

// GenerateFromPatterns создает слоты по активным шаблонам специалиста в [from, to)
// Окна шаблонов нарезаются по SlotDurationMinutes; прошедшие, заблокированные
// и уже существующие слоты пропускаются. Возвращает число созданных слотов
func (s *Service) GenerateFromPatterns(ctx context.Context, providerID int64, from, to time.Time) (int, error) {
	window := domain.Interval{Start: from, End: to}
	if !window.IsValid() || window.Duration() > domain.MaxGenerationRangeDays*24*time.Hour {
		return 0, ErrInvalidTimeRange
	}

	now := s.timeProvider.Now()
	created := 0

	err := s.txManager.Do(ctx, func(txCtx context.Context) error {
		patterns, err := s.scheduleRepo.ListPatterns(txCtx, ptr.Ptr(providerID), true)
		if err != nil {
			return fmt.Errorf("%w: GenerateFromPatterns - list patterns: %v", ErrInternal, err)
		}
		if len(patterns) == 0 {
			return nil
		}
		existing, err := s.scheduleRepo.ListSlots(txCtx, domain.SlotFilter{ProviderID: providerID, Window: &window})
		if err != nil {
			return fmt.Errorf("%w: GenerateFromPatterns - list slots: %v", ErrInternal, err)
		}
		blocked, err := s.scheduleRepo.ListBlockedPeriods(txCtx, providerID, &window)
		if err != nil {
			return fmt.Errorf("%w: GenerateFromPatterns - list blocked periods: %v", ErrInternal, err)
		}

		for _, c := range s.expandPatterns(patterns, window) {
			for _, piece := range cutWindow(c.Interval, c.step) {
				if !window.Contains(piece) || piece.Start.Before(now) {
					continue
				}
				if overlapsBlocked(piece, blocked) || hasSlot(existing, piece) {
					continue
				}
				slot, err := s.scheduleRepo.CreateSlot(txCtx, &domain.TimeSlot{
					ProviderID:          providerID,
					StartTime:           piece.Start,
					EndTime:             piece.End,
					IsRecurringInstance: true,
				})
				if err != nil {
					return fmt.Errorf("%w: GenerateFromPatterns - create slot: %v", ErrInternal, err)
				}
				existing = append(existing, slot)
				created++
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("GenerateFromPatterns: provider=%d: %v", providerID, err)
		return 0, err
	}

	s.logger.Info("GenerateFromPatterns: provider=%d, range=%s-%s, created=%d",
		providerID, from.Format(domain.DateFormat), to.Format(domain.DateFormat), created)
	return created, nil
}

// GenerateForAllProviders материализует шаблоны всех специалистов на horizon вперед
func (s *Service) GenerateForAllProviders(ctx context.Context, horizon time.Duration) (int, error) {
	patterns, err := s.scheduleRepo.ListPatterns(ctx, nil, true)
	if err != nil {
		return 0, fmt.Errorf("%w: GenerateForAllProviders - list patterns: %v", ErrInternal, err)
	}

	now := s.timeProvider.Now()
	seen := make(map[int64]bool)
	total := 0
	for _, p := range patterns {
		if seen[p.ProviderID] {
			continue
		}
		seen[p.ProviderID] = true

		n, err := s.GenerateFromPatterns(ctx, p.ProviderID, now, now.Add(horizon))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func validatePattern(p *domain.RecurringPattern) error {
	if p.ProviderID <= 0 {
		return fmt.Errorf("%w: provider is required", ErrInvalidInput)
	}
	if p.Weekday < time.Sunday || p.Weekday > time.Saturday {
		return fmt.Errorf("%w: weekday must be 0..6", ErrInvalidInput)
	}
	if err := p.StartTimeOfDay.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := p.EndTimeOfDay.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !p.StartTimeOfDay.IsBefore(p.EndTimeOfDay) {
		return fmt.Errorf("%w: start time must be before end time", ErrInvalidTimeRange)
	}
	if p.SlotDurationMinutes < domain.MinSlotDurationMinutes || p.SlotDurationMinutes > domain.MaxSlotDurationMinutes {
		return fmt.Errorf("%w: slot duration must be between %d and %d minutes",
			ErrInvalidInput, domain.MinSlotDurationMinutes, domain.MaxSlotDurationMinutes)
	}
	if p.SlotDurationMinutes > p.EndTimeOfDay.Minutes()-p.StartTimeOfDay.Minutes() {
		return fmt.Errorf("%w: slot duration exceeds pattern window", ErrInvalidInput)
	}
	if p.EffectiveFrom.IsZero() {
		return fmt.Errorf("%w: effective_from is required", ErrInvalidInput)
	}
	if p.EffectiveUntil != nil && p.EffectiveUntil.Before(p.EffectiveFrom) {
		return fmt.Errorf("%w: effective_until is before effective_from", ErrInvalidTimeRange)
	}
	return nil
}

// cutWindow нарезает окно на отрезки длительности d; хвост короче d отбрасывается
func cutWindow(w domain.Interval, d time.Duration) []domain.Interval {
	if d <= 0 {
		return nil
	}
	pieces := make([]domain.Interval, 0)
	for start := w.Start; !start.Add(d).After(w.End); start = start.Add(d) {
		pieces = append(pieces, domain.Interval{Start: start, End: start.Add(d)})
	}
	return pieces
}

func overlapsBlocked(w domain.Interval, blocked []*domain.BlockedPeriod) bool {
	for _, b := range blocked {
		if b.Interval().Overlaps(w) {
			return true
		}
	}
	return false
}

func hasSlot(slots []*domain.TimeSlot, w domain.Interval) bool {
	for _, slot := range slots {
		if slot.StartTime.Equal(w.Start) && slot.EndTime.Equal(w.End) {
			return true
		}
	}
	return false
}
