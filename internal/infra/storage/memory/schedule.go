package memory

import (
	"context"
	"sort"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	scheduleRepo "github.com/m04kA/SMC-ConsultationService/internal/infra/storage/schedule"
)

type (
	slotRow    = domain.TimeSlot
	patternRow = domain.RecurringPattern
	blockedRow = domain.BlockedPeriod
)

// ScheduleRepository in-memory реализация репозитория расписания
type ScheduleRepository struct {
	store *Store
}

func (r *ScheduleRepository) CreateSlot(ctx context.Context, slot *domain.TimeSlot) (*domain.TimeSlot, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	row := *slot
	row.ID = s.id()
	row.CreatedAt = now
	row.UpdatedAt = now
	remember(ctx, s.slots, row.ID)
	s.slots[row.ID] = &row

	c := row
	return &c, nil
}

func (r *ScheduleRepository) GetSlotByID(_ context.Context, id int64) (*domain.TimeSlot, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.slots[id]
	if !ok {
		return nil, scheduleRepo.ErrSlotNotFound
	}
	c := *row
	return &c, nil
}

func (r *ScheduleRepository) ListSlots(_ context.Context, filter domain.SlotFilter) ([]*domain.TimeSlot, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*domain.TimeSlot, 0)
	for _, row := range s.slots {
		if row.ProviderID != filter.ProviderID {
			continue
		}
		if filter.Window != nil && !row.Interval().Overlaps(*filter.Window) {
			continue
		}
		if filter.IsBooked != nil && row.IsBooked != *filter.IsBooked {
			continue
		}
		c := *row
		result = append(result, &c)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartTime.Equal(result[j].StartTime) {
			return result[i].ID < result[j].ID
		}
		return result[i].StartTime.Before(result[j].StartTime)
	})

	return result, nil
}

func (r *ScheduleRepository) SetSlotBooked(ctx context.Context, id int64, booked bool) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.slots[id]
	if !ok {
		return scheduleRepo.ErrSlotNotFound
	}
	if row.IsBooked == booked {
		return scheduleRepo.ErrSlotStateConflict
	}
	remember(ctx, s.slots, id)
	row.IsBooked = booked
	row.UpdatedAt = s.now()
	return nil
}

func (r *ScheduleRepository) UpdateSlotWindow(ctx context.Context, id int64, window domain.Interval) (*domain.TimeSlot, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.slots[id]
	if !ok {
		return nil, scheduleRepo.ErrSlotNotFound
	}
	if row.IsBooked {
		return nil, scheduleRepo.ErrSlotStateConflict
	}
	remember(ctx, s.slots, id)
	row.StartTime = window.Start
	row.EndTime = window.End
	row.UpdatedAt = s.now()

	c := *row
	return &c, nil
}

func (r *ScheduleRepository) DeleteSlot(ctx context.Context, id int64, booked bool) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.slots[id]
	if !ok {
		return scheduleRepo.ErrSlotNotFound
	}
	if row.IsBooked != booked {
		return scheduleRepo.ErrSlotStateConflict
	}
	remember(ctx, s.slots, id)
	delete(s.slots, id)
	return nil
}

func (r *ScheduleRepository) DeleteUnbookedSlots(ctx context.Context, providerID int64, window domain.Interval) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, row := range s.slots {
		if row.ProviderID == providerID && !row.IsBooked && row.Interval().Overlaps(window) {
			remember(ctx, s.slots, id)
			delete(s.slots, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *ScheduleRepository) CreatePattern(ctx context.Context, pattern *domain.RecurringPattern) (*domain.RecurringPattern, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	row := *pattern
	row.ID = s.id()
	row.EffectiveUntil = copyPtr(pattern.EffectiveUntil)
	row.CreatedAt = now
	row.UpdatedAt = now
	remember(ctx, s.patterns, row.ID)
	s.patterns[row.ID] = &row

	return copyPattern(&row), nil
}

func (r *ScheduleRepository) GetPatternByID(_ context.Context, id int64) (*domain.RecurringPattern, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.patterns[id]
	if !ok {
		return nil, scheduleRepo.ErrPatternNotFound
	}
	return copyPattern(row), nil
}

func (r *ScheduleRepository) ListPatterns(_ context.Context, providerID *int64, activeOnly bool) ([]*domain.RecurringPattern, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*domain.RecurringPattern, 0)
	for _, row := range s.patterns {
		if providerID != nil && row.ProviderID != *providerID {
			continue
		}
		if activeOnly && !row.IsActive {
			continue
		}
		result = append(result, copyPattern(row))
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *ScheduleRepository) UpdatePattern(ctx context.Context, pattern *domain.RecurringPattern) (*domain.RecurringPattern, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.patterns[pattern.ID]
	if !ok {
		return nil, scheduleRepo.ErrPatternNotFound
	}
	remember(ctx, s.patterns, pattern.ID)
	row.StartTimeOfDay = pattern.StartTimeOfDay
	row.EndTimeOfDay = pattern.EndTimeOfDay
	row.SlotDurationMinutes = pattern.SlotDurationMinutes
	row.EffectiveFrom = pattern.EffectiveFrom
	row.EffectiveUntil = copyPtr(pattern.EffectiveUntil)
	row.IsActive = pattern.IsActive
	row.UpdatedAt = s.now()

	return copyPattern(row), nil
}

func (r *ScheduleRepository) DeactivatePattern(ctx context.Context, id int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.patterns[id]
	if !ok {
		return scheduleRepo.ErrPatternNotFound
	}
	remember(ctx, s.patterns, id)
	row.IsActive = false
	row.UpdatedAt = s.now()
	return nil
}

func (r *ScheduleRepository) CreateBlockedPeriod(ctx context.Context, period *domain.BlockedPeriod) (*domain.BlockedPeriod, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	row := *period
	row.ID = s.id()
	row.Reason = copyPtr(period.Reason)
	row.CreatedAt = s.now()
	remember(ctx, s.blocked, row.ID)
	s.blocked[row.ID] = &row

	return copyBlocked(&row), nil
}

func (r *ScheduleRepository) GetBlockedPeriodByID(_ context.Context, id int64) (*domain.BlockedPeriod, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.blocked[id]
	if !ok {
		return nil, scheduleRepo.ErrBlockedPeriodNotFound
	}
	return copyBlocked(row), nil
}

func (r *ScheduleRepository) ListBlockedPeriods(_ context.Context, providerID int64, window *domain.Interval) ([]*domain.BlockedPeriod, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*domain.BlockedPeriod, 0)
	for _, row := range s.blocked {
		if row.ProviderID != providerID {
			continue
		}
		if window != nil && !row.Interval().Overlaps(*window) {
			continue
		}
		result = append(result, copyBlocked(row))
	}

	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })
	return result, nil
}

func (r *ScheduleRepository) UpdateBlockedPeriod(ctx context.Context, period *domain.BlockedPeriod) (*domain.BlockedPeriod, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.blocked[period.ID]
	if !ok {
		return nil, scheduleRepo.ErrBlockedPeriodNotFound
	}
	remember(ctx, s.blocked, period.ID)
	row.StartTime = period.StartTime
	row.EndTime = period.EndTime
	row.Reason = copyPtr(period.Reason)

	return copyBlocked(row), nil
}

func (r *ScheduleRepository) DeleteBlockedPeriod(ctx context.Context, id int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blocked[id]; !ok {
		return scheduleRepo.ErrBlockedPeriodNotFound
	}
	remember(ctx, s.blocked, id)
	delete(s.blocked, id)
	return nil
}

func copyPattern(p *domain.RecurringPattern) *domain.RecurringPattern {
	c := *p
	c.EffectiveUntil = copyPtr(p.EffectiveUntil)
	return &c
}

func copyBlocked(b *domain.BlockedPeriod) *domain.BlockedPeriod {
	c := *b
	c.Reason = copyPtr(b.Reason)
	return &c
}
