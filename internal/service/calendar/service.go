package calendar

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	scheduleRepo "github.com/m04kA/SMC-ConsultationService/internal/infra/storage/schedule"
)

// Service календарь специалистов: доступность окон и их резервирование
type Service struct {
	scheduleRepo    ScheduleRepository
	appointmentRepo AppointmentReader
	txManager       TransactionManager
	locks           KeyLocker
	timeProvider    TimeProvider
	location        *time.Location
	logger          Logger
}

// NewService создает новый экземпляр календаря
// location задает часовой пояс, в котором разворачиваются шаблоны расписания
func NewService(
	scheduleRepo ScheduleRepository,
	appointmentRepo AppointmentReader,
	txManager TransactionManager,
	locks KeyLocker,
	timeProvider TimeProvider,
	location *time.Location,
	logger Logger,
) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		scheduleRepo:    scheduleRepo,
		appointmentRepo: appointmentRepo,
		txManager:       txManager,
		locks:           locks,
		timeProvider:    timeProvider,
		location:        location,
		logger:          logger,
	}
}

// Location часовой пояс календаря
func (s *Service) Location() *time.Location {
	return s.location
}

// IsFree проверяет, можно ли забронировать окно [start, end)
// Окно свободно, если лежит внутри одного окна-кандидата, не пересекает блокировки,
// активные записи и занятые слоты
func (s *Service) IsFree(ctx context.Context, providerID int64, start, end time.Time) (bool, error) {
	window := domain.Interval{Start: start, End: end}
	if !window.IsValid() {
		return false, ErrInvalidTimeRange
	}

	snap, err := s.loadSnapshot(ctx, providerID, window)
	if err != nil {
		s.logger.Error("IsFree: provider=%d, window=%s-%s: %v", providerID, start, end, err)
		return false, err
	}

	_, ok := snap.covering()
	return ok, nil
}

// ListAvailable возвращает свободные окна специалиста в [from, to) по возрастанию начала
// Расписание читается один раз; окна вычисляются при переборе
func (s *Service) ListAvailable(ctx context.Context, providerID int64, from, to time.Time) (iter.Seq[domain.TimeSlot], error) {
	window := domain.Interval{Start: from, End: to}
	if !window.IsValid() {
		return nil, ErrInvalidTimeRange
	}

	snap, err := s.loadSnapshot(ctx, providerID, window)
	if err != nil {
		s.logger.Error("ListAvailable: provider=%d, range=%s-%s: %v", providerID, from, to, err)
		return nil, err
	}

	return snap.free(), nil
}

// Reserve атомарно проверяет и занимает окно, создавая занятый слот
// Проверка и запись выполняются под блокировками (специалист, локальная дата) всех дат,
// которых касается окно, в сериализуемой транзакции; при конфликте возвращается ErrSlotUnavailable.
// Окно, вырезанное из более крупного, сохраняется строкой-резервом, которая живет только пока занята
func (s *Service) Reserve(ctx context.Context, providerID int64, start, end time.Time) (*domain.TimeSlot, error) {
	window := domain.Interval{Start: start, End: end}
	if !window.IsValid() {
		return nil, ErrInvalidTimeRange
	}

	unlock := s.lockWindows(providerID, window)
	defer unlock()

	var reserved *domain.TimeSlot
	err := s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		snap, err := s.loadSnapshot(txCtx, providerID, window)
		if err != nil {
			return err
		}

		free, ok := snap.covering()
		if !ok {
			return ErrSlotUnavailable
		}

		// Окно совпадает со свободным слотом - занимаем его
		if free.ID != 0 {
			if err := s.scheduleRepo.SetSlotBooked(txCtx, free.ID, true); err != nil {
				if errors.Is(err, scheduleRepo.ErrSlotStateConflict) {
					return ErrSlotUnavailable
				}
				return fmt.Errorf("%w: Reserve - mark slot booked: %v", ErrInternal, err)
			}
			free.IsBooked = true
			reserved = &free
			return nil
		}

		created, err := s.scheduleRepo.CreateSlot(txCtx, &domain.TimeSlot{
			ProviderID:          providerID,
			StartTime:           start,
			EndTime:             end,
			IsRecurringInstance: free.IsRecurringInstance,
			IsReservation:       true,
			IsBooked:            true,
		})
		if err != nil {
			return fmt.Errorf("%w: Reserve - create slot: %v", ErrInternal, err)
		}
		reserved = created
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrSlotUnavailable) {
			s.logger.Warn("Reserve: window unavailable: provider=%d, window=%s-%s", providerID, start, end)
		} else {
			s.logger.Error("Reserve: provider=%d, window=%s-%s: %v", providerID, start, end, err)
		}
		return nil, err
	}

	s.logger.Info("Reserve: slot id=%d reserved for provider=%d, window=%s-%s", reserved.ID, providerID, start, end)
	return reserved, nil
}

// Release освобождает занятый слот; повторное освобождение не является ошибкой
// Строка-резерв удаляется, чтобы окно снова определялось только источником, из которого было вырезано
func (s *Service) Release(ctx context.Context, slotID int64) error {
	slot, err := s.scheduleRepo.GetSlotByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, scheduleRepo.ErrSlotNotFound) {
			s.logger.Warn("Release: slot id=%d not found", slotID)
			return ErrSlotNotFound
		}
		s.logger.Error("Release: slot id=%d: %v", slotID, err)
		return fmt.Errorf("%w: Release - get slot: %v", ErrInternal, err)
	}

	if slot.IsReservation {
		err = s.scheduleRepo.DeleteSlot(ctx, slotID, true)
	} else {
		err = s.scheduleRepo.SetSlotBooked(ctx, slotID, false)
	}
	switch {
	case err == nil:
		s.logger.Info("Release: slot id=%d released", slotID)
		return nil
	case errors.Is(err, scheduleRepo.ErrSlotStateConflict):
		return nil
	case errors.Is(err, scheduleRepo.ErrSlotNotFound):
		s.logger.Warn("Release: slot id=%d not found", slotID)
		return ErrSlotNotFound
	default:
		s.logger.Error("Release: slot id=%d: %v", slotID, err)
		return fmt.Errorf("%w: Release - repository error: %v", ErrInternal, err)
	}
}

// lockWindows берет блокировки всех пар (специалист, локальная дата), которых касаются окна
// Пересекающиеся окна всегда делят хотя бы одну дату; ключи берутся по возрастанию
func (s *Service) lockWindows(providerID int64, windows ...domain.Interval) (unlock func()) {
	seen := make(map[string]bool)
	keys := make([]string, 0, 2)
	for _, w := range windows {
		last := startOfDay(w.End.Add(-time.Nanosecond).In(s.location))
		for day := startOfDay(w.Start.In(s.location)); !day.After(last); day = day.AddDate(0, 0, 1) {
			key := fmt.Sprintf("%d:%s", providerID, day.Format(domain.DateFormat))
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)

	unlocks := make([]func(), 0, len(keys))
	for _, key := range keys {
		unlocks = append(unlocks, s.locks.Lock(key))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}
