package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	"github.com/m04kA/SMC-ConsultationService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ConsultationService/pkg/psqlbuilder"
)

const slotsTable = "time_slots"

var slotColumns = []string{
	"id",
	"provider_id",
	"start_time",
	"end_time",
	"is_recurring_instance",
	"is_booked",
	"is_reservation",
	"created_at",
	"updated_at",
}

// Repository репозиторий расписания: слоты, шаблоны, блокировки
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория расписания
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// CreateSlot создает слот
func (r *Repository) CreateSlot(ctx context.Context, slot *domain.TimeSlot) (*domain.TimeSlot, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert(slotsTable).
		Columns("provider_id", "start_time", "end_time", "is_recurring_instance", "is_booked", "is_reservation").
		Values(slot.ProviderID, slot.StartTime, slot.EndTime, slot.IsRecurringInstance, slot.IsBooked, slot.IsReservation).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: CreateSlot - build insert query: %v", ErrBuildQuery, err)
	}

	err = executor.QueryRowContext(ctx, query, args...).Scan(&slot.ID, &slot.CreatedAt, &slot.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: CreateSlot - execute insert: %v", ErrExecQuery, err)
	}

	return slot, nil
}

// GetSlotByID получает слот по ID
func (r *Repository) GetSlotByID(ctx context.Context, id int64) (*domain.TimeSlot, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(slotColumns...).
		From(slotsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetSlotByID - build select query: %v", ErrBuildQuery, err)
	}

	slot, err := scanSlot(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetSlotByID - scan slot: %v", ErrScanRow, err)
	}

	return slot, nil
}

// ListSlots получает слоты специалиста по фильтру, отсортированные по началу
// В транзакции строки блокируются (FOR UPDATE)
func (r *Repository) ListSlots(ctx context.Context, filter domain.SlotFilter) ([]*domain.TimeSlot, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select(slotColumns...).
		From(slotsTable).
		Where(squirrel.Eq{"provider_id": filter.ProviderID})

	if filter.Window != nil {
		builder = builder.Where(squirrel.Lt{"start_time": filter.Window.End}).
			Where(squirrel.Gt{"end_time": filter.Window.Start})
	}
	if filter.IsBooked != nil {
		builder = builder.Where(squirrel.Eq{"is_booked": *filter.IsBooked})
	}

	builder = builder.OrderBy("start_time ASC", "id ASC")

	if dbmetrics.IsInTransaction(ctx) {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListSlots - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListSlots - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	slots := make([]*domain.TimeSlot, 0)
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: ListSlots - scan slot: %v", ErrScanRow, err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListSlots - rows error: %v", ErrScanRow, err)
	}

	return slots, nil
}

// SetSlotBooked переводит слот в состояние booked, если он сейчас в противоположном
// Возвращает ErrSlotStateConflict, если слот уже в требуемом состоянии
func (r *Repository) SetSlotBooked(ctx context.Context, id int64, booked bool) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(slotsTable).
		Set("is_booked", booked).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "is_booked": !booked}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: SetSlotBooked - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: SetSlotBooked - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: SetSlotBooked - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		if _, err := r.GetSlotByID(ctx, id); err != nil {
			return err
		}
		return ErrSlotStateConflict
	}

	return nil
}

// UpdateSlotWindow меняет границы свободного слота
// Возвращает ErrSlotStateConflict, если слот занят
func (r *Repository) UpdateSlotWindow(ctx context.Context, id int64, window domain.Interval) (*domain.TimeSlot, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(slotsTable).
		Set("start_time", window.Start).
		Set("end_time", window.End).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "is_booked": false}).
		Suffix("RETURNING " + strings.Join(slotColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: UpdateSlotWindow - build update query: %v", ErrBuildQuery, err)
	}

	slot, err := scanSlot(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := r.GetSlotByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrSlotStateConflict
	}
	if err != nil {
		return nil, fmt.Errorf("%w: UpdateSlotWindow - execute update: %v", ErrExecQuery, err)
	}

	return slot, nil
}

// DeleteSlot удаляет слот, если его занятость совпадает с booked
// Возвращает ErrSlotStateConflict, если слот в противоположном состоянии
func (r *Repository) DeleteSlot(ctx context.Context, id int64, booked bool) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete(slotsTable).
		Where(squirrel.Eq{"id": id, "is_booked": booked}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: DeleteSlot - build delete query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: DeleteSlot - execute delete: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: DeleteSlot - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		if _, err := r.GetSlotByID(ctx, id); err != nil {
			return err
		}
		return ErrSlotStateConflict
	}

	return nil
}

// DeleteUnbookedSlots удаляет свободные слоты специалиста, пересекающие окно
func (r *Repository) DeleteUnbookedSlots(ctx context.Context, providerID int64, window domain.Interval) (int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete(slotsTable).
		Where(squirrel.Eq{"provider_id": providerID, "is_booked": false}).
		Where(squirrel.Lt{"start_time": window.End}).
		Where(squirrel.Gt{"end_time": window.Start}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: DeleteUnbookedSlots - build delete query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: DeleteUnbookedSlots - execute delete: %v", ErrExecQuery, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: DeleteUnbookedSlots - get rows affected: %v", ErrExecQuery, err)
	}

	return deleted, nil
}

func scanSlot(row rowScanner) (*domain.TimeSlot, error) {
	var slot domain.TimeSlot
	err := row.Scan(
		&slot.ID,
		&slot.ProviderID,
		&slot.StartTime,
		&slot.EndTime,
		&slot.IsRecurringInstance,
		&slot.IsBooked,
		&slot.IsReservation,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}
