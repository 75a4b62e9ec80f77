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

const blockedTable = "blocked_periods"

var blockedColumns = []string{"id", "provider_id", "start_time", "end_time", "reason", "created_at"}

// CreateBlockedPeriod создает период недоступности специалиста
func (r *Repository) CreateBlockedPeriod(ctx context.Context, period *domain.BlockedPeriod) (*domain.BlockedPeriod, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert(blockedTable).
		Columns("provider_id", "start_time", "end_time", "reason").
		Values(period.ProviderID, period.StartTime, period.EndTime, period.Reason).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: CreateBlockedPeriod - build insert query: %v", ErrBuildQuery, err)
	}

	err = executor.QueryRowContext(ctx, query, args...).Scan(&period.ID, &period.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: CreateBlockedPeriod - execute insert: %v", ErrExecQuery, err)
	}

	return period, nil
}

// ListBlockedPeriods получает периоды блокировки; window == nil - все
func (r *Repository) ListBlockedPeriods(ctx context.Context, providerID int64, window *domain.Interval) ([]*domain.BlockedPeriod, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select(blockedColumns...).
		From(blockedTable).
		Where(squirrel.Eq{"provider_id": providerID})

	if window != nil {
		builder = builder.Where(squirrel.Lt{"start_time": window.End}).
			Where(squirrel.Gt{"end_time": window.Start})
	}

	query, args, err := builder.OrderBy("start_time ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListBlockedPeriods - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListBlockedPeriods - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	periods := make([]*domain.BlockedPeriod, 0)
	for rows.Next() {
		period, err := scanBlockedPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: ListBlockedPeriods - scan period: %v", ErrScanRow, err)
		}
		periods = append(periods, period)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListBlockedPeriods - rows error: %v", ErrScanRow, err)
	}

	return periods, nil
}

// GetBlockedPeriodByID получает период блокировки по ID
func (r *Repository) GetBlockedPeriodByID(ctx context.Context, id int64) (*domain.BlockedPeriod, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(blockedColumns...).
		From(blockedTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetBlockedPeriodByID - build select query: %v", ErrBuildQuery, err)
	}

	period, err := scanBlockedPeriod(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBlockedPeriodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetBlockedPeriodByID - scan period: %v", ErrScanRow, err)
	}

	return period, nil
}

// UpdateBlockedPeriod сохраняет границы и причину периода блокировки
func (r *Repository) UpdateBlockedPeriod(ctx context.Context, period *domain.BlockedPeriod) (*domain.BlockedPeriod, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(blockedTable).
		Set("start_time", period.StartTime).
		Set("end_time", period.EndTime).
		Set("reason", period.Reason).
		Where(squirrel.Eq{"id": period.ID}).
		Suffix("RETURNING " + strings.Join(blockedColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: UpdateBlockedPeriod - build update query: %v", ErrBuildQuery, err)
	}

	updated, err := scanBlockedPeriod(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBlockedPeriodNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: UpdateBlockedPeriod - execute update: %v", ErrExecQuery, err)
	}

	return updated, nil
}

// DeleteBlockedPeriod удаляет период блокировки
func (r *Repository) DeleteBlockedPeriod(ctx context.Context, id int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Delete(blockedTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: DeleteBlockedPeriod - build delete query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: DeleteBlockedPeriod - execute delete: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: DeleteBlockedPeriod - get rows affected: %v", ErrExecQuery, err)
	}
	if rowsAffected == 0 {
		return ErrBlockedPeriodNotFound
	}

	return nil
}

func scanBlockedPeriod(row rowScanner) (*domain.BlockedPeriod, error) {
	var period domain.BlockedPeriod
	var reason sql.NullString
	if err := row.Scan(&period.ID, &period.ProviderID, &period.StartTime, &period.EndTime, &reason, &period.CreatedAt); err != nil {
		return nil, err
	}
	if reason.Valid {
		text := reason.String
		period.Reason = &text
	}
	return &period, nil
}
