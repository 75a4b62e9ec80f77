package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	"github.com/m04kA/SMC-ConsultationService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ConsultationService/pkg/psqlbuilder"
)

const patternsTable = "recurring_patterns"

var patternColumns = []string{
	"id",
	"provider_id",
	"weekday",
	"start_time_of_day",
	"end_time_of_day",
	"slot_duration_minutes",
	"effective_from",
	"effective_until",
	"is_active",
	"created_at",
	"updated_at",
}

// CreatePattern создает шаблон еженедельного расписания
func (r *Repository) CreatePattern(ctx context.Context, pattern *domain.RecurringPattern) (*domain.RecurringPattern, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert(patternsTable).
		Columns(
			"provider_id",
			"weekday",
			"start_time_of_day",
			"end_time_of_day",
			"slot_duration_minutes",
			"effective_from",
			"effective_until",
			"is_active",
		).
		Values(
			pattern.ProviderID,
			int(pattern.Weekday),
			pattern.StartTimeOfDay,
			pattern.EndTimeOfDay,
			pattern.SlotDurationMinutes,
			pattern.EffectiveFrom,
			pattern.EffectiveUntil,
			pattern.IsActive,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: CreatePattern - build insert query: %v", ErrBuildQuery, err)
	}

	err = executor.QueryRowContext(ctx, query, args...).Scan(&pattern.ID, &pattern.CreatedAt, &pattern.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: CreatePattern - execute insert: %v", ErrExecQuery, err)
	}

	return pattern, nil
}

// ListPatterns получает шаблоны; providerID == nil - всех специалистов
func (r *Repository) ListPatterns(ctx context.Context, providerID *int64, activeOnly bool) ([]*domain.RecurringPattern, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select(patternColumns...).From(patternsTable)
	if providerID != nil {
		builder = builder.Where(squirrel.Eq{"provider_id": *providerID})
	}
	if activeOnly {
		builder = builder.Where(squirrel.Eq{"is_active": true})
	}

	query, args, err := builder.OrderBy("provider_id ASC", "weekday ASC", "start_time_of_day ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListPatterns - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListPatterns - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	patterns := make([]*domain.RecurringPattern, 0)
	for rows.Next() {
		pattern, err := scanPattern(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: ListPatterns - scan pattern: %v", ErrScanRow, err)
		}
		patterns = append(patterns, pattern)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListPatterns - rows error: %v", ErrScanRow, err)
	}

	return patterns, nil
}

// GetPatternByID получает шаблон по ID
func (r *Repository) GetPatternByID(ctx context.Context, id int64) (*domain.RecurringPattern, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(patternColumns...).
		From(patternsTable).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetPatternByID - build select query: %v", ErrBuildQuery, err)
	}

	pattern, err := scanPattern(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatternNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetPatternByID - scan pattern: %v", ErrScanRow, err)
	}

	return pattern, nil
}

// UpdatePattern сохраняет изменяемые поля шаблона
func (r *Repository) UpdatePattern(ctx context.Context, pattern *domain.RecurringPattern) (*domain.RecurringPattern, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(patternsTable).
		Set("start_time_of_day", pattern.StartTimeOfDay).
		Set("end_time_of_day", pattern.EndTimeOfDay).
		Set("slot_duration_minutes", pattern.SlotDurationMinutes).
		Set("effective_from", pattern.EffectiveFrom).
		Set("effective_until", pattern.EffectiveUntil).
		Set("is_active", pattern.IsActive).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": pattern.ID}).
		Suffix("RETURNING " + strings.Join(patternColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: UpdatePattern - build update query: %v", ErrBuildQuery, err)
	}

	updated, err := scanPattern(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatternNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: UpdatePattern - execute update: %v", ErrExecQuery, err)
	}

	return updated, nil
}

// DeactivatePattern выключает шаблон; созданные по нему слоты остаются
func (r *Repository) DeactivatePattern(ctx context.Context, id int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(patternsTable).
		Set("is_active", false).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: DeactivatePattern - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: DeactivatePattern - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: DeactivatePattern - get rows affected: %v", ErrExecQuery, err)
	}
	if rowsAffected == 0 {
		return ErrPatternNotFound
	}

	return nil
}

func scanPattern(row rowScanner) (*domain.RecurringPattern, error) {
	var pattern domain.RecurringPattern
	var weekday int
	var effectiveUntil sql.NullTime

	err := row.Scan(
		&pattern.ID,
		&pattern.ProviderID,
		&weekday,
		&pattern.StartTimeOfDay,
		&pattern.EndTimeOfDay,
		&pattern.SlotDurationMinutes,
		&pattern.EffectiveFrom,
		&effectiveUntil,
		&pattern.IsActive,
		&pattern.CreatedAt,
		&pattern.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	pattern.Weekday = time.Weekday(weekday)
	if effectiveUntil.Valid {
		until := effectiveUntil.Time
		pattern.EffectiveUntil = &until
	}

	return &pattern, nil
}
