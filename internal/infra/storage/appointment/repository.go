package appointment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	"github.com/m04kA/SMC-ConsultationService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ConsultationService/pkg/psqlbuilder"
)

const tableName = "appointments"

var columns = []string{
	"id",
	"client_id",
	"provider_id",
	"slot_id",
	"start_time",
	"end_time",
	"type",
	"status",
	"is_paid",
	"cancelled_by_admin",
	"reminder_sent",
	"meeting_url",
	"user_notes",
	"admin_notes",
	"cancellation_reason",
	"version",
	"created_at",
	"updated_at",
	"cancelled_at",
	"completed_at",
}

// Repository репозиторий записей на консультации
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория записей
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает запись с версией 1
// Если в контексте передана активная транзакция, использует её
func (r *Repository) Create(ctx context.Context, appt *domain.Appointment) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert(tableName).
		Columns(
			"client_id",
			"provider_id",
			"slot_id",
			"start_time",
			"end_time",
			"type",
			"status",
			"is_paid",
			"user_notes",
			"version",
		).
		Values(
			appt.ClientID,
			appt.ProviderID,
			appt.SlotID,
			appt.StartTime,
			appt.EndTime,
			appt.Type,
			appt.Status,
			appt.IsPaid,
			appt.UserNotes,
			1,
		).
		Suffix("RETURNING id, version, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&appt.ID,
		&appt.Version,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	return appt, nil
}

// GetByID получает запись по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select(columns...).
		From(tableName).
		Where(squirrel.Eq{"id": id})

	if dbmetrics.IsInTransaction(ctx) {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	appt, err := scanAppointment(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan appointment: %v", ErrScanRow, err)
	}

	return appt, nil
}

// GetWithFilter получает записи по фильтру, отсортированные по времени начала
//
// Примеры:
//   - активные записи специалиста в окне: ProviderID, Statuses: domain.ActiveStatuses, Window
//   - неоплаченные просроченные: Statuses: [pending_payment], CreatedBefore
//   - ожидающие напоминания: Statuses: [confirmed], StartFrom, StartTo, ReminderSent=false
func (r *Repository) GetWithFilter(ctx context.Context, filter domain.AppointmentFilter) ([]*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select(columns...).From(tableName)

	if filter.ClientID != nil {
		builder = builder.Where(squirrel.Eq{"client_id": *filter.ClientID})
	}
	if filter.ProviderID != nil {
		builder = builder.Where(squirrel.Eq{"provider_id": *filter.ProviderID})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		builder = builder.Where(squirrel.Eq{"status": statuses})
	}
	if filter.Window != nil {
		// [start_time, end_time) пересекает [from, to)
		builder = builder.Where(squirrel.Lt{"start_time": filter.Window.End}).
			Where(squirrel.Gt{"end_time": filter.Window.Start})
	}
	if filter.StartFrom != nil {
		builder = builder.Where(squirrel.GtOrEq{"start_time": *filter.StartFrom})
	}
	if filter.StartTo != nil {
		builder = builder.Where(squirrel.Lt{"start_time": *filter.StartTo})
	}
	if filter.EndBefore != nil {
		builder = builder.Where(squirrel.LtOrEq{"end_time": *filter.EndBefore})
	}
	if filter.CreatedBefore != nil {
		builder = builder.Where(squirrel.Lt{"created_at": *filter.CreatedBefore})
	}
	if filter.ReminderSent != nil {
		builder = builder.Where(squirrel.Eq{"reminder_sent": *filter.ReminderSent})
	}

	builder = builder.OrderBy("start_time ASC", "id ASC")

	if filter.ForUpdate && dbmetrics.IsInTransaction(ctx) {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetWithFilter - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetWithFilter - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	result := make([]*domain.Appointment, 0)
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: GetWithFilter - scan appointment: %v", ErrScanRow, err)
		}
		result = append(result, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: GetWithFilter - rows error: %v", ErrScanRow, err)
	}

	return result, nil
}

// Transition изменяет запись, если её статус и версия совпадают с ожидаемыми
// Возвращает ErrStaleState при несовпадении и ErrAppointmentNotFound, если записи нет
func (r *Repository) Transition(ctx context.Context, t domain.AppointmentTransition) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Update(tableName).
		Set("status", t.To).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()"))

	if t.IsPaid != nil {
		builder = builder.Set("is_paid", *t.IsPaid)
	}
	if t.CancelledByAdmin != nil {
		builder = builder.Set("cancelled_by_admin", *t.CancelledByAdmin)
	}
	if t.ReminderSent != nil {
		builder = builder.Set("reminder_sent", *t.ReminderSent)
	}
	if t.MeetingURL != nil {
		builder = builder.Set("meeting_url", *t.MeetingURL)
	}
	if t.CancellationReason != nil {
		builder = builder.Set("cancellation_reason", *t.CancellationReason)
	}
	if t.CancelledAt != nil {
		builder = builder.Set("cancelled_at", *t.CancelledAt)
	}
	if t.CompletedAt != nil {
		builder = builder.Set("completed_at", *t.CompletedAt)
	}
	if t.UserNotes != nil {
		builder = builder.Set("user_notes", *t.UserNotes)
	}
	if t.AdminNotes != nil {
		builder = builder.Set("admin_notes", *t.AdminNotes)
	}

	query, args, err := builder.
		Where(squirrel.Eq{"id": t.ID, "status": t.From, "version": t.Version}).
		Suffix("RETURNING " + joinColumns()).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Transition - build update query: %v", ErrBuildQuery, err)
	}

	appt, err := scanAppointment(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, t.ID); errors.Is(getErr, ErrAppointmentNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, ErrStaleState
	}
	if err != nil {
		return nil, fmt.Errorf("%w: Transition - execute update: %v", ErrExecQuery, err)
	}

	return appt, nil
}

func scanAppointment(row rowScanner) (*domain.Appointment, error) {
	var appt domain.Appointment
	var meetingURL, userNotes, adminNotes, reason sql.NullString
	var cancelledAt, completedAt sql.NullTime

	err := row.Scan(
		&appt.ID,
		&appt.ClientID,
		&appt.ProviderID,
		&appt.SlotID,
		&appt.StartTime,
		&appt.EndTime,
		&appt.Type,
		&appt.Status,
		&appt.IsPaid,
		&appt.CancelledByAdmin,
		&appt.ReminderSent,
		&meetingURL,
		&userNotes,
		&adminNotes,
		&reason,
		&appt.Version,
		&appt.CreatedAt,
		&appt.UpdatedAt,
		&cancelledAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	appt.MeetingURL = nullString(meetingURL)
	appt.UserNotes = nullString(userNotes)
	appt.AdminNotes = nullString(adminNotes)
	appt.CancellationReason = nullString(reason)
	appt.CancelledAt = nullTime(cancelledAt)
	appt.CompletedAt = nullTime(completedAt)

	return &appt, nil
}
