package emaillog

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	"github.com/m04kA/SMC-ConsultationService/pkg/dbmetrics"
	"github.com/m04kA/SMC-ConsultationService/pkg/psqlbuilder"
)

const tableName = "email_logs"

var (
	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("emaillog.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("emaillog.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("emaillog.repository: failed to scan row")
)

// Repository журнал отправленных писем (только добавление)
type Repository struct {
	db dbmetrics.DBExecutor
}

// NewRepository создает новый экземпляр журнала писем
func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create добавляет запись в журнал
func (r *Repository) Create(ctx context.Context, entry *domain.EmailLog) (*domain.EmailLog, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert(tableName).
		Columns("appointment_id", "template_name", "subject", "recipient", "sent_at").
		Values(entry.AppointmentID, entry.TemplateName, entry.Subject, entry.Recipient, entry.SentAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	if err := executor.QueryRowContext(ctx, query, args...).Scan(&entry.ID); err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	return entry, nil
}

// ListByAppointment получает журнал писем по записи
func (r *Repository) ListByAppointment(ctx context.Context, appointmentID int64) ([]*domain.EmailLog, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("id", "appointment_id", "template_name", "subject", "recipient", "sent_at").
		From(tableName).
		Where(squirrel.Eq{"appointment_id": appointmentID}).
		OrderBy("sent_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListByAppointment - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListByAppointment - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	logs := make([]*domain.EmailLog, 0)
	for rows.Next() {
		var entry domain.EmailLog
		if err := rows.Scan(&entry.ID, &entry.AppointmentID, &entry.TemplateName, &entry.Subject, &entry.Recipient, &entry.SentAt); err != nil {
			return nil, fmt.Errorf("%w: ListByAppointment - scan entry: %v", ErrScanRow, err)
		}
		logs = append(logs, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListByAppointment - rows error: %v", ErrScanRow, err)
	}

	return logs, nil
}
