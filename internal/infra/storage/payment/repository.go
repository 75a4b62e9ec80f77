package payment

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

const tableName = "payments"

var columns = []string{
	"id",
	"appointment_id",
	"client_id",
	"amount",
	"currency",
	"method",
	"status",
	"external_ref",
	"receipt_url",
	"error_message",
	"refund_of_payment_id",
	"created_at",
	"updated_at",
	"completed_at",
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// Repository репозиторий платежей
type Repository struct {
	db dbmetrics.DBExecutor
}

// NewRepository создает новый экземпляр репозитория платежей
func NewRepository(db dbmetrics.DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает запись о платеже или возврате
func (r *Repository) Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert(tableName).
		Columns(
			"appointment_id",
			"client_id",
			"amount",
			"currency",
			"method",
			"status",
			"external_ref",
			"refund_of_payment_id",
		).
		Values(
			p.AppointmentID,
			p.ClientID,
			p.Amount,
			p.Currency,
			p.Method,
			p.Status,
			p.ExternalRef,
			p.RefundOfPaymentID,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	err = executor.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	return p, nil
}

// GetByID получает платеж по ID (в транзакции с блокировкой строки)
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	return r.getOne(ctx, "GetByID", squirrel.Eq{"id": id})
}

// GetByExternalRef получает платеж по идентификатору платежной системы
func (r *Repository) GetByExternalRef(ctx context.Context, externalRef string) (*domain.Payment, error) {
	return r.getOne(ctx, "GetByExternalRef", squirrel.Eq{"external_ref": externalRef, "refund_of_payment_id": nil})
}

func (r *Repository) getOne(ctx context.Context, op string, where squirrel.Eq) (*domain.Payment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select(columns...).From(tableName).Where(where).Limit(1)
	if dbmetrics.IsInTransaction(ctx) {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %s - build select query: %v", ErrBuildQuery, op, err)
	}

	p, err := scanPayment(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s - scan payment: %v", ErrScanRow, op, err)
	}

	return p, nil
}

// ListByAppointment получает все платежи и возвраты по записи в порядке создания
func (r *Repository) ListByAppointment(ctx context.Context, appointmentID int64) ([]*domain.Payment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(columns...).
		From(tableName).
		Where(squirrel.Eq{"appointment_id": appointmentID}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListByAppointment - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListByAppointment - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	payments := make([]*domain.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: ListByAppointment - scan payment: %v", ErrScanRow, err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListByAppointment - rows error: %v", ErrScanRow, err)
	}

	return payments, nil
}

// SetExternalRef сохраняет идентификатор платежной системы для ожидающего платежа
func (r *Repository) SetExternalRef(ctx context.Context, id int64, externalRef string) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(tableName).
		Set("external_ref", externalRef).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": domain.PaymentPending}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: SetExternalRef - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: SetExternalRef - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: SetExternalRef - get rows affected: %v", ErrExecQuery, err)
	}
	if rowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrStatusConflict
	}

	return nil
}

// UpdateStatus меняет статус платежа, если текущий статус равен update.From
func (r *Repository) UpdateStatus(ctx context.Context, update domain.PaymentUpdate) (*domain.Payment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Update(tableName).
		Set("status", update.To).
		Set("updated_at", squirrel.Expr("NOW()"))

	if update.ExternalRef != nil {
		builder = builder.Set("external_ref", *update.ExternalRef)
	}
	if update.ReceiptURL != nil {
		builder = builder.Set("receipt_url", *update.ReceiptURL)
	}
	if update.ErrorMessage != nil {
		builder = builder.Set("error_message", *update.ErrorMessage)
	}
	if update.CompletedAt != nil {
		builder = builder.Set("completed_at", *update.CompletedAt)
	}

	query, args, err := builder.
		Where(squirrel.Eq{"id": update.ID, "status": update.From}).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: UpdateStatus - build update query: %v", ErrBuildQuery, err)
	}

	p, err := scanPayment(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, update.ID); getErr != nil {
			return nil, getErr
		}
		return nil, ErrStatusConflict
	}
	if err != nil {
		return nil, fmt.Errorf("%w: UpdateStatus - execute update: %v", ErrExecQuery, err)
	}

	return p, nil
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	var externalRef, receiptURL, errorMessage sql.NullString
	var refundOf sql.NullInt64
	var completedAt sql.NullTime

	err := row.Scan(
		&p.ID,
		&p.AppointmentID,
		&p.ClientID,
		&p.Amount,
		&p.Currency,
		&p.Method,
		&p.Status,
		&externalRef,
		&receiptURL,
		&errorMessage,
		&refundOf,
		&p.CreatedAt,
		&p.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if externalRef.Valid {
		p.ExternalRef = &externalRef.String
	}
	if receiptURL.Valid {
		p.ReceiptURL = &receiptURL.String
	}
	if errorMessage.Valid {
		p.ErrorMessage = &errorMessage.String
	}
	if refundOf.Valid {
		p.RefundOfPaymentID = &refundOf.Int64
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}

	return &p, nil
}
