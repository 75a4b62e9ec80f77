package memory

import (
	"context"
	"sort"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	paymentRepo "github.com/m04kA/SMC-ConsultationService/internal/infra/storage/payment"
)

type paymentRow = domain.Payment

// PaymentRepository in-memory реализация репозитория платежей
type PaymentRepository struct {
	store *Store
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	row := *copyPayment(p)
	row.ID = s.id()
	remember(ctx, s.payments, row.ID)
	row.CreatedAt = now
	row.UpdatedAt = now
	s.payments[row.ID] = &row

	return copyPayment(&row), nil
}

func (r *PaymentRepository) GetByID(_ context.Context, id int64) (*domain.Payment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.payments[id]
	if !ok {
		return nil, paymentRepo.ErrPaymentNotFound
	}
	return copyPayment(row), nil
}

func (r *PaymentRepository) GetByExternalRef(_ context.Context, externalRef string) (*domain.Payment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range s.payments {
		if row.ExternalRef != nil && *row.ExternalRef == externalRef && !row.IsRefund() {
			return copyPayment(row), nil
		}
	}
	return nil, paymentRepo.ErrPaymentNotFound
}

func (r *PaymentRepository) ListByAppointment(_ context.Context, appointmentID int64) ([]*domain.Payment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]*domain.Payment, 0)
	for _, row := range s.payments {
		if row.AppointmentID == appointmentID {
			result = append(result, copyPayment(row))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *PaymentRepository) SetExternalRef(ctx context.Context, id int64, externalRef string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.payments[id]
	if !ok {
		return paymentRepo.ErrPaymentNotFound
	}
	if row.Status != domain.PaymentPending {
		return paymentRepo.ErrStatusConflict
	}
	remember(ctx, s.payments, id)
	row.ExternalRef = &externalRef
	row.UpdatedAt = s.now()
	return nil
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, update domain.PaymentUpdate) (*domain.Payment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.payments[update.ID]
	if !ok {
		return nil, paymentRepo.ErrPaymentNotFound
	}
	if row.Status != update.From {
		return nil, paymentRepo.ErrStatusConflict
	}

	remember(ctx, s.payments, update.ID)
	row.Status = update.To
	row.UpdatedAt = s.now()
	if update.ExternalRef != nil {
		row.ExternalRef = copyPtr(update.ExternalRef)
	}
	if update.ReceiptURL != nil {
		row.ReceiptURL = copyPtr(update.ReceiptURL)
	}
	if update.ErrorMessage != nil {
		row.ErrorMessage = copyPtr(update.ErrorMessage)
	}
	if update.CompletedAt != nil {
		row.CompletedAt = copyPtr(update.CompletedAt)
	}

	return copyPayment(row), nil
}

func copyPayment(p *domain.Payment) *domain.Payment {
	c := *p
	c.ExternalRef = copyPtr(p.ExternalRef)
	c.ReceiptURL = copyPtr(p.ReceiptURL)
	c.ErrorMessage = copyPtr(p.ErrorMessage)
	c.RefundOfPaymentID = copyPtr(p.RefundOfPaymentID)
	c.CompletedAt = copyPtr(p.CompletedAt)
	return &c
}
