package manage_blocked_periods

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

// CreateBlockedPeriodRequest HTTP request model
type CreateBlockedPeriodRequest struct {
	ProviderID int64   `json:"providerId" validate:"required,gt=0"`
	StartTime  string  `json:"startTime" validate:"required"` // RFC3339
	EndTime    string  `json:"endTime" validate:"required"`   // RFC3339
	Reason     *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// UpdateBlockedPeriodRequest HTTP request model
// Отсутствующие поля не меняются
type UpdateBlockedPeriodRequest struct {
	StartTime *string `json:"startTime,omitempty"` // RFC3339
	EndTime   *string `json:"endTime,omitempty"`   // RFC3339
	Reason    *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// BlockedPeriodResponse HTTP response model
type BlockedPeriodResponse struct {
	ID           int64   `json:"id"`
	ProviderID   int64   `json:"providerId"`
	StartTime    string  `json:"startTime"`
	EndTime      string  `json:"endTime"`
	Reason       *string `json:"reason,omitempty"`
	RemovedSlots *int64  `json:"removedSlots,omitempty"`
	CreatedAt    string  `json:"createdAt"`
}

// ToDomain конвертирует HTTP запрос в доменную модель
func (r *CreateBlockedPeriodRequest) ToDomain() (*domain.BlockedPeriod, error) {
	start, err := time.Parse(time.RFC3339, r.StartTime)
	if err != nil {
		return nil, fmt.Errorf("startTime: %w", err)
	}
	end, err := time.Parse(time.RFC3339, r.EndTime)
	if err != nil {
		return nil, fmt.Errorf("endTime: %w", err)
	}
	return &domain.BlockedPeriod{
		ProviderID: r.ProviderID,
		StartTime:  start,
		EndTime:    end,
		Reason:     r.Reason,
	}, nil
}

// ToDomain конвертирует HTTP запрос в частичное обновление периода
func (r *UpdateBlockedPeriodRequest) ToDomain() (domain.BlockedPeriodUpdate, error) {
	update := domain.BlockedPeriodUpdate{Reason: r.Reason}
	if r.StartTime != nil {
		start, err := time.Parse(time.RFC3339, *r.StartTime)
		if err != nil {
			return update, fmt.Errorf("startTime: %w", err)
		}
		update.StartTime = &start
	}
	if r.EndTime != nil {
		end, err := time.Parse(time.RFC3339, *r.EndTime)
		if err != nil {
			return update, fmt.Errorf("endTime: %w", err)
		}
		update.EndTime = &end
	}
	return update, nil
}

// FromDomainBlockedPeriod конвертирует период в HTTP response
func FromDomainBlockedPeriod(p *domain.BlockedPeriod, loc *time.Location) BlockedPeriodResponse {
	return BlockedPeriodResponse{
		ID:         p.ID,
		ProviderID: p.ProviderID,
		StartTime:  p.StartTime.In(loc).Format(time.RFC3339),
		EndTime:    p.EndTime.In(loc).Format(time.RFC3339),
		Reason:     p.Reason,
		CreatedAt:  p.CreatedAt.Format(time.RFC3339),
	}
}
