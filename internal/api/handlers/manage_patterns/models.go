package manage_patterns

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	"github.com/m04kA/SMC-ConsultationService/pkg/types"
)

// CreatePatternRequest HTTP request model
// DayOfWeek в формате ISO: 1 - понедельник, 7 - воскресенье
type CreatePatternRequest struct {
	ProviderID          int64   `json:"providerId" validate:"required,gt=0"`
	DayOfWeek           int     `json:"dayOfWeek" validate:"required,min=1,max=7"`
	StartTime           string  `json:"startTime" validate:"required"` // "09:00"
	EndTime             string  `json:"endTime" validate:"required"`   // "18:00"
	SlotDurationMinutes int     `json:"slotDurationMinutes" validate:"required,min=5,max=480"`
	ValidFrom           string  `json:"validFrom" validate:"required"` // "2024-06-01"
	ValidUntil          *string `json:"validUntil,omitempty"`
}

// UpdatePatternRequest HTTP request model
// Отсутствующие поля не меняются
type UpdatePatternRequest struct {
	StartTime           *string `json:"startTime,omitempty"`
	EndTime             *string `json:"endTime,omitempty"`
	SlotDurationMinutes *int    `json:"slotDurationMinutes,omitempty" validate:"omitempty,min=5,max=480"`
	ValidFrom           *string `json:"validFrom,omitempty"`
	ValidUntil          *string `json:"validUntil,omitempty"`
	IsActive            *bool   `json:"isActive,omitempty"`
}

// PatternResponse HTTP response model
type PatternResponse struct {
	ID                  int64   `json:"id"`
	ProviderID          int64   `json:"providerId"`
	DayOfWeek           int     `json:"dayOfWeek"`
	StartTime           string  `json:"startTime"`
	EndTime             string  `json:"endTime"`
	SlotDurationMinutes int     `json:"slotDurationMinutes"`
	ValidFrom           string  `json:"validFrom"`
	ValidUntil          *string `json:"validUntil,omitempty"`
	IsActive            bool    `json:"isActive"`
}

// ToDomain конвертирует HTTP запрос в доменную модель
func (r *CreatePatternRequest) ToDomain(loc *time.Location) (*domain.RecurringPattern, error) {
	start, err := types.NewTimeStringFromString(r.StartTime)
	if err != nil {
		return nil, fmt.Errorf("startTime: %w", err)
	}
	end, err := types.NewTimeStringFromString(r.EndTime)
	if err != nil {
		return nil, fmt.Errorf("endTime: %w", err)
	}
	validFrom, err := time.ParseInLocation(domain.DateFormat, r.ValidFrom, loc)
	if err != nil {
		return nil, fmt.Errorf("validFrom: %w", err)
	}

	pattern := &domain.RecurringPattern{
		ProviderID:          r.ProviderID,
		Weekday:             time.Weekday(r.DayOfWeek % 7),
		StartTimeOfDay:      start,
		EndTimeOfDay:        end,
		SlotDurationMinutes: r.SlotDurationMinutes,
		EffectiveFrom:       validFrom,
	}

	if r.ValidUntil != nil {
		validUntil, err := time.ParseInLocation(domain.DateFormat, *r.ValidUntil, loc)
		if err != nil {
			return nil, fmt.Errorf("validUntil: %w", err)
		}
		pattern.EffectiveUntil = &validUntil
	}

	return pattern, nil
}

// ToDomain конвертирует HTTP запрос в частичное обновление шаблона
func (r *UpdatePatternRequest) ToDomain(loc *time.Location) (domain.PatternUpdate, error) {
	update := domain.PatternUpdate{
		SlotDurationMinutes: r.SlotDurationMinutes,
		IsActive:            r.IsActive,
	}

	if r.StartTime != nil {
		start, err := types.NewTimeStringFromString(*r.StartTime)
		if err != nil {
			return update, fmt.Errorf("startTime: %w", err)
		}
		update.StartTimeOfDay = &start
	}
	if r.EndTime != nil {
		end, err := types.NewTimeStringFromString(*r.EndTime)
		if err != nil {
			return update, fmt.Errorf("endTime: %w", err)
		}
		update.EndTimeOfDay = &end
	}
	if r.ValidFrom != nil {
		from, err := time.ParseInLocation(domain.DateFormat, *r.ValidFrom, loc)
		if err != nil {
			return update, fmt.Errorf("validFrom: %w", err)
		}
		update.EffectiveFrom = &from
	}
	if r.ValidUntil != nil {
		until, err := time.ParseInLocation(domain.DateFormat, *r.ValidUntil, loc)
		if err != nil {
			return update, fmt.Errorf("validUntil: %w", err)
		}
		update.EffectiveUntil = &until
	}

	return update, nil
}

// FromDomainPattern конвертирует шаблон в HTTP response
func FromDomainPattern(p *domain.RecurringPattern) PatternResponse {
	resp := PatternResponse{
		ID:                  p.ID,
		ProviderID:          p.ProviderID,
		DayOfWeek:           isoWeekday(p.Weekday),
		StartTime:           p.StartTimeOfDay.String(),
		EndTime:             p.EndTimeOfDay.String(),
		SlotDurationMinutes: p.SlotDurationMinutes,
		ValidFrom:           p.EffectiveFrom.Format(domain.DateFormat),
		IsActive:            p.IsActive,
	}
	if p.EffectiveUntil != nil {
		until := p.EffectiveUntil.Format(domain.DateFormat)
		resp.ValidUntil = &until
	}
	return resp
}

func isoWeekday(d time.Weekday) int {
	if d == time.Sunday {
		return 7
	}
	return int(d)
}
