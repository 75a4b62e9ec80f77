package manage_slots

import (
	"fmt"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
)

// CreateSlotsRequest HTTP request model
type CreateSlotsRequest struct {
	ProviderID int64        `json:"providerId" validate:"required,gt=0"`
	Slots      []SlotWindow `json:"slots" validate:"required,min=1,max=500,dive"`
}

// SlotWindow окно слота в формате RFC3339
type SlotWindow struct {
	StartTime string `json:"startTime" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
}

// GenerateSlotsRequest HTTP request model
type GenerateSlotsRequest struct {
	ProviderID int64  `json:"providerId" validate:"required,gt=0"`
	StartDate  string `json:"startDate" validate:"required"` // "2024-06-01"
	EndDate    string `json:"endDate" validate:"required"`   // включительно
}

// GenerateSlotsResponse HTTP response model
type GenerateSlotsResponse struct {
	ProviderID int64 `json:"providerId"`
	Created    int   `json:"created"`
}

// SlotResponse HTTP response model
type SlotResponse struct {
	ID          int64  `json:"id"`
	ProviderID  int64  `json:"providerId"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	IsRecurring bool   `json:"isRecurring"`
	IsBooked    bool   `json:"isBooked"`
}

// ToWindows конвертирует окна запроса в интервалы
func (r *CreateSlotsRequest) ToWindows() ([]domain.Interval, error) {
	windows := make([]domain.Interval, 0, len(r.Slots))
	for i, s := range r.Slots {
		w, err := s.ToInterval()
		if err != nil {
			return nil, fmt.Errorf("slots[%d]: %w", i, err)
		}
		windows = append(windows, w)
	}
	return windows, nil
}

// ToInterval конвертирует окно запроса в интервал
func (s *SlotWindow) ToInterval() (domain.Interval, error) {
	start, err := time.Parse(time.RFC3339, s.StartTime)
	if err != nil {
		return domain.Interval{}, fmt.Errorf("startTime: %w", err)
	}
	end, err := time.Parse(time.RFC3339, s.EndTime)
	if err != nil {
		return domain.Interval{}, fmt.Errorf("endTime: %w", err)
	}
	return domain.Interval{Start: start, End: end}, nil
}

// ToRange конвертирует даты запроса в полуоткрытый диапазон
func (r *GenerateSlotsRequest) ToRange(loc *time.Location) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation(domain.DateFormat, r.StartDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("startDate: %w", err)
	}
	to, err := time.ParseInLocation(domain.DateFormat, r.EndDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("endDate: %w", err)
	}
	return from, to.AddDate(0, 0, 1), nil
}

// FromDomainSlots конвертирует слоты в HTTP response
func FromDomainSlots(slots []*domain.TimeSlot, loc *time.Location) []SlotResponse {
	result := make([]SlotResponse, len(slots))
	for i, s := range slots {
		result[i] = SlotResponse{
			ID:          s.ID,
			ProviderID:  s.ProviderID,
			StartTime:   s.StartTime.In(loc).Format(time.RFC3339),
			EndTime:     s.EndTime.In(loc).Format(time.RFC3339),
			IsRecurring: s.IsRecurringInstance,
			IsBooked:    s.IsBooked,
		}
	}
	return result
}
