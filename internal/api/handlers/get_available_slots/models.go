package get_available_slots

import (
	"fmt"
	"strconv"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	getAvailableSlots "github.com/m04kA/SMC-ConsultationService/internal/usecase/get_available_slots"
)

// AvailableSlotsResponse HTTP response model
type AvailableSlotsResponse struct {
	ProviderID      int64           `json:"providerId"`
	DurationMinutes int             `json:"durationMinutes"`
	Slots           []AvailableSlot `json:"slots"`
}

// AvailableSlot модель доступного окна
type AvailableSlot struct {
	Date        string `json:"date"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	IsRecurring bool   `json:"isRecurring"`
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *getAvailableSlots.Response, loc *time.Location) *AvailableSlotsResponse {
	slots := make([]AvailableSlot, len(resp.Slots))
	for i, slot := range resp.Slots {
		start := slot.StartTime.In(loc)
		slots[i] = AvailableSlot{
			Date:        start.Format(domain.DateFormat),
			StartTime:   start.Format(time.RFC3339),
			EndTime:     slot.EndTime.In(loc).Format(time.RFC3339),
			IsRecurring: slot.IsRecurringInstance,
		}
	}

	return &AvailableSlotsResponse{
		ProviderID:      resp.ProviderID,
		DurationMinutes: resp.DurationMinutes,
		Slots:           slots,
	}
}

// ToUseCaseRequest создает запрос use case из query параметров
// from и to принимаются как YYYY-MM-DD (to включительно) или RFC3339
func ToUseCaseRequest(providerID int64, fromStr, toStr, durationStr string, loc *time.Location) (*getAvailableSlots.Request, error) {
	from, _, err := parseBound(fromStr, loc)
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	to, isDate, err := parseBound(toStr, loc)
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	if isDate {
		to = to.AddDate(0, 0, 1)
	}

	req := &getAvailableSlots.Request{
		ProviderID: providerID,
		From:       from,
		To:         to,
	}

	if durationStr != "" {
		duration, err := strconv.Atoi(durationStr)
		if err != nil {
			return nil, fmt.Errorf("duration: %w", err)
		}
		req.DurationMinutes = duration
	}

	return req, nil
}

func parseBound(s string, loc *time.Location) (time.Time, bool, error) {
	if date, err := time.ParseInLocation(domain.DateFormat, s, loc); err == nil {
		return date, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, false, nil
}
