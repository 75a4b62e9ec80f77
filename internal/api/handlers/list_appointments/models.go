package list_appointments

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	"github.com/m04kA/SMC-ConsultationService/internal/service/bookings/models"
)

// ToServiceRequest формирует запрос к сервису из query параметров
// from и to принимаются как YYYY-MM-DD (to включительно) или RFC3339
func ToServiceRequest(query url.Values, loc *time.Location) (*models.ListAppointmentsRequest, error) {
	req := &models.ListAppointmentsRequest{}

	// Парсим providerId если указан
	if s := query.Get("providerId"); s != "" {
		providerID, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid providerId: %w", err)
		}
		req.ProviderID = &providerID
	}

	// Парсим clientId если указан
	if s := query.Get("clientId"); s != "" {
		clientID, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid clientId: %w", err)
		}
		req.ClientID = &clientID
	}

	if s := query.Get("status"); s != "" {
		req.Status = &s
	}

	if s := query.Get("from"); s != "" {
		from, _, err := parseBound(s, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid from: %w", err)
		}
		req.From = &from
	}

	if s := query.Get("to"); s != "" {
		to, isDate, err := parseBound(s, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid to: %w", err)
		}
		if isDate {
			to = to.AddDate(0, 0, 1)
		}
		req.To = &to
	}

	return req, nil
}

func parseBound(s string, loc *time.Location) (time.Time, bool, error) {
	if date, err := time.ParseInLocation(domain.DateFormat, s, loc); err == nil {
		return date, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	return t, false, err
}
