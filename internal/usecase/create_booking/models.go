package create_booking

import (
	"time"

	"github.com/m04kA/SMC-ConsultationService/internal/domain"
	"github.com/m04kA/SMC-ConsultationService/pkg/types"
)

// Config ограничения на время записи
type Config struct {
	AdvanceBookingDays      int            // 0 - без ограничений
	MinBookingNoticeMinutes int            // минимальное время до начала консультации
	Location                *time.Location // часовой пояс даты и времени в запросе
}

// Request модель запроса на создание записи
type Request struct {
	ClientID   int64                  // ID клиента
	ProviderID int64                  // ID специалиста
	Date       time.Time              // Дата консультации (без времени)
	StartTime  types.TimeString       // Время начала (например, "10:00")
	EndTime    *types.TimeString      // Время окончания; по умолчанию по длительности типа
	Type       domain.AppointmentType // Тип консультации
	Notes      *string                // Заметки клиента (опционально)
}

// Response модель ответа с созданной записью
type Response struct {
	ID              int64     // ID записи
	ClientID        int64     // ID клиента
	ProviderID      int64     // ID специалиста
	StartTime       time.Time // Начало консультации
	EndTime         time.Time // Окончание консультации
	DurationMinutes int       // Длительность в минутах
	Type            string    // Тип консультации
	Status          string    // Статус записи
	PaymentDeadline time.Time // Срок оплаты
	Notes           *string   // Заметки

	CreatedAt time.Time // Время создания
	UpdatedAt time.Time // Время обновления
}
