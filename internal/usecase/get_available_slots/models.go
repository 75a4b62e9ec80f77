package get_available_slots

import "time"

// DefaultDurationMinutes длительность окна, если она не указана в запросе
const DefaultDurationMinutes = 30

// Request модель запроса на получение доступных окон
type Request struct {
	ProviderID      int64     // ID специалиста
	From            time.Time // Начало диапазона
	To              time.Time // Конец диапазона (не включительно)
	DurationMinutes int       // Длительность консультации; 0 - DefaultDurationMinutes
}

// Response модель ответа со списком доступных окон
type Response struct {
	ProviderID      int64  // ID специалиста
	DurationMinutes int    // Длительность окна
	Slots           []Slot // Доступные окна по возрастанию начала
}

// Slot модель доступного окна
type Slot struct {
	StartTime           time.Time
	EndTime             time.Time
	IsRecurringInstance bool // окно из шаблона расписания
}
