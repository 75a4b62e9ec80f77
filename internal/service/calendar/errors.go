package calendar

import "errors"

var (
	// ErrSlotUnavailable возвращается, когда окно нельзя забронировать
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrSlotNotFound возвращается, когда слот не найден
	ErrSlotNotFound = errors.New("slot not found")

	// ErrSlotBooked возвращается при попытке изменить или удалить занятый слот
	ErrSlotBooked = errors.New("slot is booked")

	// ErrPatternNotFound возвращается, когда шаблон расписания не найден
	ErrPatternNotFound = errors.New("recurring pattern not found")

	// ErrBlockedPeriodNotFound возвращается, когда период блокировки не найден
	ErrBlockedPeriodNotFound = errors.New("blocked period not found")

	// ErrInvalidTimeRange возвращается, когда конец окна не позже начала или диапазон слишком велик
	ErrInvalidTimeRange = errors.New("invalid time range")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("calendar: internal error")
)
