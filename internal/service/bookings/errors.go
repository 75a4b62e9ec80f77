package bookings

import "errors"

var (
	// ErrAppointmentNotFound возвращается, когда запись не найдена
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrAccessDenied возвращается, когда у пользователя нет прав доступа
	ErrAccessDenied = errors.New("access denied")

	// ErrSlotUnavailable возвращается, когда окно уже занято или недоступно
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrAlreadyCancelled возвращается при повторной отмене
	ErrAlreadyCancelled = errors.New("appointment already cancelled")

	// ErrCannotCancel возвращается, когда запись уже завершена
	ErrCannotCancel = errors.New("appointment cannot be cancelled")

	// ErrCannotUpdate возвращается, когда клиент меняет завершенную или отмененную запись
	ErrCannotUpdate = errors.New("appointment cannot be updated")

	// ErrCancellationWindowClosed возвращается, когда до начала консультации осталось меньше окна отмены
	ErrCancellationWindowClosed = errors.New("cancellation window closed")

	// ErrStaleState возвращается, когда запись изменилась параллельно; нужно перечитать и повторить
	ErrStaleState = errors.New("appointment state changed, refresh and retry")

	// ErrBookingExpired возвращается, когда оплата пришла после истечения срока брони
	ErrBookingExpired = errors.New("booking expired")

	// ErrAlreadyPaid возвращается, когда запись уже оплачена
	ErrAlreadyPaid = errors.New("appointment already paid")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("bookings: internal error")
)
