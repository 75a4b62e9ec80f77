package payments

import "errors"

var (
	// ErrPaymentNotFound возвращается, когда платеж не найден
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrAppointmentNotFound возвращается, когда запись не найдена
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrAlreadyPaid возвращается, когда запись уже оплачена
	ErrAlreadyPaid = errors.New("appointment already paid")

	// ErrBookingExpired возвращается, когда запись отменена или оплата пришла после срока брони
	ErrBookingExpired = errors.New("booking expired")

	// ErrRetryLimitExceeded возвращается, когда исчерпан лимит неуспешных попыток оплаты
	ErrRetryLimitExceeded = errors.New("payment retry limit exceeded")

	// ErrStaleState возвращается, когда запись продолжает меняться параллельно; оплату нужно подтвердить повторно
	ErrStaleState = errors.New("appointment state changed, retry payment confirmation")

	// ErrAccessDenied возвращается, когда у пользователя нет доступа к платежу
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidState возвращается, когда платеж находится в неподходящем статусе
	ErrInvalidState = errors.New("payment is in invalid state")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("payments: internal error")
)
