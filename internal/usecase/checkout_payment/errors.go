package checkout_payment

import "errors"

var (
	// ErrAppointmentNotFound возвращается, когда запись не найдена
	ErrAppointmentNotFound = errors.New("checkout_payment: appointment not found")

	// ErrAccessDenied возвращается, когда запись принадлежит другому клиенту
	ErrAccessDenied = errors.New("checkout_payment: access denied")

	// ErrAlreadyPaid возвращается, когда запись уже оплачена
	ErrAlreadyPaid = errors.New("checkout_payment: appointment already paid")

	// ErrBookingExpired возвращается, когда запись отменена или срок оплаты истек
	ErrBookingExpired = errors.New("checkout_payment: booking expired")

	// ErrRetryLimitExceeded возвращается, когда исчерпан лимит попыток оплаты
	ErrRetryLimitExceeded = errors.New("checkout_payment: payment retry limit exceeded")

	// ErrUnsupportedMethod возвращается для неподключенного способа оплаты
	ErrUnsupportedMethod = errors.New("checkout_payment: payment method not supported")

	// ErrPriceNotConfigured возвращается, когда для типа консультации не задана цена
	ErrPriceNotConfigured = errors.New("checkout_payment: price not configured")

	// ErrGatewayFailed возвращается, когда платежная система отклонила платеж
	ErrGatewayFailed = errors.New("checkout_payment: payment gateway error")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("checkout_payment: internal error")
)
