package process_payment_event

import "errors"

var (
	// ErrInvalidInput возвращается при пустом событии
	ErrInvalidInput = errors.New("process_payment_event: invalid input data")

	// ErrCaptureFailed возвращается, когда платежная система не списала средства по заказу
	ErrCaptureFailed = errors.New("process_payment_event: capture failed")

	// ErrRetryLater возвращается, когда запись менялась параллельно; платежная система должна повторить событие
	ErrRetryLater = errors.New("process_payment_event: retry later")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("process_payment_event: internal error")
)
