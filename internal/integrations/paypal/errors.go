package paypal

import "errors"

var (
	// ErrAuthFailed возвращается, когда PayPal не выдал access token
	ErrAuthFailed = errors.New("paypal: authentication failed")

	// ErrPaymentRejected возвращается, когда PayPal отклонил заказ или capture
	ErrPaymentRejected = errors.New("paypal: payment rejected")

	// ErrInvalidResponse возвращается при неожиданном ответе PayPal
	ErrInvalidResponse = errors.New("paypal: invalid response")

	// ErrInvalidSignature возвращается, когда токен webhook не совпал
	ErrInvalidSignature = errors.New("paypal: invalid webhook token")

	// ErrInvalidPayload возвращается при некорректном теле события
	ErrInvalidPayload = errors.New("paypal: invalid webhook payload")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("paypal: internal error")
)
