package stripegateway

import "errors"

var (
	// ErrPaymentRejected возвращается, когда Stripe отклонил создание платежа
	ErrPaymentRejected = errors.New("stripe gateway: payment rejected")

	// ErrInvalidSignature возвращается, когда подпись webhook не прошла проверку
	ErrInvalidSignature = errors.New("stripe gateway: invalid webhook signature")

	// ErrInvalidPayload возвращается при некорректном теле события
	ErrInvalidPayload = errors.New("stripe gateway: invalid webhook payload")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("stripe gateway: internal error")
)
