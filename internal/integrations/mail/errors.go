package mail

import "errors"

var (
	// ErrEnqueueFailed возвращается, когда письмо не удалось поставить в очередь
	ErrEnqueueFailed = errors.New("mail: enqueue failed")

	// ErrInvalidPayload возвращается при некорректной задаче отправки
	ErrInvalidPayload = errors.New("mail: invalid task payload")

	// ErrSendFailed возвращается, когда SMTP сервер не принял письмо
	ErrSendFailed = errors.New("mail: send failed")
)
