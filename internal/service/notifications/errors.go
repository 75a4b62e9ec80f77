package notifications

import "errors"

var (
	// ErrTemplateRender возвращается, когда письмо не удалось сформировать; отправка пропускается
	ErrTemplateRender = errors.New("notifications: template render error")

	// ErrDeliveryDeferred возвращается, когда транспорт не принял письмо
	ErrDeliveryDeferred = errors.New("notifications: delivery deferred")

	// ErrRecipientNotFound возвращается, когда не удалось получить адрес клиента
	ErrRecipientNotFound = errors.New("notifications: recipient not found")

	// ErrUnknownEvent возвращается для неподдерживаемого события
	ErrUnknownEvent = errors.New("notifications: unknown event")
)
