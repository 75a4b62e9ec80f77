package get_available_slots

import "errors"

var (
	// ErrInvalidRange возвращается, когда диапазон пуст или превышает допустимый
	ErrInvalidRange = errors.New("invalid date range")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("usecase: internal error")
)
