package schedule

import "errors"

var (
	// ErrSlotNotFound возвращается, когда слот не найден
	ErrSlotNotFound = errors.New("schedule.repository: slot not found")

	// ErrSlotStateConflict возвращается, когда слот уже в требуемом состоянии занятости
	ErrSlotStateConflict = errors.New("schedule.repository: slot booking state conflict")

	// ErrPatternNotFound возвращается, когда шаблон расписания не найден
	ErrPatternNotFound = errors.New("schedule.repository: pattern not found")

	// ErrBlockedPeriodNotFound возвращается, когда период блокировки не найден
	ErrBlockedPeriodNotFound = errors.New("schedule.repository: blocked period not found")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("schedule.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("schedule.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("schedule.repository: failed to scan row")
)
