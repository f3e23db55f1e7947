package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrValidation используется для ошибок валидации входных данных
	// и для структурных ошибок шаблона перед публикацией.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния
	// (например, claim на дату уже захвачен параллельным прогоном).
	ErrConflict = errors.New("resource state conflict")

	// ErrPublish используется при ошибке выгрузки артефакта в объектное хранилище.
	// Такой прогон безопасно повторять: usage commit к этому моменту еще не выполнен.
	ErrPublish = errors.New("artifact publish failed")
)
