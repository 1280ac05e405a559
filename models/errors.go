package models

import "errors"

// Ошибки ядра. Обработчики транслируют их в HTTP-коды,
// само ядро ничего не повторяет и не откатывает - при ошибке
// состояние остается нетронутым.
var (
	// ErrInvalidStatus - целевой статус не входит в перечень допустимых.
	ErrInvalidStatus = errors.New("недопустимый статус")
	// ErrNotFound - абонент или запись задолженности не найдены в хранилище.
	ErrNotFound = errors.New("запись не найдена")
	// ErrInvalidAmount - отрицательная сумма платежа.
	ErrInvalidAmount = errors.New("недопустимая сумма")
)
