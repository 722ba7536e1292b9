// Package domain содержит бизнес-сущности Payment Service.
package domain

import "errors"

// Доменные ошибки Payment Service.
// Проверяются через errors.Is — обработчики HTTP мапят их на статус-коды
// по таблице, без сравнения текстов.
var (
	// ErrPaymentNotFound — платёж не найден.
	ErrPaymentNotFound = errors.New("платёж не найден")

	// ErrNotRefundable — платёж не в статусе COMPLETED, возврат невозможен.
	ErrNotRefundable = errors.New("возврат возможен только для завершённого платежа")

	// ErrInvalidTransition — недопустимый переход состояния.
	ErrInvalidTransition = errors.New("недопустимый переход состояния платежа")

	// ErrInvalidAmount — некорректная сумма платежа.
	ErrInvalidAmount = errors.New("сумма платежа должна быть больше нуля")

	// ErrInvalidOrderID — некорректный ID заказа.
	ErrInvalidOrderID = errors.New("order_id должен быть больше нуля")

	// ErrInvalidUserID — некорректный ID пользователя.
	ErrInvalidUserID = errors.New("user_id должен быть больше нуля")

	// ErrInvalidPaymentMethod — неизвестный способ оплаты.
	ErrInvalidPaymentMethod = errors.New("неизвестный способ оплаты")

	// ErrGatewayFailure — платёжный шлюз отклонил операцию или недоступен.
	ErrGatewayFailure = errors.New("операция отклонена платёжным шлюзом")

	// ErrStateConflict — конкурентное изменение статуса платежа.
	// Возникает при CAS-обновлении: другой запрос успел изменить статус.
	ErrStateConflict = errors.New("статус платежа изменён конкурентным запросом")
)
