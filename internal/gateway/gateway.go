// Package gateway содержит клиентов платёжного шлюза.
// Шлюз — внешний коллаборатор: реализация выбирается конфигурацией
// (симулятор для development, HTTP клиент для production).
package gateway

import (
	"context"

	"github.com/shopspring/decimal"

	"example.com/payment-service/internal/domain"
)

// ChargeRequest — запрос на списание средств.
type ChargeRequest struct {
	OrderID       int64
	UserID        int64
	Amount        decimal.Decimal
	PaymentMethod domain.PaymentMethod

	// Реквизиты карты. Передаются шлюзу как есть, сервис их не хранит.
	CardNumber     string
	CardHolderName string
	CVV            string
	ExpiryDate     string
}

// ChargeResult — результат успешного списания.
type ChargeResult struct {
	TransactionID string // ID транзакции шлюза (TXN_...)
	Message       string // Текстовый ответ шлюза
}

// Client — клиент платёжного шлюза.
// Charge и Refund возвращают ошибку, обёрнутую в domain.ErrGatewayFailure,
// если шлюз отклонил операцию или недоступен.
type Client interface {
	// Charge списывает средства. Блокирует до ответа шлюза или отмены контекста.
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)

	// Refund возвращает средства по транзакции.
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (*ChargeResult, error)
}
