// Package domain содержит бизнес-сущности Payment Service.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus — статус платежа в системе.
type PaymentStatus string

const (
	// PaymentStatusPending — платёж создан, ожидает обработки.
	PaymentStatusPending PaymentStatus = "PENDING"

	// PaymentStatusProcessing — платёж отправлен в платёжный шлюз.
	PaymentStatusProcessing PaymentStatus = "PROCESSING"

	// PaymentStatusCompleted — платёж успешно завершён шлюзом.
	PaymentStatusCompleted PaymentStatus = "COMPLETED"

	// PaymentStatusFailed — платёж не прошёл (отклонён шлюзом).
	PaymentStatusFailed PaymentStatus = "FAILED"

	// PaymentStatusRefunded — платёж возвращён.
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// IsTerminal возвращает true, если платёж в финальном состоянии.
// COMPLETED не терминальный — из него возможен переход в REFUNDED.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusFailed || s == PaymentStatusRefunded
}

// Valid возвращает true для известного статуса.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing,
		PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// =============================================================================
// Методы оплаты
// =============================================================================

// PaymentMethod — способ оплаты.
type PaymentMethod string

const (
	PaymentMethodCreditCard    PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard     PaymentMethod = "DEBIT_CARD"
	PaymentMethodPayPal        PaymentMethod = "PAYPAL"
	PaymentMethodBankTransfer  PaymentMethod = "BANK_TRANSFER"
	PaymentMethodDigitalWallet PaymentMethod = "DIGITAL_WALLET"
)

// Valid возвращает true для известного способа оплаты.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard,
		PaymentMethodPayPal, PaymentMethodBankTransfer, PaymentMethodDigitalWallet:
		return true
	}
	return false
}

// =============================================================================
// Допустимые переходы состояний (State Machine)
// =============================================================================

// allowedTransitions определяет валидные переходы состояний платежа.
var allowedTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing},
	PaymentStatusProcessing: {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted:  {PaymentStatusRefunded},
	// PaymentStatusFailed и PaymentStatusRefunded — терминальные состояния
}

// =============================================================================
// Payment — доменная сущность
// =============================================================================

// Payment — платёж в системе.
type Payment struct {
	ID              int64           // ID платежа (автоинкремент)
	OrderID         int64           // ID связанного заказа
	UserID          int64           // ID пользователя
	Amount          decimal.Decimal // Сумма платежа
	Status          PaymentStatus   // Текущий статус
	PaymentMethod   PaymentMethod   // Способ оплаты
	TransactionID   *string         // ID транзакции шлюза (при COMPLETED)
	GatewayResponse *string         // Текстовый ответ шлюза
	PaymentDate     time.Time       // Дата создания платежа
	UpdatedAt       time.Time       // Дата обновления
}

// NewPayment создаёт новый платёж в статусе PENDING.
func NewPayment(orderID, userID int64, amount decimal.Decimal, method PaymentMethod) *Payment {
	now := time.Now()
	return &Payment{
		OrderID:       orderID,
		UserID:        userID,
		Amount:        amount,
		Status:        PaymentStatusPending,
		PaymentMethod: method,
		PaymentDate:   now,
		UpdatedAt:     now,
	}
}

// CanTransitionTo проверяет, допустим ли переход в указанное состояние.
func (p *Payment) CanTransitionTo(newStatus PaymentStatus) bool {
	allowed, ok := allowedTransitions[p.Status]
	if !ok {
		return false // Терминальное состояние
	}
	for _, status := range allowed {
		if status == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo выполняет переход в новое состояние.
func (p *Payment) TransitionTo(newStatus PaymentStatus) error {
	if !p.CanTransitionTo(newStatus) {
		return ErrInvalidTransition
	}
	p.Status = newStatus
	p.UpdatedAt = time.Now()
	return nil
}

// StartProcessing переводит платёж в обработку шлюзом.
func (p *Payment) StartProcessing() error {
	return p.TransitionTo(PaymentStatusProcessing)
}

// Complete успешно завершает платёж с ID транзакции и ответом шлюза.
func (p *Payment) Complete(transactionID, gatewayResponse string) error {
	if err := p.TransitionTo(PaymentStatusCompleted); err != nil {
		return err
	}
	p.TransactionID = &transactionID
	p.GatewayResponse = &gatewayResponse
	return nil
}

// Fail помечает платёж как неудачный с ответом шлюза.
func (p *Payment) Fail(gatewayResponse string) error {
	if err := p.TransitionTo(PaymentStatusFailed); err != nil {
		return err
	}
	p.GatewayResponse = &gatewayResponse
	return nil
}

// MarkRefunded выполняет возврат платежа.
func (p *Payment) MarkRefunded(gatewayResponse string) error {
	if err := p.TransitionTo(PaymentStatusRefunded); err != nil {
		return err
	}
	p.GatewayResponse = &gatewayResponse
	return nil
}

// Validate проверяет корректность полей платежа.
func (p *Payment) Validate() error {
	if p.OrderID <= 0 {
		return ErrInvalidOrderID
	}
	if p.UserID <= 0 {
		return ErrInvalidUserID
	}
	if !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !p.PaymentMethod.Valid() {
		return ErrInvalidPaymentMethod
	}
	return nil
}
