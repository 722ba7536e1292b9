package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayment(status PaymentStatus) *Payment {
	p := NewPayment(1, 2, decimal.NewFromFloat(99.99), PaymentMethodCreditCard)
	p.ID = 10
	p.Status = status
	return p
}

func TestNewPayment(t *testing.T) {
	p := NewPayment(5, 7, decimal.NewFromFloat(150.50), PaymentMethodPayPal)

	assert.Equal(t, PaymentStatusPending, p.Status)
	assert.Equal(t, int64(5), p.OrderID)
	assert.Equal(t, int64(7), p.UserID)
	assert.True(t, p.Amount.Equal(decimal.NewFromFloat(150.50)))
	assert.Nil(t, p.TransactionID)
	assert.False(t, p.PaymentDate.IsZero())
}

func TestPaymentStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   PaymentStatus
		terminal bool
	}{
		{PaymentStatusPending, false},
		{PaymentStatusProcessing, false},
		{PaymentStatusCompleted, false}, // COMPLETED не терминальный: возможен REFUNDED
		{PaymentStatusFailed, true},
		{PaymentStatusRefunded, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

func TestPaymentMethod_Valid(t *testing.T) {
	assert.True(t, PaymentMethodCreditCard.Valid())
	assert.True(t, PaymentMethodDigitalWallet.Valid())
	assert.False(t, PaymentMethod("BITCOIN").Valid())
	assert.False(t, PaymentMethod("").Valid())
}

func TestPayment_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		from    PaymentStatus
		to      PaymentStatus
		allowed bool
	}{
		{"PENDING -> PROCESSING", PaymentStatusPending, PaymentStatusProcessing, true},
		{"PENDING -> COMPLETED запрещён", PaymentStatusPending, PaymentStatusCompleted, false},
		{"PROCESSING -> COMPLETED", PaymentStatusProcessing, PaymentStatusCompleted, true},
		{"PROCESSING -> FAILED", PaymentStatusProcessing, PaymentStatusFailed, true},
		{"COMPLETED -> REFUNDED", PaymentStatusCompleted, PaymentStatusRefunded, true},
		{"COMPLETED -> PROCESSING запрещён", PaymentStatusCompleted, PaymentStatusProcessing, false},
		{"FAILED терминальный", PaymentStatusFailed, PaymentStatusPending, false},
		{"REFUNDED терминальный", PaymentStatusRefunded, PaymentStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPayment(tt.from)

			assert.Equal(t, tt.allowed, p.CanTransitionTo(tt.to))

			err := p.TransitionTo(tt.to)
			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, tt.to, p.Status)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
				assert.Equal(t, tt.from, p.Status, "статус не должен меняться при ошибке")
			}
		})
	}
}

func TestPayment_Complete(t *testing.T) {
	p := newTestPayment(PaymentStatusProcessing)

	err := p.Complete("TXN_ABC123", "Платёж успешно обработан")

	require.NoError(t, err)
	assert.Equal(t, PaymentStatusCompleted, p.Status)
	require.NotNil(t, p.TransactionID)
	assert.Equal(t, "TXN_ABC123", *p.TransactionID)
	require.NotNil(t, p.GatewayResponse)
}

func TestPayment_Complete_FromPending(t *testing.T) {
	p := newTestPayment(PaymentStatusPending)

	err := p.Complete("TXN_ABC123", "ok")

	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Nil(t, p.TransactionID, "TransactionID не должен устанавливаться при ошибке")
}

func TestPayment_Fail(t *testing.T) {
	p := newTestPayment(PaymentStatusProcessing)

	err := p.Fail("Недостаточно средств")

	require.NoError(t, err)
	assert.Equal(t, PaymentStatusFailed, p.Status)
	require.NotNil(t, p.GatewayResponse)
	assert.Nil(t, p.TransactionID)
}

func TestPayment_MarkRefunded(t *testing.T) {
	p := newTestPayment(PaymentStatusCompleted)

	err := p.MarkRefunded("Возврат выполнен")

	require.NoError(t, err)
	assert.Equal(t, PaymentStatusRefunded, p.Status)
}

func TestPayment_MarkRefunded_NotCompleted(t *testing.T) {
	for _, status := range []PaymentStatus{
		PaymentStatusPending, PaymentStatusProcessing, PaymentStatusFailed, PaymentStatusRefunded,
	} {
		t.Run(string(status), func(t *testing.T) {
			p := newTestPayment(status)
			err := p.MarkRefunded("возврат")
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestPayment_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Payment)
		wantErr error
	}{
		{"валидный платёж", func(p *Payment) {}, nil},
		{"нулевой order_id", func(p *Payment) { p.OrderID = 0 }, ErrInvalidOrderID},
		{"нулевой user_id", func(p *Payment) { p.UserID = 0 }, ErrInvalidUserID},
		{"нулевая сумма", func(p *Payment) { p.Amount = decimal.Zero }, ErrInvalidAmount},
		{"отрицательная сумма", func(p *Payment) { p.Amount = decimal.NewFromInt(-10) }, ErrInvalidAmount},
		{"неизвестный способ оплаты", func(p *Payment) { p.PaymentMethod = "BARTER" }, ErrInvalidPaymentMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPayment(1, 2, decimal.NewFromFloat(50), PaymentMethodDebitCard)
			tt.mutate(p)

			err := p.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
