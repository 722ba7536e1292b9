package gateway

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/payment-service/internal/domain"
	"example.com/payment-service/pkg/config"
)

// fastGatewayConfig — конфигурация без задержек для тестов.
func fastGatewayConfig(simulateFailures bool, failureRate float64) config.GatewayConfig {
	return config.GatewayConfig{
		Mode:              config.GatewayModeSimulated,
		SimulateFailures:  simulateFailures,
		FailureRate:       failureRate,
		RefundFailureRate: failureRate,
		ProcessingDelay:   0,
		RefundDelay:       0,
	}
}

func testChargeRequest() ChargeRequest {
	return ChargeRequest{
		OrderID:       5,
		UserID:        7,
		Amount:        decimal.NewFromFloat(99.99),
		PaymentMethod: domain.PaymentMethodCreditCard,
		CardNumber:    "4111111111111111",
	}
}

func TestSimulatedClient_Charge_Success(t *testing.T) {
	client := NewSimulatedClient(fastGatewayConfig(false, 0))

	result, err := client.Charge(context.Background(), testChargeRequest())

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.TransactionID, "TXN_"))
	assert.Len(t, result.TransactionID, 16, `"TXN_" + 12 символов UUID`)
	assert.NotEmpty(t, result.Message)
}

func TestSimulatedClient_Charge_Failure(t *testing.T) {
	// FailureRate = 1.0 — шлюз отклоняет все платежи
	client := NewSimulatedClient(fastGatewayConfig(true, 1.0))

	result, err := client.Charge(context.Background(), testChargeRequest())

	assert.ErrorIs(t, err, domain.ErrGatewayFailure)
	assert.Nil(t, result)
}

func TestSimulatedClient_Charge_DeterministicRand(t *testing.T) {
	// Фиксированный seed: первый roll известен заранее
	rnd := rand.New(rand.NewSource(1))
	first := rand.New(rand.NewSource(1)).Float64()

	// Порог чуть выше первого значения — платёж должен упасть
	client := NewSimulatedClientWithRand(fastGatewayConfig(true, first+0.001), rnd)

	_, err := client.Charge(context.Background(), testChargeRequest())
	assert.ErrorIs(t, err, domain.ErrGatewayFailure)
}

func TestSimulatedClient_Refund_Success(t *testing.T) {
	client := NewSimulatedClient(fastGatewayConfig(false, 0))

	result, err := client.Refund(context.Background(), "TXN_123456789abc", decimal.NewFromFloat(50))

	require.NoError(t, err)
	assert.Equal(t, "TXN_123456789abc", result.TransactionID)
}

func TestSimulatedClient_Refund_Failure(t *testing.T) {
	client := NewSimulatedClient(fastGatewayConfig(true, 1.0))

	_, err := client.Refund(context.Background(), "TXN_123456789abc", decimal.NewFromFloat(50))

	assert.ErrorIs(t, err, domain.ErrGatewayFailure)
}

func TestSimulatedClient_Charge_ContextCancelled(t *testing.T) {
	cfg := fastGatewayConfig(false, 0)
	cfg.ProcessingDelay = time.Second
	client := NewSimulatedClient(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := client.Charge(ctx, testChargeRequest())

	assert.ErrorIs(t, err, domain.ErrGatewayFailure)
	assert.Less(t, time.Since(start), 500*time.Millisecond,
		"отмена контекста должна прерывать задержку шлюза")
}

func TestNewTransactionID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newTransactionID()
		assert.False(t, seen[id], "ID транзакций должны быть уникальными")
		seen[id] = true
	}
}
