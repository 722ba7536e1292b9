package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"example.com/payment-service/internal/domain"
	"example.com/payment-service/pkg/config"
	"example.com/payment-service/pkg/logger"
	"example.com/payment-service/pkg/metrics"
)

// SimulatedClient — симулятор платёжного шлюза для development и тестов.
// Имитирует сетевые задержки и случайные отказы провайдера.
type SimulatedClient struct {
	cfg config.GatewayConfig

	mu  sync.Mutex
	rnd *rand.Rand // Инжектируемый источник случайности для детерминированных тестов
}

// NewSimulatedClient создаёт симулятор шлюза с настройками из конфигурации.
func NewSimulatedClient(cfg config.GatewayConfig) *SimulatedClient {
	return &SimulatedClient{
		cfg: cfg,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewSimulatedClientWithRand создаёт симулятор с фиксированным источником
// случайности. Используется в тестах.
func NewSimulatedClientWithRand(cfg config.GatewayConfig, rnd *rand.Rand) *SimulatedClient {
	return &SimulatedClient{cfg: cfg, rnd: rnd}
}

// Charge имитирует списание средств: задержка обработки + шанс отказа.
func (c *SimulatedClient) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	log := logger.Ctx(ctx)
	log.Debug().
		Int64("order_id", req.OrderID).
		Str("amount", req.Amount.String()).
		Msg("Симулятор шлюза: обработка платежа")

	start := time.Now()

	if err := c.sleep(ctx, c.cfg.ProcessingDelay); err != nil {
		metrics.RecordExternalCall("payment-gateway", "charge", "error", time.Since(start))
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayFailure, err)
	}

	if c.cfg.SimulateFailures && c.roll() < c.cfg.FailureRate {
		metrics.RecordExternalCall("payment-gateway", "charge", "error", time.Since(start))
		return nil, fmt.Errorf("%w: недостаточно средств или ошибка провайдера", domain.ErrGatewayFailure)
	}

	metrics.RecordExternalCall("payment-gateway", "charge", "success", time.Since(start))

	return &ChargeResult{
		TransactionID: newTransactionID(),
		Message:       "Платёж успешно обработан",
	}, nil
}

// Refund имитирует возврат средств: меньшая задержка и меньший шанс отказа.
func (c *SimulatedClient) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (*ChargeResult, error) {
	log := logger.Ctx(ctx)
	log.Debug().
		Str("transaction_id", transactionID).
		Str("amount", amount.String()).
		Msg("Симулятор шлюза: возврат платежа")

	start := time.Now()

	if err := c.sleep(ctx, c.cfg.RefundDelay); err != nil {
		metrics.RecordExternalCall("payment-gateway", "refund", "error", time.Since(start))
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayFailure, err)
	}

	if c.cfg.SimulateFailures && c.roll() < c.cfg.RefundFailureRate {
		metrics.RecordExternalCall("payment-gateway", "refund", "error", time.Since(start))
		return nil, fmt.Errorf("%w: провайдер отклонил возврат", domain.ErrGatewayFailure)
	}

	metrics.RecordExternalCall("payment-gateway", "refund", "success", time.Since(start))

	return &ChargeResult{
		TransactionID: transactionID,
		Message:       "Возврат успешно выполнен",
	}, nil
}

// sleep ждёт указанное время, прерываясь по отмене контекста.
func (c *SimulatedClient) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// roll возвращает случайное число [0, 1).
func (c *SimulatedClient) roll() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rnd.Float64()
}

// newTransactionID генерирует ID транзакции формата TXN_ + 12 символов UUID.
func newTransactionID() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "TXN_" + raw[:12]
}
