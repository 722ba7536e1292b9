package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"example.com/payment-service/internal/domain"
	"example.com/payment-service/pkg/circuitbreaker"
	"example.com/payment-service/pkg/config"
	"example.com/payment-service/pkg/logger"
	"example.com/payment-service/pkg/metrics"
)

// HTTPClient — клиент реального платёжного шлюза по HTTP.
// Все вызовы идут через Circuit Breaker: при серии отказов шлюза
// запросы отклоняются сразу, без ожидания таймаута.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	breaker *circuitbreaker.Breaker
}

// NewHTTPClient создаёт HTTP клиент шлюза.
func NewHTTPClient(cfg config.GatewayConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		breaker: circuitbreaker.New("payment-gateway"),
	}
}

// chargePayload — тело запроса на списание.
type chargePayload struct {
	OrderID        int64  `json:"orderId"`
	UserID         int64  `json:"userId"`
	Amount         string `json:"amount"`
	PaymentMethod  string `json:"paymentMethod"`
	CardNumber     string `json:"cardNumber,omitempty"`
	CardHolderName string `json:"cardHolderName,omitempty"`
	CVV            string `json:"cvv,omitempty"`
	ExpiryDate     string `json:"expiryDate,omitempty"`
}

// refundPayload — тело запроса на возврат.
type refundPayload struct {
	TransactionID string `json:"transactionId"`
	Amount        string `json:"amount"`
}

// gatewayResponse — ответ шлюза.
type gatewayResponse struct {
	TransactionID string `json:"transactionId"`
	Message       string `json:"message"`
}

// Charge списывает средства через HTTP API шлюза.
func (c *HTTPClient) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	payload := chargePayload{
		OrderID:        req.OrderID,
		UserID:         req.UserID,
		Amount:         req.Amount.String(),
		PaymentMethod:  string(req.PaymentMethod),
		CardNumber:     req.CardNumber,
		CardHolderName: req.CardHolderName,
		CVV:            req.CVV,
		ExpiryDate:     req.ExpiryDate,
	}

	return c.call(ctx, "charge", "/api/process", payload)
}

// Refund возвращает средства через HTTP API шлюза.
func (c *HTTPClient) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) (*ChargeResult, error) {
	payload := refundPayload{
		TransactionID: transactionID,
		Amount:        amount.String(),
	}

	return c.call(ctx, "refund", "/api/refund", payload)
}

// call выполняет POST запрос к шлюзу через Circuit Breaker.
func (c *HTTPClient) call(ctx context.Context, operation, path string, payload any) (*ChargeResult, error) {
	log := logger.Ctx(ctx)
	start := time.Now()

	var result *ChargeResult

	err := c.breaker.Do(func() error {
		body, err := json.Marshal(payload)
		if err != nil {
			return err
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return err
		}

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("шлюз вернул HTTP %d: %s", resp.StatusCode, respBody)
		}

		var gr gatewayResponse
		if err := json.Unmarshal(respBody, &gr); err != nil {
			return fmt.Errorf("некорректный ответ шлюза: %w", err)
		}

		result = &ChargeResult{
			TransactionID: gr.TransactionID,
			Message:       gr.Message,
		}
		return nil
	})

	if err != nil {
		metrics.RecordExternalCall("payment-gateway", operation, "error", time.Since(start))
		log.Warn().Err(err).Str("operation", operation).Msg("Ошибка вызова платёжного шлюза")
		return nil, fmt.Errorf("%w: %v", domain.ErrGatewayFailure, err)
	}

	metrics.RecordExternalCall("payment-gateway", operation, "success", time.Since(start))
	return result, nil
}
