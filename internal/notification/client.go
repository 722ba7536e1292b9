// Package notification содержит клиент Notification Service.
// Уведомления отправляются fire-and-forget: ошибка доставки логируется,
// но никогда не влияет на результат платежа.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"example.com/payment-service/pkg/config"
	"example.com/payment-service/pkg/logger"
	"example.com/payment-service/pkg/metrics"
)

// Notifier отправляет уведомления о событиях платежа.
// Методы не возвращают ошибку: доставка уведомлений best-effort.
type Notifier interface {
	SendPaymentConfirmation(ctx context.Context, paymentID, userID, orderID int64)
	SendPaymentFailure(ctx context.Context, paymentID, userID, orderID int64)
	SendRefundConfirmation(ctx context.Context, paymentID, userID, orderID int64)
}

// notificationPayload — тело webhook уведомления.
type notificationPayload struct {
	PaymentID int64 `json:"paymentId"`
	UserID    int64 `json:"userId"`
	OrderID   int64 `json:"orderId"`
}

// Client — HTTP клиент Notification Service.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient создаёт клиент Notification Service.
func NewClient(cfg config.NotificationConfig) *Client {
	return &Client{
		baseURL: cfg.URL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// SendPaymentConfirmation уведомляет об успешном платеже.
func (c *Client) SendPaymentConfirmation(ctx context.Context, paymentID, userID, orderID int64) {
	c.send(ctx, "payment_confirmation", "/api/notifications/payment-confirmation", paymentID, userID, orderID)
}

// SendPaymentFailure уведомляет о неудачном платеже.
func (c *Client) SendPaymentFailure(ctx context.Context, paymentID, userID, orderID int64) {
	c.send(ctx, "payment_failure", "/api/notifications/payment-failure", paymentID, userID, orderID)
}

// SendRefundConfirmation уведомляет о выполненном возврате.
func (c *Client) SendRefundConfirmation(ctx context.Context, paymentID, userID, orderID int64) {
	c.send(ctx, "refund_confirmation", "/api/notifications/refund-confirmation", paymentID, userID, orderID)
}

// send отправляет POST webhook. Ошибки логируются и проглатываются.
func (c *Client) send(ctx context.Context, operation, path string, paymentID, userID, orderID int64) {
	log := logger.Ctx(ctx)
	start := time.Now()

	status := "success"
	if err := c.post(ctx, path, notificationPayload{
		PaymentID: paymentID,
		UserID:    userID,
		OrderID:   orderID,
	}); err != nil {
		status = "error"
		log.Warn().
			Err(err).
			Int64("payment_id", paymentID).
			Str("notification", operation).
			Msg("Не удалось отправить уведомление")
	} else {
		log.Debug().
			Int64("payment_id", paymentID).
			Str("notification", operation).
			Msg("Уведомление отправлено")
	}

	metrics.RecordExternalCall("notification-service", operation, status, time.Since(start))
}

// post выполняет POST запрос с JSON телом.
func (c *Client) post(ctx context.Context, path string, payload notificationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Читаем тело до конца для переиспользования соединения
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notification service вернул HTTP %d", resp.StatusCode)
	}

	return nil
}
