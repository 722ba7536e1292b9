// Package events содержит события жизненного цикла платежа и их публикацию
// в Kafka через Outbox Pattern.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"example.com/payment-service/internal/domain"
	"example.com/payment-service/pkg/kafka"
	"example.com/payment-service/pkg/logger"
	"example.com/payment-service/pkg/outbox"
)

// Типы событий платежа.
const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentFailed    = "payment.failed"
	EventPaymentRefunded  = "payment.refunded"
)

// aggregateType — тип агрегата в outbox.
const aggregateType = "payment"

// PaymentEvent — событие платежа для внешних потребителей.
type PaymentEvent struct {
	EventType     string    `json:"eventType"`
	PaymentID     int64     `json:"paymentId"`
	OrderID       int64     `json:"orderId"`
	UserID        int64     `json:"userId"`
	Amount        string    `json:"amount"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transactionId,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Publisher публикует события платежа.
// Ошибка публикации не должна менять результат операции платежа.
type Publisher interface {
	PaymentCompleted(ctx context.Context, payment *domain.Payment) error
	PaymentFailed(ctx context.Context, payment *domain.Payment) error
	PaymentRefunded(ctx context.Context, payment *domain.Payment) error
}

// =============================================================================
// Outbox реализация
// =============================================================================

// outboxPublisher пишет события в таблицу outbox.
// Доставку в Kafka выполняет OutboxWorker (at-least-once).
type outboxPublisher struct {
	repo outbox.OutboxRepository
}

// NewOutboxPublisher создаёт publisher на основе outbox.
func NewOutboxPublisher(repo outbox.OutboxRepository) Publisher {
	return &outboxPublisher{repo: repo}
}

func (p *outboxPublisher) PaymentCompleted(ctx context.Context, payment *domain.Payment) error {
	return p.publish(ctx, EventPaymentCompleted, payment)
}

func (p *outboxPublisher) PaymentFailed(ctx context.Context, payment *domain.Payment) error {
	return p.publish(ctx, EventPaymentFailed, payment)
}

func (p *outboxPublisher) PaymentRefunded(ctx context.Context, payment *domain.Payment) error {
	return p.publish(ctx, EventPaymentRefunded, payment)
}

// publish сериализует событие и создаёт запись outbox.
func (p *outboxPublisher) publish(ctx context.Context, eventType string, payment *domain.Payment) error {
	event := fromPayment(eventType, payment)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("ошибка сериализации события: %w", err)
	}

	headers := map[string]string{
		kafka.HeaderEventType: eventType,
	}
	if traceID := logger.TraceIDFromContext(ctx); traceID != "" {
		headers[kafka.HeaderTraceID] = traceID
	}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		headers[kafka.HeaderCorrelationID] = correlationID
	}

	record := &outbox.Outbox{
		ID:            uuid.New().String(),
		AggregateType: aggregateType,
		AggregateID:   strconv.FormatInt(payment.ID, 10),
		EventType:     eventType,
		Topic:         kafka.TopicPaymentEvents,
		// Ключ = payment_id: события одного платежа попадают в одну партицию
		MessageKey: strconv.FormatInt(payment.ID, 10),
		Payload:    payload,
		Headers:    headers,
		CreatedAt:  time.Now(),
	}

	if err := p.repo.Create(ctx, record); err != nil {
		return fmt.Errorf("ошибка записи события в outbox: %w", err)
	}

	logger.Ctx(ctx).Debug().
		Str("event_type", eventType).
		Int64("payment_id", payment.ID).
		Msg("Событие платежа записано в outbox")

	return nil
}

// fromPayment строит событие из доменной сущности.
func fromPayment(eventType string, payment *domain.Payment) PaymentEvent {
	event := PaymentEvent{
		EventType:  eventType,
		PaymentID:  payment.ID,
		OrderID:    payment.OrderID,
		UserID:     payment.UserID,
		Amount:     payment.Amount.String(),
		Status:     string(payment.Status),
		OccurredAt: time.Now(),
	}
	if payment.TransactionID != nil {
		event.TransactionID = *payment.TransactionID
	}
	return event
}

// =============================================================================
// No-op реализация (Kafka отключена)
// =============================================================================

// noopPublisher используется когда брокеры Kafka не сконфигурированы.
type noopPublisher struct{}

// NewNoopPublisher возвращает publisher, который ничего не делает.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) PaymentCompleted(context.Context, *domain.Payment) error { return nil }
func (noopPublisher) PaymentFailed(context.Context, *domain.Payment) error    { return nil }
func (noopPublisher) PaymentRefunded(context.Context, *domain.Payment) error  { return nil }
