package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/payment-service/internal/domain"
	"example.com/payment-service/pkg/kafka"
	"example.com/payment-service/pkg/outbox"
)

// mockOutboxRepo — мок outbox.OutboxRepository.
type mockOutboxRepo struct {
	mock.Mock
}

func (m *mockOutboxRepo) Create(ctx context.Context, record *outbox.Outbox) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockOutboxRepo) GetUnprocessed(ctx context.Context, limit int) ([]*outbox.Outbox, error) {
	args := m.Called(ctx, limit)
	return nil, args.Error(1)
}

func (m *mockOutboxRepo) MarkProcessed(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockOutboxRepo) MarkFailed(ctx context.Context, id string, err error) error {
	return m.Called(ctx, id, err).Error(0)
}

func (m *mockOutboxRepo) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

func completedPayment() *domain.Payment {
	txn := "TXN_abc123def456"
	return &domain.Payment{
		ID:            999,
		OrderID:       5,
		UserID:        7,
		Amount:        decimal.NewFromFloat(150.50),
		Status:        domain.PaymentStatusCompleted,
		PaymentMethod: domain.PaymentMethodCreditCard,
		TransactionID: &txn,
	}
}

func TestOutboxPublisher_PaymentCompleted(t *testing.T) {
	ctx := context.Background()
	repo := new(mockOutboxRepo)
	pub := NewOutboxPublisher(repo)

	var captured *outbox.Outbox
	repo.On("Create", ctx, mock.AnythingOfType("*outbox.Outbox")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*outbox.Outbox)
		}).
		Return(nil)

	err := pub.PaymentCompleted(ctx, completedPayment())

	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, "payment", captured.AggregateType)
	assert.Equal(t, "999", captured.AggregateID)
	assert.Equal(t, EventPaymentCompleted, captured.EventType)
	assert.Equal(t, kafka.TopicPaymentEvents, captured.Topic)
	assert.Equal(t, "999", captured.MessageKey, "ключ партиционирования = payment_id")
	assert.Equal(t, EventPaymentCompleted, captured.Headers[kafka.HeaderEventType])
	assert.NotEmpty(t, captured.ID)

	// Проверяем payload
	var event PaymentEvent
	require.NoError(t, json.Unmarshal(captured.Payload, &event))
	assert.Equal(t, int64(999), event.PaymentID)
	assert.Equal(t, "150.5", event.Amount)
	assert.Equal(t, "COMPLETED", event.Status)
	assert.Equal(t, "TXN_abc123def456", event.TransactionID)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestOutboxPublisher_PaymentFailed_NoTransactionID(t *testing.T) {
	ctx := context.Background()
	repo := new(mockOutboxRepo)
	pub := NewOutboxPublisher(repo)

	payment := completedPayment()
	payment.Status = domain.PaymentStatusFailed
	payment.TransactionID = nil

	var captured *outbox.Outbox
	repo.On("Create", ctx, mock.AnythingOfType("*outbox.Outbox")).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(*outbox.Outbox)
		}).
		Return(nil)

	require.NoError(t, pub.PaymentFailed(ctx, payment))

	assert.Equal(t, EventPaymentFailed, captured.EventType)

	// transactionId опускается в JSON при отсутствии
	var raw map[string]any
	require.NoError(t, json.Unmarshal(captured.Payload, &raw))
	assert.NotContains(t, raw, "transactionId")
	assert.Equal(t, "FAILED", raw["status"])
}

func TestOutboxPublisher_PaymentRefunded(t *testing.T) {
	ctx := context.Background()
	repo := new(mockOutboxRepo)
	pub := NewOutboxPublisher(repo)

	payment := completedPayment()
	payment.Status = domain.PaymentStatusRefunded

	repo.On("Create", ctx, mock.AnythingOfType("*outbox.Outbox")).Return(nil)

	require.NoError(t, pub.PaymentRefunded(ctx, payment))
	repo.AssertExpectations(t)
}

func TestOutboxPublisher_CreateError(t *testing.T) {
	ctx := context.Background()
	repo := new(mockOutboxRepo)
	pub := NewOutboxPublisher(repo)

	dbErr := errors.New("db down")
	repo.On("Create", ctx, mock.AnythingOfType("*outbox.Outbox")).Return(dbErr)

	err := pub.PaymentCompleted(ctx, completedPayment())

	assert.ErrorIs(t, err, dbErr)
}

func TestNoopPublisher(t *testing.T) {
	pub := NewNoopPublisher()
	ctx := context.Background()
	payment := completedPayment()

	assert.NoError(t, pub.PaymentCompleted(ctx, payment))
	assert.NoError(t, pub.PaymentFailed(ctx, payment))
	assert.NoError(t, pub.PaymentRefunded(ctx, payment))
}
