package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/payment-service/internal/domain"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, payment *domain.Payment) error {
	return m.Called(ctx, payment).Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	return nil, args.Error(1)
}

func (m *mockRepo) GetByOrderID(ctx context.Context, orderID int64) ([]*domain.Payment, error) {
	args := m.Called(ctx, orderID)
	return nil, args.Error(1)
}

func (m *mockRepo) GetByUserID(ctx context.Context, userID int64) ([]*domain.Payment, error) {
	args := m.Called(ctx, userID)
	return nil, args.Error(1)
}

func (m *mockRepo) GetByStatus(ctx context.Context, status domain.PaymentStatus) ([]*domain.Payment, error) {
	args := m.Called(ctx, status)
	return nil, args.Error(1)
}

func (m *mockRepo) GetAll(ctx context.Context) ([]*domain.Payment, error) {
	args := m.Called(ctx)
	return nil, args.Error(1)
}

func (m *mockRepo) Update(ctx context.Context, payment *domain.Payment, expectedStatus domain.PaymentStatus) error {
	return m.Called(ctx, payment, expectedStatus).Error(0)
}

func (m *mockRepo) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepo) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestLoad_EmptyDatabase(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)

	repo.On("Count", ctx).Return(int64(0), nil)

	var created []*domain.Payment
	repo.On("Create", ctx, mock.AnythingOfType("*domain.Payment")).
		Run(func(args mock.Arguments) {
			created = append(created, args.Get(1).(*domain.Payment))
		}).
		Return(nil)

	require.NoError(t, Load(ctx, repo))
	require.Len(t, created, 8)

	// Разные статусы присутствуют
	statuses := map[domain.PaymentStatus]int{}
	for _, p := range created {
		statuses[p.Status]++
	}
	assert.Equal(t, 4, statuses[domain.PaymentStatusCompleted])
	assert.Equal(t, 1, statuses[domain.PaymentStatusProcessing])
	assert.Equal(t, 1, statuses[domain.PaymentStatusPending])
	assert.Equal(t, 1, statuses[domain.PaymentStatusRefunded])
	assert.Equal(t, 1, statuses[domain.PaymentStatusFailed])

	first := created[0]
	assert.Equal(t, int64(1), first.OrderID)
	assert.Equal(t, "1479.97", first.Amount.String())
	require.NotNil(t, first.TransactionID)
	assert.Equal(t, "txn_john_gaming_001", *first.TransactionID)
}

func TestLoad_NonEmptyDatabase(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)

	repo.On("Count", ctx).Return(int64(42), nil)

	require.NoError(t, Load(ctx, repo))

	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLoad_CountError(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)

	dbErr := errors.New("connection refused")
	repo.On("Count", ctx).Return(int64(0), dbErr)

	assert.ErrorIs(t, Load(ctx, repo), dbErr)
}

func TestLoad_CreateError(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)

	repo.On("Count", ctx).Return(int64(0), nil)
	dbErr := errors.New("insert failed")
	repo.On("Create", ctx, mock.Anything).Return(dbErr)

	assert.ErrorIs(t, Load(ctx, repo), dbErr)
}
