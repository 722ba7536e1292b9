package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/payment-service/internal/domain"
	"example.com/payment-service/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// mockPaymentService — мок service.PaymentService.
type mockPaymentService struct {
	mock.Mock
}

func (m *mockPaymentService) ProcessPayment(ctx context.Context, req service.ProcessPaymentRequest) (*domain.Payment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *mockPaymentService) RefundPayment(ctx context.Context, paymentID int64) (*domain.Payment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *mockPaymentService) GetPayment(ctx context.Context, paymentID int64) (*domain.Payment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *mockPaymentService) GetPaymentsByOrder(ctx context.Context, orderID int64) ([]*domain.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *mockPaymentService) GetPaymentsByUser(ctx context.Context, userID int64) ([]*domain.Payment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *mockPaymentService) GetPaymentsByStatus(ctx context.Context, status domain.PaymentStatus) ([]*domain.Payment, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *mockPaymentService) GetAllPayments(ctx context.Context) ([]*domain.Payment, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

// newTestRouter собирает роутер с моком сервиса, без JWT защиты.
func newTestRouter(svc service.PaymentService) *gin.Engine {
	return NewRouter(RouterConfig{
		PaymentHandler: NewPaymentHandler(svc),
	}).Engine()
}

func completedPayment(id int64) *domain.Payment {
	txn := "TXN_abc123def456"
	resp := "Платёж успешно обработан"
	return &domain.Payment{
		ID:              id,
		OrderID:         5,
		UserID:          7,
		Amount:          decimal.NewFromFloat(150.50),
		Status:          domain.PaymentStatusCompleted,
		PaymentMethod:   domain.PaymentMethodCreditCard,
		TransactionID:   &txn,
		GatewayResponse: &resp,
	}
}

func validRequestBody() map[string]any {
	return map[string]any{
		"orderId":        5,
		"userId":         7,
		"amount":         "150.50",
		"paymentMethod":  "CREDIT_CARD",
		"cardNumber":     "4111111111111111",
		"cardHolderName": "IVAN PETROV",
		"cvv":            "123",
		"expiryDate":     "12/27",
	}
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// =============================================================================
// POST /api/payments/process
// =============================================================================

func TestProcessPayment_OK(t *testing.T) {
	svc := new(mockPaymentService)
	svc.On("ProcessPayment", mock.Anything, mock.AnythingOfType("service.ProcessPaymentRequest")).
		Return(completedPayment(999), nil)

	w := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/payments/process", validRequestBody())

	// Успешная обработка возвращает 200 с платежом в теле
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 999, resp["id"])
	assert.EqualValues(t, 5, resp["orderId"])
	assert.EqualValues(t, 7, resp["userId"])
	assert.Equal(t, "COMPLETED", resp["status"])
	assert.Equal(t, "CREDIT_CARD", resp["paymentMethod"])
	assert.Equal(t, "TXN_abc123def456", resp["transactionId"])
}

func TestProcessPayment_ForwardsCardDetails(t *testing.T) {
	svc := new(mockPaymentService)

	var captured service.ProcessPaymentRequest
	svc.On("ProcessPayment", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(service.ProcessPaymentRequest)
		}).
		Return(completedPayment(999), nil)

	doJSON(t, newTestRouter(svc), http.MethodPost, "/api/payments/process", validRequestBody())

	assert.Equal(t, int64(5), captured.OrderID)
	assert.Equal(t, "4111111111111111", captured.CardNumber)
	assert.Equal(t, domain.PaymentMethodCreditCard, captured.PaymentMethod)
	assert.True(t, captured.Amount.Equal(decimal.NewFromFloat(150.50)))
}

func TestProcessPayment_MalformedJSON(t *testing.T) {
	svc := new(mockPaymentService)
	r := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/process", bytes.NewReader([]byte("{не json")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "ProcessPayment", mock.Anything, mock.Anything)
}

func TestProcessPayment_MissingRequiredFields(t *testing.T) {
	svc := new(mockPaymentService)

	body := validRequestBody()
	delete(body, "orderId")

	w := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/payments/process", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessPayment_NegativeAmount(t *testing.T) {
	svc := new(mockPaymentService)

	body := validRequestBody()
	body["amount"] = "-10.00"

	w := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/payments/process", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_error")
	svc.AssertNotCalled(t, "ProcessPayment", mock.Anything, mock.Anything)
}

func TestProcessPayment_UnknownMethod(t *testing.T) {
	svc := new(mockPaymentService)

	body := validRequestBody()
	body["paymentMethod"] = "BARTER"

	w := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/payments/process", body)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "BARTER")
}

func TestProcessPayment_GatewayDeclined(t *testing.T) {
	svc := new(mockPaymentService)
	svc.On("ProcessPayment", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("обработка платежа не удалась: %w", domain.ErrGatewayFailure))

	w := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/payments/process", validRequestBody())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "gateway_failure")
}

// =============================================================================
// GET /api/payments/:id
// =============================================================================

func TestGetPayment_OK(t *testing.T) {
	svc := new(mockPaymentService)
	svc.On("GetPayment", mock.Anything, int64(999)).Return(completedPayment(999), nil)

	w := doJSON(t, newTestRouter(svc), http.MethodGet, "/api/payments/999", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":999`)
}

func TestGetPayment_NotFound(t *testing.T) {
	svc := new(mockPaymentService)
	svc.On("GetPayment", mock.Anything, int64(999)).Return(nil, domain.ErrPaymentNotFound)

	w := doJSON(t, newTestRouter(svc), http.MethodGet, "/api/payments/999", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "not_found")
}

func TestGetPayment_InvalidID(t *testing.T) {
	svc := new(mockPaymentService)

	w := doJSON(t, newTestRouter(svc), http.MethodGet, "/api/payments/abc", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "GetPayment", mock.Anything, mock.Anything)
}

// =============================================================================
// POST /api/payments/:id/refund
// =============================================================================

func TestRefundPayment_OK(t *testing.T) {
	svc := new(mockPaymentService)

	refunded := completedPayment(999)
	refunded.Status = domain.PaymentStatusRefunded
	svc.On("RefundPayment", mock.Anything, int64(999)).Return(refunded, nil)

	w := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/payments/999/refund", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"REFUNDED"`)
}

func TestRefundPayment_NotRefundable(t *testing.T) {
	svc := new(mockPaymentService)
	svc.On("RefundPayment", mock.Anything, int64(999)).Return(nil, domain.ErrNotRefundable)

	w := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/payments/999/refund", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "not_refundable")
}

func TestRefundPayment_ConcurrentConflict(t *testing.T) {
	svc := new(mockPaymentService)
	svc.On("RefundPayment", mock.Anything, int64(999)).Return(nil, domain.ErrStateConflict)

	w := doJSON(t, newTestRouter(svc), http.MethodPost, "/api/payments/999/refund", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "state_conflict")
}

// =============================================================================
// Списки
// =============================================================================

func TestGetPaymentsByOrder_OK(t *testing.T) {
	svc := new(mockPaymentService)
	svc.On("GetPaymentsByOrder", mock.Anything, int64(5)).
		Return([]*domain.Payment{completedPayment(1), completedPayment(2)}, nil)

	w := doJSON(t, newTestRouter(svc), http.MethodGet, "/api/payments/order/5", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []PaymentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestGetPaymentsByUser_EmptyList(t *testing.T) {
	svc := new(mockPaymentService)
	svc.On("GetPaymentsByUser", mock.Anything, int64(7)).Return([]*domain.Payment{}, nil)

	w := doJSON(t, newTestRouter(svc), http.MethodGet, "/api/payments/user/7", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	// Пустой список сериализуется как [], не null
	assert.Equal(t, "[]", w.Body.String())
}

func TestListPayments_All(t *testing.T) {
	svc := new(mockPaymentService)
	svc.On("GetAllPayments", mock.Anything).
		Return([]*domain.Payment{completedPayment(1)}, nil)

	w := doJSON(t, newTestRouter(svc), http.MethodGet, "/api/payments", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertCalled(t, "GetAllPayments", mock.Anything)
}

func TestListPayments_StatusFilter(t *testing.T) {
	svc := new(mockPaymentService)
	svc.On("GetPaymentsByStatus", mock.Anything, domain.PaymentStatusFailed).
		Return([]*domain.Payment{}, nil)

	w := doJSON(t, newTestRouter(svc), http.MethodGet, "/api/payments?status=FAILED", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertCalled(t, "GetPaymentsByStatus", mock.Anything, domain.PaymentStatusFailed)
}

func TestListPayments_InvalidStatus(t *testing.T) {
	svc := new(mockPaymentService)

	w := doJSON(t, newTestRouter(svc), http.MethodGet, "/api/payments?status=BROKEN", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "GetPaymentsByStatus", mock.Anything, mock.Anything)
	svc.AssertNotCalled(t, "GetAllPayments", mock.Anything)
}

// =============================================================================
// Health endpoints
// =============================================================================

func TestHealthEndpoints(t *testing.T) {
	r := newTestRouter(new(mockPaymentService))

	for _, path := range []string{"/health", "/healthz", "/readyz"} {
		w := doJSON(t, r, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestReadyz_NotReady(t *testing.T) {
	r := NewRouter(RouterConfig{
		PaymentHandler: NewPaymentHandler(new(mockPaymentService)),
		ReadinessCheck: func(ctx context.Context) error {
			return fmt.Errorf("база недоступна")
		},
	}).Engine()

	w := doJSON(t, r, http.MethodGet, "/readyz", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
