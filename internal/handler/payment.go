package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"example.com/payment-service/internal/domain"
	"example.com/payment-service/internal/service"
	"example.com/payment-service/pkg/logger"
)

// PaymentHandler — обработчик платежей.
type PaymentHandler struct {
	paymentService service.PaymentService
}

// NewPaymentHandler создаёт новый обработчик платежей.
func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// === Request/Response DTOs ===

// ProcessPaymentRequest — запрос на обработку платежа.
type ProcessPaymentRequest struct {
	OrderID        int64           `json:"orderId" binding:"required,min=1"`
	UserID         int64           `json:"userId" binding:"required,min=1"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	PaymentMethod  string          `json:"paymentMethod" binding:"required"`
	CardNumber     string          `json:"cardNumber"`
	CardHolderName string          `json:"cardHolderName"`
	CVV            string          `json:"cvv"`
	ExpiryDate     string          `json:"expiryDate"`
}

// PaymentResponse — информация о платеже в ответе.
type PaymentResponse struct {
	ID              int64           `json:"id"`
	OrderID         int64           `json:"orderId"`
	UserID          int64           `json:"userId"`
	Amount          decimal.Decimal `json:"amount"`
	Status          string          `json:"status"`
	PaymentMethod   string          `json:"paymentMethod"`
	TransactionID   *string         `json:"transactionId,omitempty"`
	GatewayResponse *string         `json:"gatewayResponse,omitempty"`
	PaymentDate     time.Time       `json:"paymentDate"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// === Handlers ===

// ProcessPayment обрабатывает новый платёж.
// POST /api/payments/process
func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.Ctx(ctx)

	var req ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debug().Err(err).Msg("Невалидный запрос на обработку платежа")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Невалидные данные запроса",
		})
		return
	}

	// Валидация до вызова сервиса: понятная ошибка вместо generic 400
	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Сумма платежа должна быть положительной",
		})
		return
	}

	method := domain.PaymentMethod(req.PaymentMethod)
	if !method.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Неизвестный способ оплаты: " + req.PaymentMethod,
		})
		return
	}

	payment, err := h.paymentService.ProcessPayment(ctx, service.ProcessPaymentRequest{
		OrderID:        req.OrderID,
		UserID:         req.UserID,
		Amount:         req.Amount,
		PaymentMethod:  method,
		CardNumber:     req.CardNumber,
		CardHolderName: req.CardHolderName,
		CVV:            req.CVV,
		ExpiryDate:     req.ExpiryDate,
	})
	if err != nil {
		HandleDomainError(c, err, "ProcessPayment")
		return
	}

	log.Info().
		Int64("payment_id", payment.ID).
		Int64("order_id", payment.OrderID).
		Msg("Платёж обработан")

	c.JSON(http.StatusOK, paymentToResponse(payment))
}

// GetPayment возвращает платёж по ID.
// GET /api/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	ctx := c.Request.Context()

	paymentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	payment, err := h.paymentService.GetPayment(ctx, paymentID)
	if err != nil {
		HandleDomainError(c, err, "GetPayment")
		return
	}

	c.JSON(http.StatusOK, paymentToResponse(payment))
}

// GetPaymentsByOrder возвращает платежи заказа.
// GET /api/payments/order/:orderId
func (h *PaymentHandler) GetPaymentsByOrder(c *gin.Context) {
	ctx := c.Request.Context()

	orderID, ok := parseIDParam(c, "orderId")
	if !ok {
		return
	}

	payments, err := h.paymentService.GetPaymentsByOrder(ctx, orderID)
	if err != nil {
		HandleDomainError(c, err, "GetPaymentsByOrder")
		return
	}

	c.JSON(http.StatusOK, paymentsToResponse(payments))
}

// GetPaymentsByUser возвращает платежи пользователя.
// GET /api/payments/user/:userId
func (h *PaymentHandler) GetPaymentsByUser(c *gin.Context) {
	ctx := c.Request.Context()

	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	payments, err := h.paymentService.GetPaymentsByUser(ctx, userID)
	if err != nil {
		HandleDomainError(c, err, "GetPaymentsByUser")
		return
	}

	c.JSON(http.StatusOK, paymentsToResponse(payments))
}

// RefundPayment выполняет возврат платежа.
// POST /api/payments/:id/refund
func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.Ctx(ctx)

	paymentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	payment, err := h.paymentService.RefundPayment(ctx, paymentID)
	if err != nil {
		HandleDomainError(c, err, "RefundPayment")
		return
	}

	log.Info().
		Int64("payment_id", payment.ID).
		Msg("Возврат выполнен")

	c.JSON(http.StatusOK, paymentToResponse(payment))
}

// ListPayments возвращает все платежи с опциональным фильтром по статусу.
// GET /api/payments?status=COMPLETED
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	ctx := c.Request.Context()

	var payments []*domain.Payment
	var err error

	if statusStr := c.Query("status"); statusStr != "" {
		status := domain.PaymentStatus(statusStr)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "Неизвестный статус платежа: " + statusStr,
			})
			return
		}
		payments, err = h.paymentService.GetPaymentsByStatus(ctx, status)
	} else {
		payments, err = h.paymentService.GetAllPayments(ctx)
	}

	if err != nil {
		HandleDomainError(c, err, "ListPayments")
		return
	}

	c.JSON(http.StatusOK, paymentsToResponse(payments))
}

// === Helper functions ===

// parseIDParam парсит числовой path параметр.
// Возвращает false и отправляет 400, если параметр невалиден.
func parseIDParam(c *gin.Context, name string) (int64, bool) {
	value, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || value <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Параметр " + name + " должен быть положительным числом",
		})
		return 0, false
	}
	return value, true
}

// paymentToResponse преобразует доменную сущность в response DTO.
func paymentToResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:              p.ID,
		OrderID:         p.OrderID,
		UserID:          p.UserID,
		Amount:          p.Amount,
		Status:          string(p.Status),
		PaymentMethod:   string(p.PaymentMethod),
		TransactionID:   p.TransactionID,
		GatewayResponse: p.GatewayResponse,
		PaymentDate:     p.PaymentDate,
		UpdatedAt:       p.UpdatedAt,
	}
}

// paymentsToResponse преобразует список платежей.
func paymentsToResponse(payments []*domain.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i, p := range payments {
		out[i] = paymentToResponse(p)
	}
	return out
}
