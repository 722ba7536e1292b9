// Package service содержит бизнес-логику Payment Service.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"example.com/payment-service/internal/domain"
	"example.com/payment-service/internal/events"
	"example.com/payment-service/internal/gateway"
	"example.com/payment-service/internal/notification"
	"example.com/payment-service/internal/repository"
	"example.com/payment-service/pkg/logger"
	"example.com/payment-service/pkg/metrics"
	"example.com/payment-service/pkg/tracing"
)

// =============================================================================
// Интерфейс сервиса
// =============================================================================

// ProcessPaymentRequest — запрос на обработку платежа.
type ProcessPaymentRequest struct {
	OrderID       int64
	UserID        int64
	Amount        decimal.Decimal
	PaymentMethod domain.PaymentMethod

	// Реквизиты карты: передаются шлюзу, сервисом не сохраняются.
	CardNumber     string
	CardHolderName string
	CVV            string
	ExpiryDate     string
}

// PaymentService — интерфейс бизнес-логики платежей.
type PaymentService interface {
	// ProcessPayment выполняет полный workflow платежа:
	// PENDING -> PROCESSING -> COMPLETED/FAILED.
	// Каждый вызов создаёт независимую платёжную запись.
	// При отказе шлюза платёж сохраняется как FAILED и возвращается
	// ошибка, оборачивающая domain.ErrGatewayFailure.
	ProcessPayment(ctx context.Context, req ProcessPaymentRequest) (*domain.Payment, error)

	// RefundPayment выполняет возврат платежа: COMPLETED -> REFUNDED.
	// Возврат возможен только из COMPLETED (domain.ErrNotRefundable).
	// Если шлюз отклонил возврат — статус платежа не меняется.
	RefundPayment(ctx context.Context, paymentID int64) (*domain.Payment, error)

	// GetPayment возвращает платёж по ID.
	GetPayment(ctx context.Context, paymentID int64) (*domain.Payment, error)

	// GetPaymentsByOrder возвращает платежи заказа.
	GetPaymentsByOrder(ctx context.Context, orderID int64) ([]*domain.Payment, error)

	// GetPaymentsByUser возвращает платежи пользователя.
	GetPaymentsByUser(ctx context.Context, userID int64) ([]*domain.Payment, error)

	// GetPaymentsByStatus возвращает платежи в указанном статусе.
	GetPaymentsByStatus(ctx context.Context, status domain.PaymentStatus) ([]*domain.Payment, error)

	// GetAllPayments возвращает все платежи.
	GetAllPayments(ctx context.Context) ([]*domain.Payment, error)
}

// =============================================================================
// Реализация сервиса
// =============================================================================

// paymentService — реализация PaymentService.
type paymentService struct {
	repo      repository.PaymentRepository
	gateway   gateway.Client
	notifier  notification.Notifier
	publisher events.Publisher
}

// NewPaymentService создаёт новый сервис платежей.
func NewPaymentService(
	repo repository.PaymentRepository,
	gw gateway.Client,
	notifier notification.Notifier,
	publisher events.Publisher,
) PaymentService {
	return &paymentService{
		repo:      repo,
		gateway:   gw,
		notifier:  notifier,
		publisher: publisher,
	}
}

// ProcessPayment выполняет полный workflow обработки платежа.
func (s *paymentService) ProcessPayment(ctx context.Context, req ProcessPaymentRequest) (*domain.Payment, error) {
	ctx, span := tracing.Tracer().Start(ctx, "PaymentService.ProcessPayment",
		trace.WithAttributes(
			attribute.Int64("payment.order_id", req.OrderID),
			attribute.Int64("payment.user_id", req.UserID),
		))
	defer span.End()

	log := logger.Ctx(ctx)

	// 1. Создаём платёж в статусе PENDING
	payment := domain.NewPayment(req.OrderID, req.UserID, req.Amount, req.PaymentMethod)

	if err := payment.Validate(); err != nil {
		log.Warn().Err(err).Int64("order_id", req.OrderID).Msg("Невалидные данные платежа")
		return nil, err
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		log.Error().Err(err).Int64("order_id", req.OrderID).Msg("Ошибка создания платежа")
		return nil, fmt.Errorf("ошибка создания платежа: %w", err)
	}

	span.SetAttributes(attribute.Int64("payment.id", payment.ID))
	log.Info().
		Int64("payment_id", payment.ID).
		Int64("order_id", req.OrderID).
		Str("amount", req.Amount.String()).
		Msg("Платёж создан, отправляем в шлюз")

	// 2. Переводим в PROCESSING до обращения к шлюзу.
	// CAS на PENDING: если запись уже тронул кто-то ещё — останавливаемся.
	if err := payment.StartProcessing(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, payment, domain.PaymentStatusPending); err != nil {
		log.Error().Err(err).Int64("payment_id", payment.ID).Msg("Ошибка перевода платежа в PROCESSING")
		return nil, err
	}

	// 3. Списание средств через шлюз
	result, chargeErr := s.gateway.Charge(ctx, gateway.ChargeRequest{
		OrderID:        req.OrderID,
		UserID:         req.UserID,
		Amount:         req.Amount,
		PaymentMethod:  req.PaymentMethod,
		CardNumber:     req.CardNumber,
		CardHolderName: req.CardHolderName,
		CVV:            req.CVV,
		ExpiryDate:     req.ExpiryDate,
	})

	// 4. Фиксируем исход
	if chargeErr != nil {
		return s.failPayment(ctx, payment, chargeErr)
	}

	return s.completePayment(ctx, payment, result)
}

// completePayment фиксирует успешный платёж и рассылает уведомления/события.
func (s *paymentService) completePayment(ctx context.Context, payment *domain.Payment, result *gateway.ChargeResult) (*domain.Payment, error) {
	log := logger.Ctx(ctx)

	if err := payment.Complete(result.TransactionID, result.Message); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, payment, domain.PaymentStatusProcessing); err != nil {
		log.Error().Err(err).Int64("payment_id", payment.ID).Msg("Ошибка сохранения COMPLETED платежа")
		return nil, err
	}

	metrics.RecordPayment(string(domain.PaymentStatusCompleted))
	log.Info().
		Int64("payment_id", payment.ID).
		Str("transaction_id", result.TransactionID).
		Msg("Платёж успешно завершён")

	// Уведомления и события не влияют на результат платежа
	s.notifier.SendPaymentConfirmation(ctx, payment.ID, payment.UserID, payment.OrderID)
	if err := s.publisher.PaymentCompleted(ctx, payment); err != nil {
		log.Error().Err(err).Int64("payment_id", payment.ID).Msg("Ошибка публикации события payment.completed")
	}

	return payment, nil
}

// failPayment фиксирует отклонённый платёж и возвращает ошибку шлюза.
func (s *paymentService) failPayment(ctx context.Context, payment *domain.Payment, chargeErr error) (*domain.Payment, error) {
	log := logger.Ctx(ctx)

	if err := payment.Fail(chargeErr.Error()); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, payment, domain.PaymentStatusProcessing); err != nil {
		log.Error().Err(err).Int64("payment_id", payment.ID).Msg("Ошибка сохранения FAILED платежа")
		return nil, err
	}

	metrics.RecordPayment(string(domain.PaymentStatusFailed))
	log.Warn().
		Int64("payment_id", payment.ID).
		Err(chargeErr).
		Msg("Платёж отклонён шлюзом")

	s.notifier.SendPaymentFailure(ctx, payment.ID, payment.UserID, payment.OrderID)
	if err := s.publisher.PaymentFailed(ctx, payment); err != nil {
		log.Error().Err(err).Int64("payment_id", payment.ID).Msg("Ошибка публикации события payment.failed")
	}

	// chargeErr уже оборачивает domain.ErrGatewayFailure
	return nil, fmt.Errorf("обработка платежа %d не удалась: %w", payment.ID, chargeErr)
}

// RefundPayment выполняет возврат платежа.
func (s *paymentService) RefundPayment(ctx context.Context, paymentID int64) (*domain.Payment, error) {
	ctx, span := tracing.Tracer().Start(ctx, "PaymentService.RefundPayment",
		trace.WithAttributes(attribute.Int64("payment.id", paymentID)))
	defer span.End()

	log := logger.Ctx(ctx)

	// 1. Получаем платёж
	payment, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	// 2. Возврат возможен только из COMPLETED. Никаких побочных эффектов
	// для платежа в другом статусе.
	if payment.Status != domain.PaymentStatusCompleted {
		log.Warn().
			Int64("payment_id", paymentID).
			Str("status", string(payment.Status)).
			Msg("Возврат невозможен: платёж не завершён")
		return nil, domain.ErrNotRefundable
	}

	// 3. Возврат через шлюз. При отказе статус платежа не меняется.
	transactionID := ""
	if payment.TransactionID != nil {
		transactionID = *payment.TransactionID
	}

	result, refundErr := s.gateway.Refund(ctx, transactionID, payment.Amount)
	if refundErr != nil {
		log.Warn().
			Err(refundErr).
			Int64("payment_id", paymentID).
			Msg("Шлюз отклонил возврат, платёж остаётся COMPLETED")
		return nil, fmt.Errorf("возврат платежа %d не удался: %w", paymentID, refundErr)
	}

	// 4. Фиксируем REFUNDED. CAS на COMPLETED: при конкурентном возврате
	// выигрывает ровно один запрос, проигравший получает ErrStateConflict.
	if err := payment.MarkRefunded(result.Message); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, payment, domain.PaymentStatusCompleted); err != nil {
		if errors.Is(err, domain.ErrStateConflict) {
			log.Warn().Int64("payment_id", paymentID).Msg("Конкурентный возврат: статус уже изменён")
		}
		return nil, err
	}

	metrics.RecordPayment(string(domain.PaymentStatusRefunded))
	log.Info().
		Int64("payment_id", paymentID).
		Str("transaction_id", transactionID).
		Msg("Возврат платежа выполнен")

	s.notifier.SendRefundConfirmation(ctx, payment.ID, payment.UserID, payment.OrderID)
	if err := s.publisher.PaymentRefunded(ctx, payment); err != nil {
		log.Error().Err(err).Int64("payment_id", payment.ID).Msg("Ошибка публикации события payment.refunded")
	}

	return payment, nil
}

// GetPayment возвращает платёж по ID.
func (s *paymentService) GetPayment(ctx context.Context, paymentID int64) (*domain.Payment, error) {
	return s.repo.GetByID(ctx, paymentID)
}

// GetPaymentsByOrder возвращает платежи заказа.
func (s *paymentService) GetPaymentsByOrder(ctx context.Context, orderID int64) ([]*domain.Payment, error) {
	return s.repo.GetByOrderID(ctx, orderID)
}

// GetPaymentsByUser возвращает платежи пользователя.
func (s *paymentService) GetPaymentsByUser(ctx context.Context, userID int64) ([]*domain.Payment, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// GetPaymentsByStatus возвращает платежи в указанном статусе.
func (s *paymentService) GetPaymentsByStatus(ctx context.Context, status domain.PaymentStatus) ([]*domain.Payment, error) {
	return s.repo.GetByStatus(ctx, status)
}

// GetAllPayments возвращает все платежи.
func (s *paymentService) GetAllPayments(ctx context.Context) ([]*domain.Payment, error) {
	return s.repo.GetAll(ctx)
}
