package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"example.com/payment-service/internal/domain"
	"example.com/payment-service/pkg/logger"
)

// cacheKeyPrefix — префикс ключей кеша платежей в Redis.
const cacheKeyPrefix = "payment:cache:"

// cachedPayment — представление платежа в кеше.
// Отдельная структура, чтобы формат кеша не зависел от приватных полей домена.
type cachedPayment struct {
	ID              int64   `json:"id"`
	OrderID         int64   `json:"order_id"`
	UserID          int64   `json:"user_id"`
	Amount          string  `json:"amount"` // decimal сериализуем строкой без потери точности
	Status          string  `json:"status"`
	PaymentMethod   string  `json:"payment_method"`
	TransactionID   *string `json:"transaction_id,omitempty"`
	GatewayResponse *string `json:"gateway_response,omitempty"`
	PaymentDate     int64   `json:"payment_date"` // Unix nano
	UpdatedAt       int64   `json:"updated_at"`
}

// cachedPaymentRepository — декоратор PaymentRepository с read-through кешем в Redis.
// Кешируется только GetByID (горячий путь статусных опросов).
// Любая мутация платежа инвалидирует его ключ.
type cachedPaymentRepository struct {
	inner PaymentRepository
	rdb   *redis.Client
	ttl   time.Duration
}

// NewCachedPaymentRepository оборачивает репозиторий read-through кешем.
func NewCachedPaymentRepository(inner PaymentRepository, rdb *redis.Client, ttl time.Duration) PaymentRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &cachedPaymentRepository{inner: inner, rdb: rdb, ttl: ttl}
}

func cacheKey(id int64) string {
	return fmt.Sprintf("%s%d", cacheKeyPrefix, id)
}

// GetByID сначала смотрит в Redis, при промахе идёт в БД и кладёт результат в кеш.
// Ошибки Redis не фатальны: при недоступном кеше работаем напрямую с БД.
func (r *cachedPaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	key := cacheKey(id)

	data, err := r.rdb.Get(ctx, key).Bytes()
	if err == nil {
		if payment, unmarshalErr := unmarshalCached(data); unmarshalErr == nil {
			return payment, nil
		}
		// Битая запись в кеше — удаляем и читаем из БД
		r.rdb.Del(ctx, key)
	} else if err != redis.Nil {
		logger.Ctx(ctx).Warn().Err(err).Int64("payment_id", id).Msg("Redis недоступен, читаем из БД")
	}

	payment, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.storeInCache(ctx, payment)
	return payment, nil
}

// storeInCache кладёт платёж в Redis. Ошибки только логируются.
func (r *cachedPaymentRepository) storeInCache(ctx context.Context, payment *domain.Payment) {
	data, err := marshalCached(payment)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, cacheKey(payment.ID), data, r.ttl).Err(); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Int64("payment_id", payment.ID).Msg("Ошибка записи в кеш платежей")
	}
}

// invalidate удаляет платёж из кеша.
func (r *cachedPaymentRepository) invalidate(ctx context.Context, id int64) {
	if err := r.rdb.Del(ctx, cacheKey(id)).Err(); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Int64("payment_id", id).Msg("Ошибка инвалидации кеша платежей")
	}
}

// Create делегирует в БД. Кеш не трогаем: ключа для нового ID ещё нет.
func (r *cachedPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	return r.inner.Create(ctx, payment)
}

// Update делегирует в БД и инвалидирует кеш при успехе.
func (r *cachedPaymentRepository) Update(ctx context.Context, payment *domain.Payment, expectedStatus domain.PaymentStatus) error {
	if err := r.inner.Update(ctx, payment, expectedStatus); err != nil {
		return err
	}
	r.invalidate(ctx, payment.ID)
	return nil
}

// Delete делегирует в БД и инвалидирует кеш при успехе.
func (r *cachedPaymentRepository) Delete(ctx context.Context, id int64) error {
	if err := r.inner.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

// Списочные выборки не кешируются — делегируем напрямую.

func (r *cachedPaymentRepository) GetByOrderID(ctx context.Context, orderID int64) ([]*domain.Payment, error) {
	return r.inner.GetByOrderID(ctx, orderID)
}

func (r *cachedPaymentRepository) GetByUserID(ctx context.Context, userID int64) ([]*domain.Payment, error) {
	return r.inner.GetByUserID(ctx, userID)
}

func (r *cachedPaymentRepository) GetByStatus(ctx context.Context, status domain.PaymentStatus) ([]*domain.Payment, error) {
	return r.inner.GetByStatus(ctx, status)
}

func (r *cachedPaymentRepository) GetAll(ctx context.Context) ([]*domain.Payment, error) {
	return r.inner.GetAll(ctx)
}

func (r *cachedPaymentRepository) Count(ctx context.Context) (int64, error) {
	return r.inner.Count(ctx)
}

// =============================================================================
// Сериализация кеша
// =============================================================================

func marshalCached(p *domain.Payment) ([]byte, error) {
	return json.Marshal(cachedPayment{
		ID:              p.ID,
		OrderID:         p.OrderID,
		UserID:          p.UserID,
		Amount:          p.Amount.String(),
		Status:          string(p.Status),
		PaymentMethod:   string(p.PaymentMethod),
		TransactionID:   p.TransactionID,
		GatewayResponse: p.GatewayResponse,
		PaymentDate:     p.PaymentDate.UnixNano(),
		UpdatedAt:       p.UpdatedAt.UnixNano(),
	})
}

func unmarshalCached(data []byte) (*domain.Payment, error) {
	var c cachedPayment
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}

	amount, err := decimal.NewFromString(c.Amount)
	if err != nil {
		return nil, err
	}

	return &domain.Payment{
		ID:              c.ID,
		OrderID:         c.OrderID,
		UserID:          c.UserID,
		Amount:          amount,
		Status:          domain.PaymentStatus(c.Status),
		PaymentMethod:   domain.PaymentMethod(c.PaymentMethod),
		TransactionID:   c.TransactionID,
		GatewayResponse: c.GatewayResponse,
		PaymentDate:     time.Unix(0, c.PaymentDate),
		UpdatedAt:       time.Unix(0, c.UpdatedAt),
	}, nil
}
