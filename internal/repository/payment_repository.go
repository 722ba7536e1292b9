// Package repository содержит реализацию доступа к данным для Payment Service.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"example.com/payment-service/internal/domain"
)

// PaymentRepository определяет интерфейс для работы с платежами в БД.
type PaymentRepository interface {
	// Create создаёт новый платёж и заполняет его ID.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID возвращает платёж по ID.
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)

	// GetByOrderID возвращает платежи заказа.
	GetByOrderID(ctx context.Context, orderID int64) ([]*domain.Payment, error)

	// GetByUserID возвращает платежи пользователя.
	GetByUserID(ctx context.Context, userID int64) ([]*domain.Payment, error)

	// GetByStatus возвращает платежи в указанном статусе.
	GetByStatus(ctx context.Context, status domain.PaymentStatus) ([]*domain.Payment, error)

	// GetAll возвращает все платежи.
	GetAll(ctx context.Context) ([]*domain.Payment, error)

	// Update сохраняет платёж с CAS-проверкой статуса: строка обновляется
	// только если её текущий статус равен expectedStatus. Если строку успел
	// изменить конкурентный запрос — возвращается domain.ErrStateConflict.
	Update(ctx context.Context, payment *domain.Payment, expectedStatus domain.PaymentStatus) error

	// Delete удаляет платёж.
	Delete(ctx context.Context, id int64) error

	// Count возвращает количество платежей (используется seed loader'ом).
	Count(ctx context.Context) (int64, error)
}

// =============================================================================
// GORM модель
// =============================================================================

// PaymentModel — GORM модель для таблицы payments.
type PaymentModel struct {
	ID              int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID         int64           `gorm:"column:order_id;not null;index"`
	UserID          int64           `gorm:"column:user_id;not null;index"`
	Amount          decimal.Decimal `gorm:"column:amount;type:decimal(12,2);not null"`
	Status          string          `gorm:"column:status;type:varchar(20);not null;index"`
	PaymentMethod   string          `gorm:"column:payment_method;type:varchar(20);not null"`
	TransactionID   *string         `gorm:"column:transaction_id;type:varchar(50)"`
	GatewayResponse *string         `gorm:"column:gateway_response;type:text"`
	PaymentDate     time.Time       `gorm:"column:payment_date;not null"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName возвращает имя таблицы в БД.
func (PaymentModel) TableName() string {
	return "payments"
}

// toDomain конвертирует GORM модель в доменную сущность.
func (m *PaymentModel) toDomain() *domain.Payment {
	return &domain.Payment{
		ID:              m.ID,
		OrderID:         m.OrderID,
		UserID:          m.UserID,
		Amount:          m.Amount,
		Status:          domain.PaymentStatus(m.Status),
		PaymentMethod:   domain.PaymentMethod(m.PaymentMethod),
		TransactionID:   m.TransactionID,
		GatewayResponse: m.GatewayResponse,
		PaymentDate:     m.PaymentDate,
		UpdatedAt:       m.UpdatedAt,
	}
}

// paymentModelFromDomain конвертирует доменную сущность в GORM модель.
func paymentModelFromDomain(p *domain.Payment) *PaymentModel {
	return &PaymentModel{
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

// =============================================================================
// Реализация репозитория
// =============================================================================

// paymentRepository — GORM реализация PaymentRepository.
type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository создаёт новый репозиторий платежей.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create создаёт новый платёж.
func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	model := paymentModelFromDomain(payment)

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}

	// Обновляем ID и timestamps в доменной сущности
	payment.ID = model.ID
	payment.UpdatedAt = model.UpdatedAt

	return nil
}

// GetByID возвращает платёж по ID.
func (r *paymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	var model PaymentModel

	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}

	return model.toDomain(), nil
}

// GetByOrderID возвращает платежи заказа, новые первыми.
func (r *paymentRepository) GetByOrderID(ctx context.Context, orderID int64) ([]*domain.Payment, error) {
	return r.findAll(ctx, "order_id = ?", orderID)
}

// GetByUserID возвращает платежи пользователя, новые первыми.
func (r *paymentRepository) GetByUserID(ctx context.Context, userID int64) ([]*domain.Payment, error) {
	return r.findAll(ctx, "user_id = ?", userID)
}

// GetByStatus возвращает платежи в указанном статусе.
func (r *paymentRepository) GetByStatus(ctx context.Context, status domain.PaymentStatus) ([]*domain.Payment, error) {
	return r.findAll(ctx, "status = ?", string(status))
}

// GetAll возвращает все платежи, новые первыми.
func (r *paymentRepository) GetAll(ctx context.Context) ([]*domain.Payment, error) {
	return r.findAll(ctx, "")
}

// findAll выполняет выборку платежей по условию.
func (r *paymentRepository) findAll(ctx context.Context, query string, args ...any) ([]*domain.Payment, error) {
	var models []PaymentModel

	tx := r.db.WithContext(ctx).Order("payment_date DESC")
	if query != "" {
		tx = tx.Where(query, args...)
	}

	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}

	payments := make([]*domain.Payment, 0, len(models))
	for i := range models {
		payments = append(payments, models[i].toDomain())
	}

	return payments, nil
}

// Update сохраняет платёж с CAS-проверкой статуса.
// WHERE id = ? AND status = ? гарантирует, что при конкурентных запросах
// только один из них изменит строку; проигравший получает ErrStateConflict.
func (r *paymentRepository) Update(ctx context.Context, payment *domain.Payment, expectedStatus domain.PaymentStatus) error {
	model := paymentModelFromDomain(payment)
	model.UpdatedAt = time.Now()

	result := r.db.WithContext(ctx).
		Model(&PaymentModel{}).
		Where("id = ? AND status = ?", model.ID, string(expectedStatus)).
		Updates(map[string]interface{}{
			"status":           model.Status,
			"transaction_id":   model.TransactionID,
			"gateway_response": model.GatewayResponse,
			"updated_at":       model.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		// Либо платежа нет, либо его статус уже изменён конкурентом.
		var count int64
		if err := r.db.WithContext(ctx).Model(&PaymentModel{}).
			Where("id = ?", model.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrPaymentNotFound
		}
		return domain.ErrStateConflict
	}

	payment.UpdatedAt = model.UpdatedAt
	return nil
}

// Delete удаляет платёж.
func (r *paymentRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&PaymentModel{})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return domain.ErrPaymentNotFound
	}

	return nil
}

// Count возвращает количество платежей.
func (r *paymentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&PaymentModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
