// Package seed загружает демо-данные в пустую базу.
// Используется в dev окружении для наполнения сервиса платежами
// с разными статусами и способами оплаты.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"example.com/payment-service/internal/domain"
	"example.com/payment-service/internal/repository"
	"example.com/payment-service/pkg/logger"
)

// seedPayment описывает одну демо-запись.
type seedPayment struct {
	orderID         int64
	userID          int64
	amount          string
	status          domain.PaymentStatus
	method          domain.PaymentMethod
	transactionID   string
	age             time.Duration
	gatewayResponse string
}

// seedPayments — демо-платежи с разными статусами и способами оплаты.
var seedPayments = []seedPayment{
	{1, 1, "1479.97", domain.PaymentStatusCompleted, domain.PaymentMethodCreditCard,
		"txn_john_gaming_001", 5 * 24 * time.Hour, "Visa ending in 1234"},
	{2, 2, "159.97", domain.PaymentStatusCompleted, domain.PaymentMethodPayPal,
		"txn_jane_books_002", 3 * 24 * time.Hour, "PayPal account jane.smith@example.com"},
	{3, 3, "409.97", domain.PaymentStatusCompleted, domain.PaymentMethodCreditCard,
		"txn_bob_office_003", 2 * 24 * time.Hour, "MasterCard ending in 5678"},
	{4, 4, "109.95", domain.PaymentStatusProcessing, domain.PaymentMethodBankTransfer,
		"txn_alice_fitness_004", 24 * time.Hour, "Bank transfer from Wells Fargo"},
	{5, 5, "219.94", domain.PaymentStatusPending, domain.PaymentMethodCreditCard,
		"txn_charlie_clothes_005", 6 * time.Hour, "Amex ending in 9012"},
	{6, 6, "289.98", domain.PaymentStatusRefunded, domain.PaymentMethodDebitCard,
		"txn_diana_tech_006", 3 * time.Hour, "Debit card ending in 3456 - REFUNDED"},
	{7, 1, "99.99", domain.PaymentStatusCompleted, domain.PaymentMethodCreditCard,
		"txn_john_prev_007", 14 * 24 * time.Hour, "Previous purchase - Visa 1234"},
	{8, 2, "25.50", domain.PaymentStatusFailed, domain.PaymentMethodCreditCard,
		"txn_jane_failed_008", 7 * 24 * time.Hour, "Payment failed - insufficient funds"},
}

// Load наполняет базу демо-платежами, если она пуста.
// Повторный запуск сервиса данные не дублирует.
func Load(ctx context.Context, repo repository.PaymentRepository) error {
	log := logger.Ctx(ctx)

	count, err := repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("ошибка проверки количества платежей: %w", err)
	}
	if count > 0 {
		log.Debug().Int64("count", count).Msg("База не пуста, демо-данные не загружаются")
		return nil
	}

	log.Info().Msg("Загрузка демо-платежей")

	now := time.Now()
	for _, s := range seedPayments {
		amount, err := decimal.NewFromString(s.amount)
		if err != nil {
			return fmt.Errorf("невалидная сумма демо-платежа %q: %w", s.amount, err)
		}

		txn := s.transactionID
		resp := s.gatewayResponse
		payment := &domain.Payment{
			OrderID:         s.orderID,
			UserID:          s.userID,
			Amount:          amount,
			Status:          s.status,
			PaymentMethod:   s.method,
			TransactionID:   &txn,
			GatewayResponse: &resp,
			PaymentDate:     now.Add(-s.age),
			UpdatedAt:       now.Add(-s.age),
		}

		if err := repo.Create(ctx, payment); err != nil {
			return fmt.Errorf("ошибка создания демо-платежа для заказа %d: %w", s.orderID, err)
		}
	}

	log.Info().Int("count", len(seedPayments)).Msg("Демо-платежи загружены")
	return nil
}
