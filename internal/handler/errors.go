// Package handler содержит HTTP обработчики REST API платежей.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"example.com/payment-service/internal/domain"
	"example.com/payment-service/pkg/logger"
)

// ErrorResponse — стандартный формат ошибки API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// errorMapping связывает доменную ошибку с HTTP статусом и кодом.
type errorMapping struct {
	target error
	status int
	code   string
}

// errorMappings — таблица маппинга доменных ошибок в HTTP ответы.
// Проверка идёт через errors.Is: обёрнутые ошибки распознаются,
// сравнение текста ошибок не используется. Порядок важен: первое
// совпадение выигрывает.
var errorMappings = []errorMapping{
	{domain.ErrPaymentNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrStateConflict, http.StatusConflict, "state_conflict"},
	{domain.ErrNotRefundable, http.StatusBadRequest, "not_refundable"},
	{domain.ErrInvalidTransition, http.StatusBadRequest, "invalid_state"},
	{domain.ErrGatewayFailure, http.StatusBadRequest, "gateway_failure"},
	{domain.ErrInvalidAmount, http.StatusBadRequest, "validation_error"},
	{domain.ErrInvalidOrderID, http.StatusBadRequest, "validation_error"},
	{domain.ErrInvalidUserID, http.StatusBadRequest, "validation_error"},
	{domain.ErrInvalidPaymentMethod, http.StatusBadRequest, "validation_error"},
}

// HandleDomainError преобразует доменную ошибку в HTTP ответ.
// Используется всеми handlers для единообразной обработки ошибок.
// ВАЖНО: err не должен быть nil — это баг в вызывающем коде.
func HandleDomainError(c *gin.Context, err error, method string) {
	if err == nil {
		logger.Error().Str("method", method).Msg("HandleDomainError вызван с nil ошибкой — баг в коде")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Внутренняя ошибка сервера",
		})
		return
	}

	log := logger.Ctx(c.Request.Context())

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			c.JSON(m.status, ErrorResponse{
				Error:   m.code,
				Message: err.Error(),
			})
			return
		}
	}

	// Неизвестная ошибка: детали не раскрываем клиенту
	log.Error().Err(err).Str("method", method).Msg("Внутренняя ошибка")
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "Внутренняя ошибка сервера",
	})
}
