package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"example.com/payment-service/internal/middleware"
	"example.com/payment-service/pkg/healthcheck"
	"example.com/payment-service/pkg/metrics"
)

// serviceName используется в health ответах и метриках.
const serviceName = "payment-service"

// ReadinessChecker — функция проверки готовности сервиса.
type ReadinessChecker func(ctx context.Context) error

// Router — конфигурация роутера.
type Router struct {
	engine            *gin.Engine
	paymentHandler    *PaymentHandler
	authMW            gin.HandlerFunc
	readinessCheck    ReadinessChecker
	notificationProbe *healthcheck.HTTPProbe
}

// RouterConfig — параметры для создания роутера.
type RouterConfig struct {
	PaymentHandler *PaymentHandler
	// AuthMW — опциональная JWT защита админских маршрутов.
	// nil отключает проверку (dev окружение).
	AuthMW gin.HandlerFunc
	// ReadinessCheck — опциональная проверка готовности для /readyz.
	ReadinessCheck ReadinessChecker
	// NotificationProbe — опциональная проверка Notification Service для /health.
	NotificationProbe *healthcheck.HTTPProbe
	// Debug — режим отладки Gin.
	Debug bool
}

// NewRouter создаёт и настраивает HTTP роутер.
func NewRouter(cfg RouterConfig) *Router {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(gin.Recovery())

	// CORS — обработка cross-origin запросов
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	// OpenTelemetry tracing — создаёт spans для Jaeger
	engine.Use(otelgin.Middleware(serviceName))

	// Prometheus метрики — requests_total, request_duration_seconds
	engine.Use(metrics.GinMetricsMiddleware(serviceName))

	// trace_id / correlation_id + логирование запросов
	engine.Use(middleware.Tracing())

	r := &Router{
		engine:            engine,
		paymentHandler:    cfg.PaymentHandler,
		authMW:            cfg.AuthMW,
		readinessCheck:    cfg.ReadinessCheck,
		notificationProbe: cfg.NotificationProbe,
	}

	r.setupRoutes()
	return r
}

// setupRoutes настраивает все маршруты API.
func (r *Router) setupRoutes() {
	// Health endpoints (без auth)
	r.engine.GET("/health", r.healthCheck)
	r.engine.GET("/healthz", r.livenessCheck)
	r.engine.GET("/readyz", r.readinessCheckHandler)

	// === Payment routes ===
	payments := r.engine.Group("/api/payments")
	{
		payments.POST("/process", r.paymentHandler.ProcessPayment)
		payments.GET("/:id", r.paymentHandler.GetPayment)
		payments.POST("/:id/refund", r.paymentHandler.RefundPayment)
		payments.GET("/order/:orderId", r.paymentHandler.GetPaymentsByOrder)
		payments.GET("/user/:userId", r.paymentHandler.GetPaymentsByUser)
	}

	// === Admin routes (полный список платежей) ===
	admin := r.engine.Group("/api/payments")
	if r.authMW != nil {
		admin.Use(r.authMW)
	}
	{
		admin.GET("", r.paymentHandler.ListPayments)
	}
}

// Engine возвращает Gin engine для запуска сервера.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// healthCheck — расширенная проверка состояния сервиса.
// Включает состояние внешних зависимостей (Notification Service).
func (r *Router) healthCheck(c *gin.Context) {
	resp := gin.H{
		"status":  "UP",
		"service": serviceName,
	}

	if r.notificationProbe != nil {
		result := r.notificationProbe.Check(c.Request.Context())
		resp["dependencies"] = gin.H{
			r.notificationProbe.Name(): result,
		}
	}

	c.JSON(http.StatusOK, resp)
}

// livenessCheck — liveness probe для Kubernetes.
// Возвращает 200 OK если процесс жив.
func (r *Router) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// readinessCheckHandler — readiness probe для Kubernetes.
// Возвращает 200 OK если сервис готов принимать трафик.
func (r *Router) readinessCheckHandler(c *gin.Context) {
	if r.readinessCheck == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	if err := r.readinessCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
