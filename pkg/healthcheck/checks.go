// Package healthcheck предоставляет функции проверки готовности сервиса
// и его зависимостей. Используется для Kubernetes readiness probes (/readyz)
// и для /health endpoint с деталями по зависимостям.
package healthcheck

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// CheckMySQL проверяет доступность MySQL через GORM.
func CheckMySQL(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("mysql: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("mysql ping: %w", err)
	}
	return nil
}

// CheckRedis проверяет доступность Redis.
func CheckRedis(ctx context.Context, rdb *redis.Client) error {
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Composite объединяет несколько проверок в одну.
// Возвращает первую ошибку или nil если все проверки пройдены.
func Composite(checks ...func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		for _, check := range checks {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// =============================================================================
// Probe для внешних HTTP зависимостей (notification service)
// =============================================================================

// ProbeResult — результат проверки внешней зависимости.
// Попадает в ответ /health как детали по каждой зависимости.
type ProbeResult struct {
	Status         string `json:"status"` // "UP" или "DOWN"
	ResponseTimeMs int64  `json:"responseTimeMs"`
	Error          string `json:"error,omitempty"`
}

// HTTPProbe проверяет внешний HTTP сервис (например notification service).
type HTTPProbe struct {
	name    string
	url     string
	client  *http.Client
	timeout time.Duration
}

// NewHTTPProbe создаёт probe для внешнего сервиса.
// url — полный URL health endpoint'а (например "http://localhost:8085/actuator/health").
func NewHTTPProbe(name, url string, timeout time.Duration) *HTTPProbe {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPProbe{
		name: name,
		url:  url,
		client: &http.Client{
			Timeout: timeout + time.Second, // запас поверх таймаута контекста
		},
		timeout: timeout,
	}
}

// Name возвращает имя проверяемого сервиса.
func (p *HTTPProbe) Name() string {
	return p.name
}

// Check выполняет GET запрос и измеряет время ответа.
// Любой статус < 500 считается признаком живого сервиса.
func (p *HTTPProbe) Check(ctx context.Context) ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return ProbeResult{Status: "DOWN", Error: err.Error()}
	}

	resp, err := p.client.Do(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return ProbeResult{Status: "DOWN", ResponseTimeMs: elapsed, Error: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return ProbeResult{
			Status:         "DOWN",
			ResponseTimeMs: elapsed,
			Error:          fmt.Sprintf("HTTP %d", resp.StatusCode),
		}
	}

	return ProbeResult{Status: "UP", ResponseTimeMs: elapsed}
}
