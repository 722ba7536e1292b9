// Package config предоставляет загрузку конфигурации из переменных окружения.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config содержит полную конфигурацию Payment Service.
type Config struct {
	App          AppConfig
	HTTP         HTTPConfig
	MySQL        MySQLConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Gateway      GatewayConfig
	Notification NotificationConfig
	Jaeger       JaegerConfig
	Metrics      MetricsConfig
	JWT          JWTConfig
	Seed         SeedConfig
}

// AppConfig содержит общие настройки приложения.
type AppConfig struct {
	Name      string `env:"APP_NAME" envDefault:"payment-service"`
	Env       string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// HTTPConfig содержит настройки HTTP сервера REST API.
type HTTPConfig struct {
	Port            int           `env:"HTTP_PORT" envDefault:"8084"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Addr возвращает адрес для HTTP сервера.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// MySQLConfig содержит настройки подключения к MySQL.
type MySQLConfig struct {
	Host            string        `env:"MYSQL_HOST" envDefault:"localhost"`
	Port            int           `env:"MYSQL_PORT" envDefault:"3306"`
	User            string        `env:"MYSQL_USER" envDefault:"root"`
	Password        string        `env:"MYSQL_PASSWORD" envDefault:"root"`
	Database        string        `env:"MYSQL_DATABASE" envDefault:"payment_service"`
	MaxOpenConns    int           `env:"MYSQL_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MYSQL_MAX_IDLE_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"MYSQL_CONN_MAX_LIFETIME" envDefault:"5m"`
}

// DSN возвращает строку подключения к MySQL.
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// RedisConfig содержит настройки подключения к Redis (кеш платежей).
type RedisConfig struct {
	Host     string        `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int           `env:"REDIS_PORT" envDefault:"6379"`
	Password string        `env:"REDIS_PASSWORD" envDefault:""`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL time.Duration `env:"REDIS_CACHE_TTL" envDefault:"5m"`
}

// Addr возвращает адрес Redis сервера.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig содержит настройки публикации событий платежей.
// При пустом списке брокеров публикация событий отключена.
type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
}

// Режимы клиента платёжного шлюза.
const (
	// GatewayModeSimulated — симулятор шлюза (dev/sandbox).
	GatewayModeSimulated = "simulated"
	// GatewayModeHTTP — реальный HTTP вызов внешнего шлюза.
	GatewayModeHTTP = "http"
)

// GatewayConfig содержит настройки клиента платёжного шлюза.
// Mode выбирает реализацию: симулятор или HTTP клиент.
type GatewayConfig struct {
	Mode              string        `env:"GATEWAY_MODE" envDefault:"simulated"`
	BaseURL           string        `env:"GATEWAY_BASE_URL" envDefault:"https://payment-gateway.example.com"`
	Timeout           time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"10s"`
	SimulateFailures  bool          `env:"GATEWAY_SIMULATE_FAILURES" envDefault:"true"`
	FailureRate       float64       `env:"GATEWAY_FAILURE_RATE" envDefault:"0.1"`
	RefundFailureRate float64       `env:"GATEWAY_REFUND_FAILURE_RATE" envDefault:"0.05"`
	ProcessingDelay   time.Duration `env:"GATEWAY_PROCESSING_DELAY" envDefault:"1s"`
	RefundDelay       time.Duration `env:"GATEWAY_REFUND_DELAY" envDefault:"500ms"`
}

// NotificationConfig содержит настройки клиента Notification Service.
type NotificationConfig struct {
	URL     string        `env:"NOTIFICATION_SERVICE_URL" envDefault:"http://localhost:8085"`
	Timeout time.Duration `env:"NOTIFICATION_TIMEOUT" envDefault:"5s"`
}

// JaegerConfig содержит настройки трассировки Jaeger.
type JaegerConfig struct {
	Enabled  bool   `env:"JAEGER_ENABLED" envDefault:"true"`
	Host     string `env:"JAEGER_HOST" envDefault:"localhost"`
	OTLPPort int    `env:"JAEGER_OTLP_PORT" envDefault:"4317"` // OTLP gRPC порт
}

// OTLPEndpoint возвращает OTLP gRPC endpoint для Jaeger.
func (c JaegerConfig) OTLPEndpoint() string {
	return fmt.Sprintf("%s:%d", c.Host, c.OTLPPort)
}

// MetricsConfig содержит настройки Prometheus метрик.
type MetricsConfig struct {
	Enabled bool `env:"METRICS_ENABLED" envDefault:"true"` // Включить metrics endpoint
	Port    int  `env:"METRICS_PORT" envDefault:"9090"`    // Порт для /metrics
}

// Addr возвращает адрес для Metrics HTTP сервера.
func (c MetricsConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// JWTConfig содержит настройки валидации JWT токенов (RS256).
// Payment Service только проверяет токены, выданные платформой.
// При пустом PublicKeyPath админ-эндпоинты доступны без авторизации (dev режим).
type JWTConfig struct {
	PublicKeyPath string `env:"JWT_PUBLIC_KEY_PATH"`                      // Путь к публичному ключу (PEM)
	Issuer        string `env:"JWT_ISSUER" envDefault:"payment-platform"` // Ожидаемый издатель токена
}

// SeedConfig управляет загрузкой демо-данных при старте.
type SeedConfig struct {
	Enabled bool `env:"SEED_DATA" envDefault:"false"`
}

// Load загружает конфигурацию из переменных окружения.
// Опционально загружает .env файл, если он существует.
func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файл не найден)
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("ошибка парсинга конфигурации: %w", err)
	}

	return cfg, nil
}

// IsDevelopment возвращает true, если приложение запущено в development режиме.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction возвращает true, если приложение запущено в production режиме.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
