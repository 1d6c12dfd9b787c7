package config

import "time"

type Config struct {
	App            AppConfig            `mapstructure:"app"`
	HTTP           HTTPConfig           `mapstructure:"http"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	NATS           NATSConfig           `mapstructure:"nats"`
	Model          ModelConfig          `mapstructure:"model"`
	Embeddings     EmbeddingsConfig     `mapstructure:"embeddings"`
	Retrieval      RetrievalConfig      `mapstructure:"retrieval"`
	Menu           MenuConfig           `mapstructure:"menu"`
	Ordering       OrderingConfig       `mapstructure:"ordering"`
	Payment        PaymentConfig        `mapstructure:"payment"`
	Engine         EngineConfig         `mapstructure:"engine"`
	OpenTelemetry  OpenTelemetryConfig  `mapstructure:"opentelemetry"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	RateLimiting   RateLimitingConfig   `mapstructure:"rate_limiting"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	CORS           CORSConfig           `mapstructure:"cors"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Port           int           `mapstructure:"port"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	URL          string `mapstructure:"url"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	LogQueries   bool   `mapstructure:"log_queries"`
}

type RedisConfig struct {
	URL         string        `mapstructure:"url"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	SessionTTL  time.Duration `mapstructure:"session_ttl"`
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

// ModelConfig points at the Ollama server hosting the conversation model.
type ModelConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Name        string        `mapstructure:"name"`
	Temperature float64       `mapstructure:"temperature"`
	TopP        float64       `mapstructure:"top_p"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type EmbeddingsConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RetrievalConfig struct {
	TopK      int           `mapstructure:"top_k"`
	Threshold float64       `mapstructure:"threshold"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type MenuConfig struct {
	SeedFile string `mapstructure:"seed_file"`
	Currency string `mapstructure:"currency"`
}

type OrderingConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type PaymentConfig struct {
	Stripe StripeConfig `mapstructure:"stripe"`
}

type StripeConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	Currency  string `mapstructure:"currency"`
}

// EngineConfig bounds the per-turn decision loop.
type EngineConfig struct {
	HistoryWindow  int           `mapstructure:"history_window"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	RetryMaxDelay  time.Duration `mapstructure:"retry_max_delay"`
	TurnTimeout    time.Duration `mapstructure:"turn_timeout"`
	LockTTL        time.Duration `mapstructure:"lock_ttl"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
}

type OpenTelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type RateLimitingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

type CircuitBreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}
