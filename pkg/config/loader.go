package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/app/configs")

	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Allow common env vars without APP_ prefix for Docker/VM deploys
	viper.BindEnv("http.port", "HTTP_PORT", "APP_HTTP_PORT")
	viper.BindEnv("database.url", "DATABASE_URL", "APP_DATABASE_URL")
	viper.BindEnv("redis.url", "REDIS_URL", "APP_REDIS_URL")
	viper.BindEnv("nats.url", "NATS_URL", "APP_NATS_URL")
	viper.BindEnv("model.base_url", "OLLAMA_URL", "APP_MODEL_BASE_URL")
	viper.BindEnv("embeddings.api_key", "OPENAI_API_KEY", "APP_EMBEDDINGS_API_KEY")
	viper.BindEnv("ordering.base_url", "ORDERING_API_URL")
	viper.BindEnv("ordering.api_key", "ORDERING_API_KEY")
	viper.BindEnv("payment.stripe.secret_key", "STRIPE_SECRET_KEY")
	viper.BindEnv("app.environment", "APP_ENVIRONMENT")
	viper.BindEnv("logging.level", "LOG_LEVEL")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// env vars only is fine
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("app.name", "ai-waiter")
	viper.SetDefault("http.port", 8080)
	viper.SetDefault("model.base_url", "http://localhost:11434")
	viper.SetDefault("model.name", "llama3.1:latest")
	viper.SetDefault("model.temperature", 0.7)
	viper.SetDefault("model.top_p", 0.9)
	viper.SetDefault("model.max_tokens", 300)
	viper.SetDefault("model.timeout", 30*time.Second)
	viper.SetDefault("embeddings.model", "text-embedding-3-small")
	viper.SetDefault("embeddings.timeout", 15*time.Second)
	viper.SetDefault("retrieval.top_k", 5)
	viper.SetDefault("retrieval.threshold", 0.3)
	viper.SetDefault("retrieval.timeout", 5*time.Second)
	viper.SetDefault("menu.currency", "VND")
	viper.SetDefault("ordering.timeout", 10*time.Second)
	viper.SetDefault("payment.stripe.currency", "vnd")
	viper.SetDefault("engine.history_window", 8)
	viper.SetDefault("engine.max_retries", 2)
	viper.SetDefault("engine.retry_base_delay", 200*time.Millisecond)
	viper.SetDefault("engine.retry_max_delay", 2*time.Second)
	viper.SetDefault("engine.turn_timeout", 45*time.Second)
	viper.SetDefault("engine.lock_ttl", time.Minute)
	viper.SetDefault("engine.idle_timeout", 30*time.Minute)
	viper.SetDefault("engine.sweep_interval", 5*time.Minute)
	viper.SetDefault("redis.session_ttl", time.Hour)
}
