package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	DatabaseURL string
	RedisURL    string

	Casdoor   CasdoorConfig
	Kafka     KafkaConfig
	Scoring   ScoringConfig
	RateLimit RateLimitConfig

	// Interval between question order compaction runs. Zero disables the job.
	OrderCompactionInterval time.Duration
	// Interval between identity directory syncs. Zero disables the job.
	DirectorySyncInterval time.Duration
}

// CasdoorConfig holds identity provider settings
type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// ScoringConfig configures the external scoring gateway. An empty URL selects the
// in-process dimension scorer.
type ScoringConfig struct {
	URL     string
	Timeout time.Duration
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// LoadConfig reads .env (when present) and the process environment.
func LoadConfig() (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	level, err := parseLogLevel(v.GetString("LOG_LEVEL"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:        v.GetString("PORT"),
		Environment: v.GetString("ENVIRONMENT"),
		LogLevel:    level,
		DatabaseURL: v.GetString("DATABASE_URL"),
		RedisURL:    v.GetString("REDIS_URL"),
		Casdoor: CasdoorConfig{
			Endpoint:     v.GetString("CASDOOR_ENDPOINT"),
			ClientID:     v.GetString("CASDOOR_CLIENT_ID"),
			ClientSecret: v.GetString("CASDOOR_CLIENT_SECRET"),
			Cert:         v.GetString("CASDOOR_CERT"),
			Organization: v.GetString("CASDOOR_ORGANIZATION"),
			Application:  v.GetString("CASDOOR_APPLICATION"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		Scoring: ScoringConfig{
			URL:     v.GetString("SCORING_URL"),
			Timeout: v.GetDuration("SCORING_TIMEOUT"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:             v.GetInt("RATE_LIMIT_BURST"),
		},
		OrderCompactionInterval: v.GetDuration("ORDER_COMPACTION_INTERVAL"),
		DirectorySyncInterval:   v.GetDuration("DIRECTORY_SYNC_INTERVAL"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("KAFKA_TOPIC", "assessment-events")
	v.SetDefault("SCORING_TIMEOUT", "10s")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("ORDER_COMPACTION_INTERVAL", "15m")
	v.SetDefault("DIRECTORY_SYNC_INTERVAL", "1h")
}

// Validate checks settings the service cannot start without
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Scoring.Timeout <= 0 {
		return fmt.Errorf("SCORING_TIMEOUT must be positive")
	}
	if c.OrderCompactionInterval < 0 || c.DirectorySyncInterval < 0 {
		return fmt.Errorf("job intervals must not be negative")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit settings must not be negative")
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
