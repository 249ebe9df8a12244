package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/therealdaud/HealthShield/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaAlertTopic  string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Alert state store.
	RedisAddr     string
	AlertStateTTL time.Duration
	StoreTimeout  time.Duration

	// Profile store.
	PostgresDSN      string
	ProfileCacheSize int
	ProfileCacheTTL  time.Duration

	// Engine tuning.
	CooldownDuration    time.Duration
	DefaultTriggerLevel string
	HealthMarginC       float64
	ClearGapBands       int
}

// Load reads configuration from the environment, applying defaults where
// unset. A local .env file is folded in first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	flushInterval, err := parseDuration("BATCH_FLUSH_INTERVAL", "500ms")
	if err != nil {
		return nil, err
	}
	alertStateTTL, err := parseDuration("ALERT_STATE_TTL", "168h")
	if err != nil {
		return nil, err
	}
	storeTimeout, err := parseDuration("STORE_TIMEOUT", "2s")
	if err != nil {
		return nil, err
	}
	profileCacheTTL, err := parseDuration("PROFILE_CACHE_TTL", "5m")
	if err != nil {
		return nil, err
	}
	cooldown, err := parseDuration("COOLDOWN_DURATION", "10m")
	if err != nil {
		return nil, err
	}

	batchSize, err := parseBatchSize()
	if err != nil {
		return nil, err
	}
	healthMargin, err := parseFloat("HEALTH_MARGIN_C", 2.0)
	if err != nil {
		return nil, err
	}
	clearGap, err := parseClearGap()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   envOrDefault("KAFKA_SOURCE_TOPIC", "raw-weather-observations"),
		KafkaAlertTopic:    envOrDefault("KAFKA_ALERT_TOPIC", "heat-alert-events"),
		KafkaGroupID:       envOrDefault("KAFKA_GROUP_ID", "heatshield-engine"),
		HTTPAddr:           envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           envOrDefault("LOG_LEVEL", "info"),
		LogFormat:          envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		RedisAddr:     envOrDefault("REDIS_ADDR", "localhost:6379"),
		AlertStateTTL: alertStateTTL,
		StoreTimeout:  storeTimeout,

		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		ProfileCacheSize: parseCacheSize(),
		ProfileCacheTTL:  profileCacheTTL,

		CooldownDuration:    cooldown,
		DefaultTriggerLevel: envOrDefault("DEFAULT_TRIGGER_LEVEL", "high"),
		HealthMarginC:       healthMargin,
		ClearGapBands:       clearGap,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaAlertTopic == "" {
		return nil, errors.New("KAFKA_ALERT_TOPIC is required")
	}
	if cfg.PostgresDSN == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	if _, err := domain.ParseRiskLevel(cfg.DefaultTriggerLevel); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TRIGGER_LEVEL %q", cfg.DefaultTriggerLevel)
	}

	return cfg, nil
}

// EngineParams folds the configured overrides into the default engine
// constants.
func (c *Config) EngineParams() domain.Params {
	p := domain.DefaultParams()
	p.Cooldown = c.CooldownDuration
	p.HealthMarginC = c.HealthMarginC
	p.ClearGap = c.ClearGapBands
	// Load already validated the level.
	if trigger, err := domain.ParseRiskLevel(c.DefaultTriggerLevel); err == nil {
		p.DefaultTrigger = trigger
	}
	return p
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBatchSize() (int, error) {
	s := envOrDefault("BATCH_SIZE", "50")
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 1000 {
		return 0, errors.New("BATCH_SIZE must be between 1 and 1000")
	}
	return n, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return f, nil
}

func parseClearGap() (int, error) {
	s := envOrDefault("CLEAR_GAP_BANDS", "1")
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 3 {
		return 0, errors.New("CLEAR_GAP_BANDS must be between 0 and 3")
	}
	return n, nil
}

func parseCacheSize() int {
	if s := os.Getenv("PROFILE_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
