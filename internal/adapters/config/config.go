package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"tradeledger/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Risk          RiskConfig
	Commission    CommissionConfig
	ErrorTracking ErrorTrackingConfig
	Workers       WorkerConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"tradeledger"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`

	// The account this journal instance serves
	AccountID string `envconfig:"ACCOUNT_ID"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

// DSN builds the lib/pq connection string. The session time zone is
// pinned to UTC so timestamptz-to-date casts on journal_days.date never
// shift the calendar day on a non-UTC server.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s timezone=UTC",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS" required:"true"`
	GroupID string   `envconfig:"KAFKA_GROUP_ID" default:"tradeledger"`
}

// RiskConfig holds account-level defaults applied when the ledger store
// has no persisted risk policy yet.
type RiskConfig struct {
	MaxRiskPerTradePct float64 `envconfig:"RISK_MAX_PER_TRADE_PCT" default:"1.0"`
	MaxDailyLossPct    float64 `envconfig:"RISK_MAX_DAILY_LOSS_PCT" default:"3.0"`
	MaxTradesPerDay    int     `envconfig:"RISK_MAX_TRADES_PER_DAY" default:"0"` // 0 = unlimited
}

// CommissionConfig holds the default commission policy used before the
// ledger store reports a persisted one.
type CommissionConfig struct {
	Mode           string  `envconfig:"COMMISSION_MODE" default:"PER_SHARE"`
	FlatValue      float64 `envconfig:"COMMISSION_FLAT_VALUE" default:"0"`
	Percent        float64 `envconfig:"COMMISSION_PERCENT" default:"0"`
	PerShareRate   float64 `envconfig:"COMMISSION_PER_SHARE_RATE" default:"0.005"`
	MinimumPerSide float64 `envconfig:"COMMISSION_MINIMUM_PER_SIDE" default:"1.0"`
	CapPercent     float64 `envconfig:"COMMISSION_CAP_PERCENT" default:"1.0"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// WorkerConfig contains intervals for background workers
type WorkerConfig struct {
	// How often the server-reported daily risk usage snapshot is pulled
	// from the ledger store into the cache
	RiskUsageSyncInterval time.Duration `envconfig:"WORKER_RISK_USAGE_SYNC_INTERVAL" default:"30s"`
	RiskUsageSyncEnabled  bool          `envconfig:"WORKER_RISK_USAGE_SYNC_ENABLED" default:"true"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
