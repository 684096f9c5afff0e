package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Engine  EngineConfig
	Billing BillingConfig
	Notify  NotifyConfig
	Mongo   MongoConfig
	Redis   RedisConfig
}

// BillingConfig points at the external invoicing system.
type BillingConfig struct {
	BaseURL string `env:"BILLING_BASE_URL, default=http://localhost:9090"`
}

// NotifyConfig points at the admin notification webhook.
type NotifyConfig struct {
	WebhookURL string `env:"NOTIFY_WEBHOOK_URL"`
}

// EngineConfig holds the lifecycle engine tunables.
type EngineConfig struct {
	// VolumetricDivisor is the cm³-per-kg divisor for volumetric weight.
	VolumetricDivisor float64 `env:"VOLUMETRIC_DIVISOR, default=5000"`
	// IntakeBatchCeiling caps the quantity of one intake row.
	IntakeBatchCeiling int `env:"INTAKE_BATCH_CEILING, default=50"`
	// BulkWorkers bounds the per-request bulk worker pool.
	BulkWorkers int `env:"BULK_WORKERS, default=8"`
	// NotifyWorkers bounds the admin-notification dispatcher.
	NotifyWorkers int `env:"NOTIFY_WORKERS, default=4"`
	// InvoiceTimeout bounds each external billing lookup.
	InvoiceTimeout time.Duration `env:"INVOICE_TIMEOUT, default=5s"`
	// NotifyTimeout bounds each external notifier call.
	NotifyTimeout time.Duration `env:"NOTIFY_TIMEOUT, default=5s"`
	// StatusGaugeInterval is the period of the read-only parcels-by-status
	// metrics refresh.
	StatusGaugeInterval time.Duration `env:"STATUS_GAUGE_INTERVAL, default=60s"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=parcel_engine"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
