// Package bootstrap loads the process configuration and wires every domain
// package to its storage adapter; cmd/ledgerd starts the fiber server and
// the hold-expiry cron sweep it builds. Grounded on
// components/ledger/internal/bootstrap's Config+InitServers shape.
package bootstrap

import (
	"github.com/poolcard/ledger-core/pkg/mconfig"
)

// Config is the process configuration, loaded from environment variables
// via pkg/mconfig.Load. Field names mirror SPEC_FULL.md §6's variable list.
type Config struct {
	EnvName      string `env:"ENV_NAME" envDefault:"local"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:":3000"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseURL        string `env:"DATABASE_URL"`
	DatabaseReplicaURL string `env:"DATABASE_REPLICA_URL"`
	MongoURL           string `env:"MONGO_URL"`
	RedisURL           string `env:"REDIS_URL"`
	RabbitMQURL        string `env:"RABBITMQ_URL"`

	JWTSecret string `env:"JWT_SECRET"`

	EnableTelemetry      bool   `env:"ENABLE_TELEMETRY" envDefault:"false"`
	OTELExporterEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	BaasProvider string `env:"BAAS_PROVIDER" envDefault:"MOCK"`

	SyncteraAPIKey            string `env:"SYNCTERA_API_KEY"`
	SyncteraBaseURL           string `env:"SYNCTERA_BASE_URL"`
	SyncteraWebhookSecret     string `env:"SYNCTERA_WEBHOOK_SECRET"`
	SyncteraAccountTemplateID string `env:"SYNCTERA_ACCOUNT_TEMPLATE_ID"`
	SyncteraCardProductID     string `env:"SYNCTERA_CARD_PRODUCT_ID"`
	SyncteraAccountCurrency   string `env:"SYNCTERA_ACCOUNT_CURRENCY" envDefault:"USD"`
	SyncteraSourceAccountID   string `env:"SYNCTERA_SOURCE_ACCOUNT_ID"`

	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"internal/storage/migrations"`
}

// LoadConfig loads and validates a Config, failing fast on missing required
// variables per SPEC_FULL.md §6.
func LoadConfig() (*Config, error) {
	mconfig.LoadDotEnv()

	cfg := &Config{}
	if err := mconfig.Load(cfg); err != nil {
		return nil, err
	}

	required := map[string]string{
		"DATABASE_URL": cfg.DatabaseURL,
		"JWT_SECRET":   cfg.JWTSecret,
	}

	if cfg.BaasProvider == "SYNCTERA" {
		required["SYNCTERA_API_KEY"] = cfg.SyncteraAPIKey
		required["SYNCTERA_BASE_URL"] = cfg.SyncteraBaseURL
		required["SYNCTERA_WEBHOOK_SECRET"] = cfg.SyncteraWebhookSecret
	}

	if err := mconfig.RequireNonEmpty(required); err != nil {
		return nil, err
	}

	return cfg, nil
}
