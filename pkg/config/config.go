package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Payments     PaymentsConfig
	Rates        RatesConfig
	Blockonomics BlockonomicsConfig
	GloBee       GloBeeConfig
	PayPal       PayPalConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Payments.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RDJCUSTOMS_APP_ENV" required:"true"`
	Port         string `envconfig:"RDJCUSTOMS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"RDJCUSTOMS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RDJCUSTOMS_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"RDJCUSTOMS_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"RDJCUSTOMS_DB_DSN" required:"true"`

	MaxOpenConns    int           `envconfig:"RDJCUSTOMS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RDJCUSTOMS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RDJCUSTOMS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RDJCUSTOMS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RDJCUSTOMS_REDIS_URL" required:"true"`
	Password     string        `envconfig:"RDJCUSTOMS_REDIS_PASSWORD"`
	DB           int           `envconfig:"RDJCUSTOMS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RDJCUSTOMS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RDJCUSTOMS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RDJCUSTOMS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RDJCUSTOMS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RDJCUSTOMS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"RDJCUSTOMS_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	PaymentsTopic string `envconfig:"RDJCUSTOMS_PUBSUB_PAYMENTS_TOPIC" default:"rdj-payment-events"`
}

// PaymentsConfig carries the per-method constants that feed the method registry.
type PaymentsConfig struct {
	PayPalEnabled  bool `envconfig:"RDJCUSTOMS_PAYMENTS_PAYPAL_ENABLED" default:"true"`
	BitcoinEnabled bool `envconfig:"RDJCUSTOMS_PAYMENTS_BITCOIN_ENABLED" default:"true"`
	MoneroEnabled  bool `envconfig:"RDJCUSTOMS_PAYMENTS_MONERO_ENABLED" default:"true"`

	BitcoinConfirmations int           `envconfig:"RDJCUSTOMS_PAYMENTS_BITCOIN_CONFIRMATIONS" default:"2"`
	MoneroConfirmations  int           `envconfig:"RDJCUSTOMS_PAYMENTS_MONERO_CONFIRMATIONS" default:"10"`
	BitcoinExpiry        time.Duration `envconfig:"RDJCUSTOMS_PAYMENTS_BITCOIN_EXPIRY" default:"24h"`
	MoneroExpiry         time.Duration `envconfig:"RDJCUSTOMS_PAYMENTS_MONERO_EXPIRY" default:"24h"`
	PayPalExpiry         time.Duration `envconfig:"RDJCUSTOMS_PAYMENTS_PAYPAL_EXPIRY" default:"3h"`

	// MaxWebhookBodyBytes caps inbound webhook payload size.
	MaxWebhookBodyBytes int64 `envconfig:"RDJCUSTOMS_PAYMENTS_MAX_WEBHOOK_BODY_BYTES" default:"65536"`
}

func (p PaymentsConfig) validate() error {
	if p.BitcoinConfirmations < 1 {
		return fmt.Errorf("bitcoin confirmations must be at least 1")
	}
	if p.MoneroConfirmations < 1 {
		return fmt.Errorf("monero confirmations must be at least 1")
	}
	if p.BitcoinExpiry <= 0 || p.MoneroExpiry <= 0 {
		return fmt.Errorf("payment expiry windows must be positive")
	}
	return nil
}

type RatesConfig struct {
	BaseURL  string        `envconfig:"RDJCUSTOMS_RATES_BASE_URL"`
	Currency string        `envconfig:"RDJCUSTOMS_RATES_CURRENCY" default:"GBP"`
	Timeout  time.Duration `envconfig:"RDJCUSTOMS_RATES_TIMEOUT" default:"5s"`
}

type BlockonomicsConfig struct {
	APIKey         string        `envconfig:"RDJCUSTOMS_BLOCKONOMICS_API_KEY"`
	CallbackSecret string        `envconfig:"RDJCUSTOMS_BLOCKONOMICS_CALLBACK_SECRET"`
	BaseURL        string        `envconfig:"RDJCUSTOMS_BLOCKONOMICS_BASE_URL"`
	Timeout        time.Duration `envconfig:"RDJCUSTOMS_BLOCKONOMICS_TIMEOUT" default:"5s"`
}

type GloBeeConfig struct {
	APIKey        string        `envconfig:"RDJCUSTOMS_GLOBEE_API_KEY"`
	WebhookSecret string        `envconfig:"RDJCUSTOMS_GLOBEE_WEBHOOK_SECRET"`
	BaseURL       string        `envconfig:"RDJCUSTOMS_GLOBEE_BASE_URL"`
	Timeout       time.Duration `envconfig:"RDJCUSTOMS_GLOBEE_TIMEOUT" default:"5s"`
}

type PayPalConfig struct {
	ClientID  string        `envconfig:"RDJCUSTOMS_PAYPAL_CLIENT_ID"`
	Secret    string        `envconfig:"RDJCUSTOMS_PAYPAL_SECRET"`
	WebhookID string        `envconfig:"RDJCUSTOMS_PAYPAL_WEBHOOK_ID"`
	Env       string        `envconfig:"RDJCUSTOMS_PAYPAL_ENV" default:"sandbox"`
	Timeout   time.Duration `envconfig:"RDJCUSTOMS_PAYPAL_TIMEOUT" default:"8s"`
}

// Environment returns the normalized PayPal environment (sandbox/live).
func (p PayPalConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(p.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type CronConfig struct {
	Interval time.Duration `envconfig:"RDJCUSTOMS_CRON_INTERVAL" default:"10m"`
	LockTTL  time.Duration `envconfig:"RDJCUSTOMS_CRON_LOCK_TTL" default:"15m"`
}
