package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Mpesa        MpesaConfig
	Billing      BillingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SOKOFRESH_APP_ENV" required:"true"`
	Port         string `envconfig:"SOKOFRESH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SOKOFRESH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SOKOFRESH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SOKOFRESH_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SOKOFRESH_DB_DSN"`
	Driver string `envconfig:"SOKOFRESH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SOKOFRESH_DB_HOST"`
	LegacyPort     int    `envconfig:"SOKOFRESH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SOKOFRESH_DB_USER"`
	LegacyPassword string `envconfig:"SOKOFRESH_DB_PASSWORD"`
	LegacyName     string `envconfig:"SOKOFRESH_DB_NAME"`
	LegacySSLMode  string `envconfig:"SOKOFRESH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SOKOFRESH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SOKOFRESH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SOKOFRESH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SOKOFRESH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SOKOFRESH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SOKOFRESH_REDIS_ADDR"`
	Password     string        `envconfig:"SOKOFRESH_REDIS_PASSWORD"`
	DB           int           `envconfig:"SOKOFRESH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SOKOFRESH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SOKOFRESH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SOKOFRESH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SOKOFRESH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SOKOFRESH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SOKOFRESH_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SOKOFRESH_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SOKOFRESH_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SOKOFRESH_AUTO_MIGRATE" default:"false"`
}

// MpesaConfig configures the Daraja STK push integration.
type MpesaConfig struct {
	BaseURL          string        `envconfig:"SOKOFRESH_MPESA_BASE_URL" default:"https://sandbox.safaricom.co.ke"`
	ConsumerKey      string        `envconfig:"SOKOFRESH_MPESA_CONSUMER_KEY"`
	ConsumerSecret   string        `envconfig:"SOKOFRESH_MPESA_CONSUMER_SECRET"`
	ShortCode        string        `envconfig:"SOKOFRESH_MPESA_SHORT_CODE"`
	Passkey          string        `envconfig:"SOKOFRESH_MPESA_PASSKEY"`
	CallbackURL      string        `envconfig:"SOKOFRESH_MPESA_CALLBACK_URL"`
	Timeout          time.Duration `envconfig:"SOKOFRESH_MPESA_TIMEOUT" default:"30s"`
	PendingExpiry    time.Duration `envconfig:"SOKOFRESH_MPESA_PENDING_EXPIRY" default:"2h"`
	CallbackEventTTL time.Duration `envconfig:"SOKOFRESH_MPESA_CALLBACK_EVENT_TTL" default:"72h"`
}

// BillingConfig controls debt due dates and wallet debt limits.
type BillingConfig struct {
	DebtDueDays      int    `envconfig:"SOKOFRESH_DEBT_DUE_DAYS" default:"7"`
	DebtWarningDays  int    `envconfig:"SOKOFRESH_DEBT_WARNING_DAYS" default:"2"`
	DefaultDebtFloor string `envconfig:"SOKOFRESH_DEFAULT_DEBT_FLOOR" default:"-500.00"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"SOKOFRESH_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"SOKOFRESH_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"SOKOFRESH_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"SOKOFRESH_PUBSUB_ORDERS_TOPIC" default:"sf-order-events"`
	PaymentsTopic            string `envconfig:"SOKOFRESH_PUBSUB_PAYMENTS_TOPIC" default:"sf-payment-events"`
	NotificationTopic        string `envconfig:"SOKOFRESH_PUBSUB_NOTIFICATION_TOPIC" default:"sf-notification-events"`
	NotificationSubscription string `envconfig:"SOKOFRESH_PUBSUB_NOTIFICATION_SUBSCRIPTION"`

	EventTTL time.Duration `envconfig:"SOKOFRESH_PUBSUB_EVENT_TTL" default:"72h"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SOKOFRESH_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SOKOFRESH_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SOKOFRESH_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"SOKOFRESH_CRON_INTERVAL" default:"1h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
