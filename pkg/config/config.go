package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "TOURLANKA_DB_DSN"
	EnvDBHost = "TOURLANKA_DB_HOST"
	EnvDBUser = "TOURLANKA_DB_USER"
	EnvDBName = "TOURLANKA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	PayHere      PayHereConfig
	Stripe       StripeConfig
	Reconcile    ReconcileConfig
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
	Env          string `envconfig:"TOURLANKA_APP_ENV" required:"true"`
	Port         string `envconfig:"TOURLANKA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"TOURLANKA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TOURLANKA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TOURLANKA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TOURLANKA_DB_DSN"`
	Driver string `envconfig:"TOURLANKA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TOURLANKA_DB_HOST"`
	LegacyPort     int    `envconfig:"TOURLANKA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TOURLANKA_DB_USER"`
	LegacyPassword string `envconfig:"TOURLANKA_DB_PASSWORD"`
	LegacyName     string `envconfig:"TOURLANKA_DB_NAME"`
	LegacySSLMode  string `envconfig:"TOURLANKA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TOURLANKA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TOURLANKA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TOURLANKA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TOURLANKA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TOURLANKA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TOURLANKA_REDIS_ADDR"`
	Password     string        `envconfig:"TOURLANKA_REDIS_PASSWORD"`
	DB           int           `envconfig:"TOURLANKA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TOURLANKA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TOURLANKA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TOURLANKA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TOURLANKA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TOURLANKA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"TOURLANKA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TOURLANKA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TOURLANKA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TOURLANKA_AUTO_MIGRATE" default:"false"`
}

// PayHereConfig carries the merchant credentials for the redirect-based gateway.
type PayHereConfig struct {
	MerchantID     string `envconfig:"TOURLANKA_PAYHERE_MERCHANT_ID"`
	MerchantSecret string `envconfig:"TOURLANKA_PAYHERE_MERCHANT_SECRET"`
	AppID          string `envconfig:"TOURLANKA_PAYHERE_APP_ID"`
	AppSecret      string `envconfig:"TOURLANKA_PAYHERE_APP_SECRET"`
	BaseURL        string `envconfig:"TOURLANKA_PAYHERE_BASE_URL" default:"https://sandbox.payhere.lk"`
	ReturnURL      string `envconfig:"TOURLANKA_PAYHERE_RETURN_URL"`
	CancelURL      string `envconfig:"TOURLANKA_PAYHERE_CANCEL_URL"`
	NotifyURL      string `envconfig:"TOURLANKA_PAYHERE_NOTIFY_URL"`
}

type StripeConfig struct {
	APIKey     string `envconfig:"TOURLANKA_STRIPE_API_KEY"`
	Secret     string `envconfig:"TOURLANKA_STRIPE_SECRET"`
	Env        string `envconfig:"TOURLANKA_STRIPE_ENV" default:"test"`
	SuccessURL string `envconfig:"TOURLANKA_STRIPE_SUCCESS_URL"`
	CancelURL  string `envconfig:"TOURLANKA_STRIPE_CANCEL_URL"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// ReconcileConfig tunes the stuck-payment sweep.
type ReconcileConfig struct {
	PendingAge time.Duration `envconfig:"TOURLANKA_RECONCILE_PENDING_AGE" default:"168h"`
	Limit      int           `envconfig:"TOURLANKA_RECONCILE_LIMIT" default:"250"`
	Interval   time.Duration `envconfig:"TOURLANKA_RECONCILE_INTERVAL" default:"6h"`
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
