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
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Payments     PaymentsConfig
	Catalog      CatalogConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"BOOKCOURIER_APP_ENV" required:"true"`
	Port         string `envconfig:"BOOKCOURIER_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BOOKCOURIER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BOOKCOURIER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BOOKCOURIER_DB_DSN"`
	Driver string `envconfig:"BOOKCOURIER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BOOKCOURIER_DB_HOST"`
	LegacyPort     int    `envconfig:"BOOKCOURIER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BOOKCOURIER_DB_USER"`
	LegacyPassword string `envconfig:"BOOKCOURIER_DB_PASSWORD"`
	LegacyName     string `envconfig:"BOOKCOURIER_DB_NAME"`
	LegacySSLMode  string `envconfig:"BOOKCOURIER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BOOKCOURIER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BOOKCOURIER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BOOKCOURIER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BOOKCOURIER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BOOKCOURIER_REDIS_URL" required:"true"`
	Password     string        `envconfig:"BOOKCOURIER_REDIS_PASSWORD"`
	DB           int           `envconfig:"BOOKCOURIER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BOOKCOURIER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BOOKCOURIER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BOOKCOURIER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BOOKCOURIER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BOOKCOURIER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"BOOKCOURIER_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"BOOKCOURIER_JWT_ISSUER" required:"true"`
}

type PaymentsConfig struct {
	APIKey         string        `envconfig:"BOOKCOURIER_PAYMENTS_API_KEY"`
	Env            string        `envconfig:"BOOKCOURIER_PAYMENTS_ENV" default:"test"`
	BaseURL        string        `envconfig:"BOOKCOURIER_PAYMENTS_BASE_URL"`
	SuccessURL     string        `envconfig:"BOOKCOURIER_PAYMENTS_SUCCESS_URL"`
	CancelURL      string        `envconfig:"BOOKCOURIER_PAYMENTS_CANCEL_URL"`
	Currency       string        `envconfig:"BOOKCOURIER_PAYMENTS_CURRENCY" default:"usd"`
	RequestTimeout time.Duration `envconfig:"BOOKCOURIER_PAYMENTS_REQUEST_TIMEOUT" default:"10s"`
	GuardTTL       time.Duration `envconfig:"BOOKCOURIER_PAYMENTS_GUARD_TTL" default:"24h"`
}

// Environment returns the normalized payments environment (test/live).
func (p PaymentsConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(p.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CatalogConfig struct {
	LatestLimit int `envconfig:"BOOKCOURIER_CATALOG_LATEST_LIMIT" default:"8"`
	PageLimit   int `envconfig:"BOOKCOURIER_CATALOG_PAGE_LIMIT" default:"50"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BOOKCOURIER_AUTO_MIGRATE" default:"false"`
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
