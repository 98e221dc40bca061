package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "BAZARKALA"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "BAZARKALA_DB_DSN"
	EnvDBHost = "BAZARKALA_DB_HOST"
	EnvDBUser = "BAZARKALA_DB_USER"
	EnvDBName = "BAZARKALA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Sweeper      SweeperConfig
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
	Env          string `envconfig:"BAZARKALA_APP_ENV" required:"true"`
	LogLevel     string `envconfig:"BAZARKALA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BAZARKALA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"BAZARKALA_SERVICE_KIND" default:"engine"`
}

type DBConfig struct {
	DSN    string `envconfig:"BAZARKALA_DB_DSN"`
	Driver string `envconfig:"BAZARKALA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BAZARKALA_DB_HOST"`
	LegacyPort     int    `envconfig:"BAZARKALA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BAZARKALA_DB_USER"`
	LegacyPassword string `envconfig:"BAZARKALA_DB_PASSWORD"`
	LegacyName     string `envconfig:"BAZARKALA_DB_NAME"`
	LegacySSLMode  string `envconfig:"BAZARKALA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAZARKALA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAZARKALA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAZARKALA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAZARKALA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BAZARKALA_REDIS_URL"`
	Address      string        `envconfig:"BAZARKALA_REDIS_ADDR"`
	Password     string        `envconfig:"BAZARKALA_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAZARKALA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAZARKALA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAZARKALA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAZARKALA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAZARKALA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAZARKALA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SweeperConfig struct {
	Interval time.Duration `envconfig:"BAZARKALA_SWEEPER_INTERVAL" default:"60s"`
	LockTTL  time.Duration `envconfig:"BAZARKALA_SWEEPER_LOCK_TTL" default:"5m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BAZARKALA_AUTO_MIGRATE" default:"false"`
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
