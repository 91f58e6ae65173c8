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
	Password     PasswordConfig
	Esewa        EsewaConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"EPHARM_APP_ENV" required:"true"`
	Port         string `envconfig:"EPHARM_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"EPHARM_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"EPHARM_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"EPHARM_DB_DSN"`
	Driver string `envconfig:"EPHARM_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"EPHARM_DB_HOST"`
	LegacyPort     int    `envconfig:"EPHARM_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"EPHARM_DB_USER"`
	LegacyPassword string `envconfig:"EPHARM_DB_PASSWORD"`
	LegacyName     string `envconfig:"EPHARM_DB_NAME"`
	LegacySSLMode  string `envconfig:"EPHARM_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"EPHARM_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"EPHARM_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"EPHARM_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"EPHARM_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"EPHARM_REDIS_URL" required:"true"`
	Address      string        `envconfig:"EPHARM_REDIS_ADDR"`
	Password     string        `envconfig:"EPHARM_REDIS_PASSWORD"`
	DB           int           `envconfig:"EPHARM_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"EPHARM_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"EPHARM_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"EPHARM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"EPHARM_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"EPHARM_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"EPHARM_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"EPHARM_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"EPHARM_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"EPHARM_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"EPHARM_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"EPHARM_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"EPHARM_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"EPHARM_ARGON_KEY_LEN" default:"32"`
}

// EsewaConfig carries the payment gateway credentials and redirect targets.
// The signing secret is never embedded in code; boot fails when it is absent.
type EsewaConfig struct {
	ProductCode      string `envconfig:"EPHARM_ESEWA_PRODUCT_CODE" default:"EPAYTEST"`
	SecretKey        string `envconfig:"EPHARM_ESEWA_SECRET_KEY" required:"true"`
	SuccessURL       string `envconfig:"EPHARM_ESEWA_SUCCESS_URL" required:"true"`
	FailureURL       string `envconfig:"EPHARM_ESEWA_FAILURE_URL" required:"true"`
	FrontendRedirect string `envconfig:"EPHARM_ESEWA_FRONTEND_REDIRECT_URL" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"EPHARM_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"EPHARM_AUTO_MIGRATE" default:"false"`
}

type CronConfig struct {
	Interval          time.Duration `envconfig:"EPHARM_CRON_INTERVAL" default:"1h"`
	PendingPaymentTTL time.Duration `envconfig:"EPHARM_CRON_PENDING_PAYMENT_TTL" default:"24h"`
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
