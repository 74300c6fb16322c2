package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
	Outbox     OutboxConfig
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
	Env          string `envconfig:"BACKENDER_APP_ENV" required:"true"`
	Port         string `envconfig:"BACKENDER_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"BACKENDER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BACKENDER_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"BACKENDER_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"BACKENDER_DB_DSN"`

	LegacyHost     string `envconfig:"BACKENDER_DB_HOST"`
	LegacyPort     int    `envconfig:"BACKENDER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BACKENDER_DB_USER"`
	LegacyPassword string `envconfig:"BACKENDER_DB_PASSWORD"`
	LegacyName     string `envconfig:"BACKENDER_DB_NAME"`
	LegacySSLMode  string `envconfig:"BACKENDER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BACKENDER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BACKENDER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BACKENDER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BACKENDER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BACKENDER_REDIS_URL"`
	Address      string        `envconfig:"BACKENDER_REDIS_ADDR"`
	Password     string        `envconfig:"BACKENDER_REDIS_PASSWORD"`
	DB           int           `envconfig:"BACKENDER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BACKENDER_REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"BACKENDER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BACKENDER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BACKENDER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// ClickHouseConfig describes connectivity to the analytical event store. The
// timeouts and retry budget apply per dispatcher pass; a pass that exhausts
// them reports a delivery failure and leaves the batch for the next tick.
type ClickHouseConfig struct {
	Host        string        `envconfig:"BACKENDER_CLICKHOUSE_HOST" required:"true"`
	Port        int           `envconfig:"BACKENDER_CLICKHOUSE_PORT" default:"9000"`
	Username    string        `envconfig:"BACKENDER_CLICKHOUSE_USER" default:"default"`
	Password    string        `envconfig:"BACKENDER_CLICKHOUSE_PASSWORD"`
	Database    string        `envconfig:"BACKENDER_CLICKHOUSE_SCHEMA" default:"event_log"`
	Table       string        `envconfig:"BACKENDER_CLICKHOUSE_EVENT_LOG_TABLE" default:"event_log"`
	DialTimeout time.Duration `envconfig:"BACKENDER_CLICKHOUSE_DIAL_TIMEOUT" default:"30s"`
	ReadTimeout time.Duration `envconfig:"BACKENDER_CLICKHOUSE_READ_TIMEOUT" default:"10s"`
	Retries     int           `envconfig:"BACKENDER_CLICKHOUSE_RETRIES" default:"2"`
}

// Addr returns the host:port pair the native protocol dials.
func (c ClickHouseConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type OutboxConfig struct {
	BatchSize     int           `envconfig:"BACKENDER_OUTBOX_BATCH_SIZE" default:"1000"`
	RelayInterval time.Duration `envconfig:"BACKENDER_OUTBOX_RELAY_INTERVAL" default:"1m"`
	LockKey       string        `envconfig:"BACKENDER_OUTBOX_RELAY_LOCK_KEY" default:"backender:outbox-relay:lock"`
	LockTTL       time.Duration `envconfig:"BACKENDER_OUTBOX_RELAY_LOCK_TTL" default:"5m"`
	MetricsAddr   string        `envconfig:"BACKENDER_OUTBOX_METRICS_ADDR" default:":9091"`
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
