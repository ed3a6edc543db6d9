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
	Eventing     EventingConfig
	Push         PushConfig
	Geocode      GeocodeConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	FanOut       FanOutConfig
	Requests     RequestsConfig
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
	Env          string `envconfig:"QANLINK_APP_ENV" required:"true"`
	Port         string `envconfig:"QANLINK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"QANLINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"QANLINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"QANLINK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"QANLINK_DB_DSN"`
	Driver string `envconfig:"QANLINK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"QANLINK_DB_HOST"`
	LegacyPort     int    `envconfig:"QANLINK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"QANLINK_DB_USER"`
	LegacyPassword string `envconfig:"QANLINK_DB_PASSWORD"`
	LegacyName     string `envconfig:"QANLINK_DB_NAME"`
	LegacySSLMode  string `envconfig:"QANLINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"QANLINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"QANLINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"QANLINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"QANLINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"QANLINK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"QANLINK_REDIS_ADDR"`
	Password     string        `envconfig:"QANLINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"QANLINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"QANLINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"QANLINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"QANLINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"QANLINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"QANLINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret   string `envconfig:"QANLINK_JWT_SECRET" required:"true"`
	Issuer   string `envconfig:"QANLINK_JWT_ISSUER" required:"true"`
	Audience string `envconfig:"QANLINK_JWT_AUDIENCE"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"QANLINK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"QANLINK_AUTO_MIGRATE" default:"false"`
	SeedCenters bool `envconfig:"QANLINK_SEED_CENTERS" default:"true"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"QANLINK_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type PushConfig struct {
	Endpoint    string        `envconfig:"QANLINK_PUSH_ENDPOINT" default:"https://exp.host/--/api/v2/push/send"`
	AccessToken string        `envconfig:"QANLINK_PUSH_ACCESS_TOKEN"`
	Timeout     time.Duration `envconfig:"QANLINK_PUSH_TIMEOUT" default:"10s"`
	BatchSize   int           `envconfig:"QANLINK_PUSH_BATCH_SIZE" default:"100"`
}

type GeocodeConfig struct {
	Endpoint  string        `envconfig:"QANLINK_GEOCODE_ENDPOINT" default:"https://nominatim.openstreetmap.org/reverse"`
	UserAgent string        `envconfig:"QANLINK_GEOCODE_USER_AGENT" default:"qanlink-backend"`
	Timeout   time.Duration `envconfig:"QANLINK_GEOCODE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"QANLINK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"QANLINK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"QANLINK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"QANLINK_PUBSUB_NOTIFICATION_TOPIC" default:"ql-notification-events"`
	NotificationSubscription string `envconfig:"QANLINK_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"QANLINK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"QANLINK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"QANLINK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FanOutConfig struct {
	MaxRecipients int     `envconfig:"QANLINK_FANOUT_MAX_RECIPIENTS" default:"100"`
	RadiusKM      float64 `envconfig:"QANLINK_FANOUT_RADIUS_KM" default:"50"`
}

type RequestsConfig struct {
	EmergencyBroadcastWindow time.Duration `envconfig:"QANLINK_EMERGENCY_BROADCAST_WINDOW" default:"60m"`
	HomeFeedLimit            int           `envconfig:"QANLINK_HOME_FEED_LIMIT" default:"10"`
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
