package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	FeatureFlags  FeatureFlagsConfig
	Expiry        ExpiryConfig
	Notifications NotificationsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	NATS          NATSConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Expiry.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Notifications.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PHARMACORE_APP_ENV" required:"true"`
	Port         string `envconfig:"PHARMACORE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PHARMACORE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PHARMACORE_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"PHARMACORE_LOG_FORMAT" default:"json"`

	CORSOrigins []string `envconfig:"PHARMACORE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PHARMACORE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PHARMACORE_DB_DSN"`
	Driver string `envconfig:"PHARMACORE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PHARMACORE_DB_HOST"`
	LegacyPort     int    `envconfig:"PHARMACORE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PHARMACORE_DB_USER"`
	LegacyPassword string `envconfig:"PHARMACORE_DB_PASSWORD"`
	LegacyName     string `envconfig:"PHARMACORE_DB_NAME"`
	LegacySSLMode  string `envconfig:"PHARMACORE_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"PHARMACORE_SQLITE_PATH" default:"pharmacore.db"`

	MaxOpenConns    int           `envconfig:"PHARMACORE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PHARMACORE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PHARMACORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PHARMACORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PHARMACORE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PHARMACORE_REDIS_ADDR"`
	Password     string        `envconfig:"PHARMACORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"PHARMACORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PHARMACORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PHARMACORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PHARMACORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PHARMACORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PHARMACORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PHARMACORE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PHARMACORE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PHARMACORE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite      bool `envconfig:"PHARMACORE_USE_SQLITE" default:"false"`
	AutoMigrate    bool `envconfig:"PHARMACORE_AUTO_MIGRATE" default:"false"`
	AutoQuarantine bool `envconfig:"PHARMACORE_AUTO_QUARANTINE" default:"true"`
}

// ExpiryConfig drives the daily check and sweep schedule.
type ExpiryConfig struct {
	CheckAt         string        `envconfig:"PHARMACORE_EXPIRY_CHECK_AT" default:"06:00"`
	SweepAt         string        `envconfig:"PHARMACORE_EXPIRY_SWEEP_AT" default:"00:30"`
	StaleRunTimeout time.Duration `envconfig:"PHARMACORE_EXPIRY_STALE_RUN_TIMEOUT" default:"1h"`
	TierSeedFile    string        `envconfig:"PHARMACORE_EXPIRY_TIER_SEED_FILE"`
	SchedulerTick   time.Duration `envconfig:"PHARMACORE_EXPIRY_SCHEDULER_TICK" default:"1m"`
}

// CheckTime parses CheckAt as a UTC time of day.
func (e ExpiryConfig) CheckTime() (TimeOfDay, error) {
	return ParseTimeOfDay(e.CheckAt)
}

// SweepTime parses SweepAt as a UTC time of day.
func (e ExpiryConfig) SweepTime() (TimeOfDay, error) {
	return ParseTimeOfDay(e.SweepAt)
}

func (e ExpiryConfig) validate() error {
	if _, err := e.CheckTime(); err != nil {
		return fmt.Errorf("%s: %w", EnvExpiryCheckAt, err)
	}
	if _, err := e.SweepTime(); err != nil {
		return fmt.Errorf("%s: %w", EnvExpirySweepAt, err)
	}
	if e.StaleRunTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvExpiryStaleRunTimeout)
	}
	return nil
}

// TimeOfDay is an HH:MM wall clock in UTC.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24h clock).
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q (expected HH:MM)", value)
	}
	return TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

// On returns the instant of this time of day on the UTC date of t.
func (t TimeOfDay) On(day time.Time) time.Time {
	day = day.UTC()
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, time.UTC)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

type NotificationsConfig struct {
	Sink string `envconfig:"PHARMACORE_NOTIFICATIONS_SINK" default:"pubsub"`
}

func (n NotificationsConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(n.Sink)) {
	case NotificationSinkPubSub, NotificationSinkNATS:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q", EnvNotificationsSink, NotificationSinkPubSub, NotificationSinkNATS)
	}
}

// UsesNATS reports whether notifications are relayed to JetStream.
func (n NotificationsConfig) UsesNATS() bool {
	return strings.EqualFold(strings.TrimSpace(n.Sink), NotificationSinkNATS)
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PHARMACORE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PHARMACORE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PHARMACORE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"PHARMACORE_PUBSUB_NOTIFICATION_TOPIC" default:"pharmacore-notifications"`
}

type NATSConfig struct {
	URL     string `envconfig:"PHARMACORE_NATS_URL" default:"nats://127.0.0.1:4222"`
	Stream  string `envconfig:"PHARMACORE_NATS_STREAM" default:"PHARMACORE_NOTIFICATIONS"`
	Subject string `envconfig:"PHARMACORE_NATS_SUBJECT" default:"pharmacore.notifications"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PHARMACORE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PHARMACORE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PHARMACORE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"PHARMACORE_OUTBOX_RETENTION_DAYS" default:"30"`
	DLQRetainDays  int `envconfig:"PHARMACORE_OUTBOX_DLQ_RETENTION_DAYS" default:"90"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DBDriverSQLite
		if db.DSN == "" {
			db.DSN = db.SQLitePath
		}
		return nil
	}
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
