package config

const EnvPrefix = "PHARMACORE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	NotificationSinkPubSub = "pubsub"
	NotificationSinkNATS   = "nats"
)

const (
	EnvAppEnv   = "PHARMACORE_APP_ENV"
	EnvPort     = "PHARMACORE_APP_PORT"
	EnvLogLevel = "PHARMACORE_LOG_LEVEL"
	EnvLogFmt   = "PHARMACORE_LOG_FORMAT"

	EnvDBDSN      = "PHARMACORE_DB_DSN"
	EnvDBHost     = "PHARMACORE_DB_HOST"
	EnvDBUser     = "PHARMACORE_DB_USER"
	EnvDBName     = "PHARMACORE_DB_NAME"
	EnvUseSQLite  = "PHARMACORE_USE_SQLITE"
	EnvSQLitePath = "PHARMACORE_SQLITE_PATH"

	EnvRedisURL = "PHARMACORE_REDIS_URL"

	EnvJWTSecret = "PHARMACORE_JWT_SECRET"
	EnvJWTIssuer = "PHARMACORE_JWT_ISSUER"

	EnvAutoQuarantine = "PHARMACORE_AUTO_QUARANTINE"

	EnvExpiryCheckAt         = "PHARMACORE_EXPIRY_CHECK_AT"
	EnvExpirySweepAt         = "PHARMACORE_EXPIRY_SWEEP_AT"
	EnvExpiryStaleRunTimeout = "PHARMACORE_EXPIRY_STALE_RUN_TIMEOUT"
	EnvExpiryTierSeedFile    = "PHARMACORE_EXPIRY_TIER_SEED_FILE"

	EnvNotificationsSink = "PHARMACORE_NOTIFICATIONS_SINK"

	EnvGCPProjectID            = "PHARMACORE_GCP_PROJECT_ID"
	EnvPubSubNotificationTopic = "PHARMACORE_PUBSUB_NOTIFICATION_TOPIC"

	EnvNATSURL     = "PHARMACORE_NATS_URL"
	EnvNATSSubject = "PHARMACORE_NATS_SUBJECT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
