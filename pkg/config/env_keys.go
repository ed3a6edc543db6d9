package config

const (
	EnvPrefix = "QANLINK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "QANLINK_APP_ENV"
	EnvAppPort  = "QANLINK_APP_PORT"
	EnvLogLevel = "QANLINK_LOG_LEVEL"

	EnvDBDSN  = "QANLINK_DB_DSN"
	EnvDBHost = "QANLINK_DB_HOST"
	EnvDBUser = "QANLINK_DB_USER"
	EnvDBName = "QANLINK_DB_NAME"

	EnvRedisURL  = "QANLINK_REDIS_URL"
	EnvJWTSecret = "QANLINK_JWT_SECRET"
	EnvJWTIssuer = "QANLINK_JWT_ISSUER"

	EnvGCPProjectID           = "QANLINK_GCP_PROJECT_ID"
	EnvPubSubNotificationSub  = "QANLINK_PUBSUB_NOTIFICATION_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
