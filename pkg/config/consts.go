package config

const (
	EnvPrefix = "BOOKCOURIER"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "BOOKCOURIER_APP_ENV"
	EnvPort      = "BOOKCOURIER_APP_PORT"
	EnvRedisURL  = "BOOKCOURIER_REDIS_URL"
	EnvJWTSecret = "BOOKCOURIER_JWT_SECRET"
	EnvJWTIssuer = "BOOKCOURIER_JWT_ISSUER"

	EnvDBDSN  = "BOOKCOURIER_DB_DSN"
	EnvDBHost = "BOOKCOURIER_DB_HOST"
	EnvDBUser = "BOOKCOURIER_DB_USER"
	EnvDBName = "BOOKCOURIER_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
