package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StorageDriverMemory   = "memory"
	StorageDriverRedis    = "redis"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
)

const (
	EnvAppEnv        = "STOREFRONT_APP_ENV"
	EnvLogLevel      = "STOREFRONT_LOG_LEVEL"
	EnvAPIBaseURL    = "STOREFRONT_API_BASE_URL"
	EnvAPITimeout    = "STOREFRONT_API_TIMEOUT"
	EnvStorageDriver = "STOREFRONT_STORAGE_DRIVER"
	EnvDBDSN         = "STOREFRONT_DB_DSN"
	EnvSQLitePath    = "STOREFRONT_SQLITE_PATH"
	EnvRedisURL      = "STOREFRONT_REDIS_URL"
	EnvRedisAddr     = "STOREFRONT_REDIS_ADDR"
	EnvDisplayOffset = "STOREFRONT_DISPLAY_OFFSET"
	EnvLogoutOn401   = "STOREFRONT_AUTH_LOGOUT_ON_UNAUTHORIZED"
)
