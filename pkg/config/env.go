package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "STOREFRONT_APP_ENV"
	EnvPort         = "STOREFRONT_APP_PORT"
	EnvLogLevel     = "STOREFRONT_LOG_LEVEL"
	EnvLogWarnStack = "STOREFRONT_LOG_WARN_STACK"

	EnvHTTPAllowedOrigins = "STOREFRONT_HTTP_ALLOWED_ORIGINS"

	EnvCartServiceURL     = "STOREFRONT_CART_SERVICE_URL"
	EnvCartServiceTimeout = "STOREFRONT_CART_SERVICE_TIMEOUT"
	EnvCartVoucherPolicy  = "STOREFRONT_CART_VOUCHER_POLICY"

	EnvRedisURL  = "STOREFRONT_REDIS_URL"
	EnvRedisAddr = "STOREFRONT_REDIS_ADDR"

	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer = "STOREFRONT_JWT_ISSUER"

	EnvSessionIdleTTL       = "STOREFRONT_SESSION_IDLE_TTL"
	EnvSessionSweepInterval = "STOREFRONT_SESSION_SWEEP_INTERVAL"

	EnvRateLimitWindow = "STOREFRONT_RATE_LIMIT_WINDOW"

	EnvEventsEnabled = "STOREFRONT_EVENTS_ENABLED"
	EnvEventsTopic   = "STOREFRONT_EVENTS_TOPIC"
	EnvGCPProjectID  = "STOREFRONT_GCP_PROJECT_ID"

	EnvMetricsEnabled = "STOREFRONT_METRICS_ENABLED"
	EnvMetricsPath    = "STOREFRONT_METRICS_PATH"
)
