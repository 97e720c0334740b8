package config

import "time"

// Storage driver names accepted by StoreDriver and SessionDriver.
const (
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// APIConfig holds runtime configuration for the API service.
type APIConfig struct {
	Environment          string
	LogLevel             string
	Addr                 string
	DatabaseURL          string
	MigrationsDir        string
	StoreDriver          string
	SessionDriver        string
	SessionCookieName    string
	SessionSecret        string
	SessionTTL           time.Duration
	SessionCookieSecure  bool
	SessionAllowOrphaned bool
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	RateLimitRedis       bool
}

// LoadAPIConfig constructs an APIConfig from environment variables.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:          GetString("APP_ENV", "development"),
		LogLevel:             GetString("LOG_LEVEL", "info"),
		Addr:                 GetString("API_ADDR", ":3000"),
		DatabaseURL:          GetString("DATABASE_URL", "postgres://reportdesk:reportdesk@db:5432/reportdesk?sslmode=disable"),
		MigrationsDir:        GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		StoreDriver:          GetString("STORE_DRIVER", DriverPostgres),
		SessionDriver:        GetString("SESSION_DRIVER", DriverRedis),
		SessionCookieName:    GetString("SESSION_COOKIE_NAME", "session"),
		SessionSecret:        GetString("SESSION_SECRET", "supersecuresecret"),
		SessionTTL:           time.Duration(GetInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		SessionCookieSecure:  GetBool("SESSION_COOKIE_SECURE", false),
		SessionAllowOrphaned: GetBool("SESSION_ALLOW_ORPHANED", false),
		RedisAddr:            GetString("REDIS_ADDR", "redis:6379"),
		RedisPassword:        GetString("REDIS_PASSWORD", ""),
		RedisDB:              GetInt("REDIS_DB", 0),
		RateLimitRedis:       GetBool("RATE_LIMIT_REDIS", false),
	}
}

// Production reports whether the service runs in a production environment.
func (c APIConfig) Production() bool {
	return c.Environment == "production"
}
