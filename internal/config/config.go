package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Database drivers selectable through DB_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Postgres     PostgresConfig
	SQLite       SQLiteConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	CORSOrigins           string
	AuthRateLimit         int
	AuthRateWindow        time.Duration
}

// DatabaseConfig selects the credential store backend.
type DatabaseConfig struct {
	Driver        string
	RunMigrations bool
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// SQLiteConfig holds the embedded database location.
type SQLiteConfig struct {
	Path string
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret         string
	RefreshSecret     string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	PasswordResetTTL  time.Duration
	BcryptCost        int
	HashWorkers       int
	LoginMaxAttempts  int
	LoginLockout      time.Duration
	SeedAdminUsername string
	SeedAdminEmail    string
	SeedAdminPassword string
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom     string
	ResetLinkBase string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	dsn := os.Getenv("POSTGRES_DSN")
	driver := DriverSQLite
	if dsn != "" {
		driver = DriverPostgres
	}
	driver = strings.ToLower(getEnv("DB_DRIVER", driver))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "angocine-api"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "5000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			CORSOrigins:           getEnv("CORS_ALLOW_ORIGINS", "*"),
			AuthRateLimit:         getEnvAsInt("AUTH_RATE_LIMIT", 30),
			AuthRateWindow:        getEnvAsDuration("AUTH_RATE_WINDOW", time.Minute),
		},
		Database: DatabaseConfig{
			Driver:        driver,
			RunMigrations: getEnvAsBool("DB_RUN_MIGRATIONS", true),
		},
		Postgres: PostgresConfig{
			DSN:            dsn,
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		SQLite: SQLiteConfig{
			Path: getEnv("SQLITE_PATH", "database/angocine.sqlite"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:         getEnv("AUTH_JWT_SECRET", "angocine-secret-key"),
			RefreshSecret:     getEnv("AUTH_REFRESH_SECRET", "angocine-refresh-secret"),
			AccessTokenTTL:    getEnvAsDuration("AUTH_ACCESS_TOKEN_TTL", 24*time.Hour),
			RefreshTokenTTL:   getEnvAsDuration("AUTH_REFRESH_TOKEN_TTL", 7*24*time.Hour),
			PasswordResetTTL:  getEnvAsDuration("AUTH_PASSWORD_RESET_TTL", 30*time.Minute),
			BcryptCost:        getEnvAsInt("AUTH_BCRYPT_COST", 10),
			HashWorkers:       getEnvAsInt("AUTH_HASH_WORKERS", runtime.GOMAXPROCS(0)),
			LoginMaxAttempts:  getEnvAsInt("AUTH_LOGIN_MAX_ATTEMPTS", 5),
			LoginLockout:      getEnvAsDuration("AUTH_LOGIN_LOCKOUT", 15*time.Minute),
			SeedAdminUsername: getEnv("AUTH_SEED_ADMIN_USERNAME", "admin"),
			SeedAdminEmail:    os.Getenv("AUTH_SEED_ADMIN_EMAIL"),
			SeedAdminPassword: os.Getenv("AUTH_SEED_ADMIN_PASSWORD"),
		},
		Notification: NotificationConfig{
			EmailFrom:     getEnv("NOTIFY_EMAIL_FROM", "noreply@angocine.local"),
			ResetLinkBase: getEnv("NOTIFY_RESET_LINK_BASE", "http://localhost:4200/reset-password"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations the service cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("DB_DRIVER=postgres requires POSTGRES_DSN")
		}
	case DriverSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("DB_DRIVER=sqlite requires SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Auth.JWTSecret == c.Auth.RefreshSecret {
		return fmt.Errorf("AUTH_JWT_SECRET and AUTH_REFRESH_SECRET must differ")
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.Auth.SeedAdminEmail != "" && c.Auth.SeedAdminPassword == "" {
		return fmt.Errorf("AUTH_SEED_ADMIN_EMAIL requires AUTH_SEED_ADMIN_PASSWORD")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
