package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Change feed backends.
const (
	ChangeFeedAuto      = "auto"
	ChangeFeedInProcess = "inprocess"
	ChangeFeedPostgres  = "postgres"
	ChangeFeedRedis     = "redis"
	ChangeFeedRabbitMQ  = "rabbitmq"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv   string
	LogLevel string

	// Database
	DatabaseURL    string
	DatabaseDriver string
	SQLitePath     string
	LocalMode      bool

	// Change feed
	ChangeFeed  string
	RedisURL    string
	RabbitMQURL string

	// Subscription retry
	SubscribeMaxAttempts int
	SubscribeBackoff     time.Duration

	// Store circuit breaker
	BreakerFailures int
	BreakerTimeout  time.Duration

	// Session
	SessionPath   string
	KDFIterations int

	// CalDAV
	CalDAVURL          string
	CalDAVUsername     string
	CalDAVPassword     string
	CalDAVCalendarPath string

	// MCP
	MCPAddr      string
	MCPAuthToken string

	// HTTP API
	HTTPAddr     string
	APIAuthToken string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	databaseURL := getEnv("DATABASE_URL", "")
	localMode := databaseURL == ""
	driver := "postgres"
	if localMode {
		driver = "sqlite"
	}

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "warn"),

		DatabaseURL:    databaseURL,
		DatabaseDriver: driver,
		SQLitePath:     getEnv("LAKRON_SQLITE_PATH", defaultPath("data.db")),
		LocalMode:      localMode,

		ChangeFeed:  strings.ToLower(getEnv("LAKRON_CHANGEFEED", ChangeFeedAuto)),
		RedisURL:    getEnv("REDIS_URL", ""),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		SubscribeMaxAttempts: getIntEnv("LAKRON_SUBSCRIBE_MAX_ATTEMPTS", 3),
		SubscribeBackoff:     getDurationEnv("LAKRON_SUBSCRIBE_BACKOFF", 2*time.Second),

		BreakerFailures: getIntEnv("LAKRON_BREAKER_FAILURES", 5),
		BreakerTimeout:  getDurationEnv("LAKRON_BREAKER_TIMEOUT", 30*time.Second),

		SessionPath:   getEnv("LAKRON_SESSION_PATH", defaultPath("session.json")),
		KDFIterations: getIntEnv("LAKRON_KDF_ITERATIONS", 100_000),

		CalDAVURL:          getEnv("CALDAV_URL", ""),
		CalDAVUsername:     getEnv("CALDAV_USERNAME", ""),
		CalDAVPassword:     getEnv("CALDAV_PASSWORD", ""),
		CalDAVCalendarPath: getEnv("CALDAV_CALENDAR_PATH", ""),

		MCPAddr:      getEnv("MCP_ADDR", "127.0.0.1:8082"),
		MCPAuthToken: getEnv("MCP_AUTH_TOKEN", ""),

		HTTPAddr:     getEnv("HTTP_ADDR", "127.0.0.1:8080"),
		APIAuthToken: getEnv("LAKRON_API_TOKEN", ""),
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// ResolvedChangeFeed picks the change feed backend. In auto mode a
// configured broker wins, then Postgres LISTEN/NOTIFY, then the in-process
// bus.
func (c *Config) ResolvedChangeFeed() string {
	if c.ChangeFeed != "" && c.ChangeFeed != ChangeFeedAuto {
		return c.ChangeFeed
	}
	switch {
	case c.RabbitMQURL != "":
		return ChangeFeedRabbitMQ
	case c.RedisURL != "":
		return ChangeFeedRedis
	case !c.LocalMode:
		return ChangeFeedPostgres
	default:
		return ChangeFeedInProcess
	}
}

// CalDAVEnabled reports whether CalDAV sync is configured.
func (c *Config) CalDAVEnabled() bool {
	return c.CalDAVURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func defaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".lakron", name)
	}
	return filepath.Join(home, ".lakron", name)
}
