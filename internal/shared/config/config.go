package config

import (
	"fmt"
	"time"

	"astral-server/internal/shared/utils"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Frontend   FrontendConfig
	Logging    LoggingConfig
	RateLimit  RateLimitConfig
	Simulation SimulationConfig
	Messaging  MessagingConfig
	Metrics    MetricsConfig
}

type ServerConfig struct {
	Port         string
	URL          string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig selects the snapshot store. Driver is one of
// "postgres", "sqlite3" or "memory".
type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
	CacheTTL time.Duration
}

type AuthConfig struct {
	JWTSecret       string
	TokenExpiration time.Duration
}

type FrontendConfig struct {
	URL       string
	CORSDebug bool
}

type LoggingConfig struct {
	Level      string
	Format     string
	JSONFormat bool
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	TrustProxy        bool
}

type SimulationConfig struct {
	ContentDir        string
	TickInterval      time.Duration
	TickDelta         float64
	Seed              int64
	StrictAnchors     bool
	AutosaveEvery     int
	SnapshotName      string
	CasualtyRetention uint64
	PlayerName        string
	PlayerCash        int64
}

type MessagingConfig struct {
	NATSEnabled     bool
	NATSURL         string
	SubjectPrefix   string
	InboxCapacity   int
	RedisInboxLimit int64
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

var GlobalConfig *Config

func Init() error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	config, err := load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	GlobalConfig = config
	return nil
}

func load() (*Config, error) {
	config := &Config{
		Server:     loadServerConfig(),
		Database:   loadDatabaseConfig(),
		Redis:      loadRedisConfig(),
		Auth:       loadAuthConfig(),
		Frontend:   loadFrontendConfig(),
		Logging:    loadLoggingConfig(),
		RateLimit:  loadRateLimitConfig(),
		Simulation: loadSimulationConfig(),
		Messaging:  loadMessagingConfig(),
		Metrics:    loadMetricsConfig(),
	}

	return config, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:         utils.GetEnv("SERVER_PORT", "8080"),
		URL:          utils.GetEnv("SERVER_URL", "http://localhost:8080"),
		Environment:  utils.GetEnv("ENVIRONMENT", "development"),
		ReadTimeout:  time.Duration(utils.GetEnvInt("SERVER_READ_TIMEOUT_SECONDS", 15)) * time.Second,
		WriteTimeout: time.Duration(utils.GetEnvInt("SERVER_WRITE_TIMEOUT_SECONDS", 15)) * time.Second,
		IdleTimeout:  time.Duration(utils.GetEnvInt("SERVER_IDLE_TIMEOUT_SECONDS", 60)) * time.Second,
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          utils.GetEnv("DB_DRIVER", "postgres"),
		Host:            utils.GetEnv("DB_HOST", "localhost"),
		Port:            utils.GetEnv("DB_PORT", "5432"),
		User:            utils.GetEnv("DB_USER", "postgres"),
		Password:        utils.GetEnv("DB_PASSWORD", "postgres"),
		Name:            utils.GetEnv("DB_NAME", "astral"),
		SSLMode:         utils.GetEnv("DB_SSLMODE", "disable"),
		SQLitePath:      utils.GetEnv("DB_SQLITE_PATH", "astral.db"),
		MaxOpenConns:    utils.GetEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    utils.GetEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: time.Duration(utils.GetEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:  utils.GetEnv("REDIS_ENABLED", "true") == "true",
		URL:      utils.GetEnv("REDIS_URL", ""),
		Host:     utils.GetEnv("REDIS_HOST", "localhost"),
		Port:     utils.GetEnv("REDIS_PORT", "6379"),
		Password: utils.GetEnv("REDIS_PASSWORD", ""),
		DB:       utils.GetEnvInt("REDIS_DB", 0),
		CacheTTL: utils.GetEnvDuration("REDIS_SNAPSHOT_TTL", 10*time.Minute),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:       utils.GetEnv("JWT_SECRET", ""),
		TokenExpiration: time.Duration(utils.GetEnvInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
	}
}

func loadFrontendConfig() FrontendConfig {
	return FrontendConfig{
		URL:       utils.GetEnv("FRONTEND_URL", "http://localhost:3000"),
		CORSDebug: utils.GetEnv("CORS_DEBUG", "") == "true",
	}
}

func loadLoggingConfig() LoggingConfig {
	environment := utils.GetEnv("ENVIRONMENT", "development")
	format := utils.GetEnv("LOG_FORMAT", "text")

	return LoggingConfig{
		Level:      utils.GetEnv("LOG_LEVEL", "debug"),
		Format:     format,
		JSONFormat: environment == "production" || format == "json",
	}
}

func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:           utils.GetEnv("RATE_LIMIT_ENABLED", "true") == "true",
		RequestsPerSecond: utils.GetEnvFloat("RATE_LIMIT_REQUESTS_PER_SECOND", 10),
		BurstSize:         utils.GetEnvInt("RATE_LIMIT_BURST_SIZE", 20),
		TrustProxy:        utils.GetEnvBool("RATE_LIMIT_TRUST_PROXY", false),
	}
}

func loadSimulationConfig() SimulationConfig {
	return SimulationConfig{
		ContentDir:        utils.GetEnv("SIM_CONTENT_DIR", "content"),
		TickInterval:      utils.GetEnvDuration("SIM_TICK_INTERVAL", time.Second),
		TickDelta:         utils.GetEnvFloat("SIM_TICK_DELTA", 1),
		Seed:              utils.GetEnvInt64("SIM_SEED", 0),
		StrictAnchors:     utils.GetEnvBool("SIM_STRICT_ANCHORS", true),
		AutosaveEvery:     utils.GetEnvInt("SIM_AUTOSAVE_EVERY_TICKS", 0),
		SnapshotName:      utils.GetEnv("SIM_SNAPSHOT_NAME", "autosave"),
		CasualtyRetention: uint64(utils.GetEnvInt64("SIM_CASUALTY_RETENTION_TICKS", 600)),
		PlayerName:        utils.GetEnv("SIM_PLAYER_NAME", "Captain"),
		PlayerCash:        utils.GetEnvInt64("SIM_PLAYER_CASH", 10000),
	}
}

func loadMessagingConfig() MessagingConfig {
	return MessagingConfig{
		NATSEnabled:     utils.GetEnvBool("NATS_ENABLED", false),
		NATSURL:         utils.GetEnv("NATS_URL", "nats://localhost:4222"),
		SubjectPrefix:   utils.GetEnv("NATS_SUBJECT_PREFIX", "astral"),
		InboxCapacity:   utils.GetEnvInt("INBOX_CAPACITY", 200),
		RedisInboxLimit: utils.GetEnvInt64("REDIS_INBOX_LIMIT", 500),
	}
}

func loadMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled: utils.GetEnvBool("METRICS_ENABLED", true),
		Path:    utils.GetEnv("METRICS_PATH", "/metrics"),
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	case "sqlite3":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("DB_SQLITE_PATH is required")
		}
	case "memory":
	default:
		return fmt.Errorf("DB_DRIVER must be one of postgres, sqlite3, memory (got %q)", c.Database.Driver)
	}

	if c.Simulation.ContentDir == "" {
		return fmt.Errorf("SIM_CONTENT_DIR is required")
	}

	if c.Simulation.TickInterval <= 0 {
		return fmt.Errorf("SIM_TICK_INTERVAL must be positive")
	}

	if c.Simulation.AutosaveEvery < 0 {
		return fmt.Errorf("SIM_AUTOSAVE_EVERY_TICKS must not be negative")
	}

	if c.Messaging.InboxCapacity <= 0 {
		return fmt.Errorf("INBOX_CAPACITY must be positive")
	}

	return nil
}

// ValidateServer checks the settings only the HTTP server needs.
func (c *Config) ValidateServer() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	return nil
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// DataSourceName returns the DSN for the configured driver.
func (c *Config) DataSourceName() string {
	if c.Database.Driver == "sqlite3" {
		return c.Database.SQLitePath
	}
	return c.ConnectionString()
}
