// Package config provides configuration management for the metricore service.
//
// Configuration is loaded from multiple sources in this order:
// 1. Configuration files (YAML)
// 2. Environment variables
// 3. Command line flags (if applicable)
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	App         AppConfig        `mapstructure:"app"`
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	ClickHouse  ClickHouseConfig `mapstructure:"clickhouse"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Auth        AuthConfig       `mapstructure:"auth"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	Metrics     MetricsConfig    `mapstructure:"metrics"`
}

// MetricsConfig contains the metric-pipeline-specific settings layered on
// top of the ambient Database/ClickHouse/Redis connection configs: the
// widget result cache TTL, the schema-context snapshot cache size, and
// the provisional-id counter warn threshold.
type MetricsConfig struct {
	// WidgetCacheTTL is how long a widget's evaluated FieldResults stay
	// valid in the Redis result cache before the next read recomputes them.
	WidgetCacheTTL time.Duration `mapstructure:"widget_cache_ttl"`
	// SchemaContextCacheSize bounds how many distinct schema-version
	// PipelineContext snapshots SchemaLoader holds at once.
	SchemaContextCacheSize int `mapstructure:"schema_context_cache_size"`
	// ProvisionalIDWarnThreshold is loaded and validated as positive; no
	// pipeline code reads it, so nothing logs a warning when a run's
	// provisional id counters pass this magnitude.
	ProvisionalIDWarnThreshold int64 `mapstructure:"provisional_id_warn_threshold"`
}

// Validate checks MetricsConfig's structural invariants.
func (mc *MetricsConfig) Validate() error {
	if mc.WidgetCacheTTL <= 0 {
		return fmt.Errorf("metrics.widget_cache_ttl must be positive")
	}
	if mc.SchemaContextCacheSize <= 0 {
		return fmt.Errorf("metrics.schema_context_cache_size must be positive")
	}
	if mc.ProvisionalIDWarnThreshold <= 0 {
		return fmt.Errorf("metrics.provisional_id_warn_threshold must be positive")
	}
	return nil
}

// AppConfig contains application-level configuration.
type AppConfig struct {
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Environment        string        `mapstructure:"environment"`
	Host               string        `mapstructure:"host"`
	CORSAllowedOrigins []string      `mapstructure:"cors_allowed_origins"`
	CORSAllowedHeaders []string      `mapstructure:"cors_allowed_headers"`
	CORSAllowedMethods []string      `mapstructure:"cors_allowed_methods"`
	ReadTimeout        time.Duration `mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout"`
	Port               int           `mapstructure:"port"`
}

// DatabaseConfig contains PostgreSQL database configuration.
type DatabaseConfig struct {
	SSLMode         string        `mapstructure:"ssl_mode"`
	Host            string        `mapstructure:"host"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	URL             string        `mapstructure:"url"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
	Port            int           `mapstructure:"port"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// ClickHouseConfig contains ClickHouse database configuration.
type ClickHouseConfig struct {
	MigrationsPath  string        `mapstructure:"migrations_path"`
	Host            string        `mapstructure:"host"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	Port            int           `mapstructure:"port"`
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	Host         string        `mapstructure:"host"`
	Password     string        `mapstructure:"password"`
	Port         int           `mapstructure:"port"`
	Database     int           `mapstructure:"database"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
	Output string `mapstructure:"output"` // stdout, stderr
}

// Validate validates the main configuration and all sub-configurations.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config validation failed: %w", err)
	}

	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database config validation failed: %w", err)
	}

	if err := c.ClickHouse.Validate(); err != nil {
		return fmt.Errorf("clickhouse config validation failed: %w", err)
	}

	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis config validation failed: %w", err)
	}

	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth config validation failed: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config validation failed: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config validation failed: %w", err)
	}

	return nil
}

// Validate validates server configuration.
func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", sc.Port)
	}

	if sc.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}

	if sc.ReadTimeout < 0 {
		return fmt.Errorf("read_timeout cannot be negative")
	}

	if sc.WriteTimeout < 0 {
		return fmt.Errorf("write_timeout cannot be negative")
	}

	if len(sc.CORSAllowedOrigins) == 0 {
		return fmt.Errorf("cors_allowed_origins must have at least one entry")
	}

	return nil
}

// Validate validates database configuration.
func (dc *DatabaseConfig) Validate() error {
	if dc.URL != "" {
		if dc.MaxOpenConns < 0 {
			return fmt.Errorf("max_open_conns cannot be negative")
		}
		if dc.MaxIdleConns < 0 {
			return fmt.Errorf("max_idle_conns cannot be negative")
		}
		return nil
	}

	if dc.Host == "" {
		return fmt.Errorf("either url or host must be provided")
	}

	if dc.Port <= 0 || dc.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", dc.Port)
	}

	if dc.User == "" {
		return fmt.Errorf("user cannot be empty when using individual fields")
	}

	if dc.Database == "" {
		return fmt.Errorf("database name cannot be empty when using individual fields")
	}

	if dc.MaxOpenConns < 0 {
		return fmt.Errorf("max_open_conns cannot be negative")
	}

	if dc.MaxIdleConns < 0 {
		return fmt.Errorf("max_idle_conns cannot be negative")
	}

	return nil
}

// Validate validates ClickHouse configuration.
func (cc *ClickHouseConfig) Validate() error {
	if cc.URL != "" {
		return nil
	}

	if cc.Host == "" {
		return fmt.Errorf("either url or host must be provided for clickhouse")
	}

	if cc.Port <= 0 || cc.Port > 65535 {
		return fmt.Errorf("invalid clickhouse port: %d (must be 1-65535)", cc.Port)
	}

	if cc.Database == "" {
		return fmt.Errorf("clickhouse database name cannot be empty when using individual fields")
	}

	return nil
}

// Validate validates Redis configuration.
func (rc *RedisConfig) Validate() error {
	if rc.URL != "" {
		if rc.PoolSize < 0 {
			return fmt.Errorf("pool_size cannot be negative")
		}
		return nil
	}

	if rc.Host == "" {
		return fmt.Errorf("either url or host must be provided for redis")
	}

	if rc.Port <= 0 || rc.Port > 65535 {
		return fmt.Errorf("invalid redis port: %d (must be 1-65535)", rc.Port)
	}

	if rc.Database < 0 || rc.Database > 15 {
		return fmt.Errorf("invalid redis database number: %d (must be 0-15)", rc.Database)
	}

	if rc.PoolSize < 0 {
		return fmt.Errorf("pool_size cannot be negative")
	}

	return nil
}

// Validate validates logging configuration.
func (lc *LoggingConfig) Validate() error {
	validLevels := []string{"debug", "info", "warn", "error"}
	isValid := false
	for _, level := range validLevels {
		if lc.Level == level {
			isValid = true
			break
		}
	}
	if !isValid {
		return fmt.Errorf("invalid log level: %s (must be one of %v)", lc.Level, validLevels)
	}

	validFormats := []string{"json", "text"}
	isValid = false
	for _, format := range validFormats {
		if lc.Format == format {
			isValid = true
			break
		}
	}
	if !isValid {
		return fmt.Errorf("invalid log format: %s (must be one of %v)", lc.Format, validFormats)
	}

	validOutputs := []string{"stdout", "stderr"}
	isValid = false
	for _, output := range validOutputs {
		if lc.Output == output {
			isValid = true
			break
		}
	}
	if !isValid {
		return fmt.Errorf("invalid log output: %s (must be one of %v)", lc.Output, validOutputs)
	}

	return nil
}

// Load loads configuration from files and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (optional, for local development)
	_ = godotenv.Load(".env")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/metricore")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	//nolint:errcheck // BindEnv only errors with invalid args, safe with string literals
	viper.BindEnv("database.url", "DATABASE_URL")
	//nolint:errcheck
	viper.BindEnv("clickhouse.url", "CLICKHOUSE_URL")
	//nolint:errcheck
	viper.BindEnv("redis.url", "REDIS_URL")
	//nolint:errcheck
	viper.BindEnv("server.port", "PORT")
	//nolint:errcheck
	viper.BindEnv("server.environment", "ENV")
	//nolint:errcheck
	viper.BindEnv("logging.level", "LOG_LEVEL")
	//nolint:errcheck
	viper.BindEnv("logging.format", "LOG_FORMAT")

	// Metrics pipeline configuration
	//nolint:errcheck
	viper.BindEnv("metrics.widget_cache_ttl", "METRICS_WIDGET_CACHE_TTL")
	//nolint:errcheck
	viper.BindEnv("metrics.schema_context_cache_size", "METRICS_SCHEMA_CONTEXT_CACHE_SIZE")
	//nolint:errcheck
	viper.BindEnv("metrics.provisional_id_warn_threshold", "METRICS_PROVISIONAL_ID_WARN_THRESHOLD")

	// CORS configuration
	//nolint:errcheck
	viper.BindEnv("server.cors_allowed_origins", "CORS_ALLOWED_ORIGINS")
	//nolint:errcheck
	viper.BindEnv("server.cors_allowed_methods", "CORS_ALLOWED_METHODS")
	//nolint:errcheck
	viper.BindEnv("server.cors_allowed_headers", "CORS_ALLOWED_HEADERS")

	// Auth configuration (HS256 bearer token verification)
	//nolint:errcheck
	viper.BindEnv("auth.jwt_issuer", "JWT_ISSUER")
	//nolint:errcheck
	viper.BindEnv("auth.jwt_secret", "JWT_SECRET")

	// Database configuration (granular environment variables)
	//nolint:errcheck
	viper.BindEnv("database.host", "DB_HOST")
	//nolint:errcheck
	viper.BindEnv("database.port", "DB_PORT")
	//nolint:errcheck
	viper.BindEnv("database.user", "DB_USER")
	//nolint:errcheck
	viper.BindEnv("database.password", "DB_PASSWORD")
	//nolint:errcheck
	viper.BindEnv("database.database", "DB_NAME")
	//nolint:errcheck
	viper.BindEnv("database.ssl_mode", "DB_SSLMODE")
	//nolint:errcheck
	viper.BindEnv("database.auto_migrate", "DB_AUTO_MIGRATE")
	//nolint:errcheck
	viper.BindEnv("database.migrations_path", "DATABASE_MIGRATIONS_PATH")

	// ClickHouse migration configuration
	//nolint:errcheck
	viper.BindEnv("clickhouse.migrations_path", "CLICKHOUSE_MIGRATIONS_PATH")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	// App defaults
	viper.SetDefault("app.name", "metricore")
	viper.SetDefault("app.version", "1.0.0")

	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.environment", "development")
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "30s")

	// CORS defaults (dev-friendly)
	viper.SetDefault("server.cors_allowed_origins", []string{"http://localhost:3000", "http://localhost:3001"})
	viper.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"})
	viper.SetDefault("server.cors_allowed_headers", []string{"Content-Type", "Authorization"})

	// Database defaults (URL-first, individual fields as fallback)
	viper.SetDefault("database.url", "")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "metricore")
	viper.SetDefault("database.database", "")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 100)
	viper.SetDefault("database.max_idle_conns", 10)
	viper.SetDefault("database.conn_max_lifetime", "1h")
	viper.SetDefault("database.auto_migrate", false)
	viper.SetDefault("database.migrations_path", "migrations")

	// ClickHouse defaults (URL-first, individual fields as fallback)
	viper.SetDefault("clickhouse.url", "")
	viper.SetDefault("clickhouse.host", "localhost")
	viper.SetDefault("clickhouse.port", 9000)
	viper.SetDefault("clickhouse.user", "default")
	viper.SetDefault("clickhouse.database", "default")
	viper.SetDefault("clickhouse.max_open_conns", 50)
	viper.SetDefault("clickhouse.max_idle_conns", 5)
	viper.SetDefault("clickhouse.conn_max_lifetime", "1h")
	viper.SetDefault("clickhouse.read_timeout", "30s")
	viper.SetDefault("clickhouse.write_timeout", "30s")

	// Redis defaults (URL-first, individual fields as fallback)
	viper.SetDefault("redis.url", "")
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.database", 0)
	viper.SetDefault("redis.pool_size", 20)
	viper.SetDefault("redis.min_idle_conns", 5)
	viper.SetDefault("redis.idle_timeout", "5m")
	viper.SetDefault("redis.max_retries", 3)

	// Auth defaults (HS256 signing only; must set JWT_SECRET in production)
	viper.SetDefault("auth.jwt_issuer", "metricore")
	viper.SetDefault("auth.jwt_secret", "")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")

	// Metrics pipeline defaults
	viper.SetDefault("metrics.widget_cache_ttl", "5m")
	viper.SetDefault("metrics.schema_context_cache_size", 4)
	viper.SetDefault("metrics.provisional_id_warn_threshold", 1000000)
}

// GetServerAddress returns the server address string.
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetDatabaseURL returns the PostgreSQL connection URL.
func (c *Config) GetDatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User, c.Database.Password, c.Database.Host,
		c.Database.Port, c.Database.Database, c.Database.SSLMode)
}

// GetClickHouseURL returns the ClickHouse connection URL.
// The URL includes x-multi-statement=true to allow migrations with multiple SQL statements.
func (c *Config) GetClickHouseURL() string {
	if c.ClickHouse.URL != "" {
		if !strings.Contains(c.ClickHouse.URL, "x-multi-statement") {
			separator := "?"
			if strings.Contains(c.ClickHouse.URL, "?") {
				separator = "&"
			}
			return c.ClickHouse.URL + separator + "x-multi-statement=true"
		}
		return c.ClickHouse.URL
	}

	return fmt.Sprintf("clickhouse://%s:%s@%s:%d/%s?x-multi-statement=true",
		c.ClickHouse.User, c.ClickHouse.Password, c.ClickHouse.Host,
		c.ClickHouse.Port, c.ClickHouse.Database)
}

// GetRedisURL returns the Redis connection URL.
func (c *Config) GetRedisURL() string {
	if c.Redis.URL != "" {
		return c.Redis.URL
	}

	if c.Redis.Password != "" {
		return fmt.Sprintf("redis://:%s@%s:%d/%d",
			c.Redis.Password, c.Redis.Host, c.Redis.Port, c.Redis.Database)
	}
	return fmt.Sprintf("redis://%s:%d/%d",
		c.Redis.Host, c.Redis.Port, c.Redis.Database)
}

// IsDevelopment returns true if running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}
