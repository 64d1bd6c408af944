package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pgpulse/pgpulse/src/models"
)

// Config represents the application configuration.
type Config struct {
	Server     ServerConfig           `yaml:"server"`
	Database   DatabaseConfig         `yaml:"database"`
	Thresholds models.AlertThresholds `yaml:"thresholds"`
	Collection CollectionConfig       `yaml:"collection"`
	Recorder   RecorderConfig         `yaml:"recorder"`
	Logging    LoggingConfig          `yaml:"logging"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// DatabaseConfig represents the monitored PostgreSQL database.
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxConnections  int           `yaml:"max_connections"`
	MinConnections  int           `yaml:"min_connections"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// CollectionConfig controls the collection loop.
type CollectionConfig struct {
	Interval        time.Duration `yaml:"interval"`
	SubQueryTimeout time.Duration `yaml:"sub_query_timeout"`
	HistoryCapacity int           `yaml:"history_capacity"`
	TrendWindow     time.Duration `yaml:"trend_window"`
}

// RecorderConfig controls persistence of snapshot summaries to the
// long-term metrics store.
type RecorderConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// LoggingConfig represents logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// LoadConfig loads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	cfg := defaultConfig()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables in the config file
		expandedData := expandEnvVars(string(data))

		if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.overrideFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// expandEnvVars expands ${VAR} or $VAR patterns in the input string.
func expandEnvVars(input string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Z_][A-Z0-9_]*)`)
	return re.ReplaceAllStringFunc(input, func(match string) string {
		var varName string
		if match[1] == '{' {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		// Return original if not found
		return match
	})
}

// defaultConfig returns default configuration.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "postgres",
			SSLMode:  "disable",
		},
		Thresholds: models.DefaultThresholds(),
		Collection: CollectionConfig{
			Interval:        60 * time.Second,
			SubQueryTimeout: 10 * time.Second,
			HistoryCapacity: 100,
			TrendWindow:     time.Hour,
		},
		Recorder: RecorderConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// overrideFromEnv overrides configuration with environment variables.
func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		c.Logging.Format = format
	}

	if interval := os.Getenv("COLLECTION_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			c.Collection.Interval = d
		}
	}

	if dbHost := os.Getenv("DATABASE_HOST"); dbHost != "" {
		c.Database.Host = dbHost
	}
	if dbPort := os.Getenv("DATABASE_PORT"); dbPort != "" {
		if p, err := strconv.Atoi(dbPort); err == nil {
			c.Database.Port = p
		}
	}
	if user := os.Getenv("DATABASE_USER"); user != "" {
		c.Database.User = user
	}
	if password := os.Getenv("DATABASE_PASSWORD"); password != "" {
		c.Database.Password = password
	}
	if name := os.Getenv("DATABASE_NAME"); name != "" {
		c.Database.Database = name
	}
	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		c.Database.SSLMode = sslMode
	}

	if dsn := os.Getenv("RECORDER_DSN"); dsn != "" {
		c.Recorder.DSN = dsn
		c.Recorder.Enabled = true
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Collection.Interval <= 0 {
		return fmt.Errorf("collection interval must be positive")
	}
	if c.Collection.SubQueryTimeout <= 0 {
		return fmt.Errorf("sub-query timeout must be positive")
	}
	if c.Collection.HistoryCapacity < 1 {
		return fmt.Errorf("history capacity must be at least 1")
	}

	if c.Recorder.Enabled && c.Recorder.DSN == "" {
		return fmt.Errorf("recorder DSN is required when the recorder is enabled")
	}

	if err := c.Thresholds.Validate(); err != nil {
		return fmt.Errorf("invalid thresholds: %w", err)
	}

	return nil
}
