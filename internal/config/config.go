package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultEndpoint     = "https://app.oahu.fr"
	DefaultUserAgent    = "Oahu Go Client"
	DefaultHeaderPrefix = "Oahu"
	DefaultTimeout      = 10 * time.Second
)

// Store adapters
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config holds client credentials, store selection and preferences
type Config struct {
	// Remote service
	Endpoint       string        `yaml:"endpoint" json:"endpoint"`
	AppID          string        `yaml:"app_id" json:"app_id"`
	ClientID       string        `yaml:"client_id" json:"client_id"`
	ConsumerID     string        `yaml:"consumer_id" json:"consumer_id"`
	ConsumerSecret string        `yaml:"consumer_secret" json:"-"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	HeaderPrefix   string        `yaml:"header_prefix" json:"header_prefix"` // Signed header prefix, e.g. "Oahu" -> Oahu-App-Id
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`

	// Local store
	Store       string `yaml:"store" json:"store"`         // memory, sqlite, postgres, redis
	StoreDSN    string `yaml:"store_dsn" json:"store_dsn"` // File path, postgres URL or redis address
	RedisPrefix string `yaml:"redis_prefix" json:"redis_prefix"`

	// Mirror server
	ListenAddr  string `yaml:"listen_addr" json:"listen_addr"`
	ServerToken string `yaml:"server_token" json:"-"`

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"`     // Log level: DEBUG, INFO, WARN, ERROR
	LogFile    string `yaml:"log_file" json:"log_file"`       // Path to log file
	LogConsole bool   `yaml:"log_console" json:"log_console"` // Enable console logging
}

// Dir returns ~/.oahu
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".oahu"), nil
}

// DefaultPath returns ~/.oahu/config.yaml
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultConfig returns default settings
func DefaultConfig() *Config {
	dir, _ := Dir()
	logPath, dbPath := "", ""
	if dir != "" {
		logPath = filepath.Join(dir, "logs", "oahu.log")
		dbPath = filepath.Join(dir, "cache.db")
	}

	return &Config{
		Endpoint:     DefaultEndpoint,
		UserAgent:    DefaultUserAgent,
		HeaderPrefix: DefaultHeaderPrefix,
		Timeout:      DefaultTimeout,
		Store:        StoreSQLite,
		StoreDSN:     dbPath,
		RedisPrefix:  "oahu",
		ListenAddr:   ":8080",
		LogLevel:     "INFO",
		LogFile:      logPath,
		LogConsole:   false,
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// applyEnv overrides file values with OAHU_* environment variables
func (c *Config) applyEnv() {
	c.Endpoint = getEnv("OAHU_ENDPOINT", c.Endpoint)
	c.AppID = getEnv("OAHU_APP_ID", c.AppID)
	c.ClientID = getEnv("OAHU_CLIENT_ID", c.ClientID)
	c.ConsumerID = getEnv("OAHU_CONSUMER_ID", c.ConsumerID)
	c.ConsumerSecret = getEnv("OAHU_CONSUMER_SECRET", c.ConsumerSecret)
	c.Store = getEnv("OAHU_STORE", c.Store)
	c.StoreDSN = getEnv("OAHU_STORE_DSN", c.StoreDSN)
	c.ListenAddr = getEnv("OAHU_LISTEN_ADDR", c.ListenAddr)
	c.ServerToken = getEnv("OAHU_SERVER_TOKEN", c.ServerToken)
	c.LogLevel = getEnv("OAHU_LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("OAHU_LOG_FILE", c.LogFile)
	if v, err := strconv.ParseBool(getEnv("OAHU_LOG_CONSOLE", strconv.FormatBool(c.LogConsole))); err == nil {
		c.LogConsole = v
	}
	if v, err := time.ParseDuration(getEnv("OAHU_TIMEOUT", "")); err == nil {
		c.Timeout = v
	}
}

// Load loads config from ~/.oahu/config.yaml
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom loads config from path, falling back to defaults if it is missing
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Return defaults if no config
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// Save saves config to ~/.oahu/config.yaml
func (c *Config) Save() error {
	path, err := DefaultPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes config to path. The file holds secrets and is not world readable.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate checks the settings needed to talk to the remote service
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if c.ConsumerID == "" || c.ConsumerSecret == "" {
		return fmt.Errorf("consumer_id and consumer_secret are required, run 'oahu config' first")
	}
	return nil
}
