// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config is the root configuration of the bridge process.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logging  LoggingConfig
	Bridge   BridgeConfig
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST,default=0.0.0.0"`
	Port            int           `env:"SERVER_PORT,default=8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT,default=30s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT,default=30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT,default=120s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=30s"`
}

// DatabaseConfig configures the node store. An empty DSN selects the
// in-memory store.
type DatabaseConfig struct {
	Driver          string `env:"DATABASE_DRIVER,default=postgres"`
	DSN             string `env:"DATABASE_DSN"`
	MaxOpenConns    int    `env:"DATABASE_MAX_OPEN_CONNS,default=10"`
	MaxIdleConns    int    `env:"DATABASE_MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime int    `env:"DATABASE_CONN_MAX_LIFETIME,default=300"`
	Migrate         bool   `env:"DATABASE_MIGRATE,default=true"`
}

// LoggingConfig configures pkg/logger.
type LoggingConfig struct {
	Level      string `env:"LOG_LEVEL,default=info"`
	Format     string `env:"LOG_FORMAT,default=text"`
	Output     string `env:"LOG_OUTPUT,default=stdout"`
	FilePrefix string `env:"LOG_FILE_PREFIX,default=bridge"`
}

// BridgeConfig configures the script host and the dispatch adapters.
type BridgeConfig struct {
	// ContextPath is the application context path, e.g. "/alfresco".
	ContextPath string `env:"BRIDGE_CONTEXT_PATH"`
	// ServicePath is where scripts are mounted below the context path.
	ServicePath string `env:"BRIDGE_SERVICE_PATH,default=/service"`
	// ScriptsConfigPath points at the scripts YAML file.
	ScriptsConfigPath string `env:"BRIDGE_SCRIPTS_CONFIG,default=config/scripts.yaml"`
	// DictionaryPath points at the namespace model YAML file. Empty selects
	// the built-in content model.
	DictionaryPath string `env:"BRIDGE_DICTIONARY_PATH"`

	CORSOrigins []string `env:"BRIDGE_CORS_ORIGINS"`
	RateLimit   int      `env:"BRIDGE_RATE_LIMIT,default=0"`
	RateBurst   int      `env:"BRIDGE_RATE_BURST,default=20"`
}

// Load reads an optional .env file and decodes the environment.
func Load() (*Config, error) {
	return LoadWithEnvFiles()
}

// LoadWithEnvFiles loads the given env files (default ".env") before decoding.
// Missing files are ignored.
func LoadWithEnvFiles(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !isNotExist(err) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the decoded values and normalises paths.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}

	c.Bridge.ContextPath = normalizePath(c.Bridge.ContextPath)
	c.Bridge.ServicePath = normalizePath(c.Bridge.ServicePath)
	if c.Bridge.ServicePath == "" {
		return errors.New("bridge service path is required")
	}
	if c.Bridge.RateLimit < 0 {
		return fmt.Errorf("bridge rate limit %d must not be negative", c.Bridge.RateLimit)
	}
	if c.Bridge.RateLimit > 0 && c.Bridge.RateBurst <= 0 {
		c.Bridge.RateBurst = c.Bridge.RateLimit
	}
	return nil
}

// Address returns the listen address.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// normalizePath returns p with a single leading slash and no trailing slash.
// The root path normalises to "".
func normalizePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
