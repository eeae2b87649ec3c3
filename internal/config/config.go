package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Backend     BackendConfig `toml:"backend"`
	Auth        AuthConfig    `toml:"auth"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// BackendConfig contains settings for the Metaversal backend REST API.
type BackendConfig struct {
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

// AuthConfig contains identity-provider settings. JWTSecret is optional:
// when empty, session tokens are decoded without signature verification
// (the backend issues them, the portal only reads claims).
type AuthConfig struct {
	ProviderAppID string `toml:"provider_app_id"`
	ProviderURL   string `toml:"provider_url"`
	CallbackURL   string `toml:"callback_url"`
	JWTSecret     string `toml:"jwt_secret"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level      string   `toml:"level"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)
	config.Environment = normalizeEnvironment(config.Environment)

	return config, nil
}

// applyEnvOverrides applies PORTAL_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PORTAL_ENV"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("PORTAL_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("PORTAL_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if url := os.Getenv("PORTAL_BACKEND_BASE_URL"); url != "" {
		config.Backend.BaseURL = url
	}
	if appID := os.Getenv("PORTAL_PROVIDER_APP_ID"); appID != "" {
		config.Auth.ProviderAppID = appID
	}
	if url := os.Getenv("PORTAL_PROVIDER_URL"); url != "" {
		config.Auth.ProviderURL = url
	}
	if url := os.Getenv("PORTAL_CALLBACK_URL"); url != "" {
		config.Auth.CallbackURL = url
	}
	if secret := os.Getenv("PORTAL_JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if level := os.Getenv("PORTAL_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks mandatory configuration and returns a list of issues.
// A missing backend base URL or identity-provider app ID is startup-fatal.
func (c *Config) Validate() []string {
	var issues []string

	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		issues = append(issues, "backend.base_url is required (or PORTAL_BACKEND_BASE_URL)")
	}
	if strings.TrimSpace(c.Auth.ProviderAppID) == "" {
		issues = append(issues, "auth.provider_app_id is required (or PORTAL_PROVIDER_APP_ID)")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}

	return issues
}

// IsDevMode returns true when running in dev mode.
func (c *Config) IsDevMode() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "dev"
}

// BaseURL returns the portal's own base URL.
func (c *Config) BaseURL() string {
	host := c.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Server.Port)
}

// normalizeEnvironment maps environment aliases to their canonical short forms.
// "development" -> "dev", "production" -> "prod". Other values pass through.
func normalizeEnvironment(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "development":
		return "dev"
	case "production":
		return "prod"
	default:
		return env
	}
}
