package config

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "prod",
		Server: ServerConfig{
			Port: 4361,
			Host: "localhost",
		},
		Backend: BackendConfig{
			BaseURL: "",
			Timeout: "10s",
		},
		Auth: AuthConfig{
			ProviderURL: "https://auth.privy.io",
			CallbackURL: "http://localhost:4361/auth/callback",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console", "file"},
			FilePath:   "logs/asset-portal.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}
