package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Database    DatabaseConfig    `toml:"database"`
	Media       MediaConfig       `toml:"media"`
	Logging     LoggingConfig     `toml:"logging"`
	Auth        AuthConfig        `toml:"auth"`
	AccessPoint AccessPointConfig `toml:"access_point"`
	Tunnel      TunnelConfig      `toml:"tunnel"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Port        string `toml:"port"`
	Host        string `toml:"host"`
	StaticDir   string `toml:"static_dir"`
	EnableCORS  bool   `toml:"enable_cors"`
	ReadTimeout int    `toml:"read_timeout_seconds"`
}

// DatabaseConfig contains database-related configuration
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// MediaConfig contains media library configuration
type MediaConfig struct {
	LibraryPath     string   `toml:"library_path"`
	ThumbsDir       string   `toml:"thumbs_dir"`
	AllowedPrefixes []string `toml:"allowed_mime_prefixes"`
	MaxUploadMB     int64    `toml:"max_upload_mb"`
	WatchForChanges bool     `toml:"watch_for_changes"`
	// Container selects which grouping table is used for media: "folders"
	// (flat) or "categories" (hierarchical). Resolved once at startup.
	Container string `toml:"container"`
	// FFProbePath is used to read video durations on upload. Empty disables probing.
	FFProbePath string `toml:"ffprobe_path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level          string `toml:"level"`
	Format         string `toml:"format"`
	File           string `toml:"file"`
	RequestLogging bool   `toml:"request_logging"`
}

// AuthConfig contains authentication configuration
type AuthConfig struct {
	Enabled         bool   `toml:"enabled"`
	UsersFilePath   string `toml:"users_file"`
	SessionDuration string `toml:"session_duration"`
	SecureCookies   bool   `toml:"secure_cookies"`
	MaxLoginFails   int    `toml:"max_login_fails"`
	FailWindowMins  int    `toml:"fail_window_minutes"`
}

// AccessPointConfig contains Wi-Fi access point configuration
type AccessPointConfig struct {
	Enabled    bool   `toml:"enabled"`
	Interface  string `toml:"interface"`
	SSID       string `toml:"ssid"`
	Passphrase string `toml:"passphrase"`
	Channel    int    `toml:"channel"`
	ConfigDir  string `toml:"config_dir"`
	ApplyCmd   string `toml:"apply_cmd"`
}

// TunnelConfig contains ngrok tunnel configuration
type TunnelConfig struct {
	Enabled   bool   `toml:"enabled"`
	AuthToken string `toml:"auth_token"`
	Domain    string `toml:"domain"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "8080",
			Host:        "0.0.0.0",
			StaticDir:   "./static",
			EnableCORS:  true,
			ReadTimeout: 30,
		},
		Database: DatabaseConfig{
			Path: "./slidecast.db",
		},
		Media: MediaConfig{
			LibraryPath:     "./media",
			ThumbsDir:       "./media/_thumbs",
			AllowedPrefixes: []string{"image/", "video/"},
			MaxUploadMB:     512,
			WatchForChanges: true,
			Container:       "folders",
			FFProbePath:     "ffprobe",
		},
		Logging: LoggingConfig{
			Level:          "info",
			Format:         "text",
			File:           "",
			RequestLogging: true,
		},
		Auth: AuthConfig{
			Enabled:         true,
			UsersFilePath:   "./users.toml",
			SessionDuration: "30m",
			SecureCookies:   false,
			MaxLoginFails:   5,
			FailWindowMins:  10,
		},
		AccessPoint: AccessPointConfig{
			Enabled:   false,
			Interface: "wlan0",
			SSID:      "slidecast",
			Channel:   6,
			ConfigDir: "/etc",
			ApplyCmd:  "systemctl restart hostapd dnsmasq",
		},
		Tunnel: TunnelConfig{
			Enabled:   false,
			AuthToken: "",
			Domain:    "",
		},
	}
}

// LoadConfig loads configuration from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Config file doesn't exist, create it with defaults
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
		fmt.Printf("Created default configuration file at: %s\n", configPath)
		return cfg, nil
	}

	// Load from file
	if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create or open file
	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	// Write header comment
	header := `# Slidecast Signage Server Configuration
# This file contains all configuration options for the Slidecast signage server.
# Edit the values below to customize your server settings.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	// Encode configuration to TOML
	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	// Validate database config
	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}

	// Validate media config
	if c.Media.LibraryPath == "" {
		return fmt.Errorf("media library path cannot be empty")
	}
	if len(c.Media.AllowedPrefixes) == 0 {
		return fmt.Errorf("at least one allowed MIME prefix must be specified")
	}
	if c.Media.MaxUploadMB < 1 {
		return fmt.Errorf("max upload size must be at least 1 MB")
	}
	if c.Media.Container != "folders" && c.Media.Container != "categories" {
		return fmt.Errorf("invalid media container: %s (must be folders or categories)", c.Media.Container)
	}

	// Validate logging config
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	// Validate auth config
	if c.Auth.Enabled {
		if c.Auth.UsersFilePath == "" {
			return fmt.Errorf("users file path cannot be empty when auth is enabled")
		}
		if c.Auth.MaxLoginFails < 1 {
			return fmt.Errorf("max login fails must be at least 1")
		}
		if c.Auth.FailWindowMins < 1 {
			return fmt.Errorf("fail window must be at least 1 minute")
		}
	}

	return nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// IsMimeAllowed checks if an uploaded MIME type is accepted
func (c *Config) IsMimeAllowed(mime string) bool {
	for _, prefix := range c.Media.AllowedPrefixes {
		if len(mime) >= len(prefix) && mime[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
