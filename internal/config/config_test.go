package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Media.Container != "folders" {
		t.Errorf("Expected folders container by default, got %s", cfg.Media.Container)
	}
	if !cfg.Auth.Enabled {
		t.Error("Expected auth enabled by default")
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("CreatesDefaultFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		cfg, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if cfg.Server.Port != "8080" {
			t.Errorf("Expected defaults, got port %s", cfg.Server.Port)
		}

		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			t.Error("Expected config file to be created")
		}
	})

	t.Run("LoadsExistingFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		content := `
[server]
port = "9090"
host = "127.0.0.1"

[media]
library_path = "/srv/media"
container = "categories"
`
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}

		cfg, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if cfg.Server.Port != "9090" {
			t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
		}
		if cfg.Media.Container != "categories" {
			t.Errorf("Expected categories container, got %s", cfg.Media.Container)
		}
		// Unspecified sections keep defaults
		if cfg.Database.Path != "./slidecast.db" {
			t.Errorf("Expected default database path, got %s", cfg.Database.Path)
		}
	})

	t.Run("RejectsInvalidConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		content := `
[media]
library_path = "/srv/media"
container = "shelves"
`
		if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("Expected invalid container value to be rejected")
		}
	})
}

func TestValidate(t *testing.T) {
	breakers := []struct {
		name  string
		tweak func(*Config)
	}{
		{"EmptyPort", func(c *Config) { c.Server.Port = "" }},
		{"EmptyHost", func(c *Config) { c.Server.Host = "" }},
		{"EmptyDBPath", func(c *Config) { c.Database.Path = "" }},
		{"EmptyLibrary", func(c *Config) { c.Media.LibraryPath = "" }},
		{"NoMimePrefixes", func(c *Config) { c.Media.AllowedPrefixes = nil }},
		{"ZeroUpload", func(c *Config) { c.Media.MaxUploadMB = 0 }},
		{"BadContainer", func(c *Config) { c.Media.Container = "shelves" }},
		{"BadLogLevel", func(c *Config) { c.Logging.Level = "verbose" }},
		{"BadLogFormat", func(c *Config) { c.Logging.Format = "xml" }},
		{"AuthNoUsersFile", func(c *Config) { c.Auth.UsersFilePath = "" }},
		{"AuthZeroFails", func(c *Config) { c.Auth.MaxLoginFails = 0 }},
	}

	for _, tc := range breakers {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.tweak(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected %s to fail validation", tc.name)
			}
		})
	}
}

func TestIsMimeAllowed(t *testing.T) {
	cfg := DefaultConfig()

	allowed := []string{"image/jpeg", "image/png", "video/mp4", "video/webm"}
	for _, mime := range allowed {
		if !cfg.IsMimeAllowed(mime) {
			t.Errorf("Expected %s to be allowed", mime)
		}
	}

	denied := []string{"application/pdf", "text/html", "audio/mpeg", ""}
	for _, mime := range denied {
		if cfg.IsMimeAllowed(mime) {
			t.Errorf("Expected %s to be denied", mime)
		}
	}
}

func TestGetAddress(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Host = "localhost"
	cfg.Server.Port = "9000"

	if addr := cfg.GetAddress(); addr != "localhost:9000" {
		t.Errorf("Expected localhost:9000, got %s", addr)
	}
}
