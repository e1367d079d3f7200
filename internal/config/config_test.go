package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lepinkainen/seodash/pkg/filesystem"
)

// isolate points the working and data directories at fresh temp dirs
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("API.Timeout = %v, want 30s", cfg.API.Timeout)
	}
	if cfg.Storage.Driver != DriverSQLite {
		t.Errorf("Storage.Driver = %q", cfg.Storage.Driver)
	}
	if !strings.HasSuffix(cfg.Storage.Path, filepath.Join("seodash", DefaultStoreFile)) {
		t.Errorf("Storage.Path = %q, want the data directory store", cfg.Storage.Path)
	}
	if cfg.Auth.GroupsClaim != "cognito:groups" {
		t.Errorf("Auth.GroupsClaim = %q", cfg.Auth.GroupsClaim)
	}
	if cfg.Auth.DefaultRole != "user" {
		t.Errorf("Auth.DefaultRole = %q", cfg.Auth.DefaultRole)
	}
	if len(cfg.Auth.Scopes) != 3 {
		t.Errorf("Auth.Scopes = %v", cfg.Auth.Scopes)
	}
	if !cfg.Features.Dashboard || !cfg.Features.SiteStats || !cfg.Features.Registration {
		t.Errorf("Features = %+v, want all enabled", cfg.Features)
	}
	if cfg.File != "" {
		t.Errorf("File = %q, want none", cfg.File)
	}
}

func TestLoadConfigFileMerge(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, `
api:
  endpoint: https://api.example.com/fn
  timeout: 5s
features:
  site_stats: false
storage:
  driver: memory
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.API.Endpoint != "https://api.example.com/fn" {
		t.Errorf("API.Endpoint = %q", cfg.API.Endpoint)
	}
	if cfg.API.Timeout != 5*time.Second {
		t.Errorf("API.Timeout = %v", cfg.API.Timeout)
	}
	if cfg.Features.SiteStats {
		t.Error("Features.SiteStats should be overridden to false")
	}
	if !cfg.Features.Dashboard {
		t.Error("Features.Dashboard should keep its default")
	}
	if cfg.Storage.Driver != DriverMemory {
		t.Errorf("Storage.Driver = %q", cfg.Storage.Driver)
	}
	if cfg.File != path {
		t.Errorf("File = %q, want %q", cfg.File, path)
	}
}

func TestLoadConfigDefaultFileLookup(t *testing.T) {
	dir := isolate(t)

	dataFile, err := filesystem.DefaultDataPath(DefaultConfigFile)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, dataFile, "api:\n  origin: https://from-data-dir.example\n")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.API.Origin != "https://from-data-dir.example" {
		t.Errorf("API.Origin = %q, want value from the data directory file", cfg.API.Origin)
	}

	writeFile(t, filepath.Join(dir, DefaultConfigFile), "api:\n  origin: https://from-cwd.example\n")

	cfg, err = LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.API.Origin != "https://from-cwd.example" {
		t.Errorf("API.Origin = %q, working directory file should win", cfg.API.Origin)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("SEODASH_API_ENDPOINT", "https://env.example.com/fn")
	t.Setenv("SEODASH_API_REQUESTS_PER_SECOND", "2.5")
	t.Setenv("SEODASH_AUTH_CLIENT_ID", "from-env")
	t.Setenv("SEODASH_FEATURES_REGISTRATION", "false")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.API.Endpoint != "https://env.example.com/fn" {
		t.Errorf("API.Endpoint = %q", cfg.API.Endpoint)
	}
	if cfg.API.RequestsPerSecond != 2.5 {
		t.Errorf("API.RequestsPerSecond = %v", cfg.API.RequestsPerSecond)
	}
	if cfg.Auth.ClientID != "from-env" {
		t.Errorf("Auth.ClientID = %q", cfg.Auth.ClientID)
	}
	if cfg.Features.Registration {
		t.Error("Features.Registration should be disabled from the environment")
	}
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".env"), "SEODASH_AUTH_CLIENT_SECRET=dotenv-secret\n")
	t.Setenv("SEODASH_AUTH_CLIENT_SECRET", "")
	os.Unsetenv("SEODASH_AUTH_CLIENT_SECRET")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Auth.ClientSecret != "dotenv-secret" {
		t.Errorf("Auth.ClientSecret = %q, want value from .env", cfg.Auth.ClientSecret)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	dir := isolate(t)

	if _, err := LoadConfig(filepath.Join(dir, "nope.yaml")); err == nil {
		t.Error("LoadConfig() with a missing explicit file should fail")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.API.Endpoint = "https://api.example.com"
		c.API.Timeout = time.Second
		c.Storage.Driver = DriverSQLite
		c.Storage.Path = "/tmp/session.db"
		return c
	}

	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing endpoint", func(c *Config) { c.API.Endpoint = "" }, true},
		{"relative endpoint", func(c *Config) { c.API.Endpoint = "/api" }, true},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }, true},
		{"negative rate", func(c *Config) { c.API.RequestsPerSecond = -1 }, true},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "etcd" }, true},
		{"sqlite without path", func(c *Config) { c.Storage.Path = "" }, true},
		{"redis without url", func(c *Config) { c.Storage.Driver = DriverRedis }, true},
		{"redis with url", func(c *Config) { c.Storage.Driver = DriverRedis; c.Storage.RedisURL = "redis://localhost:6379/0" }, false},
		{"memory", func(c *Config) { c.Storage.Driver = DriverMemory; c.Storage.Path = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.expectError {
				t.Errorf("Validate() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

func TestValidateAuth(t *testing.T) {
	c := &Config{}
	if err := c.ValidateAuth(); err == nil {
		t.Error("ValidateAuth() should require client_id")
	}
	c.Auth.ClientID = "client"
	if err := c.ValidateAuth(); err == nil {
		t.Error("ValidateAuth() should require token_url")
	}
	c.Auth.TokenURL = "https://auth.example.com/oauth2/token"
	if err := c.ValidateAuth(); err != nil {
		t.Errorf("ValidateAuth() error = %v", err)
	}
}
