package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/lepinkainen/seodash/configs"
	"github.com/lepinkainen/seodash/pkg/filesystem"
)

// EnvPrefix prefixes environment overrides, e.g. SEODASH_API_ENDPOINT
const EnvPrefix = "SEODASH"

// DefaultConfigFile is looked up in the working directory, then the data directory
const DefaultConfigFile = "config.yaml"

// DefaultStoreFile is the SQLite session store inside the data directory
const DefaultStoreFile = "session.db"

// Storage drivers
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Config holds the central application configuration
type Config struct {
	API struct {
		Endpoint          string        `mapstructure:"endpoint" yaml:"endpoint"`
		Origin            string        `mapstructure:"origin" yaml:"origin"`
		Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
		RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	} `mapstructure:"api" yaml:"api"`

	// Identity provider
	Auth struct {
		ClientID     string   `mapstructure:"client_id" yaml:"client_id"`
		ClientSecret string   `mapstructure:"client_secret" yaml:"-"`
		TokenURL     string   `mapstructure:"token_url" yaml:"token_url"`
		RevokeURL    string   `mapstructure:"revoke_url" yaml:"revoke_url"`
		RegisterURL  string   `mapstructure:"register_url" yaml:"register_url"`
		ConfirmURL   string   `mapstructure:"confirm_url" yaml:"confirm_url"`
		Region       string   `mapstructure:"region" yaml:"region"`
		UserPoolID   string   `mapstructure:"user_pool_id" yaml:"user_pool_id"`
		GroupsClaim  string   `mapstructure:"groups_claim" yaml:"groups_claim"`
		DefaultRole  string   `mapstructure:"default_role" yaml:"default_role"`
		Scopes       []string `mapstructure:"scopes" yaml:"scopes"`
	} `mapstructure:"auth" yaml:"auth"`

	// Where the session is persisted
	Storage struct {
		Driver    string `mapstructure:"driver" yaml:"driver"`
		Path      string `mapstructure:"path" yaml:"path"`
		RedisURL  string `mapstructure:"redis_url" yaml:"-"`
		KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`
	} `mapstructure:"storage" yaml:"storage"`

	Features struct {
		Dashboard    bool `mapstructure:"dashboard" yaml:"dashboard"`
		SiteStats    bool `mapstructure:"site_stats" yaml:"site_stats"`
		Registration bool `mapstructure:"registration" yaml:"registration"`
	} `mapstructure:"features" yaml:"features"`

	// File is the config file that was merged, if any
	File string `mapstructure:"-" yaml:"-"`
}

// LoadConfig builds the configuration from the embedded defaults, the config
// file, a .env file and SEODASH_* environment variables, in increasing priority.
// An explicitly named file must exist; the default file is optional.
func LoadConfig(path string) (*Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(configs.DefaultYAML)); err != nil {
		return nil, fmt.Errorf("error reading built-in defaults: %w", err)
	}

	file, err := resolveConfigFile(path)
	if err != nil {
		return nil, err
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", file, err)
		}
		slog.Debug("Loaded config file", "path", file)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.File = file

	if config.Storage.Path == "" {
		if config.Storage.Path, err = filesystem.DefaultDataPath(DefaultStoreFile); err != nil {
			return nil, err
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// loadDotEnv reads .env from the working directory if there is one.
// Variables already set in the environment win.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to read .env file", "error", err)
	}
}

// resolveConfigFile returns the file to merge, or "" when the default file does not exist
func resolveConfigFile(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file %s: %w", path, err)
		}
		return path, nil
	}

	// current directory first, then the data directory
	if _, err := os.Stat(DefaultConfigFile); err == nil {
		return DefaultConfigFile, nil
	}
	if dataPath, err := filesystem.DefaultDataPath(DefaultConfigFile); err == nil {
		if _, err := os.Stat(dataPath); err == nil {
			return dataPath, nil
		}
	}

	return "", nil
}

// Validate checks the configuration for values the client cannot work with
func (c *Config) Validate() error {
	endpoint, err := url.Parse(c.API.Endpoint)
	if c.API.Endpoint == "" || err != nil || endpoint.Scheme == "" || endpoint.Host == "" {
		return fmt.Errorf("api.endpoint must be an absolute URL, got %q", c.API.Endpoint)
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be > 0")
	}

	if c.API.RequestsPerSecond < 0 {
		return fmt.Errorf("api.requests_per_second must be >= 0")
	}

	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	case DriverRedis:
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("storage.redis_url is required for the redis driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("storage.driver must be one of sqlite, redis, memory, got %q", c.Storage.Driver)
	}

	return nil
}

// ValidateAuth checks the identity provider settings needed to sign in
func (c *Config) ValidateAuth() error {
	if c.Auth.ClientID == "" {
		return fmt.Errorf("auth.client_id is required")
	}
	if c.Auth.TokenURL == "" {
		return fmt.Errorf("auth.token_url is required")
	}
	return nil
}
