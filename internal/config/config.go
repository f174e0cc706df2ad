// Package config loads server settings from flags, environment, an
// optional .env file and an optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment variables, e.g. MEMBERDESK_ADDR.
const EnvPrefix = "MEMBERDESK"

// Config holds every server setting.
type Config struct {
	Addr          string        `mapstructure:"addr"`
	DBPath        string        `mapstructure:"db_path"`
	Env           string        `mapstructure:"env"`
	LogLevel      string        `mapstructure:"log_level"`
	CSRFKey       string        `mapstructure:"csrf_key"` // 64 hex characters
	TokenSecret   string        `mapstructure:"token_secret"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	RememberTTL   time.Duration `mapstructure:"remember_ttl"`
	SlowQuery     time.Duration `mapstructure:"slow_query"`
	AdminEmail    string        `mapstructure:"admin_email"`
	AdminPassword string        `mapstructure:"admin_password"`
	AdminName     string        `mapstructure:"admin_name"`
}

// IsProduction reports whether the server runs in production mode.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks settings that have no safe default in production.
func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("config error: addr is required")
	}
	if c.DBPath == "" {
		return errors.New("config error: db_path is required")
	}
	if c.IsProduction() {
		if c.CSRFKey == "" {
			return errors.New("config error: csrf_key is required in production")
		}
		if c.TokenSecret == "" || c.TokenSecret == devSecret {
			return errors.New("config error: token_secret must be set in production")
		}
		if c.AdminPassword == devAdminPassword {
			return errors.New("config error: admin_password must be changed in production")
		}
	}
	return nil
}

const (
	devSecret        = "memberdesk-dev-secret"
	devAdminPassword = "change-me-on-first-login"
)

// Load reads configuration. Precedence, highest first: command line
// flags, MEMBERDESK_* environment, .env, config.yaml, defaults.
// PRE: args excludes the program name
// POST: Returns a validated Config or an error
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config error: reading .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("addr", ":8080")
	v.SetDefault("db_path", "memberdesk.db")
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("csrf_key", "")
	v.SetDefault("token_secret", devSecret)
	v.SetDefault("session_ttl", 12*time.Hour)
	v.SetDefault("remember_ttl", 30*24*time.Hour)
	v.SetDefault("slow_query", 50*time.Millisecond)
	v.SetDefault("admin_email", "admin@memberdesk.local")
	v.SetDefault("admin_password", devAdminPassword)
	v.SetDefault("admin_name", "Administrator")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config error: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	flags := pflag.NewFlagSet("memberdesk", pflag.ContinueOnError)
	flags.String("addr", v.GetString("addr"), "listen address")
	flags.String("db-path", v.GetString("db_path"), "SQLite database file")
	flags.String("env", v.GetString("env"), "environment name (development, production)")
	flags.String("log-level", v.GetString("log_level"), "log level (debug, info, warn, error)")
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}
	for key, flag := range map[string]string{
		"addr":      "addr",
		"db_path":   "db-path",
		"env":       "env",
		"log_level": "log-level",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return Config{}, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}
