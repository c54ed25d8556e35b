package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	App      AppConfig      `mapstructure:"app"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type AppConfig struct {
	LogLevel           string  `mapstructure:"log_level"`
	LogFormat          string  `mapstructure:"log_format"`
	AutoMatchThreshold float64 `mapstructure:"auto_match_threshold"`
	ClassifyWorkers    int     `mapstructure:"classify_workers"`
	LedgerWindowDays   int     `mapstructure:"ledger_window_days"`
	AutoClassify       bool    `mapstructure:"auto_classify"`
	MaxUploadMB        int64   `mapstructure:"max_upload_mb"`
	ProfilesFile       string  `mapstructure:"profiles_file"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// legacy environment names kept for deployments configured with bare DB_* variables
var envAliases = map[string]string{
	"database.host":     "DB_HOST",
	"database.port":     "DB_PORT",
	"database.user":     "DB_USER",
	"database.password": "DB_PASSWORD",
	"database.name":     "DB_NAME",
	"database.sslmode":  "DB_SSLMODE",
	"server.port":       "SERVER_PORT",
	"app.log_level":     "LOG_LEVEL",
}

// Load reads .env, an optional bankrec.yaml and the environment, in increasing precedence.
// An explicit file path may be passed to bypass the config search path.
func Load(file ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("Failed to load .env file")
	}

	v := viper.New()
	setDefaults(v)

	if len(file) > 0 && file[0] != "" {
		v.SetConfigFile(file[0])
	} else {
		v.SetConfigName("bankrec")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/bankrec")
	}

	v.SetEnvPrefix("BANKREC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range envAliases {
		prefixed := "BANKREC_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", legacy, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "bankrec_db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "bankrec.db")

	v.SetDefault("server.port", "8080")

	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "text")
	v.SetDefault("app.auto_match_threshold", 0.8)
	v.SetDefault("app.classify_workers", 4)
	v.SetDefault("app.ledger_window_days", 5)
	v.SetDefault("app.auto_classify", true)
	v.SetDefault("app.max_upload_mb", 20)
	v.SetDefault("app.profiles_file", "")
}

// Validate rejects settings the engine cannot run with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}

	if _, err := logrus.ParseLevel(c.App.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s", c.App.LogLevel)
	}

	if c.App.LogFormat != "text" && c.App.LogFormat != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", c.App.LogFormat)
	}

	if c.App.AutoMatchThreshold < 0 || c.App.AutoMatchThreshold > 1 {
		return fmt.Errorf("app.auto_match_threshold must be between 0 and 1, got %f", c.App.AutoMatchThreshold)
	}

	if c.App.ClassifyWorkers < 1 {
		return fmt.Errorf("app.classify_workers must be at least 1, got %d", c.App.ClassifyWorkers)
	}

	if c.App.LedgerWindowDays < 0 {
		return fmt.Errorf("app.ledger_window_days must not be negative, got %d", c.App.LedgerWindowDays)
	}

	return nil
}

// ConnectionString returns the DSN for the configured driver
func (c *DatabaseConfig) ConnectionString() string {
	if c.Driver == DriverSQLite {
		return c.Path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}
