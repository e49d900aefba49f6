package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port           int         `mapstructure:"port"`
	DatabaseURL    string      `mapstructure:"database_url"`
	DBMaxConns     int32       `mapstructure:"db_max_conns"`
	DBMinConns     int32       `mapstructure:"db_min_conns"`
	UploadMaxBytes int64       `mapstructure:"upload_max_bytes"`
	Log            LogConfig   `mapstructure:",squash"`
	Agent          AgentConfig `mapstructure:",squash"`
}

type LogConfig struct {
	Level  string `mapstructure:"log_level"`
	Format string `mapstructure:"log_format"`
}

// AgentConfig points at the chat agent used for report generation from
// prompts and for report comparisons.
type AgentConfig struct {
	URL            string        `mapstructure:"agent_url"`
	APIKey         string        `mapstructure:"agent_api_key"`
	UserID         string        `mapstructure:"agent_user_id"`
	ReportAgentID  string        `mapstructure:"agent_report_id"`
	CompareAgentID string        `mapstructure:"agent_compare_id"`
	Timeout        time.Duration `mapstructure:"agent_timeout"`
}

var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required (environment variable or .env)")

// Load reads .env (if present) into the environment, then resolves settings
// from environment variables over an optional config.yaml over defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	v := newViper()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	return fromViper(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.SetDefault("port", 8080)
	v.SetDefault("database_url", "")
	v.SetDefault("db_max_conns", 20)
	v.SetDefault("db_min_conns", 2)
	v.SetDefault("upload_max_bytes", 32<<20)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("agent_url", "")
	v.SetDefault("agent_api_key", "")
	v.SetDefault("agent_user_id", "")
	v.SetDefault("agent_report_id", "")
	v.SetDefault("agent_compare_id", "")
	v.SetDefault("agent_timeout", 60*time.Second)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.Agent.URL = strings.TrimRight(strings.TrimSpace(cfg.Agent.URL), "/")
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid PORT: %d", cfg.Port)
	}
	if cfg.DBMaxConns <= 0 {
		return Config{}, fmt.Errorf("invalid DB_MAX_CONNS: %d", cfg.DBMaxConns)
	}
	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		return Config{}, fmt.Errorf("invalid DB_MIN_CONNS: %d", cfg.DBMinConns)
	}
	if cfg.UploadMaxBytes <= 0 {
		return Config{}, fmt.Errorf("invalid UPLOAD_MAX_BYTES: %d", cfg.UploadMaxBytes)
	}
	if cfg.Agent.Timeout <= 0 {
		return Config{}, fmt.Errorf("invalid AGENT_TIMEOUT: %s", cfg.Agent.Timeout)
	}
	return cfg, nil
}

// RequireDatabase fails when no database URL was configured.
func (c Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return ErrMissingDatabaseURL
	}
	return nil
}

// Enabled reports whether the chat agent endpoints can be served.
func (c AgentConfig) Enabled() bool {
	return c.URL != "" && c.APIKey != ""
}
