package config

import (
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/jw6ventures/lifecard/internal/logger"
)

type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`
	BaseURL    string `mapstructure:"base_url"`
	// Env is "dev" for human-readable console logs.
	Env string `mapstructure:"env"`

	DB struct {
		DSN      string `mapstructure:"dsn"`
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Name     string `mapstructure:"name"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`

	Logging Logging `mapstructure:"logging"`

	CORS struct {
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"cors"`

	PrometheusEnabled bool     `mapstructure:"prometheus_endpoint_enabled"`
	TrustedProxies    []string `mapstructure:"trusted_proxies"`
}

type Logging struct {
	Level          string `mapstructure:"level"`
	Path           string `mapstructure:"path"`
	MaxFileSize    int    `mapstructure:"max_file_size"`
	MaxBackupCount int    `mapstructure:"max_backup_count"`
}

// LoggerConfig returns the logger settings for this configuration.
func (c *Config) LoggerConfig() logger.Config {
	return logger.Config{
		Level:          c.Logging.Level,
		Path:           c.Logging.Path,
		MaxFileSize:    c.Logging.MaxFileSize,
		MaxBackupCount: c.Logging.MaxBackupCount,
		Pretty:         c.Env == "dev",
	}
}

var defaults = map[string]any{
	"listen_addr":                 ":8080",
	"base_url":                    "http://localhost:8080",
	"env":                         "production",
	"db.dsn":                      "",
	"db.host":                     "",
	"db.port":                     "5432",
	"db.name":                     "",
	"db.user":                     "",
	"db.password":                 "",
	"db.sslmode":                  "disable",
	"logging.level":               "INFO",
	"logging.path":                "",
	"logging.max_file_size":       50,
	"logging.max_backup_count":    3,
	"cors.allowed_origins":        []string{},
	"prometheus_endpoint_enabled": false,
	"trusted_proxies":             []string{},
}

// Environment names that do not follow the APP_<SECTION>_<KEY> pattern.
var envAliases = map[string]string{
	"logging.level": "APP_LOG_LEVEL",
	"logging.path":  "APP_LOG_PATH",
}

type AppConfig struct {
	Config *Config

	m sync.Mutex
	v *viper.Viper
}

// New loads .env (if present), an optional config.toml and APP_* environment
// overrides. configPath may name a directory holding config.toml; when empty
// the working directory and $HOME/.config/lifecard are searched.
func New(configPath string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "could not load .env")
	}

	v := viper.New()
	v.SetConfigType("toml")
	if configPath != "" {
		v.SetConfigFile(filepath.Join(filepath.Clean(configPath), "config.toml"))
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/lifecard")
	}

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, env, "APP_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_"))); err != nil {
			return nil, errors.Wrapf(err, "could not bind %s", env)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(err, "could not read config file")
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	return &AppConfig{Config: cfg, v: v}, nil
}

// Load is New without a config directory, returning only the settings.
func Load() (*Config, error) {
	c, err := New("")
	if err != nil {
		return nil, err
	}
	return c.Config, nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "could not unmarshal config")
	}

	cfg.TrustedProxies = cleanList(cfg.TrustedProxies)
	cfg.CORS.AllowedOrigins = cleanList(cfg.CORS.AllowedOrigins)
	cfg.Logging.Level = strings.ToUpper(strings.TrimSpace(cfg.Logging.Level))

	if cfg.DB.DSN == "" {
		var missing []string
		for _, f := range []struct{ env, value string }{
			{"APP_DB_HOST", cfg.DB.Host},
			{"APP_DB_NAME", cfg.DB.Name},
			{"APP_DB_USER", cfg.DB.User},
			{"APP_DB_PASSWORD", cfg.DB.Password},
		} {
			if f.value == "" {
				missing = append(missing, f.env)
			}
		}
		if len(missing) == 0 {
			cfg.DB.DSN = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
				url.PathEscape(cfg.DB.User), url.PathEscape(cfg.DB.Password), cfg.DB.Host, cfg.DB.Port, cfg.DB.Name, cfg.DB.SSLMode)
		}
	}

	if cfg.DB.DSN == "" {
		return nil, errors.New("APP_DB_DSN is required (or set APP_DB_HOST, APP_DB_NAME, APP_DB_USER, and APP_DB_PASSWORD)")
	}
	return cfg, nil
}

// DynamicReload watches the config file and applies a changed log level.
func (c *AppConfig) DynamicReload(log logger.Logger) {
	c.v.OnConfigChange(func(e fsnotify.Event) {
		c.m.Lock()
		defer c.m.Unlock()

		log.Info().Msgf("Config file changed: %s. Reloading configuration.", e.Name)

		cfg, err := decode(c.v)
		if err != nil {
			log.Error().Err(err).Msg("Error reloading config")
			return
		}
		c.Config = cfg
		log.SetLogLevel(cfg.Logging.Level)

		log.Debug().Msg("Configuration reloaded successfully!")
	})
	if c.v.ConfigFileUsed() != "" {
		if _, err := os.Stat(c.v.ConfigFileUsed()); err == nil {
			c.v.WatchConfig()
		}
	}
}

func cleanList(items []string) []string {
	var result []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
	}
	return result
}
