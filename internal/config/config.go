// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const EnvConfigPath = "CONFIG_PATH"

// Remote modes.
const (
	RemoteLocal    = "local"
	RemoteDatabase = "database"
	RemoteWebhook  = "webhook"
)

// Storage drivers.
const (
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
)

type SMTPConfig struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	From     string `json:"from" yaml:"from"`
}

type Config struct {
	Storage struct {
		Driver string `json:"driver" yaml:"driver"`
		Path   string `json:"path" yaml:"path"`
		Redis  struct {
			Addr     string `json:"addr" yaml:"addr"`
			Password string `json:"password" yaml:"password"`
			DB       int    `json:"db" yaml:"db"`
			Prefix   string `json:"prefix" yaml:"prefix"`
			Channel  string `json:"channel" yaml:"channel"`
		} `json:"redis" yaml:"redis"`
	} `json:"storage" yaml:"storage"`
	Remote struct {
		Mode     string `json:"mode" yaml:"mode"`
		Database struct {
			Host       string `json:"host" yaml:"host"`
			Port       string `json:"port" yaml:"port"`
			User       string `json:"user" yaml:"user"`
			Password   string `json:"password" yaml:"password"`
			Name       string `json:"name" yaml:"name"`
			SSLMode    string `json:"sslmode" yaml:"sslmode"`
			SearchPath string `json:"schema" yaml:"schema"`
		} `json:"database" yaml:"database"`
		WebhookURL string        `json:"webhook_url" yaml:"webhook_url"`
		Timeout    time.Duration `json:"timeout" yaml:"timeout"`
	} `json:"remote" yaml:"remote"`
	Sync struct {
		PollInterval     time.Duration `json:"poll_interval" yaml:"poll_interval"`
		ReconcileTimeout time.Duration `json:"reconcile_timeout" yaml:"reconcile_timeout"`
	} `json:"sync" yaml:"sync"`
	Events struct {
		WebhookURL string `json:"webhook_url" yaml:"webhook_url"`
		AMQP       struct {
			URL        string `json:"url" yaml:"url"`
			Exchange   string `json:"exchange" yaml:"exchange"`
			RoutingKey string `json:"routing_key" yaml:"routing_key"`
		} `json:"amqp" yaml:"amqp"`
	} `json:"events" yaml:"events"`
	JWT struct {
		Secret       string        `json:"secret" yaml:"secret"`
		ExpiryPeriod time.Duration `json:"expiry_period" yaml:"expiry_period"`
	} `json:"jwt" yaml:"jwt"`
	Server struct {
		Port         string        `json:"port" yaml:"port"`
		ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
		WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	} `json:"server" yaml:"server"`
	Admin struct {
		Email        string `json:"email" yaml:"email"`
		PasswordHash string `json:"password_hash" yaml:"password_hash"`
	} `json:"admin" yaml:"admin"`
	Email struct {
		Provider string `json:"provider" yaml:"provider"`
		FromName string `json:"from_name" yaml:"from_name"`
	} `json:"email" yaml:"email"`
	Sendgrid struct {
		APIKey string `json:"api_key" yaml:"api_key"`
		From   string `json:"from" yaml:"from"`
	} `json:"sendgrid" yaml:"sendgrid"`
	SMTP    map[string]SMTPConfig `json:"smtp" yaml:"smtp"`
	BaseURL string                `json:"base_url" yaml:"base_url"`
}

// Load reads configuration from the environment. When CONFIG_PATH is set the
// YAML file it names is read first; environment variables still win.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(EnvConfigPath))
}

// LoadFile reads the YAML file at path, if any, then applies environment
// overrides.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()

	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}

	cfg.Storage.Driver = StorageSQLite
	cfg.Storage.Path = "masteradmin.db"
	cfg.Storage.Redis.Addr = "localhost:6379"
	cfg.Storage.Redis.Prefix = "masteradmin:"
	cfg.Storage.Redis.Channel = "masteradmin:changes"

	cfg.Remote.Mode = RemoteLocal
	cfg.Remote.Database.Host = "localhost"
	cfg.Remote.Database.Port = "5432"
	cfg.Remote.Database.User = "postgres"
	cfg.Remote.Database.Name = "masteradmin"
	cfg.Remote.Database.SSLMode = "disable"
	cfg.Remote.Database.SearchPath = "public"

	cfg.Sync.PollInterval = time.Second
	cfg.Sync.ReconcileTimeout = 5 * time.Minute

	cfg.Events.AMQP.Exchange = "masteradmin.events"
	cfg.Events.AMQP.RoutingKey = "masteradmin"

	cfg.JWT.Secret = "your-secret-key"
	cfg.JWT.ExpiryPeriod = time.Hour * 24

	cfg.Server.Port = "8080"
	cfg.Server.ReadTimeout = time.Second * 15
	cfg.Server.WriteTimeout = time.Second * 15

	cfg.Email.Provider = "sendgrid"
	cfg.Email.FromName = "Master Admin"

	return cfg
}

func applyEnv(cfg *Config) {
	// Local storage
	cfg.Storage.Driver = getEnv("STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.Path = getEnv("STORAGE_PATH", cfg.Storage.Path)
	cfg.Storage.Redis.Addr = getEnv("REDIS_ADDR", cfg.Storage.Redis.Addr)
	cfg.Storage.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Storage.Redis.Password)
	cfg.Storage.Redis.DB = getEnvInt("REDIS_DB", cfg.Storage.Redis.DB)
	cfg.Storage.Redis.Prefix = getEnv("REDIS_PREFIX", cfg.Storage.Redis.Prefix)
	cfg.Storage.Redis.Channel = getEnv("REDIS_CHANNEL", cfg.Storage.Redis.Channel)

	// Remote store
	cfg.Remote.Mode = getEnv("REMOTE_MODE", cfg.Remote.Mode)
	cfg.Remote.Database.Host = getEnv("DB_HOST", cfg.Remote.Database.Host)
	cfg.Remote.Database.Port = getEnv("DB_PORT", cfg.Remote.Database.Port)
	cfg.Remote.Database.User = getEnv("DB_USER", cfg.Remote.Database.User)
	cfg.Remote.Database.Password = getEnv("DB_PASSWORD", cfg.Remote.Database.Password)
	cfg.Remote.Database.Name = getEnv("DB_NAME", cfg.Remote.Database.Name)
	cfg.Remote.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Remote.Database.SSLMode)
	cfg.Remote.Database.SearchPath = getEnv("DB_SCHEMA", cfg.Remote.Database.SearchPath)
	cfg.Remote.WebhookURL = getEnv("REMOTE_WEBHOOK_URL", cfg.Remote.WebhookURL)
	cfg.Remote.Timeout = getEnvDuration("REMOTE_TIMEOUT", cfg.Remote.Timeout)

	// Sync loop
	cfg.Sync.PollInterval = getEnvDuration("SYNC_POLL_INTERVAL", cfg.Sync.PollInterval)
	cfg.Sync.ReconcileTimeout = getEnvDuration("SYNC_RECONCILE_TIMEOUT", cfg.Sync.ReconcileTimeout)

	// Lifecycle events
	cfg.Events.WebhookURL = getEnv("EVENTS_WEBHOOK_URL", cfg.Events.WebhookURL)
	cfg.Events.AMQP.URL = getEnv("AMQP_URL", cfg.Events.AMQP.URL)
	cfg.Events.AMQP.Exchange = getEnv("AMQP_EXCHANGE", cfg.Events.AMQP.Exchange)
	cfg.Events.AMQP.RoutingKey = getEnv("AMQP_ROUTING_KEY", cfg.Events.AMQP.RoutingKey)

	// JWT configuration
	cfg.JWT.Secret = getEnv("JWT_SECRET", cfg.JWT.Secret)
	cfg.JWT.ExpiryPeriod = getEnvDuration("JWT_EXPIRY", cfg.JWT.ExpiryPeriod)

	// Master admin credentials
	cfg.Admin.Email = getEnv("ADMIN_EMAIL", cfg.Admin.Email)
	cfg.Admin.PasswordHash = getEnv("ADMIN_PASSWORD_HASH", cfg.Admin.PasswordHash)

	// Email configuration
	cfg.Email.Provider = getEnv("EMAIL_PROVIDER", cfg.Email.Provider)
	cfg.Sendgrid.APIKey = getEnv("SENDGRID_API_KEY", cfg.Sendgrid.APIKey)
	cfg.Sendgrid.From = getEnv("SENDGRID_FROM", cfg.Sendgrid.From)

	// Server configuration
	cfg.Server.Port = getEnv("SERVER_PORT", cfg.Server.Port)
	cfg.BaseURL = getEnv("BASE_URL", cfg.BaseURL)
}

// Validate rejects settings the process cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageSQLite, StorageRedis:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Remote.Mode {
	case RemoteLocal, RemoteDatabase:
	case RemoteWebhook:
		if c.Remote.WebhookURL == "" {
			return errors.New("remote mode webhook requires REMOTE_WEBHOOK_URL")
		}
	default:
		return fmt.Errorf("unknown remote mode %q", c.Remote.Mode)
	}
	if c.Sync.PollInterval <= 0 {
		return errors.New("sync poll interval must be positive")
	}
	return nil
}

// DatabaseDSN builds the Postgres DSN of the remote tables.
func (c *Config) DatabaseDSN() string {
	db := c.Remote.Database
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s",
		db.Host, db.Port, db.User, db.Password, db.Name, db.SSLMode, db.SearchPath,
	)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
