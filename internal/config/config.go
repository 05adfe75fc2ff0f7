package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrMissingBaseURL   = errors.New("api base url is required")
	ErrMissingJWTSecret = errors.New("JWT_SECRET environment variable is required")
	ErrShortJWTSecret   = errors.New("JWT_SECRET must be at least 32 characters long")
	ErrUnknownDriver    = errors.New("unknown storage driver")
)

// Storage drivers for the client session.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

const (
	minJWTSecretLength = 32
	bcryptDefaultCost  = 10
)

// LogConfig selects the zap preset and level.
type LogConfig struct {
	Env   string `yaml:"env"`
	Level string `yaml:"level"`
}

// StorageConfig selects where the session token and role are persisted.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"` // file path for sqlite, connection string for postgres
}

// MailConfig points the welcome-email notifier at an SMTP server. An empty
// host disables sending.
type MailConfig struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort string `yaml:"smtp_port"`
	From     string `yaml:"from"`
	StoreURL string `yaml:"store_url"`
}

// Client configures the storefront SDK and CLI.
type Client struct {
	BaseURL      string        `yaml:"base_url"`
	BypassHeader string        `yaml:"bypass_header"`
	BypassValue  string        `yaml:"bypass_value"`
	Timeout      time.Duration `yaml:"timeout"`
	Storage      StorageConfig `yaml:"storage"`
	Log          LogConfig     `yaml:"log"`
}

// Server configures the reference API server.
type Server struct {
	Addr          string        `yaml:"addr"`
	JWTSecret     string        `yaml:"jwt_secret"`
	AccessTTL     time.Duration `yaml:"access_ttl"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl"`
	DatabaseURL   string        `yaml:"database_url"` // empty keeps events in memory
	BcryptCost    int           `yaml:"bcrypt_cost"`
	AdminEmail    string        `yaml:"admin_email"`
	AdminPassword string        `yaml:"admin_password"`
	SeedCatalog   bool          `yaml:"seed_catalog"`
	KafkaBrokers  []string      `yaml:"kafka_brokers"`
	KafkaTopic    string        `yaml:"kafka_topic"`
	KafkaGroupID  string        `yaml:"kafka_group_id"` // set to run the notifier consumer
	AllowedOrigin string        `yaml:"allowed_origin"`
	Mail          MailConfig    `yaml:"mail"`
	Log           LogConfig     `yaml:"log"`
}

// DefaultClient returns the client configuration used when nothing is set.
func DefaultClient() Client {
	return Client{
		BaseURL:      "http://localhost:8008/",
		BypassHeader: "ngrok-skip-browser-warning",
		BypassValue:  "69420",
		Timeout:      10 * time.Second,
		Storage: StorageConfig{
			Driver: DriverSQLite,
			DSN:    defaultSessionPath(),
		},
		Log: LogConfig{Env: "development", Level: "info"},
	}
}

// DefaultServer returns the server configuration used when nothing is set.
func DefaultServer() Server {
	return Server{
		Addr:        ":8008",
		AccessTTL:   15 * time.Minute,
		RefreshTTL:  7 * 24 * time.Hour,
		BcryptCost:  bcryptDefaultCost,
		SeedCatalog: true,
		KafkaTopic:  "storefront-cart-events",
		Mail:        MailConfig{SMTPPort: "1025", From: "noreply@example.com"},
		Log:         LogConfig{Env: "development", Level: "info"},
	}
}

// LoadClient builds the client config: defaults, then the YAML file at path
// (if any), then environment variables.
func LoadClient(path string) (Client, error) {
	cfg := DefaultClient()
	if err := loadFile(path, &cfg); err != nil {
		return Client{}, err
	}

	cfg.BaseURL = getEnv("STOREFRONT_API_URL", cfg.BaseURL)
	cfg.BypassHeader = getEnv("STOREFRONT_BYPASS_HEADER", cfg.BypassHeader)
	cfg.BypassValue = getEnv("STOREFRONT_BYPASS_VALUE", cfg.BypassValue)
	cfg.Storage.Driver = getEnv("STOREFRONT_STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.DSN = getEnv("STOREFRONT_STORAGE_DSN", cfg.Storage.DSN)
	cfg.Log.Env = getEnv("LOG_ENV", cfg.Log.Env)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)

	timeout, err := getDuration("STOREFRONT_TIMEOUT", cfg.Timeout)
	if err != nil {
		return Client{}, err
	}
	cfg.Timeout = timeout

	return cfg, cfg.Validate()
}

// Validate checks the client config for unusable values.
func (c Client) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrMissingBaseURL
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Storage.Driver)
	}
	return nil
}

// LoadServer builds the server config: defaults, then the YAML file at path
// (if any), then environment variables.
func LoadServer(path string) (Server, error) {
	cfg := DefaultServer()
	if err := loadFile(path, &cfg); err != nil {
		return Server{}, err
	}

	cfg.Addr = getEnv("DEVSERVER_ADDR", cfg.Addr)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.AdminEmail = getEnv("ADMIN_EMAIL", cfg.AdminEmail)
	cfg.AdminPassword = getEnv("ADMIN_PASSWORD", cfg.AdminPassword)
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", cfg.KafkaTopic)
	cfg.KafkaGroupID = getEnv("KAFKA_GROUP_ID", cfg.KafkaGroupID)
	cfg.AllowedOrigin = getEnv("ALLOWED_ORIGIN", cfg.AllowedOrigin)
	cfg.Mail.SMTPHost = getEnv("SMTP_HOST", cfg.Mail.SMTPHost)
	cfg.Mail.SMTPPort = getEnv("SMTP_PORT", cfg.Mail.SMTPPort)
	cfg.Mail.From = getEnv("SMTP_FROM", cfg.Mail.From)
	cfg.Mail.StoreURL = getEnv("STORE_URL", cfg.Mail.StoreURL)
	cfg.Log.Env = getEnv("LOG_ENV", cfg.Log.Env)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	var err error
	if cfg.AccessTTL, err = getDuration("ACCESS_TOKEN_TTL", cfg.AccessTTL); err != nil {
		return Server{}, err
	}
	if cfg.RefreshTTL, err = getDuration("REFRESH_TOKEN_TTL", cfg.RefreshTTL); err != nil {
		return Server{}, err
	}

	return cfg, cfg.Validate()
}

// Validate checks the server config for unusable values.
func (s Server) Validate() error {
	if s.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if len(s.JWTSecret) < minJWTSecretLength {
		return ErrShortJWTSecret
	}
	return nil
}

func loadFile(path string, out any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".storefront-session.db"
	}
	return filepath.Join(dir, "ec-storefront", "session.db")
}
