package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// ============================================
// Client Tests
// ============================================

func TestLoadClient_Defaults(t *testing.T) {
	cfg, err := LoadClient("")

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8008/", cfg.BaseURL)
	assert.Equal(t, "ngrok-skip-browser-warning", cfg.BypassHeader)
	assert.Equal(t, "69420", cfg.BypassValue)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.NotEmpty(t, cfg.Storage.DSN)
}

func TestLoadClient_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
base_url: https://shop.example.com/
timeout: 3s
storage:
  driver: memory
log:
  env: production
`)
	t.Setenv("STOREFRONT_API_URL", "https://override.example.com/")

	cfg, err := LoadClient(path)

	require.NoError(t, err)
	assert.Equal(t, "https://override.example.com/", cfg.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "production", cfg.Log.Env)
}

func TestLoadClient_TimeoutEnv(t *testing.T) {
	t.Setenv("STOREFRONT_TIMEOUT", "750ms")

	cfg, err := LoadClient("")

	require.NoError(t, err)
	assert.Equal(t, 750*time.Millisecond, cfg.Timeout)
}

func TestLoadClient_InvalidTimeout(t *testing.T) {
	t.Setenv("STOREFRONT_TIMEOUT", "soon")

	_, err := LoadClient("")

	assert.Error(t, err)
}

func TestLoadClient_UnknownDriver(t *testing.T) {
	t.Setenv("STOREFRONT_STORAGE_DRIVER", "redis")

	_, err := LoadClient("")

	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestLoadClient_MissingFile(t *testing.T) {
	_, err := LoadClient(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.Error(t, err)
}

func TestLoadClient_MalformedFile(t *testing.T) {
	path := writeConfig(t, "base_url: [unterminated")

	_, err := LoadClient(path)

	assert.Error(t, err)
}

// ============================================
// Server Tests
// ============================================

func TestLoadServer_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadServer("")

	assert.ErrorIs(t, err, ErrMissingJWTSecret)
}

func TestLoadServer_ShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "too-short")

	_, err := LoadServer("")

	assert.ErrorIs(t, err, ErrShortJWTSecret)
}

func TestLoadServer_Env(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("ACCESS_TOKEN_TTL", "1m")
	t.Setenv("DEVSERVER_ADDR", ":9999")
	t.Setenv("DATABASE_URL", "postgres://localhost/storefront")
	t.Setenv("KAFKA_GROUP_ID", "storefront-audit")
	t.Setenv("SMTP_HOST", "mailhog")

	cfg, err := LoadServer("")

	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Addr)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, "storefront-cart-events", cfg.KafkaTopic)
	assert.Equal(t, "postgres://localhost/storefront", cfg.DatabaseURL)
	assert.Equal(t, "storefront-audit", cfg.KafkaGroupID)
	assert.True(t, cfg.SeedCatalog)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, MailConfig{SMTPHost: "mailhog", SMTPPort: "1025", From: "noreply@example.com"}, cfg.Mail)
}

func TestLoadServer_File(t *testing.T) {
	path := writeConfig(t, `
addr: ":7000"
jwt_secret: `+testSecret+`
kafka_brokers: ["localhost:9092"]
refresh_ttl: 24h
seed_catalog: false
mail:
  smtp_host: smtp.example.com
  store_url: https://shop.example.com/
`)

	cfg, err := LoadServer(path)

	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 24*time.Hour, cfg.RefreshTTL)
	assert.False(t, cfg.SeedCatalog)
	assert.Equal(t, "smtp.example.com", cfg.Mail.SMTPHost)
	assert.Equal(t, "https://shop.example.com/", cfg.Mail.StoreURL)
	assert.Equal(t, "1025", cfg.Mail.SMTPPort)
}
