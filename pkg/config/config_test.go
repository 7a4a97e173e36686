package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvLocal, cfg.Env)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, HasherBcrypt, cfg.Auth.PasswordHasher)
	assert.Equal(t, 10, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.RateLimit.TrustProxyHeaders)
	assert.Empty(t, cfg.Server.PublicURL)
}

func TestLoad_PublicURL(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "memory")

	t.Setenv("API_URL", "https://api.example.com/")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.Server.PublicURL)

	for _, bad := range []string{"api.example.com", "ftp://files.example.com", "http://"} {
		t.Setenv("API_URL", bad)
		_, err := Load()
		assert.ErrorContains(t, err, "API_URL", bad)
	}
}

func TestLoad_MissingSecretFails(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_StoreDriverRequiresConnectionString(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	t.Setenv("STORE_DRIVER", "mongo")
	t.Setenv("MONGODB_URI", "")
	_, err := Load()
	assert.ErrorContains(t, err, "MONGODB_URI")

	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	_, err = Load()
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("STORE_DRIVER", "sqlite")
	_, err = Load()
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestLoad_RateLimitWindowMustBePositive(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STORE_DRIVER", "memory")

	for _, window := range []string{"0s", "-1m"} {
		t.Setenv("AUTH_RATE_WINDOW", window)
		_, err := Load()
		assert.ErrorContains(t, err, "AUTH_RATE_WINDOW", window)
	}

	t.Setenv("AUTH_RATE_LIMIT", "0")
	t.Setenv("AUTH_RATE_WINDOW", "0s")
	_, err := Load()
	assert.NoError(t, err, "a disabled limiter needs no window")
}

func TestLoad_FromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
env: prod
server:
  port: "9090"
store:
  driver: postgres
database:
  url: postgres://localhost:5432/estate
auth:
  jwt_secret: from-file
  password_hasher: argon2id
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvProd, cfg.Env)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, StorePostgres, cfg.Store.Driver)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, HasherArgon2id, cfg.Auth.PasswordHasher)
}

func TestMustLoad_Panics(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	assert.Panics(t, func() { MustLoad() })
}
