package config

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"APP_PORT", "APP_ENV", "JWT_SECRET", "DB_DRIVER", "DATABASE_URI", "DB_HOST", "DB_PORT",
	"DB_USER", "DB_NAME", "REDIS_HOST", "REDIS_PORT", "TOKEN_TTL_HOURS", "RATE_LIMIT_PER_MINUTE",
	"LOG_LEVEL", "SEED_ADMIN_EMAIL", "SEED_ADMIN_PASSWORD", "SEED_LOCK_KEY", "CORS_ALLOWED_ORIGINS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeJSON(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestReadDefaults(t *testing.T) {
	clearEnv(t)
	c, err := Read(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, 720, c.TokenTTLHours)
	assert.Equal(t, "auth_token", c.CookieName)
	assert.Equal(t, "postgres", c.DBDriver)
	assert.Equal(t, "5432", c.DBPort)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.Equal(t, "admin@audiencehub.local", c.SeedAdminEmail)
	assert.Equal(t, int64(726173), c.SeedLockKey)
	assert.Empty(t, c.JWTSecret)
	assert.Empty(t, c.RedisHost)
	assert.False(t, c.IsProduction())
}

func TestReadJSONSectionsAndFlatKeys(t *testing.T) {
	clearEnv(t)
	path := writeJSON(t, `{
		"app": {"AppPort": "9090", "AppEnv": "production", "TokenTTLHours": 24},
		"database": {"DBDriver": "mysql", "DBHost": "db.internal"},
		"DBName": "flatname",
		"redis": {"RedisHost": "cache", "RedisPort": 6380},
		"log": {"Level": "debug", "Compress": true},
		"seed": {"AdminEmail": "root@example.com", "LockKey": 99}
	}`)

	c, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", c.AppPort)
	assert.True(t, c.IsProduction())
	assert.Equal(t, 24, c.TokenTTLHours)
	assert.Equal(t, "mysql", c.DBDriver)
	assert.Equal(t, "3306", c.DBPort, "mysql default port")
	assert.Equal(t, "db.internal", c.DBHost)
	assert.Equal(t, "flatname", c.DBName)
	assert.Equal(t, "cache", c.RedisHost)
	assert.Equal(t, 6380, c.RedisPort)
	assert.Equal(t, "debug", c.LogLevel)
	assert.True(t, c.LogCompress)
	assert.Equal(t, "root@example.com", c.SeedAdminEmail)
	assert.Equal(t, int64(99), c.SeedLockKey)
}

func TestEnvOverridesJSON(t *testing.T) {
	clearEnv(t)
	path := writeJSON(t, `{"app": {"AppPort": "9090"}, "DBHost": "json-host"}`)
	t.Setenv("APP_PORT", "7070")
	t.Setenv("DB_HOST", "env-host")
	t.Setenv("TOKEN_TTL_HOURS", "2")
	t.Setenv("SEED_LOCK_KEY", "123456789012")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	c, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", c.AppPort)
	assert.Equal(t, "env-host", c.DBHost)
	assert.Equal(t, 2, c.TokenTTLHours)
	assert.Equal(t, int64(123456789012), c.SeedLockKey)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
}

func TestReadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("REDIS_PORT", "six")
	_, err := Read(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_PORT")
	assert.ErrorIs(t, err, strconv.ErrSyntax)

	clearEnv(t)
	_, err = Read(writeJSON(t, `{not json`))
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	pg := AppConfig{DBDriver: "postgres", DBHost: "h", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "n", DBSSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=n sslmode=disable TimeZone=UTC", DSN(pg))

	my := AppConfig{DBDriver: "mysql", DBHost: "h", DBPort: "3306", DBUser: "u", DBPassword: "p", DBName: "n"}
	assert.Equal(t, "u:p@tcp(h:3306)/n?charset=utf8mb4&parseTime=True&loc=UTC", DSN(my))

	pg.DatabaseURI = "postgres://x"
	assert.Equal(t, "postgres://x", DSN(pg))

	_, err := Dialector(AppConfig{DBDriver: "sqlite"})
	assert.Error(t, err)
}
