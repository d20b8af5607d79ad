package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", "/tmp/todo-test.db")
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("JWT_EXPIRES_IN", "2h")
	t.Setenv("SCHEDULER_SESSION_CLEANUP_SPEC", "@every 5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpiresIn)
	assert.Equal(t, "@every 5m", cfg.Scheduler.SessionCleanupSpec)
	assert.Equal(t, "file:/tmp/todo-test.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", cfg.Database.GetDSN())
}

func TestLoad_RejectsDefaultSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "your-super-secret-jwt-key")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT secret")
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_DRIVER", "mysql")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestLoadClient_SkipsServerValidation(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("CLIENT_BASE_URL", "http://todo.internal:8080")
	t.Setenv("CLIENT_TIMEOUT", "3s")

	cfg, err := LoadClient()
	require.NoError(t, err)
	assert.Equal(t, "http://todo.internal:8080", cfg.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.NotEmpty(t, cfg.TokenFile)
}

func TestDatabaseConfig_PostgresDSN(t *testing.T) {
	cfg := DatabaseConfig{Driver: DriverPostgres, Host: "db", Port: 5432, User: "u", Password: "p", Name: "todo", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=todo sslmode=disable", cfg.GetDSN())
}

func TestAppConfig_Location(t *testing.T) {
	cfg := AppConfig{Timezone: "UTC"}
	assert.Equal(t, time.UTC, cfg.Location())

	cfg.Timezone = "Not/AZone"
	assert.Equal(t, time.Local, cfg.Location())
}
