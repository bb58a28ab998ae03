package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENV_FILE", "PORT", "LOG_MODE", "DB_TYPE", "DB_HOST", "DB_PORT", "DB_DATABASE",
		"DB_USER", "DB_PASSWORD", "DB_CONNECTION_LIMIT", "DB_LOG_LEVEL",
		"AUTHZ_URL", "AUTHZ_CLIENT_ID", "REDIS_ADDR", "REDIS_CHANNEL", "SEARCH_MAX_TAKE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DATABASE", "nodes.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, "", cfg.DBPort)
	assert.Equal(t, 5, cfg.DBConnectionLimit)
	assert.Equal(t, "nodedb.events", cfg.RedisChannel)
	assert.Equal(t, 100, cfg.SearchMaxTake)
	assert.False(t, cfg.AuthEnabled())
}

func TestLoad_RequiresDatabase(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	assert.EqualError(t, err, "DB_DATABASE is required")
}

func TestLoad_ServerDatabaseNeedsUser(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("DB_DATABASE", "nodes")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("DB_USER", "app")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "5432", cfg.DBPort)
}

func TestLoad_AuthorizerPair(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DATABASE", "nodes.db")
	t.Setenv("AUTHZ_URL", "http://authorizer:8080")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("AUTHZ_CLIENT_ID", "client")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.AuthEnabled())
}

func TestLoad_BadIntFallsBackToDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DATABASE", "nodes.db")
	t.Setenv("DB_CONNECTION_LIMIT", "many")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.DBConnectionLimit)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("DB_DATABASE")
	os.Unsetenv("PORT")
	t.Cleanup(func() {
		os.Unsetenv("DB_DATABASE")
		os.Unsetenv("PORT")
	})

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DB_DATABASE=from-file.db\nPORT=4000\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file.db", cfg.DBDatabase)
	assert.Equal(t, "4000", cfg.Port)
}
