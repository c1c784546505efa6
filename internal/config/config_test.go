package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("MONGODB_DATABASE", "lms_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "testsecret123456789012345678901234")
	t.Setenv("KEYCLOAK_URL", "http://kc:8080/")
	t.Setenv("KEYCLOAK_REALM", "lms")
	t.Setenv("KEYCLOAK_CLIENT_ID", "lms-web")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "lms_test", cfg.MongoDB.Database)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Equal(t, "lms_session", cfg.Session.CookieName)
	require.Equal(t, 7*24*time.Hour, cfg.Session.TTL)
	require.Equal(t, "http://kc:8080/realms/lms", cfg.Keycloak.Issuer())
	require.True(t, cfg.Keycloak.Configured())
	require.Equal(t, "google", cfg.Keycloak.IDPHint)
	require.False(t, cfg.Server.Production())
}

func TestLoadConfig_RequiresStore(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	t.Setenv("MEMORY_STORE", "")

	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("MEMORY_STORE", "true")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.True(t, cfg.MongoDB.MemoryStore)
	require.Equal(t, "", cfg.Redis.Addr())
}

func TestLoadConfig_ProductionNeedsSecret(t *testing.T) {
	t.Setenv("MEMORY_STORE", "true")
	t.Setenv("SERVER_ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
}
