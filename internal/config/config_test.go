package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("POLICY_FILE", "")
	t.Setenv("ROLES_FILE", "")
	t.Setenv("DIRECTORY_DB_PATH", "")
	t.Setenv("USER_ID_CASE_SENSITIVE", "")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "console-permissions.policy", cfg.PolicyFile)
	assert.Equal(t, "roles.yaml", cfg.RolesFile)
	assert.Equal(t, "console_directory.sqlite", cfg.DirectoryDBPath)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "User", cfg.DefaultRole)
	assert.False(t, cfg.CaseSensitiveUserIDs, "ids are case-insensitive by default")
	assert.Nil(t, cfg.PolicyS3Bucket)
	assert.False(t, cfg.HasPolicyS3())
	assert.Equal(t, 100.0, cfg.RateLimitRPS)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
}

func TestLoadFromEnv_AllVarsSet(t *testing.T) {
	t.Setenv("POLICY_S3_BUCKET", "console-policies")
	t.Setenv("POLICY_S3_KEY", "prod/console.policy")
	t.Setenv("POLICY_S3_REGION", "us-east-1")
	t.Setenv("POLICY_S3_ENDPOINT", "https://objects.example.com")
	t.Setenv("POLICY_S3_ACCESS_KEY", "AKIAEXAMPLE")
	t.Setenv("POLICY_S3_SECRET_KEY", "secret")
	t.Setenv("DIRECTORY_DB_PATH", "/tmp/dir.sqlite")
	t.Setenv("USER_ID_CASE_SENSITIVE", "true")
	t.Setenv("DEFAULT_ROLE", "Guest")
	t.Setenv("RELOAD_SCHEDULE", "@hourly")
	t.Setenv("BROKER_URL", "https://broker:8443")
	t.Setenv("BROKER_AUTH_SECRET", "shhh")
	t.Setenv("AUTH_TOKEN_CACHE_TTL", "30m")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	require.True(t, cfg.HasPolicyS3())
	assert.Equal(t, "console-policies", *cfg.PolicyS3Bucket)
	assert.Equal(t, "https://objects.example.com", cfg.PolicyS3Endpoint)
	assert.Equal(t, "AKIAEXAMPLE", cfg.PolicyS3AccessKey)
	assert.Equal(t, "/tmp/dir.sqlite", cfg.DirectoryDBPath)
	assert.True(t, cfg.CaseSensitiveUserIDs)
	assert.Equal(t, "Guest", cfg.DefaultRole)
	assert.Equal(t, "@hourly", cfg.ReloadSchedule)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenCacheTTL)
	require.NoError(t, cfg.Broker.Validate())
}

func TestLoadFromEnv_PartialPolicyS3IsError(t *testing.T) {
	t.Setenv("POLICY_S3_BUCKET", "console-policies")
	t.Setenv("POLICY_S3_KEY", "")
	t.Setenv("POLICY_S3_REGION", "")

	_, err := LoadFromEnv()
	assert.Error(t, err, "partial S3 policy config must fail fast")
}

func TestLoadFromEnv_TLSPair(t *testing.T) {
	t.Setenv("TLS_CERT_FILE", "/etc/tls/cert.pem")
	t.Setenv("TLS_KEY_FILE", "")

	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestBrokerValidate(t *testing.T) {
	b := BrokerConfig{}
	assert.Error(t, b.Validate())

	b.URL = "https://broker:8443"
	assert.Error(t, b.Validate(), "secret required")

	b.AuthSecret = "shhh"
	assert.NoError(t, b.Validate())
}

func TestProductionGuards(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("AUTH_ISSUER_URL", "")

	_, err := LoadFromEnv()
	assert.Error(t, err, "production requires OIDC")

	t.Setenv("AUTH_ISSUER_URL", "https://idp.example.com")
	_, err = LoadFromEnv()
	assert.Error(t, err, "production rejects CORS wildcard")

	t.Setenv("CORS_ALLOWED_ORIGINS", "https://console.example.com")
	t.Setenv("ALLOW_INSECURE_HTTP", "true")
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestSlogLevel(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	assert.Equal(t, "DEBUG", cfg.SlogLevel().String())
	cfg.LogLevel = "bogus"
	assert.Equal(t, "INFO", cfg.SlogLevel().String())
}

func TestLoadDotEnv_FileNotFound(t *testing.T) {
	err := LoadDotEnv("/nonexistent/.env")
	if err != nil {
		t.Errorf("expected no error for missing .env, got: %v", err)
	}
}

func TestLoadDotEnv_ParsesKeyValue(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	err := os.WriteFile(envFile, []byte("TEST_KEY=test_value\n"), 0644)
	if err != nil {
		t.Fatalf("write .env: %v", err)
	}

	if err := LoadDotEnv(envFile); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	if val := os.Getenv("TEST_KEY"); val != "test_value" {
		t.Errorf("TEST_KEY = %q, want %q", val, "test_value")
	}
	_ = os.Unsetenv("TEST_KEY")
}

func TestLoadDotEnv_EnvVarPrecedence(t *testing.T) {
	t.Setenv("TEST_PRECEDENCE_KEY", "from_env")

	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	err := os.WriteFile(envFile, []byte("TEST_PRECEDENCE_KEY=from_file\n"), 0644)
	if err != nil {
		t.Fatalf("write .env: %v", err)
	}

	if err := LoadDotEnv(envFile); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	if val := os.Getenv("TEST_PRECEDENCE_KEY"); val != "from_env" {
		t.Errorf("TEST_PRECEDENCE_KEY = %q, want %q (env precedence)", val, "from_env")
	}
}
