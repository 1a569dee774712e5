// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// AuthConfig holds authentication and identity provider configuration for
// the console API surface.
type AuthConfig struct {
	IssuerURL      string        // OIDC issuer URL used for token verification
	JWTSecret      string        // HS256 shared secret for local/dev JWT auth
	Audience       string        // Required JWT audience claim
	AllowedIssuers []string      // Accepted issuers (defaults to [IssuerURL])
	TokenCacheTTL  time.Duration // Verified-token cache duration (default: 1h)

	// NameClaim is the JWT claim carrying the principal's user id
	// (default: "sub").
	NameClaim string
}

// OIDCEnabled returns true when an external identity provider is configured.
func (a *AuthConfig) OIDCEnabled() bool {
	return a.IssuerURL != ""
}

// BrokerConfig holds the connection settings for the session broker.
type BrokerConfig struct {
	URL        string        // Broker base URL (e.g., https://broker:8443)
	AuthID     string        // Client id for the broker token
	AuthSecret string        // HS256 secret shared with the broker
	Timeout    time.Duration // Per-request timeout (default: 15s)
	PageSize   int           // Sessions requested per describe page (default: 100)
}

// Validate checks that the broker configuration is internally consistent.
func (b *BrokerConfig) Validate() error {
	if b.URL == "" {
		return fmt.Errorf("BROKER_URL must be set")
	}
	if b.AuthSecret == "" {
		return fmt.Errorf("BROKER_AUTH_SECRET is required when BROKER_URL is set")
	}
	return nil
}

// Config holds the configuration for the console authorization service.
type Config struct {
	// Policy S3 fields are optional — nil when the policy file is local.
	PolicyS3Bucket *string
	PolicyS3Key    *string
	PolicyS3Region *string

	// Optional S3 overrides for non-AWS object stores. When the key pair is
	// unset the SDK default credential chain applies.
	PolicyS3Endpoint  string
	PolicyS3AccessKey string
	PolicyS3SecretKey string

	PolicyFile        string // path to the local policy file (ignored when S3 is configured)
	RolesFile         string // path to the YAML role definitions (default "roles.yaml")
	DirectoryDBPath   string // path to the SQLite directory database
	ListenAddr        string // HTTP listen address (default ":8080")
	TLSCertFile       string // TLS certificate file path (optional)
	TLSKeyFile        string // TLS private key file path (optional)
	AllowInsecureHTTP bool   // allow non-TLS listener in production (for trusted TLS termination)
	LogLevel          string // log level: debug, info, warn, error (default "info")
	Env               string // environment: "development" (default) or "production"

	// CaseSensitiveUserIDs controls identifier normalization. When false
	// (the default), user and group ids are lowercased at every insert,
	// lookup, and comparison site.
	CaseSensitiveUserIDs bool

	// DefaultRole is the role reported for users with no role assignment.
	DefaultRole string

	// ReloadSchedule is the cron expression for periodic graph reloads.
	// Empty disables the scheduler.
	ReloadSchedule string

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	// Auth holds identity provider and authentication configuration.
	Auth AuthConfig

	// Broker holds the session broker connection settings.
	Broker BrokerConfig

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// HasPolicyS3 returns true if all required policy S3 fields are set.
func (c *Config) HasPolicyS3() bool {
	return c.PolicyS3Bucket != nil && c.PolicyS3Key != nil && c.PolicyS3Region != nil
}

// LoadFromEnv loads configuration from environment variables.
// Policy S3 variables are optional — a local policy file works without them.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		PolicyFile:           os.Getenv("POLICY_FILE"),
		RolesFile:            os.Getenv("ROLES_FILE"),
		DirectoryDBPath:      os.Getenv("DIRECTORY_DB_PATH"),
		ListenAddr:           os.Getenv("LISTEN_ADDR"),
		TLSCertFile:          os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:           os.Getenv("TLS_KEY_FILE"),
		LogLevel:             os.Getenv("LOG_LEVEL"),
		Env:                  os.Getenv("ENV"),
		DefaultRole:          os.Getenv("DEFAULT_ROLE"),
		ReloadSchedule:       os.Getenv("RELOAD_SCHEDULE"),
		CaseSensitiveUserIDs: parseBoolEnvDefault("USER_ID_CASE_SENSITIVE", false),
	}

	// Rate limiting
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// Policy S3 fields are optional — only set if present
	if v := os.Getenv("POLICY_S3_BUCKET"); v != "" {
		cfg.PolicyS3Bucket = &v
	}
	if v := os.Getenv("POLICY_S3_KEY"); v != "" {
		cfg.PolicyS3Key = &v
	}
	if v := os.Getenv("POLICY_S3_REGION"); v != "" {
		cfg.PolicyS3Region = &v
	}
	cfg.PolicyS3Endpoint = os.Getenv("POLICY_S3_ENDPOINT")
	cfg.PolicyS3AccessKey = os.Getenv("POLICY_S3_ACCESS_KEY")
	cfg.PolicyS3SecretKey = os.Getenv("POLICY_S3_SECRET_KEY")

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = compactNonEmpty(origins)
	}
	if strings.EqualFold(os.Getenv("ALLOW_INSECURE_HTTP"), "true") {
		cfg.AllowInsecureHTTP = true
	}

	// Auth config
	cfg.Auth = AuthConfig{
		IssuerURL: os.Getenv("AUTH_ISSUER_URL"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		Audience:  os.Getenv("AUTH_AUDIENCE"),
		NameClaim: os.Getenv("AUTH_NAME_CLAIM"),
	}
	if v := os.Getenv("AUTH_ALLOWED_ISSUERS"); v != "" {
		cfg.Auth.AllowedIssuers = strings.Split(v, ",")
	}
	if v := os.Getenv("AUTH_TOKEN_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Auth.TokenCacheTTL = d
		}
	}

	// Broker config
	cfg.Broker = BrokerConfig{
		URL:        os.Getenv("BROKER_URL"),
		AuthID:     os.Getenv("BROKER_AUTH_ID"),
		AuthSecret: os.Getenv("BROKER_AUTH_SECRET"),
	}
	if v := os.Getenv("BROKER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Broker.Timeout = d
		}
	}
	if v := os.Getenv("BROKER_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Broker.PageSize = n
		}
	}

	// Auth defaults
	if cfg.Auth.TokenCacheTTL == 0 {
		cfg.Auth.TokenCacheTTL = time.Hour
	}
	if cfg.Auth.NameClaim == "" {
		cfg.Auth.NameClaim = "sub"
	}

	// Broker defaults
	if cfg.Broker.Timeout == 0 {
		cfg.Broker.Timeout = 15 * time.Second
	}
	if cfg.Broker.PageSize == 0 {
		cfg.Broker.PageSize = 100
	}

	// Defaults
	if cfg.DirectoryDBPath == "" {
		cfg.DirectoryDBPath = "console_directory.sqlite"
	}
	if cfg.PolicyFile == "" && !cfg.HasPolicyS3() {
		cfg.PolicyFile = "console-permissions.policy"
	}
	if cfg.RolesFile == "" {
		cfg.RolesFile = "roles.yaml"
	}
	if cfg.DefaultRole == "" {
		cfg.DefaultRole = "User"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return nil, fmt.Errorf("both TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	if (cfg.PolicyS3Bucket != nil || cfg.PolicyS3Key != nil || cfg.PolicyS3Region != nil) && !cfg.HasPolicyS3() {
		return nil, fmt.Errorf("POLICY_S3_BUCKET, POLICY_S3_KEY and POLICY_S3_REGION must be set together")
	}
	if !cfg.Auth.OIDCEnabled() && cfg.Auth.JWTSecret == "" {
		cfg.Warnings = append(cfg.Warnings, "no identity provider configured — set AUTH_ISSUER_URL or JWT_SECRET")
	}
	if cfg.Broker.URL == "" {
		cfg.Warnings = append(cfg.Warnings, "BROKER_URL not set — sessions will not be loaded")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if !cfg.Auth.OIDCEnabled() {
			return nil, fmt.Errorf("OIDC must be configured in production (set AUTH_ISSUER_URL)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
		if cfg.TLSCertFile == "" && !cfg.AllowInsecureHTTP {
			return nil, fmt.Errorf("TLS_CERT_FILE/TLS_KEY_FILE must be set in production unless ALLOW_INSECURE_HTTP=true")
		}
	}

	return cfg, nil
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if v == "" {
		return defaultVal
	}
	if v == "0" || v == "false" || v == "no" || v == "off" {
		return false
	}
	if v == "1" || v == "true" || v == "yes" || v == "on" {
		return true
	}
	return defaultVal
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = stripQuotes(value)
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
