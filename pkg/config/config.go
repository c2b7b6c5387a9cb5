package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/qauth/pkg/observability"
	"github.com/platinummonkey/qauth/pkg/qps"
	"github.com/platinummonkey/qauth/pkg/session"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Proxy holds the Qlik Proxy Service client configuration
	Proxy qps.Config

	// Session holds the redis session store configuration
	Session SessionConfig

	// Providers holds the identity provider credentials
	Providers ProvidersConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// BasePath prefixes every broker route, e.g. "/qauth"
	BasePath string

	// AllowedOrigins enables CORS when non-empty
	AllowedOrigins []string

	// Ops/metrics server (separate port for k8s probes)
	OpsPort string
}

// SessionConfig holds the session store and cookie settings
type SessionConfig struct {
	RedisURL      string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int

	CookieName   string
	CookieSecure bool
	TTL          time.Duration
}

// ProvidersConfig holds per-provider credentials. A provider with an empty
// client id is not registered.
type ProvidersConfig struct {
	// ExternalURL is the public base URL of the broker, used to build the
	// provider callback URLs, e.g. https://broker.example.com
	ExternalURL string

	GoogleClientID     string
	GoogleClientSecret string

	FacebookAppID     string
	FacebookAppSecret string

	SAMLName        string
	SAMLEntityID    string
	SAMLSSOURL      string
	SAMLCertificate string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Proxy:         loadProxyConfig(),
		Session:       loadSessionConfig(),
		Providers:     loadProvidersConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	cfg := ServerConfig{
		Host:            getEnv("QAUTH_HOST", "0.0.0.0"),
		Port:            getEnv("QAUTH_PORT", "3000"),
		ReadTimeout:     getEnvDuration("QAUTH_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("QAUTH_WRITE_TIMEOUT", 30*time.Second),
		ShutdownTimeout: getEnvDuration("QAUTH_SHUTDOWN_TIMEOUT", 30*time.Second),
		BasePath:        strings.TrimSuffix(getEnv("QAUTH_BASE_PATH", ""), "/"),
		OpsPort:         getEnv("QAUTH_OPS_PORT", "9090"),
	}

	if origins := getEnv("QAUTH_ALLOWED_ORIGINS", ""); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}

	return cfg
}

// loadProxyConfig loads the Qlik Proxy Service client configuration. The
// certificate bundle is the one exported from the Qlik installation:
// client.pem, client_key.pem and root.pem under one directory.
func loadProxyConfig() qps.Config {
	certsPath := getEnvAny([]string{"QAUTH_QLIK_CERTS_PATH", "QLIK_CERTS_PATH"}, "")

	cfg := qps.Config{
		BaseURL: getEnvAny([]string{"QAUTH_QLIK_PROXY_SERVICE", "QLIK_PROXY_SERVICE"}, ""),
		XrfKey:  getEnvAny([]string{"QAUTH_QLIK_XRFKEY", "QLIK_XRFKEY"}, "abcdefghijklmnop"),
		Timeout: getEnvDuration("QAUTH_QLIK_TIMEOUT", 10*time.Second),
	}

	if certsPath != "" {
		cfg.CertFile = filepath.Join(certsPath, "client.pem")
		cfg.KeyFile = filepath.Join(certsPath, "client_key.pem")
		cfg.CAFile = filepath.Join(certsPath, "root.pem")
	}
	if certFile := getEnv("QAUTH_QLIK_CERT_FILE", ""); certFile != "" {
		cfg.CertFile = certFile
	}
	if keyFile := getEnv("QAUTH_QLIK_KEY_FILE", ""); keyFile != "" {
		cfg.KeyFile = keyFile
	}
	if caFile := getEnv("QAUTH_QLIK_CA_FILE", ""); caFile != "" {
		cfg.CAFile = caFile
	}

	return cfg
}

// loadSessionConfig loads the session store configuration from environment
func loadSessionConfig() SessionConfig {
	return SessionConfig{
		RedisURL:      getEnvAny([]string{"QAUTH_REDIS_URL", "REDIS_URL"}, "redis://localhost:6379/0"),
		RedisPassword: getEnv("QAUTH_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("QAUTH_REDIS_DB", -1),
		RedisPoolSize: getEnvInt("QAUTH_REDIS_POOL_SIZE", 0),
		CookieName:    getEnv("QAUTH_COOKIE_NAME", session.DefaultCookieName),
		CookieSecure:  getEnvBool("QAUTH_COOKIE_SECURE", true),
		TTL:           getEnvDuration("QAUTH_SESSION_TTL", 24*time.Hour),
	}
}

// loadProvidersConfig loads identity provider credentials from environment
func loadProvidersConfig() ProvidersConfig {
	return ProvidersConfig{
		ExternalURL:        strings.TrimSuffix(getEnv("QAUTH_EXTERNAL_URL", ""), "/"),
		GoogleClientID:     getEnvAny([]string{"QAUTH_GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_ID"}, ""),
		GoogleClientSecret: getEnvAny([]string{"QAUTH_GOOGLE_CLIENT_SECRET", "GOOGLE_CLIENT_SECRET"}, ""),
		FacebookAppID:      getEnvAny([]string{"QAUTH_FB_APP_ID", "FB_APP_ID"}, ""),
		FacebookAppSecret:  getEnvAny([]string{"QAUTH_FB_APP_SECRET", "FB_APP_SECRET"}, ""),
		SAMLName:           getEnv("QAUTH_SAML_NAME", ""),
		SAMLEntityID:       getEnv("QAUTH_SAML_ENTITY_ID", ""),
		SAMLSSOURL:         getEnv("QAUTH_SAML_SSO_URL", ""),
		SAMLCertificate:    getEnv("QAUTH_SAML_CERT_FILE", ""),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("QAUTH_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("QAUTH_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("QAUTH_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("QAUTH_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("QAUTH_OTEL_SERVICE_NAME", "qauth"),
		OTelServiceVersion: getEnv("QAUTH_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("QAUTH_OTEL_INSECURE", true),
	}
}

// HasGoogle reports whether Google login is configured
func (p ProvidersConfig) HasGoogle() bool {
	return p.GoogleClientID != "" && p.GoogleClientSecret != ""
}

// HasFacebook reports whether Facebook login is configured
func (p ProvidersConfig) HasFacebook() bool {
	return p.FacebookAppID != "" && p.FacebookAppSecret != ""
}

// HasSAML reports whether a SAML identity provider is configured
func (p ProvidersConfig) HasSAML() bool {
	return p.SAMLName != "" && p.SAMLSSOURL != ""
}

// CallbackURL builds the provider callback URL for a strategy name
func (p ProvidersConfig) CallbackURL(basePath, strategy string) string {
	return p.ExternalURL + basePath + "/" + strategy + "_auth_callback"
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.OpsPort == "" {
		return fmt.Errorf("ops port is required")
	}
	if c.Server.Port == c.Server.OpsPort {
		return fmt.Errorf("server port and ops port must be different")
	}
	if c.Server.BasePath != "" && !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("base path must start with /")
	}

	// Validate the proxy service client config
	if err := c.Proxy.Validate(); err != nil {
		return err
	}

	// Validate session config
	if c.Session.RedisURL == "" {
		return fmt.Errorf("redis URL is required")
	}

	// At least one provider must be configured, or the broker has no way
	// to authenticate anyone.
	if !c.Providers.HasGoogle() && !c.Providers.HasFacebook() && !c.Providers.HasSAML() {
		return fmt.Errorf("at least one identity provider must be configured")
	}
	if c.Providers.ExternalURL == "" {
		return fmt.Errorf("external URL is required to build provider callback URLs")
	}
	if c.Providers.HasSAML() && (c.Providers.SAMLEntityID == "" || c.Providers.SAMLCertificate == "") {
		return fmt.Errorf("SAML entity id and certificate are required when SAML is configured")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAny returns the first set variable among keys, or a default. Later
// keys are the legacy names kept for deployments predating the QAUTH_
// prefix.
func getEnvAny(keys []string, defaultValue string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
