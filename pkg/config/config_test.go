package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/qauth/pkg/observability"
)

// setValidEnv sets the minimum environment for a loadable configuration
func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("QAUTH_QLIK_PROXY_SERVICE", "https://qlik.internal:4243/qps/qauth/")
	t.Setenv("QAUTH_QLIK_CERTS_PATH", "/etc/qlik/certs")
	t.Setenv("QAUTH_EXTERNAL_URL", "https://broker.example.com")
	t.Setenv("QAUTH_GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("QAUTH_GOOGLE_CLIENT_SECRET", "client-secret")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setValidEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.OpsPort)
	assert.Empty(t, cfg.Server.BasePath)

	assert.Equal(t, "abcdefghijklmnop", cfg.Proxy.XrfKey)
	assert.Equal(t, "/etc/qlik/certs/client.pem", cfg.Proxy.CertFile)
	assert.Equal(t, "/etc/qlik/certs/client_key.pem", cfg.Proxy.KeyFile)
	assert.Equal(t, "/etc/qlik/certs/root.pem", cfg.Proxy.CAFile)
	assert.Equal(t, 10*time.Second, cfg.Proxy.Timeout)

	assert.Equal(t, "redis://localhost:6379/0", cfg.Session.RedisURL)
	assert.Equal(t, "qauth.sid", cfg.Session.CookieName)
	assert.True(t, cfg.Session.CookieSecure)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)

	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.False(t, cfg.Observability.OTelEnabled)
}

func TestLoadConfig_LegacyNames(t *testing.T) {
	t.Setenv("QLIK_PROXY_SERVICE", "https://legacy:4243/qps/qauth/")
	t.Setenv("QLIK_CERTS_PATH", "/opt/certs")
	t.Setenv("QLIK_XRFKEY", "0123456789abcdef")
	t.Setenv("REDIS_URL", "redis://legacy:6379/1")
	t.Setenv("GOOGLE_CLIENT_ID", "legacy-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "legacy-secret")
	t.Setenv("QAUTH_EXTERNAL_URL", "https://broker.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://legacy:4243/qps/qauth/", cfg.Proxy.BaseURL)
	assert.Equal(t, "0123456789abcdef", cfg.Proxy.XrfKey)
	assert.Equal(t, "/opt/certs/client.pem", cfg.Proxy.CertFile)
	assert.Equal(t, "redis://legacy:6379/1", cfg.Session.RedisURL)
	assert.Equal(t, "legacy-id", cfg.Providers.GoogleClientID)
}

func TestLoadConfig_PrefixedNameWins(t *testing.T) {
	setValidEnv(t)
	t.Setenv("QLIK_PROXY_SERVICE", "https://legacy:4243/qps/qauth/")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://qlik.internal:4243/qps/qauth/", cfg.Proxy.BaseURL)
}

func TestLoadConfig_AllowedOrigins(t *testing.T) {
	setValidEnv(t)
	t.Setenv("QAUTH_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
}

func TestLoadConfig_MissingProxyService(t *testing.T) {
	setValidEnv(t)
	t.Setenv("QAUTH_QLIK_PROXY_SERVICE", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_BadXrfKeyLength(t *testing.T) {
	setValidEnv(t)
	t.Setenv("QAUTH_QLIK_XRFKEY", "tooshort")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_NoProviders(t *testing.T) {
	setValidEnv(t)
	t.Setenv("QAUTH_GOOGLE_CLIENT_ID", "")
	t.Setenv("QAUTH_GOOGLE_CLIENT_SECRET", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_MissingExternalURL(t *testing.T) {
	setValidEnv(t)
	t.Setenv("QAUTH_EXTERNAL_URL", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_SAMLRequiresEntityAndCert(t *testing.T) {
	setValidEnv(t)
	t.Setenv("QAUTH_SAML_NAME", "corp")
	t.Setenv("QAUTH_SAML_SSO_URL", "https://idp.example.com/sso")

	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("QAUTH_SAML_ENTITY_ID", "https://idp.example.com/metadata")
	t.Setenv("QAUTH_SAML_CERT_FILE", "/etc/qauth/idp.pem")

	_, err = LoadConfig()
	assert.NoError(t, err)
}

func TestLoadConfig_SamePortsRejected(t *testing.T) {
	setValidEnv(t)
	t.Setenv("QAUTH_PORT", "3000")
	t.Setenv("QAUTH_OPS_PORT", "3000")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestCallbackURL(t *testing.T) {
	p := ProvidersConfig{ExternalURL: "https://broker.example.com"}
	assert.Equal(t, "https://broker.example.com/google_auth_callback", p.CallbackURL("", "google"))
	assert.Equal(t, "https://broker.example.com/qauth/google_auth_callback", p.CallbackURL("/qauth", "google"))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, observability.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, observability.WarnLevel, parseLogLevel("WARNING"))
	assert.Equal(t, observability.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, observability.InfoLevel, parseLogLevel("nonsense"))
}
