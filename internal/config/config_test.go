package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsarma/oneid/internal/oneid"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(WithEnvFile(""))
	require.NoError(t, err)

	assert.Equal(t, "https://sso.egov.uz", cfg.BaseURL)
	assert.Equal(t, "openid profile", cfg.Scope)
	assert.Equal(t, oneid.DefaultEndpoint, cfg.Endpoints.Token)
	assert.Equal(t, "auth/oneid", cfg.Routes.Prefix)
	assert.True(t, cfg.Routes.Enabled)
	assert.Equal(t, 30, cfg.HTTP.Timeout)
	assert.Equal(t, 3, cfg.HTTP.RetryTimes)
	assert.True(t, cfg.Logging.Enabled)
	assert.Equal(t, "default", cfg.Logging.Channel)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 3600, cfg.Cache.TTL)
	assert.True(t, cfg.Security.VerifySSL)
	assert.Equal(t, 5, cfg.Security.RateLimiting.MaxAttempts)
	assert.Equal(t, []string{"pin", "first_name", "sur_name", "mid_name"}, cfg.User.RequiredFields)
	assert.Equal(t, "sur_name", cfg.User.FieldMapping["last_name"])
	assert.Equal(t, 10*time.Minute, cfg.Server.StateTTL)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins())
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "oneid", cfg.Tracing.ServiceName)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRate)
}

func TestLoad_TracingFromEnv(t *testing.T) {
	t.Setenv("ONEID_TRACING_ENABLED", "true")
	t.Setenv("ONEID_TRACING_ENDPOINT", "http://otel-collector:4318")
	t.Setenv("ONEID_TRACING_SAMPLE_RATE", "0.5")

	cfg, err := Load(WithEnvFile(""))
	require.NoError(t, err)

	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "http://otel-collector:4318", cfg.Tracing.Endpoint)
	assert.Equal(t, 0.5, cfg.Tracing.SampleRate)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ONEID_CLIENT_ID", "my-app")
	t.Setenv("ONEID_CLIENT_SECRET", "s3cret")
	t.Setenv("ONEID_REDIRECT_URI", "https://app.example.uz/cb")
	t.Setenv("ONEID_TOKEN_ENDPOINT", "/sso/oauth/Token.do")
	t.Setenv("ONEID_TIMEOUT", "5")
	t.Setenv("ONEID_RETRY_DELAY", "250")
	t.Setenv("ONEID_LOGGING_ENABLED", "false")
	t.Setenv("ONEID_ROUTE_PREFIX", "/sso/")
	t.Setenv("ONEID_VERIFY_SSL", "false")
	t.Setenv("ONEID_ALLOWED_ORIGINS", "https://a.uz, https://b.uz")
	t.Setenv("ONEID_STATE_TTL", "90s")

	cfg, err := Load(WithEnvFile(""))
	require.NoError(t, err)

	assert.Equal(t, "my-app", cfg.ClientID)
	assert.Equal(t, "/sso/oauth/Token.do", cfg.Endpoints.Token)
	assert.Equal(t, oneid.DefaultEndpoint, cfg.Endpoints.Logout)
	assert.False(t, cfg.Logging.Enabled)
	assert.Equal(t, "sso", cfg.Routes.Prefix)
	assert.Equal(t, 90*time.Second, cfg.Server.StateTTL)
	assert.Equal(t, []string{"https://a.uz", "https://b.uz"}, cfg.AllowedOrigins())

	p := cfg.Provider()
	assert.Equal(t, 5*time.Second, p.Timeout)
	assert.Equal(t, 10*time.Second, p.ConnectTimeout)
	assert.Equal(t, 250*time.Millisecond, p.RetryDelay)
	assert.False(t, p.VerifySSL)
	assert.Empty(t, p.Validate())
}

func TestLoad_ConfigFileAndEnvFile(t *testing.T) {
	dir := t.TempDir()
	yml := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(yml, []byte(`
client_id: from-file
scope: openid
user:
  pin_field: pinfl
http:
  retry_times: 1
`), 0o600))
	env := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(env, []byte("ONEID_SCOPE=\"openid profile email\"\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("ONEID_SCOPE") })

	cfg, err := Load(WithConfigFile(yml), WithEnvFile(env))
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.ClientID)
	assert.Equal(t, "openid profile email", cfg.Scope)
	assert.Equal(t, "pinfl", cfg.User.PINField)
	assert.Equal(t, 1, cfg.HTTP.RetryTimes)
	assert.Equal(t, 3600, cfg.Cache.TTL)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(WithEnvFile(""), WithConfigFile(filepath.Join(t.TempDir(), "nope.yml")))
	assert.Error(t, err)
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	_, err := Load(WithEnvFile(filepath.Join(t.TempDir(), ".env")))
	assert.NoError(t, err)
}

func TestProvider_Headers(t *testing.T) {
	cfg, err := Load(WithEnvFile(""))
	require.NoError(t, err)

	headers := cfg.Provider().Headers
	assert.Len(t, headers, 2)
	for k, v := range headers {
		switch k {
		case "accept", "Accept":
			assert.Equal(t, "application/json", v)
		default:
			assert.Equal(t, "Go-OneID-Client/1.0", v)
		}
	}
}
