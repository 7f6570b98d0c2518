// Package config loads service configuration from defaults, an optional YAML
// file, a .env file and ONEID_* environment variables, in increasing order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/gsarma/oneid/internal/logger"
	"github.com/gsarma/oneid/internal/oneid"
	"github.com/gsarma/oneid/internal/tracing"
)

// Config is the full service configuration.
type Config struct {
	Server         ServerConfig      `mapstructure:"server"`
	BaseURL        string            `mapstructure:"base_url"`
	ClientID       string            `mapstructure:"client_id"`
	ClientSecret   string            `mapstructure:"client_secret"`
	Scope          string            `mapstructure:"scope"`
	RedirectURI    string            `mapstructure:"redirect_uri"`
	Endpoints      EndpointsConfig   `mapstructure:"endpoints"`
	Routes         RoutesConfig      `mapstructure:"routes"`
	User           UserConfig        `mapstructure:"user"`
	HTTP           HTTPConfig        `mapstructure:"http"`
	DefaultHeaders map[string]string `mapstructure:"default_headers"`
	Logging        logger.Config     `mapstructure:"logging"`
	Cache          CacheConfig       `mapstructure:"cache"`
	Security       SecurityConfig    `mapstructure:"security"`
	Tracing        tracing.Config    `mapstructure:"tracing"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// StateKey is the hex AES key sealing the state cookie. Empty means a
	// random key per process.
	StateKey string        `mapstructure:"state_key"`
	StateTTL time.Duration `mapstructure:"state_ttl"`
}

type EndpointsConfig struct {
	Authorization string `mapstructure:"authorization"`
	Token         string `mapstructure:"token"`
	UserInfo      string `mapstructure:"user_info"`
	Logout        string `mapstructure:"logout"`
}

type RoutesConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
}

type UserConfig struct {
	PINField       string            `mapstructure:"pin_field"`
	RequiredFields []string          `mapstructure:"required_fields"`
	OptionalFields []string          `mapstructure:"optional_fields"`
	FieldMapping   map[string]string `mapstructure:"field_mapping"`
}

// HTTPConfig uses the units of the environment variables: seconds for
// timeouts, milliseconds for the retry delay.
type HTTPConfig struct {
	Timeout        int `mapstructure:"timeout"`
	ConnectTimeout int `mapstructure:"connect_timeout"`
	RetryTimes     int `mapstructure:"retry_times"`
	RetryDelay     int `mapstructure:"retry_delay"`
}

// CacheConfig is accepted for compatibility; nothing is cached.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	TTL     int    `mapstructure:"ttl"`
	Prefix  string `mapstructure:"prefix"`
}

type SecurityConfig struct {
	VerifySSL      bool               `mapstructure:"verify_ssl"`
	AllowedOrigins string             `mapstructure:"allowed_origins"`
	RateLimiting   RateLimitingConfig `mapstructure:"rate_limiting"`
}

type RateLimitingConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	MaxAttempts  int  `mapstructure:"max_attempts"`
	DecayMinutes int  `mapstructure:"decay_minutes"`
}

// envBindings maps configuration keys to their environment variables.
var envBindings = map[string]string{
	"server.addr":                          "ONEID_SERVER_ADDR",
	"server.shutdown_timeout":              "ONEID_SHUTDOWN_TIMEOUT",
	"server.state_key":                     "ONEID_STATE_KEY",
	"server.state_ttl":                     "ONEID_STATE_TTL",
	"base_url":                             "ONEID_BASE_URL",
	"client_id":                            "ONEID_CLIENT_ID",
	"client_secret":                        "ONEID_CLIENT_SECRET",
	"scope":                                "ONEID_SCOPE",
	"redirect_uri":                         "ONEID_REDIRECT_URI",
	"endpoints.authorization":              "ONEID_AUTH_ENDPOINT",
	"endpoints.token":                      "ONEID_TOKEN_ENDPOINT",
	"endpoints.user_info":                  "ONEID_USER_INFO_ENDPOINT",
	"endpoints.logout":                     "ONEID_LOGOUT_ENDPOINT",
	"routes.enabled":                       "ONEID_ROUTES_ENABLED",
	"routes.prefix":                        "ONEID_ROUTE_PREFIX",
	"user.pin_field":                       "ONEID_PIN_FIELD",
	"http.timeout":                         "ONEID_TIMEOUT",
	"http.connect_timeout":                 "ONEID_CONNECT_TIMEOUT",
	"http.retry_times":                     "ONEID_RETRY_TIMES",
	"http.retry_delay":                     "ONEID_RETRY_DELAY",
	"logging.enabled":                      "ONEID_LOGGING_ENABLED",
	"logging.level":                        "ONEID_LOG_LEVEL",
	"logging.channel":                      "ONEID_LOG_CHANNEL",
	"logging.format":                       "ONEID_LOG_FORMAT",
	"cache.enabled":                        "ONEID_CACHE_ENABLED",
	"cache.ttl":                            "ONEID_CACHE_TTL",
	"cache.prefix":                         "ONEID_CACHE_PREFIX",
	"security.verify_ssl":                  "ONEID_VERIFY_SSL",
	"security.allowed_origins":             "ONEID_ALLOWED_ORIGINS",
	"security.rate_limiting.enabled":       "ONEID_RATE_LIMITING_ENABLED",
	"security.rate_limiting.max_attempts":  "ONEID_RATE_LIMIT_ATTEMPTS",
	"security.rate_limiting.decay_minutes": "ONEID_RATE_LIMIT_DECAY",
	"tracing.enabled":                      "ONEID_TRACING_ENABLED",
	"tracing.endpoint":                     "ONEID_TRACING_ENDPOINT",
	"tracing.service_name":                 "ONEID_TRACING_SERVICE_NAME",
	"tracing.sample_rate":                  "ONEID_TRACING_SAMPLE_RATE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.state_key", "")
	v.SetDefault("server.state_ttl", 10*time.Minute)

	v.SetDefault("base_url", "https://sso.egov.uz")
	v.SetDefault("client_id", "")
	v.SetDefault("client_secret", "")
	v.SetDefault("scope", "openid profile")
	v.SetDefault("redirect_uri", "")

	v.SetDefault("endpoints.authorization", oneid.DefaultEndpoint)
	v.SetDefault("endpoints.token", oneid.DefaultEndpoint)
	v.SetDefault("endpoints.user_info", oneid.DefaultEndpoint)
	v.SetDefault("endpoints.logout", oneid.DefaultEndpoint)

	v.SetDefault("routes.enabled", true)
	v.SetDefault("routes.prefix", "auth/oneid")

	v.SetDefault("user.pin_field", oneid.DefaultPINField)
	v.SetDefault("user.required_fields", []string{"pin", "first_name", "sur_name", "mid_name"})
	v.SetDefault("user.optional_fields", []string{
		"valid", "validation_method", "user_id", "full_name", "pport_no",
		"birth_date", "sur_name", "user_type", "sess_id", "ret_cd",
		"auth_method", "pkcs_legal_tin", "legal_info",
	})
	v.SetDefault("user.field_mapping", map[string]string{
		"pin":                "pin",
		"first_name":         "first_name",
		"last_name":          "sur_name",
		"middle_name":        "mid_name",
		"full_name":          "full_name",
		"birth_date":         "birth_date",
		"passport":           "pport_no",
		"user_type":          "user_type",
		"session_id":         "sess_id",
		"auth_method":        "auth_method",
		"is_verified":        "valid",
		"validation_methods": "validation_method",
		"legal_entities":     "legal_info",
	})

	v.SetDefault("http.timeout", 30)
	v.SetDefault("http.connect_timeout", 10)
	v.SetDefault("http.retry_times", 3)
	v.SetDefault("http.retry_delay", 1000)

	v.SetDefault("default_headers", map[string]string{
		"Accept":     "application/json",
		"User-Agent": "Go-OneID-Client/1.0",
	})

	v.SetDefault("logging.enabled", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.channel", "default")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", 3600)
	v.SetDefault("cache.prefix", "oneid")

	v.SetDefault("security.verify_ssl", true)
	v.SetDefault("security.allowed_origins", "*")
	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.max_attempts", 5)
	v.SetDefault("security.rate_limiting.decay_minutes", 1)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.service_name", "oneid")
	v.SetDefault("tracing.sample_rate", 1.0)
}

// LoaderOption customises Load.
type LoaderOption func(*loaderConfig)

type loaderConfig struct {
	configFile string
	envFile    string
}

// WithConfigFile reads a YAML (or any viper-supported) file as the base layer.
func WithConfigFile(path string) LoaderOption {
	return func(lc *loaderConfig) { lc.configFile = path }
}

// WithEnvFile loads a .env file into the process environment. The default is
// ".env" in the working directory when it exists.
func WithEnvFile(path string) LoaderOption {
	return func(lc *loaderConfig) { lc.envFile = path }
}

// Load builds the configuration.
func Load(opts ...LoaderOption) (*Config, error) {
	lc := loaderConfig{envFile: ".env"}
	for _, opt := range opts {
		opt(&lc)
	}

	if lc.envFile != "" {
		// godotenv never overrides variables already set in the environment.
		if err := godotenv.Load(lc.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", lc.envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if lc.configFile != "" {
		v.SetConfigFile(lc.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", lc.configFile, err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Routes.Prefix = strings.Trim(cfg.Routes.Prefix, "/")
	return &cfg, nil
}

// Provider returns the OneID client configuration.
func (c *Config) Provider() oneid.ProviderConfig {
	return oneid.ProviderConfig{
		BaseURL:      c.BaseURL,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURI:  c.RedirectURI,
		Scope:        c.Scope,
		Endpoints: oneid.Endpoints{
			Authorization: c.Endpoints.Authorization,
			Token:         c.Endpoints.Token,
			UserInfo:      c.Endpoints.UserInfo,
			Logout:        c.Endpoints.Logout,
		},
		Timeout:        time.Duration(c.HTTP.Timeout) * time.Second,
		ConnectTimeout: time.Duration(c.HTTP.ConnectTimeout) * time.Second,
		RetryTimes:     c.HTTP.RetryTimes,
		RetryDelay:     time.Duration(c.HTTP.RetryDelay) * time.Millisecond,
		Headers:        c.DefaultHeaders,
		VerifySSL:      c.Security.VerifySSL,
		PINField:       c.User.PINField,
		RequiredFields: c.User.RequiredFields,
		OptionalFields: c.User.OptionalFields,
		FieldMapping:   c.User.FieldMapping,
	}
}

// AllowedOrigins splits the comma-separated origin list.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.Security.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
