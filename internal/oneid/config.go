package oneid

import (
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gsarma/oneid/internal/httpclient"
)

// DefaultEndpoint is the path OneID documents for every grant type.
const DefaultEndpoint = "/sso/oauth/Authorization.do"

// DefaultPINField is the profile key that must be present for a successful login.
const DefaultPINField = "pin"

// Endpoints holds per-operation path overrides, relative to the base URL.
type Endpoints struct {
	Authorization string
	Token         string
	UserInfo      string
	Logout        string
}

// ProviderConfig is the immutable client configuration for one OneID application.
type ProviderConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scope        string
	Endpoints    Endpoints

	Timeout        time.Duration
	ConnectTimeout time.Duration
	RetryTimes     int
	RetryDelay     time.Duration
	Headers        map[string]string
	VerifySSL      bool

	PINField       string
	RequiredFields []string
	OptionalFields []string
	// FieldMapping maps application field names to provider profile keys.
	FieldMapping map[string]string
}

func (c *ProviderConfig) applyDefaults() {
	if c.Endpoints.Authorization == "" {
		c.Endpoints.Authorization = DefaultEndpoint
	}
	if c.Endpoints.Token == "" {
		c.Endpoints.Token = DefaultEndpoint
	}
	if c.Endpoints.UserInfo == "" {
		c.Endpoints.UserInfo = DefaultEndpoint
	}
	if c.Endpoints.Logout == "" {
		c.Endpoints.Logout = DefaultEndpoint
	}
	if c.PINField == "" {
		c.PINField = DefaultPINField
	}
	if len(c.RequiredFields) == 0 {
		c.RequiredFields = append([]string(nil), defaultRequiredFields...)
	}
}

// TransportConfig derives the HTTP transport settings.
func (c ProviderConfig) TransportConfig() httpclient.Config {
	return httpclient.Config{
		BaseURL:            c.BaseURL,
		Timeout:            c.Timeout,
		ConnectTimeout:     c.ConnectTimeout,
		RetryTimes:         c.RetryTimes,
		RetryDelay:         c.RetryDelay,
		Headers:            c.Headers,
		InsecureSkipVerify: !c.VerifySSL,
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate reports one message per missing or malformed required setting, in
// declaration order. An empty slice means the configuration is usable.
func (c ProviderConfig) Validate() []string {
	v := getValidator()
	errs := make([]string, 0)

	if strings.TrimSpace(c.ClientID) == "" {
		errs = append(errs, "OneID Client ID is required")
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		errs = append(errs, "OneID Client Secret is required")
	}
	switch {
	case strings.TrimSpace(c.RedirectURI) == "":
		errs = append(errs, "OneID Redirect URI is required")
	case v.Var(c.RedirectURI, "http_url") != nil:
		errs = append(errs, "OneID Redirect URI must be a valid URL")
	}
	switch {
	case strings.TrimSpace(c.BaseURL) == "":
		errs = append(errs, "OneID Base URL is required")
	case v.Var(c.BaseURL, "http_url") != nil:
		errs = append(errs, "OneID Base URL must be a valid URL")
	}
	return errs
}

// Configured reports whether Validate finds nothing to complain about.
func (c ProviderConfig) Configured() bool {
	return len(c.Validate()) == 0
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
