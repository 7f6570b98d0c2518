// Package oneid integrates with the OneID national identity provider: it
// builds the authorization redirect, exchanges codes for access tokens,
// fetches user profiles and logs users out.
//
// Client is stateless after construction and safe for concurrent use.
// Handle, Logout and ValidateToken never fail; every outcome is folded into
// a result value. ExchangeCode and UserInfo return *Error for callers that
// want to inspect the failure themselves.
package oneid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/gsarma/oneid/internal/httpclient"
)

// Operation names used in logs, errors and metrics.
const (
	OpHandle        = "handle"
	OpToken         = "token"
	OpUserInfo      = "user_info"
	OpValidateToken = "validate_token"
	OpLogout        = "logout"
)

// Transport sends a single request to the provider.
type Transport interface {
	Do(ctx context.Context, req httpclient.Request) (*httpclient.Response, error)
}

// Recorder observes every outbound call.
type Recorder interface {
	ObserveCall(operation, outcome string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCall(string, string, time.Duration) {}

// Token is the result of a successful code exchange.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

type tokenWire struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	TokenType    string     `json:"token_type"`
	Scope        string     `json:"scope"`
	ExpiresIn    flexString `json:"expires_in"`
}

func (w tokenWire) token() *Token {
	expires, _ := strconv.ParseInt(string(w.ExpiresIn), 10, 64)
	return &Token{
		AccessToken:  w.AccessToken,
		RefreshToken: w.RefreshToken,
		TokenType:    w.TokenType,
		Scope:        w.Scope,
		ExpiresIn:    expires,
	}
}

// Client talks to one OneID application.
type Client struct {
	cfg       ProviderConfig
	oauth     *oauth2.Config
	transport Transport
	recorder  Recorder
	log       zerolog.Logger
	level     zerolog.Level
}

// Option customises a Client.
type Option func(*Client)

// WithTransport replaces the HTTP transport, mainly for tests.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithRecorder installs a call observer.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// WithLogger sets the failure log and the level its events are written at.
func WithLogger(l zerolog.Logger, level zerolog.Level) Option {
	return func(c *Client) {
		c.log = l
		c.level = level
	}
}

// New builds a Client. Configuration problems are not fatal here; call
// ProviderConfig.Validate before serving traffic.
func New(cfg ProviderConfig, opts ...Option) (*Client, error) {
	cfg.applyDefaults()
	c := &Client{
		cfg:      cfg,
		recorder: nopRecorder{},
		log:      zerolog.Nop(),
		level:    zerolog.InfoLevel,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       strings.Fields(cfg.Scope),
			Endpoint: oauth2.Endpoint{
				AuthURL:   joinURL(cfg.BaseURL, cfg.Endpoints.Authorization),
				TokenURL:  joinURL(cfg.BaseURL, cfg.Endpoints.Token),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	if c.transport == nil {
		t, err := httpclient.New(cfg.TransportConfig())
		if err != nil {
			return nil, fmt.Errorf("oneid: build transport: %w", err)
		}
		c.transport = t
	}
	return c, nil
}

// Config returns the provider configuration with defaults applied.
func (c *Client) Config() ProviderConfig {
	return c.cfg
}

// AuthorizationURL returns the URL to send the user's browser to. state is
// the caller's anti-forgery token and is echoed back on the callback. scope is
// always present, empty when none is configured.
func (c *Client) AuthorizationURL(state string) string {
	return c.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("response_type", ResponseTypeCode),
		oauth2.SetAuthURLParam("scope", c.cfg.Scope),
	)
}

// ExchangeCode trades an authorization code for an access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*Token, error) {
	resp, err := c.send(ctx, OpToken, c.cfg.tokenRequest(code))
	if err != nil {
		c.record(OpToken, "OneID: Fatal transport error while requesting token", "code", code, err.Error())
		return nil, &Error{Op: OpToken, Kind: KindTransport, Err: err}
	}
	if !resp.IsSuccess() {
		c.record(OpToken, "OneID: Token request rejected", "code", code, rejection(resp))
		return nil, &Error{Op: OpToken, Kind: KindRejected, StatusCode: resp.StatusCode, Body: resp.Body}
	}

	var wire tokenWire
	if err := resp.JSON(&wire); err != nil {
		c.record(OpToken, "OneID: Failed to parse token response", "code", code, err.Error())
		return nil, &Error{Op: OpToken, Kind: KindParse, StatusCode: resp.StatusCode, Body: resp.Body, Err: err}
	}
	tok := wire.token()
	if tok.AccessToken == "" {
		err := fmt.Errorf("access_token missing from response")
		c.record(OpToken, "OneID: Failed to parse token response", "code", code, err.Error())
		return nil, &Error{Op: OpToken, Kind: KindParse, StatusCode: resp.StatusCode, Body: resp.Body, Err: err}
	}
	return tok, nil
}

// AccessToken is the non-failing form of ExchangeCode.
func (c *Client) AccessToken(ctx context.Context, code string) (string, bool) {
	tok, err := c.ExchangeCode(ctx, code)
	if err != nil {
		return "", false
	}
	return tok.AccessToken, true
}

// UserInfo fetches the raw profile for an access token. Failures are logged
// and returned.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (map[string]any, error) {
	if errs := ValidateAccessToken(accessToken); len(errs) > 0 {
		c.record(OpUserInfo, "OneID: Get user info rejected invalid token", "token", accessToken, errs)
		return nil, &Error{Op: OpUserInfo, Kind: KindValidation, Messages: errs}
	}
	data, resp, err := c.fetchProfile(ctx, OpUserInfo, accessToken)
	if err != nil {
		c.recordProfileError(OpUserInfo, "Get user info", "token", accessToken, err)
		return nil, err
	}
	if _, ok := data[c.cfg.PINField]; !ok {
		c.record(OpUserInfo, fmt.Sprintf("OneID: User info payload missing '%s'", c.cfg.PINField), "token", accessToken, string(resp.Body))
		return nil, &Error{Op: OpUserInfo, Kind: KindBusinessRule, StatusCode: resp.StatusCode, Body: resp.Body, Field: c.cfg.PINField}
	}
	return data, nil
}

// ValidateToken reports whether accessToken yields a profile carrying the
// configured identifier field.
func (c *Client) ValidateToken(ctx context.Context, accessToken string) bool {
	if _, err := c.UserInfo(ctx, accessToken); err != nil {
		c.record(OpValidateToken, "OneID: Token validation failed", "token", accessToken, err.Error())
		return false
	}
	return true
}

// fetchProfile calls the profile endpoint and decodes the body. The returned
// map is nil when the body is valid JSON but not an object.
func (c *Client) fetchProfile(ctx context.Context, op, accessToken string) (map[string]any, *httpclient.Response, *Error) {
	resp, err := c.send(ctx, op, c.cfg.handleRequest(accessToken))
	if err != nil {
		return nil, nil, &Error{Op: op, Kind: KindTransport, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, resp, &Error{Op: op, Kind: KindRejected, StatusCode: resp.StatusCode, Body: resp.Body}
	}

	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, resp, &Error{Op: op, Kind: KindParse, StatusCode: resp.StatusCode, Body: resp.Body, Err: err}
	}
	data, _ := payload.(map[string]any)
	return data, resp, nil
}

func (c *Client) send(ctx context.Context, op string, req httpclient.Request) (*httpclient.Response, error) {
	start := time.Now()
	resp, err := c.transport.Do(ctx, req)
	outcome := "ok"
	switch {
	case err != nil:
		outcome = KindTransport.String()
	case !resp.IsSuccess():
		outcome = KindRejected.String()
	}
	c.recorder.ObserveCall(op, outcome, time.Since(start))
	return resp, err
}

func (c *Client) recordProfileError(op, label, subjectKey, subject string, err *Error) {
	switch err.Kind {
	case KindTransport:
		c.record(op, "OneID: "+label+" transport error", subjectKey, subject, err.Err.Error())
	case KindRejected:
		c.record(op, "OneID: "+label+" request rejected", subjectKey, subject, map[string]any{
			"status": err.StatusCode,
			"body":   string(err.Body),
		})
	default:
		c.record(op, "OneID: Failed to parse "+strings.ToLower(label)+" response", subjectKey, subject, err.Err.Error())
	}
}

// record writes one structured failure event.
func (c *Client) record(op, message, subjectKey, subject string, payload any) {
	c.log.WithLevel(c.level).
		Str("operation", op).
		Str(subjectKey, mask(subject)).
		Str("datetime", time.Now().Format(time.DateTime)).
		Interface("error", payload).
		Msg(message)
}

func rejection(resp *httpclient.Response) map[string]any {
	return map[string]any{
		"status": resp.StatusCode,
		"body":   string(resp.Body),
	}
}

// mask keeps a short prefix of a credential so log lines can be correlated
// without exposing it.
func mask(s string) string {
	if s == "" {
		return "N/A"
	}
	if len(s) <= 6 {
		return "***"
	}
	return s[:4] + "***"
}
