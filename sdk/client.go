// Package oneid is a Go client for the OneID login gateway.
//
// Usage:
//
//	client := oneid.New("https://login.example.uz")
//
//	// Send the browser here to start a login:
//	http.Redirect(w, r, client.RedirectURL(), http.StatusFound)
//
//	// On the callback, finish it:
//	res, err := client.Handle(ctx, oneid.HandleRequest{Code: code})
//	if err == nil && res.Success {
//	    fmt.Println(res.Data["pin"])
//	}
package oneid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultPrefix is the route prefix the gateway mounts its endpoints under.
const DefaultPrefix = "auth/oneid"

// Client talks to a OneID gateway.
type Client struct {
	baseURL    string
	prefix     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithPrefix overrides the route prefix configured on the gateway.
func WithPrefix(prefix string) Option {
	return func(c *Client) {
		c.prefix = strings.Trim(prefix, "/")
	}
}

// New creates a client. baseURL is the gateway root (e.g. "https://login.example.uz").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		prefix:     DefaultPrefix,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Handle exchanges an authorization code for the user's profile. Login
// failures reported by OneID come back as a result with Success=false; an
// error means the gateway rejected the request itself.
func (c *Client) Handle(ctx context.Context, req HandleRequest) (*AuthResult, error) {
	return doRequest[AuthResult](ctx, c, http.MethodPost, c.route("handle"), req, http.StatusOK)
}

// Logout ends the user's OneID session.
func (c *Client) Logout(ctx context.Context, accessToken string) (*LogoutResult, error) {
	return doRequest[LogoutResult](ctx, c, http.MethodPost, c.route("logout"),
		LogoutRequest{AccessToken: accessToken}, http.StatusOK)
}

// RedirectURL is the gateway URL that starts a login. Browsers must follow
// it directly so the state cookie lands on the gateway's domain.
func (c *Client) RedirectURL() string {
	return c.baseURL + c.route("redirect")
}

// Health checks that the gateway is reachable and configured.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	return doRequest[HealthResponse](ctx, c, http.MethodGet, "/health", nil, http.StatusOK)
}

func (c *Client) route(name string) string {
	if c.prefix == "" {
		return "/" + name
	}
	return "/" + c.prefix + "/" + name
}

// --- internal helpers ---

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("oneid: marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func doRequest[T any](ctx context.Context, c *Client, method, path string, body any, expectedStatus int) (*T, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != expectedStatus {
		return nil, parseError(resp)
	}

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("oneid: decode response: %w", err)
	}
	return &out, nil
}

func parseError(resp *http.Response) *APIError {
	e := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error   string              `json:"error"`
		Message string              `json:"message"`
		Errors  map[string][]string `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		e.Errors = body.Errors
		switch {
		case body.Message != "":
			e.Message = body.Message
		case body.Error != "":
			e.Message = body.Error
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}
