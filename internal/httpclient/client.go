// Package httpclient is the outbound transport used to talk to the OneID
// provider. It applies timeouts, default headers and a retry policy that only
// ever repeats requests which never reached the server.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/gsarma/oneid/internal/httpclient"

// Config configures the transport. It is read-only once the Client is built.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	// RetryTimes is the total number of attempts for requests that failed
	// before a connection was established. Timeouts and failures on an open
	// connection are never retried: the provider may already have consumed
	// a single-use code.
	RetryTimes int
	RetryDelay time.Duration
	Headers    map[string]string
	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool
	// TracerProvider defaults to the global otel provider.
	TracerProvider trace.TracerProvider
}

// ApplyDefaults fills zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.RetryTimes <= 0 {
		c.RetryTimes = 1
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
}

// Request describes one outbound call. Path is resolved against Config.BaseURL.
type Request struct {
	Method  string
	Path    string
	Query   url.Values
	Headers map[string]string
	Body    []byte
}

// Response is a fully read HTTP response, whatever its status.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	config     Config
	tracer     trace.Tracer
}

// New builds a Client with its own transport.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if cfg.BaseURL != "" {
		if _, err := url.Parse(cfg.BaseURL); err != nil {
			return nil, fmt.Errorf("httpclient: invalid base url: %w", err)
		}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = cfg.ConnectTimeout
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via security.verify_ssl=false
	}

	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &Client{
		httpClient: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		config:     cfg,
		tracer:     tp.Tracer(tracerName),
	}, nil
}

// Do sends req, retrying dial failures (refused connections, DNS errors) up to
// RetryTimes attempts with RetryDelay between them. Timeouts and errors after
// the connection was established fail immediately. Any received response,
// including 4xx/5xx, is returned as-is with a nil error and is never retried.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	target, err := c.resolveURL(req)
	if err != nil {
		return nil, newConnectionError(err)
	}

	ctx, span := c.tracer.Start(ctx, "oneid "+req.Method+" "+req.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
		))
	defer span.End()

	attempts := 0
	resp, err := backoff.Retry(ctx, func() (*Response, error) {
		attempts++
		return c.doOnce(ctx, req, target)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.config.RetryDelay)),
		backoff.WithMaxTries(uint(c.config.RetryTimes)),
		backoff.WithMaxElapsedTime(0),
	)
	span.SetAttributes(attribute.Int("oneid.attempts", attempts))
	if err != nil {
		var tErr *Error
		if !errors.As(err, &tErr) {
			tErr = newTimeoutError(err)
		}
		tErr.Attempts = attempts
		span.RecordError(tErr)
		span.SetStatus(codes.Error, tErr.Code.String())
		return nil, tErr
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if !resp.IsSuccess() {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
	}
	return resp, nil
}

func (c *Client) doOnce(ctx context.Context, req Request, target string) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, newConnectionError(err)
	}
	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	var connected atomic.Bool
	httpReq = httpReq.WithContext(httptrace.WithClientTrace(ctx, &httptrace.ClientTrace{
		GotConn: func(httptrace.GotConnInfo) { connected.Store(true) },
	}))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		tErr := classify(ctx, err)
		if connected.Load() || tErr.Code == ErrCodeTimeout {
			return nil, backoff.Permanent(tErr)
		}
		return nil, tErr
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, backoff.Permanent(classify(ctx, fmt.Errorf("read response body: %w", err)))
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func (c *Client) resolveURL(req Request) (string, error) {
	target := req.Path
	if c.config.BaseURL != "" && !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(target, "/")
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func classify(ctx context.Context, err error) *Error {
	if ctx.Err() != nil {
		return newTimeoutError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newTimeoutError(err)
	}
	return newConnectionError(err)
}
