// Package api is the HTTP client for the FinanQuest backend.
//
// The client never stores a bearer token. It asks its TokenProvider for the
// current token on every request, so the session layer stays the single
// owner of the credential.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	applog "finanquest/internal/log"
	"finanquest/internal/middleware/trace"
)

const (
	// DefaultTimeout bounds a whole request including reading the body.
	DefaultTimeout = 15 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 4 << 20
)

// TokenProvider returns the bearer token to attach to the next request. An
// empty token means the request goes out unauthenticated.
type TokenProvider interface {
	Token() string
}

// TokenFunc adapts a function to TokenProvider.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// validator is implemented by response payloads that check their own shape.
type validator interface {
	Validate() error
}

// Client performs JSON requests against a fixed base URL.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenProvider
	logger  *applog.Logger
}

// Option configures a Client.
type Option func(*options)

type options struct {
	http    *http.Client
	timeout time.Duration
	logger  *applog.Logger
}

// WithHTTPClient replaces the pooled default HTTP client. Its transport is
// still wrapped for tracing.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.http = hc }
}

// WithTimeout sets the overall request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLogger sets the logger used by the client and its trace transport.
func WithLogger(l *applog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewClient returns an unauthenticated client for baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https, got %q", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url has no host: %q", baseURL)
	}

	o := options{timeout: DefaultTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = applog.Discard()
	}
	logger := o.logger.WithComponent(applog.ComponentAPI)

	var hc *http.Client
	if o.http != nil {
		cp := *o.http
		cp.Transport = trace.NewTransport(cp.Transport, logger)
		hc = &cp
	} else {
		hc = newHTTPClientWithPooling(logger)
	}
	if o.timeout > 0 {
		hc.Timeout = o.timeout
	}

	return &Client{
		baseURL: u,
		http:    hc,
		logger:  logger,
	}, nil
}

// newHTTPClientWithPooling creates an HTTP client with connection pooling,
// proper timeouts and keep-alive settings.
func newHTTPClientWithPooling(logger *applog.Logger) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second, // TCP connection timeout
		KeepAlive: 30 * time.Second, // Keep-alive probe interval
	}

	transport := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,

		// A single user talks to a single backend.
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		MaxConnsPerHost:     8,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: trace.NewTransport(transport, logger),
		Timeout:   DefaultTimeout,
	}
}

// WithTokens returns a copy of c that reads its bearer token from p. The
// receiver is left unchanged.
func (c *Client) WithTokens(p TokenProvider) *Client {
	cp := *c
	cp.tokens = p
	return &cp
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Do sends body as JSON (when non-nil) and decodes a 2xx response into out
// (when non-nil). A non-2xx status yields *RemoteError and a failure to get
// any response yields *NetworkError.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var (
		reader      io.Reader
		contentType string
	)
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, contentType, reader, out)
}

// send is Do for an already encoded body.
func (c *Client) send(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), body)
	if err != nil {
		return fmt.Errorf("build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Method: method, Path: path, Err: unwrapURLError(err)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &NetworkError{Method: method, Path: path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteError{StatusCode: resp.StatusCode, Body: raw}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		if out != nil {
			if _, ok := out.(validator); ok {
				return c.malformed(ctx, method, path, resp.StatusCode, raw, errors.New("empty response body"))
			}
		}
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return c.malformed(ctx, method, path, resp.StatusCode, raw, err)
	}
	if v, ok := out.(validator); ok {
		if err := v.Validate(); err != nil {
			return c.malformed(ctx, method, path, resp.StatusCode, raw, err)
		}
	}
	return nil
}

func (c *Client) malformed(ctx context.Context, method, path string, status int, raw []byte, err error) error {
	c.logger.WarnContext(ctx, "Malformed backend response",
		applog.FieldMethod, method,
		applog.FieldPath, path,
		applog.FieldStatusCode, status,
		applog.FieldErrorType, applog.ErrorTypeRemote,
		applog.FieldError, err)
	return &RemoteError{StatusCode: status, Body: raw, Malformed: true, Err: err}
}

func (c *Client) resolve(path string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

// unwrapURLError strips the *url.Error wrapper, which repeats method and URL.
func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}
