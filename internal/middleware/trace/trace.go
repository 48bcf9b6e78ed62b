// Package trace tags outgoing backend requests with a request ID and logs
// their start and completion.
package trace

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	applog "finanquest/internal/log"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// HeaderRequestID carries the request ID to the backend.
	HeaderRequestID = "X-Request-ID"
)

// Transport is an http.RoundTripper that traces every request it forwards.
type Transport struct {
	base    http.RoundTripper
	logger  *applog.Logger
	metrics *Metrics
}

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests    int64
	FailedRequests   int64
	LastResponseTime int64 // in microseconds
}

// NewTransport wraps base. A nil base means http.DefaultTransport.
func NewTransport(base http.RoundTripper, logger *applog.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &Transport{
		base:    base,
		logger:  logger.WithComponent(applog.ComponentTrace),
		metrics: &Metrics{},
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()
	ctx := r.Context()

	requestID := GetRequestID(ctx)
	if requestID == "" {
		requestID = GenerateRequestID()
		ctx = WithRequestID(ctx, requestID)
	}

	// RoundTrippers must not modify the caller's request.
	r = r.Clone(ctx)
	r.Header.Set(HeaderRequestID, requestID)

	t.logger.DebugContext(ctx, "HTTP request started",
		applog.FieldRequestID, requestID,
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path,
		"content_length", r.ContentLength)

	atomic.AddInt64(&t.metrics.TotalRequests, 1)

	resp, err := t.base.RoundTrip(r)

	duration := time.Since(start)
	atomic.StoreInt64(&t.metrics.LastResponseTime, duration.Microseconds())

	if err != nil {
		atomic.AddInt64(&t.metrics.FailedRequests, 1)
		t.logger.WarnContext(ctx, "HTTP request failed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldDuration, duration.Milliseconds(),
			applog.FieldError, err)
		return nil, err
	}

	logLevel := slog.LevelDebug
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		logLevel = slog.LevelInfo
	} else if resp.StatusCode >= 500 {
		logLevel = slog.LevelWarn
	}
	if resp.StatusCode >= 400 {
		atomic.AddInt64(&t.metrics.FailedRequests, 1)
	}

	fields := applog.NewFields().
		WithHTTPResponse(r.Method, r.URL.Path, resp.StatusCode, duration.Milliseconds())
	fields[applog.FieldRequestID] = requestID
	t.logger.Log(ctx, logLevel, "HTTP request completed", fields.ToSlice()...)

	return resp, nil
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// WithRequestID returns a copy of ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetMetrics returns current metrics
func (t *Transport) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:    atomic.LoadInt64(&t.metrics.TotalRequests),
		FailedRequests:   atomic.LoadInt64(&t.metrics.FailedRequests),
		LastResponseTime: atomic.LoadInt64(&t.metrics.LastResponseTime),
	}
}
