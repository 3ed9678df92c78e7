package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/osmap/backend/internal/domain/dispatch"
	"github.com/osmap/backend/internal/domain/shared"
	"github.com/osmap/backend/internal/infrastructure/telemetry"
)

// maxResponseSize is the maximum allowed response size from the CRM (10MB)
const maxResponseSize = 10 * 1024 * 1024

// CallObserver receives the outcome of every CRM call
type CallObserver interface {
	ObserveCRMCall(ctx context.Context, endpoint string, d time.Duration, err error)
}

// Client talks to the Vigo CRM. One Client is shared by every request; its
// http.Client pools connections per host.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
	observer   CallObserver

	mu    sync.RWMutex
	token string
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient replaces the pooled http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithObserver registers a call observer (metrics)
func WithObserver(o CallObserver) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient creates a CRM client with the given configuration
func NewClient(config *Config, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config: config,
		httpClient: &http.Client{
			Transport: newTransport(config.MaxConnsPerHost),
		},
		logger: zap.NewNop(),
		token:  config.Token,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func newTransport(maxConns int) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxConnsPerHost = maxConns
	t.MaxIdleConnsPerHost = maxConns
	t.MaxIdleConns = maxConns
	return t
}

// Token returns the bearer token in use
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// doRequest POSTs a JSON payload and returns the raw body of a 2xx reply.
// Transport failures and timeouts map to UpstreamUnavailable, other statuses
// to UpstreamBadResponse. Cancellation of ctx itself is returned unchanged.
func (c *Client) doRequest(ctx context.Context, path string, payload any, authorized bool) (body []byte, err error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "crm.request",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute("crm.endpoint", path),
	)
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.SetOK(span)
		}
		span.End()
		if c.observer != nil {
			c.observer.ObserveCRMCall(ctx, path, time.Since(start), err)
		}
	}()

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("crm: failed to encode request: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("crm: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if authorized {
		req.Header.Set("Authorization", "Bearer "+c.Token())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, dispatch.ErrUpstreamUnavailable.WithMessage("crm %s unreachable", path).WithCause(err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, dispatch.ErrUpstreamUnavailable.WithMessage("crm %s: failed to read response", path).WithCause(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("crm returned non-success status",
			zap.String("endpoint", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncate(body, 512)),
		)
		return nil, dispatch.ErrUpstreamBadResponse.
			WithMessage("crm %s returned HTTP %d", path, resp.StatusCode).
			WithDetail(dispatch.DetailStatus, fmt.Sprint(resp.StatusCode))
	}

	return body, nil
}

// decodeJSON decodes with json.Number so numeric ids and coordinates keep
// their exact text.
func decodeJSON(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}

func badPayload(path string, err error) *shared.DomainError {
	return dispatch.ErrUpstreamBadResponse.
		WithMessage("crm %s returned an unexpected payload", path).
		WithCause(err)
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
