// Package http provides a reusable HTTP client with resilience features
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	apperrors "trendgrid/pkg/errors"
	"trendgrid/pkg/telemetry"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// APIError represents an API error response
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: status=%d body=%s", e.StatusCode, string(e.Body))
}

// Signer is an interface for signing requests
type Signer interface {
	SignRequest(req *http.Request) error
}

// Options configures a Client
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Proxy     string  // optional proxy URL
	RateLimit float64 // requests per second, 0 disables limiting
	Signer    Signer
}

// Client is a wrapper around http.Client with resilience.
// Reads are retried; writes only pass the circuit breaker so an order is never sent twice.
type Client struct {
	client        *http.Client
	baseURL       string
	signer        Signer
	limiter       *rate.Limiter
	readPipeline  failsafe.Executor[*http.Response]
	writePipeline failsafe.Executor[*http.Response]

	// OTel
	tracer      trace.Tracer
	reqCounter  metric.Int64Counter
	errCounter  metric.Int64Counter
	latencyHist metric.Float64Histogram
}

// NewClient creates a new HTTP client with default resilience policies
func NewClient(opts Options) (*Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = 10
	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	retryPolicy := retrypolicy.NewBuilder[*http.Response]().
		HandleIf(func(resp *http.Response, err error) bool {
			// Retry on network errors or 5xx server errors
			if err != nil {
				return true
			}
			return resp.StatusCode >= 500 || resp.StatusCode == 429
		}).
		WithBackoff(100*time.Millisecond, 2*time.Second).
		WithMaxRetries(3).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[*http.Response]) {
			if resp := e.LastResult(); resp != nil {
				_ = resp.Body.Close()
			}
		}).
		Build()

	breaker := circuitbreaker.NewBuilder[*http.Response]().
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode >= 500
		}).
		WithFailureThresholdRatio(5, 10). // 5 failures out of 10
		WithDelay(10 * time.Second).
		Build()

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), int(opts.RateLimit)+1)
	}

	tracer := telemetry.GetTracer("http-client")
	meter := telemetry.GetMeter("http-client")

	reqCounter, _ := meter.Int64Counter("http_requests_total",
		metric.WithDescription("Total number of HTTP requests"))
	errCounter, _ := meter.Int64Counter("http_errors_total",
		metric.WithDescription("Total number of HTTP errors"))
	latencyHist, _ := meter.Float64Histogram("http_request_duration_seconds",
		metric.WithDescription("HTTP request latency in seconds"))

	return &Client{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		baseURL:       opts.BaseURL,
		signer:        opts.Signer,
		limiter:       limiter,
		readPipeline:  failsafe.With[*http.Response](retryPolicy, breaker),
		writePipeline: failsafe.With[*http.Response](breaker),
		tracer:        tracer,
		reqCounter:    reqCounter,
		errCounter:    errCounter,
		latencyHist:   latencyHist,
	}, nil
}

// Get sends an unsigned GET request
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, path, params, false)
}

// SignedGet sends a GET request signed by the configured Signer
func (c *Client) SignedGet(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return c.Do(ctx, http.MethodGet, path, params, true)
}

// SignedPost sends a POST request with query parameters, signed by the configured Signer
func (c *Client) SignedPost(ctx context.Context, path string, params url.Values) ([]byte, error) {
	return c.Do(ctx, http.MethodPost, path, params, true)
}

// Do builds and executes a request with parameters in the query string
func (c *Client) Do(ctx context.Context, method, path string, params url.Values, signed bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if params != nil {
		req.URL.RawQuery = params.Encode()
	}

	if signed {
		if c.signer == nil {
			return nil, fmt.Errorf("signed request to %s without signer", path)
		}
		if err := c.signer.SignRequest(req); err != nil {
			return nil, fmt.Errorf("failed to sign request: %w", err)
		}
	}

	pipeline := c.readPipeline
	if method != http.MethodGet {
		pipeline = c.writePipeline
	}
	return c.do(req, pipeline)
}

func (c *Client) do(req *http.Request, pipeline failsafe.Executor[*http.Response]) ([]byte, error) {
	start := time.Now()
	ctx := req.Context()

	ctx, span := c.tracer.Start(ctx, fmt.Sprintf("%s %s", req.Method, req.URL.Path),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("http.path", req.URL.Path),
		),
	)
	defer span.End()

	req = req.WithContext(ctx)

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return nil, apperrors.Network(req.URL.Path, err)
	}

	resp, err := pipeline.WithContext(ctx).GetWithExecution(func(exec failsafe.Execution[*http.Response]) (*http.Response, error) {
		if exec.Attempts() > 1 {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		return c.client.Do(req)
	})

	attrs := metric.WithAttributes(
		attribute.String("method", req.Method),
		attribute.String("path", req.URL.Path),
	)
	c.reqCounter.Add(ctx, 1, attrs)
	c.latencyHist.Record(ctx, time.Since(start).Seconds(), attrs)

	if err != nil && resp == nil {
		span.RecordError(err)
		c.errCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("method", req.Method),
			attribute.String("path", req.URL.Path),
			attribute.String("error", "pipeline_failed"),
		))
		return nil, apperrors.Network(req.URL.Path, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Network(req.URL.Path, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode >= 400 {
		c.errCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("method", req.Method),
			attribute.String("path", req.URL.Path),
			attribute.Int("status", resp.StatusCode),
		))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       body,
		}
	}

	return body, nil
}
