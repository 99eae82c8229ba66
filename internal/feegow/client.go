package feegow

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-occupancy-maps/pkg/logging"
)

const (
	defaultBaseURL   = "https://api.feegow.com/v1/api"
	defaultUserAgent = "clinic-occupancy-maps/0.1"
	tokenHeader      = "x-access-token"
)

var tracer = otel.Tracer("occupancy.internal.feegow")

// Observer receives request telemetry. *metrics.PipelineMetrics satisfies it.
type Observer interface {
	ObserveUpstream(endpoint string, status int, seconds float64)
	ObserveUpstreamRetry(endpoint string)
}

// Config controls how the Feegow client behaves.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
	UserAgent  string
	Observer   Observer
}

// Client wraps the read-only Feegow endpoints used to build occupancy maps.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	logger     *logging.Logger
	userAgent  string
	observer   Observer
}

// New creates a configured Client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("feegow: access token is required")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	backoff := cfg.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		token:      cfg.Token,
		baseURL:    baseURL,
		httpClient: httpClient,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger,
		userAgent:  userAgent,
		observer:   cfg.Observer,
	}, nil
}

// invoke performs a request with bounded exponential backoff on 429/5xx and network
// timeouts. Other 4xx responses are returned immediately as *APIError.
func (c *Client) invoke(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "feegow.request")
	defer span.End()
	span.SetAttributes(attribute.String("feegow.path", path))

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("feegow: marshal body: %w", err)
		}
	}

	fullURL := c.buildURL(path, query)
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("feegow: build request: %w", err)
		}
		req.Header.Set(tokenHeader, c.token)
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		started := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.observe(path, 0, started)
			if ctx.Err() != nil {
				span.RecordError(ctx.Err())
				return nil, ctx.Err()
			}
			if !shouldRetry(0, err) || attempt == c.maxRetries {
				span.RecordError(err)
				return nil, fmt.Errorf("feegow: http error: %w", err)
			}
			lastErr = err
			c.logRetry(path, attempt, 0, err)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		c.observe(path, resp.StatusCode, started)
		if readErr != nil {
			return nil, fmt.Errorf("feegow: read response: %w", readErr)
		}
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return data, nil
		}
		apiErr := decodeAPIError(resp.StatusCode, data)
		if attempt < c.maxRetries && shouldRetry(resp.StatusCode, nil) {
			lastErr = apiErr
			c.logRetry(path, attempt, resp.StatusCode, apiErr)
			if sleepErr := c.sleep(ctx, attempt); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		span.RecordError(apiErr)
		return nil, apiErr
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("feegow: request failed without response")
}

func (c *Client) buildURL(path string, query url.Values) string {
	full := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		full = full + "?" + query.Encode()
	}
	return full
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	delay := c.backoff * time.Duration(1<<attempt)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) logRetry(path string, attempt int, status int, err error) {
	if c.observer != nil {
		c.observer.ObserveUpstreamRetry(path)
	}
	c.logger.Warn("feegow retry",
		"path", path,
		"attempt", attempt+1,
		"status", status,
		"error", err,
	)
}

func (c *Client) observe(path string, status int, started time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveUpstream(path, status, time.Since(started).Seconds())
}

func shouldRetry(status int, err error) bool {
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return true
		}
		return !errors.Is(err, context.Canceled)
	}
	if status == http.StatusTooManyRequests {
		return true
	}
	switch status {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
