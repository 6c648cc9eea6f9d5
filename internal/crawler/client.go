package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/tlemarchand/shelfer/internal/circuitbreaker"
	"github.com/tlemarchand/shelfer/internal/config"
	"github.com/tlemarchand/shelfer/internal/logger"
	"github.com/tlemarchand/shelfer/internal/retry"
)

// maxPageBytes caps how much of a single page we are willing to read.
const maxPageBytes = 10 * 1024 * 1024

// Client wraps HTTP access to the content site: session cookie, user agent,
// retries with backoff and a circuit breaker shared across all requests.
type Client struct {
	cfg            *config.SiteConfig
	logger         *logger.Logger
	httpClient     *http.Client
	retryConfig    retry.Config
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewClient creates a new site client
func NewClient(cfg *config.SiteConfig, log *logger.Logger) *Client {
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	retryConfig := retry.Config{
		MaxAttempts:       cfg.RetryAttempts,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFraction:    0.1,
	}

	cbConfig := circuitbreaker.Config{
		MaxFailures:         5,
		Timeout:             60 * time.Second,
		MaxHalfOpenRequests: 1,
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	}

	return &Client{
		cfg:            cfg,
		logger:         log,
		httpClient:     httpClient,
		retryConfig:    retryConfig,
		circuitBreaker: circuitbreaker.New(cbConfig),
	}
}

// GetRaw fetches rawURL and returns the response body.
func (c *Client) GetRaw(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte

	err := c.circuitBreaker.Execute(func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			var fetchErr error
			body, fetchErr = c.fetchOnce(ctx, rawURL)
			return fetchErr
		}, c.isRetryableError)
	})

	if err != nil {
		return nil, err
	}
	return body, nil
}

// GetDocument fetches rawURL and parses the body as HTML.
func (c *Client) GetDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	body, err := c.GetRaw(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", rawURL, err)
	}
	return doc, nil
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	if c.cfg.SessionCookie != "" {
		req.Header.Set("Cookie", c.cfg.SessionCookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"url":   rawURL,
		"bytes": len(body),
	}).Debug("page fetched")

	return body, nil
}

// isRetryableError treats network errors and 5xx/429 responses as retryable.
func (c *Client) isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if strings.Contains(msg, "HTTP error: 4") && !strings.Contains(msg, "HTTP error: 429") {
		return false
	}
	return true
}
