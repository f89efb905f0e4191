package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout applies when a caller passes a zero timeout.
	DefaultTimeout = 30 * time.Second

	// BrowserUserAgent is sent when fetching retailer pages.
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	maxRedirects = 10
)

// Response is the raw result of a GET request. Non-2xx statuses are returned
// as responses, not errors; only transport failures produce an error.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ContentType returns the Content-Type header value.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// Fetcher performs bounded-timeout GET requests.
type Fetcher interface {
	Get(ctx context.Context, url string, headers map[string]string, timeout time.Duration) (*Response, error)
}

// Client is a Fetcher backed by resty.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
}

// Ensure Client implements Fetcher
var _ Fetcher = (*Client)(nil)

// NewClient creates a fetch client that follows redirects.
func NewClient() *Client {
	return &Client{
		http: resty.New().
			SetDebug(false).
			SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects)),
	}
}

// WithRateLimit throttles all requests made through this client to rps
// requests per second with the given burst. A non-positive rps disables
// limiting.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = nil
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// Get issues a GET request. The timeout bounds the whole request including
// waiting on the rate limiter.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string, timeout time.Duration) (*Response, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if c.limiter != nil {
		if err := c.limiter.Wait(reqCtx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	start := time.Now()
	res, err := c.http.R().
		SetContext(reqCtx).
		SetHeaders(headers).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}

	log.Debug().
		Str("url", url).
		Int("status", res.StatusCode()).
		Int("bytes", len(res.Body())).
		Dur("took", time.Since(start)).
		Msg("http get")

	return &Response{
		StatusCode: res.StatusCode(),
		Header:     res.Header(),
		Body:       res.Body(),
	}, nil
}
