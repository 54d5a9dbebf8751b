package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/insider-cli/internal/resilience"
)

// FetchError reports a non-retriable HTTP failure (4xx other than 403/408/429).
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: http %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Options configures the HTTP client.
type Options struct {
	// UserAgent must be a contactable identifier; EDGAR blocks anonymous
	// or generic agents, so it is sent on every request.
	UserAgent string

	Timeout     time.Duration
	MaxAttempts int

	// RateLimiters are shared per-host budgets. All callers and all
	// workers draw from the same limiter for a given host.
	RateLimiters map[string]*rate.Limiter
}

// DefaultRateLimiters returns the per-host budgets for the EDGAR endpoints.
// SEC guidance caps automated access at 10 req/s; stay under it.
func DefaultRateLimiters() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		"data.sec.gov": rate.NewLimiter(8, 8),
		"www.sec.gov":  rate.NewLimiter(8, 8),
	}
}

// Client issues GET requests against EDGAR with a shared rate budget and
// bounded retries. It keeps no per-request state beyond the limiters.
type Client struct {
	http     *http.Client
	opts     Options
	limiters map[string]*rate.Limiter
	fallback *rate.Limiter
	retry    resilience.RetryConfig
}

// New creates a Client with the given options, filling defaults.
func New(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = "insider-cli/1.0 contact: ops@example.com"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 4
	}
	limiters := opts.RateLimiters
	if limiters == nil {
		limiters = DefaultRateLimiters()
	}

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.MaxAttempts = opts.MaxAttempts
	retryCfg.OnRetry = resilience.RetryLogger("edgar", "fetch")

	return &Client{
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limiters: limiters,
		fallback: rate.NewLimiter(8, 8),
		retry:    retryCfg,
	}
}

func (c *Client) limiterFor(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return c.fallback
	}
	if lim, ok := c.limiters[u.Host]; ok {
		return lim
	}
	return c.fallback
}

// Fetch GETs the URL and returns the response body. Throttling (429, 403),
// server errors, and network failures are retried with exponential backoff
// and jitter up to the configured attempt cap; any other 4xx fails
// immediately as a *FetchError.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.fetchOnce(ctx, rawURL)
	})
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiterFor(rawURL).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json,text/plain,*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport errors are classified by resilience.IsTransient.
		return nil, eris.Wrapf(err, "get %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrapf(err, "read body from %s", rawURL)
		}
		return body, nil
	}

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(
			eris.Errorf("http %d from %s", resp.StatusCode, rawURL),
			resp.StatusCode,
		)
	}

	return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
}
