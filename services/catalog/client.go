// Package catalog is the TMDB-backed movie catalog: keyword search, the default
// popularity listing, movie details and video listings. All calls share one
// rate limiter and retry transient failures (network errors, 429, 5xx).
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.themoviedb.org/3"

	defaultTimeout       = 15 * time.Second
	defaultRatePerSecond = 20
	defaultRetryAttempts = 3
	defaultRetryDelay    = 300 * time.Millisecond

	maxResponseBytes = 4 << 20
)

// Options configures a Client. Zero values fall back to sensible defaults.
type Options struct {
	Token         string // TMDB v4 read access token, sent as a bearer token
	BaseURL       string
	Language      string
	Timeout       time.Duration
	RatePerSecond float64
	RetryAttempts uint
	RetryDelay    time.Duration
	CacheDir      string // empty disables the detail/video cache
	CacheTTLHours int
	CacheFS       afero.Fs // defaults to the OS filesystem
	HTTPClient    *http.Client
}

// Client talks to the TMDB v3 API.
type Client struct {
	token      string
	baseURL    string
	language   string
	httpc      *http.Client
	limiter    *rate.Limiter
	attempts   uint
	retryDelay time.Duration
	cache      *fileCache

	// flightTimeout bounds a shared lookup that no longer belongs to any
	// single caller's context.
	flightTimeout time.Duration

	inflight singleflight.Group
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	rps := opts.RatePerSecond
	if rps <= 0 {
		rps = defaultRatePerSecond
	}
	attempts := opts.RetryAttempts
	if attempts == 0 {
		attempts = defaultRetryAttempts
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	var cache *fileCache
	if strings.TrimSpace(opts.CacheDir) != "" {
		cache = newFileCache(opts.CacheFS, opts.CacheDir, opts.CacheTTLHours)
	}
	return &Client{
		token:      strings.TrimSpace(opts.Token),
		baseURL:    baseURL,
		language:   normalizeLanguage(opts.Language),
		httpc:      httpc,
		limiter:    rate.NewLimiter(rate.Limit(rps), int(math.Ceil(rps))),
		attempts:   attempts,
		retryDelay: delay,
		cache:      cache,

		flightTimeout: time.Duration(attempts) * (timeout + delay),
	}
}

func (c *Client) isConfigured() bool {
	return c != nil && c.token != ""
}

// envelope captures the in-band failure markers a 2xx body may carry.
type envelope struct {
	Success       *bool  `json:"success"`
	Response      string `json:"Response"`
	Error         string `json:"error"`
	StatusMessage string `json:"status_message"`
}

func (e envelope) failed() bool {
	return (e.Success != nil && !*e.Success) || strings.EqualFold(strings.TrimSpace(e.Response), "false")
}

func (e envelope) message() string {
	if msg := strings.TrimSpace(e.Error); msg != "" {
		return msg
	}
	return strings.TrimSpace(e.StatusMessage)
}

// shared runs fetch once for all concurrent callers of key. The fetch runs
// on a context detached from whichever caller started it, so one caller
// going away never fails the others; each caller stops waiting when its own
// ctx ends.
func (c *Client) shared(ctx context.Context, op, key string, fetch func(context.Context) (any, error)) (any, error) {
	ch := c.inflight.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.flightTimeout)
		defer cancel()
		return fetch(flightCtx)
	})
	select {
	case <-ctx.Done():
		return nil, &TransportError{Op: op, Err: ctx.Err()}
	case res := <-ch:
		return res.Val, res.Err
	}
}

// get issues a GET against path and decodes the body into out.
func (c *Client) get(ctx context.Context, op, path string, params url.Values, out any) error {
	if !c.isConfigured() {
		return &TransportError{Op: op, Err: ErrNotConfigured}
	}
	if params == nil {
		params = url.Values{}
	}
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	return retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(&TransportError{Op: op, Err: err})
			}
			return c.doGET(ctx, op, endpoint, out)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("[catalog] retrying %s attempt=%d err=%v", op, n+1, err)
		}),
	)
}

// doGET performs one attempt. Errors wrapped in retry.Unrecoverable stop the
// retry loop; plain errors are retried.
func (c *Client) doGET(ctx context.Context, op, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return retry.Unrecoverable(&TransportError{Op: op, Err: fmt.Errorf("build request: %w", err)})
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return retry.Unrecoverable(&TransportError{Op: op, Err: err})
		}
		return &TransportError{Op: op, Err: err}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	resp.Body.Close()
	if err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		terr := &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", snippet(body))}
		if retryableStatus(resp.StatusCode) {
			return terr
		}
		return retry.Unrecoverable(terr)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return retry.Unrecoverable(&TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)})
	}
	if env.failed() {
		return retry.Unrecoverable(&ApplicationError{Op: op, Message: env.message()})
	}
	if err := json.Unmarshal(body, out); err != nil {
		return retry.Unrecoverable(&TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)})
	}
	return nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		s = "empty body"
	}
	return s
}
