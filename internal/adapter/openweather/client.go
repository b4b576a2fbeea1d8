package openweather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchcryptid/flood-risk-service/internal/domain"
	"github.com/couchcryptid/flood-risk-service/internal/observability"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.openweathermap.org"
	maxBodyBytes   = 1 << 20

	endpointGeocode  = "geocode"
	endpointCurrent  = "current"
	endpointForecast = "forecast"
)

// Options tune the upstream transport. Zero values select defaults.
type Options struct {
	BaseURL        string
	Timeout        time.Duration // per attempt
	MaxRetries     int           // retries after the first attempt
	RateLimit      float64       // requests per second
	RateBurst      int
	InitialBackoff time.Duration
}

// Client talks to the OpenWeatherMap geocoding, current-weather and forecast
// endpoints. It implements domain.Geocoder, domain.ConditionsFetcher and
// domain.ForecastFetcher.
type Client struct {
	apiKey         string
	baseURL        string
	httpClient     *http.Client
	timeout        time.Duration
	limiter        *rate.Limiter
	maxRetries     int
	initialBackoff time.Duration
	metrics        *observability.Metrics
	logger         *slog.Logger
}

var (
	_ domain.Geocoder          = (*Client)(nil)
	_ domain.ConditionsFetcher = (*Client)(nil)
	_ domain.ForecastFetcher   = (*Client)(nil)
)

// NewClient creates an OpenWeatherMap client.
func NewClient(apiKey string, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 1
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 5
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 200 * time.Millisecond
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		timeout:        opts.Timeout,
		limiter:        rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst),
		maxRetries:     opts.MaxRetries,
		initialBackoff: opts.InitialBackoff,
		metrics:        metrics,
		logger:         logger,
	}
}

// errRateWait marks an attempt that could not get a rate-limiter slot within
// the per-attempt timeout. It is not retried.
var errRateWait = errors.New("rate limit wait exceeds timeout")

// statusError records a non-2xx HTTP response or a failure "cod" in the body.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("status %d", e.code)
	}
	return fmt.Sprintf("status %d: %s", e.code, e.message)
}

// transient reports whether the provider asked us to come back later.
func (e *statusError) transient() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

// get fetches path with params and returns the response body, retrying
// transient failures with exponential backoff. Errors are *domain.Error.
func (c *Client) get(ctx context.Context, endpoint, op, path string, params url.Values) ([]byte, error) {
	params.Set("appid", c.apiKey)
	fullURL := c.baseURL + path + "?" + params.Encode()

	var body []byte
	attempt := func() error {
		b, err := c.do(ctx, endpoint, op, fullURL)
		if err != nil {
			if isTransient(err) && !errors.Is(err, errRateWait) {
				return err
			}
			return backoff.Permanent(err)
		}
		body = b
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialBackoff
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = 0
	var b backoff.BackOff = backoff.WithMaxRetries(policy, uint64(max(c.maxRetries, 0)))

	err := backoff.RetryNotify(attempt, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		c.logger.Warn("upstream request failed, retrying",
			"endpoint", endpoint,
			"error", err,
			"wait", wait,
		)
	})
	if err == nil {
		return body, nil
	}
	if domain.KindOf(err) == domain.KindUnknown {
		// Context cancelled while waiting between attempts.
		return nil, domain.Unavailable(op, err)
	}
	return nil, err
}

// do performs a single rate-limited attempt. The limiter wait and the request
// are each bounded by the per-attempt timeout.
func (c *Client) do(ctx context.Context, endpoint, op, fullURL string) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		c.observe(endpoint, "unavailable", 0)
		return nil, domain.Unavailable(op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, &domain.Error{Kind: domain.KindUpstreamError, Op: op, Msg: "create request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(endpoint, "unavailable", time.Since(start))
		return nil, domain.Unavailable(op, redact(err, c.apiKey))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.observe(endpoint, "unavailable", time.Since(start))
		return nil, domain.Unavailable(op, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.observe(endpoint, "error", time.Since(start))
		se := &statusError{code: resp.StatusCode, message: errorMessage(body)}
		return nil, domain.UpstreamErrorf(op, se, "provider rejected request")
	}

	c.observe(endpoint, "success", time.Since(start))
	return body, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	err := c.limiter.Wait(ctx)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("rate limit wait: %w", ctx.Err())
	}
	return fmt.Errorf("%w: %w", errRateWait, err)
}

func (c *Client) observe(endpoint, outcome string, d time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.UpstreamRequests.WithLabelValues(endpoint, outcome).Inc()
	if d > 0 {
		c.metrics.UpstreamDuration.WithLabelValues(endpoint).Observe(d.Seconds())
	}
}

func isTransient(err error) bool {
	if domain.KindOf(err) == domain.KindUpstreamUnavailable {
		return true
	}
	var se *statusError
	return errors.As(err, &se) && se.transient()
}

// redact strips the API key from transport errors, which embed the request URL.
func redact(err error, apiKey string) error {
	if apiKey == "" || !strings.Contains(err.Error(), apiKey) {
		return err
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return &url.Error{Op: ue.Op, URL: strings.ReplaceAll(ue.URL, apiKey, "REDACTED"), Err: ue.Err}
	}
	return errors.New(strings.ReplaceAll(err.Error(), apiKey, "REDACTED"))
}
