package gtfsrt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/theoremus-urban-solutions/mtapi/internal/logger"
)

const (
	// APIKeyHeader carries the feed API key on every request
	APIKeyHeader     = "x-api-key"
	defaultUserAgent = "mtapi/1.0"
	defaultTimeout   = 10 * time.Second
	defaultMaxBytes  = 32 << 20
)

// Options configures a Client
type Options struct {
	APIKey         string
	URLs           []string // http(s) URLs or local file paths
	Timeout        time.Duration // per request; the caller's context bounds the whole fetch
	MaxFeedBytes   int64         // larger feeds fail with ErrFeedTooLarge
	Retries        int
	InitialBackoff time.Duration
	UserAgent      string
	HTTPClient     *http.Client
	Logger         logger.Logger
}

// Client fetches GTFS-RT trip update feeds
type Client struct {
	httpClient     *http.Client
	apiKey         string
	urls           []string
	retries        int
	maxBytes       int64
	initialBackoff time.Duration
	userAgent      string
	log            logger.Logger
}

// NewClient creates a new GTFS-RT client
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	ib := opts.InitialBackoff
	if ib <= 0 {
		ib = 500 * time.Millisecond
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	maxBytes := opts.MaxFeedBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	return &Client{
		httpClient:     hc,
		apiKey:         opts.APIKey,
		urls:           append([]string(nil), opts.URLs...),
		retries:        retries,
		maxBytes:       maxBytes,
		initialBackoff: ib,
		userAgent:      ua,
		log:            log,
	}
}

// URLs returns the configured feed locations
func (c *Client) URLs() []string { return append([]string(nil), c.urls...) }

// FetchRecords retrieves and decodes every configured feed. It returns all
// records or a *FetchError, never a partial result.
func (c *Client) FetchRecords(ctx context.Context) ([]TripUpdateRecord, error) {
	if len(c.urls) == 0 {
		return nil, &FetchError{Err: ErrNoFeeds}
	}
	var all []TripUpdateRecord
	for _, u := range c.urls {
		data, err := c.Fetch(ctx, u)
		if err != nil {
			return nil, &FetchError{URL: u, Err: err}
		}
		recs, err := Decode(data)
		if err != nil {
			return nil, &FetchError{URL: u, Err: err}
		}
		c.log.Debug("Decoded feed", "url", u, "bytes", len(data), "records", len(recs))
		all = append(all, recs...)
	}
	return all, nil
}

// Fetch returns the raw protobuf bytes of one feed. Local paths are read from
// disk; URLs are retried on transient failures.
func (c *Client) Fetch(ctx context.Context, urlOrPath string) ([]byte, error) {
	if !isRemote(urlOrPath) {
		return c.readFile(urlOrPath)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.initialBackoff
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.retries)), ctx)

	return backoff.RetryNotifyWithData(
		func() ([]byte, error) {
			data, err := c.get(ctx, urlOrPath)
			if err != nil && !retryable(ctx, err) {
				return nil, backoff.Permanent(err)
			}
			return data, err
		},
		b,
		func(err error, d time.Duration) {
			c.log.Warn("Feed fetch failed, retrying", "url", urlOrPath, "error", err, "backoff", d.String())
		},
	)
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	if c.apiKey != "" {
		req.Header.Set(APIKeyHeader, c.apiKey)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/x-protobuf")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: url}
	}
	return c.readLimited(resp.Body)
}

func (c *Client) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return c.readLimited(f)
}

// readLimited fails with ErrFeedTooLarge instead of truncating
func (c *Client) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, c.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFeedTooLarge, c.maxBytes)
	}
	return data, nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, ErrFeedTooLarge) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

func isRemote(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
