package depth

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SteakTheStake/bonemeal/internal/logging"
	"github.com/SteakTheStake/bonemeal/internal/pixel"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultAttempts  = 3
	defaultRetryWait = 2 * time.Second
	maxRetryWait     = 30 * time.Second
	maxResponseBytes = 64 << 20
)

// Config describes a remote depth estimation endpoint.
type Config struct {
	// Endpoint receives the source image as a PNG POST body and
	// answers with a grayscale PNG of the same size.
	Endpoint string

	// APIKey, when set, is sent as a bearer token.
	APIKey string

	// HTTPClient overrides the default client (60s timeout).
	HTTPClient *http.Client

	// MaxAttempts bounds tries per estimate, retrying only on 429
	// and 503. Zero means 3.
	MaxAttempts int

	Logger *slog.Logger
}

// Client calls a remote estimation service. Rate-limit and
// unavailable responses are retried with the server-suggested wait,
// capped at 30s; every other failure is immediately terminal.
type Client struct {
	endpoint string
	apiKey   string
	hc       *http.Client
	attempts int
	log      *slog.Logger
}

// NewClient builds a Client from cfg, filling defaults.
func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Client{endpoint: cfg.Endpoint, apiKey: cfg.APIKey, hc: hc, attempts: attempts, log: log}
}

// Estimate posts src to the service and decodes the returned depth
// image. All terminal failures wrap ErrUnavailable.
func (c *Client) Estimate(ctx context.Context, src *pixel.Buffer) (*pixel.Buffer, error) {
	if src == nil || src.W == 0 || src.H == 0 {
		return nil, fmt.Errorf("%w: empty source image", ErrUnavailable)
	}
	body, err := src.EncodePNG()
	if err != nil {
		return nil, fmt.Errorf("encode depth request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.attempts; attempt++ {
		out, wait, err := c.post(ctx, src, body)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if wait < 0 || attempt == c.attempts-1 {
			break
		}
		c.log.Debug("depth service busy, retrying",
			"attempt", attempt+1, "of", c.attempts, "wait", wait)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// post runs one request. A negative wait means the failure must not be
// retried.
func (c *Client) post(ctx context.Context, src *pixel.Buffer, body []byte) (*pixel.Buffer, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, -1, err
	}
	req.Header.Set("Content-Type", "image/png")
	req.Header.Set("Accept", "image/png")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, -1, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return nil, retryWait(resp.Header.Get("Retry-After")), fmt.Errorf("service responded %s", resp.Status)
	default:
		return nil, -1, fmt.Errorf("service responded %s", resp.Status)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		return nil, -1, fmt.Errorf("unexpected content type %q", ct)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, -1, fmt.Errorf("read response: %w", err)
	}
	decoded, _, err := pixel.Decode("depth.png", data)
	if err != nil {
		return nil, -1, err
	}
	if decoded.W != src.W || decoded.H != src.H {
		return nil, -1, fmt.Errorf("depth size %dx%d does not match source %dx%d",
			decoded.W, decoded.H, src.W, src.H)
	}
	return pixel.FromGray(decoded.ToGray()), 0, nil
}

// retryWait interprets a Retry-After header, either delta-seconds or an
// HTTP date, clamped to [0, maxRetryWait].
func retryWait(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return defaultRetryWait
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return clampWait(time.Duration(secs) * time.Second)
	}
	if t, err := http.ParseTime(header); err == nil {
		return clampWait(time.Until(t))
	}
	return defaultRetryWait
}

func clampWait(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if d > maxRetryWait {
		return maxRetryWait
	}
	return d
}
