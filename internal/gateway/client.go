package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hackx/skillos/internal/auth"
	"github.com/hackx/skillos/internal/errors"
	"github.com/hackx/skillos/internal/logger"
)

// Defaults for the gateway binding.
const (
	DefaultMetricsTable      = "system_stats"
	DefaultRequestTimeout    = 15 * time.Second
	DefaultHeartbeatInterval = 25 * time.Second
	DefaultMaxReconnects     = 10
)

// DefaultReconnectBackoff is the wait before each realtime reconnect
// attempt; the last entry repeats.
var DefaultReconnectBackoff = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
}

// Options configures a Client.
type Options struct {
	// URL is the project base URL, e.g. https://abc.supabase.co.
	URL string
	// AnonKey is the public API key sent with every request.
	AnonKey string
	// MetricsTable is the table holding metric rows.
	MetricsTable string
	// Timeout bounds each REST call.
	Timeout time.Duration

	HeartbeatInterval time.Duration
	ReconnectBackoff  []time.Duration
	// MaxReconnects ends a subscription after this many consecutive failed
	// attempts. Zero means DefaultMaxReconnects; negative means unlimited.
	MaxReconnects int

	HTTPClient *http.Client
	Store      SessionStore
	Logger     logger.Logger
}

// Client binds the metrics and auth contracts to a Supabase-compatible
// gateway: PostgREST for rows, GoTrue for phone OTP and the Realtime
// websocket for change feeds.
type Client struct {
	baseURL *url.URL
	opts    Options
	http    *http.Client
	store   SessionStore
	log     logger.Logger

	mu        sync.RWMutex
	session   *auth.Session
	restored  bool
	listeners map[int]func(*auth.Session)
	nextID    int
}

// New creates a gateway client.
func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.URL) == "" {
		return nil, errors.New(errors.ErrConfig,
			"Gateway URL is not set",
			"Set gateway.url in .skillos.yaml or SKILLOS_GATEWAY_URL")
	}
	u, err := url.Parse(strings.TrimRight(opts.URL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.New(errors.ErrConfig,
			fmt.Sprintf("Invalid gateway URL: %s", opts.URL),
			"Use the project URL, e.g. https://abc.supabase.co")
	}
	if opts.AnonKey == "" {
		return nil, errors.New(errors.ErrConfig,
			"Gateway anon key is not set",
			"Set gateway.anon_key in .skillos.yaml or SKILLOS_GATEWAY_ANON_KEY")
	}

	if opts.MetricsTable == "" {
		opts.MetricsTable = DefaultMetricsTable
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRequestTimeout
	}
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if len(opts.ReconnectBackoff) == 0 {
		opts.ReconnectBackoff = DefaultReconnectBackoff
	}
	if opts.MaxReconnects == 0 {
		opts.MaxReconnects = DefaultMaxReconnects
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewEnvLogger("[gateway]")
	}

	return &Client{
		baseURL:   u,
		opts:      opts,
		http:      opts.HTTPClient,
		store:     opts.Store,
		log:       opts.Logger,
		listeners: make(map[int]func(*auth.Session)),
	}, nil
}

// HTTPError is a non-2xx response from the gateway.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway returned HTTP %d", e.Status)
	}
	return e.Message
}

// apiError covers the error body shapes used by the gateway services.
type apiError struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
	Error            string `json:"error"`
}

func (a apiError) text() string {
	for _, s := range []string{a.Msg, a.Message, a.ErrorDescription, a.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// do performs a JSON request against path. A nil body sends no payload;
// a nil out discards the response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.opts.AnonKey)
	req.Header.Set("Authorization", "Bearer "+c.bearer())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		_ = json.Unmarshal(data, &apiErr)
		return &HTTPError{Status: resp.StatusCode, Message: apiErr.text()}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// bearer returns the access token of the current session, or the anon key.
func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session != nil && c.session.AccessToken != "" {
		return c.session.AccessToken
	}
	return c.opts.AnonKey
}
